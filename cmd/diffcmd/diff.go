// Package diffcmd implements "binsizer diff": comparing two .size
// files and printing the symbols that changed.
package diffcmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yue/binsizer/internal/cliutil"
	"github.com/yue/binsizer/internal/sizefile"
	"github.com/yue/binsizer/internal/sizemodel"
)

var (
	before string
	after  string
	top    int
)

// Cmd is the "binsizer diff" subcommand.
var Cmd = &cobra.Command{
	Use:   "diff <before.size> <after.size>",
	Short: "Diff two .size files and print the symbols that grew or shrank",
	Args:  cobra.ExactArgs(2),
	RunE:  run,
}

func init() {
	Cmd.Flags().IntVar(&top, "top", 25, "how many changed symbols to print, largest delta first")
}

func run(cmd *cobra.Command, args []string) error {
	before, after = args[0], args[1]

	logger, closer, err := cliutil.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	beforeInfo, err := sizefile.Load(before, nil)
	if err != nil {
		return err
	}
	afterInfo, err := sizefile.Load(after, nil)
	if err != nil {
		return err
	}

	delta := sizemodel.Diff(beforeInfo, afterInfo)
	printSummary(delta)
	printTopChanges(delta, top)

	logger.Info("diff complete", "before", before, "after", after)
	return nil
}

func printSummary(delta *sizemodel.DeltaSizeInfo) {
	counts := delta.CountsByStatus()
	fmt.Printf("changed=%d added=%d removed=%d unchanged=%d\n",
		counts[sizemodel.DiffChanged], counts[sizemodel.DiffAdded],
		counts[sizemodel.DiffRemoved], counts[sizemodel.DiffUnchanged])

	var totalDelta int64
	for _, size := range delta.SectionSizesDelta {
		totalDelta += size
	}
	if totalDelta > 0 {
		color.Red("total size delta: +%d bytes", totalDelta)
	} else {
		color.Green("total size delta: %d bytes", totalDelta)
	}
}

func printTopChanges(delta *sizemodel.DeltaSizeInfo, n int) {
	sorted := append([]*sizemodel.DeltaSymbol(nil), delta.Symbols...)
	sortBySizeDeltaMagnitude(sorted)

	for i, d := range sorted {
		if i >= n {
			break
		}
		if d.Status() == sizemodel.DiffUnchanged {
			continue
		}
		name := symbolName(d)
		c := color.New(color.FgGreen)
		if d.SizeDelta() > 0 {
			c = color.New(color.FgRed)
		}
		c.Printf("%+6d  %s\n", d.SizeDelta(), name)
	}
}

func symbolName(d *sizemodel.DeltaSymbol) string {
	if d.After != nil {
		return d.After.FullName
	}
	return d.Before.FullName
}

func sortBySizeDeltaMagnitude(deltas []*sizemodel.DeltaSymbol) {
	sort.SliceStable(deltas, func(i, j int) bool {
		return magnitude(deltas[i].SizeDelta()) > magnitude(deltas[j].SizeDelta())
	})
}

func magnitude(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
