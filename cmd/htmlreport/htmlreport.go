// Package htmlreport implements "binsizer html-report": a minimal
// static HTML page listing the largest symbols in a .size file, for
// sharing a result without the console.
package htmlreport

import (
	"fmt"
	"html"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yue/binsizer/internal/cliutil"
	"github.com/yue/binsizer/internal/sizefile"
	"github.com/yue/binsizer/internal/sizemodel"
	"github.com/yue/binsizer/pkg/utils"
)

var (
	sizeFile string
	outFile  string
	top      int
)

// Cmd is the "binsizer html-report" subcommand.
var Cmd = &cobra.Command{
	Use:   "html-report <size-file>",
	Short: "Render a .size file's largest symbols as a static HTML page",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVarP(&outFile, "output", "o", "report.html", "path to write the HTML report")
	Cmd.Flags().IntVar(&top, "top", 200, "how many symbols to list, largest PSS first")
}

func run(cmd *cobra.Command, args []string) error {
	sizeFile = args[0]

	logger, closer, err := cliutil.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	info, err := sizefile.Load(sizeFile, nil)
	if err != nil {
		return err
	}

	group := info.Symbols().Sorted()
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := render(f, group, top, info.SectionSizes); err != nil {
		return err
	}

	logger.Info("wrote html report", "output", outFile, "symbols", group.Count())
	return nil
}

func render(w *os.File, group *sizemodel.SymbolGroup, limit int, sectionSizes map[string]uint64) error {
	if _, err := fmt.Fprint(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>binsizer report</title>"+
		"<style>body{font-family:monospace}table{border-collapse:collapse}td,th{padding:2px 8px;text-align:right}"+
		"td.name,th.name{text-align:left}</style></head><body>"); err != nil {
		return err
	}

	fmt.Fprint(w, "<h1>Section sizes</h1><table><tr><th class=\"name\">Section</th><th>Bytes</th></tr>")
	names := utils.Keys(sectionSizes)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "<tr><td class=\"name\">%s</td><td>%d</td></tr>", html.EscapeString(name), sectionSizes[name])
	}
	fmt.Fprint(w, "</table>")

	fmt.Fprint(w, "<h1>Largest symbols</h1><table><tr><th class=\"name\">Symbol</th><th>PSS</th><th class=\"name\">Object</th></tr>")
	for i, s := range group.Symbols() {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "<tr><td class=\"name\">%s</td><td>%.1f</td><td class=\"name\">%s</td></tr>",
			html.EscapeString(s.FullName), s.PSS(), html.EscapeString(s.ObjectPath))
	}
	fmt.Fprint(w, "</table></body></html>")
	return nil
}
