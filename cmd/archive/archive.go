// Package archive implements "binsizer archive": running the full
// pipeline and writing the resulting SizeInfo to a .size file.
package archive

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yue/binsizer/internal/cliutil"
	"github.com/yue/binsizer/internal/pipeline"
	"github.com/yue/binsizer/internal/sizefile"
	"github.com/yue/binsizer/internal/sizerr"
)

var (
	mapFile         string
	elfFile         string
	outputDirectory string
	toolPrefix      string
	outFile         string
	demangle        bool
)

// Cmd is the "binsizer archive" subcommand.
var Cmd = &cobra.Command{
	Use:   "archive",
	Short: "Build a .size file from a linker map and optional ELF/ninja inputs",
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVar(&mapFile, "map-file", "", "path to the linker map file (required)")
	Cmd.Flags().StringVar(&elfFile, "elf-file", "", "path to the unstripped shared library (optional, enables nm alias resolution)")
	Cmd.Flags().StringVar(&outputDirectory, "output-directory", "", "build output directory containing build.ninja (optional, auto-detected)")
	Cmd.Flags().StringVar(&toolPrefix, "tool-prefix", "", "cross-toolchain prefix for nm/c++filt (optional, auto-detected)")
	Cmd.Flags().StringVarP(&outFile, "output", "o", "", "path to write the resulting .size file (required)")
	Cmd.Flags().BoolVar(&demangle, "demangle", true, "pipe residual mangled names through c++filt")
	Cmd.MarkFlagRequired("map-file")
	Cmd.MarkFlagRequired("output")
}

func run(cmd *cobra.Command, args []string) error {
	logger, closer, err := cliutil.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	diag := sizerr.NewDiagnostics(func(format string, a ...any) {
		logger.Warn(fmt.Sprintf(format, a...))
	})

	result, err := pipeline.Run(pipeline.ArchiveOptions{
		MapFile:         mapFile,
		ElfFile:         elfFile,
		OutputDirectory: outputDirectory,
		ToolPrefix:      toolPrefix,
		Demangle:        demangle,
	}, diag)
	if err != nil {
		return reportAbort(err)
	}

	if err := sizefile.Save(outFile, result.SizeInfo, result.RawRead, result.NmAlias, outputDirectory); err != nil {
		return reportAbort(err)
	}

	logCoverage(logger, result.Coverage)
	for _, line := range diag.Summary() {
		logger.Warn(line)
	}

	color.Green("wrote %s (%d symbols, %.1f%% source coverage)", outFile, result.Coverage.TotalSymbols, result.Coverage.SourceCoverageRatio()*100)
	return nil
}

func logCoverage(logger *slog.Logger, report pipeline.CoverageReport) {
	logger.Info("archive coverage",
		"total_symbols", report.TotalSymbols,
		"with_source_path", report.WithSourcePath,
		"with_object_path", report.WithObjectPath,
		"unmatched_objects", report.UnmatchedObjects)
}

func reportAbort(err error) error {
	color.Red("binsizer archive: %v", err)
	return err
}
