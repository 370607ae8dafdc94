// Package console implements "binsizer console": an interactive
// browser over a .size file's symbol tree, as a tview tree view by
// default or a readline REPL with --repl for sessions without a
// capable terminal.
package console

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yue/binsizer/internal/cliutil"
	"github.com/yue/binsizer/internal/sizefile"
)

var repl bool

// Cmd is the "binsizer console" subcommand.
var Cmd = &cobra.Command{
	Use:   "console <size-file>",
	Short: "Explore a .size file's symbol tree interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().BoolVar(&repl, "repl", false, "use a line-oriented prompt instead of the tree view")
}

func run(cmd *cobra.Command, args []string) error {
	logger, closer, err := cliutil.NewLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	info, err := sizefile.Load(args[0], nil)
	if err != nil {
		return err
	}

	logger.Info("loaded size file", "path", args[0], "symbols", info.Symbols().Count())

	controller := NewController(info.Symbols())
	if repl {
		return runRepl(controller, os.Stdout)
	}
	return runTUI(controller)
}
