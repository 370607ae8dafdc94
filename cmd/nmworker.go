package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yue/binsizer/internal/nmtool"
)

// nmWorkerCmd is the hidden subcommand a spawned nm helper process
// runs as; it is never meant to be invoked by a user directly, only by
// nmtool.StartWorker re-executing this same binary.
var nmWorkerCmd = &cobra.Command{
	Use:    "__nm_worker",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return nmtool.RunWorker(os.Stdin, os.Stdout)
	},
}
