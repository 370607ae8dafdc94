package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yue/binsizer/cmd/archive"
	"github.com/yue/binsizer/cmd/console"
	"github.com/yue/binsizer/cmd/diffcmd"
	"github.com/yue/binsizer/cmd/htmlreport"
	"github.com/yue/binsizer/internal/futures"
)

var cfgFile string

// RootCmd is the base command when binsizer is called without any
// subcommands.
var RootCmd = &cobra.Command{
	Use:   "binsizer",
	Short: "Attribute a binary's size to the symbols and sources that produced it",
	Long: `binsizer turns a linker map, an optional unstripped shared library, and an
optional ninja build-graph directory into one queryable symbol model.

Use "binsizer archive" to build a .size file, "binsizer diff" to compare
two of them, and "binsizer console" to explore one interactively.`,
}

// Execute adds all child commands to RootCmd and runs it. Called once
// from main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.binsizer.yaml)")
	RootCmd.PersistentFlags().String("log-file", "", "write JSON-formatted logs to this file in addition to stderr")
	RootCmd.PersistentFlags().String("log-level", "info", "minimum level to log: debug, info, warn, error")
	viper.BindPFlag("log_file", RootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log_level", RootCmd.PersistentFlags().Lookup("log-level"))

	RootCmd.AddCommand(archive.Cmd, diffcmd.Cmd, console.Cmd, htmlreport.Cmd, nmWorkerCmd)
	cobra.OnInitialize(initConfig, installTeardownHook)
}

// initConfig reads the config file and environment variables, matching
// the teacher's initConfig exactly except for the app name and prefix.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".binsizer")
	}

	viper.SetEnvPrefix("BINSIZER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func installTeardownHook() {
	futures.InstallTeardownHook(func(activeWorkers int) {
		fmt.Fprintf(os.Stderr, "binsizer: interrupted with %d worker(s) still running, exiting without writing output\n", activeWorkers)
		os.Exit(130)
	})
}
