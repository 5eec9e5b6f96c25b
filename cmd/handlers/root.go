package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newspop/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newspop",
		Short: "Collect and digest population and fertility news coverage",
		Long: `newspop collects news articles about fertility, birth rates and
population decline from the GDELT warehouse, the GDELT document search API
and the NewsData REST API, persists them as CSV+parquet snapshots, and
generates an Italian-language press-review digest from the collected text.

Typical usage:

  # Collect from the warehouse and doc search, with full-text extraction
  newspop gdelt

  # Collect from the NewsData API and mail a run summary
  newspop newsdata --send-email

  # Generate today's digest from the latest snapshots
  newspop digest`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logger.SetDebug()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(NewGDELTCmd())
	rootCmd.AddCommand(NewNewsDataCmd())
	rootCmd.AddCommand(NewDigestCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
