package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tierguard",
	Short: "Free-tier usage monitor with throttle classification",
	Long: `Tierguard watches a metered cloud resource's remaining monthly
allowance and publishes a discrete throttle level that applications can
consult before doing optional work.

Quick start:
  tierguard serve      # Start the monitor and status API
  tierguard status     # One-shot usage check
  tierguard validate   # Validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tierguard.yaml", "config file path")
}
