package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/tierguard/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		fmt.Println("Configuration valid")
		fmt.Printf("  resource:  %s\n", cfg.Provider.ResourceID)
		fmt.Printf("  metric:    %s\n", cfg.Provider.MetricName)
		fmt.Printf("  allowance: %.0f\n", cfg.Limit.MonthlyAllowance)
		fmt.Printf("  interval:  %s\n", cfg.Monitor.Interval())
		fmt.Printf("  monitor:   enabled=%t\n", cfg.Monitor.IsEnabled())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
