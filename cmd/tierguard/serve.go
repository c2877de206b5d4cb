package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/tierguard/bootstrap"
	"github.com/artpar/tierguard/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the usage monitor and status API",
	Long: `Start the tierguard monitor.

The server will:
  - Load configuration from tierguard.yaml (or --config)
  - Or load configuration from TIERGUARD_* environment variables
  - Start the background usage poller
  - Serve the read-only status API

Environment variables (for Docker deployments):
  TIERGUARD_PROVIDER_METRICS_URL  - Provider metrics endpoint (required)
  TIERGUARD_PROVIDER_RESOURCE_ID  - Monitored resource identifier (required)
  TIERGUARD_PROVIDER_TOKEN        - Static bearer token
  TIERGUARD_MONTHLY_ALLOWANCE     - Free-tier allowance (default 100000)
  TIERGUARD_POLL_INTERVAL_HOURS   - Polling interval (default 2)
  TIERGUARD_SERVER_PORT           - Status API port (default 8080)
  TIERGUARD_LOG_LEVEL             - debug, info, warn, error

Examples:
  tierguard serve
  tierguard serve --config /etc/tierguard/config.yaml

  # Docker (env vars only):
  TIERGUARD_PROVIDER_METRICS_URL=https://metrics.example.com \
  TIERGUARD_PROVIDER_RESOURCE_ID=/resources/app-1 tierguard serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}

	return app.Run()
}
