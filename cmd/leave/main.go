/*
main.go - Application entry point

PURPOSE:
  Builds the leave command tree and runs it.

COMMANDS:
  serve        Run the HTTP API and the shortage monitor
  availability Print the per-day staffing grid for a month
  shortages    Print the shortage report for a month
  seed         Load a YAML dataset into the configured store
  scenarios    List the built-in demo scenarios

CONFIGURATION:
  Read from the environment, after a .env file when present. See
  config/config.go for the variables.

SEE ALSO:
  - cmd/leave/serve.go: Server startup and graceful shutdown
  - config/config.go: Environment variables
*/
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCommand creates the root command with every subcommand attached.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Leave engine - time-off requests and staffing availability",
		Long: `leave manages employee time-off requests: submission with overlap
checks, approval with balance debits, and a per-day view of how many
people are at work.

Run 'leave serve' to start the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCommand(),
		newAvailabilityCommand(),
		newShortagesCommand(),
		newSeedCommand(),
		newScenariosCommand(),
	)
	return cmd
}

// loadConfig reads configuration and builds the logger it asks for.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: logging.Format(cfg.Log.Format),
		Output: os.Stderr,
	})
	return cfg, logger, nil
}
