package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/druidq/internal/broker"
)

// StatusResult is the JSON payload of the status command.
type StatusResult struct {
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check broker health",
		Long: `Query the broker's /status/health endpoint.

Example:
  druidq status --config druidq.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(true)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	client, err := broker.New(cfg.Broker, broker.WithLogger(slog.Default()))
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "invalid broker config", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	if err := client.Status(ctx); err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeBroker, "broker unhealthy", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(StatusResult{URL: cfg.Broker.URL, Healthy: true})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s healthy\n", cfg.Broker.URL)
	return nil
}
