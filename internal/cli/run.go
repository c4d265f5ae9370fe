package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/druidq/internal/broker"
	"github.com/roach88/druidq/internal/history"
	"github.com/roach88/druidq/internal/query"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string // overrides history.path from the config file
	NoHistory bool

	// ClientOptions are passed to broker.New (for testing).
	ClientOptions []broker.Option
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name      string          `json:"name"`
	Shape     query.Shape     `json:"shape"`
	HistoryID string          `json:"history_id,omitempty"`
	Duration  string          `json:"duration"`
	Response  json.RawMessage `json:"response"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <queries> <name>",
		Short: "Execute a query against the broker",
		Long: `Build the named query and send it to the broker configured in the
config file. The raw broker response is printed unchanged.

Each execution is recorded in the history database (history.path in the
config file, or --db) unless --no-history is set.

Exit codes:
  0 - Query executed
  1 - Query failed to build or the broker returned an error
  2 - Command error (bad config, unknown query, load failure)

Examples:
  druidq run --config druidq.yaml ./queries top_pages
  druidq run --config druidq.yaml --db /tmp/history.db ./queries top_pages
  druidq run --config druidq.yaml ./report.yaml report --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "history database (overrides config)")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "do not record the execution")

	return cmd
}

func runQuery(opts *RunOptions, path, name string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(true)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	docs, err := loadDocuments(path)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeLoadFailed, "failed to load queries", err)
	}
	docs, err = selectDocuments(docs, []string{name})
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeNotFound, "unknown query", err)
	}

	q, err := docs[0].Build()
	if err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeBuildFailed, "failed to build query", err)
	}

	client, err := broker.New(cfg.Broker, append([]broker.Option{broker.WithLogger(slog.Default())}, opts.ClientOptions...)...)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeConfig, "invalid broker config", err)
	}

	var store *history.Store
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.History.Path
	}
	if dbPath != "" && !opts.NoHistory {
		store, err = history.Open(dbPath)
		if err != nil {
			return opts.fail(cmd, ExitCommandError, ErrCodeHistory, "failed to open history", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("error closing history", "error", closeErr)
			}
		}()
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	entry, err := history.NewEntry(q)
	if err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeGeneric, "failed to describe query", err)
	}

	slog.Info("executing query", "name", name, "shape", q.Shape(), "datasource", entry.DataSource)
	start := time.Now()
	body, execErr := client.Execute(ctx, q)
	elapsed := time.Since(start)

	if store != nil {
		recorded, err := store.Record(ctx, entry.Finish(execErr, elapsed))
		if err != nil {
			slog.Error("failed to record history", "name", name, "error", err)
		} else {
			entry = recorded
			slog.Debug("history recorded", "id", entry.ID, "seq", entry.Seq)
		}
	}

	if execErr != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeBroker, "broker request failed", execErr)
	}
	slog.Info("query executed", "name", name, "duration", elapsed, "bytes", len(body))

	if opts.Format == "json" {
		response := json.RawMessage(body)
		if !json.Valid(body) {
			quoted, _ := json.Marshal(string(body))
			response = quoted
		}
		return opts.formatter(cmd).Success(RunResult{
			Name:      name,
			Shape:     q.Shape(),
			HistoryID: entry.ID,
			Duration:  elapsed.String(),
			Response:  response,
		})
	}

	w := cmd.OutOrStdout()
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// signalContext derives a context from the command's that is canceled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
