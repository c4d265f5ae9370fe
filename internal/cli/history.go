package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/druidq/internal/history"
	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/querydoc"
)

// HistoryOptions holds flags shared by the history commands.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Shape       string
	Outcome     string
	Fingerprint string
	Limit       int
}

// HistoryEntry is the JSON form of a recorded request.
type HistoryEntry struct {
	ID          string          `json:"id"`
	Seq         int64           `json:"seq"`
	Fingerprint string          `json:"fingerprint"`
	Shape       query.Shape     `json:"shape"`
	DataSource  string          `json:"datasource"`
	Outcome     string          `json:"outcome"`
	Error       string          `json:"error,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	RecordedAt  string          `json:"recorded_at,omitempty"`
	Request     json.RawMessage `json:"request,omitempty"`
}

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List executed queries",
		Long: `List queries recorded by "druidq run", newest first.

The database is --db or history.path from the config file.

Examples:
  druidq history --db ./druidq.db
  druidq history --config druidq.yaml --shape topN --outcome error
  druidq history show <id> --db ./druidq.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "history database (overrides config)")
	cmd.Flags().StringVar(&opts.Shape, "shape", "", "only entries of this query type")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only entries with this outcome (ok|error)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only entries with this request fingerprint")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of entries (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:           "show <id>",
		Short:         "Show one recorded query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(opts, args[0], cmd)
		},
	})

	return cmd
}

func (o *HistoryOptions) open(cmd *cobra.Command) (*history.Store, error) {
	path := o.Database
	if path == "" {
		cfg, err := o.loadConfig(false)
		if err != nil {
			return nil, o.fail(cmd, ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		path = cfg.History.Path
	}
	if path == "" {
		return nil, o.fail(cmd, ExitCommandError, ErrCodeConfig, "no history database: pass --db or set history.path", nil)
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, o.fail(cmd, ExitCommandError, ErrCodeHistory, "failed to open history", err)
	}
	return store, nil
}

func (o *HistoryOptions) filter() (history.Filter, error) {
	f := history.Filter{
		Fingerprint: o.Fingerprint,
		Outcome:     history.Outcome(o.Outcome),
		Limit:       o.Limit,
	}
	if o.Shape != "" {
		shape, err := querydoc.ParseShape(o.Shape)
		if err != nil {
			return history.Filter{}, err
		}
		f.Shape = shape
	}
	switch f.Outcome {
	case "", history.OutcomeOK, history.OutcomeError:
	default:
		return history.Filter{}, fmt.Errorf("invalid outcome %q: must be ok or error", o.Outcome)
	}
	return f, nil
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	f, err := opts.filter()
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeGeneric, "invalid filter", err)
	}
	store, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	entries, err := store.List(cmd.Context(), f)
	if err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeHistory, "failed to list history", err)
	}

	if opts.Format == "json" {
		out := make([]HistoryEntry, len(entries))
		for i, e := range entries {
			out[i] = toHistoryEntry(e, false)
		}
		return opts.formatter(cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No queries recorded.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%5d  %s  %-10s  %-24s  %-5s  %s\n",
			e.Seq, e.ID, e.Shape, e.DataSource, e.Outcome, e.Duration.Round(time.Millisecond))
	}
	return nil
}

func runHistoryShow(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	store, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	e, err := store.Get(cmd.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		return opts.fail(cmd, ExitCommandError, ErrCodeNotFound, "unknown history entry", err)
	}
	if err != nil {
		return opts.fail(cmd, ExitFailure, ErrCodeHistory, "failed to read history", err)
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(toHistoryEntry(e, true))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "id:          %s\n", e.ID)
	fmt.Fprintf(w, "seq:         %d\n", e.Seq)
	fmt.Fprintf(w, "shape:       %s\n", e.Shape)
	fmt.Fprintf(w, "datasource:  %s\n", e.DataSource)
	fmt.Fprintf(w, "fingerprint: %s\n", e.Fingerprint)
	fmt.Fprintf(w, "outcome:     %s\n", e.Outcome)
	if e.Error != "" {
		fmt.Fprintf(w, "error:       %s\n", e.Error)
	}
	fmt.Fprintf(w, "duration:    %s\n", e.Duration.Round(time.Millisecond))
	if !e.RecordedAt.IsZero() {
		fmt.Fprintf(w, "recorded at: %s\n", e.RecordedAt.UTC().Format(time.RFC3339))
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(e.Request), "", "  "); err != nil {
		pretty.Reset()
		pretty.WriteString(e.Request)
	}
	fmt.Fprintf(w, "request:\n%s\n", pretty.String())
	return nil
}

func toHistoryEntry(e history.Entry, withRequest bool) HistoryEntry {
	out := HistoryEntry{
		ID:          e.ID,
		Seq:         e.Seq,
		Fingerprint: e.Fingerprint,
		Shape:       e.Shape,
		DataSource:  e.DataSource,
		Outcome:     string(e.Outcome),
		Error:       e.Error,
		DurationMS:  e.Duration.Milliseconds(),
	}
	if !e.RecordedAt.IsZero() {
		out.RecordedAt = e.RecordedAt.UTC().Format(time.RFC3339)
	}
	if withRequest && json.Valid([]byte(e.Request)) {
		out.Request = json.RawMessage(e.Request)
	}
	return out
}

func closeStore(store *history.Store) {
	if err := store.Close(); err != nil {
		slog.Error("error closing history", "error", err)
	}
}
