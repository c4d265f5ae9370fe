package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/querydoc"
	"github.com/roach88/druidq/internal/wire"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Compact bool // print canonical JSON on one line
}

// BuiltQuery is the build output for one document.
type BuiltQuery struct {
	Name        string          `json:"name"`
	Shape       query.Shape     `json:"shape,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Request     json.RawMessage `json:"request,omitempty"`
	Error       string          `json:"error,omitempty"`
	Codes       []string        `json:"codes,omitempty"`
}

// BuildResult is the JSON payload of the build command.
type BuildResult struct {
	Queries []BuiltQuery `json:"queries"`
	Built   int          `json:"built"`
	Failed  int          `json:"failed"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <queries> [name...]",
		Short: "Resolve and print native queries",
		Long: `Load query documents and print the resolved query type and canonical
JSON request of each.

<queries> is a CUE package directory (documents under "query: <name>:")
or a single YAML document. Names restrict the output to those queries.

Exit codes:
  0 - All queries built
  1 - One or more queries failed to build
  2 - Command error (bad path, unknown name, load failure)

Examples:
  druidq build ./queries
  druidq build ./queries top_pages --compact
  druidq build ./queries --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "print requests on a single line")

	return cmd
}

func runBuild(opts *BuildOptions, path string, names []string, cmd *cobra.Command) error {
	docs, err := loadDocuments(path)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeLoadFailed, "failed to load queries", err)
	}
	docs, err = selectDocuments(docs, names)
	if err != nil {
		return opts.fail(cmd, ExitCommandError, ErrCodeNotFound, "unknown query", err)
	}

	result := BuildResult{Queries: make([]BuiltQuery, 0, len(docs))}
	for _, doc := range docs {
		built := buildDocument(doc)
		if built.Error != "" {
			result.Failed++
		} else {
			result.Built++
		}
		result.Queries = append(result.Queries, built)
	}
	slog.Debug("queries built", "path", path, "built", result.Built, "failed", result.Failed)

	if opts.Format == "json" {
		if err := opts.formatter(cmd).Success(result); err != nil {
			return err
		}
	} else if err := writeBuildText(cmd, opts.Compact, result); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d queries failed to build", result.Failed, len(docs)))
	}
	return nil
}

func buildDocument(doc *querydoc.Document) BuiltQuery {
	out := BuiltQuery{Name: doc.Name}
	q, err := doc.Build()
	if err != nil {
		out.Error = err.Error()
		for _, code := range query.Codes(err) {
			out.Codes = append(out.Codes, string(code))
		}
		return out
	}

	req := q.Wire()
	canonical, err := wire.MarshalCanonical(req)
	if err != nil {
		out.Error = fmt.Sprintf("encode request: %v", err)
		return out
	}
	fingerprint, err := wire.Fingerprint(req)
	if err != nil {
		out.Error = fmt.Sprintf("fingerprint request: %v", err)
		return out
	}
	out.Shape = q.Shape()
	out.Fingerprint = fingerprint
	out.Request = canonical
	return out
}

func writeBuildText(cmd *cobra.Command, compact bool, result BuildResult) error {
	w := cmd.OutOrStdout()
	for _, q := range result.Queries {
		if q.Error != "" {
			fmt.Fprintf(w, "✗ %s\n", q.Name)
			fmt.Fprintf(w, "  %s\n", q.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s)\n", q.Name, q.Shape)
		body := []byte(q.Request)
		if !compact {
			var buf bytes.Buffer
			if err := json.Indent(&buf, body, "", "  "); err != nil {
				return fmt.Errorf("indent %s: %w", q.Name, err)
			}
			body = buf.Bytes()
		}
		fmt.Fprintf(w, "%s\n", body)
	}
	fmt.Fprintf(w, "\n%d built, %d failed\n", result.Built, result.Failed)
	return nil
}
