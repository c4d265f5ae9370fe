package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/wire"
)

// Result is the outcome of one scenario.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Shape is the built query's shape; empty when the build failed.
	Shape query.Shape `json:"shape,omitempty"`

	// Request is the canonical JSON request; nil when the build failed.
	Request []byte `json:"-"`

	// Errors describes each failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed expectation.
func (r *Result) AddError(err error) {
	r.Errors = append(r.Errors, err.Error())
	r.Pass = false
}

// Run builds the scenario's query and checks its expectations. The
// returned error is reserved for scenarios that cannot be evaluated at
// all; a query that fails to build is a failed result unless the
// scenario expects that failure.
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}
	doc := scenario.Query
	if doc.Name == "" {
		doc.Name = scenario.Name
	}

	result := NewResult()
	q, buildErr := doc.Build()

	if want := scenario.Expect.Error; want != "" {
		switch {
		case buildErr == nil:
			result.AddError(&AssertionError{
				Type:     "error",
				Expected: want,
				Actual:   fmt.Sprintf("built a %s query", q.Shape()),
			})
		case !query.HasCode(buildErr, query.ErrorCode(want)):
			result.AddError(&AssertionError{Type: "error", Expected: want, Actual: buildErr.Error()})
		}
		slog.Debug("scenario evaluated", "scenario", scenario.Name, "pass", result.Pass)
		return result, nil
	}

	if buildErr != nil {
		result.AddError(fmt.Errorf("build failed: %w", buildErr))
		return result, nil
	}

	req := q.Wire()
	canonical, err := wire.MarshalCanonical(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	result.Shape = q.Shape()
	result.Request = canonical

	for _, err := range check(scenario.Expect, q.Shape(), req) {
		result.AddError(err)
	}
	slog.Debug("scenario evaluated", "scenario", scenario.Name, "shape", q.Shape(), "pass", result.Pass)
	return result, nil
}

// RunAll runs each scenario in order. It stops at the first scenario
// that cannot be evaluated.
func RunAll(scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		r, err := Run(s)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}
