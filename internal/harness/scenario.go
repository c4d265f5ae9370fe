package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/querydoc"
)

// Scenario is one query and its expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Query querydoc.Document `yaml:"query"`

	Expect Expect `yaml:"expect"`

	// Golden enables golden file comparison of the canonical request.
	Golden bool `yaml:"golden,omitempty"`
}

// Expect lists the checks run against the built request.
type Expect struct {
	Shape   string         `yaml:"shape,omitempty"`
	Present []string       `yaml:"present,omitempty"`
	Absent  []string       `yaml:"absent,omitempty"`
	Equals  map[string]any `yaml:"equals,omitempty"`

	// Error is the configuration error code the build must fail with.
	Error string `yaml:"error,omitempty"`
}

func (e Expect) empty() bool {
	return e.Shape == "" && len(e.Present) == 0 && len(e.Absent) == 0 && len(e.Equals) == 0 && e.Error == ""
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Query.Name == "" {
		scenario.Query.Name = scenario.Name
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Expect.empty() {
		return fmt.Errorf("expect must name at least one check")
	}
	if s.Expect.Shape != "" {
		if _, err := querydoc.ParseShape(s.Expect.Shape); err != nil {
			return fmt.Errorf("expect.shape: %w", err)
		}
	}
	if s.Expect.Error != "" {
		if len(s.Expect.Present) > 0 || len(s.Expect.Absent) > 0 || len(s.Expect.Equals) > 0 || s.Golden {
			return fmt.Errorf("expect.error cannot be combined with request checks")
		}
		if !slices.Contains(query.ErrorCodes, query.ErrorCode(s.Expect.Error)) {
			return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
		}
	}
	for i, p := range s.Expect.Present {
		if p == "" {
			return fmt.Errorf("expect.present[%d]: empty path", i)
		}
	}
	for i, p := range s.Expect.Absent {
		if p == "" {
			return fmt.Errorf("expect.absent[%d]: empty path", i)
		}
	}
	return nil
}
