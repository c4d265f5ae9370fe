package harness

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/druidq/internal/query"
	"github.com/roach88/druidq/internal/querydoc"
	"github.com/roach88/druidq/internal/wire"
)

// AssertionError is one failed expectation.
type AssertionError struct {
	Type     string
	Path     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: expected %s, got %s", e.Type, e.Path, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// check runs every request expectation and returns the failures.
func check(expect Expect, shape query.Shape, req wire.Object) []error {
	var errs []error

	if expect.Shape != "" {
		want, _ := querydoc.ParseShape(expect.Shape)
		if want != shape {
			errs = append(errs, &AssertionError{Type: "shape", Expected: string(want), Actual: string(shape)})
		}
	}
	for _, path := range expect.Present {
		if _, ok := lookup(req, path); !ok {
			errs = append(errs, &AssertionError{Type: "present", Path: path, Expected: "a value", Actual: "nothing"})
		}
	}
	for _, path := range expect.Absent {
		if v, ok := lookup(req, path); ok {
			errs = append(errs, &AssertionError{Type: "absent", Path: path, Expected: "nothing", Actual: render(v)})
		}
	}
	for _, path := range slices.Sorted(maps.Keys(expect.Equals)) {
		if err := assertEquals(req, path, expect.Equals[path]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func assertEquals(req wire.Object, path string, expected any) error {
	want, err := wire.FromGo(expected)
	if err != nil {
		return &AssertionError{Type: "equals", Path: path, Expected: fmt.Sprintf("%v", expected), Actual: err.Error()}
	}
	got, ok := lookup(req, path)
	if !ok {
		return &AssertionError{Type: "equals", Path: path, Expected: render(want), Actual: "nothing"}
	}
	wantJSON, err := wire.MarshalCanonical(want)
	if err != nil {
		return &AssertionError{Type: "equals", Path: path, Expected: fmt.Sprintf("%v", expected), Actual: err.Error()}
	}
	gotJSON, err := wire.MarshalCanonical(got)
	if err != nil {
		return &AssertionError{Type: "equals", Path: path, Expected: string(wantJSON), Actual: err.Error()}
	}
	if !bytes.Equal(wantJSON, gotJSON) {
		return &AssertionError{Type: "equals", Path: path, Expected: string(wantJSON), Actual: string(gotJSON)}
	}
	return nil
}

// lookup follows a dotted path. Numeric segments index arrays.
func lookup(v wire.Value, path string) (wire.Value, bool) {
	for _, seg := range strings.Split(path, ".") {
		switch cur := v.(type) {
		case wire.Object:
			next, ok := cur[seg]
			if !ok {
				return nil, false
			}
			v = next
		case wire.Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(cur) {
				return nil, false
			}
			v = cur[i]
		default:
			return nil, false
		}
	}
	return v, true
}

func render(v wire.Value) string {
	data, err := wire.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
