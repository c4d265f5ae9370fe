package extraction

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/druidq/internal/wire"
)

// ErrNotEvaluable is returned by Apply for functions that only the server
// can evaluate.
var ErrNotEvaluable = errors.New("extraction function cannot be evaluated locally")

// Function is a single extraction step or a cascade of steps.
//
// This is a sealed interface - only types in this package implement it.
type Function interface {
	// Type returns the Druid "type" discriminator.
	Type() string
	// Wire renders the function's JSON object.
	Wire() wire.Object
	// Apply evaluates the function on a single value.
	Apply(value string) (string, error)

	extractionFn()
}

// Substring returns Length runes starting at Index. A zero Length means
// "until the end of the value".
type Substring struct {
	Index  int
	Length int
}

func (Substring) extractionFn() {}

func (Substring) Type() string { return "substring" }

func (f Substring) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("index", wire.Int(f.Index)),
	)
	if f.Length > 0 {
		obj["length"] = wire.Int(f.Length)
	}
	return obj
}

func (f Substring) Apply(value string) (string, error) {
	runes := []rune(value)
	if f.Index < 0 || f.Index >= len(runes) {
		return "", nil
	}
	end := len(runes)
	if f.Length > 0 && f.Index+f.Length < end {
		end = f.Index + f.Length
	}
	return string(runes[f.Index:end]), nil
}

// Upper upper-cases the value, optionally using a locale's rules.
type Upper struct {
	Locale string
}

func (Upper) extractionFn() {}

func (Upper) Type() string { return "upper" }

func (f Upper) Wire() wire.Object {
	obj := wire.NewObject(wire.P("type", wire.String(f.Type())))
	if f.Locale != "" {
		obj["locale"] = wire.String(f.Locale)
	}
	return obj
}

func (f Upper) Apply(value string) (string, error) {
	return cases.Upper(localeTag(f.Locale)).String(value), nil
}

// Lower lower-cases the value, optionally using a locale's rules.
type Lower struct {
	Locale string
}

func (Lower) extractionFn() {}

func (Lower) Type() string { return "lower" }

func (f Lower) Wire() wire.Object {
	obj := wire.NewObject(wire.P("type", wire.String(f.Type())))
	if f.Locale != "" {
		obj["locale"] = wire.String(f.Locale)
	}
	return obj
}

func (f Lower) Apply(value string) (string, error) {
	return cases.Lower(localeTag(f.Locale)).String(value), nil
}

func localeTag(locale string) language.Tag {
	if locale == "" {
		return language.Und
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und
	}
	return tag
}

// NullHandling controls how StringFormat treats missing values.
type NullHandling string

const (
	NullString  NullHandling = "nullString"
	EmptyString NullHandling = "emptyString"
	ReturnNull  NullHandling = "returnNull"
)

// StringFormat formats the value with a printf-style pattern.
type StringFormat struct {
	Format       string
	NullHandling NullHandling
}

func (StringFormat) extractionFn() {}

func (StringFormat) Type() string { return "stringFormat" }

func (f StringFormat) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("format", wire.String(f.Format)),
	)
	if f.NullHandling != "" {
		obj["nullHandling"] = wire.String(string(f.NullHandling))
	}
	return obj
}

func (f StringFormat) Apply(value string) (string, error) {
	return fmt.Sprintf(f.Format, value), nil
}

// Strlen replaces the value with its length in characters.
type Strlen struct{}

func (Strlen) extractionFn() {}

func (Strlen) Type() string { return "strlen" }

func (f Strlen) Wire() wire.Object {
	return wire.NewObject(wire.P("type", wire.String(f.Type())))
}

func (Strlen) Apply(value string) (string, error) {
	return strconv.Itoa(utf8.RuneCountInString(value)), nil
}

// Regex returns the Index-th capture group of the first match of Expr.
// Non-matching values are kept when ReplaceMissingValue is false and
// replaced with ReplaceMissingValueWith otherwise.
type Regex struct {
	Expr                    string
	Index                   int
	ReplaceMissingValue     bool
	ReplaceMissingValueWith string
}

func (Regex) extractionFn() {}

func (Regex) Type() string { return "regex" }

func (f Regex) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("expr", wire.String(f.Expr)),
		wire.P("index", wire.Int(f.group())),
	)
	if f.ReplaceMissingValue {
		obj["replaceMissingValue"] = wire.Bool(true)
		obj["replaceMissingValueWith"] = wire.String(f.ReplaceMissingValueWith)
	}
	return obj
}

func (f Regex) group() int {
	if f.Index == 0 {
		return 1
	}
	return f.Index
}

func (f Regex) Apply(value string) (string, error) {
	re, err := regexp.Compile(f.Expr)
	if err != nil {
		return "", fmt.Errorf("regex extraction: %w", err)
	}
	m := re.FindStringSubmatch(value)
	if m == nil || f.group() >= len(m) {
		if f.ReplaceMissingValue {
			return f.ReplaceMissingValueWith, nil
		}
		return value, nil
	}
	return m[f.group()], nil
}

// Partial keeps values matching Expr and nulls out the rest.
type Partial struct {
	Expr string
}

func (Partial) extractionFn() {}

func (Partial) Type() string { return "partial" }

func (f Partial) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("expr", wire.String(f.Expr)),
	)
}

func (f Partial) Apply(value string) (string, error) {
	re, err := regexp.Compile(f.Expr)
	if err != nil {
		return "", fmt.Errorf("partial extraction: %w", err)
	}
	if re.MatchString(value) {
		return value, nil
	}
	return "", nil
}

// SearchQuery keeps values that contain Value and nulls out the rest.
type SearchQuery struct {
	Value         string
	CaseSensitive bool
}

func (SearchQuery) extractionFn() {}

func (SearchQuery) Type() string { return "searchQuery" }

func (f SearchQuery) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("query", wire.NewObject(
			wire.P("type", wire.String("contains")),
			wire.P("value", wire.String(f.Value)),
			wire.P("caseSensitive", wire.Bool(f.CaseSensitive)),
		)),
	)
}

func (f SearchQuery) Apply(value string) (string, error) {
	haystack, needle := value, f.Value
	if !f.CaseSensitive {
		haystack, needle = strings.ToLower(haystack), strings.ToLower(needle)
	}
	if strings.Contains(haystack, needle) {
		return value, nil
	}
	return "", nil
}

// Bucket maps numeric values onto buckets of Size starting at Offset.
type Bucket struct {
	Size   float64
	Offset float64
}

func (Bucket) extractionFn() {}

func (Bucket) Type() string { return "bucket" }

func (f Bucket) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("size", numeric(f.size())),
		wire.P("offset", numeric(f.Offset)),
	)
}

func (f Bucket) size() float64 {
	if f.Size == 0 {
		return 1
	}
	return f.Size
}

func (f Bucket) Apply(value string) (string, error) {
	x, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", nil
	}
	b := math.Floor((x-f.Offset)/f.size())*f.size() + f.Offset
	return strconv.FormatFloat(b, 'f', -1, 64), nil
}

func numeric(f float64) wire.Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return wire.Int(int64(f))
	}
	return wire.Float(f)
}

// JavaScript runs a server-side javascript function.
type JavaScript struct {
	Function  string
	Injective bool
}

func (JavaScript) extractionFn() {}

func (JavaScript) Type() string { return "javascript" }

func (f JavaScript) Wire() wire.Object {
	obj := wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("function", wire.String(f.Function)),
	)
	if f.Injective {
		obj["injective"] = wire.Bool(true)
	}
	return obj
}

func (JavaScript) Apply(string) (string, error) {
	return "", ErrNotEvaluable
}
