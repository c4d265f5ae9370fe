package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/roach88/druidq/internal/wire"
)

// TimeFormat formats a timestamp with a Joda-style pattern. Without a
// Format the ISO-8601 representation is produced.
type TimeFormat struct {
	Format      string
	TimeZone    string
	Locale      string
	Granularity string
	AsMillis    bool
}

func (TimeFormat) extractionFn() {}

func (TimeFormat) Type() string { return "timeFormat" }

func (f TimeFormat) Wire() wire.Object {
	obj := wire.NewObject(wire.P("type", wire.String(f.Type())))
	if f.Format != "" {
		obj["format"] = wire.String(f.Format)
	}
	if f.TimeZone != "" {
		obj["timeZone"] = wire.String(f.TimeZone)
	}
	if f.Locale != "" {
		obj["locale"] = wire.String(f.Locale)
	}
	if f.Granularity != "" {
		obj["granularity"] = wire.String(f.Granularity)
	}
	if f.AsMillis {
		obj["asMillis"] = wire.Bool(true)
	}
	return obj
}

func (f TimeFormat) Apply(value string) (string, error) {
	t, err := parseTimestamp(value, f.AsMillis)
	if err != nil {
		return "", fmt.Errorf("timeFormat extraction: %w", err)
	}
	if f.TimeZone != "" {
		loc, err := time.LoadLocation(f.TimeZone)
		if err != nil {
			return "", fmt.Errorf("timeFormat extraction: %w", err)
		}
		t = t.In(loc)
	}
	if f.Format == "" {
		return t.Format("2006-01-02T15:04:05.000Z07:00"), nil
	}
	return t.Format(JodaLayout(f.Format)), nil
}

// TimeParse re-formats a time string from TimeFormat into ResultFormat.
// Patterns are Joda-style unless Joda is false, in which case they are
// read as Go layouts.
type TimeParse struct {
	TimeFormat   string
	ResultFormat string
	Joda         bool
}

func (TimeParse) extractionFn() {}

func (TimeParse) Type() string { return "time" }

func (f TimeParse) Wire() wire.Object {
	return wire.NewObject(
		wire.P("type", wire.String(f.Type())),
		wire.P("timeFormat", wire.String(f.TimeFormat)),
		wire.P("resultFormat", wire.String(f.ResultFormat)),
		wire.P("joda", wire.Bool(f.Joda)),
	)
}

func (f TimeParse) Apply(value string) (string, error) {
	in, out := f.TimeFormat, f.ResultFormat
	if f.Joda {
		in, out = JodaLayout(in), JodaLayout(out)
	}
	var t time.Time
	var err error
	if in == "" {
		t, err = dateparse.ParseIn(value, time.UTC)
	} else {
		t, err = time.ParseInLocation(in, value, time.UTC)
	}
	if err != nil {
		// Druid passes unparseable values through unchanged.
		return value, nil
	}
	return t.Format(out), nil
}

// parseTimestamp accepts epoch milliseconds or any dateparse format.
func parseTimestamp(value string, millis bool) (time.Time, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && (millis || len(value) > 10) {
		return time.UnixMilli(ms).UTC(), nil
	}
	return dateparse.ParseIn(value, time.UTC)
}

// jodaTokens maps Joda pattern letters (by run length) to Go layout
// fragments. Longer runs are listed first.
var jodaTokens = []struct {
	joda  string
	gofmt string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"a", "PM"},
	{"ZZ", "-07:00"},
	{"Z", "-0700"},
	{"z", "MST"},
}

// JodaLayout translates a Joda-Time pattern into a Go time layout.
// Text in single quotes is copied literally; '' is a literal quote.
// Unknown letters are copied unchanged.
func JodaLayout(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end == 0 {
				b.WriteByte('\'')
				i += 2
				continue
			}
			if end < 0 {
				b.WriteString(pattern[i+1:])
				break
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, tok := range jodaTokens {
			if strings.HasPrefix(pattern[i:], tok.joda) {
				b.WriteString(tok.gofmt)
				i += len(tok.joda)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
