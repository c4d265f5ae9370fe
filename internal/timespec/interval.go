package timespec

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// WireLayout is the ISO-8601 layout used when rendering interval endpoints.
const WireLayout = "2006-01-02T15:04:05.000Z"

// Interval is a half-open time range [Start, Stop).
type Interval struct {
	start time.Time
	stop  time.Time
}

// NewInterval creates an interval from two instants.
// Stop must not be before start; an empty interval (start == stop) is allowed.
//
// Endpoints are widened to whole milliseconds, the precision of WireLayout:
// start is truncated and stop rounded up, so the interval always covers
// [start, stop).
func NewInterval(start, stop time.Time) (Interval, error) {
	if stop.Before(start) {
		return Interval{}, &Error{
			Input:  start.Format(time.RFC3339Nano) + "/" + stop.Format(time.RFC3339Nano),
			Reason: "stop is before start",
		}
	}
	return Interval{start: start.UTC().Truncate(time.Millisecond), stop: ceilMillisecond(stop.UTC())}, nil
}

func ceilMillisecond(t time.Time) time.Time {
	if down := t.Truncate(time.Millisecond); !down.Equal(t) {
		return down.Add(time.Millisecond)
	}
	return t
}

// ParseInterval parses two endpoint strings. Any format understood by
// dateparse is accepted (ISO-8601, RFC 1123, "2006-01-02", unix seconds or
// milliseconds, ...). Endpoints without a zone are read as UTC.
func ParseInterval(start, stop string) (Interval, error) {
	s, err := parseInstant(start)
	if err != nil {
		return Interval{}, &Error{Input: start, Reason: "invalid start", Err: err}
	}
	e, err := parseInstant(stop)
	if err != nil {
		return Interval{}, &Error{Input: stop, Reason: "invalid stop", Err: err}
	}
	return NewInterval(s, e)
}

// ParseIntervalString parses the "start/stop" notation Druid itself uses.
func ParseIntervalString(raw string) (Interval, error) {
	start, stop, ok := strings.Cut(raw, "/")
	if !ok {
		return Interval{}, &Error{Input: raw, Reason: `expected "start/stop"`}
	}
	return ParseInterval(start, stop)
}

func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	return dateparse.ParseIn(s, time.UTC)
}

// Start returns the inclusive start instant.
func (iv Interval) Start() time.Time { return iv.start }

// Stop returns the exclusive stop instant.
func (iv Interval) Stop() time.Time { return iv.stop }

// Contains reports whether t falls inside [Start, Stop).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.start) && t.Before(iv.stop)
}

// String renders the interval in Druid's "start/stop" notation.
func (iv Interval) String() string {
	return iv.start.Format(WireLayout) + "/" + iv.stop.Format(WireLayout)
}

// Error reports a malformed interval or granularity.
type Error struct {
	Input  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Reason, e.Input, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Reason, e.Input)
}

func (e *Error) Unwrap() error {
	return e.Err
}
