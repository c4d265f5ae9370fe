package timespec

import (
	"slices"
	"strings"
)

// Granularity is one of Druid's simple granularities.
type Granularity string

const (
	GranularityAll           Granularity = "all"
	GranularityNone          Granularity = "none"
	GranularitySecond        Granularity = "second"
	GranularityMinute        Granularity = "minute"
	GranularityFiveMinute    Granularity = "five_minute"
	GranularityTenMinute     Granularity = "ten_minute"
	GranularityFifteenMinute Granularity = "fifteen_minute"
	GranularityThirtyMinute  Granularity = "thirty_minute"
	GranularityHour          Granularity = "hour"
	GranularitySixHour       Granularity = "six_hour"
	GranularityDay           Granularity = "day"
	GranularityWeek          Granularity = "week"
	GranularityMonth         Granularity = "month"
	GranularityQuarter       Granularity = "quarter"
	GranularityYear          Granularity = "year"
)

// Granularities lists every accepted granularity.
var Granularities = []Granularity{
	GranularityAll,
	GranularityNone,
	GranularitySecond,
	GranularityMinute,
	GranularityFiveMinute,
	GranularityTenMinute,
	GranularityFifteenMinute,
	GranularityThirtyMinute,
	GranularityHour,
	GranularitySixHour,
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// ParseGranularity validates s against the enumerated set.
// Matching is case-insensitive.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Granularities, g) {
		return "", &Error{Input: s, Reason: "unknown granularity"}
	}
	return g, nil
}
