package hyperion

import (
	"strings"
	"time"
)

// TimestampLayout matches the instrument's "MM/DD/YYYY HH:MM:SS.ffffff"
// stamps. Fractional seconds of any precision are accepted by time.Parse.
const TimestampLayout = "1/2/2006 15:04:05"

// ParseTimestamps parses raw timestamp lines in order. Surrounding whitespace
// and line terminators are ignored. Times are interpreted as UTC.
func ParseTimestamps(raw []string) ([]time.Time, error) {
	out := make([]time.Time, len(raw))
	for i, r := range raw {
		t, err := time.Parse(TimestampLayout, strings.TrimSpace(r))
		if err != nil {
			return nil, &TimestampFormatError{Index: i, Raw: trimEOL(r), Err: err}
		}
		out[i] = t
	}
	return out, nil
}

// ElapsedSeconds returns the seconds from times[0] to each entry. Ordering is
// not checked; an out-of-order stamp yields a negative or decreasing value.
func ElapsedSeconds(times []time.Time) []float64 {
	out := make([]float64, len(times))
	if len(times) == 0 {
		return out
	}
	start := times[0]
	for i, t := range times {
		out[i] = t.Sub(start).Seconds()
	}
	return out
}

// NormalizeTimestamps parses raw and converts it to elapsed seconds.
func NormalizeTimestamps(raw []string) ([]time.Time, []float64, error) {
	times, err := ParseTimestamps(raw)
	if err != nil {
		return nil, nil, err
	}
	return times, ElapsedSeconds(times), nil
}
