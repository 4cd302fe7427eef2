package hyperion

import "fmt"

// MalformedHeaderError reports a header that cannot be parsed or lacks a
// field required downstream.
type MalformedHeaderError struct {
	Line   int    // 1-based file line, 0 when the problem is a missing key
	Key    string // header key involved, if any
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("malformed header: key %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("malformed header line %d: %s", e.Line, e.Reason)
}

// MalformedDataRowError reports a spectrum row that cannot be parsed, has
// an inconsistent width, or leaves the rows misaligned with the channels.
type MalformedDataRowError struct {
	Row    int // 0-based index among data rows, before the startup discard
	Line   int // 1-based file line, 0 when not tied to a single line
	Field  int // 0-based field index, -1 when not field specific
	Reason string
	Err    error
}

func (e *MalformedDataRowError) Error() string {
	msg := fmt.Sprintf("malformed data row %d", e.Row)
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Field >= 0 {
		msg += fmt.Sprintf(" field %d", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedDataRowError) Unwrap() error { return e.Err }

// ChannelIndexError reports a requested channel outside [0, ChannelCount).
type ChannelIndexError struct {
	Channel int
}

func (e *ChannelIndexError) Error() string {
	return fmt.Sprintf("channel %d out of range [0,%d]", e.Channel, ChannelCount-1)
}

// TimestampFormatError reports a timestamp line that does not match
// TimestampLayout. Raw holds the offending text.
type TimestampFormatError struct {
	Index int // 0-based index among retained timestamps
	Raw   string
	Err   error
}

func (e *TimestampFormatError) Error() string {
	return fmt.Sprintf("timestamp %d %q: %v", e.Index, e.Raw, e.Err)
}

func (e *TimestampFormatError) Unwrap() error { return e.Err }

// SampleCountError reports fewer timestamps than retained samples.
type SampleCountError struct {
	Samples    int
	Timestamps int
}

func (e *SampleCountError) Error() string {
	return fmt.Sprintf("%d samples but only %d timestamps after startup discard", e.Samples, e.Timestamps)
}
