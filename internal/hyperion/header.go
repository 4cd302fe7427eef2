package hyperion

import (
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Header keys consumed when building the wavelength axis.
const (
	KeyWavelengthStart = "Wavelength Start (nm)"
	KeyWavelengthDelta = "Wavelength Delta (nm)"
	KeyNumberOfPoints  = "Number of Points"
)

// Header is the parsed file header. Fields holds every key/value pair; the
// wavelength fields are resolved from it by BuildWavelengthAxis.
type Header struct {
	DeclaredLines int
	Text          string
	Fields        map[string]string

	WavelengthStart float64
	WavelengthDelta float64
	// NumberOfPoints is the instrument's advertised bin count, 0 if absent.
	NumberOfPoints int
}

// Get returns the value stored under key.
func (h *Header) Get(key string) (string, bool) {
	v, ok := h.Fields[key]
	return v, ok
}

func (h *Header) float(key string) (float64, error) {
	raw, ok := h.Fields[key]
	if !ok {
		return 0, &MalformedHeaderError{Key: key, Reason: "required key missing"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &MalformedHeaderError{Key: key, Reason: "value " + strconv.Quote(raw) + " is not a number"}
	}
	return v, nil
}

// ParseHeader consumes the header from lines, which keep their line
// terminators. It returns the header and the lines that follow it.
//
// The first line holds the declared header line count H, including itself.
// Each of the next H-1 lines is split on its first colon; blank lines are
// kept in Text but not in Fields.
func ParseHeader(lines []string) (Header, []string, error) {
	if len(lines) == 0 {
		return Header{}, nil, &MalformedHeaderError{Line: 1, Reason: "empty file"}
	}

	first := strings.TrimSpace(lines[0])
	declared, err := strconv.Atoi(first)
	if err != nil || declared < 1 {
		return Header{}, nil, &MalformedHeaderError{Line: 1, Reason: "header line count " + strconv.Quote(first) + " is not a positive integer"}
	}
	if len(lines) < declared {
		return Header{}, nil, &MalformedHeaderError{
			Line:   len(lines) + 1,
			Reason: "declared " + strconv.Itoa(declared) + " header lines but file has " + strconv.Itoa(len(lines)),
		}
	}

	h := Header{DeclaredLines: declared, Fields: make(map[string]string)}
	var text strings.Builder
	for i := 1; i < declared; i++ {
		raw := lines[i]
		text.WriteString(raw)

		content := trimEOL(raw)
		if len(raw) <= 1 || content == "" {
			continue
		}
		idx := strings.IndexByte(content, ':')
		if idx < 0 {
			return Header{}, nil, &MalformedHeaderError{Line: i + 1, Reason: "missing ':' separator"}
		}
		key := strings.TrimSpace(content[:idx])
		h.Fields[key] = strings.TrimSpace(content[idx+1:])
	}
	h.Text = text.String()

	if raw, ok := h.Fields[KeyNumberOfPoints]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			h.NumberOfPoints = n
		}
	}

	return h, lines[declared:], nil
}

// BuildWavelengthAxis resolves the required wavelength keys and returns bins
// linearly spaced values from WavelengthStart to
// WavelengthStart + WavelengthDelta*bins inclusive.
func BuildWavelengthAxis(h *Header, bins int) ([]float64, error) {
	start, err := h.float(KeyWavelengthStart)
	if err != nil {
		return nil, err
	}
	delta, err := h.float(KeyWavelengthDelta)
	if err != nil {
		return nil, err
	}
	if delta <= 0 {
		return nil, &MalformedHeaderError{Key: KeyWavelengthDelta, Reason: "must be positive"}
	}
	h.WavelengthStart = start
	h.WavelengthDelta = delta

	axis := make([]float64, bins)
	switch {
	case bins == 1:
		axis[0] = start
	case bins > 1:
		floats.Span(axis, start, start+delta*float64(bins))
	}
	return axis, nil
}

// trimEOL strips a trailing "\n" or "\r\n".
func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// isHeaderField reports whether a short body line is a "key:value" pair
// rather than a timestamp. Timestamp keys always contain a date separator.
func isHeaderField(line string) bool {
	content := strings.TrimSpace(trimEOL(line))
	idx := strings.IndexByte(content, ':')
	if idx <= 0 || strings.ContainsRune(content[:idx], '/') {
		return false
	}
	_, err := time.Parse(TimestampLayout, content)
	return err != nil
}
