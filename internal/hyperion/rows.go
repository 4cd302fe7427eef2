package hyperion

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ChannelCount is the interleave stride: the instrument writes all four
// channels for every acquisition, in channel order.
const ChannelCount = 4

// DefaultDataRowThreshold is the line length, in bytes including a single
// "\n" terminator, above which a line is treated as a spectrum. Shorter
// non-blank lines are timestamps. A "\r\n" terminator counts as one byte.
const DefaultDataRowThreshold = 1000

// RawRecord is a file split into its header, spectra rows and timestamp
// lines, before any startup correction or deinterleaving.
type RawRecord struct {
	Header     Header
	Rows       [][]float32
	Timestamps []string

	rowLines []int // 1-based file line of each row
}

// Width returns the number of bins per row, 0 when there are no rows.
func (r *RawRecord) Width() int {
	if len(r.Rows) == 0 {
		return 0
	}
	return len(r.Rows[0])
}

// ParseRecord parses the header and classifies every following line as a
// data row, a timestamp or a blank line. A threshold <= 0 selects
// DefaultDataRowThreshold.
func ParseRecord(data []byte, threshold int) (*RawRecord, error) {
	if threshold <= 0 {
		threshold = DefaultDataRowThreshold
	}

	lines := splitLines(data)
	header, body, err := ParseHeader(lines)
	if err != nil {
		return nil, err
	}

	rec := &RawRecord{Header: header}
	firstBodyLine := header.DeclaredLines + 1
	for i, line := range body {
		lineNo := firstBodyLine + i
		switch {
		case lineLen(line) > threshold:
			row, err := parseDataRow(line, rec.Width())
			if err != nil {
				err.Row = len(rec.Rows)
				err.Line = lineNo
				return nil, err
			}
			rec.Rows = append(rec.Rows, row)
			rec.rowLines = append(rec.rowLines, lineNo)
		case trimEOL(line) == "":
		case len(rec.Rows) == 0 && isHeaderField(line):
			return nil, &MalformedHeaderError{
				Line:   lineNo,
				Reason: fmt.Sprintf("%q follows the %d declared header lines", trimEOL(line), header.DeclaredLines),
			}
		default:
			rec.Timestamps = append(rec.Timestamps, line)
		}
	}
	return rec, nil
}

// lineLen is the length of line with any line terminator counted as one byte.
func lineLen(line string) int {
	if strings.HasSuffix(line, "\n") {
		return len(trimEOL(line)) + 1
	}
	return len(line)
}

// parseDataRow parses one tab-separated spectrum. width is the expected field
// count, or 0 to accept any width. A single empty field after a trailing tab
// is ignored.
func parseDataRow(line string, width int) ([]float32, *MalformedDataRowError) {
	fields := strings.Split(trimEOL(line), "\t")
	if n := len(fields); n > 1 && strings.TrimSpace(fields[n-1]) == "" {
		fields = fields[:n-1]
	}
	if width > 0 && len(fields) != width {
		return nil, &MalformedDataRowError{
			Field:  -1,
			Reason: fmt.Sprintf("width %d differs from first row width %d", len(fields), width),
		}
	}

	row := make([]float32, len(fields))
	for j, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, &MalformedDataRowError{Field: j, Reason: "not a number", Err: err}
		}
		row[j] = float32(v)
	}
	return row, nil
}

// Deinterleave gathers rows r with r mod ChannelCount == c for every
// requested channel c, in order. It returns one [sample, bin] matrix per
// requested channel. rows must be non-empty, of equal width and a multiple of
// ChannelCount long.
func Deinterleave(rows [][]float32, channels []int) ([]*mat.Dense, error) {
	if err := validateChannels(channels); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &MalformedDataRowError{Field: -1, Reason: "no spectra rows"}
	}
	if len(rows)%ChannelCount != 0 {
		return nil, &MalformedDataRowError{
			Row:    len(rows),
			Field:  -1,
			Reason: fmt.Sprintf("row count %d is not a multiple of %d", len(rows), ChannelCount),
		}
	}

	samples := len(rows) / ChannelCount
	bins := len(rows[0])
	out := make([]*mat.Dense, len(channels))
	for i, c := range channels {
		data := make([]float64, 0, samples*bins)
		for s := 0; s < samples; s++ {
			row := rows[s*ChannelCount+c]
			if len(row) != bins {
				return nil, &MalformedDataRowError{
					Row:    s*ChannelCount + c,
					Field:  -1,
					Reason: fmt.Sprintf("width %d differs from first row width %d", len(row), bins),
				}
			}
			for _, v := range row {
				data = append(data, float64(v))
			}
		}
		out[i] = mat.NewDense(samples, bins, data)
	}
	return out, nil
}

func validateChannels(channels []int) error {
	var seen [ChannelCount]bool
	for _, c := range channels {
		if c < 0 || c >= ChannelCount {
			return &ChannelIndexError{Channel: c}
		}
		if seen[c] {
			return fmt.Errorf("channel %d requested more than once", c)
		}
		seen[c] = true
	}
	return nil
}

// splitLines splits data after every '\n', keeping the terminators. A final
// line without a terminator is kept as is.
func splitLines(data []byte) []string {
	parts := bytes.SplitAfter(data, []byte("\n"))
	if n := len(parts); n > 0 && len(parts[n-1]) == 0 {
		parts = parts[:n-1]
	}
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}
