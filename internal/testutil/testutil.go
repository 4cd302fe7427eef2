// Package testutil provides shared test utilities and fixtures.
//
// It centralises the synthetic instrument files used across the loader,
// statistics, plotting and CLI tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Fixture defaults.
const (
	DefaultWavelengthStart = 1500.0
	DefaultWavelengthDelta = 0.01
	// MinBins keeps every formatted row above the loader's 1000-byte
	// data row threshold.
	MinBins = 70
)

// DefaultStart is the timestamp of the first acquisition in generated files.
var DefaultStart = time.Date(2020, time.November, 5, 15, 23, 36, 0, time.UTC)

// Acquisition is one timestamp followed by one row per hardware channel.
type Acquisition struct {
	Timestamp string
	Rows      [4][]float32
}

// HyperionFile describes an instrument output file to generate.
type HyperionFile struct {
	// HeaderLines are written after the line count, verbatim.
	HeaderLines  []string
	Acquisitions []Acquisition
	// DeclaredLines overrides the computed header line count when non-zero.
	DeclaredLines int
	CRLF          bool
}

// NewHyperionFile builds a file with a default header, acquisitions
// acquisitions spaced step apart starting at DefaultStart, and bins values per
// row produced by value. The first acquisition is the one the loader drops.
func NewHyperionFile(acquisitions, bins int, step time.Duration, value func(acq, channel, bin int) float32) *HyperionFile {
	f := &HyperionFile{
		HeaderLines: []string{
			"Instrument:si155",
			"Serial Number:HYP-0001",
			fmt.Sprintf("Wavelength Start (nm):%f", DefaultWavelengthStart),
			fmt.Sprintf("Wavelength Delta (nm):%f", DefaultWavelengthDelta),
			fmt.Sprintf("Number of Points:%d", bins),
			"",
		},
	}
	for a := 0; a < acquisitions; a++ {
		acq := Acquisition{Timestamp: FormatTimestamp(DefaultStart.Add(time.Duration(a) * step))}
		for c := 0; c < 4; c++ {
			row := make([]float32, bins)
			for b := range row {
				row[b] = value(a, c, b)
			}
			acq.Rows[c] = row
		}
		f.Acquisitions = append(f.Acquisitions, acq)
	}
	return f
}

// FormatTimestamp renders t the way the instrument does.
func FormatTimestamp(t time.Time) string {
	return t.Format("01/02/2006 15:04:05.000000")
}

// String renders the file.
func (f *HyperionFile) String() string {
	eol := "\n"
	if f.CRLF {
		eol = "\r\n"
	}

	var b strings.Builder
	declared := f.DeclaredLines
	if declared == 0 {
		declared = len(f.HeaderLines) + 1
	}
	fmt.Fprintf(&b, "%d%s", declared, eol)
	for _, h := range f.HeaderLines {
		b.WriteString(h)
		b.WriteString(eol)
	}
	for _, acq := range f.Acquisitions {
		b.WriteString(acq.Timestamp)
		b.WriteString(eol)
		for _, row := range acq.Rows {
			b.WriteString(FormatRow(row))
			b.WriteString(eol)
		}
		b.WriteString(eol)
	}
	return b.String()
}

// Bytes renders the file.
func (f *HyperionFile) Bytes() []byte {
	return []byte(f.String())
}

// FormatRow renders one spectrum as padded tab-separated values.
func FormatRow(row []float32) string {
	fields := make([]string, len(row))
	for i, v := range row {
		fields[i] = fmt.Sprintf("%14.6f", v)
	}
	return strings.Join(fields, "\t")
}

// Sentinel encodes an acquisition, channel and bin into a value that
// survives float32 round trips, for checking deinterleave order.
func Sentinel(acq, channel, bin int) float32 {
	return float32(acq*1000 + channel*100 + bin%100)
}
