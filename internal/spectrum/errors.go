package spectrum

import (
	"errors"
	"fmt"
)

// DegenerateCentroidError reports a spectrum whose power sums to zero over the
// centroid range.
type DegenerateCentroidError struct {
	Sample     int
	Start, End int
}

func (e *DegenerateCentroidError) Error() string {
	return fmt.Sprintf("sample %d: zero total power over bins [%d,%d)", e.Sample, e.Start, e.End)
}

// RangeError reports an index range that does not fit the spectrum.
type RangeError struct {
	Start, End int
	Bins       int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("index range [%d,%d) invalid for %d bins", e.Start, e.End, e.Bins)
}

// ErrAxisMismatch is returned when the wavelength axis length differs from
// the number of bins.
var ErrAxisMismatch = errors.New("wavelength axis length does not match bin count")

// ErrZeroReference is returned by DetectionSignal when the reference
// spectrum has zero energy over the range.
var ErrZeroReference = errors.New("reference spectrum has zero energy")
