package spectrum

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// IndexRange selects bins [Start, End). Negative values count from the end
// and an End of 0 means the last bin inclusive, so the zero value is the full
// range.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FullRange selects every bin.
var FullRange = IndexRange{}

// Resolve returns absolute [start, end) bounds for a spectrum of n bins.
func (r IndexRange) Resolve(n int) (int, int, error) {
	start, end := r.Start, r.End
	if start < 0 {
		start += n
	}
	if end <= 0 {
		end += n
	}
	if start < 0 || end > n || start >= end {
		return 0, 0, &RangeError{Start: r.Start, End: r.End, Bins: n}
	}
	return start, end, nil
}

// DegeneratePolicy decides what CenterOfMass does with a zero denominator.
type DegeneratePolicy int

const (
	// PropagateNaN returns NaN for the affected sample.
	PropagateNaN DegeneratePolicy = iota
	// FailOnDegenerate returns a *DegenerateCentroidError.
	FailOnDegenerate
)

// PeakCalibration maps a bin index to a wavelength as
// index/BinsPerNm + OriginNm. It is independent of the header-derived axis.
type PeakCalibration struct {
	BinsPerNm float64 `json:"bins_per_nm"`
	OriginNm  float64 `json:"origin_nm"`
}

// DefaultPeakCalibration is the instrument's fixed 100 bins per nm from
// 1500 nm.
var DefaultPeakCalibration = PeakCalibration{BinsPerNm: 100, OriginNm: 1500}

// Wavelength converts a bin index.
func (c PeakCalibration) Wavelength(index int) float64 {
	return float64(index)/c.BinsPerNm + c.OriginNm
}

// StdDev returns the population standard deviation (ddof = 0) of every
// column of m, i.e. of every bin across samples.
func StdDev(m mat.Matrix) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		out[j] = stat.PopStdDev(col, nil)
	}
	return out
}

// Mean returns the arithmetic mean of x, NaN when x is empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// CenterOfMass returns sum(wl[i] * -p[i]) / sum(-p[i]) over rng.
// A zero denominator yields NaN, or a *DegenerateCentroidError with Sample 0
// under FailOnDegenerate.
func CenterOfMass(wl, p []float64, rng IndexRange, policy DegeneratePolicy) (float64, error) {
	if len(wl) != len(p) {
		return 0, ErrAxisMismatch
	}
	start, end, err := rng.Resolve(len(p))
	if err != nil {
		return 0, err
	}

	den := -floats.Sum(p[start:end])
	if den == 0 {
		if policy == FailOnDegenerate {
			return 0, &DegenerateCentroidError{Start: start, End: end}
		}
		return math.NaN(), nil
	}
	num := -floats.Dot(wl[start:end], p[start:end])
	return num / den, nil
}

// CentersOfMass applies CenterOfMass to every row of m.
func CentersOfMass(m mat.Matrix, wl []float64, rng IndexRange, policy DegeneratePolicy) ([]float64, error) {
	rows, cols := m.Dims()
	if len(wl) != cols {
		return nil, ErrAxisMismatch
	}
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		c, err := CenterOfMass(wl, row, rng, policy)
		if err != nil {
			if degErr, ok := err.(*DegenerateCentroidError); ok {
				degErr.Sample = i
			}
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// PeakWavelength returns the calibrated wavelength of the first maximum of p,
// NaN when p is empty.
func PeakWavelength(p []float64, cal PeakCalibration) float64 {
	if len(p) == 0 {
		return math.NaN()
	}
	return cal.Wavelength(floats.MaxIdx(p))
}

// PeakWavelengths applies PeakWavelength to every row of m.
func PeakWavelengths(m mat.Matrix, cal PeakCalibration) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		out[i] = PeakWavelength(row, cal)
	}
	return out
}

// DetectionSignal returns, for every sample, the dot product of its spectrum
// with sample 0 divided by sample 0's own energy, both over rng. A value
// drifting from 1 indicates the spectrum has moved away from the reference.
func DetectionSignal(m mat.Matrix, rng IndexRange) ([]float64, error) {
	rows, cols := m.Dims()
	start, end, err := rng.Resolve(cols)
	if err != nil {
		return nil, err
	}

	ref := mat.Row(nil, 0, m)[start:end]
	energy := floats.Dot(ref, ref)
	if energy == 0 {
		return nil, ErrZeroReference
	}

	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		out[i] = floats.Dot(ref, row[start:end]) / energy
	}
	return out, nil
}
