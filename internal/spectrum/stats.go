package spectrum

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/hyperion/internal/hyperion"
)

// Options configures Compute.
type Options struct {
	CentroidRange IndexRange
	Degenerate    DegeneratePolicy
	Peak          PeakCalibration
}

// DefaultOptions returns the full centroid range, NaN propagation and the
// default peak calibration.
func DefaultOptions() Options {
	return Options{
		CentroidRange: FullRange,
		Degenerate:    PropagateNaN,
		Peak:          DefaultPeakCalibration,
	}
}

// Stats summarises one channel.
type Stats struct {
	// Std is the population standard deviation of each bin across samples.
	Std     []float64
	StdMean float64
	// CenterOfMass and PeakWavelength have one entry per sample.
	CenterOfMass   []float64
	PeakWavelength []float64
}

// Compute derives Stats for a [sample, bin] matrix and its wavelength axis.
func Compute(m mat.Matrix, wl []float64, opts Options) (*Stats, error) {
	_, cols := m.Dims()
	if len(wl) != cols {
		return nil, fmt.Errorf("%w: %d wavelengths, %d bins", ErrAxisMismatch, len(wl), cols)
	}

	std := StdDev(m)
	com, err := CentersOfMass(m, wl, opts.CentroidRange, opts.Degenerate)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Std:            std,
		StdMean:        Mean(std),
		CenterOfMass:   com,
		PeakWavelength: PeakWavelengths(m, opts.Peak),
	}, nil
}

// ChannelStats pairs a hardware channel with its statistics.
type ChannelStats struct {
	Channel int
	*Stats
}

// ForSpectra computes Stats for every selected channel of a loaded file, in
// selection order. Nothing is cached on the dataset.
func ForSpectra(s hyperion.Spectra, opts Options) ([]ChannelStats, error) {
	info := s.Info()
	series := s.Series()
	out := make([]ChannelStats, 0, len(series))
	for _, cs := range series {
		st, err := Compute(cs.Data, info.Wavelengths, opts)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", cs.Channel, err)
		}
		out = append(out, ChannelStats{Channel: cs.Channel, Stats: st})
	}
	return out, nil
}
