package spectrum

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/hyperion/internal/hyperion"
	"github.com/banshee-data/hyperion/internal/monitoring"
	"github.com/banshee-data/hyperion/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestCompute(t *testing.T) {
	m := mat.NewDense(2, 4, []float64{
		-10, -1, -30, -30,
		-30, -30, -1, -10,
	})
	wl := []float64{1550, 1550.5, 1551, 1551.5}

	st, err := Compute(m, wl, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 14.5, 14.5, 10}, st.Std)
	assert.Equal(t, 12.25, st.StdMean)
	assert.InDeltaSlice(t, []float64{1500.01, 1500.02}, st.PeakWavelength, 1e-9)

	// Power magnitudes are mirror images so the centroids mirror around 1550.75.
	require.Len(t, st.CenterOfMass, 2)
	assert.InDelta(t, 1550.75*2, st.CenterOfMass[0]+st.CenterOfMass[1], 1e-9)
}

func TestCompute_AxisMismatch(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{-1, -2, -3})
	_, err := Compute(m, []float64{1, 2}, DefaultOptions())
	assert.True(t, errors.Is(err, ErrAxisMismatch))
}

func TestCompute_DegeneratePolicy(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{-1, -1, 0, 0})
	wl := []float64{1500, 1501}

	st, err := Compute(m, wl, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(st.CenterOfMass[1]))

	opts := DefaultOptions()
	opts.Degenerate = FailOnDegenerate
	_, err = Compute(m, wl, opts)
	var degErr *DegenerateCentroidError
	require.ErrorAs(t, err, &degErr)
	assert.Equal(t, 1, degErr.Sample)
}

func TestForSpectra(t *testing.T) {
	// Every channel carries a single dip-free peak at a channel-specific bin.
	peakBin := func(channel int) int { return 10 + channel*5 }
	value := func(acq, channel, bin int) float32 {
		if bin == peakBin(channel) {
			return -1
		}
		return -40 - float32(acq)
	}
	f := testutil.NewHyperionFile(4, testutil.MinBins, time.Second, value)

	opts := hyperion.DefaultOptions()
	opts.Channels = []int{1, 3}
	spectra, err := hyperion.Parse(context.Background(), f.Bytes(), "mem", opts)
	require.NoError(t, err)

	all, err := ForSpectra(spectra, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, all, 2)

	for i, ch := range []int{1, 3} {
		cs := all[i]
		assert.Equal(t, ch, cs.Channel)
		assert.Len(t, cs.Std, testutil.MinBins)
		assert.Len(t, cs.CenterOfMass, 3)
		assert.Equal(t, 0.0, cs.Std[peakBin(ch)], "peak bin is constant across samples")
		for _, pw := range cs.PeakWavelength {
			assert.InDelta(t, DefaultPeakCalibration.Wavelength(peakBin(ch)), pw, 1e-9)
		}
	}
}

func TestForSpectra_Recomputed(t *testing.T) {
	f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
	spectra, err := hyperion.Parse(context.Background(), f.Bytes(), "mem", hyperion.DefaultOptions())
	require.NoError(t, err)

	first, err := ForSpectra(spectra, DefaultOptions())
	require.NoError(t, err)
	second, err := ForSpectra(spectra, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first[0].Std, second[0].Std)
	assert.NotSame(t, first[0].Stats, second[0].Stats)
}
