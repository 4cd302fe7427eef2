package hyperion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hyperion/internal/fsutil"
	"github.com/banshee-data/hyperion/internal/monitoring"
	"github.com/banshee-data/hyperion/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func options(channels ...int) Options {
	o := DefaultOptions()
	o.Channels = channels
	return o
}

func TestParse_SingleChannel(t *testing.T) {
	const acquisitions = 4
	f := testutil.NewHyperionFile(acquisitions, testutil.MinBins, 500*time.Millisecond, testutil.Sentinel)

	spectra, err := Parse(context.Background(), f.Bytes(), "mem", options(2))
	require.NoError(t, err)

	ds, ok := spectra.(*SingleChannelDataset)
	require.True(t, ok, "expected *SingleChannelDataset, got %T", spectra)

	totalRows := acquisitions * ChannelCount
	wantSamples := (totalRows - 4) / 4
	assert.Equal(t, wantSamples, ds.NumSamples())
	assert.Equal(t, testutil.MinBins, ds.NumBins())

	r, c := ds.Data.Dims()
	assert.Equal(t, wantSamples, r)
	assert.Equal(t, testutil.MinBins, c)

	// The first acquisition is dropped, so sample s is acquisition s+1.
	for s := 0; s < wantSamples; s++ {
		assert.Equal(t, float64(testutil.Sentinel(s+1, 2, 3)), ds.Data.At(s, 3), "sample %d", s)
	}

	assert.Equal(t, []float64{0, 0.5, 1.0}, ds.Time)
	assert.Equal(t, 2, ds.Channel)
	assert.Equal(t, []int{2}, ds.Channels)
	assert.Equal(t, "mem", ds.Source)

	series := ds.Series()
	require.Len(t, series, 1)
	assert.Equal(t, 2, series[0].Channel)
	assert.Same(t, ds.Data, series[0].Data)
	assert.Same(t, ds.Dataset, spectra.Info())
}

func TestParse_MultiChannel(t *testing.T) {
	f := testutil.NewHyperionFile(6, testutil.MinBins, time.Second, testutil.Sentinel)

	spectra, err := Parse(context.Background(), f.Bytes(), "mem", options(3, 1))
	require.NoError(t, err)

	ds, ok := spectra.(*MultiChannelDataset)
	require.True(t, ok, "expected *MultiChannelDataset, got %T", spectra)
	require.Len(t, ds.Data, 2)

	for i, ch := range []int{3, 1} {
		r, _ := ds.Data[i].Dims()
		assert.Equal(t, 5, r)
		assert.Equal(t, float64(testutil.Sentinel(1, ch, 0)), ds.Data[i].At(0, 0))
		assert.Equal(t, float64(testutil.Sentinel(5, ch, 9)), ds.Data[i].At(4, 9))
	}

	m, ok := ds.ChannelData(1)
	require.True(t, ok)
	assert.Same(t, ds.Data[1], m)
	_, ok = ds.ChannelData(0)
	assert.False(t, ok)

	got := make([]int, 0, 2)
	for _, s := range ds.Series() {
		got = append(got, s.Channel)
	}
	assert.Equal(t, []int{3, 1}, got)
}

func TestParse_WavelengthAxis(t *testing.T) {
	f := testutil.NewHyperionFile(2, 100, time.Second, testutil.Sentinel)

	spectra, err := Parse(context.Background(), f.Bytes(), "mem", DefaultOptions())
	require.NoError(t, err)
	ds := spectra.Info()

	require.Len(t, ds.Wavelengths, 100)
	assert.Equal(t, testutil.DefaultWavelengthStart, ds.MinWavelength())
	assert.Equal(t, ds.MinWavelength(), ds.Wavelengths[0])
	assert.InDelta(t, ds.MaxWavelength(), ds.Wavelengths[99], testutil.DefaultWavelengthDelta)
	assert.InDelta(t, 1501.0, ds.MaxWavelength(), 1e-9)
	assert.Equal(t, 100, ds.Header.NumberOfPoints)
}

func TestParse_EmptyChannelsSelectsZero(t *testing.T) {
	f := testutil.NewHyperionFile(2, testutil.MinBins, time.Second, testutil.Sentinel)

	spectra, err := Parse(context.Background(), f.Bytes(), "mem", options())
	require.NoError(t, err)
	ds, ok := spectra.(*SingleChannelDataset)
	require.True(t, ok)
	assert.Equal(t, 0, ds.Channel)
}

func TestParse_StartupCorrectionOverride(t *testing.T) {
	f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)

	opts := DefaultOptions()
	opts.StartupDataRows = 0
	opts.StartupTimestamps = 0
	spectra, err := Parse(context.Background(), f.Bytes(), "mem", opts)
	require.NoError(t, err)

	ds := spectra.(*SingleChannelDataset)
	assert.Equal(t, 3, ds.NumSamples())
	assert.Equal(t, float64(testutil.Sentinel(0, 0, 0)), ds.Data.At(0, 0))
}

func TestParse_TrailingTimestampIgnored(t *testing.T) {
	f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
	data := f.String() + testutil.FormatTimestamp(testutil.DefaultStart.Add(3*time.Second)) + "\n"

	spectra, err := Parse(context.Background(), []byte(data), "mem", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, spectra.Info().Time)
}

func TestParse_Errors(t *testing.T) {
	valid := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)

	tests := []struct {
		name   string
		data   func() string
		opts   Options
		target any
	}{
		{
			name: "declared header count exceeds file",
			data: func() string {
				return "40\nWavelength Start (nm):1500\nWavelength Delta (nm):0.01\n"
			},
			opts:   DefaultOptions(),
			target: new(*MalformedHeaderError),
		},
		{
			name: "missing wavelength start",
			data: func() string {
				f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
				f.HeaderLines = []string{"Wavelength Delta (nm):0.01"}
				return f.String()
			},
			opts:   DefaultOptions(),
			target: new(*MalformedHeaderError),
		},
		{
			name:   "channel out of range",
			data:   valid.String,
			opts:   options(0, 4),
			target: new(*ChannelIndexError),
		},
		{
			name: "bad timestamp",
			data: func() string {
				f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
				f.Acquisitions[2].Timestamp = "yesterday afternoon"
				return f.String()
			},
			opts:   DefaultOptions(),
			target: new(*TimestampFormatError),
		},
		{
			name: "malformed line after last spectrum",
			data: func() string {
				f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
				return f.String() + "not a timestamp\n"
			},
			opts:   DefaultOptions(),
			target: new(*TimestampFormatError),
		},
		{
			name: "declared header count one short",
			data: func() string {
				f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
				f.DeclaredLines = len(f.HeaderLines) - 1
				return f.String()
			},
			opts:   DefaultOptions(),
			target: new(*MalformedHeaderError),
		},
		{
			name: "only startup acquisition",
			data: func() string {
				return testutil.NewHyperionFile(1, testutil.MinBins, time.Second, testutil.Sentinel).String()
			},
			opts:   DefaultOptions(),
			target: new(*MalformedDataRowError),
		},
		{
			name: "partial acquisition",
			data: func() string {
				f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
				return f.String() + testutil.FormatRow(f.Acquisitions[0].Rows[0]) + "\n"
			},
			opts:   DefaultOptions(),
			target: new(*MalformedDataRowError),
		},
		{
			name: "missing timestamps",
			data: func() string {
				f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
				f.Acquisitions[2].Timestamp = ""
				return f.String()
			},
			opts:   DefaultOptions(),
			target: new(*SampleCountError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spectra, err := Parse(context.Background(), []byte(tt.data()), "mem", tt.opts)
			require.Error(t, err)
			assert.Nil(t, spectra, "no partial dataset may be returned")
			assert.True(t, errors.As(err, tt.target), "error %v (%T) is not %T", err, err, tt.target)
		})
	}
}

func TestParse_DuplicateChannels(t *testing.T) {
	f := testutil.NewHyperionFile(3, testutil.MinBins, time.Second, testutil.Sentinel)
	spectra, err := Parse(context.Background(), f.Bytes(), "mem", options(2, 2))
	require.Error(t, err)
	assert.Nil(t, spectra)
	assert.Contains(t, err.Error(), "more than once")
}

func TestParse_InvalidStartupRows(t *testing.T) {
	opts := DefaultOptions()
	opts.StartupDataRows = 3
	_, err := Parse(context.Background(), nil, "mem", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of 4")
}

func TestParse_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := testutil.NewHyperionFile(2, testutil.MinBins, time.Second, testutil.Sentinel)
	_, err := Parse(ctx, f.Bytes(), "mem", DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_FromFileSystem(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	f := testutil.NewHyperionFile(3, testutil.MinBins, 250*time.Millisecond, testutil.Sentinel)
	mfs.WriteFile("/data/2020/11/Responses.05.txt", f.Bytes(), time.Now())

	spectra, err := Load(context.Background(), mfs, "/data/2020/11/Responses.05.txt", options(0, 1, 2, 3))
	require.NoError(t, err)

	ds := spectra.(*MultiChannelDataset)
	assert.Equal(t, "/data/2020/11/Responses.05.txt", ds.Source)
	assert.Len(t, ds.Data, 4)
	assert.Equal(t, []float64{0, 0.25}, ds.Time)
}

func TestLoad_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	_, err := Load(context.Background(), mfs, "/missing.txt", DefaultOptions())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	mfs.WriteFile("/bad.txt", []byte("3\nonly one line\n"), time.Now())
	_, err = Load(context.Background(), mfs, "/bad.txt", DefaultOptions())
	var hdrErr *MalformedHeaderError
	require.ErrorAs(t, err, &hdrErr)
	assert.True(t, strings.HasPrefix(err.Error(), "load /bad.txt: "), err.Error())
}

func TestDataset_Annotations(t *testing.T) {
	f := testutil.NewHyperionFile(2, testutil.MinBins, time.Second, testutil.Sentinel)
	spectra, err := Parse(context.Background(), f.Bytes(), "mem", DefaultOptions())
	require.NoError(t, err)
	ds := spectra.Info()

	_, ok := ds.Annotation("temperature_c")
	assert.False(t, ok)

	ds.Annotate("temperature_c", 41.5)
	ds.Annotate("state", "heating")

	v, ok := ds.Annotation("temperature_c")
	require.True(t, ok)
	assert.Equal(t, 41.5, v)

	all := ds.Annotations()
	if diff := cmp.Diff(map[string]any{"temperature_c": 41.5, "state": "heating"}, all); diff != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", diff)
	}
	all["state"] = "mutated"
	v, _ = ds.Annotation("state")
	assert.Equal(t, "heating", v)
}

func TestParse_SampleCountProperty(t *testing.T) {
	for acquisitions := 2; acquisitions <= 8; acquisitions++ {
		t.Run(fmt.Sprintf("%d acquisitions", acquisitions), func(t *testing.T) {
			f := testutil.NewHyperionFile(acquisitions, testutil.MinBins, time.Second, testutil.Sentinel)
			spectra, err := Parse(context.Background(), f.Bytes(), "mem", options(0, 1))
			require.NoError(t, err)

			totalRows := acquisitions * ChannelCount
			for _, s := range spectra.Series() {
				r, _ := s.Data.Dims()
				assert.Equal(t, (totalRows-4)/4, r)
			}
			assert.Equal(t, (totalRows-4)/4, spectra.Info().NumSamples())
		})
	}
}
