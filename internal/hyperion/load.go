package hyperion

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/hyperion/internal/fsutil"
	"github.com/banshee-data/hyperion/internal/monitoring"
)

// Startup correction defaults. The first acquisition of every file is
// unreliable, so its four rows and its timestamp are dropped. The values are
// empirical.
const (
	DefaultStartupDataRows   = ChannelCount
	DefaultStartupTimestamps = 1
)

// Options controls how a file is loaded. Start from DefaultOptions; a zero
// StartupDataRows or StartupTimestamps disables that part of the correction.
type Options struct {
	// Channels lists the hardware channels to extract, in output order.
	// Empty selects channel 0.
	Channels []int

	StartupDataRows   int
	StartupTimestamps int

	// DataRowThreshold <= 0 selects DefaultDataRowThreshold.
	DataRowThreshold int
}

// DefaultOptions returns the loader settings matching the instrument.
func DefaultOptions() Options {
	return Options{
		Channels:          []int{0},
		StartupDataRows:   DefaultStartupDataRows,
		StartupTimestamps: DefaultStartupTimestamps,
		DataRowThreshold:  DefaultDataRowThreshold,
	}
}

func (o Options) validate() error {
	if err := validateChannels(o.Channels); err != nil {
		return err
	}
	if o.StartupDataRows < 0 || o.StartupDataRows%ChannelCount != 0 {
		return fmt.Errorf("startup data rows %d must be a non-negative multiple of %d", o.StartupDataRows, ChannelCount)
	}
	if o.StartupTimestamps < 0 {
		return fmt.Errorf("startup timestamps %d must be non-negative", o.StartupTimestamps)
	}
	return nil
}

// Load reads path from fsys and parses it. See Parse.
func Load(ctx context.Context, fsys fsutil.FileSystem, path string, opts Options) (Spectra, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	spectra, err := Parse(ctx, data, path, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return spectra, nil
}

// Parse builds a dataset from the full contents of an instrument file.
// source is recorded on the dataset for reference only.
func Parse(ctx context.Context, data []byte, source string, opts Options) (Spectra, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	channels := opts.Channels
	if len(channels) == 0 {
		channels = []int{0}
	}

	rec, err := ParseRecord(data, opts.DataRowThreshold)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	monitoring.Debugf("%s: %d header lines, %d data rows, %d timestamps",
		source, rec.Header.DeclaredLines, len(rec.Rows), len(rec.Timestamps))

	if len(rec.Rows) <= opts.StartupDataRows {
		return nil, &MalformedDataRowError{
			Row:    len(rec.Rows),
			Field:  -1,
			Reason: fmt.Sprintf("%d data rows leave no spectra after dropping %d startup rows", len(rec.Rows), opts.StartupDataRows),
		}
	}
	rows := rec.Rows[opts.StartupDataRows:]
	stamps := rec.Timestamps
	if len(stamps) >= opts.StartupTimestamps {
		stamps = stamps[opts.StartupTimestamps:]
	} else {
		stamps = nil
	}

	matrices, err := Deinterleave(rows, channels)
	if err != nil {
		var rowErr *MalformedDataRowError
		if errors.As(err, &rowErr) {
			rowErr.Row += opts.StartupDataRows
			if rowErr.Row < len(rec.rowLines) {
				rowErr.Line = rec.rowLines[rowErr.Row]
			}
		}
		return nil, err
	}

	samples := len(rows) / ChannelCount
	if len(stamps) < samples {
		return nil, &SampleCountError{Samples: samples, Timestamps: len(stamps)}
	}
	times, err := ParseTimestamps(stamps)
	if err != nil {
		return nil, err
	}
	if extra := len(times) - samples; extra > 0 {
		monitoring.Debugf("%s: ignoring %d trailing timestamps without spectra", source, extra)
		times = times[:samples]
	}
	elapsed := ElapsedSeconds(times)

	header := rec.Header
	axis, err := BuildWavelengthAxis(&header, rec.Width())
	if err != nil {
		return nil, err
	}
	if header.NumberOfPoints > 0 && header.NumberOfPoints != len(axis) {
		monitoring.Logf("%s: header advertises %d points, rows carry %d", source, header.NumberOfPoints, len(axis))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := &Dataset{
		Source:      source,
		Header:      header,
		Channels:    append([]int(nil), channels...),
		Wavelengths: axis,
		Timestamps:  times,
		Time:        elapsed,
	}
	monitoring.Logf("loaded %s: channels=%v samples=%d bins=%d span=%.3f-%.3f nm",
		source, base.Channels, samples, len(axis), base.MinWavelength(), base.MaxWavelength())

	if len(channels) == 1 {
		return &SingleChannelDataset{Dataset: base, Channel: channels[0], Data: matrices[0]}, nil
	}
	return &MultiChannelDataset{Dataset: base, Data: matrices}, nil
}
