package hyperion

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Dataset holds what every loaded file has regardless of how many channels
// were selected. The arrays belong to the dataset; callers must not modify
// them.
type Dataset struct {
	Source   string
	Header   Header
	Channels []int

	// Wavelengths has one entry per bin, in nm.
	Wavelengths []float64
	// Timestamps and Time have one entry per sample; Time is seconds since
	// Timestamps[0].
	Timestamps []time.Time
	Time       []float64

	annotations map[string]any
}

// NumSamples returns the number of retained acquisitions per channel.
func (d *Dataset) NumSamples() int { return len(d.Time) }

// NumBins returns the number of wavelength bins per spectrum.
func (d *Dataset) NumBins() int { return len(d.Wavelengths) }

// MinWavelength returns the first wavelength of the axis.
func (d *Dataset) MinWavelength() float64 { return d.Header.WavelengthStart }

// MaxWavelength returns start + delta*bins as advertised by the header.
func (d *Dataset) MaxWavelength() float64 {
	return d.Header.WavelengthStart + d.Header.WavelengthDelta*float64(d.NumBins())
}

// Annotate attaches caller-supplied metadata such as a temperature or a
// system state. It does not touch the spectra.
func (d *Dataset) Annotate(name string, value any) {
	if d.annotations == nil {
		d.annotations = make(map[string]any)
	}
	d.annotations[name] = value
}

// Annotation returns the metadata stored under name.
func (d *Dataset) Annotation(name string) (any, bool) {
	v, ok := d.annotations[name]
	return v, ok
}

// Annotations returns a copy of all caller-supplied metadata.
func (d *Dataset) Annotations() map[string]any {
	out := make(map[string]any, len(d.annotations))
	for k, v := range d.annotations {
		out[k] = v
	}
	return out
}

// ChannelSpectra is one channel's [sample, bin] matrix.
type ChannelSpectra struct {
	Channel int
	Data    *mat.Dense
}

// Spectra is a loaded file. It is either a *SingleChannelDataset or a
// *MultiChannelDataset, decided by the number of requested channels.
type Spectra interface {
	// Info returns the shared metadata and axes.
	Info() *Dataset
	// Series returns the spectra of every selected channel, in request order.
	Series() []ChannelSpectra

	isSpectra()
}

// SingleChannelDataset is the result of requesting exactly one channel.
type SingleChannelDataset struct {
	*Dataset
	Channel int
	// Data is [sample, bin].
	Data *mat.Dense
}

// Info returns the shared metadata and axes.
func (d *SingleChannelDataset) Info() *Dataset { return d.Dataset }

// Series returns the single channel as a one-element slice.
func (d *SingleChannelDataset) Series() []ChannelSpectra {
	return []ChannelSpectra{{Channel: d.Channel, Data: d.Data}}
}

func (*SingleChannelDataset) isSpectra() {}

// MultiChannelDataset is the result of requesting two or more channels.
type MultiChannelDataset struct {
	*Dataset
	// Data[i] is the [sample, bin] matrix of Channels[i].
	Data []*mat.Dense
}

// Info returns the shared metadata and axes.
func (d *MultiChannelDataset) Info() *Dataset { return d.Dataset }

// Series returns every selected channel in request order.
func (d *MultiChannelDataset) Series() []ChannelSpectra {
	out := make([]ChannelSpectra, len(d.Data))
	for i, m := range d.Data {
		out[i] = ChannelSpectra{Channel: d.Channels[i], Data: m}
	}
	return out
}

// ChannelData returns the matrix of the first selection of hardware channel c.
func (d *MultiChannelDataset) ChannelData(c int) (*mat.Dense, bool) {
	for i, ch := range d.Channels {
		if ch == c {
			return d.Data[i], true
		}
	}
	return nil, false
}

func (*MultiChannelDataset) isSpectra() {}
