// Package plotting renders loaded spectra and their statistics as PNG
// figures (gonum/plot) and as an interactive HTML page (go-echarts).
package plotting

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hyperion/internal/fsutil"
)

// Figure size used for every PNG.
const (
	Width  = 14 * vg.Inch
	Height = 6 * vg.Inch
)

// Axis labels.
const (
	wavelengthLabel = "Wavelength (nm)"
	powerLabel      = "Reflected Power (dB)"
	timeLabel       = "Time (s)"
)

// ErrNoData is returned when a figure would contain no line.
var ErrNoData = errors.New("plotting: nothing to plot")

// Window limits the wavelength axis of spectrum plots. The zero value shows
// the full axis.
type Window struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultWindow frames the usual grating peak.
var DefaultWindow = Window{Min: 1548, Max: 1552}

// Valid reports whether w selects a non-empty interval.
func (w Window) Valid() bool { return w.Max > w.Min }

func (w Window) apply(p *plot.Plot) {
	if !w.Valid() {
		return
	}
	p.X.Min = w.Min
	p.X.Max = w.Max
}

// SpectraOptions controls SpectraPlot.
type SpectraOptions struct {
	// Skip draws every Skip-th sample; values below 1 draw all of them.
	Skip   int
	Window Window
}

// OverlayOptions controls OverlayPlot.
type OverlayOptions struct {
	Skip        int
	Window      Window
	StartOffset int
	// Label, when set, names each drawn sample from its elapsed time and
	// adds a legend.
	Label func(elapsed float64) string
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func line(xs, ys []float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(pts) == 0 {
		return nil, ErrNoData
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.Width = vg.Points(1)
	return l, nil
}

func checkAxis(name string, axis []float64, n int) error {
	if len(axis) != n {
		return fmt.Errorf("plotting: %s axis has %d points, data has %d", name, len(axis), n)
	}
	return nil
}

func stride(skip int) int {
	if skip < 1 {
		return 1
	}
	return skip
}

// SpectraPlot draws every Skip-th spectrum of a [sample, bin] matrix against
// the wavelength axis.
func SpectraPlot(title string, wl []float64, m mat.Matrix, o SpectraOptions) (*plot.Plot, error) {
	rows, cols := m.Dims()
	if err := checkAxis("wavelength", wl, cols); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNoData
	}

	p := newPlot(title, wavelengthLabel, powerLabel)
	step := stride(o.Skip)
	colors := timeColors((rows + step - 1) / step)
	row := make([]float64, cols)
	for i, k := 0, 0; i < rows; i, k = i+step, k+1 {
		mat.Row(row, i, m)
		l, err := line(wl, row)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		l.Color = colors[k]
		p.Add(l)
	}
	o.Window.apply(p)
	return p, nil
}

// BinSeriesPlot draws the power of each listed bin over time.
func BinSeriesPlot(title string, t []float64, m mat.Matrix, bins []int, skip int) (*plot.Plot, error) {
	rows, cols := m.Dims()
	if err := checkAxis("time", t, rows); err != nil {
		return nil, err
	}
	if len(bins) == 0 || rows == 0 {
		return nil, ErrNoData
	}

	p := newPlot(title, timeLabel, powerLabel)
	step := stride(skip)
	colors := distinctColors(len(bins))
	col := make([]float64, rows)
	for i, bin := range bins {
		if bin < 0 || bin >= cols {
			return nil, fmt.Errorf("plotting: bin %d outside [0,%d)", bin, cols)
		}
		mat.Col(col, bin, m)
		var xs, ys []float64
		for r := 0; r < rows; r += step {
			xs = append(xs, t[r])
			ys = append(ys, col[r])
		}
		l, err := line(xs, ys)
		if err != nil {
			return nil, fmt.Errorf("bin %d: %w", bin, err)
		}
		l.Color = colors[i]
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("bin %d", bin), l)
	}
	return p, nil
}

// OverlayPlot draws spectra coloured by acquisition time, starting at
// StartOffset and taking every Skip-th sample.
func OverlayPlot(title string, wl, t []float64, m mat.Matrix, o OverlayOptions) (*plot.Plot, error) {
	rows, cols := m.Dims()
	if err := checkAxis("wavelength", wl, cols); err != nil {
		return nil, err
	}
	if err := checkAxis("time", t, rows); err != nil {
		return nil, err
	}
	if o.StartOffset < 0 || o.StartOffset >= rows {
		return nil, fmt.Errorf("plotting: start offset %d outside [0,%d)", o.StartOffset, rows)
	}

	step := stride(o.Skip)
	n := (rows - o.StartOffset + step - 1) / step
	colors := timeColors(n)

	p := newPlot(title, wavelengthLabel, powerLabel)
	row := make([]float64, cols)
	for k := 0; k < n; k++ {
		i := o.StartOffset + k*step
		mat.Row(row, i, m)
		l, err := line(wl, row)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		l.Color = colors[k]
		p.Add(l)
		if o.Label != nil {
			p.Legend.Add(o.Label(t[i]), l)
		}
	}
	o.Window.apply(p)
	return p, nil
}

// StdDevPlot draws the per-bin standard deviation against wavelength.
func StdDevPlot(title string, wl, std []float64) (*plot.Plot, error) {
	if err := checkAxis("wavelength", wl, len(std)); err != nil {
		return nil, err
	}
	p := newPlot(title, wavelengthLabel, "STD Spectral Power")
	l, err := line(wl, std)
	if err != nil {
		return nil, err
	}
	p.Add(l)
	return p, nil
}

// DetectionPlot draws the detection signal of each sample against time.
func DetectionPlot(title string, t, signal []float64) (*plot.Plot, error) {
	if err := checkAxis("time", t, len(signal)); err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, 0, len(t))
	for i := range t {
		pts = append(pts, plotter.XY{X: t[i], Y: signal[i]})
	}
	if len(pts) == 0 {
		return nil, ErrNoData
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	p := newPlot(title, timeLabel, "Dimensionless Detection Signal")
	p.Add(s)
	return p, nil
}

// SavePNG renders p and writes it to path through fsys.
func SavePNG(fsys fsutil.FileSystem, p *plot.Plot, path string) (err error) {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if _, err := wt.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
