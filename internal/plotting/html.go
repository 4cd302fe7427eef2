package plotting

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/hyperion/internal/hyperion"
	"github.com/banshee-data/hyperion/internal/spectrum"
)

// HTMLOptions controls WriteHTML.
type HTMLOptions struct {
	Skip   int
	Window Window
	// AssetsHost overrides where the page loads the echarts scripts from.
	AssetsHost string
}

// WriteHTML renders one page with, per channel, a zoomable overlay of every
// Skip-th spectrum and the centre of mass trace over time. stats must be in
// the same channel order as s.Series().
func WriteHTML(w io.Writer, s hyperion.Spectra, stats []spectrum.ChannelStats, o HTMLOptions) error {
	info := s.Info()
	series := s.Series()
	if len(stats) != len(series) {
		return fmt.Errorf("plotting: %d channel stats for %d channels", len(stats), len(series))
	}

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("Hyperion %s", info.Source))
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	for i, cs := range series {
		page.AddCharts(
			spectraChart(info, cs, o),
			centroidChart(info, stats[i]),
		)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func initOpts(o HTMLOptions, title string) opts.Initialization {
	cfg := opts.Initialization{PageTitle: title, Width: "1200px", Height: "520px"}
	if o.AssetsHost != "" {
		cfg.AssetsHost = o.AssetsHost
	}
	return cfg
}

func spectraChart(info *hyperion.Dataset, cs hyperion.ChannelSpectra, o HTMLOptions) *charts.Line {
	rows, cols := cs.Data.Dims()
	step := stride(o.Skip)
	colors := timeColors((rows + step - 1) / step)

	xAxis := opts.XAxis{Type: "value", Name: wavelengthLabel, NameLocation: "middle", NameGap: 25}
	if o.Window.Valid() {
		xAxis.Min, xAxis.Max = o.Window.Min, o.Window.Max
	}

	chart := charts.NewLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(o, "spectra")),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Channel %d", cs.Channel),
			Subtitle: fmt.Sprintf("samples=%d bins=%d skip=%d", rows, cols, step),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: powerLabel, Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	row := make([]float64, cols)
	for i, k := 0, 0; i < rows; i, k = i+step, k+1 {
		mat.Row(row, i, cs.Data)
		chart.AddSeries(fmt.Sprintf("t=%.1fs", info.Time[i]), xyData(info.Wavelengths, row),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[k])}),
		)
	}
	return chart
}

func centroidChart(info *hyperion.Dataset, cs spectrum.ChannelStats) *charts.Line {
	chart := charts.NewLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Channel %d centre of mass", cs.Channel),
			Subtitle: fmt.Sprintf("std mean=%.4g", cs.StdMean),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: timeLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "nm", Scale: opts.Bool(true)}),
	)
	chart.AddSeries("centre of mass", xyData(info.Time, cs.CenterOfMass))
	chart.AddSeries("peak", xyData(info.Time, cs.PeakWavelength))
	return chart
}

// xyData pairs xs with ys for a value x axis. Non-finite points are left out
// since they cannot be encoded as JSON.
func xyData(xs, ys []float64) []opts.LineData {
	out := make([]opts.LineData, 0, len(xs))
	for i := range xs {
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			continue
		}
		out = append(out, opts.LineData{Value: []interface{}{xs[i], ys[i]}})
	}
	return out
}
