package plotting

import (
	"fmt"

	"gonum.org/v1/plot"

	"github.com/banshee-data/hyperion/internal/fsutil"
	"github.com/banshee-data/hyperion/internal/hyperion"
	"github.com/banshee-data/hyperion/internal/monitoring"
	"github.com/banshee-data/hyperion/internal/security"
	"github.com/banshee-data/hyperion/internal/spectrum"
)

// ReportOptions selects the PNG figures written by WriteReport.
type ReportOptions struct {
	// Dir receives the figures; it is created when missing.
	Dir string
	// Stem prefixes every file name, usually the input file's stem.
	Stem    string
	Spectra SpectraOptions
	Overlay OverlayOptions
	// Bins adds a bin time series figure when non-empty.
	Bins []int
	// Detection adds a detection signal figure when set.
	Detection *spectrum.IndexRange
}

// WriteReport writes the figures for every selected channel and returns
// the paths written. stats must be in the same channel order as s.Series().
func WriteReport(fsys fsutil.FileSystem, s hyperion.Spectra, stats []spectrum.ChannelStats, o ReportOptions) ([]string, error) {
	info := s.Info()
	series := s.Series()
	if len(stats) != len(series) {
		return nil, fmt.Errorf("plotting: %d channel stats for %d channels", len(stats), len(series))
	}
	if err := fsys.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", o.Dir, err)
	}

	var written []string
	save := func(p *plot.Plot, name string) error {
		path, err := security.OutputPath(o.Dir, name)
		if err != nil {
			return fmt.Errorf("figure %s: %w", name, err)
		}
		if err := SavePNG(fsys, p, path); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	for i, cs := range series {
		prefix := fmt.Sprintf("%s_ch%d", o.Stem, cs.Channel)
		title := fmt.Sprintf("Channel %d", cs.Channel)

		p, err := SpectraPlot(title, info.Wavelengths, cs.Data, o.Spectra)
		if err != nil {
			return written, fmt.Errorf("channel %d spectra: %w", cs.Channel, err)
		}
		if err := save(p, prefix+"_spectra.png"); err != nil {
			return written, err
		}

		p, err = OverlayPlot(title+" by time", info.Wavelengths, info.Time, cs.Data, o.Overlay)
		if err != nil {
			return written, fmt.Errorf("channel %d overlay: %w", cs.Channel, err)
		}
		if err := save(p, prefix+"_overlay.png"); err != nil {
			return written, err
		}

		p, err = StdDevPlot("Standard Deviation of each Bin", info.Wavelengths, stats[i].Std)
		if err != nil {
			return written, fmt.Errorf("channel %d std: %w", cs.Channel, err)
		}
		if err := save(p, prefix+"_std.png"); err != nil {
			return written, err
		}

		if len(o.Bins) > 0 {
			p, err = BinSeriesPlot(title, info.Time, cs.Data, o.Bins, o.Spectra.Skip)
			if err != nil {
				return written, fmt.Errorf("channel %d bins: %w", cs.Channel, err)
			}
			if err := save(p, prefix+"_bins.png"); err != nil {
				return written, err
			}
		}

		if o.Detection != nil {
			signal, err := spectrum.DetectionSignal(cs.Data, *o.Detection)
			if err != nil {
				return written, fmt.Errorf("channel %d detection: %w", cs.Channel, err)
			}
			p, err = DetectionPlot(title+" detection signal", info.Time, signal)
			if err != nil {
				return written, fmt.Errorf("channel %d detection: %w", cs.Channel, err)
			}
			if err := save(p, prefix+"_detection.png"); err != nil {
				return written, err
			}
		}
	}

	monitoring.Logf("plotting: wrote %d figures to %s", len(written), o.Dir)
	return written, nil
}
