// Command hyperion loads a Hyperion interrogator spectra file, prints
// per-channel statistics and optionally writes plots and a catalog entry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/hyperion/internal/catalog"
	"github.com/banshee-data/hyperion/internal/config"
	"github.com/banshee-data/hyperion/internal/discovery"
	"github.com/banshee-data/hyperion/internal/fsutil"
	"github.com/banshee-data/hyperion/internal/hyperion"
	"github.com/banshee-data/hyperion/internal/monitoring"
	"github.com/banshee-data/hyperion/internal/plotting"
	"github.com/banshee-data/hyperion/internal/security"
	"github.com/banshee-data/hyperion/internal/spectrum"
	"github.com/banshee-data/hyperion/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, fsutil.OSFileSystem{}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("hyperion: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, fsys fsutil.FileSystem) error {
	fl := flag.NewFlagSet("hyperion", flag.ContinueOnError)
	fl.SetOutput(stdout)

	configPath := fl.String("config", "", "analysis config JSON file")
	file := fl.String("file", "", "spectra file to load; overrides -dir/-key/-offset")
	dir := fl.String("dir", "", "directory searched for the newest matching file")
	key := fl.String("key", "", "substring the file name must contain")
	offset := fl.Int("offset", 0, "pick the N-th most recent match (0 = newest)")
	channels := fl.String("channels", "", "comma-separated channels to extract, e.g. 0,2")
	plotsDir := fl.String("plots", "", "write PNG figures to this directory")
	skip := fl.Int("skip", 0, "plot every N-th spectrum")
	bins := fl.String("bins", "", "comma-separated bins for the time series figure")
	detection := fl.Bool("detection", false, "add the detection signal figure")
	htmlName := fl.String("html", "", "write an interactive HTML report with this name to the output directory")
	catalogPath := fl.String("catalog", "", "record the analysis in this sqlite catalog")
	list := fl.Bool("list", false, "list catalogued runs and exit")
	verbose := fl.Bool("v", false, "verbose logging")
	showVersion := fl.Bool("version", false, "print version and exit")

	if err := fl.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	monitoring.SetVerbose(*verbose)

	cfg := config.EmptyAnalysisConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(*configPath); err != nil {
			return err
		}
	}

	set := make(map[string]bool)
	fl.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["dir"] {
		cfg.DataDir = dir
	}
	if set["key"] {
		cfg.FileKey = key
	}
	if set["offset"] {
		cfg.RecentOffset = offset
	}
	if set["channels"] {
		chs, err := parseCSVIntSlice(*channels)
		if err != nil {
			return fmt.Errorf("-channels: %w", err)
		}
		cfg.Channels = chs
	}
	if set["plots"] {
		cfg.OutputDir = plotsDir
	}
	if set["skip"] {
		cfg.PlotSkip = skip
	}
	if set["bins"] {
		b, err := parseCSVIntSlice(*bins)
		if err != nil {
			return fmt.Errorf("-bins: %w", err)
		}
		cfg.PlotBins = b
	}
	if *detection && cfg.DetectionRange == nil {
		r := cfg.GetDetectionRange()
		cfg.DetectionRange = &r
	}
	if set["catalog"] {
		cfg.CatalogPath = catalogPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if *list {
		return listRuns(ctx, stdout, cfg.GetCatalogPath())
	}

	path := *file
	if path == "" {
		var err error
		if path, err = discovery.Latest(fsys, cfg.DiscoveryConfig()); err != nil {
			return err
		}
	}

	spectra, err := hyperion.Load(ctx, fsys, path, cfg.LoaderOptions())
	if err != nil {
		return err
	}
	stats, err := spectrum.ForSpectra(spectra, cfg.StatsOptions())
	if err != nil {
		return err
	}
	if err := printSummary(stdout, spectra, stats); err != nil {
		return err
	}

	if cfg.OutputDir != nil {
		if err := writeFigures(fsys, cfg, path, spectra, stats); err != nil {
			return err
		}
	}
	if *htmlName != "" {
		if err := writeHTML(fsys, cfg, *htmlName, spectra, stats); err != nil {
			return err
		}
	}
	if p := cfg.GetCatalogPath(); p != "" {
		if err := record(ctx, p, spectra, stats); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, s hyperion.Spectra, stats []spectrum.ChannelStats) error {
	info := s.Info()
	duration := 0.0
	if n := info.NumSamples(); n > 0 {
		duration = info.Time[n-1]
	}
	fmt.Fprintf(w, "file:       %s\n", info.Source)
	fmt.Fprintf(w, "samples:    %d over %.3f s\n", info.NumSamples(), duration)
	fmt.Fprintf(w, "bins:       %d, %.3f-%.3f nm\n", info.NumBins(), info.MinWavelength(), info.MaxWavelength())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "channel\tstd mean\tcentroid first\tcentroid last\tpeak first\tpeak last")
	for _, cs := range stats {
		last := len(cs.CenterOfMass) - 1
		if last < 0 {
			continue
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\t%.2f\t%.2f\n", cs.Channel, cs.StdMean,
			cs.CenterOfMass[0], cs.CenterOfMass[last], cs.PeakWavelength[0], cs.PeakWavelength[last])
	}
	return tw.Flush()
}

func writeFigures(fsys fsutil.FileSystem, cfg *config.AnalysisConfig, path string, s hyperion.Spectra, stats []spectrum.ChannelStats) error {
	window := cfg.GetPlotWindow()
	o := plotting.ReportOptions{
		Dir:     cfg.GetOutputDir(),
		Stem:    security.Stem(path),
		Spectra: plotting.SpectraOptions{Skip: cfg.GetPlotSkip(), Window: window},
		Overlay: plotting.OverlayOptions{Skip: cfg.GetPlotSkip(), Window: window},
		Bins:    cfg.PlotBins,
	}
	if cfg.DetectionRange != nil {
		r := cfg.GetDetectionRange()
		o.Detection = &r
	}
	_, err := plotting.WriteReport(fsys, s, stats, o)
	return err
}

func writeHTML(fsys fsutil.FileSystem, cfg *config.AnalysisConfig, name string, s hyperion.Spectra, stats []spectrum.ChannelStats) (err error) {
	dir := cfg.GetOutputDir()
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	out, err := security.OutputPath(dir, filepath.Base(name))
	if err != nil {
		return err
	}
	f, err := fsys.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := plotting.WriteHTML(f, s, stats, plotting.HTMLOptions{Skip: cfg.GetPlotSkip(), Window: cfg.GetPlotWindow()}); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", out)
	return nil
}

func record(ctx context.Context, path string, s hyperion.Spectra, stats []spectrum.ChannelStats) error {
	c, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.RecordAnalysis(ctx, catalog.NewRun(s, stats))
}

func listRuns(ctx context.Context, w io.Writer, path string) error {
	if path == "" {
		return errors.New("-list needs a catalog (-catalog or catalog_path)")
	}
	c, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	runs, err := c.Runs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "run\tanalysed\tsamples\tchannels\tsource")
	for _, r := range runs {
		chs := make([]string, len(r.Channels))
		for i, ch := range r.Channels {
			chs[i] = strconv.Itoa(ch.Channel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.AnalysedAt.Format("2006-01-02 15:04:05"),
			r.NumSamples, strings.Join(chs, ","), r.Source)
	}
	return tw.Flush()
}

// parseCSVIntSlice parses a comma-separated list of ints
func parseCSVIntSlice(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
