package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/hyperion/internal/discovery"
	"github.com/banshee-data/hyperion/internal/hyperion"
	"github.com/banshee-data/hyperion/internal/plotting"
	"github.com/banshee-data/hyperion/internal/spectrum"
)

// Degenerate policy names accepted in the config file.
const (
	DegenerateNaN  = "nan"
	DegenerateFail = "fail"
)

// AnalysisConfig is the JSON configuration of an analysis run. Every field
// is optional; the Get* methods supply defaults for omitted fields.
type AnalysisConfig struct {
	// File selection
	DataDir      *string `json:"data_dir,omitempty"`
	FileKey      *string `json:"file_key,omitempty"`
	RecentOffset *int    `json:"recent_offset,omitempty"`

	// Loader
	Channels          []int `json:"channels,omitempty"`
	StartupDataRows   *int  `json:"startup_data_rows,omitempty"`
	StartupTimestamps *int  `json:"startup_timestamps,omitempty"`
	DataRowThreshold  *int  `json:"data_row_threshold,omitempty"`

	// Statistics
	PeakBinsPerNm  *float64             `json:"peak_bins_per_nm,omitempty"`
	PeakOriginNm   *float64             `json:"peak_origin_nm,omitempty"`
	CentroidRange  *spectrum.IndexRange `json:"centroid_range,omitempty"`
	Degenerate     *string              `json:"degenerate,omitempty"` // "nan" or "fail"
	DetectionRange *spectrum.IndexRange `json:"detection_range,omitempty"`

	// Output
	PlotWindow  *plotting.Window `json:"plot_window,omitempty"`
	PlotSkip    *int             `json:"plot_skip,omitempty"`
	PlotBins    []int            `json:"plot_bins,omitempty"`
	OutputDir   *string          `json:"output_dir,omitempty"`
	CatalogPath *string          `json:"catalog_path,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	c := EmptyAnalysisConfig()
	centroid := c.GetCentroidRange()
	detection := c.GetDetectionRange()
	window := c.GetPlotWindow()
	return &AnalysisConfig{
		DataDir:           ptrString(c.GetDataDir()),
		FileKey:           ptrString(c.GetFileKey()),
		RecentOffset:      ptrInt(c.GetRecentOffset()),
		Channels:          c.GetChannels(),
		StartupDataRows:   ptrInt(c.GetStartupDataRows()),
		StartupTimestamps: ptrInt(c.GetStartupTimestamps()),
		DataRowThreshold:  ptrInt(c.GetDataRowThreshold()),
		PeakBinsPerNm:     ptrFloat64(c.GetPeakCalibration().BinsPerNm),
		PeakOriginNm:      ptrFloat64(c.GetPeakCalibration().OriginNm),
		CentroidRange:     &centroid,
		Degenerate:        ptrString(DegenerateNaN),
		DetectionRange:    &detection,
		PlotWindow:        &window,
		PlotSkip:          ptrInt(c.GetPlotSkip()),
		OutputDir:         ptrString(c.GetOutputDir()),
		CatalogPath:       ptrString(c.GetCatalogPath()),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be at most 1MB. Omitted fields
// keep their defaults.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *AnalysisConfig) Validate() error {
	if c.RecentOffset != nil && *c.RecentOffset < 0 {
		return fmt.Errorf("recent_offset must be non-negative, got %d", *c.RecentOffset)
	}
	seen := make(map[int]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch < 0 || ch >= hyperion.ChannelCount {
			return fmt.Errorf("channel %d outside [0,%d)", ch, hyperion.ChannelCount)
		}
		if seen[ch] {
			return fmt.Errorf("channel %d listed more than once", ch)
		}
		seen[ch] = true
	}
	if c.StartupDataRows != nil && (*c.StartupDataRows < 0 || *c.StartupDataRows%hyperion.ChannelCount != 0) {
		return fmt.Errorf("startup_data_rows must be a non-negative multiple of %d, got %d", hyperion.ChannelCount, *c.StartupDataRows)
	}
	if c.StartupTimestamps != nil && *c.StartupTimestamps < 0 {
		return fmt.Errorf("startup_timestamps must be non-negative, got %d", *c.StartupTimestamps)
	}
	if c.DataRowThreshold != nil && *c.DataRowThreshold <= 0 {
		return fmt.Errorf("data_row_threshold must be positive, got %d", *c.DataRowThreshold)
	}
	if c.PeakBinsPerNm != nil && *c.PeakBinsPerNm <= 0 {
		return fmt.Errorf("peak_bins_per_nm must be positive, got %f", *c.PeakBinsPerNm)
	}
	if c.Degenerate != nil {
		switch strings.ToLower(*c.Degenerate) {
		case DegenerateNaN, DegenerateFail:
		default:
			return fmt.Errorf("degenerate must be %q or %q, got %q", DegenerateNaN, DegenerateFail, *c.Degenerate)
		}
	}
	if c.PlotWindow != nil && (c.PlotWindow.Min != 0 || c.PlotWindow.Max != 0) && !c.PlotWindow.Valid() {
		return fmt.Errorf("plot_window min %f must be below max %f", c.PlotWindow.Min, c.PlotWindow.Max)
	}
	if c.PlotSkip != nil && *c.PlotSkip < 1 {
		return fmt.Errorf("plot_skip must be at least 1, got %d", *c.PlotSkip)
	}
	for _, b := range c.PlotBins {
		if b < 0 {
			return fmt.Errorf("plot_bins entries must be non-negative, got %d", b)
		}
	}
	return nil
}

// GetDataDir returns the data_dir value or the default.
func (c *AnalysisConfig) GetDataDir() string {
	if c.DataDir == nil {
		return "."
	}
	return *c.DataDir
}

// GetFileKey returns the file_key value or the default.
func (c *AnalysisConfig) GetFileKey() string {
	if c.FileKey == nil {
		return "Spectra"
	}
	return *c.FileKey
}

// GetRecentOffset returns the recent_offset value or the default.
func (c *AnalysisConfig) GetRecentOffset() int {
	if c.RecentOffset == nil {
		return 0
	}
	return *c.RecentOffset
}

// GetChannels returns a copy of the channels value or the default.
func (c *AnalysisConfig) GetChannels() []int {
	if len(c.Channels) == 0 {
		return []int{0}
	}
	return append([]int(nil), c.Channels...)
}

// GetStartupDataRows returns the startup_data_rows value or the default.
func (c *AnalysisConfig) GetStartupDataRows() int {
	if c.StartupDataRows == nil {
		return hyperion.DefaultStartupDataRows
	}
	return *c.StartupDataRows
}

// GetStartupTimestamps returns the startup_timestamps value or the default.
func (c *AnalysisConfig) GetStartupTimestamps() int {
	if c.StartupTimestamps == nil {
		return hyperion.DefaultStartupTimestamps
	}
	return *c.StartupTimestamps
}

// GetDataRowThreshold returns the data_row_threshold value or the default.
func (c *AnalysisConfig) GetDataRowThreshold() int {
	if c.DataRowThreshold == nil {
		return hyperion.DefaultDataRowThreshold
	}
	return *c.DataRowThreshold
}

// GetPeakCalibration returns the peak calibration, defaulting each part
// separately.
func (c *AnalysisConfig) GetPeakCalibration() spectrum.PeakCalibration {
	cal := spectrum.DefaultPeakCalibration
	if c.PeakBinsPerNm != nil {
		cal.BinsPerNm = *c.PeakBinsPerNm
	}
	if c.PeakOriginNm != nil {
		cal.OriginNm = *c.PeakOriginNm
	}
	return cal
}

// GetCentroidRange returns the centroid_range value or the full range.
func (c *AnalysisConfig) GetCentroidRange() spectrum.IndexRange {
	if c.CentroidRange == nil {
		return spectrum.FullRange
	}
	return *c.CentroidRange
}

// GetDegeneratePolicy maps the degenerate value to a policy.
func (c *AnalysisConfig) GetDegeneratePolicy() spectrum.DegeneratePolicy {
	if c.Degenerate != nil && strings.EqualFold(*c.Degenerate, DegenerateFail) {
		return spectrum.FailOnDegenerate
	}
	return spectrum.PropagateNaN
}

// GetDetectionRange returns the detection_range value or the default.
func (c *AnalysisConfig) GetDetectionRange() spectrum.IndexRange {
	if c.DetectionRange == nil {
		return spectrum.IndexRange{Start: 4200, End: 5100}
	}
	return *c.DetectionRange
}

// GetPlotWindow returns the plot_window value or the default.
func (c *AnalysisConfig) GetPlotWindow() plotting.Window {
	if c.PlotWindow == nil {
		return plotting.DefaultWindow
	}
	return *c.PlotWindow
}

// GetPlotSkip returns the plot_skip value or the default.
func (c *AnalysisConfig) GetPlotSkip() int {
	if c.PlotSkip == nil {
		return 1
	}
	return *c.PlotSkip
}

// GetOutputDir returns the output_dir value or the default.
func (c *AnalysisConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "plots"
	}
	return *c.OutputDir
}

// GetCatalogPath returns the catalog_path value, empty when cataloguing is
// off.
func (c *AnalysisConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// LoaderOptions converts the loader fields.
func (c *AnalysisConfig) LoaderOptions() hyperion.Options {
	return hyperion.Options{
		Channels:          c.GetChannels(),
		StartupDataRows:   c.GetStartupDataRows(),
		StartupTimestamps: c.GetStartupTimestamps(),
		DataRowThreshold:  c.GetDataRowThreshold(),
	}
}

// StatsOptions converts the statistics fields.
func (c *AnalysisConfig) StatsOptions() spectrum.Options {
	return spectrum.Options{
		CentroidRange: c.GetCentroidRange(),
		Degenerate:    c.GetDegeneratePolicy(),
		Peak:          c.GetPeakCalibration(),
	}
}

// DiscoveryConfig converts the file selection fields.
func (c *AnalysisConfig) DiscoveryConfig() discovery.Config {
	return discovery.Config{
		Dir:    c.GetDataDir(),
		Key:    c.GetFileKey(),
		Offset: c.GetRecentOffset(),
	}
}
