// Package catalog records analysed instrument files and their per-sample
// statistics in a SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/hyperion/internal/hyperion"
	"github.com/banshee-data/hyperion/internal/monitoring"
	"github.com/banshee-data/hyperion/internal/spectrum"
	"github.com/banshee-data/hyperion/internal/timeutil"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("catalog: run not found")

// Catalog is an open analysis catalog.
type Catalog struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens or creates the catalog at path and migrates it to the latest
// schema.
func Open(path string) (*Catalog, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an explicit clock for run timestamps.
func OpenWithClock(path string, clock timeutil.Clock) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	c := &Catalog{db: db, clock: clock}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Debugf("catalog: opened %s", path)
	return c, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Run is one analysed file.
type Run struct {
	ID              string
	Source          string
	AnalysedAt      time.Time
	FirstSample     time.Time
	WavelengthStart float64
	WavelengthDelta float64
	NumSamples      int
	NumBins         int
	Channels        []ChannelSummary
	Annotations     map[string]any
	// Samples is only populated on runs built by NewRun.
	Samples []Sample
}

// ChannelSummary holds the per-channel scalars of a run.
type ChannelSummary struct {
	Channel int
	StdMean float64
}

// Sample is one acquisition's statistics on one channel. Undefined values
// are NaN.
type Sample struct {
	Channel        int
	Index          int
	Elapsed        float64
	CenterOfMass   float64
	PeakWavelength float64
}

// NewRun assembles a Run from a loaded file and its statistics. stats must
// be in the same channel order as s.Series().
func NewRun(s hyperion.Spectra, stats []spectrum.ChannelStats) *Run {
	info := s.Info()
	run := &Run{
		Source:          info.Source,
		WavelengthStart: info.Header.WavelengthStart,
		WavelengthDelta: info.Header.WavelengthDelta,
		NumSamples:      info.NumSamples(),
		NumBins:         info.NumBins(),
		Annotations:     info.Annotations(),
	}
	if len(info.Timestamps) > 0 {
		run.FirstSample = info.Timestamps[0]
	}
	for _, cs := range stats {
		run.Channels = append(run.Channels, ChannelSummary{Channel: cs.Channel, StdMean: cs.StdMean})
		for i := range cs.CenterOfMass {
			run.Samples = append(run.Samples, Sample{
				Channel:        cs.Channel,
				Index:          i,
				Elapsed:        info.Time[i],
				CenterOfMass:   cs.CenterOfMass[i],
				PeakWavelength: cs.PeakWavelength[i],
			})
		}
	}
	return run
}

// RecordAnalysis stores run in one transaction, assigning its ID and
// AnalysedAt.
func (c *Catalog) RecordAnalysis(ctx context.Context, run *Run) error {
	var annotations sql.NullString
	if len(run.Annotations) > 0 {
		b, err := json.Marshal(run.Annotations)
		if err != nil {
			return fmt.Errorf("encode annotations: %w", err)
		}
		annotations = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	analysedAt := c.clock.Now()
	var firstNs int64
	if !run.FirstSample.IsZero() {
		firstNs = run.FirstSample.UnixNano()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			run_id, source, analysed_at_ns, first_sample_ns,
			wavelength_start, wavelength_delta, num_samples, num_bins,
			annotations_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.Source, analysedAt.UnixNano(), firstNs,
		run.WavelengthStart, run.WavelengthDelta, run.NumSamples, run.NumBins,
		annotations,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ch := range run.Channels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analysis_channels (run_id, channel, std_mean) VALUES (?, ?, ?)`,
			id, ch.Channel, nullFloat(ch.StdMean),
		); err != nil {
			return fmt.Errorf("insert channel %d: %w", ch.Channel, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_samples (
			run_id, channel, sample_index, elapsed_s, center_of_mass, peak_wavelength
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()
	for _, s := range run.Samples {
		if _, err := stmt.ExecContext(ctx, id, s.Channel, s.Index, s.Elapsed,
			nullFloat(s.CenterOfMass), nullFloat(s.PeakWavelength)); err != nil {
			return fmt.Errorf("insert sample %d/%d: %w", s.Channel, s.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	run.ID = id
	run.AnalysedAt = analysedAt
	monitoring.Logf("catalog: recorded run %s for %s (%d samples)", id, run.Source, len(run.Samples))
	return nil
}

// Runs lists every run, newest first, without samples.
func (c *Catalog) Runs(ctx context.Context) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, source, analysed_at_ns, first_sample_ns,
		       wavelength_start, wavelength_delta, num_samples, num_bins,
		       annotations_json
		FROM analysis_runs
		ORDER BY analysed_at_ns DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var analysedNs, firstNs int64
		var annotations sql.NullString
		if err := rows.Scan(&r.ID, &r.Source, &analysedNs, &firstNs,
			&r.WavelengthStart, &r.WavelengthDelta, &r.NumSamples, &r.NumBins,
			&annotations); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.AnalysedAt = time.Unix(0, analysedNs).UTC()
		r.FirstSample = time.Unix(0, firstNs).UTC()
		if annotations.Valid {
			if err := json.Unmarshal([]byte(annotations.String), &r.Annotations); err != nil {
				return nil, fmt.Errorf("decode annotations of %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		chs, err := c.channels(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Channels = chs
	}
	return runs, nil
}

func (c *Catalog) channels(ctx context.Context, runID string) ([]ChannelSummary, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT channel, std_mean FROM analysis_channels WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var out []ChannelSummary
	for rows.Next() {
		var ch ChannelSummary
		var stdMean sql.NullFloat64
		if err := rows.Scan(&ch.Channel, &stdMean); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.StdMean = floatOrNaN(stdMean)
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Samples returns the per-sample statistics of one channel of a run in
// acquisition order.
func (c *Catalog) Samples(ctx context.Context, runID string, channel int) ([]Sample, error) {
	var exists int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT sample_index, elapsed_s, center_of_mass, peak_wavelength
		FROM analysis_samples
		WHERE run_id = ? AND channel = ?
		ORDER BY sample_index`, runID, channel)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		s := Sample{Channel: channel}
		var com, peak sql.NullFloat64
		if err := rows.Scan(&s.Index, &s.Elapsed, &com, &peak); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.CenterOfMass = floatOrNaN(com)
		s.PeakWavelength = floatOrNaN(peak)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded with it.
func (c *Catalog) DeleteRun(ctx context.Context, runID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM analysis_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
