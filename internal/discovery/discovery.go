// Package discovery picks instrument output files out of a data directory.
package discovery

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/hyperion/internal/fsutil"
	"github.com/banshee-data/hyperion/internal/monitoring"
)

// Config selects a file under Dir whose name contains Key. Offset 0 is the
// most recently modified match, 1 the one before it, and so on.
type Config struct {
	Dir    string
	Key    string
	Offset int
}

// FileDiscoveryError reports that no match exists at the requested offset.
type FileDiscoveryError struct {
	Dir    string
	Key    string
	Offset int
	Found  int
}

func (e *FileDiscoveryError) Error() string {
	return fmt.Sprintf("no file matching %q at offset %d in %s (%d candidates)", e.Key, e.Offset, e.Dir, e.Found)
}

// Candidates returns the matching regular files under cfg.Dir, newest first.
// Files with equal modification times are ordered by name.
func Candidates(fsys fsutil.FileSystem, cfg Config) ([]string, error) {
	entries, err := fsys.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cfg.Dir, err)
	}

	matches := entries[:0:0]
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), cfg.Key) {
			continue
		}
		matches = append(matches, e)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		ti, tj := matches[i].ModTime(), matches[j].ModTime()
		if ti.Equal(tj) {
			return matches[i].Name() < matches[j].Name()
		}
		return ti.After(tj)
	})

	out := make([]string, len(matches))
	for i, e := range matches {
		out[i] = filepath.Join(cfg.Dir, e.Name())
	}
	return out, nil
}

// Latest returns the path of the cfg.Offset-th most recent match.
func Latest(fsys fsutil.FileSystem, cfg Config) (string, error) {
	if cfg.Offset < 0 {
		return "", fmt.Errorf("negative offset %d", cfg.Offset)
	}
	paths, err := Candidates(fsys, cfg)
	if err != nil {
		return "", err
	}
	if cfg.Offset >= len(paths) {
		return "", &FileDiscoveryError{Dir: cfg.Dir, Key: cfg.Key, Offset: cfg.Offset, Found: len(paths)}
	}
	monitoring.Debugf("discovery: %d candidates for %q in %s", len(paths), cfg.Key, cfg.Dir)
	return paths[cfg.Offset], nil
}
