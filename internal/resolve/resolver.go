// Package resolve locates the correct raw extract for a logical dataset
// type. An explicit producer-written manifest takes precedence over
// filename/mtime globbing: the manifest encodes intent, while mtime
// heuristics misfire when several extraction runs leave same-pattern files.
package resolve

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"barrio-etl/internal/domain"
)

// ManifestFileName is the conventional manifest location under the raw base
// directory.
const ManifestFileName = "manifest.json"

// LoadManifest reads the manifest document under rootDir. A missing file
// yields an empty entry list; malformed content yields an empty list and a
// warning. Neither case is an error — resolution simply falls back to
// globbing.
func LoadManifest(rootDir string, logger *slog.Logger) []domain.ManifestEntry {
	path := filepath.Join(rootDir, ManifestFileName)

	data, err := os.ReadFile(path) //nolint:gosec // rootDir is operator-controlled
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("manifest unreadable, falling back to glob resolution", "path", path, "error", err)
		}
		return nil
	}

	var entries []domain.ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("manifest is malformed, falling back to glob resolution", "path", path, "error", err)
		return nil
	}
	return entries
}

// ResolveFromManifest returns the newest manifest entry of the given logical
// type (and source, when non-empty) whose file exists under rootDir. The
// boolean is false when no candidate matches or none resolves on disk.
func ResolveFromManifest(entries []domain.ManifestEntry, rootDir, logicalType, source string) (string, bool) {
	candidates := make([]domain.ManifestEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type != logicalType {
			continue
		}
		if source != "" && e.Source != source {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})

	for _, c := range candidates {
		path := filepath.Join(rootDir, c.FilePath)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ResolveByGlob scans dir for files matching pattern and returns the one
// with the latest modification time. The boolean is false for an empty
// match set.
func ResolveByGlob(dir, pattern string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		// Only malformed patterns error here; treat as no match.
		return "", false
	}

	var (
		best     string
		bestTime int64 = -1
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > bestTime {
			best, bestTime = m, mod
		}
	}
	if bestTime < 0 {
		return "", false
	}
	return best, true
}

// Resolver resolves logical dataset types against one raw base directory.
type Resolver struct {
	rootDir string
	entries []domain.ManifestEntry
	logger  *slog.Logger
}

// NewResolver loads the manifest under rootDir (if any) and returns a
// resolver bound to that directory.
func NewResolver(rootDir string, logger *slog.Logger) *Resolver {
	return &Resolver{
		rootDir: rootDir,
		entries: LoadManifest(rootDir, logger),
		logger:  logger,
	}
}

// Resolve returns the most appropriate input artifact for a logical dataset
// type: manifest lookup first, glob fallback second. Absence is reported via
// the boolean, never as an error — interpreting it (fatal vs tolerated) is
// the caller's responsibility.
func (r *Resolver) Resolve(logicalType, source, globPattern string) (string, bool) {
	if path, ok := ResolveFromManifest(r.entries, r.rootDir, logicalType, source); ok {
		return path, true
	}
	if globPattern == "" {
		return "", false
	}
	path, ok := ResolveByGlob(r.rootDir, globPattern)
	if ok {
		r.logger.Debug("resolved dataset via glob fallback", "type", logicalType, "path", path)
	}
	return path, ok
}
