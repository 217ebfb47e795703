package domain

import "time"

// ManifestEntry describes one artifact previously produced by an upstream
// extractor. Entries are written by the producer and read-only here.
// Several entries may share a logical type and source; the most recent
// timestamp wins during resolution.
type ManifestEntry struct {
	FilePath  string    `json:"file_path"` // relative to the raw base directory
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	YearStart *int      `json:"year_start,omitempty"`
	YearEnd   *int      `json:"year_end,omitempty"`
}
