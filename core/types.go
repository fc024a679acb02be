// Package core defines the shared types, configuration, and error model
// for photostamp.
package core

import "time"

// StampConfig holds one run's configuration. It is built once by the CLI
// and never mutated afterwards.
type StampConfig struct {
	// StampDate burns the capture date (YYYY-MM-DD) into the pixel data.
	StampDate bool
	// Recurse descends into subdirectories when scanning.
	Recurse bool
	// KeepExif reattaches the original EXIF segment after a stamping
	// re-encode. Without stamping the file bytes are never rewritten,
	// so EXIF survives regardless.
	KeepExif bool
	// Path is the directory to process. Empty means the working
	// directory, gated behind an interactive confirmation.
	Path string
	// FontPath optionally points at a TTF file to stamp with instead of
	// the built-in segment face.
	FontPath string
	// Workers is the size of the processing pool. Zero or negative
	// selects one worker per CPU.
	Workers int
	// DryRun reports planned renames without touching any file.
	DryRun bool
	// AssumeYes skips the interactive confirmation.
	AssumeYes bool
}

// Outcome classifies what happened to a single file.
type Outcome int

const (
	// OutcomeRenamed means the file was renamed (and possibly stamped).
	OutcomeRenamed Outcome = iota
	// OutcomeSkipped means the file was left byte-for-byte untouched,
	// typically because it carries no capture timestamp.
	OutcomeSkipped
	// OutcomeFailed means a per-file error occurred; the original file
	// is intact.
	OutcomeFailed
)

// FileResult records the handling of one file within a batch.
type FileResult struct {
	Source    string    // original path
	Target    string    // final path, empty unless renamed
	Timestamp time.Time // capture timestamp, zero when absent
	Digest    string    // 8-hex content digest, empty when skipped early
	Outcome   Outcome
	Collision bool   // canonical name needed a numeric suffix
	Stamped   bool   // date stamp was rendered into the pixels
	Reason    string // human-readable skip reason
	Err       error  // per-file failure, nil otherwise
}

// Summary aggregates a finished batch.
type Summary struct {
	Renamed int
	Skipped int
	Failed  int
}

// Add folds one result into the summary.
func (s *Summary) Add(r FileResult) {
	switch r.Outcome {
	case OutcomeRenamed:
		s.Renamed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// Total returns the number of files the batch looked at.
func (s *Summary) Total() int {
	return s.Renamed + s.Skipped + s.Failed
}
