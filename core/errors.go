package core

import (
	"errors"
	"fmt"
)

// Sentinel kinds for per-file and fatal failures. Per-file errors wrap one
// of these so callers can classify with errors.Is without losing the
// underlying cause.
var (
	// ErrMalformedMetadata marks an EXIF segment that is present but
	// structurally invalid (truncated, bad length prefix). The file is
	// skipped, never rewritten.
	ErrMalformedMetadata = errors.New("malformed metadata segment")

	// ErrDecode marks a pixel decode failure during stamping.
	ErrDecode = errors.New("image decode failed")

	// ErrEncode marks a structurally invalid byte stream after
	// re-encoding. The original file is left intact.
	ErrEncode = errors.New("image encode failed")

	// ErrFontLoad marks an unusable font resource. Fatal: stamping
	// cannot proceed, so the run aborts before any file is touched.
	ErrFontLoad = errors.New("font load failed")
)

// FileError ties a failure to the offending path.
type FileError struct {
	Path string
	Kind error // one of the sentinel kinds above
	Err  error // underlying cause, may be nil
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

func (e *FileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewFileError wraps cause as a kind-classified per-file error.
func NewFileError(path string, kind, cause error) *FileError {
	return &FileError{Path: path, Kind: kind, Err: cause}
}
