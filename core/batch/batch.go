// Package batch drives a photostamp run: directory traversal, the worker
// pool, the per-file error boundary, and the end-of-run summary. All pixel
// and metadata work is delegated to the pure core packages; this is the
// only place that touches the filesystem.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"photostamp/core"
	"photostamp/core/fingerprint"
	"photostamp/core/jpg"
	"photostamp/core/naming"
	"photostamp/core/stamp"
)

// jpegQuality is the fixed re-encode quality after stamping.
const jpegQuality = 95

// Runner executes one batch over a directory.
type Runner struct {
	cfg      core.StampConfig
	stamper  *stamp.Stamper // nil when stamping is off
	registry *naming.Registry
	printer  *core.Printer
}

// New validates the configuration and prepares a Runner. A requested but
// unusable font is reported here, before any file can be touched.
func New(cfg core.StampConfig, printer *core.Printer) (*Runner, error) {
	r := &Runner{
		cfg:      cfg,
		registry: naming.NewRegistry(),
		printer:  printer,
	}
	if cfg.StampDate {
		s, err := stamp.New(cfg.FontPath)
		if err != nil {
			return nil, err
		}
		r.stamper = s
	}
	return r, nil
}

// Run processes every eligible JPEG under the configured directory and
// returns the batch summary. Per-file failures are folded into the summary;
// the returned error is reserved for fatal conditions (unreadable root).
func (r *Runner) Run(ctx context.Context) (core.Summary, error) {
	files, err := r.listFiles()
	if err != nil {
		return core.Summary{}, fmt.Errorf("scanning %s: %w", r.cfg.Path, err)
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan string)
	results := make(chan core.FileResult, workers)
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- r.processFile(path)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- path:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var summary core.Summary
	for res := range results {
		summary.Add(res)
		r.printer.PrintResult(res)
	}
	return summary, ctx.Err()
}

// listFiles enumerates candidate JPEGs. Hidden files and directories are
// skipped; subdirectories only enter with Recurse.
func (r *Runner) listFiles() ([]string, error) {
	var files []string
	root := r.cfg.Path
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || !r.cfg.Recurse {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if core.IsJPEGPath(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// processFile is the per-file boundary: whatever goes wrong inside stays a
// FileResult, never an aborted batch. The original file is either replaced
// by a complete, validated output or left exactly as it was.
func (r *Runner) processFile(path string) core.FileResult {
	res := core.FileResult{Source: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Outcome = core.OutcomeFailed
		res.Err = err
		return res
	}
	if !core.IsJPEGMagic(data) {
		res.Outcome = core.OutcomeSkipped
		res.Reason = "not a JPEG stream"
		return res
	}

	ts, ok, err := jpg.ExtractTimestamp(data)
	if err != nil {
		res.Outcome = core.OutcomeFailed
		res.Err = core.NewFileError(path, core.ErrMalformedMetadata, err)
		return res
	}
	if !ok {
		res.Outcome = core.OutcomeSkipped
		res.Reason = "no capture timestamp"
		return res
	}
	res.Timestamp = ts
	res.Digest = fingerprint.Digest(data)

	base := naming.Canonical(ts, res.Digest)
	assigned, collided := r.registry.Claim(base)
	target := filepath.Join(filepath.Dir(path), assigned+".jpg")
	// the registry only knows this batch; leftovers from earlier runs on
	// disk count as collisions too
	for target != path && fileExists(target) {
		assigned, _ = r.registry.Claim(base)
		collided = true
		target = filepath.Join(filepath.Dir(path), assigned+".jpg")
	}
	res.Collision = collided
	res.Target = target

	if target == path && !r.cfg.StampDate {
		res.Outcome = core.OutcomeSkipped
		res.Reason = "already canonical"
		return res
	}
	if r.cfg.DryRun {
		res.Outcome = core.OutcomeRenamed
		return res
	}

	if r.cfg.StampDate {
		out, stamped, err := r.stampBytes(path, data, ts.Format(naming.DateFormat))
		if err != nil {
			res.Outcome = core.OutcomeFailed
			res.Err = err
			return res
		}
		res.Stamped = stamped
		if stamped {
			if err := r.replaceFile(path, target, out); err != nil {
				res.Outcome = core.OutcomeFailed
				res.Err = err
				return res
			}
			res.Outcome = core.OutcomeRenamed
			return res
		}
		// too small to stamp: fall through to a plain rename
	}

	if err := os.Rename(path, target); err != nil {
		res.Outcome = core.OutcomeFailed
		res.Err = err
		return res
	}
	res.Outcome = core.OutcomeRenamed
	return res
}

// stampBytes decodes, uprights, stamps, re-encodes, and reattaches EXIF per
// configuration. stamped=false (with nil error) means the image was below
// the minimum renderable size and pixels were left alone.
func (r *Runner) stampBytes(path string, data []byte, date string) ([]byte, bool, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, core.NewFileError(path, core.ErrDecode, err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	orientation, hasOrientation := jpg.Orientation(data)
	rotated := hasOrientation && (orientation == 3 || orientation == 6 || orientation == 8)
	if rotated {
		rgba = stamp.Upright(rgba, orientation)
	}

	if !r.stamper.Stamp(rgba, date) {
		return nil, false, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, core.NewFileError(path, core.ErrEncode, err)
	}
	out := buf.Bytes()

	if r.cfg.KeepExif {
		segs, err := jpg.ScanSegments(data)
		if err != nil {
			// already validated during extraction
			return nil, false, core.NewFileError(path, core.ErrMalformedMetadata, err)
		}
		if app1 := jpg.FindExif(segs); app1 != nil {
			reattach := *app1
			if rotated {
				reattach = jpg.NormalizeOrientation(reattach)
			}
			out, err = jpg.InsertExif(out, reattach)
			if err != nil {
				return nil, false, core.NewFileError(path, core.ErrEncode, err)
			}
		}
	}

	if _, err := jpg.ScanSegments(out); err != nil {
		return nil, false, core.NewFileError(path, core.ErrEncode, err)
	}
	return out, true, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// replaceFile writes the stamped bytes next to the source and swaps them
// in with renames, so a crash mid-write can never leave a half-written
// photo under either name.
func (r *Runner) replaceFile(source, target string, data []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".photostamp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	if target != source {
		return os.Remove(source)
	}
	return nil
}
