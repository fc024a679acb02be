package batch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"photostamp/core"
	"photostamp/core/fingerprint"
	"photostamp/core/jpg"
)

func testJPEGBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegWithDate(t *testing.T, w, h int, date string) []byte {
	t.Helper()
	seg := jpg.BuildExifSegment(map[uint16]string{jpg.TagDateTimeOriginal: date}, 0)
	out, err := jpg.InsertExif(testJPEGBytes(t, w, h), seg)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func runBatch(t *testing.T, cfg core.StampConfig) core.Summary {
	t.Helper()
	cfg.Workers = 1
	r, err := New(cfg, &core.Printer{Writer: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return summary
}

func TestRunRenamesToCanonicalName(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 48, 32, "2023:01:23 14:30:05")
	writeFile(t, filepath.Join(dir, "a.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Renamed != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("summary: %+v", summary)
	}

	want := filepath.Join(dir, "2023-01-23_1430_"+fingerprint.Digest(data)+".jpg")
	got, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("canonical file missing: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("plain rename altered file contents")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatal("original name still present")
	}
}

func TestRunSkipsFilesWithoutTimestamp(t *testing.T) {
	dir := t.TempDir()
	data := testJPEGBytes(t, 32, 32)
	writeFile(t, filepath.Join(dir, "plain.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Skipped != 1 || summary.Renamed != 0 {
		t.Fatalf("summary: %+v", summary)
	}

	got, err := os.ReadFile(filepath.Join(dir, "plain.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("skipped file was modified")
	}
}

func TestRunSkipsAlreadyCanonical(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 32, 32, "2023:01:23 14:30:05")
	name := "2023-01-23_1430_" + fingerprint.Digest(data) + ".jpg"
	writeFile(t, filepath.Join(dir, name), data)

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Skipped != 1 || summary.Renamed != 0 {
		t.Fatalf("summary: %+v", summary)
	}
}

func TestRunContinuesPastPerFileFailure(t *testing.T) {
	dir := t.TempDir()

	garbage := jpg.Segment{Marker: 0xE1, Data: []byte("Exif\x00\x00garbage")}
	corrupt, err := jpg.InsertExif(testJPEGBytes(t, 32, 32), garbage)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "bad.jpg"), corrupt)

	good := jpegWithDate(t, 32, 32, "2021:05:10 12:00:00")
	writeFile(t, filepath.Join(dir, "good.jpg"), good)

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Failed != 1 || summary.Renamed != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	got, err := os.ReadFile(filepath.Join(dir, "bad.jpg"))
	if err != nil {
		t.Fatalf("failed file must keep its name: %v", err)
	}
	if !bytes.Equal(got, corrupt) {
		t.Fatal("failed file was modified")
	}
}

func TestRunStampKeepsExif(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 640, 480, "2023:01:23 14:30:05")
	writeFile(t, filepath.Join(dir, "photo.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir, StampDate: true, KeepExif: true})
	if summary.Renamed != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	// the digest in the name comes from the original bytes, not the
	// stamped output
	target := filepath.Join(dir, "2023-01-23_1430_"+fingerprint.Digest(data)+".jpg")
	out, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("stamped file missing: %v", err)
	}
	if bytes.Equal(out, data) {
		t.Fatal("stamping left the bytes unchanged")
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("stamped output does not decode: %v", err)
	}

	ts, ok, err := jpg.ExtractTimestamp(out)
	if err != nil || !ok {
		t.Fatalf("timestamp lost after stamping (ok=%v, err=%v)", ok, err)
	}
	if ts.Year() != 2023 || ts.Minute() != 30 {
		t.Fatalf("wrong timestamp after stamping: %v", ts)
	}
}

func TestRunStampWithoutKeepDropsExif(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 640, 480, "2023:01:23 14:30:05")
	writeFile(t, filepath.Join(dir, "photo.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir, StampDate: true})
	if summary.Renamed != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	target := filepath.Join(dir, "2023-01-23_1430_"+fingerprint.Digest(data)+".jpg")
	out, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	segs, err := jpg.ScanSegments(out)
	if err != nil {
		t.Fatal(err)
	}
	if jpg.FindExif(segs) != nil {
		t.Fatal("EXIF present in output without keep-exif")
	}
}

func TestRunResolvesCollisions(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 32, 32, "2023:01:23 14:30:05")
	writeFile(t, filepath.Join(dir, "aa.jpg"), data)
	writeFile(t, filepath.Join(dir, "bb.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Renamed != 2 {
		t.Fatalf("summary: %+v", summary)
	}

	base := "2023-01-23_1430_" + fingerprint.Digest(data)
	for _, name := range []string{base + ".jpg", base + "_1.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}

func TestRunCollisionWithEarlierRun(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 32, 32, "2023:01:23 14:30:05")
	base := "2023-01-23_1430_" + fingerprint.Digest(data)

	// leftover from a previous batch occupies the canonical name
	writeFile(t, filepath.Join(dir, base+".jpg"), data)
	writeFile(t, filepath.Join(dir, "new.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Renamed != 1 || summary.Skipped != 1 {
		t.Fatalf("summary: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(dir, base+"_1.jpg")); err != nil {
		t.Fatalf("expected suffixed name: %v", err)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	data := jpegWithDate(t, 32, 32, "2023:01:23 14:30:05")
	writeFile(t, filepath.Join(dir, "a.jpg"), data)

	summary := runBatch(t, core.StampConfig{Path: dir, DryRun: true, StampDate: true})
	if summary.Renamed != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.jpg" {
		t.Fatalf("dry run changed the directory: %v", entries)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("dry run modified file contents")
	}
}

func TestRunRecursion(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	data := jpegWithDate(t, 32, 32, "2023:01:23 14:30:05")
	writeFile(t, filepath.Join(sub, "deep.jpg"), data)

	if summary := runBatch(t, core.StampConfig{Path: dir}); summary.Total() != 0 {
		t.Fatalf("non-recursive run entered a subdirectory: %+v", summary)
	}

	summary := runBatch(t, core.StampConfig{Path: dir, Recurse: true})
	if summary.Renamed != 1 {
		t.Fatalf("recursive summary: %+v", summary)
	}
}

func TestRunIgnoresNonJPEGExtensionsAndFakeJPEGs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("not an image"))
	writeFile(t, filepath.Join(dir, "fake.jpg"), []byte("jpeg in name only"))

	summary := runBatch(t, core.StampConfig{Path: dir})
	if summary.Renamed != 0 || summary.Failed != 0 || summary.Skipped != 1 {
		t.Fatalf("summary: %+v", summary)
	}
}

func TestNewRejectsMissingFont(t *testing.T) {
	cfg := core.StampConfig{Path: ".", StampDate: true, FontPath: filepath.Join(t.TempDir(), "absent.ttf")}
	if _, err := New(cfg, &core.Printer{Writer: io.Discard}); err == nil {
		t.Fatal("missing font accepted")
	}
}
