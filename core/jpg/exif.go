package jpg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"photostamp/core"
)

// EXIF date layouts. The dashed variant covers a known Samsung camera bug
// in panorama shots.
var exifDateLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
}

// ExtractTimestamp pulls the original-capture timestamp out of raw JPEG
// bytes. Returns ok=false with a nil error when the stream carries no EXIF
// segment or no usable date tag — such files are skipped, not failed. A
// non-nil error wraps core.ErrMalformedMetadata and means the metadata is
// present but structurally broken.
func ExtractTimestamp(data []byte) (time.Time, bool, error) {
	segs, err := ScanSegments(data)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", core.ErrMalformedMetadata, err)
	}
	app1 := FindExif(segs)
	if app1 == nil {
		return time.Time{}, false, nil
	}

	x, err := exif.Decode(bytes.NewReader(app1.Data[len(exifHeader):]))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", core.ErrMalformedMetadata, err)
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil || tag == nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		// ASCII values may carry their NUL terminator through decoding
		val = strings.TrimSpace(strings.TrimRight(val, "\x00"))
		for _, layout := range exifDateLayouts {
			if ts, err := time.Parse(layout, val); err == nil {
				return ts, true, nil
			}
		}
	}
	// EXIF present but no date tag: a skip, not a failure
	return time.Time{}, false, nil
}

// Orientation returns the EXIF orientation value (1..8) when present.
// Best effort: any parse problem reads as "no orientation".
func Orientation(data []byte) (int, bool) {
	segs, err := ScanSegments(data)
	if err != nil {
		return 0, false
	}
	app1 := FindExif(segs)
	if app1 == nil {
		return 0, false
	}
	x, err := exif.Decode(bytes.NewReader(app1.Data[len(exifHeader):]))
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil || tag == nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 0, false
	}
	return v, true
}

const orientationTag = 0x0112

// NormalizeOrientation returns a copy of an EXIF APP1 segment with the
// orientation tag rewritten to 1 (upright). Needed when the pixels were
// rotated upright before stamping: carrying the old orientation over would
// make viewers rotate the stamped image a second time. Segments without
// the tag come back unchanged.
func NormalizeOrientation(app1 Segment) Segment {
	data := append([]byte(nil), app1.Data...)
	tiffBody := data[len(exifHeader):]
	if len(tiffBody) < 8 {
		return Segment{Marker: app1.Marker, Data: data}
	}

	var bo binary.ByteOrder
	switch {
	case tiffBody[0] == 'I' && tiffBody[1] == 'I':
		bo = binary.LittleEndian
	case tiffBody[0] == 'M' && tiffBody[1] == 'M':
		bo = binary.BigEndian
	default:
		return Segment{Marker: app1.Marker, Data: data}
	}

	ifdOffset := int(bo.Uint32(tiffBody[4:8]))
	if ifdOffset+2 > len(tiffBody) {
		return Segment{Marker: app1.Marker, Data: data}
	}
	count := int(bo.Uint16(tiffBody[ifdOffset : ifdOffset+2]))
	for i := 0; i < count; i++ {
		entry := ifdOffset + 2 + i*12
		if entry+12 > len(tiffBody) {
			break
		}
		if bo.Uint16(tiffBody[entry:entry+2]) == orientationTag {
			// SHORT value stored inline in the value/offset field
			bo.PutUint16(tiffBody[entry+8:entry+10], 1)
			break
		}
	}
	return Segment{Marker: app1.Marker, Data: data}
}
