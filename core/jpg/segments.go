// Package jpg implements the JPEG container and EXIF handling for
// photostamp: segment scanning, capture-timestamp extraction, and
// reattachment of the original metadata segment after a re-encode.
package jpg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// JPEG marker bytes of interest.
const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
)

// exifHeader prefixes the APP1 payload of an EXIF segment. APP1 is also
// used for XMP, so the prefix must be checked, not just the marker.
var exifHeader = []byte("Exif\x00\x00")

// Segment is one marker segment of a JPEG stream. Standalone markers
// (SOI, EOI, RSTn) carry no data; the synthetic scanMarker 0x00 holds the
// entropy-coded bytes following SOS.
type Segment struct {
	Marker byte
	Data   []byte
}

// scanMarker tags the raw entropy-coded data after SOS.
const scanMarker = 0x00

// IsExif reports whether s is the APP1 segment carrying EXIF data.
func (s Segment) IsExif() bool {
	return s.Marker == markerAPP1 && bytes.HasPrefix(s.Data, exifHeader)
}

// ScanSegments splits a JPEG byte stream into its marker segments.
// Vendor-specific APPn segments are retained opaquely. The returned error
// indicates a structurally invalid container: missing SOI, a truncated
// length prefix, or a declared length running past the end of the data.
func ScanSegments(data []byte) ([]Segment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, errors.New("missing SOI marker")
	}
	segs := []Segment{{Marker: markerSOI}}

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("expected marker at offset %d, found 0x%02X", i, data[i])
		}
		i++
		// fill bytes before a marker are legal
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, errors.New("truncated marker")
		}
		marker := data[i]
		i++

		switch {
		case marker == markerEOI:
			segs = append(segs, Segment{Marker: markerEOI})
			return segs, nil
		case marker >= 0xD0 && marker <= 0xD7: // RSTn, standalone
			segs = append(segs, Segment{Marker: marker})
			continue
		case marker == 0x01: // TEM, standalone
			segs = append(segs, Segment{Marker: marker})
			continue
		}

		if i+2 > len(data) {
			return nil, errors.New("truncated segment length prefix")
		}
		segLen := int(binary.BigEndian.Uint16(data[i : i+2]))
		if segLen < 2 {
			return nil, fmt.Errorf("segment 0x%02X declares impossible length %d", marker, segLen)
		}
		if i+segLen > len(data) {
			return nil, fmt.Errorf("segment 0x%02X length %d runs past end of data", marker, segLen)
		}
		body := append([]byte(nil), data[i+2:i+segLen]...)
		segs = append(segs, Segment{Marker: marker, Data: body})
		i += segLen

		if marker == markerSOS {
			// entropy-coded data up to EOI; 0xFF 0x00 stuffing and
			// RSTn markers inside it are not segment boundaries
			end := findEOI(data, i)
			if end < 0 {
				return nil, errors.New("missing EOI marker")
			}
			segs = append(segs, Segment{Marker: scanMarker, Data: append([]byte(nil), data[i:end]...)})
			segs = append(segs, Segment{Marker: markerEOI})
			return segs, nil
		}
	}
	return nil, errors.New("missing EOI marker")
}

func findEOI(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1] == markerEOI {
			return i
		}
	}
	return -1
}

// EncodeSegments reassembles segments into a JPEG byte stream, recomputing
// each length prefix from the payload it carries.
func EncodeSegments(segs []Segment) []byte {
	var buf bytes.Buffer
	for _, seg := range segs {
		switch {
		case seg.Marker == scanMarker:
			buf.Write(seg.Data)
		case seg.Marker == markerSOI || seg.Marker == markerEOI ||
			seg.Marker == 0x01 || (seg.Marker >= 0xD0 && seg.Marker <= 0xD7):
			buf.Write([]byte{0xFF, seg.Marker})
		default:
			buf.Write([]byte{0xFF, seg.Marker})
			var length [2]byte
			binary.BigEndian.PutUint16(length[:], uint16(len(seg.Data)+2))
			buf.Write(length[:])
			buf.Write(seg.Data)
		}
	}
	return buf.Bytes()
}

// FindExif returns the EXIF APP1 segment, or nil when the stream carries
// none. XMP APP1 segments do not match.
func FindExif(segs []Segment) *Segment {
	for i := range segs {
		if segs[i].IsExif() {
			return &segs[i]
		}
	}
	return nil
}

// InsertExif splices an EXIF APP1 segment into a freshly encoded JPEG,
// after the APP0/JFIF segment when one is present and directly after SOI
// otherwise. The stdlib encoder never emits APP1, so no existing EXIF can
// be clobbered. The rebuilt stream is validated by re-scanning before it
// is returned.
func InsertExif(encoded []byte, app1 Segment) ([]byte, error) {
	if !app1.IsExif() {
		return nil, errors.New("segment to insert is not EXIF APP1")
	}
	segs, err := ScanSegments(encoded)
	if err != nil {
		return nil, fmt.Errorf("encoded stream unparsable: %w", err)
	}

	at := 1 // directly after SOI
	if len(segs) > 1 && segs[1].Marker == markerAPP0 {
		at = 2
	}
	spliced := make([]Segment, 0, len(segs)+1)
	spliced = append(spliced, segs[:at]...)
	spliced = append(spliced, app1)
	spliced = append(spliced, segs[at:]...)

	out := EncodeSegments(spliced)
	if _, err := ScanSegments(out); err != nil {
		return nil, fmt.Errorf("spliced stream invalid: %w", err)
	}
	return out, nil
}
