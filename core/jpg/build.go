package jpg

import (
	"bytes"
	"encoding/binary"
)

// EXIF tag IDs used by the builder.
const (
	TagDateTime          = 0x0132
	TagDateTimeOriginal  = 0x9003
	TagDateTimeDigitized = 0x9004
	TagImageDescription  = 0x010E
	TagSoftware          = 0x0131
)

// BuildExifSegment constructs a minimal EXIF APP1 segment: a little-endian
// TIFF block with a single IFD0 holding the given ASCII fields and, when
// orientation > 0, an orientation SHORT entry. Fixture generation for tests
// and tooling; the pipeline itself only ever reattaches segments it read
// from the source file.
func BuildExifSegment(ascii map[uint16]string, orientation int) Segment {
	type entry struct {
		tag   uint16
		value string
	}
	var entries []entry
	for tag, val := range ascii {
		entries = append(entries, entry{tag: tag, value: val})
	}
	// deterministic IFD order
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].tag < entries[i].tag {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	numEntries := len(entries)
	if orientation > 0 {
		numEntries++
	}

	var buf bytes.Buffer
	buf.Write(exifHeader)
	buf.WriteString("II")                     // byte order
	buf.Write([]byte{0x2A, 0x00})             // TIFF magic
	buf.Write([]byte{0x08, 0x00, 0x00, 0x00}) // offset of IFD0

	ifdSize := 2 + numEntries*12 + 4 // count + entries + next-IFD offset
	valOffset := 8 + ifdSize         // out-of-line values follow the IFD

	var ifd, values bytes.Buffer
	le16 := func(v uint16) { binary.Write(&ifd, binary.LittleEndian, v) }
	le32 := func(v uint32) { binary.Write(&ifd, binary.LittleEndian, v) }

	le16(uint16(numEntries))
	if orientation > 0 {
		le16(orientationTag)
		le16(3) // SHORT
		le32(1)
		var inline [4]byte
		binary.LittleEndian.PutUint16(inline[:2], uint16(orientation))
		ifd.Write(inline[:])
	}
	for _, e := range entries {
		val := e.value + "\x00"
		le16(e.tag)
		le16(2) // ASCII
		le32(uint32(len(val)))
		if len(val) <= 4 {
			var inline [4]byte
			copy(inline[:], val)
			ifd.Write(inline[:])
		} else {
			le32(uint32(valOffset + values.Len()))
			values.WriteString(val)
		}
	}
	le32(0) // no next IFD

	buf.Write(ifd.Bytes())
	buf.Write(values.Bytes())
	return Segment{Marker: markerAPP1, Data: buf.Bytes()}
}
