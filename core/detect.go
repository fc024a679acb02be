package core

import (
	"bytes"
	"path/filepath"
	"strings"
)

var jpegExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
}

// IsJPEGPath reports whether path carries a JPEG extension
// (case-insensitive).
func IsJPEGPath(path string) bool {
	return jpegExts[strings.ToLower(filepath.Ext(path))]
}

// IsJPEGMagic reports whether the leading bytes identify a JPEG stream
// (FF D8 FF). Extension checks alone are not trusted: a stray file renamed
// to .jpg must not be fed to the pipeline.
func IsJPEGMagic(b []byte) bool {
	return len(b) >= 3 && bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF})
}
