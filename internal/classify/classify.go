// Package classify determines the file extension of downloaded content from
// its bytes rather than from any declared content type.
package classify

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// sniffLen bounds how much of the buffer is inspected as text.
const sniffLen = 1024

// ErrExtension is returned when the content is not a recognizable image.
var ErrExtension = errors.New("classify: unable to determine image extension")

var svgMarker = []byte("<svg")

// Extension returns the file extension (without a leading dot) for buf.
func Extension(buf []byte) (string, error) {
	if isSVG(buf) {
		return "svg", nil
	}
	kind, err := filetype.Match(buf)
	if err != nil || kind == filetype.Unknown {
		return "", ErrExtension
	}
	if kind.MIME.Type != "image" {
		return "", ErrExtension
	}
	return kind.Extension, nil
}

// isSVG reports whether the text prefix of buf contains an svg element.
// A prefix that is not valid UTF-8 never matches.
func isSVG(buf []byte) bool {
	prefix := buf
	if len(prefix) > sniffLen {
		prefix = trimPartialRune(prefix[:sniffLen])
	}
	if !utf8.Valid(prefix) {
		return false
	}
	return bytes.Contains(prefix, svgMarker)
}

// trimPartialRune drops a multi-byte sequence cut off by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}
