package renderer

import (
	"bytes"
	"io"
)

// optionalSection buffers a section of a document and copies it to w only
// when section reports something worth showing, so that empty tables leave
// no orphan heading behind.
func optionalSection(w io.Writer, section func(io.Writer) bool) error {
	var buf bytes.Buffer
	if !section(&buf) {
		return nil
	}
	_, err := buf.WriteTo(w)
	return err
}
