package archive

import (
	"io"
	"strings"

	"github.com/cavaliergopher/cpio"
)

// PayloadEntry is one file from an RPM cpio payload. Name has the
// leading "." that RPM payloads prefix onto paths stripped off.
type PayloadEntry struct {
	Name string
	Mode int64
	Size int64
	Data io.Reader
}

// PayloadReader walks the cpio entries of an already-decompressed RPM
// payload stream.
type PayloadReader struct {
	cr *cpio.Reader
}

// NewPayloadReader wraps a decompressed payload stream.
func NewPayloadReader(r io.Reader) *PayloadReader {
	return &PayloadReader{cr: cpio.NewReader(r)}
}

// Next returns the next regular file entry, or io.EOF when the
// payload is exhausted.
func (p *PayloadReader) Next() (*PayloadEntry, error) {
	for {
		hdr, err := p.cr.Next()
		if err != nil {
			return nil, err
		}
		if !hdr.Mode.IsRegular() {
			continue
		}
		name := hdr.Name
		name = strings.TrimPrefix(name, ".")
		return &PayloadEntry{
			Name: name,
			Mode: int64(hdr.Mode),
			Size: hdr.Size,
			Data: p.cr,
		}, nil
	}
}
