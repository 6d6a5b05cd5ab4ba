package archive

import (
	"archive/tar"
	"io"
	"os"
	"time"

	"github.com/openmandriva/createmd/internal/models"
)

// Writer emits a tar stream one in-memory file at a time.
type Writer struct {
	f  *os.File
	tw *tar.Writer
}

// NewWriter creates a tar archive at path. The stream stays open
// until Close so entries can be appended across a whole repo pass.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	return &Writer{f: f, tw: tar.NewWriter(f)}, nil
}

// AddFile appends a regular file entry with mode 0644.
func (w *Writer) AddFile(name string, data []byte) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     int64(len(data)),
		Mode:     0644,
		ModTime:  time.Now(),
		Format:   tar.FormatPAX,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return &models.MdError{Type: models.ErrArchive, Path: name, Err: err}
	}
	if _, err := w.tw.Write(data); err != nil {
		return &models.MdError{Type: models.ErrArchive, Path: name, Err: err}
	}
	return nil
}

// Close flushes the archive trailer and closes the file.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Entry is one regular file read from an archive.
type Entry struct {
	Name string
	Mode int64
	Data []byte
}

// Reader iterates over the regular files of a tar stream, with
// transparent decompression of the outer filter handled by the
// caller. Entry names keep the form stored in the archive.
type Reader struct {
	tr *tar.Reader
}

// NewReader wraps an uncompressed tar stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{tr: tar.NewReader(r)}
}

// Next returns the next regular file entry, or io.EOF at the end of
// the archive. Non-regular entries are skipped.
func (r *Reader) Next() (*Entry, error) {
	for {
		hdr, err := r.tr.Next()
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(r.tr)
		if err != nil {
			return nil, err
		}
		return &Entry{Name: hdr.Name, Mode: hdr.Mode, Data: data}, nil
	}
}
