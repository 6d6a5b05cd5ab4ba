package compress

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/openmandriva/createmd/internal/models"
)

// Format identifies a compression filter. The ordinal values are part
// of the on-disk contract and must not be reordered.
type Format int

const (
	FormatGzip Format = iota
	FormatBzip2
	FormatCompress
	FormatLzma
	FormatXz
	FormatLzip
	FormatLrzip
	FormatLzop
	FormatGrzip
	FormatLz4
	FormatZstd
)

var extensions = [...]string{
	FormatGzip:     ".gz",
	FormatBzip2:    ".bz2",
	FormatCompress: ".Z",
	FormatLzma:     ".lzma",
	FormatXz:       ".xz",
	FormatLzip:     ".lz",
	FormatLrzip:    ".lrz",
	FormatLzop:     ".lzop",
	FormatGrzip:    ".grz",
	FormatLz4:      ".lz4",
	FormatZstd:     ".zstd",
}

// Extension returns the filename suffix for the format.
func (f Format) Extension() string {
	if int(f) < 0 || int(f) >= len(extensions) {
		return ""
	}
	return extensions[f]
}

// ErrUnsupportedFilter is returned for formats that have a stable
// ordinal and extension but no codec.
var ErrUnsupportedFilter = fmt.Errorf("unsupported compression filter")

func newWriter(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case FormatGzip:
		return gzip.NewWriter(w), nil
	case FormatBzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	case FormatLzma:
		return lzma.NewWriter(w)
	case FormatXz:
		return xz.NewWriter(w)
	case FormatLzip:
		return lzip.NewWriter(w), nil
	case FormatLz4:
		return lz4.NewWriter(w), nil
	case FormatZstd:
		return zstd.NewWriter(w)
	default:
		return nil, &models.MdError{Type: models.ErrArchive, Err: ErrUnsupportedFilter}
	}
}

// CompressFile compresses a regular file with the given filter. When
// target is empty the output lands next to the source with the
// filter's extension appended. The target is not created when the
// source is missing or not a regular file.
func CompressFile(source string, format Format, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: source, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &models.MdError{Type: models.ErrIo, Path: source,
			Err: fmt.Errorf("not a regular file")}
	}

	src, err := os.Open(source)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: source, Err: err}
	}
	defer src.Close()

	if target == "" {
		target = source + format.Extension()
	}

	dst, err := os.Create(target)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
	}

	w, err := newWriter(dst, format)
	if err != nil {
		dst.Close()
		os.Remove(target)
		return err
	}

	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		dst.Close()
		os.Remove(target)
		return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
	}
	if err := w.Close(); err != nil {
		dst.Close()
		os.Remove(target)
		return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
	}
	return dst.Close()
}

// UncompressedFile reads a single-stream compressed file fully into
// memory. The filter is detected from magic bytes; data without a
// recognized magic is returned as-is.
func UncompressedFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}

	r, err := sniffReader(raw)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrArchive, Path: path, Err: err}
	}
	if r == nil {
		return raw, nil
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrArchive, Path: path, Err: err}
	}
	return data, nil
}

func sniffReader(raw []byte) (io.ReadCloser, error) {
	br := bytes.NewReader(raw)
	switch {
	case hasPrefix(raw, 0x1f, 0x8b):
		r, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return r, nil
	case hasPrefix(raw, 0xfd, '7', 'z', 'X', 'Z', 0x00):
		r, err := xz.NewReader(br)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	case hasPrefix(raw, 0x28, 0xb5, 0x2f, 0xfd):
		r, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return r.IOReadCloser(), nil
	case hasPrefix(raw, 'B', 'Z', 'h'):
		r, err := bzip2.NewReader(br, nil)
		if err != nil {
			return nil, err
		}
		return r, nil
	case hasPrefix(raw, 'L', 'Z', 'I', 'P'):
		r, err := lzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	case hasPrefix(raw, 0x04, 0x22, 0x4d, 0x18):
		return io.NopCloser(lz4.NewReader(br)), nil
	case hasPrefix(raw, 0x5d, 0x00, 0x00):
		r, err := lzma.NewReader(br)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	case hasPrefix(raw, 0x1f, 0x9d):
		return nil, ErrUnsupportedFilter
	default:
		return nil, nil
	}
}

func hasPrefix(data []byte, magic ...byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

// Decompressor wraps an RPM payload stream with the decoder named by
// the package's payload compressor tag. An empty name means gzip, the
// historical default.
func Decompressor(r io.Reader, name string) (io.ReadCloser, error) {
	switch name {
	case "", "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gz, nil
	case "xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case "lzma":
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	case "bzip2":
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, err
		}
		return br, nil
	case "lzip":
		lr, err := lzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	default:
		return nil, fmt.Errorf("unknown payload compressor %q", name)
	}
}
