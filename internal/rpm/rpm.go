package rpm

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/sassoftware/go-rpmutils"

	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/utils"
)

// sigHeaderOffset is where the signature header starts: a 96-byte
// lead plus the 8-byte header preamble magic. Valid for RPM v3/v4.
const sigHeaderOffset = 104

// Rpm inspects one package file. The parsed header is retained for
// the lifetime of the inspector; the file descriptor is closed before
// the constructor returns.
type Rpm struct {
	path  string
	hdr   *rpmutils.RpmHeader
	nevra *rpmutils.NEVRA

	fileSize  int64
	fileMtime int64

	headersStart uint64
	headersEnd   uint64

	sha256 string
}

// Open parses the RPM at path. Digest and signature verification is
// skipped, the file is treated as a container.
func Open(path string) (*Rpm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}

	start, end, err := headerRange(f)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrRpmParse, Path: path, Err: err}
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	hdr, err := rpmutils.ReadHeader(f)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrRpmParse, Path: path, Err: err}
	}
	nevra, err := hdr.GetNEVRA()
	if err != nil {
		return nil, &models.MdError{Type: models.ErrRpmParse, Path: path, Err: err}
	}

	return &Rpm{
		path:         path,
		hdr:          hdr,
		nevra:        nevra,
		fileSize:     info.Size(),
		fileMtime:    info.ModTime().Unix(),
		headersStart: start,
		headersEnd:   end,
	}, nil
}

// headerRange computes the byte offsets of the main header block from
// the raw preamble words, without trusting the parsed header.
func headerRange(f *os.File) (uint64, uint64, error) {
	var words [2]uint32

	if _, err := f.Seek(sigHeaderOffset, 0); err != nil {
		return 0, 0, err
	}
	if err := binary.Read(f, binary.BigEndian, &words); err != nil {
		return 0, 0, err
	}
	sigindex, sigdata := uint64(words[0]), uint64(words[1])

	sigsize := sigdata + 16*sigindex
	padding := (8 - sigsize%8) % 8
	start := 112 + sigsize + padding

	if _, err := f.Seek(int64(start)+8, 0); err != nil {
		return 0, 0, err
	}
	if err := binary.Read(f, binary.BigEndian, &words); err != nil {
		return 0, 0, err
	}
	hdrindex, hdrdata := uint64(words[0]), uint64(words[1])

	hdrsize := hdrdata + 16*hdrindex + 16
	return start, start + hdrsize, nil
}

// Path returns the package file path.
func (r *Rpm) Path() string { return r.path }

// FileSize returns the package file's size in bytes.
func (r *Rpm) FileSize() int64 { return r.fileSize }

// FileMtime returns the package file's modification time as a Unix
// timestamp.
func (r *Rpm) FileMtime() int64 { return r.fileMtime }

// HeadersStart returns the byte offset of the main header block.
func (r *Rpm) HeadersStart() uint64 { return r.headersStart }

// HeadersEnd returns the byte offset just past the main header block.
func (r *Rpm) HeadersEnd() uint64 { return r.headersEnd }

// Sha256 lazily computes the whole-file digest. The result doubles as
// the pkgid attribute across the metadata documents.
func (r *Rpm) Sha256() (string, error) {
	if r.sha256 != "" {
		return r.sha256, nil
	}
	sum, err := utils.Sha256File(r.path)
	if err != nil {
		return "", &models.MdError{Type: models.ErrIo, Path: r.path, Err: err}
	}
	r.sha256 = sum
	return sum, nil
}

func (r *Rpm) Name() string { return r.nevra.Name }

// Epoch returns the package epoch, "0" when the header has none.
func (r *Rpm) Epoch() string {
	if r.nevra.Epoch == "" {
		return "0"
	}
	return r.nevra.Epoch
}
func (r *Rpm) Version() string { return r.nevra.Version }
func (r *Rpm) Release() string { return r.nevra.Release }

// Arch returns the build architecture, except for source packages
// where the filename wins over the header.
func (r *Rpm) Arch() string {
	if strings.HasSuffix(r.path, ".src.rpm") {
		return "src"
	}
	return r.nevra.Arch
}

func (r *Rpm) Summary() string     { return r.stringTag(rpmutils.SUMMARY) }
func (r *Rpm) Description() string { return r.stringTag(tagDescription) }
func (r *Rpm) Packager() string    { return r.stringTag(rpmutils.PACKAGER) }
func (r *Rpm) Url() string         { return r.stringTag(rpmutils.URL) }
func (r *Rpm) License() string     { return r.stringTag(rpmutils.LICENSE) }
func (r *Rpm) Vendor() string      { return r.stringTag(tagVendor) }
func (r *Rpm) Group() string       { return r.stringTag(rpmutils.GROUP) }
func (r *Rpm) BuildHost() string   { return r.stringTag(tagBuildHost) }
func (r *Rpm) SourceRpm() string   { return r.stringTag(tagSourceRpm) }
func (r *Rpm) BuildTime() int64    { return r.intTag(rpmutils.BUILDTIME) }

// InstalledSize falls back from the 64-bit size tag to the legacy
// 32-bit one.
func (r *Rpm) InstalledSize() int64 {
	size, err := r.hdr.InstalledSize()
	if err != nil {
		return 0
	}
	return size
}

// ArchiveSize is the uncompressed payload size from the signature
// header.
func (r *Rpm) ArchiveSize() int64 {
	size, err := r.hdr.PayloadSize()
	if err != nil {
		return 0
	}
	return size
}

func (r *Rpm) payloadCompressor() string {
	return r.stringTag(tagPayloadCompressor)
}

func (r *Rpm) stringTag(tag int) string {
	val, err := r.hdr.Get(tag)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (r *Rpm) intTag(tag int) int64 {
	val, err := r.hdr.Get(tag)
	if err != nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case []int32:
		if len(v) > 0 {
			return int64(v[0])
		}
	case []uint64:
		if len(v) > 0 {
			return int64(v[0])
		}
	}
	return 0
}

func (r *Rpm) stringsTag(tag int) []string {
	val, err := r.hdr.Get(tag)
	if err != nil {
		return nil
	}
	if slice, ok := val.([]string); ok {
		return slice
	}
	return nil
}

func (r *Rpm) uint64sTag(tag int) []uint64 {
	val, err := r.hdr.Get(tag)
	if err != nil {
		return nil
	}
	switch v := val.(type) {
	case []uint64:
		return v
	case []int32:
		out := make([]uint64, len(v))
		for i, n := range v {
			out[i] = uint64(uint32(n))
		}
		return out
	case []uint32:
		out := make([]uint64, len(v))
		for i, n := range v {
			out[i] = uint64(n)
		}
		return out
	}
	return nil
}

// String identifies the package in log messages.
func (r *Rpm) String() string {
	return fmt.Sprintf("%s-%s-%s.%s", r.Name(), r.Version(), r.Release(), r.Arch())
}
