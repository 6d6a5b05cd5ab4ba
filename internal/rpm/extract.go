package rpm

import (
	"io"
	"os"

	"github.com/sassoftware/go-rpmutils"

	"github.com/openmandriva/createmd/internal/archive"
	"github.com/openmandriva/createmd/internal/compress"
	"github.com/openmandriva/createmd/internal/models"
)

// ExtractFiles pulls the requested paths out of the package payload
// in a single pass, stopping as soon as every requested entry has
// been seen. Paths are matched after the payload's leading dot is
// stripped.
func (r *Rpm) ExtractFiles(paths []string) (map[string][]byte, error) {
	found := make(map[string][]byte)
	if len(paths) == 0 {
		return found, nil
	}

	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[p] = true
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: r.path, Err: err}
	}
	defer f.Close()

	// Re-reading the headers positions the stream at the payload.
	if _, err := rpmutils.ReadHeader(f); err != nil {
		return nil, &models.MdError{Type: models.ErrRpmParse, Path: r.path, Err: err}
	}

	payload, err := compress.Decompressor(f, r.payloadCompressor())
	if err != nil {
		return nil, &models.MdError{Type: models.ErrArchive, Path: r.path, Err: err}
	}
	defer payload.Close()

	pr := archive.NewPayloadReader(payload)
	for len(found) < len(wanted) {
		entry, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.MdError{Type: models.ErrArchive, Path: r.path, Err: err}
		}
		if !wanted[entry.Name] {
			continue
		}
		data, err := io.ReadAll(entry.Data)
		if err != nil {
			// A broken entry is not fatal for the others.
			continue
		}
		found[entry.Name] = data
	}
	return found, nil
}
