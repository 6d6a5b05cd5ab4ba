package repodata

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openmandriva/createmd/internal/compress"
	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/utils"
)

// artifact is one repomd.xml data entry. The appstream artifacts are
// gzip-compressed so tools that predate xz can still read them.
type artifact struct {
	name   string
	ext    string
	format compress.Format
}

var artifacts = []artifact{
	{"primary", ".xml", compress.FormatXz},
	{"filelists", ".xml", compress.FormatXz},
	{"other", ".xml", compress.FormatXz},
	{"appstream", ".xml", compress.FormatGzip},
	{"appstream-icons", ".tar", compress.FormatGzip},
}

// Finalize compresses the staged metadata documents, renames them to
// their checksum-prefixed names and writes repomd.xml. Checksum-named
// artifacts from a previous run are removed first; the uncompressed
// staging files are removed afterwards.
func Finalize(dir string) error {
	for _, pattern := range []string{"*-primary.xml.xz", "*-filelists.xml.xz",
		"*-other.xml.xz", "*-appstream.xml.gz", "*-appstream-icons.tar.gz"} {
		if err := utils.RemoveMatching(dir, pattern); err != nil {
			return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
		}
	}

	type finalized struct {
		openSum, sum   string
		openSize, size int64
		timestamp      int64
		href           string
	}
	results := make(map[string]finalized, len(artifacts))

	for _, a := range artifacts {
		source := filepath.Join(dir, a.name+a.ext)
		compressed := source + a.format.Extension()

		if err := compress.CompressFile(source, a.format, ""); err != nil {
			return &models.MdError{Type: models.ErrArchive, Path: source, Err: err}
		}

		openSum, err := utils.Sha256File(source)
		if err != nil {
			return &models.MdError{Type: models.ErrIo, Path: source, Err: err}
		}
		sum, err := utils.Sha256File(compressed)
		if err != nil {
			return &models.MdError{Type: models.ErrIo, Path: compressed, Err: err}
		}

		final := filepath.Join(dir, sum+"-"+a.name+a.ext+a.format.Extension())
		if err := os.Rename(compressed, final); err != nil {
			return &models.MdError{Type: models.ErrIo, Path: compressed, Err: err}
		}

		info, err := os.Stat(final)
		if err != nil {
			return &models.MdError{Type: models.ErrIo, Path: final, Err: err}
		}
		openInfo, err := os.Stat(source)
		if err != nil {
			return &models.MdError{Type: models.ErrIo, Path: source, Err: err}
		}

		results[a.name] = finalized{
			openSum:   openSum,
			sum:       sum,
			openSize:  openInfo.Size(),
			size:      info.Size(),
			timestamp: info.ModTime().Unix(),
			href:      "repodata/" + filepath.Base(final),
		}
	}

	repomd, err := os.Create(filepath.Join(dir, "repomd.xml"))
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	defer repomd.Close()

	fmt.Fprintf(repomd, "%s<repomd xmlns=%q xmlns:rpm=%q>\n",
		xmlHeader, repoXmlns, rpmXmlns)
	fmt.Fprintf(repomd, "\t<revision>%d</revision>\n", time.Now().Unix())
	for _, a := range artifacts {
		r := results[a.name]
		fmt.Fprintf(repomd, "\t<data type=%q>\n", a.name)
		fmt.Fprintf(repomd, "\t\t<checksum type=\"sha256\">%s</checksum>\n", r.sum)
		fmt.Fprintf(repomd, "\t\t<open-checksum type=\"sha256\">%s</open-checksum>\n", r.openSum)
		fmt.Fprintf(repomd, "\t\t<location href=%q/>\n", r.href)
		fmt.Fprintf(repomd, "\t\t<timestamp>%d</timestamp>\n", r.timestamp)
		fmt.Fprintf(repomd, "\t\t<size>%d</size>\n", r.size)
		fmt.Fprintf(repomd, "\t\t<open-size>%d</open-size>\n", r.openSize)
		fmt.Fprintf(repomd, "\t</data>\n")
	}
	fmt.Fprintf(repomd, "</repomd>\n")

	for _, a := range artifacts {
		if err := os.Remove(filepath.Join(dir, a.name+a.ext)); err != nil {
			return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
		}
	}
	return nil
}
