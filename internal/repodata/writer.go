package repodata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/openmandriva/createmd/internal/appstream"
	"github.com/openmandriva/createmd/internal/archive"
	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/rpm"
	"github.com/openmandriva/createmd/internal/scanner"
	"github.com/openmandriva/createmd/internal/utils"
)

const (
	xmlHeader = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"

	metadataXmlns  = "http://linux.duke.edu/metadata/common"
	rpmXmlns       = "http://linux.duke.edu/metadata/rpm"
	filelistsXmlns = "http://linux.duke.edu/metadata/filelists"
	otherXmlns     = "http://linux.duke.edu/metadata/other"
	repoXmlns      = "http://linux.duke.edu/metadata/repo"

	componentsOrigin  = "openmandriva"
	componentsVersion = "0.14"
)

// tempDirName stages the new metadata next to the repodata directory
// it will replace.
func tempDirName() string {
	return fmt.Sprintf(".repodata.temp.%d", os.Getpid())
}

// Create regenerates the full metadata set for a directory of RPMs.
// Packages are emitted in file name order; broken packages are
// skipped with a warning and do not count toward the packages
// attribute.
func Create(path string) error {
	if _, err := os.Stat(path); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}

	names, err := scanner.FindRpms(path)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	if len(names) == 0 {
		return &models.MdError{Type: models.ErrInvariant, Path: path,
			Err: fmt.Errorf("no rpms found")}
	}

	// Open every package up front so the packages attribute on the
	// document roots can state the real count before streaming.
	var rpms []*rpm.Rpm
	for _, name := range names {
		r, err := rpm.Open(filepath.Join(path, name))
		if err != nil {
			logrus.Warnf("Failed to parse %s: %v", name, err)
			continue
		}
		rpms = append(rpms, r)
	}
	if len(rpms) == 0 {
		return &models.MdError{Type: models.ErrInvariant, Path: path,
			Err: fmt.Errorf("no parseable rpms found")}
	}

	temp := filepath.Join(path, tempDirName())
	if err := utils.EnsureDir(temp); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: temp, Err: err}
	}

	if err := writeDocuments(temp, rpms); err != nil {
		os.RemoveAll(temp)
		return err
	}

	if err := Finalize(temp); err != nil {
		os.RemoveAll(temp)
		return err
	}

	if err := utils.SwapDir(temp, filepath.Join(path, "repodata")); err != nil {
		os.RemoveAll(temp)
		return &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	return nil
}

func writeDocuments(dir string, rpms []*rpm.Rpm) error {
	primary, err := os.Create(filepath.Join(dir, "primary.xml"))
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	defer primary.Close()
	filelists, err := os.Create(filepath.Join(dir, "filelists.xml"))
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	defer filelists.Close()
	other, err := os.Create(filepath.Join(dir, "other.xml"))
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	defer other.Close()
	components, err := os.Create(filepath.Join(dir, "appstream.xml"))
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	defer components.Close()

	icons, err := archive.NewWriter(filepath.Join(dir, "appstream-icons.tar"))
	if err != nil {
		return err
	}

	count := len(rpms)
	fmt.Fprintf(primary, "%s<metadata xmlns=%q xmlns:rpm=%q packages=\"%d\">\n",
		xmlHeader, metadataXmlns, rpmXmlns, count)
	fmt.Fprintf(filelists, "%s<filelists xmlns=%q packages=\"%d\">\n",
		xmlHeader, filelistsXmlns, count)
	fmt.Fprintf(other, "%s<otherdata xmlns=%q packages=\"%d\">\n",
		xmlHeader, otherXmlns, count)
	fmt.Fprintf(components, "%s<components origin=%q version=%q>\n",
		xmlHeader, componentsOrigin, componentsVersion)

	for _, r := range rpms {
		href := filepath.Base(r.Path())

		frag, err := PrimaryFragment(r, href)
		if err != nil {
			icons.Close()
			return err
		}
		if _, err := primary.WriteString(frag); err != nil {
			icons.Close()
			return &models.MdError{Type: models.ErrIo, Path: primary.Name(), Err: err}
		}

		frag, err = FilelistsFragment(r)
		if err != nil {
			icons.Close()
			return err
		}
		if _, err := filelists.WriteString(frag); err != nil {
			icons.Close()
			return &models.MdError{Type: models.ErrIo, Path: filelists.Name(), Err: err}
		}

		frag, err = OtherFragment(r)
		if err != nil {
			icons.Close()
			return err
		}
		if _, err := other.WriteString(frag); err != nil {
			icons.Close()
			return &models.MdError{Type: models.ErrIo, Path: other.Name(), Err: err}
		}

		pkgIcons := make(map[string][]byte)
		if _, err := components.WriteString(appstream.Metadata(r, pkgIcons)); err != nil {
			icons.Close()
			return &models.MdError{Type: models.ErrIo, Path: components.Name(), Err: err}
		}
		for name, data := range pkgIcons {
			if err := icons.AddFile(name, data); err != nil {
				icons.Close()
				return err
			}
		}
	}

	primary.WriteString("</metadata>\n")
	filelists.WriteString("</filelists>\n")
	other.WriteString("</otherdata>\n")
	components.WriteString("</components>\n")

	return icons.Close()
}
