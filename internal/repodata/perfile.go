package repodata

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/openmandriva/createmd/internal/appstream"
	"github.com/openmandriva/createmd/internal/archive"
	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/rpm"
	"github.com/openmandriva/createmd/internal/utils"
)

// The per-file layout keeps one metadata shard per package under
// repodata/perfile/, named <package>.rpm.<document>.xml, plus a
// <package>.rpm.appstream-icons/ directory holding the raw icon
// payloads. A merge pass concatenates the shards into the usual
// document set, so only packages that changed since the last run need
// to be re-inspected.

func perfileDir(path string) string {
	return filepath.Join(path, "repodata", "perfile")
}

// rpmNames lists the *.rpm entries of dir by file name only. Shard
// bookkeeping matches on names, not on package contents.
func rpmNames(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rpm") {
			continue
		}
		names[entry.Name()] = true
	}
	return names, nil
}

// ExtractShards inspects one package and rewrites its metadata shards.
func ExtractShards(path, name string) error {
	dir := perfileDir(path)
	if err := utils.EnsureDir(dir); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}

	r, err := rpm.Open(filepath.Join(path, name))
	if err != nil {
		return err
	}

	frag, err := PrimaryFragment(r, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+".primary.xml"), []byte(frag), 0644); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	frag, err = FilelistsFragment(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+".filelists.xml"), []byte(frag), 0644); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}
	frag, err = OtherFragment(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+".other.xml"), []byte(frag), 0644); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}

	icons := make(map[string][]byte)
	md := appstream.Metadata(r, icons)
	if md == "" {
		return nil
	}
	if err := os.WriteFile(filepath.Join(dir, name+".appstream.xml"), []byte(md), 0644); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}

	iconDir := filepath.Join(dir, name+".appstream-icons")
	if err := os.RemoveAll(iconDir); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: iconDir, Err: err}
	}
	for iconName, data := range icons {
		target := filepath.Join(iconDir, filepath.FromSlash(iconName))
		if err := utils.EnsureDir(filepath.Dir(target)); err != nil {
			return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			logrus.Warnf("Can't write to %s: %v", target, err)
		}
	}
	return nil
}

// Cleanup drops shards whose package no longer exists in the
// directory.
func Cleanup(path string) error {
	rpms, err := rpmNames(path)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	dir := perfileDir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &models.MdError{Type: models.ErrIo, Path: dir, Err: err}
	}

	for _, entry := range entries {
		name := entry.Name()
		idx := strings.LastIndex(name, ".rpm.")
		if idx < 0 {
			logrus.Warnf("Non-metadata file in metadata directory: %s", name)
			continue
		}
		pkg := name[:idx+4]
		if rpms[pkg] {
			continue
		}
		logrus.Debugf("Stale metadata for: %s", pkg)
		if strings.HasSuffix(name, ".appstream-icons") {
			err = os.RemoveAll(filepath.Join(dir, name))
		} else {
			err = os.Remove(filepath.Join(dir, name))
		}
		if err != nil {
			logrus.Warnf("Can't remove stale metadata %s: %v", name, err)
		}
	}
	return nil
}

// NewFiles lists the packages that have no primary shard yet.
func NewFiles(path string) ([]string, error) {
	rpms, err := rpmNames(path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	dir := perfileDir(path)

	var ret []string
	for name := range rpms {
		if _, err := os.Stat(filepath.Join(dir, name+".primary.xml")); err != nil {
			logrus.Debugf("New file: %s", name)
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

// ModifiedFiles lists the packages whose primary shard is older than
// the package file.
func ModifiedFiles(path string) ([]string, error) {
	rpms, err := rpmNames(path)
	if err != nil {
		return nil, &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	dir := perfileDir(path)

	var ret []string
	for name := range rpms {
		info, err := os.Stat(filepath.Join(path, name))
		if err != nil {
			continue
		}
		mdInfo, err := os.Stat(filepath.Join(dir, name+".primary.xml"))
		if err != nil {
			logrus.Warnf("No metadata found for %s", name)
			continue
		}
		if mdInfo.ModTime().Before(info.ModTime()) {
			logrus.Debugf("Modified file: %s", name)
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

// shardNames lists shards with the given suffix, sorted by name. The
// sort fixes the package order of the merged documents.
func shardNames(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func mergeDocument(pf, target, header, footer string, shards []string) error {
	out, err := os.Create(target)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
	}
	defer out.Close()

	if _, err := out.WriteString(header); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
	}
	for _, shard := range shards {
		data, err := os.ReadFile(filepath.Join(pf, shard))
		if err != nil {
			logrus.Warnf("Can't open %s: %v", shard, err)
			continue
		}
		if _, err := out.Write(data); err != nil {
			return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
		}
	}
	if _, err := out.WriteString(footer); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
	}
	return nil
}

// Merge concatenates the per-package shards into the full document
// set under repodata/, ready for finalization. origin only matters
// here; the shards themselves carry no components wrapper.
func Merge(path, origin string) error {
	rd := filepath.Join(path, "repodata")
	pf := perfileDir(path)
	if _, err := os.Stat(pf); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: pf, Err: err}
	}

	type document struct {
		name   string
		header string
		footer string
	}
	for _, doc := range []document{
		{"primary", fmt.Sprintf("%s<metadata xmlns=%q xmlns:rpm=%q packages=\"%%d\">\n",
			xmlHeader, metadataXmlns, rpmXmlns), "</metadata>"},
		{"filelists", fmt.Sprintf("%s<filelists xmlns=%q xmlns:rpm=%q packages=\"%%d\">\n",
			xmlHeader, filelistsXmlns, rpmXmlns), "</filelists>"},
		{"other", fmt.Sprintf("%s<otherdata xmlns=%q xmlns:rpm=%q packages=\"%%d\">\n",
			xmlHeader, otherXmlns, rpmXmlns), "</otherdata>"},
	} {
		shards, err := shardNames(pf, "."+doc.name+".xml")
		if err != nil {
			return &models.MdError{Type: models.ErrIo, Path: pf, Err: err}
		}
		header := fmt.Sprintf(doc.header, len(shards))
		target := filepath.Join(rd, doc.name+".xml")
		if err := mergeDocument(pf, target, header, doc.footer, shards); err != nil {
			return err
		}
	}

	shards, err := shardNames(pf, ".appstream.xml")
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: pf, Err: err}
	}
	header := fmt.Sprintf("%s<components origin=%q version=%q>\n",
		xmlHeader, origin, componentsVersion)
	if err := mergeDocument(pf, filepath.Join(rd, "appstream.xml"),
		header, "</components>", shards); err != nil {
		return err
	}

	return mergeIcons(pf, filepath.Join(rd, "appstream-icons.tar"))
}

// mergeIcons rolls every shard icon directory into one tarball. Entry
// names are relative to the shard directory, matching the cached icon
// references in the merged appstream document.
func mergeIcons(pf, target string) error {
	entries, err := os.ReadDir(pf)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: pf, Err: err}
	}

	icons, err := archive.NewWriter(target)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), ".appstream-icons") {
			continue
		}
		root := filepath.Join(pf, entry.Name())
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				logrus.Warnf("Can't read icon %s: %v", p, err)
				return nil
			}
			return icons.AddFile(filepath.ToSlash(rel), data)
		})
		if err != nil {
			icons.Close()
			return &models.MdError{Type: models.ErrArchive, Path: root, Err: err}
		}
	}
	return icons.Close()
}

// PerFile runs one per-file pass over a repository directory: drop
// stale shards, extract shards for new and modified packages, merge,
// and finalize in place.
func PerFile(path, origin string, cleanupOnly bool) error {
	if err := Cleanup(path); err != nil {
		return err
	}
	if cleanupOnly {
		return nil
	}

	fresh, err := NewFiles(path)
	if err != nil {
		return err
	}
	modified, err := ModifiedFiles(path)
	if err != nil {
		return err
	}
	for _, name := range append(fresh, modified...) {
		if err := ExtractShards(path, name); err != nil {
			logrus.Warnf("Failed to extract metadata for %s: %v", name, err)
		}
	}

	if err := Merge(path, origin); err != nil {
		return err
	}
	return Finalize(filepath.Join(path, "repodata"))
}
