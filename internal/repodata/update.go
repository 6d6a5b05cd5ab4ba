package repodata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/openmandriva/createmd/internal/appstream"
	"github.com/openmandriva/createmd/internal/archive"
	"github.com/openmandriva/createmd/internal/compress"
	"github.com/openmandriva/createmd/internal/models"
	"github.com/openmandriva/createmd/internal/rpm"
	"github.com/openmandriva/createmd/internal/scanner"
	"github.com/openmandriva/createmd/internal/utils"
)

// documents holds the prior metadata set loaded from a repodata
// directory, ready for in-place editing.
type documents struct {
	primary   *etree.Document
	filelists *etree.Document
	other     *etree.Document
	appstream *etree.Document
	iconsFile string
	lastTs    int64
}

var documentRoots = map[string]string{
	"primary":   "metadata",
	"filelists": "filelists",
	"other":     "otherdata",
	"appstream": "components",
}

// loadDocuments decompresses and parses the four XML artifacts
// referenced by repomd.xml. The icon tarball is located but not
// loaded; it carries no metadata worth editing in memory.
func loadDocuments(path string) (*documents, error) {
	repomdPath := filepath.Join(path, "repodata", "repomd.xml")
	md, err := ParseRepoMd(repomdPath)
	if err != nil {
		return nil, err
	}

	docs := &documents{}
	for _, t := range []string{"primary", "filelists", "other", "appstream", "appstream-icons"} {
		entry := md.DataOfType(t)
		if entry == nil || entry.Location.Href == "" {
			return nil, &models.MdError{Type: models.ErrXml, Path: repomdPath,
				Err: fmt.Errorf("no location for %s", t)}
		}
		artifactPath := filepath.Join(path, filepath.FromSlash(entry.Location.Href))
		if t == "appstream-icons" {
			docs.iconsFile = artifactPath
			continue
		}

		data, err := compress.UncompressedFile(artifactPath)
		if err != nil {
			return nil, &models.MdError{Type: models.ErrArchive, Path: artifactPath, Err: err}
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, &models.MdError{Type: models.ErrXml, Path: artifactPath, Err: err}
		}
		root := doc.Root()
		if root == nil || root.Tag != documentRoots[t] {
			return nil, &models.MdError{Type: models.ErrXml, Path: artifactPath,
				Err: fmt.Errorf("unexpected root element")}
		}
		switch t {
		case "primary":
			docs.primary = doc
		case "filelists":
			docs.filelists = doc
		case "other":
			docs.other = doc
		case "appstream":
			docs.appstream = doc
		}
	}

	if primary := md.DataOfType("primary"); primary != nil {
		docs.lastTs = primary.Timestamp
	}
	if docs.lastTs == 0 {
		logrus.Warnf("No valid timestamp in %s, assuming mtime", repomdPath)
		info, err := os.Stat(repomdPath)
		if err != nil {
			return nil, &models.MdError{Type: models.ErrIo, Path: repomdPath, Err: err}
		}
		docs.lastTs = info.ModTime().Unix()
	}
	return docs, nil
}

// removePackage removes the first <package> with the given pkgid.
func removePackage(root *etree.Element, pkgid string) bool {
	for _, p := range root.SelectElements("package") {
		if p.SelectAttrValue("pkgid", "") == pkgid {
			root.RemoveChild(p)
			return true
		}
	}
	return false
}

// removeComponents removes every <component> belonging to the named
// package and returns the cached icon entries the removed components
// referenced. A package can carry several desktop files, so all
// matches go.
func removeComponents(root *etree.Element, pkgname string) []string {
	var icons []string
	for _, c := range root.SelectElements("component") {
		name := c.SelectElement("pkgname")
		if name == nil || name.Text() != pkgname {
			continue
		}
		for _, icon := range c.SelectElements("icon") {
			if icon.SelectAttrValue("type", "") == "cached" {
				icons = append(icons, icon.Text())
			}
		}
		root.RemoveChild(c)
	}
	return icons
}

// appendFragment parses a rendered <package> fragment and appends it
// to the document root.
func appendFragment(root *etree.Element, frag string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(frag); err != nil {
		return &models.MdError{Type: models.ErrXml, Path: root.Tag, Err: err}
	}
	root.AddChild(doc.Root().Copy())
	return nil
}

// appendComponents appends the components of a rendered AppStream
// fragment, which may carry several of them for a package with
// multiple desktop files.
func appendComponents(root *etree.Element, md string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<components>" + md + "</components>"); err != nil {
		return &models.MdError{Type: models.ErrXml, Path: root.Tag, Err: err}
	}
	for _, c := range doc.Root().SelectElements("component") {
		root.AddChild(c.Copy())
	}
	return nil
}

func adjustPackageCount(root *etree.Element, delta int) {
	count, _ := strconv.ParseInt(root.SelectAttrValue("packages", "0"), 10, 64)
	root.CreateAttr("packages", strconv.FormatInt(count+int64(delta), 10))
}

// Update patches the existing metadata set against the current
// directory contents instead of regenerating it from scratch. Removed
// and modified packages are dropped from all four documents; packages
// newer than the previous metadata are inspected and appended. A
// package whose mtime changed but whose checksum did not only gets its
// time attribute refreshed.
func Update(path string) error {
	if _, err := os.Stat(path); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}
	docs, err := loadDocuments(path)
	if err != nil {
		return err
	}

	rpms, err := scanner.FindRpmsByMtime(path)
	if err != nil {
		return &models.MdError{Type: models.ErrIo, Path: path, Err: err}
	}

	metadata := docs.primary.Root()
	filelists := docs.filelists.Root()
	otherdata := docs.other.Root()
	components := docs.appstream.Root()

	touched := make(map[string]bool)
	var iconsToRemove []string
	countChange := 0

	for _, p := range metadata.SelectElements("package") {
		location := p.SelectElement("location")
		href := ""
		if location != nil {
			href = location.SelectAttrValue("href", "")
		}
		if href == "" {
			logrus.Warn("Package without location in prior metadata, ignoring it")
			continue
		}

		var oldTs int64
		timeEl := p.SelectElement("time")
		if timeEl != nil {
			oldTs, _ = strconv.ParseInt(timeEl.SelectAttrValue("file", ""), 10, 64)
		}

		pkgPath := filepath.Join(path, href)
		info, statErr := os.Stat(pkgPath)
		if statErr == nil && info.ModTime().Unix() == oldTs {
			continue
		}

		var oldSum string
		for _, c := range p.SelectElements("checksum") {
			if strings.EqualFold(c.SelectAttrValue("pkgid", ""), "yes") {
				oldSum = c.Text()
				break
			}
		}

		var sum string
		if statErr == nil {
			sum, err = utils.Sha256File(pkgPath)
			if err != nil {
				logrus.Warnf("Can't checksum %s: %v", pkgPath, err)
			}
		}

		if statErr == nil && sum == oldSum {
			// Only the timestamp moved, the package itself is
			// unchanged.
			timeEl.CreateAttr("file", strconv.FormatInt(info.ModTime().Unix(), 10))
			touched[href] = true
			continue
		}

		name := ""
		if nameEl := p.SelectElement("name"); nameEl != nil {
			name = nameEl.Text()
		}

		// Removed or replaced. Drop the stale entries; a replacement
		// shows up again in the newest-first walk below.
		metadata.RemoveChild(p)
		removePackage(filelists, oldSum)
		removePackage(otherdata, oldSum)
		iconsToRemove = append(iconsToRemove, removeComponents(components, name)...)
		countChange--
	}

	iconsToAdd := make(map[string][]byte)

	for _, f := range rpms {
		if f.Mtime <= docs.lastTs {
			// Not newer than the previous metadata; the list is sorted
			// newest first, so nothing beyond this point is new.
			break
		}
		if touched[f.Name] {
			continue
		}

		r, err := rpm.Open(filepath.Join(path, f.Name))
		if err != nil {
			logrus.Warnf("Failed to parse %s: %v", f.Name, err)
			continue
		}

		frag, err := PrimaryFragment(r, f.Name)
		if err != nil {
			return err
		}
		if err := appendFragment(metadata, frag); err != nil {
			return err
		}
		frag, err = FilelistsFragment(r)
		if err != nil {
			return err
		}
		if err := appendFragment(filelists, frag); err != nil {
			return err
		}
		frag, err = OtherFragment(r)
		if err != nil {
			return err
		}
		if err := appendFragment(otherdata, frag); err != nil {
			return err
		}

		pkgIcons := make(map[string][]byte)
		if md := appstream.Metadata(r, pkgIcons); md != "" {
			if err := appendComponents(components, md); err != nil {
				return err
			}
			for name, data := range pkgIcons {
				iconsToAdd[name] = data
			}
		}
		countChange++
	}

	adjustPackageCount(metadata, countChange)
	adjustPackageCount(filelists, countChange)
	adjustPackageCount(otherdata, countChange)

	temp := filepath.Join(path, tempDirName())
	if err := utils.EnsureDir(temp); err != nil {
		return &models.MdError{Type: models.ErrIo, Path: temp, Err: err}
	}

	for name, doc := range map[string]*etree.Document{
		"primary":   docs.primary,
		"filelists": docs.filelists,
		"other":     docs.other,
		"appstream": docs.appstream,
	} {
		target := filepath.Join(temp, name+".xml")
		if err := doc.WriteToFile(target); err != nil {
			os.RemoveAll(temp)
			return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
		}
	}

	if err := rewriteIconTar(docs.iconsFile, filepath.Join(temp, "appstream-icons.tar"),
		iconsToRemove, iconsToAdd); err != nil {
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

// rewriteIconTar carries the previous icon cache into the staging
// directory, dropping entries scheduled for removal or replacement
// and appending the new ones. With no edits the old archive is copied
// verbatim; it still has to land uncompressed so finalize can measure
// and checksum the open form.
func rewriteIconTar(oldFile, target string, remove []string, add map[string][]byte) error {
	old, err := compress.UncompressedFile(oldFile)
	if err != nil {
		return &models.MdError{Type: models.ErrArchive, Path: oldFile, Err: err}
	}

	if len(remove) == 0 && len(add) == 0 {
		if err := os.WriteFile(target, old, 0644); err != nil {
			return &models.MdError{Type: models.ErrIo, Path: target, Err: err}
		}
		return nil
	}

	ignore := make(map[string]bool, len(remove)+len(add))
	for _, name := range remove {
		ignore[name] = true
	}
	for name := range add {
		ignore[name] = true
	}

	out, err := archive.NewWriter(target)
	if err != nil {
		return err
	}
	in := archive.NewReader(bytes.NewReader(old))
	for {
		entry, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return &models.MdError{Type: models.ErrArchive, Path: oldFile, Err: err}
		}
		if ignore[entry.Name] {
			continue
		}
		if err := out.AddFile(entry.Name, entry.Data); err != nil {
			out.Close()
			return err
		}
	}

	names := make([]string, 0, len(add))
	for name := range add {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := out.AddFile(name, add[name]); err != nil {
			out.Close()
			return err
		}
	}
	return out.Close()
}
