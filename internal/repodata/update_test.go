package repodata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"

	"github.com/openmandriva/createmd/internal/archive"
	"github.com/openmandriva/createmd/internal/compress"
	"github.com/openmandriva/createmd/internal/utils"
)

func parseRoot(t *testing.T, text string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	return doc.Root()
}

func TestRemovePackage(t *testing.T) {
	root := parseRoot(t, `<filelists packages="2">`+
		`<package pkgid="aaa" name="first"/>`+
		`<package pkgid="bbb" name="second"/>`+
		`</filelists>`)

	if !removePackage(root, "aaa") {
		t.Fatal("Known pkgid not removed")
	}
	left := root.SelectElements("package")
	if len(left) != 1 || left[0].SelectAttrValue("name", "") != "second" {
		t.Errorf("Wrong package removed, %d left", len(left))
	}
	if removePackage(root, "zzz") {
		t.Error("Unknown pkgid reported as removed")
	}
}

func TestRemoveComponents(t *testing.T) {
	root := parseRoot(t, `<components>`+
		`<component type="desktop"><pkgname>hello</pkgname>`+
		`<icon type="cached">hello.png</icon>`+
		`<icon type="stock">generic</icon></component>`+
		`<component type="desktop"><pkgname>hello</pkgname>`+
		`<icon type="cached">hello-extra.png</icon></component>`+
		`<component type="desktop"><pkgname>world</pkgname>`+
		`<icon type="cached">world.png</icon></component>`+
		`</components>`)

	icons := removeComponents(root, "hello")
	if len(icons) != 2 || icons[0] != "hello.png" || icons[1] != "hello-extra.png" {
		t.Errorf("Cached icons = %v", icons)
	}
	left := root.SelectElements("component")
	if len(left) != 1 {
		t.Fatalf("%d components left, want 1", len(left))
	}
	if left[0].SelectElement("pkgname").Text() != "world" {
		t.Error("Wrong component removed")
	}
}

func TestAppendComponents(t *testing.T) {
	root := parseRoot(t, `<components origin="openmandriva"></components>`)

	// A package with two desktop files renders as two sibling
	// components in one fragment.
	md := `<component type="desktop"><id>one.desktop</id></component>` + "\n" +
		`<component type="desktop"><id>two.desktop</id></component>` + "\n"
	if err := appendComponents(root, md); err != nil {
		t.Fatalf("appendComponents failed: %v", err)
	}
	if got := len(root.SelectElements("component")); got != 2 {
		t.Errorf("%d components appended, want 2", got)
	}
}

func TestAdjustPackageCount(t *testing.T) {
	root := parseRoot(t, `<metadata packages="5"></metadata>`)
	adjustPackageCount(root, -2)
	if got := root.SelectAttrValue("packages", ""); got != "3" {
		t.Errorf("packages = %s, want 3", got)
	}

	bare := parseRoot(t, `<metadata></metadata>`)
	adjustPackageCount(bare, 4)
	if got := bare.SelectAttrValue("packages", ""); got != "4" {
		t.Errorf("packages without prior attribute = %s, want 4", got)
	}
}

func writeIconTar(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	w, err := archive.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	for _, name := range names {
		if err := w.AddFile(name, entries[name]); err != nil {
			t.Fatalf("AddFile failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func readIconTar(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := compress.UncompressedFile(path)
	if err != nil {
		t.Fatalf("Archive unreadable: %v", err)
	}
	r := archive.NewReader(bytes.NewReader(data))
	seen := make(map[string]string)
	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Archive corrupt: %v", err)
		}
		seen[entry.Name] = string(entry.Data)
	}
	return seen
}

func TestRewriteIconTar(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.tar")
	writeIconTar(t, oldFile, map[string][]byte{
		"64x64/keep.png":    []byte("keep"),
		"64x64/drop.png":    []byte("drop"),
		"64x64/replace.png": []byte("stale"),
	})

	target := filepath.Join(dir, "new.tar")
	err := rewriteIconTar(oldFile, target,
		[]string{"64x64/drop.png"},
		map[string][]byte{
			"64x64/replace.png": []byte("fresh"),
			"64x64/added.png":   []byte("added"),
		})
	if err != nil {
		t.Fatalf("rewriteIconTar failed: %v", err)
	}

	seen := readIconTar(t, target)
	want := map[string]string{
		"64x64/keep.png":    "keep",
		"64x64/replace.png": "fresh",
		"64x64/added.png":   "added",
	}
	if len(seen) != len(want) {
		t.Fatalf("Rewritten archive holds %d entries, want %d", len(seen), len(want))
	}
	for name, data := range want {
		if seen[name] != data {
			t.Errorf("Entry %s = %q, want %q", name, seen[name], data)
		}
	}
}

func TestRewriteIconTarVerbatim(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.tar")
	writeIconTar(t, oldFile, map[string][]byte{"64x64/only.png": []byte("png")})

	target := filepath.Join(dir, "copy.tar")
	if err := rewriteIconTar(oldFile, target, nil, nil); err != nil {
		t.Fatalf("rewriteIconTar failed: %v", err)
	}

	old, _ := os.ReadFile(oldFile)
	copied, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Copy unreadable: %v", err)
	}
	if string(copied) != string(old) {
		t.Error("Archive without edits not copied verbatim")
	}
}

// buildRepodata stages a one-package metadata set describing the
// given RPM and finalizes it under path/repodata.
func buildRepodata(t *testing.T, path, rpmName, sum string, ts int64) {
	t.Helper()
	rd := filepath.Join(path, "repodata")
	if err := utils.EnsureDir(rd); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	pkg := fmt.Sprintf(`<package type="rpm"><name>hello</name>`+
		`<checksum type="sha256" pkgid="YES">%s</checksum>`+
		`<time file="%d" build="%d"/>`+
		`<location href="%s"/></package>`, sum, ts, ts, rpmName)
	files := map[string]string{
		"primary.xml": fmt.Sprintf("%s<metadata xmlns=%q xmlns:rpm=%q packages=\"1\">\n%s\n</metadata>",
			xmlHeader, metadataXmlns, rpmXmlns, pkg),
		"filelists.xml": fmt.Sprintf("%s<filelists xmlns=%q packages=\"1\">\n"+
			"<package pkgid=%q name=\"hello\" arch=\"x86_64\"></package>\n</filelists>",
			xmlHeader, filelistsXmlns, sum),
		"other.xml": fmt.Sprintf("%s<otherdata xmlns=%q packages=\"1\">\n"+
			"<package pkgid=%q name=\"hello\" arch=\"x86_64\"></package>\n</otherdata>",
			xmlHeader, otherXmlns, sum),
		"appstream.xml": fmt.Sprintf("%s<components origin=%q version=%q>\n</components>",
			xmlHeader, componentsOrigin, componentsVersion),
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(rd, name), []byte(text), 0644); err != nil {
			t.Fatalf("Failed to stage %s: %v", name, err)
		}
	}
	writeIconTar(t, filepath.Join(rd, "appstream-icons.tar"),
		map[string][]byte{"64x64/hello.png": []byte("png")})

	if err := Finalize(rd); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
}

func TestUpdateWithoutChanges(t *testing.T) {
	dir := t.TempDir()
	rpmName := "hello-1.0-1.x86_64.rpm"
	rpmPath := filepath.Join(dir, rpmName)
	content := append([]byte{0xED, 0xAB, 0xEE, 0xDB, 0x03, 0x00, 0x00, 0x00}, []byte("payload")...)
	if err := os.WriteFile(rpmPath, content, 0644); err != nil {
		t.Fatalf("Failed to plant package: %v", err)
	}
	// Older than the metadata about to be written, so the update walk
	// does not try to parse it as a real package.
	ts := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(rpmPath, ts, ts); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	buildRepodata(t, dir, rpmName, utils.Sha256Bytes(content), ts.Unix())

	if err := Update(dir); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	md, err := ParseRepoMd(filepath.Join(dir, "repodata", "repomd.xml"))
	if err != nil {
		t.Fatalf("Updated repomd.xml unreadable: %v", err)
	}
	entry := md.DataOfType("primary")
	if entry == nil {
		t.Fatal("Updated repomd.xml lost the primary entry")
	}
	data, err := compress.UncompressedFile(filepath.Join(dir, filepath.FromSlash(entry.Location.Href)))
	if err != nil {
		t.Fatalf("Updated primary artifact unreadable: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "<name>hello</name>") {
		t.Error("Unchanged package dropped from primary metadata")
	}
	if !strings.Contains(text, `packages="1"`) {
		t.Error("Package count changed by a no-op update")
	}

	icons := md.DataOfType("appstream-icons")
	if icons == nil {
		t.Fatal("Updated repomd.xml lost the icon archive entry")
	}
	seen := readIconTar(t, filepath.Join(dir, filepath.FromSlash(icons.Location.Href)))
	if seen["64x64/hello.png"] != "png" {
		t.Error("Icon cache not carried over")
	}
}

func TestUpdateRemovesDeletedPackage(t *testing.T) {
	dir := t.TempDir()
	rpmName := "hello-1.0-1.x86_64.rpm"
	ts := time.Now().Add(-time.Hour).Truncate(time.Second)
	// Metadata references a package that no longer exists on disk.
	buildRepodata(t, dir, rpmName, "0000000000000000", ts.Unix())

	if err := Update(dir); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	md, err := ParseRepoMd(filepath.Join(dir, "repodata", "repomd.xml"))
	if err != nil {
		t.Fatalf("Updated repomd.xml unreadable: %v", err)
	}
	entry := md.DataOfType("primary")
	data, err := compress.UncompressedFile(filepath.Join(dir, filepath.FromSlash(entry.Location.Href)))
	if err != nil {
		t.Fatalf("Updated primary artifact unreadable: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "<name>hello</name>") {
		t.Error("Removed package still listed in primary metadata")
	}
	if !strings.Contains(text, `packages="0"`) {
		t.Error("Package count not decremented")
	}
}

func TestUpdateMissingDirectory(t *testing.T) {
	if err := Update(filepath.Join(t.TempDir(), "nowhere")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
