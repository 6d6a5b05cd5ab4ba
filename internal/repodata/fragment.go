package repodata

import (
	"fmt"
	"strings"

	"github.com/openmandriva/createmd/internal/rpm"
	"github.com/openmandriva/createmd/internal/utils"
)

// versionAttrs renders the package's own epoch/ver/rel attribute
// triple.
func versionAttrs(r *rpm.Rpm) string {
	return fmt.Sprintf("epoch=%q ver=%q rel=%q", r.Epoch(), r.Version(), r.Release())
}

// depEntry renders one <rpm:entry/>. The flags attribute disappears
// for unversioned dependencies; epoch and rel only appear when the
// version string carries them.
func depEntry(d rpm.Dependency) string {
	var b strings.Builder
	b.WriteString("<rpm:entry name=\"" + d.Name + "\"")
	if flags := d.RepoMdFlags(); flags != "" {
		b.WriteString(" flags=\"" + flags + "\"")
	}
	if d.Version != "" {
		epoch, ver, rel := d.VersionParts()
		b.WriteString(" ")
		if epoch != "" {
			b.WriteString("epoch=\"" + epoch + "\" ")
		}
		b.WriteString("ver=\"" + ver + "\"")
		if rel != "" {
			b.WriteString(" rel=\"" + rel + "\"")
		}
	}
	b.WriteString("/>")
	return b.String()
}

// dependenciesMd renders all eight dependency groups, skipping empty
// ones.
func dependenciesMd(r *rpm.Rpm) string {
	var b strings.Builder
	for _, t := range rpm.DepTypes {
		deps := r.Dependencies(t)
		if len(deps) == 0 {
			continue
		}
		b.WriteString("\t\t<rpm:" + t.String() + ">\n")
		for _, d := range deps {
			b.WriteString("\t\t\t" + depEntry(d) + "\n")
		}
		b.WriteString("\t\t</rpm:" + t.String() + ">\n")
	}
	return b.String()
}

// fileEntryType returns the type attribute for a file entry; ghost
// wins over dir.
func fileEntryType(f rpm.FileInfo) string {
	if f.Ghost() {
		return " type=\"ghost\""
	}
	if f.Dir() {
		return " type=\"dir\""
	}
	return ""
}

// fileListMd renders the file list. The primary variant sits inside
// <format> and indents one level deeper than the filelists one.
func fileListMd(r *rpm.Rpm, onlyPrimary bool) string {
	indent := "\t"
	if onlyPrimary {
		indent = "\t\t"
	}
	var b strings.Builder
	for _, f := range r.FileList(onlyPrimary) {
		b.WriteString(indent + "<file" + fileEntryType(f) + ">" + f.Path + "</file>\n")
	}
	return b.String()
}

// PrimaryFragment renders the package's primary.xml entry. href is
// the package file name relative to the repo directory.
func PrimaryFragment(r *rpm.Rpm, href string) (string, error) {
	sum, err := r.Sha256()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<package type=\"rpm\">\n")
	b.WriteString("\t<name>" + r.Name() + "</name>\n")
	b.WriteString("\t<arch>" + r.Arch() + "</arch>\n")
	b.WriteString("\t<version " + versionAttrs(r) + "/>\n")
	b.WriteString("\t<checksum type=\"sha256\" pkgid=\"YES\">" + sum + "</checksum>\n")
	b.WriteString("\t<summary>" + utils.XMLEscape(r.Summary()) + "</summary>\n")
	b.WriteString("\t<description>" + utils.XMLEscape(r.Description()) + "</description>\n")
	b.WriteString("\t<packager>" + utils.XMLEscape(r.Packager()) + "</packager>\n")
	b.WriteString("\t<url>" + utils.XMLEscape(r.Url()) + "</url>\n")
	b.WriteString(fmt.Sprintf("\t<time file=%q build=%q/>\n",
		fmt.Sprint(r.FileMtime()), fmt.Sprint(r.BuildTime())))
	b.WriteString(fmt.Sprintf("\t<size package=%q installed=%q archive=%q/>\n",
		fmt.Sprint(r.FileSize()), fmt.Sprint(r.InstalledSize()), fmt.Sprint(r.ArchiveSize())))
	b.WriteString("\t<location href=\"" + href + "\"/>\n")
	b.WriteString("\t<format>\n")
	b.WriteString("\t\t<rpm:license>" + utils.XMLEscape(r.License()) + "</rpm:license>\n")
	b.WriteString("\t\t<rpm:vendor>" + utils.XMLEscape(r.Vendor()) + "</rpm:vendor>\n")
	b.WriteString("\t\t<rpm:group>" + utils.XMLEscape(r.Group()) + "</rpm:group>\n")
	b.WriteString("\t\t<rpm:buildhost>" + r.BuildHost() + "</rpm:buildhost>\n")
	b.WriteString("\t\t<rpm:sourcerpm>" + r.SourceRpm() + "</rpm:sourcerpm>\n")
	b.WriteString(fmt.Sprintf("\t\t<rpm:header-range start=%q end=%q/>\n",
		fmt.Sprint(r.HeadersStart()), fmt.Sprint(r.HeadersEnd())))
	b.WriteString(dependenciesMd(r))
	b.WriteString(fileListMd(r, true))
	b.WriteString("\t</format>\n")
	b.WriteString("</package>\n")
	return b.String(), nil
}

// FilelistsFragment renders the package's filelists.xml entry.
func FilelistsFragment(r *rpm.Rpm) (string, error) {
	sum, err := r.Sha256()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<package pkgid=%q name=%q arch=%q>\n", sum, r.Name(), r.Arch()))
	b.WriteString("\t<version " + versionAttrs(r) + "/>\n")
	b.WriteString(fileListMd(r, false))
	b.WriteString("</package>\n")
	return b.String(), nil
}

// OtherFragment renders the package's other.xml entry. Changelogs are
// not carried, so the entry is just identity plus version.
func OtherFragment(r *rpm.Rpm) (string, error) {
	sum, err := r.Sha256()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<package pkgid=%q name=%q arch=%q>\n", sum, r.Name(), r.Arch()))
	b.WriteString("\t<version " + versionAttrs(r) + "/>\n")
	b.WriteString("</package>\n")
	return b.String(), nil
}
