package appstream

import (
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/openmandriva/createmd/internal/desktopfile"
	"github.com/openmandriva/createmd/internal/rpm"
	"github.com/openmandriva/createmd/internal/utils"
)

// Metadata builds the AppStream <component> fragments for one
// package. When icons is non-nil, packaged icons referenced by the
// components are extracted into it, keyed "{size}/{name}.{ext}", and
// announced with <icon type="cached"> entries. The returned string is
// a concatenation of serialized components without an XML prologue,
// ready to be framed by a <components> wrapper.
func Metadata(r *rpm.Rpm, icons map[string][]byte) string {
	var metainfoFiles, desktopFiles, iconFiles []string
	for _, fi := range r.FileList(false) {
		switch {
		case strings.HasPrefix(fi.Path, "/usr/share/metainfo/") ||
			strings.HasPrefix(fi.Path, "/usr/share/appdata/"):
			metainfoFiles = append(metainfoFiles, fi.Path)
		case strings.HasPrefix(fi.Path, "/usr/share/applications/"):
			desktopFiles = append(desktopFiles, fi.Path)
		case strings.HasPrefix(fi.Path, "/usr/share/icons/") ||
			strings.HasPrefix(fi.Path, "/usr/share/pixmaps"):
			iconFiles = append(iconFiles, fi.Path)
		}
	}

	if len(metainfoFiles) > 0 {
		// Desktop files are pulled in the same payload pass, they
		// supplement metainfo that forgot its icon or categories.
		payloads, err := r.ExtractFiles(append(append([]string{}, metainfoFiles...), desktopFiles...))
		if err != nil {
			logrus.Warnf("Failed to extract appstream files from %s: %v", r.Path(), err)
			return ""
		}
		return fromMetainfo(r, metainfoFiles, desktopFiles, iconFiles, payloads, icons)
	}

	if len(desktopFiles) > 0 {
		payloads, err := r.ExtractFiles(desktopFiles)
		if err != nil {
			logrus.Warnf("Failed to extract desktop files from %s: %v", r.Path(), err)
			return ""
		}
		return fromDesktopFiles(r, desktopFiles, iconFiles, payloads, icons)
	}

	return ""
}

// sourcePkgname strips "-VERSION-RELEASE.src.rpm" off a source RPM
// file name by cutting at the last two dashes.
func sourcePkgname(sourceRpm string) string {
	s := sourceRpm
	for i := 0; i < 2; i++ {
		if idx := strings.LastIndex(s, "-"); idx >= 0 {
			s = s[:idx]
		}
	}
	return s
}

func fromMetainfo(r *rpm.Rpm, metainfoFiles, desktopFiles, iconFiles []string, payloads map[string][]byte, icons map[string][]byte) string {
	var ret strings.Builder
	for _, file := range metainfoFiles {
		data, ok := payloads[file]
		if !ok {
			continue
		}

		// Third-party metainfo may be arbitrarily formatted or
		// subtly broken, so it gets a real XML parser.
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			logrus.Warnf("Unparseable appstream metadata %s in %s: %v", file, r.Path(), err)
			continue
		}
		root := doc.Root()
		if root == nil {
			logrus.Warnf("Empty appstream metadata %s in %s", file, r.Path())
			continue
		}

		if root.Tag == "application" {
			// Pre-1.0 form of the standard, still shipped by a few
			// long-lived desktop applications.
			root.Tag = "component"
			root.CreateAttr("type", "desktop-application")
		}
		if root.Tag != "component" {
			logrus.Warnf("Appstream metadata with document element %q rather than \"component\" found: %s in %s", root.Tag, file, r.Path())
			continue
		}
		if root.SelectAttr("type") == nil {
			// An untyped metainfo file is almost always a forgotten
			// type="desktop", not a legitimately generic component.
			root.CreateAttr("type", "desktop-application")
		}
		if root.SelectAttrValue("type", "") == "desktop" {
			root.CreateAttr("type", "desktop-application")
		}

		id := root.SelectElement("id")
		if id == nil {
			fakeId := strings.TrimSuffix(path.Base(file), ".metainfo.xml")
			fakeId = strings.TrimSuffix(fakeId, ".appdata.xml")
			id = etree.NewElement("id")
			id.SetText(fakeId)
			root.InsertChildAt(0, id)
		}
		if root.SelectElement("source_pkgname") == nil {
			el := etree.NewElement("source_pkgname")
			el.SetText(sourcePkgname(r.SourceRpm()))
			root.InsertChildAt(id.Index()+1, el)
		}
		if root.SelectElement("pkgname") == nil {
			el := etree.NewElement("pkgname")
			el.SetText(r.Name())
			root.InsertChildAt(id.Index()+1, el)
		}

		// update_contact must not be exposed to end users; the
		// misspelled variant shows up in GNOME metadata.
		for _, tag := range []string{"update_contact", "updatecontact"} {
			for _, el := range root.SelectElements(tag) {
				root.RemoveChild(el)
			}
		}

		desktopFile := ""
		for _, launchable := range root.SelectElements("launchable") {
			if launchable.SelectAttrValue("type", "") != "desktop-id" {
				continue
			}
			d := "/usr/share/applications/" + launchable.Text()
			if contains(desktopFiles, d) {
				desktopFile = d
				break
			}
			if contains(desktopFiles, d+".desktop") {
				desktopFile = d + ".desktop"
				break
			}
		}
		// The desktop file should be referenced with a
		// <launchable type="desktop-id"> tag, but frequently isn't.
		if desktopFile == "" {
			for _, candidate := range []string{
				"/usr/share/applications/" + id.Text() + ".desktop",
				"/usr/share/applications/" + id.Text(),
				"/usr/share/applications/" + r.Name() + ".desktop",
			} {
				if contains(desktopFiles, candidate) {
					desktopFile = candidate
					break
				}
			}
		}

		if desktopFile != "" {
			if root.SelectElement("launchable") == nil {
				launchable := root.CreateElement("launchable")
				launchable.CreateAttr("type", "desktop-id")
				launchable.SetText(path.Base(desktopFile))
			}

			df := desktopfile.Parse(payloads[desktopFile])
			if root.SelectElement("icon") == nil && df.HasKey("Icon") {
				iconName := df.Value("Icon", "")
				stock := root.CreateElement("icon")
				stock.CreateAttr("type", "stock")
				stock.SetText(iconName)

				for _, found := range lookupIcons(r, iconFiles, iconName, icons) {
					cached := root.CreateElement("icon")
					cached.CreateAttr("type", "cached")
					cached.CreateAttr("width", found.size)
					cached.CreateAttr("height", found.size)
					cached.SetText(found.key)
				}
			}

			if root.SelectElement("categories") == nil && df.HasKey("Categories") {
				categories := root.CreateElement("categories")
				for _, c := range strings.Split(df.Value("Categories", ""), ";") {
					if c == "" {
						continue
					}
					categories.CreateElement("category").SetText(c)
				}
			}
		}

		// Strip the prologue; repeating <?xml version...?> inside
		// the concatenated stream is harmful.
		var prologue []etree.Token
		for _, child := range doc.Child {
			if _, ok := child.(*etree.ProcInst); ok {
				prologue = append(prologue, child)
			}
		}
		for _, child := range prologue {
			doc.RemoveChild(child)
		}
		md, err := doc.WriteToString()
		if err != nil {
			logrus.Warnf("Failed to serialize appstream metadata %s in %s: %v", file, r.Path(), err)
			continue
		}
		ret.WriteString(strings.TrimSpace(md))
		ret.WriteString("\n")
	}
	return ret.String()
}

func fromDesktopFiles(r *rpm.Rpm, desktopFiles, iconFiles []string, payloads map[string][]byte, icons map[string][]byte) string {
	var ret strings.Builder
	for _, file := range desktopFiles {
		data, ok := payloads[file]
		if !ok {
			continue
		}

		desktopName := strings.TrimSuffix(path.Base(file), ".desktop")
		id := strings.NewReplacer(" ", "_", "-", "_").Replace(desktopName)

		ret.WriteString("<component type=\"desktop\">\n")
		ret.WriteString(" <id>" + utils.XMLEscape(id) + "</id>\n")
		ret.WriteString(" <pkgname>" + utils.XMLEscape(r.Name()) + "</pkgname>\n")
		ret.WriteString(" <source_pkgname>" + utils.XMLEscape(sourcePkgname(r.SourceRpm())) + "</source_pkgname>\n")
		ret.WriteString(" <launchable type=\"desktop-id\">" + utils.XMLEscape(desktopName) + ".desktop</launchable>\n")
		ret.WriteString(" <description><p>" + utils.XMLEscape(r.Description()) + "</p></description>\n")

		df := desktopfile.Parse(data)
		if df.HasKey("Name") {
			ret.WriteString(" <name>" + utils.XMLEscape(df.Value("Name", "")) + "</name>\n")
		}
		if df.HasKey("GenericName") {
			ret.WriteString(" <summary>" + utils.XMLEscape(df.Value("GenericName", "")) + "</summary>\n")
		}
		if df.HasKey("Icon") {
			iconName := df.Value("Icon", "")
			ret.WriteString(" <icon type=\"stock\">" + utils.XMLEscape(iconName) + "</icon>\n")
			for _, found := range lookupIcons(r, iconFiles, iconName, icons) {
				ret.WriteString(" <icon type=\"cached\" width=\"" + found.size + "\" height=\"" + found.size + "\">" + utils.XMLEscape(found.key) + "</icon>\n")
			}
		}
		if df.HasKey("Categories") {
			ret.WriteString(" <categories>\n")
			for _, c := range strings.Split(df.Value("Categories", ""), ";") {
				if c == "" {
					continue
				}
				ret.WriteString("  <category>" + utils.XMLEscape(c) + "</category>\n")
			}
			ret.WriteString(" </categories>\n")
		}
		ret.WriteString("</component>\n")
	}
	return ret.String()
}

type cachedIcon struct {
	key  string
	size string
}

// lookupIcons finds packaged icons for a stock icon name, preferring
// the 64x64 and 128x128 PNG renditions and falling back to scalable
// SVG when no raster version is packaged. Payloads land in icons;
// scalable entries report width and height 64.
func lookupIcons(r *rpm.Rpm, iconFiles []string, iconName string, icons map[string][]byte) []cachedIcon {
	if icons == nil {
		return nil
	}

	var relevant []string
	for _, i := range iconFiles {
		if strings.HasPrefix(i, "/usr/share/icons/") &&
			(strings.HasSuffix(i, "/64x64/apps/"+iconName+".png") ||
				strings.HasSuffix(i, "/128x128/apps/"+iconName+".png")) {
			relevant = append(relevant, i)
		}
	}
	if len(relevant) == 0 {
		for _, i := range iconFiles {
			if strings.HasPrefix(i, "/usr/share/icons/") &&
				(strings.HasSuffix(i, "/scalable/apps/"+iconName+".svg") ||
					strings.HasSuffix(i, "/scalable/apps/"+iconName+".svgz")) {
				relevant = append(relevant, i)
			}
		}
	}
	if len(relevant) == 0 {
		return nil
	}

	data, err := r.ExtractFiles(relevant)
	if err != nil {
		logrus.Warnf("Failed to extract icons from %s: %v", r.Path(), err)
		return nil
	}

	var found []cachedIcon
	for _, p := range relevant {
		payload, ok := data[p]
		if !ok {
			continue
		}
		parts := strings.Split(p, "/")
		if len(parts) < 3 {
			continue
		}
		size := parts[len(parts)-3]
		ext := ""
		if base := strings.Split(parts[len(parts)-1], "."); len(base) > 1 {
			ext = base[len(base)-1]
		}
		key := size + "/" + iconName + "." + ext
		icons[key] = payload

		if size == "scalable" {
			size = "64"
		} else if x := strings.Index(size, "x"); x >= 0 {
			size = size[:x]
		}
		found = append(found, cachedIcon{key: key, size: size})
	}
	return found
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
