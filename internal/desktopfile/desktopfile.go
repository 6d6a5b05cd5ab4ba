package desktopfile

import (
	"gopkg.in/ini.v1"
)

// entrySection is where freedesktop.org desktop files keep their keys.
const entrySection = "Desktop Entry"

// File is a parsed .desktop file.
type File struct {
	f *ini.File
}

// Parse reads an INI-style desktop file. Malformed lines are skipped;
// unparseable input yields an empty file rather than an error.
func Parse(data []byte) *File {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		f = ini.Empty()
	}
	return &File{f: f}
}

// Value looks a key up in the Desktop Entry section, returning def
// when the key is absent.
func (d *File) Value(key, def string) string {
	sec := d.f.Section(entrySection)
	if !sec.HasKey(key) {
		return def
	}
	return sec.Key(key).String()
}

// HasKey reports whether the Desktop Entry section carries the key.
func (d *File) HasKey(key string) bool {
	return d.f.Section(entrySection).HasKey(key)
}
