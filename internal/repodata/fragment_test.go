package repodata

import (
	"testing"

	"github.com/openmandriva/createmd/internal/rpm"
)

func TestDepEntry(t *testing.T) {
	tests := []struct {
		name string
		dep  rpm.Dependency
		want string
	}{
		{
			"unversioned",
			rpm.Dependency{Name: "libc.so.6()(64bit)"},
			`<rpm:entry name="libc.so.6()(64bit)"/>`,
		},
		{
			"versioned with epoch and release",
			rpm.Dependency{Name: "hello", Flags: 8, Version: "1:2.3-4"},
			`<rpm:entry name="hello" flags="EQ" epoch="1" ver="2.3" rel="4"/>`,
		},
		{
			"version only",
			rpm.Dependency{Name: "hello", Flags: 12, Version: "2.3"},
			`<rpm:entry name="hello" flags="GE" ver="2.3"/>`,
		},
		{
			"release without epoch",
			rpm.Dependency{Name: "hello", Flags: 2, Version: "2.3-4"},
			`<rpm:entry name="hello" flags="LT" ver="2.3" rel="4"/>`,
		},
		{
			// An interpreter dependency: version carried without
			// comparison flags still renders its ver attribute.
			"version without flags",
			rpm.Dependency{Name: "/bin/sh", Version: "5.2"},
			`<rpm:entry name="/bin/sh" ver="5.2"/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := depEntry(tt.dep); got != tt.want {
				t.Errorf("depEntry = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFileEntryType(t *testing.T) {
	plain := rpm.FileInfo{Path: "/usr/bin/hello", Mode: 0o100755}
	if got := fileEntryType(plain); got != "" {
		t.Errorf("plain file type = %q", got)
	}
	dir := rpm.FileInfo{Path: "/usr/share/hello", Mode: 0o040755}
	if got := fileEntryType(dir); got != ` type="dir"` {
		t.Errorf("dir type = %q", got)
	}
	// A ghost directory reports as ghost, not dir.
	ghostDir := rpm.FileInfo{Path: "/var/cache/hello", Mode: 0o040755, Attrs: rpm.FileAttrGhost}
	if got := fileEntryType(ghostDir); got != ` type="ghost"` {
		t.Errorf("ghost dir type = %q", got)
	}
}

func TestTempDirName(t *testing.T) {
	name := tempDirName()
	if name == ".repodata.temp." {
		t.Error("Temp dir name carries no pid")
	}
	if name[0] != '.' {
		t.Errorf("Temp dir %q not hidden", name)
	}
}
