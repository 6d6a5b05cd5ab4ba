package rpm

import "testing"

func TestPrimaryFileSelection(t *testing.T) {
	tests := []struct {
		path string
		mode uint32
		want bool
	}{
		{"/usr/bin/hello", 0o100755, true},
		{"/usr/bin/hello", 0o100644, false},
		{"/usr/lib64/libhello.so.1", 0o100755, false},
		{"/usr/share/doc/hello/README", 0o100644, false},
		{"/etc/hello.conf", 0o100644, true},
		{"/etc/hello.d", 0o040755, true},
		{"/usr/bin", 0o040755, false},
		// Group or other exec bit is enough.
		{"/usr/libexec/helper", 0o100655, true},
	}

	for _, tt := range tests {
		f := FileInfo{Path: tt.path, Mode: tt.mode}
		if got := f.primary(); got != tt.want {
			t.Errorf("primary(%q, %o) = %v, want %v", tt.path, tt.mode, got, tt.want)
		}
	}
}

func TestFileInfoTypes(t *testing.T) {
	ghost := FileInfo{Path: "/var/log/hello.log", Attrs: FileAttrGhost, Mode: 0o100644}
	if !ghost.Ghost() {
		t.Error("ghost attribute not detected")
	}
	dir := FileInfo{Path: "/usr/share/hello", Mode: 0o040755}
	if !dir.Dir() {
		t.Error("directory mode not detected")
	}
	if dir.Ghost() {
		t.Error("plain directory reported as ghost")
	}
	reg := FileInfo{Path: "/usr/bin/hello", Mode: 0o100755}
	if reg.Dir() {
		t.Error("regular file reported as directory")
	}
}
