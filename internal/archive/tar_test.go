package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icons.tar")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	files := map[string][]byte{
		"64x64/hello.png":   []byte("png data"),
		"128x128/hello.png": []byte("bigger png data"),
	}
	for name, data := range files {
		if err := w.AddFile(name, data); err != nil {
			t.Fatalf("AddFile(%s) failed: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer f.Close()

	r := NewReader(f)
	seen := make(map[string]string)
	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		seen[entry.Name] = string(entry.Data)
	}

	if len(seen) != len(files) {
		t.Fatalf("Read %d entries, want %d", len(seen), len(files))
	}
	for name, data := range files {
		if seen[name] != string(data) {
			t.Errorf("Entry %s = %q, want %q", name, seen[name], data)
		}
	}
}
