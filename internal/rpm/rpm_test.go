package rpm

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeHeaderFixture builds a file carrying only the raw preamble
// words headerRange reads: the signature index/data sizes at offset
// 104, and the main header's at the computed start.
func writeHeaderFixture(t *testing.T, sigindex, sigdata, hdrindex, hdrdata uint32) *os.File {
	t.Helper()

	sigsize := uint64(sigdata) + 16*uint64(sigindex)
	padding := (8 - sigsize%8) % 8
	start := 112 + sigsize + padding

	buf := make([]byte, start+16)
	binary.BigEndian.PutUint32(buf[104:], sigindex)
	binary.BigEndian.PutUint32(buf[108:], sigdata)
	binary.BigEndian.PutUint32(buf[start+8:], hdrindex)
	binary.BigEndian.PutUint32(buf[start+12:], hdrdata)

	path := filepath.Join(t.TempDir(), "fixture.rpm")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open fixture: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestHeaderRange(t *testing.T) {
	tests := []struct {
		name      string
		sigindex  uint32
		sigdata   uint32
		hdrindex  uint32
		hdrdata   uint32
		wantStart uint64
		wantEnd   uint64
	}{
		{
			// 7 entries, 468 data bytes: 580 signature bytes, padded
			// by 4 to the 8 byte boundary.
			name:     "padded signature",
			sigindex: 7, sigdata: 468,
			hdrindex: 50, hdrdata: 12000,
			wantStart: 112 + 580 + 4,
			wantEnd:   112 + 580 + 4 + 12000 + 50*16 + 16,
		},
		{
			// 2 entries, 32 data bytes: already aligned, no padding.
			name:     "aligned signature",
			sigindex: 2, sigdata: 32,
			hdrindex: 4, hdrdata: 80,
			wantStart: 112 + 64,
			wantEnd:   112 + 64 + 80 + 64 + 16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := writeHeaderFixture(t, tt.sigindex, tt.sigdata, tt.hdrindex, tt.hdrdata)
			start, end, err := headerRange(f)
			if err != nil {
				t.Fatalf("headerRange failed: %v", err)
			}
			if start != tt.wantStart {
				t.Errorf("start = %d, want %d", start, tt.wantStart)
			}
			if end != tt.wantEnd {
				t.Errorf("end = %d, want %d", end, tt.wantEnd)
			}
		})
	}
}

func TestHeaderRangeTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.rpm")
	if err := os.WriteFile(path, make([]byte, 100), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open fixture: %v", err)
	}
	defer f.Close()

	if _, _, err := headerRange(f); err == nil {
		t.Error("expected an error for a file shorter than the preamble")
	}
}
