package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSha256Bytes(t *testing.T) {
	if got := Sha256Bytes([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("Sha256Bytes(abc) = %s", got)
	}
	if got := Sha256Bytes(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sha256Bytes(empty) = %s", got)
	}
}

func TestSha256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	sum, err := Sha256File(path)
	if err != nil {
		t.Fatalf("Sha256File failed: %v", err)
	}
	if sum != Sha256Bytes([]byte("abc")) {
		t.Errorf("File and in-memory checksums disagree: %s", sum)
	}

	if _, err := Sha256File(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
