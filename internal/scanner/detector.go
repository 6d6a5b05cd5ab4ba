package scanner

import (
	"bytes"
	"os"
	"path/filepath"
)

// RPM packages start with 0xED 0xAB 0xEE 0xDB
var rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

// IsRpm reports whether a file looks like an RPM package: it needs
// the .rpm extension and the lead magic. A file that cannot be read
// is not reported as a package.
func IsRpm(path string) bool {
	if filepath.Ext(path) != ".rpm" {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(rpmMagic))
	if _, err := f.Read(header); err != nil {
		return false
	}
	return bytes.Equal(header, rpmMagic)
}
