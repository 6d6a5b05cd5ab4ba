package scanner

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
)

// FindRpms lists the RPM files directly inside dir, sorted by name.
// The emission order of the metadata documents follows this sort.
func FindRpms(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var rpms []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !IsRpm(path) {
			continue
		}
		logrus.Debugf("Found rpm package: %s", path)
		rpms = append(rpms, entry.Name())
	}
	sort.Strings(rpms)
	return rpms, nil
}

// FindRpmsByMtime lists the RPM files directly inside dir, newest
// first. The incremental pass walks this list and stops at the first
// package that is not newer than the previous metadata.
func FindRpmsByMtime(dir string) ([]RpmFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var rpms []RpmFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !IsRpm(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logrus.Warnf("Can't stat %s: %v", path, err)
			continue
		}
		rpms = append(rpms, RpmFile{Name: entry.Name(), Mtime: info.ModTime().Unix()})
	}
	sort.Slice(rpms, func(i, j int) bool { return rpms[i].Mtime > rpms[j].Mtime })
	return rpms, nil
}
