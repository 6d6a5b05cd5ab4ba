package rpm

import "strings"

// FileInfo is one packaged file as it appears in the header's
// parallel filename/flags/modes arrays.
type FileInfo struct {
	Path  string
	Attrs int
	Mode  uint32
}

// Ghost reports whether the file is a ghost entry.
func (f FileInfo) Ghost() bool { return f.Attrs&FileAttrGhost != 0 }

// Dir reports whether the mode describes a directory.
func (f FileInfo) Dir() bool { return f.Mode&modeTypeMask == modeDir }

// primary reports whether the file belongs in primary.xml: an
// executable regular file outside the shared-library namespace, or
// anything under /etc/.
func (f FileInfo) primary() bool {
	if strings.HasPrefix(f.Path, "/etc/") {
		return true
	}
	if f.Mode&modeTypeMask != modeRegular {
		return false
	}
	if f.Mode&modeExecAny == 0 {
		return false
	}
	return !strings.Contains(f.Path, ".so")
}

// FileList returns the packaged files, restricted to the primary set
// when onlyPrimary is set. The entries are the file list as
// go-rpmutils assembles it from the header; this function does not
// compare the lengths of the header arrays itself, and when the list
// cannot be assembled it returns no files.
func (r *Rpm) FileList(onlyPrimary bool) []FileInfo {
	entries, err := r.hdr.GetFiles()
	if err != nil {
		return nil
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		fi := FileInfo{
			Path:  entry.Name(),
			Attrs: entry.Flags(),
			Mode:  uint32(entry.Mode()),
		}
		if onlyPrimary && !fi.primary() {
			continue
		}
		files = append(files, fi)
	}
	return files
}
