package scanner

// RpmFile is one package file found in a repository directory.
type RpmFile struct {
	// Name is the file name relative to the scanned directory; it
	// doubles as the location href in the metadata.
	Name string

	// Mtime is the file's modification time as a Unix timestamp.
	Mtime int64
}
