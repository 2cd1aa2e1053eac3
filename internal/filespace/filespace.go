// Package filespace abstracts the scratch directory the packager works in.
// The packager and its download tasks only touch files through this
// interface, so tests can run against an in-memory implementation and
// verify that every code path leaves the space empty.
package filespace

import (
	"io"
	"os"
	"path/filepath"
)

// FileSpace is a working-directory abstraction. Paths returned by
// CreateTempDir and NewFile are opaque to callers; they are only ever
// passed back into the same FileSpace.
type FileSpace interface {
	// CreateTempDir creates a fresh scratch directory and returns its path.
	CreateTempDir() (string, error)

	// NewFile returns the path for a named file inside dir. No I/O happens
	// until the path is opened; the file does not exist yet.
	NewFile(dir, name string) string

	// Writer opens the file for writing, creating it if needed.
	Writer(path string) (io.WriteCloser, error)

	// Reader opens the file for reading.
	Reader(path string) (io.ReadCloser, error)

	// Exists reports whether the file exists.
	Exists(path string) bool

	// Delete removes the file.
	Delete(path string) error

	// DeleteDir removes the directory and everything under it.
	DeleteDir(path string) error
}

// OS is the FileSpace backed by the real filesystem. Root is the parent
// for temp dirs; empty means the system default.
type OS struct {
	Root string
}

// NewOS returns an OS-backed FileSpace rooted at the system temp dir.
func NewOS() *OS {
	return &OS{}
}

func (o *OS) CreateTempDir() (string, error) {
	return os.MkdirTemp(o.Root, "udd-")
}

func (o *OS) NewFile(dir, name string) string {
	return filepath.Join(dir, name)
}

func (o *OS) Writer(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (o *OS) Reader(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (o *OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (o *OS) Delete(path string) error {
	return os.Remove(path)
}

func (o *OS) DeleteDir(path string) error {
	return os.RemoveAll(path)
}
