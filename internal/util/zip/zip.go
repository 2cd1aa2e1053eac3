// Package zip builds the master archive for a download request.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/filespace"
)

// Helper zips files through a FileSpace, so archives can be built and
// verified without touching the real filesystem.
type Helper struct {
	fs filespace.FileSpace
}

// NewHelper returns a Helper over the given FileSpace.
func NewHelper(fs filespace.FileSpace) *Helper {
	return &Helper{fs: fs}
}

// Zip writes the given files into a zip archive at outPath. Entries are
// named by file basename with no directory structure. Duplicate basenames
// are rejected before any bytes are written; a second entry with the same
// name would silently shadow the first on extraction. Any I/O error aborts
// the write and deletes the partial archive.
func (h *Helper) Zip(outPath string, files []string) error {
	seen := make(map[string]string, len(files))
	for _, file := range files {
		base := filepath.Base(file)
		if prev, ok := seen[base]; ok {
			return fmt.Errorf("duplicate archive entry %q from %s and %s", base, prev, file)
		}
		seen[base] = file
	}

	out, err := h.fs.Writer(outPath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", outPath, err)
	}

	if err := h.writeEntries(out, files); err != nil {
		out.Close()
		if h.fs.Exists(outPath) {
			_ = h.fs.Delete(outPath)
		}
		return err
	}
	if err := out.Close(); err != nil {
		if h.fs.Exists(outPath) {
			_ = h.fs.Delete(outPath)
		}
		return fmt.Errorf("failed to finish archive %s: %w", outPath, err)
	}
	return nil
}

func (h *Helper) writeEntries(out io.Writer, files []string) error {
	zipWriter := zip.NewWriter(out)
	for _, file := range files {
		entry, err := zipWriter.Create(filepath.Base(file))
		if err != nil {
			return fmt.Errorf("failed to create entry for %s: %w", file, err)
		}
		if err := h.copyFile(entry, file); err != nil {
			return err
		}
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}

func (h *Helper) copyFile(dst io.Writer, file string) error {
	in, err := h.fs.Reader(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer in.Close()
	if _, err := io.Copy(dst, in); err != nil {
		return fmt.Errorf("failed to copy %s into archive: %w", file, err)
	}
	return nil
}
