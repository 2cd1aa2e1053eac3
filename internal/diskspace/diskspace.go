// Package diskspace checks free disk space before a packaging job starts
// pulling downloads into the scratch directory.
package diskspace

import (
	"errors"
	"fmt"
)

// InsufficientSpaceError indicates the scratch filesystem does not have
// room for a packaging job.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space at %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// IsInsufficientSpaceError reports whether err is an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}

// CheckAvailableSpace verifies the filesystem containing dir can hold
// requiredBytes times safetyMargin. If free space can't be determined (odd
// filesystems, network mounts) the check passes and the job fails naturally
// if space runs out.
func CheckAvailableSpace(dir string, requiredBytes int64, safetyMargin float64) error {
	availableBytes := availableSpace(dir)
	if availableBytes == 0 {
		return nil
	}
	requiredWithMargin := int64(float64(requiredBytes) * safetyMargin)
	if availableBytes < requiredWithMargin {
		return &InsufficientSpaceError{
			Path:           dir,
			RequiredBytes:  requiredWithMargin,
			AvailableBytes: availableBytes,
		}
	}
	return nil
}
