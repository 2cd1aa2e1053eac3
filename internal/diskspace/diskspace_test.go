package diskspace

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckAvailableSpaceSmall(t *testing.T) {
	if err := CheckAvailableSpace(t.TempDir(), 1024, 1.1); err != nil {
		t.Errorf("1KB should fit: %v", err)
	}
}

func TestCheckAvailableSpaceHuge(t *testing.T) {
	// 100TB should exceed free space anywhere this runs.
	err := CheckAvailableSpace(t.TempDir(), 100<<40, 1.1)
	if err == nil {
		t.Skip("system reports over 100TB free")
	}
	if !IsInsufficientSpaceError(err) {
		t.Errorf("error = %T, want InsufficientSpaceError", err)
	}
}

func TestInsufficientSpaceErrorMessage(t *testing.T) {
	err := &InsufficientSpaceError{
		Path:           "/scratch",
		RequiredBytes:  100 * 1024 * 1024,
		AvailableBytes: 50 * 1024 * 1024,
	}
	msg := err.Error()
	for _, want := range []string{"/scratch", "100.00", "50.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	if IsInsufficientSpaceError(errors.New("other")) {
		t.Error("plain error should not match")
	}
	if IsInsufficientSpaceError(nil) {
		t.Error("nil should not match")
	}
}
