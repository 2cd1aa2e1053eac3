package filespace

import (
	"io"
	"testing"
)

func TestMemoryLifecycle(t *testing.T) {
	space := NewMemory()
	if !space.IsEmpty() {
		t.Fatal("new space should be empty")
	}

	dir, err := space.CreateTempDir()
	if err != nil {
		t.Fatalf("CreateTempDir failed: %v", err)
	}
	if space.IsEmpty() {
		t.Error("space with a dir should not be empty")
	}

	filePath := space.NewFile(dir, "test.csv")
	if space.Exists(filePath) {
		t.Error("NewFile should not create the file")
	}

	w, err := space.Writer(filePath)
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	if _, err := io.WriteString(w, "dummy content"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !space.Exists(filePath) {
		t.Error("file should exist after write")
	}
	if got := string(space.Bytes(filePath)); got != "dummy content" {
		t.Errorf("file content = %q", got)
	}

	r, err := space.Reader(filePath)
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	r.Close()
	if string(content) != "dummy content" {
		t.Errorf("read content = %q", content)
	}

	if err := space.Delete(filePath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if space.Exists(filePath) {
		t.Error("file should be gone after delete")
	}
	if err := space.DeleteDir(dir); err != nil {
		t.Fatalf("DeleteDir failed: %v", err)
	}
	if !space.IsEmpty() {
		t.Error("space should be empty after teardown")
	}
}

func TestMemoryDeleteDirRemovesContents(t *testing.T) {
	space := NewMemory()
	dir, _ := space.CreateTempDir()

	for _, name := range []string{"a.csv", "b.zip"} {
		w, err := space.Writer(space.NewFile(dir, name))
		if err != nil {
			t.Fatalf("Writer failed: %v", err)
		}
		io.WriteString(w, "x")
		w.Close()
	}

	if err := space.DeleteDir(dir); err != nil {
		t.Fatalf("DeleteDir failed: %v", err)
	}
	if !space.IsEmpty() {
		t.Error("DeleteDir should remove contained files")
	}
}

func TestMemoryPartialWritesVisible(t *testing.T) {
	space := NewMemory()
	dir, _ := space.CreateTempDir()
	filePath := space.NewFile(dir, "partial.csv")

	w, err := space.Writer(filePath)
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	io.WriteString(w, "partial")

	// File abandoned mid-write, never closed. It must still be visible so
	// cleanup logic can find and delete it.
	if !space.Exists(filePath) {
		t.Error("partially written file should exist")
	}
	if got := string(space.Bytes(filePath)); got != "partial" {
		t.Errorf("partial content = %q", got)
	}
}

func TestMemoryWriterRequiresDir(t *testing.T) {
	space := NewMemory()
	if _, err := space.Writer("/mem/nodir/file.csv"); err == nil {
		t.Error("expected error writing into nonexistent dir")
	}
}
