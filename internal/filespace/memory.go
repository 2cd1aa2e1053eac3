package filespace

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

// Memory is an in-memory FileSpace for tests. It tracks directories and
// file contents in maps so tests can assert that a code path cleaned up
// after itself. Safe for concurrent use; download tasks run in parallel.
type Memory struct {
	mu      sync.Mutex
	nextDir int
	dirs    map[string]bool
	files   map[string][]byte
}

// NewMemory returns an empty in-memory FileSpace.
func NewMemory() *Memory {
	return &Memory{
		dirs:  make(map[string]bool),
		files: make(map[string][]byte),
	}
}

func (m *Memory) CreateTempDir() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDir++
	dir := fmt.Sprintf("/mem/tmp%d", m.nextDir)
	m.dirs[dir] = true
	return dir, nil
}

func (m *Memory) NewFile(dir, name string) string {
	return path.Join(dir, name)
}

// Writer returns a writer whose contents are visible in the space as soon
// as they are written. A file written with zero bytes still exists.
func (m *Memory) Writer(filePath string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[path.Dir(filePath)] {
		return nil, fmt.Errorf("directory does not exist: %s", path.Dir(filePath))
	}
	return &memWriter{space: m, path: filePath}, nil
}

func (m *Memory) Reader(filePath string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[filePath]
	if !ok {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *Memory) Exists(filePath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filePath]
	return ok
}

func (m *Memory) Delete(filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[filePath]; !ok {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	delete(m.files, filePath)
	return nil
}

// DeleteDir removes the directory and every file under it.
func (m *Memory) DeleteDir(dirPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[dirPath] {
		return fmt.Errorf("directory does not exist: %s", dirPath)
	}
	delete(m.dirs, dirPath)
	prefix := dirPath + "/"
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	return nil
}

// IsEmpty reports whether the space holds no files and no directories.
func (m *Memory) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirs) == 0 && len(m.files) == 0
}

// Bytes returns the contents of a file, or nil if it does not exist.
func (m *Memory) Bytes(filePath string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[filePath]
	if !ok {
		return nil
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out
}

type memWriter struct {
	space  *Memory
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write to closed file: %s", w.path)
	}
	// Make partial writes visible immediately, like a real file. Tasks that
	// fail mid-download must still see (and clean up) the partial file.
	n, err := w.buf.Write(p)
	w.space.mu.Lock()
	w.space.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	w.space.mu.Unlock()
	return n, err
}

func (w *memWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.space.mu.Lock()
	w.space.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	w.space.mu.Unlock()
	return nil
}
