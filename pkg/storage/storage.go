// Package storage provides the backing file abstraction used by emulated
// figures.
//
// A figure is persisted as a fixed-size binary blob. Registries only ever
// rewrite the whole blob from offset zero, so a [File] needs little more
// than positional writes and Close. [*os.File] satisfies it directly and
// [MemoryFile] serves tests and ephemeral figures.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ardnew/softportal/pkg"
)

// File is a figure's backing storage handle.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Open opens an existing figure file for reading and writing.
func Open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open figure %s: %w", path, err)
	}
	return f, nil
}

// ReadFigure reads exactly size bytes from the start of f.
// A shorter file reports [pkg.ErrFigureTooSmall].
func ReadFigure(f io.ReaderAt, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, 0)
	if n < size {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %d of %d bytes: %w", n, size, pkg.ErrFigureTooSmall)
		}
		return nil, err
	}
	return buf, nil
}

// OpenFigure opens path and reads its first size bytes. The returned handle
// stays open so that later block writes can be persisted through it.
func OpenFigure(path string, size int) (*os.File, []byte, error) {
	f, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := ReadFigure(f, size)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("figure %s: %w", path, err)
	}
	return f, data, nil
}

// WriteFile creates (or truncates) path and writes data to it.
func WriteFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("create figure %s: %w", path, err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		_ = f.Close()
		return fmt.Errorf("write figure %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close figure %s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentStorage, "figure written", "path", path, "size", len(data))
	return nil
}

// Save rewrites data at offset zero of f. A nil handle is a no-op.
func Save(f File, data []byte) error {
	if f == nil {
		return nil
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		pkg.LogError(pkg.ComponentStorage, "failed to persist figure", "error", err)
		return err
	}
	return nil
}

// Close closes f if it is non-nil.
func Close(f File) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		pkg.LogWarn(pkg.ComponentStorage, "failed to close figure", "error", err)
	}
}

// MemoryFile implements File using an in-memory buffer.
type MemoryFile struct {
	data   []byte
	closed bool
	writes int
	mutex  sync.Mutex
}

// NewMemoryFile creates an in-memory file holding a copy of data.
func NewMemoryFile(data []byte) *MemoryFile {
	return &MemoryFile{data: append([]byte(nil), data...)}
}

// ReadAt reads from the buffer.
func (m *MemoryFile) ReadAt(p []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return 0, os.ErrClosed
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes to the buffer, growing it as needed.
func (m *MemoryFile) WriteAt(p []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, pkg.ErrInvalidParameter
	}
	end := int(off) + len(p)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	m.writes++
	return len(p), nil
}

// Close marks the file closed.
func (m *MemoryFile) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

// Bytes returns a copy of the current contents.
func (m *MemoryFile) Bytes() []byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]byte(nil), m.data...)
}

// Closed reports whether Close has been called.
func (m *MemoryFile) Closed() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closed
}

// Writes returns the number of WriteAt calls served.
func (m *MemoryFile) Writes() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.writes
}
