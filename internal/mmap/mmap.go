//go:build unix

// Package mmap maps squashed genome files read-only into memory. The page
// cache is the only caching layer; nothing is copied.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a read-only memory mapping of a whole file.
type File struct {
	path   string
	data   []byte
	mapped bool
}

// Open maps path read-only. Zero-length files yield an empty, unmapped
// File.
func Open(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // squash files are named by the caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // the mapping outlives the descriptor

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &File{path: path}, nil
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("mmap %s: file too large (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &File{path: path, data: data, mapped: true}, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *File) Bytes() []byte {
	return m.data
}

// Len returns the file size in bytes.
func (m *File) Len() int {
	return len(m.data)
}

// Path returns the mapped file's path.
func (m *File) Path() string {
	return m.path
}

// AdviseSequential hints that the mapping will be read front to back.
func (m *File) AdviseSequential() error {
	if !m.mapped {
		return nil
	}
	return unix.Madvise(m.data, unix.MADV_SEQUENTIAL)
}

// Close unmaps the file. Calling Close more than once is a no-op.
func (m *File) Close() error {
	if !m.mapped {
		return nil
	}
	data := m.data
	m.data, m.mapped = nil, false
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap %s: %w", m.path, err)
	}
	return nil
}
