package pdb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile is a read-only memory mapping of a whole file.
type MmapFile struct {
	path string
	data []byte
	size int64
}

// OpenMmap opens a file and maps it into memory.
func OpenMmap(path string) (*MmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return &MmapFile{path: path}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &MmapFile{path: path, data: data, size: size}, nil
}

// Close unmaps the file. Slices returned by Data must not be used afterwards.
func (m *MmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Data returns the mapped bytes.
func (m *MmapFile) Data() []byte {
	return m.data
}

// Size returns the file size.
func (m *MmapFile) Size() int64 {
	return m.size
}

// Path returns the mapped file path.
func (m *MmapFile) Path() string {
	return m.path
}
