package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSlot implements the Slot interface as a single JSON file on the local filesystem
type FileSlot struct {
	path string
}

// NewFileSlot creates a FileSlot, creating the parent directory if needed
func NewFileSlot(path string) (*FileSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FileSlot{path: path}, nil
}

// Get reads the file; a missing file is an empty slot
func (f *FileSlot) Get() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Put writes to a temporary file and renames it over the slot, so a crash
// never leaves a half-written collection behind
func (f *FileSlot) Put(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".scansheet-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing file: %w", err)
	}
	return nil
}

// Close is a no-op for files
func (f *FileSlot) Close() error {
	return nil
}
