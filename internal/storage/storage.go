// Package storage handles the file system operations behind the version
// store. The Backend interface abstracts the medium so tests can run against
// an in-memory implementation.
package storage

import (
	"os"
	"path/filepath"
	"sort"
)

// Backend provides the read/write/list/exists operations the version store
// needs. Paths are slash-separated and relative to the store root.
type Backend interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Exists(path string) bool
	// ReadDir returns the names of the entries directly under dir, sorted.
	ReadDir(dir string) ([]string, error)
	MkdirAll(dir string) error
	Remove(path string) error
	RemoveAll(path string) error
}

// Filesystem is the Backend backed by the local disk, rooted at a base
// directory.
type Filesystem struct {
	rootPath string
}

// NewFilesystem creates a disk-backed backend rooted at rootPath.
func NewFilesystem(rootPath string) *Filesystem {
	return &Filesystem{rootPath: rootPath}
}

// Root returns the base directory of the backend.
func (f *Filesystem) Root() string {
	return f.rootPath
}

func (f *Filesystem) abs(path string) string {
	return filepath.Join(f.rootPath, filepath.FromSlash(path))
}

func (f *Filesystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(f.abs(path))
}

func (f *Filesystem) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.abs(path)), 0755); err != nil {
		return err
	}
	return os.WriteFile(f.abs(path), data, 0644)
}

func (f *Filesystem) Exists(path string) bool {
	_, err := os.Stat(f.abs(path))
	return err == nil
}

func (f *Filesystem) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(f.abs(dir))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (f *Filesystem) MkdirAll(dir string) error {
	return os.MkdirAll(f.abs(dir), 0755)
}

func (f *Filesystem) Remove(path string) error {
	return os.Remove(f.abs(path))
}

func (f *Filesystem) RemoveAll(path string) error {
	return os.RemoveAll(f.abs(path))
}
