package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Backend for tests. It stores file contents in a map
// keyed by slash-separated path and tracks directories explicitly so ReadDir
// behaves like the disk backend.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true},
	}
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[clean(path)]
	if !ok {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = clean(path)
	m.markParents(path)
	stored := make([]byte, len(data))
	copy(stored, data)
	m.files[path] = stored
	return nil
}

func (m *Memory) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = clean(path)
	if _, ok := m.files[path]; ok {
		return true
	}
	return m.dirs[path]
}

func (m *Memory) ReadDir(dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dir = clean(dir)
	if !m.dirs[dir] {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}

	seen := make(map[string]bool)
	prefix := dir + "/"
	if dir == "." {
		prefix = ""
	}
	for path := range m.files {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			seen[firstSegment(rest)] = true
		}
	}
	for path := range m.dirs {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
			seen[firstSegment(rest)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = clean(dir)
	m.markParents(dir)
	m.dirs[dir] = true
	return nil
}

func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = clean(path)
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("file does not exist: %s", path)
	}
	delete(m.files, path)
	return nil
}

func (m *Memory) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = clean(path)
	prefix := path + "/"
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	for d := range m.dirs {
		if d == path || strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

// markParents records every directory on the way to path so listings see
// intermediate directories, mirroring MkdirAll on disk.
func (m *Memory) markParents(path string) {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		m.dirs[strings.Join(parts[:i], "/")] = true
	}
}

func clean(path string) string {
	path = strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	if path == "" {
		return "."
	}
	return path
}

func firstSegment(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
