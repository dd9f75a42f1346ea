package storage

import (
	"context"
	gopath "path"
	"sync"
	"time"

	"github.com/kaplanelad/active-storage/interfaces"
)

type memoryFile struct {
	content      []byte
	lastModified time.Time
}

// MemoryDriver keeps all objects in process memory behind a mutex. It backs
// tests and development setups and doubles as the reference implementation of
// the driver contract.
//
// Alongside the file map it maintains a directory index (directory path to
// child set) so DeleteDirectory can distinguish a directory that never
// existed from one that is merely empty of matches.
type MemoryDriver struct {
	mu    sync.Mutex
	files map[string]memoryFile
	dirs  map[string]map[string]struct{}
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		files: make(map[string]memoryFile),
		dirs:  make(map[string]map[string]struct{}),
	}
}

// Clone returns an independent deep copy of the driver state.
func (d *MemoryDriver) Clone() interfaces.Driver {
	d.mu.Lock()
	defer d.mu.Unlock()

	clone := NewMemoryDriver()
	for p, f := range d.files {
		content := make([]byte, len(f.content))
		copy(content, f.content)
		clone.files[p] = memoryFile{content: content, lastModified: f.lastModified}
	}
	for dir, children := range d.dirs {
		set := make(map[string]struct{}, len(children))
		for child := range children {
			set[child] = struct{}{}
		}
		clone.dirs[dir] = set
	}
	return clone
}

// Read returns the contents stored at path.
func (d *MemoryDriver) Read(_ context.Context, path string) ([]byte, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	file, ok := d.files[p]
	if !ok {
		return nil, interfaces.ErrResourceNotFound
	}

	content := make([]byte, len(file.content))
	copy(content, file.content)
	return content, nil
}

// FileExists reports whether an object exists at path.
func (d *MemoryDriver) FileExists(_ context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.files[p]
	return ok, nil
}

// Write stores content at path and records the parent directory in the index.
func (d *MemoryDriver) Write(_ context.Context, path string, content []byte) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.files[p] = memoryFile{content: stored, lastModified: time.Now()}

	for dir := gopath.Dir(p); dir != "."; dir = gopath.Dir(dir) {
		if d.dirs[dir] == nil {
			d.dirs[dir] = make(map[string]struct{})
		}
		d.dirs[dir][p] = struct{}{}
	}

	return nil
}

// Delete removes the object at path.
func (d *MemoryDriver) Delete(_ context.Context, path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[p]; !ok {
		return interfaces.ErrResourceNotFound
	}
	delete(d.files, p)

	for dir := gopath.Dir(p); dir != "."; dir = gopath.Dir(dir) {
		delete(d.dirs[dir], p)
	}

	return nil
}

// DeleteDirectory removes every object under path. The directory must be
// present in the index, otherwise ErrResourceNotFound.
func (d *MemoryDriver) DeleteDirectory(_ context.Context, path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.dirs[p]; !ok {
		return interfaces.ErrResourceNotFound
	}

	for dir := range d.dirs {
		if underDirectory(dir, p) {
			delete(d.dirs, dir)
		}
	}
	for filePath := range d.files {
		if underDirectory(filePath, p) {
			delete(d.files, filePath)
		}
	}

	return nil
}

// LastModified returns the write timestamp of the object at path.
func (d *MemoryDriver) LastModified(_ context.Context, path string) (time.Time, error) {
	p, err := normalizePath(path)
	if err != nil {
		return time.Time{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	file, ok := d.files[p]
	if !ok {
		return time.Time{}, interfaces.ErrResourceNotFound
	}
	return file.lastModified, nil
}
