package storage

import (
	"context"
	"time"

	"github.com/kaplanelad/active-storage/interfaces"
)

// Store is a single named storage endpoint: a pure forwarding facade over one
// Driver. All durable state lives in the driver; the Store adds no fan-out,
// retry, or caching behavior.
type Store struct {
	driver interfaces.Driver
}

// NewStore wraps a driver.
func NewStore(driver interfaces.Driver) *Store {
	return &Store{driver: driver}
}

// Driver exposes the underlying driver, mainly for tests.
func (s *Store) Driver() interfaces.Driver {
	return s.driver
}

// Clone duplicates the store together with its driver.
func (s *Store) Clone() *Store {
	return &Store{driver: s.driver.Clone()}
}

// Read returns the raw contents stored at path.
func (s *Store) Read(ctx context.Context, path string) (interfaces.Contents, error) {
	data, err := s.driver.Read(ctx, path)
	if err != nil {
		return interfaces.Contents{}, err
	}
	return interfaces.NewContents(data), nil
}

// ReadText returns the contents at path decoded as UTF-8 text. Invalid UTF-8
// surfaces interfaces.ErrDecode.
func (s *Store) ReadText(ctx context.Context, path string) (string, error) {
	contents, err := s.Read(ctx, path)
	if err != nil {
		return "", err
	}
	return contents.Text()
}

// FileExists reports whether an object exists at path.
func (s *Store) FileExists(ctx context.Context, path string) (bool, error) {
	return s.driver.FileExists(ctx, path)
}

// Write stores content at path, overwriting any existing object.
func (s *Store) Write(ctx context.Context, path string, content []byte) error {
	return s.driver.Write(ctx, path, content)
}

// Delete removes the object at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	return s.driver.Delete(ctx, path)
}

// DeleteDirectory removes every object under the given directory.
func (s *Store) DeleteDirectory(ctx context.Context, path string) error {
	return s.driver.DeleteDirectory(ctx, path)
}

// LastModified returns the modification timestamp of the object at path.
func (s *Store) LastModified(ctx context.Context, path string) (time.Time, error) {
	return s.driver.LastModified(ctx, path)
}
