package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kaplanelad/active-storage/interfaces"
)

// DiskConfig holds the parameters for a DiskDriver.
type DiskConfig struct {
	// Location is the root directory all object paths are resolved under.
	Location string
}

// DiskDriver stores objects as plain files under a root location. Object
// paths map directly onto the directory tree; parent directories are created
// on write.
type DiskDriver struct {
	location string
	log      *slog.Logger
}

// NewDiskDriver creates a disk driver rooted at config.Location, creating the
// root directory if it does not exist yet.
func NewDiskDriver(config DiskConfig, logger *slog.Logger) (*DiskDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(config.Location, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root location: %w", err)
	}

	return &DiskDriver{location: config.Location, log: logger}, nil
}

// Clone returns a copy sharing the same root. The driver itself is stateless,
// all durable state lives on disk.
func (d *DiskDriver) Clone() interfaces.Driver {
	return &DiskDriver{location: d.location, log: d.log}
}

// resolve maps an object path onto the filesystem, keeping it inside the root.
func (d *DiskDriver) resolve(path string) (string, error) {
	p, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.location, filepath.FromSlash(p)), nil
}

// Read returns the contents of the file at path.
func (d *DiskDriver) Read(_ context.Context, path string) ([]byte, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, mapDiskError(err)
	}
	return data, nil
}

// FileExists reports whether a regular file exists at path. Directories do
// not count as objects.
func (d *DiskDriver) FileExists(_ context.Context, path string) (bool, error) {
	full, err := d.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, mapDiskError(err)
	}
	return info.Mode().IsRegular(), nil
}

// Write stores content at path, creating missing parent directories.
func (d *DiskDriver) Write(_ context.Context, path string, content []byte) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return mapDiskError(err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return mapDiskError(err)
	}

	d.log.Debug("Stored object on disk",
		slog.String("path", full),
		slog.Int("size", len(content)))

	return nil
}

// Delete removes the file at path, failing with ErrResourceNotFound when it
// does not exist.
func (d *DiskDriver) Delete(_ context.Context, path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(full); err != nil {
		return mapDiskError(err)
	}
	if err := os.Remove(full); err != nil {
		return mapDiskError(err)
	}
	return nil
}

// DeleteDirectory removes the directory at path and everything under it,
// failing with ErrResourceNotFound when it does not exist.
func (d *DiskDriver) DeleteDirectory(_ context.Context, path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(full); err != nil {
		return mapDiskError(err)
	}
	if err := os.RemoveAll(full); err != nil {
		return mapDiskError(err)
	}
	return nil
}

// LastModified returns the file modification time at path.
func (d *DiskDriver) LastModified(_ context.Context, path string) (time.Time, error) {
	full, err := d.resolve(path)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return time.Time{}, mapDiskError(err)
	}
	return info.ModTime(), nil
}

// mapDiskError translates os errors into the driver error taxonomy.
func mapDiskError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return interfaces.ErrResourceNotFound
	case errors.Is(err, fs.ErrInvalid):
		return interfaces.ErrInvalidPath
	default:
		return fmt.Errorf("disk: %w", err)
	}
}
