package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	gopath "path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/kaplanelad/active-storage/interfaces"
)

// IPFSConfig holds the parameters for an IPFSDriver.
type IPFSConfig struct {
	// Address is the IPFS API address, host:port.
	Address string
	// BasePath is the MFS directory objects live under, e.g. "/active-storage".
	BasePath string
}

// IPFSDriver stores objects through an IPFS node's Mutable File System, which
// gives the content-addressed DAG a path-keyed view matching the driver
// contract.
//
// MFS does not track modification times, so LastModified reports an opaque
// unsupported-operation error for existing objects.
type IPFSDriver struct {
	shell    *shell.Shell
	basePath string
	log      *slog.Logger
}

// NewIPFSDriver creates a driver connected to the IPFS API at the given
// address.
func NewIPFSDriver(config IPFSConfig, logger *slog.Logger) *IPFSDriver {
	if logger == nil {
		logger = slog.Default()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = "/active-storage"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	return &IPFSDriver{
		shell:    shell.NewShell(config.Address),
		basePath: basePath,
		log:      logger,
	}
}

// Clone returns a copy sharing the shell handle; the shell is safe for
// concurrent use.
func (d *IPFSDriver) Clone() interfaces.Driver {
	return &IPFSDriver{shell: d.shell, basePath: d.basePath, log: d.log}
}

func (d *IPFSDriver) mfsPath(path string) (string, error) {
	p, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	return gopath.Join(d.basePath, p), nil
}

// Read returns the file content stored at path.
func (d *IPFSDriver) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := d.mfsPath(path)
	if err != nil {
		return nil, err
	}

	reader, err := d.shell.FilesRead(ctx, p)
	if err != nil {
		return nil, mapIPFSError(err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("%w: reading file body: %v", interfaces.ErrNetwork, err)
	}
	return buf.Bytes(), nil
}

// FileExists reports whether a file exists at path.
func (d *IPFSDriver) FileExists(ctx context.Context, path string) (bool, error) {
	p, err := d.mfsPath(path)
	if err != nil {
		return false, err
	}

	stat, err := d.shell.FilesStat(ctx, p)
	if err != nil {
		mapped := mapIPFSError(err)
		if errors.Is(mapped, interfaces.ErrResourceNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return stat.Type == "file", nil
}

// Write stores content at path, creating missing parent directories.
func (d *IPFSDriver) Write(ctx context.Context, path string, content []byte) error {
	p, err := d.mfsPath(path)
	if err != nil {
		return err
	}

	err = d.shell.FilesWrite(ctx, p, bytes.NewReader(content),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return mapIPFSError(err)
	}

	d.log.Debug("Stored object in IPFS",
		slog.String("path", p),
		slog.Int("size", len(content)))

	return nil
}

// Delete removes the file at path.
func (d *IPFSDriver) Delete(ctx context.Context, path string) error {
	exists, err := d.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrResourceNotFound
	}

	p, err := d.mfsPath(path)
	if err != nil {
		return err
	}

	if err := d.shell.FilesRm(ctx, p, true); err != nil {
		return mapIPFSError(err)
	}
	return nil
}

// DeleteDirectory removes the MFS directory at path and everything under it.
func (d *IPFSDriver) DeleteDirectory(ctx context.Context, path string) error {
	p, err := d.mfsPath(path)
	if err != nil {
		return err
	}

	stat, err := d.shell.FilesStat(ctx, p)
	if err != nil {
		return mapIPFSError(err)
	}
	if stat.Type != "directory" {
		return interfaces.ErrResourceNotFound
	}

	if err := d.shell.FilesRm(ctx, p, true); err != nil {
		return mapIPFSError(err)
	}
	return nil
}

// LastModified is not supported by the MFS API; existing objects surface an
// opaque error, missing objects surface ErrResourceNotFound.
func (d *IPFSDriver) LastModified(ctx context.Context, path string) (time.Time, error) {
	exists, err := d.FileExists(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	if !exists {
		return time.Time{}, interfaces.ErrResourceNotFound
	}
	return time.Time{}, fmt.Errorf("ipfs: last modified is not supported by the files API")
}

// mapIPFSError translates IPFS API errors into the driver error taxonomy.
func mapIPFSError(err error) error {
	if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "not found") {
		return interfaces.ErrResourceNotFound
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", interfaces.ErrNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", interfaces.ErrNetwork, err)
	}

	return fmt.Errorf("ipfs: %w", err)
}
