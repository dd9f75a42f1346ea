package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaplanelad/active-storage/interfaces"
)

func newTestDiskDriver(t *testing.T) *DiskDriver {
	t.Helper()
	driver, err := NewDiskDriver(DiskConfig{Location: t.TempDir()}, discardLogger())
	require.NoError(t, err)
	return driver
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDiskDriverConformance(t *testing.T) {
	runDriverConformance(t, func(t *testing.T) interfaces.Driver {
		return newTestDiskDriver(t)
	})
}

func TestDiskDriverCreatesRootLocation(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")
	_, err := NewDiskDriver(DiskConfig{Location: root}, discardLogger())
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDiskDriverDirectoryIsNotAnObject(t *testing.T) {
	ctx := context.Background()
	driver := newTestDiskDriver(t)
	require.NoError(t, driver.Write(ctx, "dir/file.txt", []byte("content")))

	exists, err := driver.FileExists(ctx, "dir")
	require.NoError(t, err)
	assert.False(t, exists, "a directory must not report as an object")

	exists, err = driver.FileExists(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDiskDriverStaysUnderRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	driver, err := NewDiskDriver(DiskConfig{Location: filepath.Join(root, "data")}, discardLogger())
	require.NoError(t, err)

	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	_, err = driver.Read(ctx, "../secret.txt")
	assert.ErrorIs(t, err, interfaces.ErrInvalidPath)
}
