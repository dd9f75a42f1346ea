package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaplanelad/active-storage/interfaces"
)

// runDriverConformance exercises the full driver contract against a backend.
// Every driver that can run without external infrastructure goes through this
// suite.
func runDriverConformance(t *testing.T, newDriver func(t *testing.T) interfaces.Driver) {
	ctx := context.Background()

	t.Run("missing objects", func(t *testing.T) {
		driver := newDriver(t)

		_, err := driver.Read(ctx, "missing.txt")
		assert.ErrorIs(t, err, interfaces.ErrResourceNotFound)

		exists, err := driver.FileExists(ctx, "missing.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		assert.ErrorIs(t, driver.Delete(ctx, "missing.txt"), interfaces.ErrResourceNotFound)
		assert.ErrorIs(t, driver.DeleteDirectory(ctx, "missing"), interfaces.ErrResourceNotFound)

		_, err = driver.LastModified(ctx, "missing.txt")
		assert.ErrorIs(t, err, interfaces.ErrResourceNotFound)
	})

	t.Run("write read roundtrip", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "foo/file-1.txt", []byte("content")))

		exists, err := driver.FileExists(ctx, "foo/file-1.txt")
		require.NoError(t, err)
		assert.True(t, exists)

		data, err := driver.Read(ctx, "foo/file-1.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("content"), data)
	})

	t.Run("write is idempotent and overwrites", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "file.txt", []byte("first")))
		require.NoError(t, driver.Write(ctx, "file.txt", []byte("second")))

		exists, err := driver.FileExists(ctx, "file.txt")
		require.NoError(t, err)
		assert.True(t, exists)

		data, err := driver.Read(ctx, "file.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("delete", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "foo/file-1.txt", []byte("content")))
		require.NoError(t, driver.Delete(ctx, "foo/file-1.txt"))

		exists, err := driver.FileExists(ctx, "foo/file-1.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		assert.ErrorIs(t, driver.Delete(ctx, "foo/file-1.txt"), interfaces.ErrResourceNotFound)
	})

	t.Run("delete directory is prefix based", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "foo/1.txt", []byte("content")))
		require.NoError(t, driver.Write(ctx, "bar/1.txt", []byte("content")))
		require.NoError(t, driver.Write(ctx, "bar/2.txt", []byte("content")))

		require.NoError(t, driver.DeleteDirectory(ctx, "bar"))

		exists, err := driver.FileExists(ctx, "foo/1.txt")
		require.NoError(t, err)
		assert.True(t, exists, "foo should survive deleting bar")

		for _, path := range []string{"bar/1.txt", "bar/2.txt"} {
			exists, err := driver.FileExists(ctx, path)
			require.NoError(t, err)
			assert.False(t, exists, "%s should be gone", path)
		}

		assert.ErrorIs(t, driver.DeleteDirectory(ctx, "bar"), interfaces.ErrResourceNotFound)
	})

	t.Run("delete directory respects component boundaries", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "foo/x.txt", []byte("content")))
		require.NoError(t, driver.Write(ctx, "foobar/x.txt", []byte("content")))

		require.NoError(t, driver.DeleteDirectory(ctx, "foo"))

		exists, err := driver.FileExists(ctx, "foobar/x.txt")
		require.NoError(t, err)
		assert.True(t, exists, "foobar is not under foo")
	})

	t.Run("delete directory removes nested objects", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "a/b/c.txt", []byte("content")))
		require.NoError(t, driver.DeleteDirectory(ctx, "a"))

		exists, err := driver.FileExists(ctx, "a/b/c.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("last modified", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "file.txt", []byte("content")))

		modified, err := driver.LastModified(ctx, "file.txt")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), modified, time.Minute)
	})

	t.Run("invalid paths", func(t *testing.T) {
		driver := newDriver(t)

		for _, path := range []string{"", "/absolute.txt", "../escape.txt", "foo/../../escape.txt"} {
			assert.ErrorIs(t, driver.Write(ctx, path, []byte("content")), interfaces.ErrInvalidPath, "path %q", path)

			_, err := driver.Read(ctx, path)
			assert.ErrorIs(t, err, interfaces.ErrInvalidPath, "path %q", path)
		}
	})

	t.Run("clone sees existing objects", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Write(ctx, "file.txt", []byte("content")))

		data, err := driver.Clone().Read(ctx, "file.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("content"), data)
	})
}
