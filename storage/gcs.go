package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	gopath "path"
	"strings"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kaplanelad/active-storage/interfaces"
)

// GCSConfig holds the parameters for a GCSDriver.
type GCSConfig struct {
	Bucket string
	Prefix string

	// CredentialsFile points at a service account JSON key; application
	// default credentials are used when empty.
	CredentialsFile string
}

// GCSDriver stores objects in a Google Cloud Storage bucket. Object paths
// become names under an optional prefix.
type GCSDriver struct {
	client *gcstorage.Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewGCSDriver creates a Google Cloud Storage driver for the configured
// bucket.
func NewGCSDriver(ctx context.Context, config GCSConfig, logger *slog.Logger) (*GCSDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, mapGCSError(err)
	}

	return &GCSDriver{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
		log:    logger,
	}, nil
}

// NewGCSDriverWithClient creates a GCS driver around an existing client.
func NewGCSDriverWithClient(client *gcstorage.Client, bucket, prefix string, logger *slog.Logger) *GCSDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSDriver{client: client, bucket: bucket, prefix: prefix, log: logger}
}

// Clone returns a copy sharing the client handle; the client is safe for
// concurrent use.
func (d *GCSDriver) Clone() interfaces.Driver {
	return &GCSDriver{client: d.client, bucket: d.bucket, prefix: d.prefix, log: d.log}
}

func (d *GCSDriver) object(path string) (*gcstorage.ObjectHandle, error) {
	name, err := d.name(path)
	if err != nil {
		return nil, err
	}
	return d.client.Bucket(d.bucket).Object(name), nil
}

func (d *GCSDriver) name(path string) (string, error) {
	p, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	if d.prefix == "" {
		return p, nil
	}
	return gopath.Join(d.prefix, p), nil
}

// Read returns the object content stored at path.
func (d *GCSDriver) Read(ctx context.Context, path string) ([]byte, error) {
	object, err := d.object(path)
	if err != nil {
		return nil, err
	}

	reader, err := object.NewReader(ctx)
	if err != nil {
		return nil, mapGCSError(err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading object body: %v", interfaces.ErrNetwork, err)
	}
	return data, nil
}

// FileExists reports whether an object exists at path.
func (d *GCSDriver) FileExists(ctx context.Context, path string) (bool, error) {
	object, err := d.object(path)
	if err != nil {
		return false, err
	}

	_, err = object.Attrs(ctx)
	if err != nil {
		mapped := mapGCSError(err)
		if errors.Is(mapped, interfaces.ErrResourceNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// Write uploads content to path.
func (d *GCSDriver) Write(ctx context.Context, path string, content []byte) error {
	object, err := d.object(path)
	if err != nil {
		return err
	}

	writer := object.NewWriter(ctx)
	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		return mapGCSError(err)
	}
	if err := writer.Close(); err != nil {
		return mapGCSError(err)
	}

	d.log.Debug("Stored object in GCS",
		slog.String("bucket", d.bucket),
		slog.String("object", object.ObjectName()),
		slog.Int("size", len(content)))

	return nil
}

// Delete removes the object at path.
func (d *GCSDriver) Delete(ctx context.Context, path string) error {
	object, err := d.object(path)
	if err != nil {
		return err
	}

	if err := object.Delete(ctx); err != nil {
		return mapGCSError(err)
	}
	return nil
}

// DeleteDirectory removes every object whose name sits under path. Fails with
// ErrResourceNotFound when no object matches the prefix.
func (d *GCSDriver) DeleteDirectory(ctx context.Context, path string) error {
	name, err := d.name(path)
	if err != nil {
		return err
	}

	it := d.client.Bucket(d.bucket).Objects(ctx, &gcstorage.Query{Prefix: name + "/"})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return mapGCSError(err)
		}
		names = append(names, attrs.Name)
	}

	if len(names) == 0 {
		return interfaces.ErrResourceNotFound
	}

	for _, objectName := range names {
		if err := d.client.Bucket(d.bucket).Object(objectName).Delete(ctx); err != nil {
			return mapGCSError(err)
		}
	}
	return nil
}

// LastModified returns the object's update timestamp.
func (d *GCSDriver) LastModified(ctx context.Context, path string) (time.Time, error) {
	object, err := d.object(path)
	if err != nil {
		return time.Time{}, err
	}

	attrs, err := object.Attrs(ctx)
	if err != nil {
		return time.Time{}, mapGCSError(err)
	}
	return attrs.Updated, nil
}

// mapGCSError translates Google Cloud Storage errors into the driver error
// taxonomy.
func mapGCSError(err error) error {
	if errors.Is(err, gcstorage.ErrObjectNotExist) || errors.Is(err, gcstorage.ErrBucketNotExist) {
		return interfaces.ErrResourceNotFound
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return interfaces.ErrResourceNotFound
		case 401, 403:
			return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
		}
	}

	// The oauth2 token source reports credential problems outside the API
	// error type.
	if strings.Contains(err.Error(), "oauth2") || strings.Contains(err.Error(), "could not find default credentials") {
		return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", interfaces.ErrNetwork, err)
	}

	return fmt.Errorf("gcs: %w", err)
}
