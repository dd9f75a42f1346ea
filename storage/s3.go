package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	gopath "path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/kaplanelad/active-storage/interfaces"
)

// S3Config holds the parameters for an S3Driver.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // custom endpoint for S3-compatible services

	// Static credentials; the SDK default chain is used when empty.
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// S3Driver stores objects in an Amazon S3 (or compatible) bucket. Object
// paths become keys under an optional prefix.
type S3Driver struct {
	client *s3.S3
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Driver creates an S3 driver for the configured bucket.
func NewS3Driver(config S3Config, logger *slog.Logger) (*S3Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := aws.Config{
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if config.Endpoint != "" {
		cfg.Endpoint = aws.String(config.Endpoint)
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, config.SessionToken)
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Driver{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: config.Prefix,
		log:    logger,
	}, nil
}

// NewS3DriverWithClient creates an S3 driver around an existing client.
func NewS3DriverWithClient(client *s3.S3, bucket, prefix string, logger *slog.Logger) *S3Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Driver{client: client, bucket: bucket, prefix: prefix, log: logger}
}

// Clone returns a copy sharing the S3 client handle; the client is safe for
// concurrent use.
func (d *S3Driver) Clone() interfaces.Driver {
	return &S3Driver{client: d.client, bucket: d.bucket, prefix: d.prefix, log: d.log}
}

func (d *S3Driver) key(path string) (string, error) {
	p, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	if d.prefix == "" {
		return p, nil
	}
	return gopath.Join(d.prefix, p), nil
}

// Read returns the object body stored at path.
func (d *S3Driver) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := d.key(path)
	if err != nil {
		return nil, err
	}

	result, err := d.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error(err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading object body: %v", interfaces.ErrNetwork, err)
	}
	return data, nil
}

// FileExists reports whether an object exists at path.
func (d *S3Driver) FileExists(ctx context.Context, path string) (bool, error) {
	key, err := d.key(path)
	if err != nil {
		return false, err
	}

	_, err = d.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		mapped := mapS3Error(err)
		if errors.Is(mapped, interfaces.ErrResourceNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// Write uploads content to path.
func (d *S3Driver) Write(ctx context.Context, path string, content []byte) error {
	key, err := d.key(path)
	if err != nil {
		return err
	}

	_, err = d.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return mapS3Error(err)
	}

	d.log.Debug("Stored object in S3",
		slog.String("bucket", d.bucket),
		slog.String("key", key),
		slog.Int("size", len(content)))

	return nil
}

// Delete removes the object at path. S3 deletes are idempotent, so existence
// is checked first to surface ErrResourceNotFound.
func (d *S3Driver) Delete(ctx context.Context, path string) error {
	exists, err := d.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrResourceNotFound
	}

	key, err := d.key(path)
	if err != nil {
		return err
	}

	_, err = d.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapS3Error(err)
	}
	return nil
}

// DeleteDirectory lists every key under path and removes them in batches.
// Fails with ErrResourceNotFound when no keys match the prefix.
func (d *S3Driver) DeleteDirectory(ctx context.Context, path string) error {
	keys, err := d.listKeys(ctx, path)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return interfaces.ErrResourceNotFound
	}

	// DeleteObjects caps a request at 1000 keys.
	for len(keys) > 0 {
		batch := keys
		if len(batch) > 1000 {
			batch = batch[:1000]
		}
		keys = keys[len(batch):]

		objects := make([]*s3.ObjectIdentifier, len(batch))
		for i, key := range batch {
			objects[i] = &s3.ObjectIdentifier{Key: aws.String(key)}
		}

		_, err = d.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.bucket),
			Delete: &s3.Delete{Objects: objects},
		})
		if err != nil {
			return mapS3Error(err)
		}
	}

	return nil
}

// LastModified returns the object's modification timestamp.
func (d *S3Driver) LastModified(ctx context.Context, path string) (time.Time, error) {
	key, err := d.key(path)
	if err != nil {
		return time.Time{}, err
	}

	result, err := d.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return time.Time{}, mapS3Error(err)
	}
	if result.LastModified == nil {
		return time.Time{}, fmt.Errorf("s3: last modified is missing for %s", key)
	}
	return *result.LastModified, nil
}

func (d *S3Driver) listKeys(ctx context.Context, path string) ([]string, error) {
	key, err := d.key(path)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = d.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(key + "/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, object := range page.Contents {
			if object.Key != nil {
				keys = append(keys, *object.Key)
			}
		}
		return true
	})
	if err != nil {
		return nil, mapS3Error(err)
	}
	return keys, nil
}

// mapS3Error translates aws-sdk-go errors into the driver error taxonomy.
func mapS3Error(err error) error {
	var reqFailure awserr.RequestFailure
	if errors.As(err, &reqFailure) && reqFailure.StatusCode() == 404 {
		return interfaces.ErrResourceNotFound
	}

	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return interfaces.ErrResourceNotFound
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken",
			"AccessDenied", "CredentialsNotFound", "NoCredentialProviders":
			return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, awsErr)
		case request.ErrCodeRequestError, request.CanceledErrorCode, request.ErrCodeResponseTimeout:
			return fmt.Errorf("%w: %v", interfaces.ErrNetwork, awsErr)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", interfaces.ErrNetwork, err)
	}

	return fmt.Errorf("s3: %w", err)
}
