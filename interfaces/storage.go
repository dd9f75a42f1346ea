package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"
)

var (
	// ErrResourceNotFound is returned when no object exists at the requested
	// path. Backends must translate their native not-found surface (HTTP 404,
	// NoSuchKey, BlobNotFound, os.ErrNotExist) into this error so callers can
	// branch on existence with errors.Is instead of string matching.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidPath is returned when a path cannot be represented as the
	// backend's native key encoding, or escapes the backend's root.
	ErrInvalidPath = errors.New("the provided path contains invalid characters")

	// ErrDecode is returned when file contents cannot be decoded as UTF-8 text.
	ErrDecode = errors.New("failed to decode file contents")

	// ErrNetwork is returned on connection, timeout, and dispatch failures.
	ErrNetwork = errors.New("network error")

	// ErrAuthenticationFailed is returned when the backend rejects the
	// configured credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidLocationURI is returned when a store location URI is malformed
	// or uses an unsupported scheme.
	ErrInvalidLocationURI = errors.New("invalid store location URI")
)

// Driver is the capability contract each storage backend satisfies. Paths are
// relative, slash-separated keys; how they map onto the backend's namespace
// (filesystem tree, object keys, KV paths) is the backend's concern.
//
// Every method translates the backend's native errors into the taxonomy above.
// Anything that does not fit a sentinel is passed through wrapped, preserving
// the original message.
type Driver interface {
	// Read returns the raw contents stored at path, or ErrResourceNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// FileExists reports whether an object exists at path. A missing object is
	// (false, nil), never an error; only infrastructure failures are errors.
	FileExists(ctx context.Context, path string) (bool, error)

	// Write stores content at path, creating any missing parent structure and
	// overwriting existing content.
	Write(ctx context.Context, path string, content []byte) error

	// Delete removes the object at path. Returns ErrResourceNotFound if
	// nothing exists there.
	Delete(ctx context.Context, path string) error

	// DeleteDirectory removes every object whose path is under the given
	// directory. Returns ErrResourceNotFound if no objects match.
	DeleteDirectory(ctx context.Context, path string) error

	// LastModified returns the modification timestamp of the object at path,
	// or ErrResourceNotFound.
	LastModified(ctx context.Context, path string) (time.Time, error)

	// Clone duplicates the driver without invalidating in-flight operations on
	// the original. Networked backends copy the client handle; stateful
	// backends copy their state.
	Clone() Driver
}

// Contents is an opaque byte buffer with exactly two legal projections: the
// raw bytes and a fallible UTF-8 text view.
type Contents struct {
	data []byte
}

// NewContents wraps raw bytes.
func NewContents(data []byte) Contents {
	return Contents{data: data}
}

// Bytes returns the raw byte projection.
func (c Contents) Bytes() []byte {
	return c.data
}

// Text returns the UTF-8 projection, or ErrDecode when the buffer is not
// valid UTF-8.
func (c Contents) Text() (string, error) {
	if !utf8.Valid(c.data) {
		return "", ErrDecode
	}
	return string(c.data), nil
}

// Len returns the buffer length in bytes.
func (c Contents) Len() int {
	return len(c.data)
}

// StoreLocation is a parsed store location URI of the form
// [scheme]://[auth@]host[:port][/path][?params].
type StoreLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
	User   *url.Userinfo
}

// ParseStoreLocation parses and validates a store location URI.
func ParseStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "mem", "file", "s3", "azure", "gcs", "vault", "ipfs":
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StoreLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
