package storage

import (
	"errors"
	"fmt"
	"net"
	"testing"

	gcstorage "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/kaplanelad/active-storage/interfaces"
)

func TestMapGCSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "object does not exist",
			err:  gcstorage.ErrObjectNotExist,
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "bucket does not exist",
			err:  gcstorage.ErrBucketNotExist,
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "wrapped object does not exist",
			err:  fmt.Errorf("fetching attrs: %w", gcstorage.ErrObjectNotExist),
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "api 404",
			err:  &googleapi.Error{Code: 404, Message: "object not found"},
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "api 403",
			err:  &googleapi.Error{Code: 403, Message: "forbidden"},
			want: interfaces.ErrAuthenticationFailed,
		},
		{
			name: "api 401",
			err:  &googleapi.Error{Code: 401, Message: "unauthorized"},
			want: interfaces.ErrAuthenticationFailed,
		},
		{
			name: "oauth token failure",
			err:  errors.New("oauth2: cannot fetch token: 400 Bad Request"),
			want: interfaces.ErrAuthenticationFailed,
		},
		{
			name: "missing default credentials",
			err:  errors.New("dialing: google: could not find default credentials"),
			want: interfaces.ErrAuthenticationFailed,
		},
		{
			name: "net error",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			want: interfaces.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapGCSError(tt.err), tt.want)
		})
	}
}

func TestMapGCSErrorOpaque(t *testing.T) {
	cause := errors.New("boom")
	err := mapGCSError(cause)

	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "gcs: boom")
	for _, sentinel := range []error{
		interfaces.ErrResourceNotFound,
		interfaces.ErrAuthenticationFailed,
		interfaces.ErrNetwork,
	} {
		assert.NotErrorIs(t, err, sentinel)
	}
}
