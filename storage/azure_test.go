package storage

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaplanelad/active-storage/interfaces"
)

// base64 of "testkey", the shared key credential requires valid base64
const testAzureKey = "dGVzdGtleQ=="

func TestNewAzureDriver(t *testing.T) {
	driver, err := NewAzureDriver(AzureConfig{
		Account:   "account",
		Container: "container",
		AccessKey: testAzureKey,
	}, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, driver.Clone())
}

func TestNewAzureDriverInvalidKey(t *testing.T) {
	_, err := NewAzureDriver(AzureConfig{
		Account:   "account",
		Container: "container",
		AccessKey: "not base64!!!",
	}, discardLogger())
	assert.ErrorIs(t, err, interfaces.ErrAuthenticationFailed)
}

func azureResponseError(code bloberror.Code, statusCode int) *azcore.ResponseError {
	return &azcore.ResponseError{
		ErrorCode:  string(code),
		StatusCode: statusCode,
		RawResponse: &http.Response{
			StatusCode: statusCode,
			Request:    httptest.NewRequest(http.MethodGet, "https://account.blob.core.windows.net/container/blob", nil),
			Header:     http.Header{},
			Body:       http.NoBody,
		},
	}
}

func TestMapAzureError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "blob not found",
			err:  azureResponseError(bloberror.BlobNotFound, 404),
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "container not found",
			err:  azureResponseError(bloberror.ContainerNotFound, 404),
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "404 with unrelated code",
			err:  azureResponseError("SomethingElse", 404),
			want: interfaces.ErrResourceNotFound,
		},
		{
			name: "authentication failed",
			err:  azureResponseError(bloberror.AuthenticationFailed, 403),
			want: interfaces.ErrAuthenticationFailed,
		},
		{
			name: "invalid authentication info",
			err:  azureResponseError(bloberror.InvalidAuthenticationInfo, 401),
			want: interfaces.ErrAuthenticationFailed,
		},
		{
			name: "unauthorized status",
			err:  azureResponseError("SomethingElse", 401),
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
			assert.ErrorIs(t, mapAzureError(tt.err), tt.want)
		})
	}
}

func TestMapAzureErrorOpaque(t *testing.T) {
	cause := errors.New("boom")
	err := mapAzureError(cause)

	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "azure: boom")
	for _, sentinel := range []error{
		interfaces.ErrResourceNotFound,
		interfaces.ErrAuthenticationFailed,
		interfaces.ErrNetwork,
	} {
		assert.NotErrorIs(t, err, sentinel)
	}
}
