package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/kaplanelad/active-storage/interfaces"
)

// AzureConfig holds the parameters for an AzureDriver.
type AzureConfig struct {
	Account   string
	Container string
	AccessKey string

	// ServiceURL overrides the default https://{account}.blob.core.windows.net
	// endpoint, mainly for Azurite in tests.
	ServiceURL string
}

// AzureDriver stores objects as block blobs in one Azure Storage container.
type AzureDriver struct {
	client    *azblob.Client
	container string
	log       *slog.Logger
}

// NewAzureDriver creates an Azure Blob Storage driver using shared key
// credentials.
func NewAzureDriver(config AzureConfig, logger *slog.Logger) (*AzureDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cred, err := azblob.NewSharedKeyCredential(config.Account, config.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
	}

	serviceURL := config.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", config.Account)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	return &AzureDriver{client: client, container: config.Container, log: logger}, nil
}

// NewAzureDriverWithClient creates an Azure driver around an existing client.
func NewAzureDriverWithClient(client *azblob.Client, container string, logger *slog.Logger) *AzureDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AzureDriver{client: client, container: container, log: logger}
}

// Clone returns a copy sharing the client handle; the client is safe for
// concurrent use.
func (d *AzureDriver) Clone() interfaces.Driver {
	return &AzureDriver{client: d.client, container: d.container, log: d.log}
}

// Read returns the blob content stored at path.
func (d *AzureDriver) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.DownloadStream(ctx, d.container, p, nil)
	if err != nil {
		return nil, mapAzureError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading blob body: %v", interfaces.ErrNetwork, err)
	}
	return data, nil
}

// FileExists reports whether a blob exists at path.
func (d *AzureDriver) FileExists(ctx context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}

	blobClient := d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(p)
	_, err = blobClient.GetProperties(ctx, nil)
	if err != nil {
		mapped := mapAzureError(err)
		if errors.Is(mapped, interfaces.ErrResourceNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// Write uploads content as a block blob at path.
func (d *AzureDriver) Write(ctx context.Context, path string, content []byte) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	if _, err := d.client.UploadBuffer(ctx, d.container, p, content, nil); err != nil {
		return mapAzureError(err)
	}

	d.log.Debug("Stored blob in Azure",
		slog.String("container", d.container),
		slog.String("blob", p),
		slog.Int("size", len(content)))

	return nil
}

// Delete removes the blob at path.
func (d *AzureDriver) Delete(ctx context.Context, path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	if _, err := d.client.DeleteBlob(ctx, d.container, p, nil); err != nil {
		return mapAzureError(err)
	}
	return nil
}

// DeleteDirectory removes every blob whose name sits under path. Fails with
// ErrResourceNotFound when no blob matches the prefix.
func (d *AzureDriver) DeleteDirectory(ctx context.Context, path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	prefix := p + "/"
	pager := d.client.NewListBlobsFlatPager(d.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return mapAzureError(err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}

	if len(names) == 0 {
		return interfaces.ErrResourceNotFound
	}

	for _, name := range names {
		if _, err := d.client.DeleteBlob(ctx, d.container, name, nil); err != nil {
			return mapAzureError(err)
		}
	}
	return nil
}

// LastModified returns the blob's modification timestamp.
func (d *AzureDriver) LastModified(ctx context.Context, path string) (time.Time, error) {
	p, err := normalizePath(path)
	if err != nil {
		return time.Time{}, err
	}

	blobClient := d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(p)
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return time.Time{}, mapAzureError(err)
	}
	if props.LastModified == nil {
		return time.Time{}, fmt.Errorf("azure: last modified is missing for %s", p)
	}
	return *props.LastModified, nil
}

// mapAzureError translates Azure SDK errors into the driver error taxonomy.
func mapAzureError(err error) error {
	if bloberror.HasCode(err,
		bloberror.BlobNotFound,
		bloberror.ContainerNotFound,
		bloberror.ResourceNotFound) {
		return interfaces.ErrResourceNotFound
	}
	if bloberror.HasCode(err,
		bloberror.AuthenticationFailed,
		bloberror.InvalidAuthenticationInfo,
		bloberror.AuthorizationFailure) {
		return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return interfaces.ErrResourceNotFound
		case 401, 403:
			return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", interfaces.ErrNetwork, err)
	}

	return fmt.Errorf("azure: %w", err)
}
