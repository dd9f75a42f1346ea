package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	gopath "path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/kaplanelad/active-storage/interfaces"
)

// VaultConfig holds the parameters for a VaultDriver.
type VaultConfig struct {
	// Address is the Vault server address, e.g. https://vault.example.com:8200.
	Address string
	// Mount is the KV v2 secret engine mount, e.g. "secret".
	Mount string
	// BasePath is the path inside the mount all objects live under.
	BasePath string
	// Token authenticates the client.
	Token string
}

// VaultDriver stores objects as KV v2 secrets in HashiCorp Vault. Object
// content is base64-wrapped so arbitrary bytes survive the JSON round trip;
// modification timestamps come from the KV metadata endpoint.
type VaultDriver struct {
	client   *api.Client
	mount    string
	basePath string
	log      *slog.Logger
}

// NewVaultDriver creates a Vault KV v2 driver.
func NewVaultDriver(config VaultConfig, logger *slog.Logger) (*VaultDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	apiConfig := api.DefaultConfig()
	apiConfig.Address = config.Address

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(config.Token)

	return &VaultDriver{
		client:   client,
		mount:    strings.Trim(config.Mount, "/"),
		basePath: strings.Trim(config.BasePath, "/"),
		log:      logger,
	}, nil
}

// NewVaultDriverWithClient creates a Vault driver around an existing client.
func NewVaultDriverWithClient(client *api.Client, mount, basePath string, logger *slog.Logger) *VaultDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultDriver{
		client:   client,
		mount:    strings.Trim(mount, "/"),
		basePath: strings.Trim(basePath, "/"),
		log:      logger,
	}
}

// Clone returns a copy sharing the client handle; the client is safe for
// concurrent use.
func (d *VaultDriver) Clone() interfaces.Driver {
	return &VaultDriver{client: d.client, mount: d.mount, basePath: d.basePath, log: d.log}
}

func (d *VaultDriver) dataPath(p string) string {
	return fmt.Sprintf("%s/data/%s", d.mount, gopath.Join(d.basePath, p))
}

func (d *VaultDriver) metadataPath(p string) string {
	return fmt.Sprintf("%s/metadata/%s", d.mount, gopath.Join(d.basePath, p))
}

// Read returns the object content stored at path.
func (d *VaultDriver) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	secret, err := d.client.Logical().ReadWithContext(ctx, d.dataPath(p))
	if err != nil {
		return nil, mapVaultError(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrResourceNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, interfaces.ErrResourceNotFound
	}
	encoded, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("vault: content key missing at %s", d.dataPath(p))
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, interfaces.ErrDecode
	}
	return content, nil
}

// FileExists reports whether an object exists at path.
func (d *VaultDriver) FileExists(ctx context.Context, path string) (bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return false, err
	}

	secret, err := d.client.Logical().ReadWithContext(ctx, d.metadataPath(p))
	if err != nil {
		mapped := mapVaultError(err)
		if errors.Is(mapped, interfaces.ErrResourceNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return secret != nil && secret.Data != nil, nil
}

// Write stores content at path.
func (d *VaultDriver) Write(ctx context.Context, path string, content []byte) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(content),
		},
	}

	if _, err := d.client.Logical().WriteWithContext(ctx, d.dataPath(p), payload); err != nil {
		return mapVaultError(err)
	}

	d.log.Debug("Stored object in Vault",
		slog.String("path", d.dataPath(p)),
		slog.Int("size", len(content)))

	return nil
}

// Delete removes the object at path, including all KV versions.
func (d *VaultDriver) Delete(ctx context.Context, path string) error {
	exists, err := d.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrResourceNotFound
	}

	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	if _, err := d.client.Logical().DeleteWithContext(ctx, d.metadataPath(p)); err != nil {
		return mapVaultError(err)
	}
	return nil
}

// DeleteDirectory removes every object under path. Fails with
// ErrResourceNotFound when nothing is stored under the prefix.
func (d *VaultDriver) DeleteDirectory(ctx context.Context, path string) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}

	leaves, err := d.listRecursive(ctx, p)
	if err != nil {
		return err
	}
	if len(leaves) == 0 {
		return interfaces.ErrResourceNotFound
	}

	for _, leaf := range leaves {
		if _, err := d.client.Logical().DeleteWithContext(ctx, d.metadataPath(leaf)); err != nil {
			return mapVaultError(err)
		}
	}
	return nil
}

// LastModified returns the update timestamp of the object's current KV
// version.
func (d *VaultDriver) LastModified(ctx context.Context, path string) (time.Time, error) {
	p, err := normalizePath(path)
	if err != nil {
		return time.Time{}, err
	}

	secret, err := d.client.Logical().ReadWithContext(ctx, d.metadataPath(p))
	if err != nil {
		return time.Time{}, mapVaultError(err)
	}
	if secret == nil || secret.Data == nil {
		return time.Time{}, interfaces.ErrResourceNotFound
	}

	updated, ok := secret.Data["updated_time"].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("vault: updated_time missing at %s", d.metadataPath(p))
	}

	ts, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return time.Time{}, fmt.Errorf("vault: parsing updated_time: %w", err)
	}
	return ts, nil
}

// listRecursive walks the KV metadata tree under dir and returns all leaf
// object paths.
func (d *VaultDriver) listRecursive(ctx context.Context, dir string) ([]string, error) {
	secret, err := d.client.Logical().ListWithContext(ctx, d.metadataPath(dir))
	if err != nil {
		return nil, mapVaultError(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	rawKeys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}

	var leaves []string
	for _, rawKey := range rawKeys {
		key, ok := rawKey.(string)
		if !ok {
			continue
		}
		if strings.HasSuffix(key, "/") {
			sub, err := d.listRecursive(ctx, gopath.Join(dir, strings.TrimSuffix(key, "/")))
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, sub...)
			continue
		}
		leaves = append(leaves, gopath.Join(dir, key))
	}
	return leaves, nil
}

// mapVaultError translates Vault API errors into the driver error taxonomy.
func mapVaultError(err error) error {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return interfaces.ErrResourceNotFound
		case 401, 403:
			return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", interfaces.ErrNetwork, err)
	}

	if strings.Contains(err.Error(), "permission denied") {
		return fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailed, err)
	}

	return fmt.Errorf("vault: %w", err)
}
