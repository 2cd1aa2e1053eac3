// Package azure is the Azure Blob Storage implementation of the object
// store. Buckets map to containers.
package azure

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
)

// Store implements storage.ObjectStore against Azure Blob Storage using
// shared-key auth. SAS URLs are signed locally, so presigning needs no
// round trip.
type Store struct {
	client     *azblob.Client
	cred       *azblob.SharedKeyCredential
	serviceURL string
}

// New builds an Azure store from config. The service URL defaults to the
// public endpoint for the account; set azure_service_url for sovereign
// clouds or emulators.
func New(cfg *config.Config, httpClient *nethttp.Client) (*Store, error) {
	accountName := cfg.Storage.AzureAccountName
	if accountName == "" {
		return nil, fmt.Errorf("azure storage requires azure_account_name")
	}
	if cfg.Storage.AzureAccountKey == "" {
		return nil, fmt.Errorf("azure storage requires an account key (BRIDGE_AZURE_ACCOUNT_KEY)")
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, cfg.Storage.AzureAccountKey)
	if err != nil {
		return nil, fmt.Errorf("bad Azure credentials: %w", err)
	}

	serviceURL := cfg.Storage.AzureServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	}
	if !strings.HasSuffix(serviceURL, "/") {
		serviceURL += "/"
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &Store{client: client, cred: cred, serviceURL: serviceURL}, nil
}

// PutFile uploads the local file at path to container/blob.
func (s *Store) PutFile(ctx context.Context, bucket, key, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := s.client.UploadFile(ctx, bucket, key, file, nil); err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PresignedGetURL signs a read-only SAS URL for container/blob valid until
// expires.
func (s *Store) PresignedGetURL(ctx context.Context, bucket, key string, expires time.Time) (string, error) {
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    expires.UTC(),
		ContainerName: bucket,
		BlobName:      key,
		Permissions:   (&sas.BlobPermissions{Read: true}).String(),
	}
	params, err := values.SignWithSharedKey(s.cred)
	if err != nil {
		return "", fmt.Errorf("failed to sign SAS for %s/%s: %w", bucket, key, err)
	}
	return s.serviceURL + bucket + "/" + key + "?" + params.Encode(), nil
}

// ReadBytes fetches container/blob into memory.
func (s *Store) ReadBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, bucket, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}
