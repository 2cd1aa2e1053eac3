// Package storage defines the object store the packager uploads archives
// to, with S3 and Azure Blob backends in subpackages.
package storage

import (
	"context"
	"time"
)

// ObjectStore is the upload-and-share surface the packager needs from an
// object store.
type ObjectStore interface {
	// PutFile uploads the local file at path to bucket/key.
	PutFile(ctx context.Context, bucket, key, path string) error

	// PresignedGetURL returns a URL granting read access to bucket/key until
	// the given instant.
	PresignedGetURL(ctx context.Context, bucket, key string, expires time.Time) (string, error)

	// ReadBytes fetches the object at bucket/key into memory. Intended for
	// small control files, not archives.
	ReadBytes(ctx context.Context, bucket, key string) ([]byte, error)
}
