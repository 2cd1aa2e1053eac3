// Package s3 is the S3 implementation of the object store.
package s3

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/DwayneJengSage/BridgeUserDataDownloadService/internal/config"
)

// Store implements storage.ObjectStore against S3. Thread-safe; the
// underlying SDK client is safe for concurrent use.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
}

// New builds an S3 store. Credentials resolve through the SDK's default
// chain (env, shared config, instance role); pass accessKey/secretKey to
// pin static credentials instead. The shared HTTP client keeps uploads on
// the same connection pool and proxy settings as everything else.
func New(ctx context.Context, cfg *config.Config, httpClient *nethttp.Client, accessKey, secretKey string) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.Region),
		awsconfig.WithHTTPClient(httpClient),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &Store{client: client, presign: s3.NewPresignClient(client)}, nil
}

// PutFile uploads the local file at path to bucket/key.
func (s *Store) PutFile(ctx context.Context, bucket, key, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// PresignedGetURL returns a GET URL for bucket/key valid until expires.
func (s *Store) PresignedGetURL(ctx context.Context, bucket, key string, expires time.Time) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(time.Until(expires)))
	if err != nil {
		return "", fmt.Errorf("failed to presign s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// ReadBytes fetches bucket/key into memory.
func (s *Store) ReadBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}
