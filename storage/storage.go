// Package storage wraps the MinIO document bucket. Documents are
// addressed by opaque object path; downloads always go through a
// presigned, time-limited URL.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	minioSDK "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultURLExpiry is how long a presigned document URL stays valid
// unless STORAGE_URL_EXPIRY_MINUTES overrides it.
const DefaultURLExpiry = time.Hour

type Client struct {
	client    *minioSDK.Client
	bucket    string
	urlExpiry time.Duration
}

// Init connects to the bucket endpoint configured in the environment
// and creates the bucket when missing.
func Init() (*Client, error) {
	endpoint := os.Getenv("STORAGE_ENDPOINT")
	accessKey := os.Getenv("STORAGE_ACCESS_KEY")
	secretKey := os.Getenv("STORAGE_SECRET_KEY")
	bucket := os.Getenv("STORAGE_BUCKET")
	useSSL := os.Getenv("STORAGE_USE_SSL") == "true"

	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("storage not configured (STORAGE_ENDPOINT/STORAGE_BUCKET)")
	}

	urlExpiry := DefaultURLExpiry
	if minutes, err := strconv.Atoi(os.Getenv("STORAGE_URL_EXPIRY_MINUTES")); err == nil && minutes > 0 {
		urlExpiry = time.Duration(minutes) * time.Minute
	}

	client, err := minioSDK.New(endpoint, &minioSDK.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minioSDK.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("Bucket created: %s", bucket)
	}

	log.Println("Object storage connected successfully")
	return &Client{client: client, bucket: bucket, urlExpiry: urlExpiry}, nil
}

// Upload stores data under objectName with the given content type.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, data []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minioSDK.PutObjectOptions{ContentType: contentType})
	return err
}

// PresignedURL returns a signed, time-limited download URL for the
// object. Zero expiry uses the configured default.
func (c *Client) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = c.urlExpiry
	}
	u, err := c.client.PresignedGetObject(ctx, c.bucket, objectName, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
