package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	googleStorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var newGCSClient = googleStorage.NewClient

// GCSClient stores objects in a Google Cloud Storage bucket.
type GCSClient struct {
	client *googleStorage.Client
	bucket *googleStorage.BucketHandle
}

// NewGCSClient authenticates with a service account JSON key. Empty creds
// fall back to application default credentials.
func NewGCSClient(ctx context.Context, bucket string, creds []byte) (*GCSClient, error) {
	var opts []option.ClientOption
	if len(creds) > 0 {
		opts = append(opts, option.WithCredentialsJSON(creds))
	}
	c, err := newGCSClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSClient{client: c, bucket: c.Bucket(bucket)}, nil
}

func (g *GCSClient) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs put %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs put %s: %w", key, err)
	}
	return key, nil
}

func (g *GCSClient) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, googleStorage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gcs get %s: %w", key, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return data, r.Close()
}

func (g *GCSClient) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if errors.Is(err, googleStorage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSClient) Close() error { return g.client.Close() }
