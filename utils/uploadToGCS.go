package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStore keeps uploaded files. Keys are relative paths such as
// "items/12/<uuid>.png".
type ObjectStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) error
	Delete(ctx context.Context, objectKey string) error
	URL(objectKey string) string
}

// GCSStore stores objects in the GCS_BUCKET bucket.
type GCSStore struct {
	Bucket string
	Host   string
}

func NewGCSStore() *GCSStore {
	return &GCSStore{
		Bucket: strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		Host:   strings.TrimSpace(os.Getenv("GCS_URL")),
	}
}

// getGoogleClient prefers application default credentials and falls back to
// GCS_CREDENTIALS_JSON when it is set.
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

func (s *GCSStore) Put(ctx context.Context, objectKey string, data []byte, contentType string) error {
	if s.Bucket == "" {
		return errors.New("GCS_BUCKET is required")
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	wc := client.Bucket(s.Bucket).Object(objectKey).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// Delete treats a missing object as already deleted.
func (s *GCSStore) Delete(ctx context.Context, objectKey string) error {
	if s.Bucket == "" || objectKey == "" {
		return nil
	}
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Bucket(s.Bucket).Object(objectKey).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// URL is the public address of objectKey, https://<GCS_URL>/<bucket>/<key>.
func (s *GCSStore) URL(objectKey string) string {
	if objectKey == "" {
		return ""
	}
	host := s.Host
	if host == "" {
		host = "storage.googleapis.com"
	}
	return "https://" + host + "/" + s.Bucket + "/" + objectKey
}
