package supabase

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"

	"paragoniusz-backend/internal/receipt"
)

type StorageClient struct {
	client *storage.Client
	bucket string
}

// NewStorageClient scopes the shared Supabase handle's storage API to the
// receipts bucket.
func NewStorageClient(client *Client, bucket string) *StorageClient {
	return &StorageClient{
		client: client.Supabase.Storage,
		bucket: bucket,
	}
}

// UploadReceipt stores a receipt image under the owning user's prefix and
// returns the generated storage path.
func (s *StorageClient) UploadReceipt(userID uuid.UUID, data []byte, contentType, ext string) (string, error) {
	storagePath := receipt.NewStoragePath(userID, ext)

	upsert := false
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	return storagePath, nil
}

func (s *StorageClient) DownloadFile(storagePath string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return data, nil
}

func (s *StorageClient) DeleteFile(storagePath string) error {
	_, err := s.client.RemoveFile(s.bucket, []string{storagePath})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
