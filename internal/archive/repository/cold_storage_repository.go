package repository

import (
	"context"
	"fmt"
	"strings"

	"chat_archive_service/pkg/database"
)

// ColdStorageRepository definition cold object store, put-object only
// 物件一律用新 key 上傳，不覆寫既有物件
type ColdStorageRepository interface {
	// PutArchive 上傳 gzip JSON，回傳含 prefix 的完整 object key
	PutArchive(ctx context.Context, objectKey string, body []byte) (string, error)
}

type minioColdStorage struct {
	client    *database.MinIOClient
	keyPrefix string
}

// NewMinIOColdStorage create ColdStorageRepository
func NewMinIOColdStorage(client *database.MinIOClient, keyPrefix string) ColdStorageRepository {
	return &minioColdStorage{
		client:    client,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *minioColdStorage) PutArchive(ctx context.Context, objectKey string, body []byte) (string, error) {
	fullKey := objectKey
	if s.keyPrefix != "" {
		fullKey = s.keyPrefix + "/" + objectKey
	}

	if err := s.client.UploadBytes(ctx, fullKey, body, "application/json", "gzip"); err != nil {
		return "", fmt.Errorf("upload archive object [%s] failed: %w", fullKey, err)
	}
	return fullKey, nil
}
