package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient definition minio client
type MinIOClient struct {
	Client     *minio.Client
	BucketName string
}

// NewMinIOConnection create a new minio connection have retry
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	var mc *MinIOClient
	var err error

	for i := 1; i <= d.RetryCount; i++ {
		mc, err = NewMinioClient(d)
		if err == nil {
			log.Printf("minIO[%s] 連線成功 (嘗試 %d 次)", d.Endpoint, i)
			return mc, nil
		}

		log.Printf("minIO[%s] 連線失敗 (嘗試 %d/%d): %v", d.Endpoint, i, d.RetryCount, err)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return mc, err
}

// NewMinioClient create a new minio
func NewMinioClient(d MinIOConnection) (*MinIOClient, error) {
	lookup := minio.BucketLookupDNS
	if d.PathStyle {
		lookup = minio.BucketLookupPath
	}
	minioClient, err := minio.New(d.Endpoint,
		&minio.Options{
			Creds:        credentials.NewStaticV4(d.User, d.Password, ""),
			Secure:       d.UseSSL,
			Region:       d.Region,
			BucketLookup: lookup,
		})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 失敗: %v", err)
	}

	ctx := context.Background()
	// 檢查 bucket 是否存在
	exists, err := minioClient.BucketExists(ctx, d.BucketName)
	if err != nil {
		return nil, fmt.Errorf("檢查 bucket [%s] 失敗: %v", d.BucketName, err)
	}

	// 如果 bucket 不存在，嘗試建立
	if !exists {
		if err = minioClient.MakeBucket(ctx, d.BucketName, minio.MakeBucketOptions{Region: d.Region}); err != nil {
			return nil, fmt.Errorf("建立 bucket [%s] 失敗: %v", d.BucketName, err)
		}
		log.Printf("Bucket [%s] 建立成功", d.BucketName)
	} else {
		log.Printf("Bucket [%s] 已存在", d.BucketName)
	}

	return &MinIOClient{
		Client:     minioClient,
		BucketName: d.BucketName,
	}, nil
}

// UploadBytes minio upload in-memory object
func (m *MinIOClient) UploadBytes(ctx context.Context, objectName string, body []byte, contentType, contentEncoding string) error {
	_, err := m.Client.PutObject(ctx, m.BucketName, objectName, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:     contentType,
		ContentEncoding: contentEncoding,
	})
	return err
}

// DownloadBytes minio download object into memory
func (m *MinIOClient) DownloadBytes(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.Client.GetObject(ctx, m.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("取得物件失敗: %v", err)
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

// StatObject check object exist
func (m *MinIOClient) StatObject(ctx context.Context, objectName string) (bool, error) {
	_, err := m.Client.StatObject(ctx, m.BucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
