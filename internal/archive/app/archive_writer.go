package app

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"chat_archive_service/internal/archive/domain"
	"chat_archive_service/internal/archive/repository"
)

// GroupWriter definition write one group to cold storage
type GroupWriter interface {
	// Write 序列化 + 壓縮 + 上傳，回傳 durable object key
	// 呼叫端在 Write 成功返回前不能假設物件存在
	Write(ctx context.Context, key domain.GroupKey, msgs []*domain.HotMessage) (string, error)
}

// ArchiveWriter 把一組訊息封裝成 gzip JSON 上傳到冷儲存
type ArchiveWriter struct {
	store repository.ColdStorageRepository
}

// NewArchiveWriter create ArchiveWriter
func NewArchiveWriter(store repository.ColdStorageRepository) *ArchiveWriter {
	return &ArchiveWriter{store: store}
}

// BuildPayload 組出封存 payload
// 不信任輸入順序，自己依 created_at 穩定排序
func BuildPayload(key domain.GroupKey, msgs []*domain.HotMessage, exportedAt time.Time) domain.ArchivePayload {
	snapshots := make([]domain.ArchiveMessage, 0, len(msgs))
	for _, m := range msgs {
		snapshots = append(snapshots, m.Snapshot())
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})

	return domain.ArchivePayload{
		RoomID:     key.RoomID,
		MonthStart: key.MonthStart,
		ExportedAt: exportedAt,
		Messages:   snapshots,
	}
}

// Write implement GroupWriter
func (w *ArchiveWriter) Write(ctx context.Context, key domain.GroupKey, msgs []*domain.HotMessage) (string, error) {
	payload := BuildPayload(key, msgs, time.Now().UTC())

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal archive payload failed: %w", err)
	}

	// 離線批次路徑，不在意延遲，直接用最高壓縮率
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("init gzip writer failed: %w", err)
	}
	if _, err := gz.Write(raw); err != nil {
		return "", fmt.Errorf("compress archive payload failed: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("flush gzip writer failed: %w", err)
	}

	objectKey := DeriveObjectKey(key.RoomID, key.MonthStart)
	return w.store.PutArchive(ctx, objectKey, buf.Bytes())
}
