package domain

import (
	"errors"
	"time"
)

// ContentEncodingGzip manifest 的固定壓縮編碼
const ContentEncodingGzip = "gzip"

// GroupKey 一次 run 內的分組 key (房間 + UTC 月份起點)，不落地
type GroupKey struct {
	RoomID     string
	MonthStart time.Time
}

// ArchiveMessage 冷儲存 payload 內的訊息快照
type ArchiveMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   *string   `json:"content"`
	FileURL   *string   `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

// ArchivePayload 上傳到冷儲存的序列化單位
// Messages 必須是同一 (room, month) 的 eligible rows，依 created_at 升冪
type ArchivePayload struct {
	RoomID     string           `json:"room_id"`
	MonthStart time.Time        `json:"month_start"`
	ExportedAt time.Time        `json:"exported_at"`
	Messages   []ArchiveMessage `json:"messages"`
}

// Snapshot 取出訊息的封存快照
func (m *HotMessage) Snapshot() ArchiveMessage {
	return ArchiveMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		FileURL:   m.FileURL,
		CreatedAt: m.CreatedAt,
	}
}

// ManifestEntry 一次成功封存的 durable 紀錄，append-only
// 同一 (room, month) 可以有多筆 entry，下游重建時要合併多個 object
type ManifestEntry struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	RoomID          string    `gorm:"column:room_id;index" json:"room_id"`
	MonthStart      time.Time `gorm:"column:month_start" json:"month_start"`
	ObjectKey       string    `gorm:"column:object_key;uniqueIndex" json:"object_key"`
	ContentEncoding string    `gorm:"column:content_encoding" json:"content_encoding"`
	MessageCount    int       `gorm:"column:message_count" json:"message_count"`
	MinCreatedAt    time.Time `gorm:"column:min_created_at" json:"min_created_at"`
	MaxCreatedAt    time.Time `gorm:"column:max_created_at" json:"max_created_at"`
}

// TableName manifest 資料表由 archive worker 擁有
func (ManifestEntry) TableName() string {
	return "chat_message_archives"
}

// NewManifestEntry build manifest entry from one committed group
// min/max 直接掃全部訊息，不假設輸入已排序
func NewManifestEntry(key GroupKey, objectKey string, msgs []*HotMessage) (*ManifestEntry, error) {
	if len(msgs) == 0 {
		return nil, errors.New("manifest entry needs at least one message")
	}
	if objectKey == "" {
		return nil, errors.New("manifest entry needs object key")
	}

	minAt, maxAt := msgs[0].CreatedAt, msgs[0].CreatedAt
	for _, m := range msgs[1:] {
		if m.CreatedAt.Before(minAt) {
			minAt = m.CreatedAt
		}
		if m.CreatedAt.After(maxAt) {
			maxAt = m.CreatedAt
		}
	}

	return &ManifestEntry{
		RoomID:          key.RoomID,
		MonthStart:      key.MonthStart,
		ObjectKey:       objectKey,
		ContentEncoding: ContentEncodingGzip,
		MessageCount:    len(msgs),
		MinCreatedAt:    minAt,
		MaxCreatedAt:    maxAt,
	}, nil
}
