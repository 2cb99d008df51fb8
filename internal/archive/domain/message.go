package domain

import (
	"errors"
	"time"
)

// HotMessage 表示還在熱儲存 (transactional store) 的聊天訊息
// content / file_url 允許為空，但建立時至少要有其中一個
type HotMessage struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RoomID    string    `gorm:"column:room_id;index" json:"room_id"`
	SenderID  string    `gorm:"column:sender_id" json:"sender_id"`
	Content   *string   `gorm:"column:content" json:"content"`
	FileURL   *string   `gorm:"column:file_url" json:"file_url"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;index" json:"expires_at"`
	Archived  bool      `gorm:"column:archived;default:false" json:"archived"`
	// ArchiveKey 在同一交易內先寫入再刪除，留作 crash-recovery 稽核紀錄
	ArchiveKey *string `gorm:"column:archive_key" json:"archive_key"`
}

// TableName messages 資料表由 live chat transport 擁有
func (HotMessage) TableName() string {
	return "messages"
}

// NewHotMessage create hot message with validation
func NewHotMessage(id, roomID, senderID string, content, fileURL *string, createdAt, expiresAt time.Time) (*HotMessage, error) {
	if id == "" {
		return nil, errors.New("message id must be set")
	}
	if roomID == "" {
		return nil, errors.New("room id must be set")
	}
	if senderID == "" {
		return nil, errors.New("sender id must be set")
	}
	// 至少要有文字內容或附件其中之一
	if (content == nil || *content == "") && (fileURL == nil || *fileURL == "") {
		return nil, errors.New("message needs content or file_url")
	}

	return &HotMessage{
		ID:        id,
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		FileURL:   fileURL,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Eligible check row is archival-eligible
func (m *HotMessage) Eligible(now time.Time) bool {
	return m.ExpiresAt.Before(now) && !m.Archived
}
