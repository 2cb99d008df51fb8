package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"chat_archive_service/internal/archive/domain"

	"github.com/segmentio/kafka-go"
)

// ArchiveEventPublisher definition downstream notification of committed groups
// best-effort：發送失敗只記 log，不影響該組的 commit 結果
type ArchiveEventPublisher interface {
	PublishArchived(ctx context.Context, entry *domain.ManifestEntry) error
}

type kafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher create ArchiveEventPublisher
func NewKafkaEventPublisher(writer *kafka.Writer) ArchiveEventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) PublishArchived(ctx context.Context, entry *domain.ManifestEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal archive event failed: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.RoomID),
		Value: value,
	})
}
