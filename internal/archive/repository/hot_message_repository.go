package repository

import (
	"context"
	"fmt"

	"chat_archive_service/internal/archive/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HotMessageRepository definition hot store access for the archive worker
type HotMessageRepository interface {
	// LoadEligibleBatch 讀取一頁可封存的訊息 (expires_at < now 且未封存)
	// 依 (room_id, created_at) 升冪排序，讓同房間的訊息連續出現
	LoadEligibleBatch(ctx context.Context, maxRows int) ([]*domain.HotMessage, error)
	// ArchiveCommit 單一交易完成 manifest 寫入、標記封存、刪除熱資料
	// 三個動作要嘛全部成功要嘛全部回滾
	ArchiveCommit(ctx context.Context, entry *domain.ManifestEntry, messageIDs []string) error
}

type pgHotMessageRepository struct {
	pool *pgxpool.Pool
}

// NewPGHotMessageRepository create a HotMessageRepository
func NewPGHotMessageRepository(pool *pgxpool.Pool) HotMessageRepository {
	return &pgHotMessageRepository{pool: pool}
}

func (r *pgHotMessageRepository) LoadEligibleBatch(ctx context.Context, maxRows int) ([]*domain.HotMessage, error) {
	rows, err := r.pool.Query(ctx, `
		select id, room_id, sender_id, content, file_url, created_at, expires_at
		from messages
		where expires_at < now()
		  and archived = false
		order by room_id, created_at asc
		limit $1
	`, maxRows)
	if err != nil {
		return nil, fmt.Errorf("load eligible batch failed: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.HotMessage
	for rows.Next() {
		var m domain.HotMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.FileURL, &m.CreatedAt, &m.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan message row failed: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read message rows failed: %w", err)
	}
	return msgs, nil
}

func (r *pgHotMessageRepository) ArchiveCommit(ctx context.Context, entry *domain.ManifestEntry, messageIDs []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin archive tx failed: %w", err)
	}
	// commit 之後 rollback 是 no-op
	defer tx.Rollback(ctx)

	// 1. manifest append-only，一組成功 commit 寫一筆
	if _, err := tx.Exec(ctx, `
		insert into chat_message_archives
		  (room_id, month_start, object_key, content_encoding, message_count, min_created_at, max_created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, entry.RoomID, entry.MonthStart, entry.ObjectKey, entry.ContentEncoding,
		entry.MessageCount, entry.MinCreatedAt, entry.MaxCreatedAt); err != nil {
		return fmt.Errorf("insert manifest entry failed: %w", err)
	}

	// 2. 刪除前先標記 archived + archive_key，留 crash-recovery 稽核軌跡
	if _, err := tx.Exec(ctx, `
		update messages
		set archived = true,
		    archive_key = $2
		where id = any($1::uuid[])
	`, messageIDs, entry.ObjectKey); err != nil {
		return fmt.Errorf("mark messages archived failed: %w", err)
	}

	// 3. 刪除熱資料。刪到 0 筆代表另一個 run 已經處理掉，視為成功
	if _, err := tx.Exec(ctx, `
		delete from messages
		where id = any($1::uuid[])
	`, messageIDs); err != nil {
		return fmt.Errorf("delete archived messages failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit archive tx failed: %w", err)
	}
	return nil
}
