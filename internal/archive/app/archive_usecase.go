package app

import (
	"context"
	"fmt"
	"time"

	"chat_archive_service/internal/archive/domain"
	"chat_archive_service/internal/archive/repository"
	"chat_archive_service/pkg/config"
	errprocess "chat_archive_service/pkg/err"
	"chat_archive_service/pkg/logger"

	"go.uber.org/zap"
)

// RunSummary 一次封存 pass 的結果
type RunSummary struct {
	GroupsTotal      int
	GroupsArchived   int
	GroupsFailed     int
	MessagesArchived int
}

// ArchiveUseCase 負責一次封存 pass：load → group → 每組 (write, commit)
// 設計成可以被排程重複呼叫；還沒刪掉的 eligible rows 下次會再被選到
type ArchiveUseCase struct {
	msgRepo repository.HotMessageRepository
	writer  GroupWriter
	lock    repository.RunLockRepository     // nil 表示不啟用
	events  repository.ArchiveEventPublisher // nil 表示不啟用

	batchSize        int
	uploadTimeout    time.Duration
	commitTimeout    time.Duration
	failOnGroupError bool
}

// NewArchiveUseCase init create archive use case
func NewArchiveUseCase(
	msgRepo repository.HotMessageRepository,
	writer GroupWriter,
	lock repository.RunLockRepository,
	events repository.ArchiveEventPublisher,
	cfg config.ArchiveWorker,
) *ArchiveUseCase {
	return &ArchiveUseCase{
		msgRepo:          msgRepo,
		writer:           writer,
		lock:             lock,
		events:           events,
		batchSize:        cfg.BatchSize,
		uploadTimeout:    cfg.UploadTimeout,
		commitTimeout:    cfg.CommitTimeout,
		failOnGroupError: cfg.FailOnGroupError,
	}
}

// Execute run one archive pass
// load 失敗整個 run 失敗；單組 write/commit 失敗只跳過該組
func (uc *ArchiveUseCase) Execute(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}

	// 0. run lock（可選）。拿不到鎖表示另一個 run 正在跑，這次直接放棄
	if uc.lock != nil {
		ok, err := uc.lock.Acquire(ctx)
		if err != nil {
			return summary, fmt.Errorf("acquire run lock failed: %w", err)
		}
		if !ok {
			logger.Log.Info("another archive run holds the lock, skipping this pass")
			return summary, nil
		}
		defer func() {
			// run 被取消時也要釋放，不能帶原本的 ctx
			if err := uc.lock.Release(context.Background()); err != nil {
				logger.Log.Warn("release run lock failed", zap.Error(err))
			}
		}()
	}

	// 1. 讀一頁 eligible rows
	msgs, err := uc.msgRepo.LoadEligibleBatch(ctx, uc.batchSize)
	if err != nil {
		return summary, fmt.Errorf("load eligible batch failed: %w", err)
	}
	if len(msgs) == 0 {
		logger.Log.Info("no expired messages")
		return summary, nil
	}

	// 2. 分組後逐組處理
	groups := GroupMessages(msgs)
	keys := SortedGroupKeys(groups)
	summary.GroupsTotal = len(keys)

	for _, key := range keys {
		// 取消只阻止開新組，進行中的 write/commit 已完整結束
		if ctx.Err() != nil {
			logger.Log.Warn("archive run cancelled, not starting remaining groups",
				zap.Int("remaining", summary.GroupsTotal-summary.GroupsArchived-summary.GroupsFailed))
			break
		}

		groupMsgs := groups[key]
		if err := uc.archiveGroup(ctx, key, groupMsgs); err != nil {
			summary.GroupsFailed++
			logger.Log.Errorf("archive group failed", err,
				zap.String("room_id", key.RoomID),
				zap.Time("month_start", key.MonthStart),
				zap.Int("messages", len(groupMsgs)))
			continue
		}
		summary.GroupsArchived++
		summary.MessagesArchived += len(groupMsgs)
	}

	logger.Log.Info("archive run finished",
		zap.Int("groups_total", summary.GroupsTotal),
		zap.Int("groups_archived", summary.GroupsArchived),
		zap.Int("groups_failed", summary.GroupsFailed),
		zap.Int("messages_archived", summary.MessagesArchived))

	if summary.GroupsFailed > 0 && uc.failOnGroupError {
		return summary, errprocess.Set(fmt.Sprintf("%d of %d groups failed", summary.GroupsFailed, summary.GroupsTotal))
	}
	return summary, nil
}

// archiveGroup 單組的 (write, commit)，失敗不外洩到其他組
func (uc *ArchiveUseCase) archiveGroup(ctx context.Context, key domain.GroupKey, msgs []*domain.HotMessage) error {
	// write 失敗這組不寫 manifest、不動 hot rows，下次 run 會重選
	wctx, cancel := uc.boundedCtx(uc.uploadTimeout)
	objectKey, err := uc.writer.Write(wctx, key, msgs)
	cancel()
	if err != nil {
		return fmt.Errorf("write archive object: %w", err)
	}

	entry, err := domain.NewManifestEntry(key, objectKey, msgs)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}

	// commit 失敗時上傳已成功，冷儲存會留下一個沒人引用的孤兒物件
	// 只付儲存成本，不影響正確性，下次 run 重傳重 commit
	cctx, cancel := uc.boundedCtx(uc.commitTimeout)
	err = uc.msgRepo.ArchiveCommit(cctx, entry, ids)
	cancel()
	if err != nil {
		return fmt.Errorf("commit archive group: %w", err)
	}

	if uc.events != nil {
		if err := uc.events.PublishArchived(ctx, entry); err != nil {
			logger.Log.Warn("publish archive event failed",
				zap.String("room_id", entry.RoomID),
				zap.String("object_key", entry.ObjectKey),
				zap.Error(err))
		}
	}

	logger.Log.Info("archived chat group",
		zap.String("room_id", key.RoomID),
		zap.Time("month_start", key.MonthStart),
		zap.Int("messages", len(msgs)),
		zap.String("object_key", objectKey))
	return nil
}

// boundedCtx 從 Background 派生：run 取消只擋還沒開始的組，
// 進行中的 write/commit 要完整跑完，只受自己的 timeout 限制
func (uc *ArchiveUseCase) boundedCtx(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
