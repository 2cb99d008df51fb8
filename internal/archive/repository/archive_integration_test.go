package repository_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"chat_archive_service/internal/archive/app"
	"chat_archive_service/internal/archive/domain"
	"chat_archive_service/internal/archive/repository"
	"chat_archive_service/pkg/config"
	"chat_archive_service/pkg/database"
	"chat_archive_service/pkg/logger"
	testtool "chat_archive_service/pkg/test_tool"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

func seedMessage(t *testing.T, db *gorm.DB, roomID string, createdAt time.Time, expired bool) *domain.HotMessage {
	t.Helper()
	expiresAt := time.Now().UTC().Add(24 * time.Hour)
	if expired {
		expiresAt = time.Now().UTC().Add(-time.Hour)
	}
	msg, err := domain.NewHotMessage(uuid.New().String(), roomID, uuid.New().String(),
		strPtr("integration message"), nil, createdAt, expiresAt)
	require.NoError(t, err)
	require.NoError(t, db.Create(msg).Error)
	return msg
}

// 整合測試：真 PostgreSQL + 真 MinIO 跑完整封存 pass
func TestArchivePipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	// **啟動 PostgreSQL**
	pgContainer, pgHost, pgPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "archive_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	// **啟動 MinIO**
	minioContainer, minioHost, minioPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForListeningPort("9000/tcp"),
	})
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	dsn := fmt.Sprintf("host=%s user=test password=test dbname=archive_test port=%s sslmode=disable", pgHost, pgPort)

	// schema bootstrap：測試環境連 messages 一起建
	gormDB, err := database.NewPGConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    5,
		RetryInterval: 2,
	})
	require.NoError(t, err)
	require.NoError(t, repository.NewSchemaMigrator(gormDB).AutoMigrateAll())

	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    5,
		RetryInterval: 2,
	})
	require.NoError(t, err)
	defer pool.Close()

	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      fmt.Sprintf("%s:%s", minioHost, minioPort),
		Region:        "us-east-1",
		User:          "minioadmin",
		Password:      "minioadmin",
		BucketName:    "chat-archive-test",
		PathStyle:     true,
		RetryCount:    5,
		RetryInterval: 2,
	})
	require.NoError(t, err)

	// seed：room-1 三筆 11 月過期、一筆未過期；room-2 一筆 12 月過期
	m1 := seedMessage(t, gormDB, "room-1", time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC), true)
	m2 := seedMessage(t, gormDB, "room-1", time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC), true)
	m3 := seedMessage(t, gormDB, "room-1", time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC), true)
	seedMessage(t, gormDB, "room-1", time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC), false)
	seedMessage(t, gormDB, "room-2", time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC), true)

	msgRepo := repository.NewPGHotMessageRepository(pool)
	coldStorage := repository.NewMinIOColdStorage(minioClient, "chat-archives")
	writer := app.NewArchiveWriter(coldStorage)
	uc := app.NewArchiveUseCase(msgRepo, writer, nil, nil, config.ArchiveWorker{
		BatchSize:     100,
		UploadTimeout: 30 * time.Second,
		CommitTimeout: 30 * time.Second,
	})

	// 第一次 run：兩組 (room-1/11月, room-2/12月)
	summary, err := uc.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GroupsTotal)
	assert.Equal(t, 2, summary.GroupsArchived)
	assert.Equal(t, 4, summary.MessagesArchived)

	// manifest：room-1 一筆 count=3
	var objectKey string
	var messageCount int
	err = pool.QueryRow(ctx, `
		select object_key, message_count from chat_message_archives where room_id = $1
	`, "room-1").Scan(&objectKey, &messageCount)
	require.NoError(t, err)
	assert.Equal(t, 3, messageCount)

	var manifestTotal int
	require.NoError(t, pool.QueryRow(ctx, `select count(*) from chat_message_archives`).Scan(&manifestTotal))
	assert.Equal(t, 2, manifestTotal)

	// 冷儲存物件要能抓回來解壓，內容依 created_at 排序
	exists, err := minioClient.StatObject(ctx, objectKey)
	require.NoError(t, err)
	assert.True(t, exists, "manifest object_key must point at an existing object")

	body, err := minioClient.DownloadBytes(ctx, objectKey)
	require.NoError(t, err)
	gz, err := gzip.NewReader(bytes.NewReader(body))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	var payload domain.ArchivePayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "room-1", payload.RoomID)
	require.Len(t, payload.Messages, 3)
	assert.Equal(t, m1.ID, payload.Messages[0].ID)
	assert.Equal(t, m2.ID, payload.Messages[1].ID)
	assert.Equal(t, m3.ID, payload.Messages[2].ID)

	// 熱儲存只剩未過期那筆
	var hotRemaining int
	require.NoError(t, pool.QueryRow(ctx, `select count(*) from messages`).Scan(&hotRemaining))
	assert.Equal(t, 1, hotRemaining)

	// 第二次 run：idempotence，沒有新 eligible rows 就什麼都不做
	summary, err = uc.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GroupsTotal)
	require.NoError(t, pool.QueryRow(ctx, `select count(*) from chat_message_archives`).Scan(&manifestTotal))
	assert.Equal(t, 2, manifestTotal)

	// 原子性：object_key 撞 unique constraint → 整筆交易回滾，rows 原封不動
	stale := seedMessage(t, gormDB, "room-3", time.Date(2025, 11, 5, 8, 0, 0, 0, time.UTC), true)
	dupEntry, err := domain.NewManifestEntry(
		domain.GroupKey{RoomID: "room-3", MonthStart: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)},
		objectKey, // 已存在的 key
		[]*domain.HotMessage{stale},
	)
	require.NoError(t, err)
	err = msgRepo.ArchiveCommit(ctx, dupEntry, []string{stale.ID})
	assert.Error(t, err)

	var archived bool
	require.NoError(t, pool.QueryRow(ctx, `select archived from messages where id = $1`, stale.ID).Scan(&archived))
	assert.False(t, archived, "rollback must leave the row unarchived")

	// race no-op：rows 已被別的 run 刪掉，delete 0 筆也算成功
	raceEntry, err := domain.NewManifestEntry(
		domain.GroupKey{RoomID: "room-1", MonthStart: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)},
		"chat-archives/room=room-1/year=2025/month=11/batch-race.json.gz",
		[]*domain.HotMessage{m1},
	)
	require.NoError(t, err)
	assert.NoError(t, msgRepo.ArchiveCommit(ctx, raceEntry, []string{m1.ID}))
}
