package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_archive_service/internal/archive/app"
	"chat_archive_service/internal/archive/repository"
	"chat_archive_service/pkg/config"
	"chat_archive_service/pkg/database"
	"chat_archive_service/pkg/logger"

	"go.uber.org/zap"
)

// archive worker 是 one-shot process，由外部排程 (cron) 重複觸發
// 失敗的組留在熱儲存，下一次觸發自然重試
func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ArchiveWorker, config.EnvConfig.ArchiveWorkerLogPath)
	defer logger.Log.Sync()
	if config.IsLocal() {
		logger.Log.EnableDebugMode()
	}

	cfg, err := config.LoadConfig[config.ArchiveWorker](config.EnvConfig.ArchiveWorker, config.EnvConfig.ArchiveWorkerYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("invalid config", zap.Error(err))
	}

	// SIGINT/SIGTERM 只擋住還沒開始的組，進行中的 write/commit 會完整結束
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 連線 PostgreSQL
	sslMode := "disable"
	if config.IsProduction() {
		sslMode = "require"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port, sslMode)

	gormDB, err := database.NewPGConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", cfg.PostgreSQL.Host)),
			zap.Error(err),
		)
	}

	// 自動遷移 manifest 資料表（messages 屬於聊天服務，不在這裡遷移）
	if err := repository.NewSchemaMigrator(gormDB).AutoMigrate(); err != nil {
		logger.Log.Fatal("manifest table migration failed", zap.Error(err))
	}

	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", cfg.PostgreSQL.Host)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	// 2. 初始化 MinIO 客戶端
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:   cfg.MinIO.Endpoint,
		Region:     cfg.MinIO.Region,
		User:       cfg.MinIO.User,
		Password:   cfg.MinIO.Password,
		BucketName: cfg.MinIO.BucketName,
		UseSSL:     cfg.MinIO.UseSSL,
		PathStyle:  cfg.MinIO.PathStyle,

		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to minio after retries",
			zap.String("address", fmt.Sprintf("[%s]", cfg.MinIO.Endpoint)),
			zap.Error(err),
		)
	}

	// 3. run lock（可選）：用 Redis SETNX 擋掉重疊觸發
	var runLock repository.RunLockRepository
	if cfg.RedisLock.Enabled {
		masterName, sentinel := config.GetRedisSetting()
		redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.RedisLock.RedisDB)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		defer redisClient.Close()
		runLock = repository.NewRedisRunLock(redisClient, cfg.RedisLock.LockKey, cfg.RedisLock.LockTTL)
	}

	// 4. 封存事件（可選）：commit 成功後發 Kafka 通知下游
	var events repository.ArchiveEventPublisher
	if cfg.Kafka.Enabled {
		kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect kafka err : %v", err))
		}
		defer kafkaWriter.Close()
		events = repository.NewKafkaEventPublisher(kafkaWriter)
	}

	// 5. 初始化 Repository 與 UseCase
	msgRepo := repository.NewPGHotMessageRepository(pool)
	coldStorage := repository.NewMinIOColdStorage(minioClient, cfg.MinIO.KeyPrefix)
	writer := app.NewArchiveWriter(coldStorage)
	archiveUC := app.NewArchiveUseCase(msgRepo, writer, runLock, events, cfg)

	// 6. 跑一個 pass 就結束，空 batch 也是 clean pass
	if _, err := archiveUC.Execute(ctx); err != nil {
		logger.Log.Fatal("archive run failed", zap.Error(err))
	}
}
