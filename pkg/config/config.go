package config

import (
	"errors"
	"time"
)

// ArchiveWorker definition archive_worker YAML structure
type ArchiveWorker struct {
	BatchSize        int  `mapstructure:"batch_size"`
	FailOnGroupError bool `mapstructure:"fail_on_group_error"`

	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	CommitTimeout time.Duration `mapstructure:"commit_timeout"`

	PostgreSQL DatabaseConfig  `mapstructure:"pg"`
	MinIO      MinIOConfig     `mapstructure:"minio"`
	RedisLock  RedisLockConfig `mapstructure:"redis_lock"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition cold storage setting
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	BucketName    string `mapstructure:"bucket_name"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PathStyle     bool   `mapstructure:"path_style"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RedisLockConfig definition run lock setting (optional)
type RedisLockConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RedisDB int           `mapstructure:"redis_db"`
	LockKey string        `mapstructure:"lock_key"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig definition archive event setting (optional)
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// 預設值，與原本 cron worker 的 env 預設一致
const (
	DefaultBatchSize     = 5000
	DefaultRegion        = "us-east-1"
	DefaultKeyPrefix     = "chat-archives"
	DefaultUploadTimeout = 60 * time.Second
	DefaultCommitTimeout = 30 * time.Second
	DefaultLockKey       = "chat:archive:run_lock"
	DefaultLockTTL       = 10 * time.Minute
)

// Validate 檢查必填欄位並補上預設值
func (c *ArchiveWorker) Validate() error {
	if c.PostgreSQL.Host == "" || c.PostgreSQL.User == "" || c.PostgreSQL.Password == "" || c.PostgreSQL.Database == "" {
		return errors.New("pg host/user/password/database must be set")
	}
	if c.MinIO.Endpoint == "" {
		return errors.New("minio endpoint must be set")
	}
	if c.MinIO.User == "" || c.MinIO.Password == "" {
		return errors.New("minio credentials must be set")
	}
	if c.MinIO.BucketName == "" {
		return errors.New("minio bucket_name must be set")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled but no brokers set")
	}

	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MinIO.Region == "" {
		c.MinIO.Region = DefaultRegion
	}
	if c.MinIO.KeyPrefix == "" {
		c.MinIO.KeyPrefix = DefaultKeyPrefix
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = DefaultUploadTimeout
	}
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = DefaultCommitTimeout
	}
	if c.RedisLock.LockKey == "" {
		c.RedisLock.LockKey = DefaultLockKey
	}
	if c.RedisLock.LockTTL <= 0 {
		c.RedisLock.LockTTL = DefaultLockTTL
	}
	return nil
}
