package repository

import (
	"chat_archive_service/internal/archive/domain"

	"gorm.io/gorm"
)

// SchemaMigrator definition manifest schema bootstrap
type SchemaMigrator interface {
	AutoMigrate() error
	AutoMigrateAll() error
}

type schemaMigrator struct {
	db *gorm.DB
}

// NewSchemaMigrator create SchemaMigrator
func NewSchemaMigrator(db *gorm.DB) SchemaMigrator {
	return &schemaMigrator{db: db}
}

// AutoMigrate 只建立 worker 擁有的 manifest 資料表
// messages 資料表屬於 live chat transport，worker 不碰它的 schema
func (m *schemaMigrator) AutoMigrate() error {
	return m.db.AutoMigrate(&domain.ManifestEntry{})
}

// AutoMigrateAll 連 messages 一起建，測試與本地開發用
func (m *schemaMigrator) AutoMigrateAll() error {
	return m.db.AutoMigrate(&domain.HotMessage{}, &domain.ManifestEntry{})
}
