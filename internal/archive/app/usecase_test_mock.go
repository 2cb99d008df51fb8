package app

import (
	"context"

	"chat_archive_service/internal/archive/domain"

	"github.com/stretchr/testify/mock"
)

// MockHotMessageRepository Mock HotMessageRepository
type MockHotMessageRepository struct {
	mock.Mock
}

// LoadEligibleBatch moke load eligible rows
func (m *MockHotMessageRepository) LoadEligibleBatch(ctx context.Context, maxRows int) ([]*domain.HotMessage, error) {
	args := m.Called(ctx, maxRows)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.HotMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// ArchiveCommit moke atomic archive commit
func (m *MockHotMessageRepository) ArchiveCommit(ctx context.Context, entry *domain.ManifestEntry, messageIDs []string) error {
	args := m.Called(ctx, entry, messageIDs)
	return args.Error(0)
}

// MockGroupWriter Mock GroupWriter
type MockGroupWriter struct {
	mock.Mock
}

// Write moke write group to cold storage
func (m *MockGroupWriter) Write(ctx context.Context, key domain.GroupKey, msgs []*domain.HotMessage) (string, error) {
	args := m.Called(ctx, key, msgs)
	return args.String(0), args.Error(1)
}

// MockColdStorage Mock ColdStorageRepository
type MockColdStorage struct {
	mock.Mock
}

// PutArchive moke put object
func (m *MockColdStorage) PutArchive(ctx context.Context, objectKey string, body []byte) (string, error) {
	args := m.Called(ctx, objectKey, body)
	return args.String(0), args.Error(1)
}

// MockRunLock Mock RunLockRepository
type MockRunLock struct {
	mock.Mock
}

// Acquire moke acquire lock
func (m *MockRunLock) Acquire(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// Release moke release lock
func (m *MockRunLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventPublisher Mock ArchiveEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// PublishArchived moke publish archive event
func (m *MockEventPublisher) PublishArchived(ctx context.Context, entry *domain.ManifestEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
