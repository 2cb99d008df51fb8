package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chat_archive_service/internal/archive/repository"
	"chat_archive_service/pkg/database"
	testtool "chat_archive_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// 整合測試：真 Redis 驗證 run lock 的互斥與安全釋放
func TestRedisRunLock_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	redisContainer, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	client, err := database.NewRedisSingleClient(fmt.Sprintf("%s:%s", host, port), 0)
	require.NoError(t, err)
	defer client.Close()

	lockA := repository.NewRedisRunLock(client, "chat:archive:test_lock", time.Minute)
	lockB := repository.NewRedisRunLock(client, "chat:archive:test_lock", time.Minute)

	// A 先拿到鎖，B 拿不到
	ok, err := lockA.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lockB.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second run must not acquire a held lock")

	// B 釋放不是自己持有的鎖必須是 no-op，鎖仍然被 A 持有
	require.NoError(t, lockB.Release(ctx))
	ok, err = lockB.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-holder must not free the lock")

	// A 釋放後 B 才拿得到
	require.NoError(t, lockA.Release(ctx))
	ok, err = lockB.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lockB.Release(ctx))
}
