package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RunLockRepository definition run serialization lock
// 擋掉重疊的排程觸發；拿不到鎖的 run 直接放棄，下一次觸發再試
type RunLockRepository interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// 只刪自己持有的鎖，避免 TTL 過期後誤刪別的 run 的鎖
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// NewRedisRunLock create RunLockRepository
func NewRedisRunLock(client *redis.Client, key string, ttl time.Duration) RunLockRepository {
	return &redisRunLock{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  uuid.New().String(),
	}
}

func (l *redisRunLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
}

func (l *redisRunLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
