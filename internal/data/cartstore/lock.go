package cartstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

const submitLockPrefix = "estrella:submit:"

// Deletes the key only while it still carries the holder's token.
var releaseSubmitLock = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSubmitLock is a per-session SET NX lock shared by every instance
// pointed at the same redis.
type RedisSubmitLock struct {
	log *logger.Logger
	rdb goredis.UniversalClient
}

func NewRedisSubmitLock(log *logger.Logger, rdb goredis.UniversalClient) (*RedisSubmitLock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisSubmitLock{log: log.With("store", "RedisSubmitLock"), rdb: rdb}, nil
}

func (l *RedisSubmitLock) Acquire(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) (func(), bool, error) {
	key := submitLockPrefix + sessionID.String()
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx submit lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		if err := releaseSubmitLock.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("Submit lock release failed", "session_id", sessionID, "error", err)
		}
	}
	return release, true, nil
}
