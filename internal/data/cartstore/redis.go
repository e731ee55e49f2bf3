package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

const redisKeyPrefix = "estrella:cart:"

type redisStore struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewRedisStore(log *logger.Logger, rdb goredis.UniversalClient, ttl time.Duration) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisStore{
		log: log.With("store", "RedisCartStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func redisKey(sessionID uuid.UUID) string {
	return redisKeyPrefix + sessionID.String()
}

func (s *redisStore) Load(ctx context.Context, sessionID uuid.UUID) (*cart.Cart, error) {
	raw, err := s.rdb.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	c := cart.New()
	if err := json.Unmarshal(raw, c); err != nil {
		s.log.Warn("Discarding unreadable cart payload", "session_id", sessionID, "error", err)
		return cart.New(), nil
	}
	return c, nil
}

func (s *redisStore) Save(ctx context.Context, sessionID uuid.UUID, c *cart.Cart) error {
	if c == nil || c.IsEmpty() {
		return s.Delete(ctx, sessionID)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.rdb.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error { return nil }
