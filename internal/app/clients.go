package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/data/cartstore"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/openai"
	"github.com/yungbote/estrella-backend/internal/realtime/bus"
)

type Clients struct {
	Redis     *goredis.Client
	SSEBus    bus.Bus
	CartStore cartstore.Store
	// SubmitLock is set only with the redis cart store, where sessions are
	// shared between instances.
	SubmitLock *cartstore.RedisSubmitLock

	OrderIntake   intake.OrderIntake
	ServiceIntake intake.ServiceIntake
	OrderLookup   intake.OrderLookup
	// Local is always built; it backs the intake endpoints and order lookups.
	Local *intake.LocalIntake

	OpenAI openai.Client
}

func wireClients(log *logger.Logger, cfg Config, repos Repos) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
		out.Redis = rdb
	}

	// SSE bus
	if out.Redis != nil {
		b, err := bus.NewRedisBus(log, out.Redis, cfg.RedisChannel)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.SSEBus = b
	} else {
		out.SSEBus = bus.NewLocalBus(log)
	}

	// Cart store
	switch cfg.CartStore {
	case "redis":
		if out.Redis == nil {
			out.Close()
			return Clients{}, fmt.Errorf("CART_STORE=redis requires REDIS_ADDR")
		}
		s, err := cartstore.NewRedisStore(log, out.Redis, cfg.CartTTL)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis cart store: %w", err)
		}
		out.CartStore = s
		lock, err := cartstore.NewRedisSubmitLock(log, out.Redis)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis submit lock: %w", err)
		}
		out.SubmitLock = lock
	case "", "memory":
		out.CartStore = cartstore.NewMemoryStore(log, cfg.CartTTL)
	default:
		out.Close()
		return Clients{}, fmt.Errorf("unknown CART_STORE %q", cfg.CartStore)
	}

	// Intake
	out.Local = intake.NewLocalIntake(log, repos.Order, repos.ServiceRequest)
	out.OrderIntake = out.Local
	out.ServiceIntake = out.Local
	out.OrderLookup = out.Local
	if cfg.OrderIntakeURL != "" || cfg.ServiceIntakeURL != "" {
		remote := intake.NewHTTPIntake(log, intake.HTTPConfig{
			OrderURL:   cfg.OrderIntakeURL,
			ServiceURL: cfg.ServiceIntakeURL,
			Token:      cfg.IntakeToken,
			Timeout:    cfg.IntakeTimeout,
		})
		if cfg.OrderIntakeURL != "" {
			out.OrderIntake = remote
		}
		if cfg.ServiceIntakeURL != "" {
			out.ServiceIntake = remote
		}
	}

	// OpenAI
	ai, err := openai.NewClient(log, openai.ConfigFromEnv(log))
	if err != nil {
		log.Warn("Support assistant disabled", "error", err)
	} else {
		out.OpenAI = ai
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.CartStore != nil {
		_ = c.CartStore.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
