package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

// localBus delivers in process. Used when no REDIS_ADDR is configured, which
// limits fan-out to a single server instance.
type localBus struct {
	log *logger.Logger

	mu       sync.RWMutex
	handlers map[int]func(realtime.SSEMessage)
	nextID   int
	closed   bool
}

func NewLocalBus(log *logger.Logger) Bus {
	return &localBus{
		log:      log.With("service", "LocalSSEBus"),
		handlers: make(map[int]func(realtime.SSEMessage)),
	}
}

func (b *localBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	for _, h := range b.handlers {
		h(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus closed")
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[int]func(realtime.SSEMessage))
	return nil
}
