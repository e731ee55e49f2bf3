package cartstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type memoryEntry struct {
	cart      *cart.Cart
	expiresAt time.Time
}

type memoryStore struct {
	log *logger.Logger
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	carts map[uuid.UUID]memoryEntry
}

// NewMemoryStore keeps carts in process. ttl <= 0 disables expiry.
func NewMemoryStore(log *logger.Logger, ttl time.Duration) Store {
	return &memoryStore{
		log:   log.With("store", "MemoryCartStore"),
		ttl:   ttl,
		now:   time.Now,
		carts: make(map[uuid.UUID]memoryEntry),
	}
}

func (s *memoryStore) Load(ctx context.Context, sessionID uuid.UUID) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.carts[sessionID]
	if !ok {
		return cart.New(), nil
	}
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		delete(s.carts, sessionID)
		return cart.New(), nil
	}
	return entry.cart.Clone(), nil
}

func (s *memoryStore) Save(ctx context.Context, sessionID uuid.UUID, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil || c.IsEmpty() {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = memoryEntry{cart: c.Clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

func (s *memoryStore) Close() error { return nil }
