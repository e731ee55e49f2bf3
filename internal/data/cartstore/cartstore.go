package cartstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
)

// Store persists one cart per session. Load returns an empty cart for
// unknown sessions.
type Store interface {
	Load(ctx context.Context, sessionID uuid.UUID) (*cart.Cart, error)
	Save(ctx context.Context, sessionID uuid.UUID, c *cart.Cart) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
	Close() error
}
