package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleNone  Role = ""
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAdmin:
		return true
	}
	return false
}

type requestDataKey struct{}

// RequestData is attached by the auth middleware. SessionID identifies the
// cart/checkout session; guests have a SessionID but no persisted user row.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	SessionID   uuid.UUID
	Role        Role
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
