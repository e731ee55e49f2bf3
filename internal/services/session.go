package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
)

// requestSession pulls the storefront session from the request context.
// userID is nil for guests, whose token subject never maps to a row.
func requestSession(ctx context.Context) (sessionID uuid.UUID, userID *uuid.UUID, err error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.SessionID == uuid.Nil {
		return uuid.Nil, nil, fmt.Errorf("missing session: %w", pkgerrors.ErrUnauthorized)
	}
	if rd.Role != ctxutil.RoleGuest && rd.UserID != uuid.Nil {
		id := rd.UserID
		userID = &id
	}
	return rd.SessionID, userID, nil
}
