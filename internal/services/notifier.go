package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/domain/notification"
	"github.com/yungbote/estrella-backend/internal/modules/checkout"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

// StorefrontNotifier turns domain outcomes into SSE messages.
type StorefrontNotifier interface {
	CatalogChanged(ctx context.Context)
	CartUpdated(ctx context.Context, snap checkout.Snapshot)
	CheckoutStateChanged(ctx context.Context, snap checkout.Snapshot)
	OrderSubmitted(ctx context.Context, sessionID uuid.UUID, orderID string)
	Notify(ctx context.Context, sessionID uuid.UUID, n notification.Notification)
}

type storefrontNotifier struct {
	emit SSEEmitter
}

func NewStorefrontNotifier(emit SSEEmitter) StorefrontNotifier {
	return &storefrontNotifier{emit: emit}
}

func (n *storefrontNotifier) CatalogChanged(ctx context.Context) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.CatalogChannel,
		Event:   realtime.SSEEventCatalogChanged,
	})
}

func (n *storefrontNotifier) CartUpdated(ctx context.Context, snap checkout.Snapshot) {
	if n == nil || n.emit == nil || snap.SessionID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(snap.SessionID),
		Event:   realtime.SSEEventCartUpdated,
		Data:    map[string]any{"lines": snap.Lines, "totals": snap.Totals},
	})
}

func (n *storefrontNotifier) CheckoutStateChanged(ctx context.Context, snap checkout.Snapshot) {
	if n == nil || n.emit == nil || snap.SessionID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(snap.SessionID),
		Event:   realtime.SSEEventCheckoutState,
		Data:    map[string]any{"state": snap.State},
	})
}

func (n *storefrontNotifier) OrderSubmitted(ctx context.Context, sessionID uuid.UUID, orderID string) {
	if n == nil || n.emit == nil || sessionID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID),
		Event:   realtime.SSEEventOrderSubmitted,
		Data:    map[string]any{"orderId": orderID},
	})
}

func (n *storefrontNotifier) Notify(ctx context.Context, sessionID uuid.UUID, note notification.Notification) {
	if n == nil || n.emit == nil || sessionID == uuid.Nil || note.Message == "" {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID),
		Event:   realtime.SSEEventNotification,
		Data:    note,
	})
}
