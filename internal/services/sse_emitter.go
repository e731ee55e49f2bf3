package services

import (
	"context"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/realtime"
	"github.com/yungbote/estrella-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// BusEmitter publishes through the bus so every instance's hub sees the
// message. Publish failures are logged and dropped.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(context.WithoutCancel(ctx), msg); err != nil && e.Log != nil {
		e.Log.Warn("SSE publish failed", "channel", msg.Channel, "event", msg.Event, "error", err)
	}
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}
