package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	sid := uuid.New()
	channel := SessionChannel(sid)

	clientA := hub.NewSSEClient(sid)
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventCartUpdated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventNotification, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventCartUpdated {
		t.Fatalf("first event: got %s", got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventNotification {
		t.Fatalf("second event: got %s", got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("outbound should be closed after disconnect")
	}
	if hub.Subscribers(channel) != 0 {
		t.Fatalf("closed client should be unsubscribed")
	}

	clientB := hub.NewSSEClient(sid)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventOrderSubmitted})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventOrderSubmitted {
		t.Fatalf("reconnect event: got %s", got.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	a := hub.NewSSEClient(uuid.New())
	b := hub.NewSSEClient(uuid.New())
	hub.AddChannel(a, SessionChannel(a.SessionID))
	hub.AddChannel(a, CatalogChannel)
	hub.AddChannel(b, SessionChannel(b.SessionID))
	hub.AddChannel(b, CatalogChannel)

	hub.Broadcast(SSEMessage{Channel: SessionChannel(a.SessionID), Event: SSEEventCartUpdated})
	hub.Broadcast(SSEMessage{Channel: CatalogChannel, Event: SSEEventCatalogChanged})

	if got := recvMessage(t, a.Outbound, time.Second); got.Event != SSEEventCartUpdated {
		t.Fatalf("a first: %s", got.Event)
	}
	if got := recvMessage(t, b.Outbound, time.Second); got.Event != SSEEventCatalogChanged {
		t.Fatalf("b should only see the catalog ping, got %s", got.Event)
	}
}

func TestSSEHubBroadcastDropsWhenFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, CatalogChannel)
	for i := 0; i < cap(c.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: CatalogChannel, Event: SSEEventCatalogChanged})
	}
	if len(c.Outbound) != cap(c.Outbound) {
		t.Fatalf("buffer should be full, got %d", len(c.Outbound))
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, CatalogChannel)
	hub.Broadcast(SSEMessage{Channel: CatalogChannel, Event: SSEEventCatalogChanged})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/sse/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, req, c)

	body := rec.Body.String()
	if !strings.Contains(body, "event: CatalogChanged") || !strings.Contains(body, `"channel":"catalog"`) {
		t.Fatalf("unexpected stream body: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
}
