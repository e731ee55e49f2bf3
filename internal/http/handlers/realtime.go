package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/observability"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: SessionID
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log:     log.With("handler", "RealtimeHandler"),
		Hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// SSEStream subscribes the session to the catalog channel and its own
// channel. A second stream for the same session replaces the first.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.SessionID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "not authenticated", "code": "unauthorized"}})
		return
	}
	sessionID := rd.SessionID

	h.mu.Lock()
	if existing, ok := h.clients[sessionID]; ok {
		h.Hub.CloseClient(existing)
		delete(h.clients, sessionID)
	}
	client := h.Hub.NewSSEClient(sessionID)
	h.clients[sessionID] = client
	observability.Current().SetSSEClients(len(h.clients))
	h.mu.Unlock()

	h.Log.Debug("SSEStream open", "session_id", sessionID, "client_id", client.ID)
	h.Hub.AddChannel(client, realtime.CatalogChannel)
	h.Hub.AddChannel(client, realtime.SessionChannel(sessionID))

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if cur, ok := h.clients[sessionID]; ok && cur == client {
		delete(h.clients, sessionID)
	}
	observability.Current().SetSSEClients(len(h.clients))
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}
