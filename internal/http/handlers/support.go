package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/modules/support"
	"github.com/yungbote/estrella-backend/internal/services"
)

type SupportHandler struct {
	support services.SupportService
}

func NewSupportHandler(svc services.SupportService) *SupportHandler {
	return &SupportHandler{support: svc}
}

// Ask is stateless: the client resends the whole conversation each turn.
func (h *SupportHandler) Ask(c *gin.Context) {
	var req struct {
		History []support.Message `json:"history"`
		Message string            `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ans, err := h.support.Ask(c.Request.Context(), req.History, req.Message)
	if err != nil {
		if ans.Reply.Text == "" {
			respondErr(c, err)
			return
		}
		respondErrWith(c, err, gin.H{"reply": ans.Reply, "notification": ans.Notification})
		return
	}
	response.RespondOK(c, ans)
}

func (h *SupportHandler) Contact(c *gin.Context) {
	response.RespondOK(c, h.support.Contact())
}
