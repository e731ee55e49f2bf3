package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/modules/servicerequest"
	"github.com/yungbote/estrella-backend/internal/services"
)

type ServiceRequestHandler struct {
	svc services.ServiceRequestService
}

func NewServiceRequestHandler(svc services.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{svc: svc}
}

func (h *ServiceRequestHandler) Tariffs(c *gin.Context) {
	response.RespondOK(c, gin.H{"tariffs": h.svc.Tariffs()})
}

func (h *ServiceRequestHandler) Slots(c *gin.Context) {
	response.RespondOK(c, h.svc.Slots())
}

func (h *ServiceRequestHandler) View(c *gin.Context) {
	v, err := h.svc.View(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"request": v})
}

func (h *ServiceRequestHandler) Confirm(c *gin.Context) {
	var form servicerequest.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.svc.Confirm(c.Request.Context(), form)
	if err != nil {
		respondErrWith(c, err, gin.H{"request": v})
		return
	}
	response.RespondOK(c, gin.H{"request": v})
}

func (h *ServiceRequestHandler) Edit(c *gin.Context) {
	v, err := h.svc.Edit(c.Request.Context())
	if err != nil {
		respondErrWith(c, err, gin.H{"request": v})
		return
	}
	response.RespondOK(c, gin.H{"request": v})
}

func (h *ServiceRequestHandler) Submit(c *gin.Context) {
	out, err := h.svc.Submit(c.Request.Context())
	if err != nil {
		extra := gin.H{"request": out.View}
		if out.Notification.Message != "" {
			extra["notification"] = out.Notification
		}
		respondErrWith(c, err, extra)
		return
	}
	response.RespondOK(c, gin.H{
		"request":      out.View,
		"requestId":    out.RequestID,
		"notification": out.Notification,
	})
}

func (h *ServiceRequestHandler) Reset(c *gin.Context) {
	v, err := h.svc.Reset(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"request": v})
}
