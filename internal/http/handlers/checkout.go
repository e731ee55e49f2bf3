package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/services"
)

var errQuantityRequired = errors.New("quantity required")

type CheckoutHandler struct {
	checkout services.CheckoutService
}

func NewCheckoutHandler(checkout services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req struct {
		ContactHandle string `json:"contactHandle"`
		ConsentGiven  bool   `json:"consentGiven"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, err := h.checkout.Confirm(c.Request.Context(), req.ContactHandle, req.ConsentGiven)
	if err != nil {
		respondErrWith(c, err, cartExtra(snap))
		return
	}
	response.RespondOK(c, gin.H{"cart": snap})
}

func (h *CheckoutHandler) Edit(c *gin.Context) {
	snap, err := h.checkout.Edit(c.Request.Context())
	if err != nil {
		respondErrWith(c, err, cartExtra(snap))
		return
	}
	response.RespondOK(c, gin.H{"cart": snap})
}

// Submit answers 502 with the untouched cart and a failure notification when
// the order intake fails; the client may submit again.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	out, err := h.checkout.Submit(c.Request.Context())
	if err != nil {
		extra := cartExtra(out.Snapshot)
		if out.Notification.Message != "" {
			if extra == nil {
				extra = gin.H{}
			}
			extra["notification"] = out.Notification
		}
		respondErrWith(c, err, extra)
		return
	}
	response.RespondOK(c, gin.H{
		"cart":         out.Snapshot,
		"orderId":      out.OrderID,
		"notification": out.Notification,
	})
}
