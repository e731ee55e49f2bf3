package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/modules/checkout"
	"github.com/yungbote/estrella-backend/internal/services"
)

type CartHandler struct {
	checkout services.CheckoutService
}

func NewCartHandler(checkout services.CheckoutService) *CartHandler {
	return &CartHandler{checkout: checkout}
}

// keyParam undoes path escaping; keys hold ingredient names with spaces and
// accents.
func keyParam(c *gin.Context) cart.ConfigurationKey {
	raw := c.Param("key")
	if k, err := url.PathUnescape(raw); err == nil {
		raw = k
	}
	return cart.ConfigurationKey(raw)
}

// cartExtra is nil for the zero snapshot returned when no session resolved.
func cartExtra(snap checkout.Snapshot) gin.H {
	if snap.SessionID == uuid.Nil {
		return nil
	}
	return gin.H{"cart": snap}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	snap, err := h.checkout.Cart(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": snap})
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var in services.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.checkout.AddItem(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondCreated(c, res)
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errQuantityRequired)
		return
	}
	snap, err := h.checkout.UpdateQuantity(c.Request.Context(), keyParam(c), *req.Quantity)
	if err != nil {
		respondErrWith(c, err, cartExtra(snap))
		return
	}
	response.RespondOK(c, gin.H{"cart": snap})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	snap, err := h.checkout.RemoveItem(c.Request.Context(), keyParam(c))
	if err != nil {
		respondErrWith(c, err, cartExtra(snap))
		return
	}
	response.RespondOK(c, gin.H{"cart": snap})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	snap, err := h.checkout.ClearCart(c.Request.Context())
	if err != nil {
		respondErrWith(c, err, cartExtra(snap))
		return
	}
	response.RespondOK(c, gin.H{"cart": snap})
}
