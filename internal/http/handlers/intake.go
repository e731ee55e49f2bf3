package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

// IntakeHandler exposes the local intake over HTTP so other deployments can
// point ORDER_INTAKE_URL and SERVICE_INTAKE_URL at this backend. Responses
// follow the collaborator contract: {success, orderId} or {error}.
type IntakeHandler struct {
	log      *logger.Logger
	orders   intake.OrderIntake
	services intake.ServiceIntake
	lookup   intake.OrderLookup
}

func NewIntakeHandler(log *logger.Logger, orders intake.OrderIntake, services intake.ServiceIntake, lookup intake.OrderLookup) *IntakeHandler {
	return &IntakeHandler{
		log:      log.With("handler", "IntakeHandler"),
		orders:   orders,
		services: services,
		lookup:   lookup,
	}
}

func intakeError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *IntakeHandler) SubmitOrder(c *gin.Context) {
	var req intake.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		intakeError(c, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		intakeError(c, http.StatusBadRequest, err)
		return
	}
	conf, err := h.orders.SubmitOrder(c.Request.Context(), req)
	if err != nil {
		h.log.Error("Order intake failed", "error", err)
		intakeError(c, http.StatusInternalServerError, errors.New("Error interno del servidor"))
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (h *IntakeHandler) SubmitServiceRequest(c *gin.Context) {
	var req intake.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		intakeError(c, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		intakeError(c, http.StatusBadRequest, err)
		return
	}
	conf, err := h.services.SubmitServiceRequest(c.Request.Context(), req)
	if err != nil {
		h.log.Error("Service request intake failed", "error", err)
		intakeError(c, http.StatusInternalServerError, errors.New("Error interno del servidor"))
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (h *IntakeHandler) OrderStatus(c *gin.Context) {
	// Token holders are trusted back-office callers and see every order.
	st, err := h.lookup.Status(c.Request.Context(), c.Param("id"), intake.OrderOwner{})
	if err != nil {
		h.log.Error("Order lookup failed", "error", err)
		intakeError(c, http.StatusInternalServerError, errors.New("Error interno del servidor"))
		return
	}
	if !st.Found {
		c.JSON(http.StatusNotFound, st)
		return
	}
	response.RespondOK(c, st)
}
