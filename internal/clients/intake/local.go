package intake

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	ordersrepo "github.com/yungbote/estrella-backend/internal/data/repos/orders"
	"github.com/yungbote/estrella-backend/internal/domain/cart"
	"github.com/yungbote/estrella-backend/internal/domain/orders"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

// LocalIntake persists orders and service requests in the backend's own
// database. It backs the /api/intake endpoints and is the default when no
// remote intake URL is configured.
type LocalIntake struct {
	log      *logger.Logger
	orders   ordersrepo.OrderRepo
	services ordersrepo.ServiceRequestRepo
}

func NewLocalIntake(log *logger.Logger, orderRepo ordersrepo.OrderRepo, serviceRepo ordersrepo.ServiceRequestRepo) *LocalIntake {
	return &LocalIntake{
		log:      log.With("client", "LocalIntake"),
		orders:   orderRepo,
		services: serviceRepo,
	}
}

func (l *LocalIntake) SubmitOrder(ctx context.Context, req OrderRequest) (Confirmation, error) {
	if err := req.Validate(); err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit order", Err: err}
	}
	raw, err := json.Marshal(req.Lines)
	if err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit order", Err: err}
	}
	// Totals are recomputed from the submitted lines, the client's copy is informational.
	fee := req.DeliveryFee
	totals := cart.Price(req.Lines, cart.FeePolicy{Flat: fee})
	row := &orders.Order{
		SessionID:     req.SessionID,
		UserID:        req.UserID,
		ContactHandle: strings.TrimSpace(req.ContactHandle),
		ConsentGiven:  req.ConsentGiven,
		Status:        orders.StatusPending,
		Subtotal:      totals.Subtotal,
		DeliveryFee:   totals.DeliveryFee,
		Total:         totals.Total,
		Lines:         datatypes.JSON(raw),
	}
	created, err := l.orders.Create(ctx, nil, row)
	if err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit order", Err: err}
	}
	l.log.Info("Order received", "order_id", created.ID, "session_id", req.SessionID, "total", totals.Total.StringFixed(2))
	return Confirmation{Success: true, OrderID: created.ID.String()}, nil
}

func (l *LocalIntake) SubmitServiceRequest(ctx context.Context, req ServiceRequest) (Confirmation, error) {
	if err := req.Validate(); err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit service request", Err: err}
	}
	row := &orders.ServiceRequest{
		SessionID:   req.SessionID,
		Tariff:      req.Tariff,
		Price:       req.Price,
		Origin:      req.Origin,
		Destination: req.Destination,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Status:      orders.StatusPending,
	}
	created, err := l.services.Create(ctx, nil, row)
	if err != nil {
		return Confirmation{}, &CollaboratorError{Op: "submit service request", Err: err}
	}
	l.log.Info("Service request received", "request_id", created.ID, "tariff", req.Tariff)
	return Confirmation{Success: true, OrderID: created.ID.String()}, nil
}

// Status looks an order up by id. Malformed ids, unknown ids and orders that
// belong to someone other than owner all report Found=false.
func (l *LocalIntake) Status(ctx context.Context, orderID string, owner OrderOwner) (OrderStatus, error) {
	orderID = strings.TrimSpace(orderID)
	out := OrderStatus{OrderID: orderID}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return out, nil
	}
	row, err := l.orders.GetByID(ctx, nil, id)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, &CollaboratorError{Op: "lookup order", Err: err}
	}
	if !owner.Owns(row.SessionID, row.UserID) {
		return out, nil
	}
	out.Found = true
	out.Status = row.Status
	out.Total = row.Total.StringFixed(2)
	out.CreatedAt = row.CreatedAt
	return out, nil
}
