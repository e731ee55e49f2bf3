package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/estrella-backend/internal/domain/cart"
)

// OrderRequest is the finalized cart handed to the order-intake collaborator.
type OrderRequest struct {
	SessionID     uuid.UUID       `json:"session_id"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	Lines         []cart.Line     `json:"lines"`
	ContactHandle string          `json:"contact_handle"`
	ConsentGiven  bool            `json:"consent_given"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
}

func (r OrderRequest) Validate() error {
	switch {
	case len(r.Lines) == 0:
		return errors.New("lines required")
	case r.ContactHandle == "":
		return errors.New("contact_handle required")
	}
	for _, l := range r.Lines {
		if l.Quantity < 1 {
			return fmt.Errorf("line %s: %w", l.Key, cart.ErrInvalidQuantity)
		}
	}
	return nil
}

type ServiceRequest struct {
	SessionID   uuid.UUID       `json:"session_id"`
	Tariff      string          `json:"tariff"`
	Price       decimal.Decimal `json:"price"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination,omitempty"`
	Description string          `json:"description"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

// Validate mirrors the intake API contract: tariff, origin and destination
// are required. The storefront form adds its own stricter checks.
func (r ServiceRequest) Validate() error {
	if r.Tariff == "" || r.Origin == "" || r.Destination == "" {
		return ErrMissingFields
	}
	return nil
}

var ErrMissingFields = errors.New("Faltan campos obligatorios")

type Confirmation struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

type OrderIntake interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Confirmation, error)
}

type ServiceIntake interface {
	SubmitServiceRequest(ctx context.Context, req ServiceRequest) (Confirmation, error)
}

// OrderStatus is what the support assistant reports back for an order id.
type OrderStatus struct {
	OrderID   string    `json:"order_id"`
	Found     bool      `json:"found"`
	Status    string    `json:"status,omitempty"`
	Total     string    `json:"total,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// OrderOwner restricts a lookup to orders placed from one session or by one
// user. The zero value matches every order and is reserved for trusted
// callers.
type OrderOwner struct {
	SessionID uuid.UUID
	UserID    *uuid.UUID
}

func (o OrderOwner) IsZero() bool {
	return o.SessionID == uuid.Nil && o.UserID == nil
}

func (o OrderOwner) Owns(sessionID uuid.UUID, userID *uuid.UUID) bool {
	if o.IsZero() {
		return true
	}
	if o.SessionID != uuid.Nil && o.SessionID == sessionID {
		return true
	}
	return o.UserID != nil && userID != nil && *o.UserID == *userID
}

type OrderLookup interface {
	Status(ctx context.Context, orderID string, owner OrderOwner) (OrderStatus, error)
}

// CollaboratorError wraps any failure of a remote collaborator. It is never
// retried automatically; the caller keeps its local state for a manual retry.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
