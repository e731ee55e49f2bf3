package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pendiente"
	StatusConfirmed = "confirmado"
	StatusOnTheWay  = "en_camino"
	StatusDelivered = "entregado"
	StatusCancelled = "cancelado"
)

// Order is what the intake collaborator persists for a cart checkout.
// Lines holds the submitted cart lines verbatim.
type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     uuid.UUID       `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	UserID        *uuid.UUID      `gorm:"type:uuid;column:user_id;index" json:"user_id,omitempty"`
	ContactHandle string          `gorm:"column:contact_handle;not null" json:"contact_handle"`
	ConsentGiven  bool            `gorm:"column:consent_given;not null" json:"consent_given"`
	Status        string          `gorm:"column:status;not null;index" json:"status"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null" json:"subtotal"`
	DeliveryFee   decimal.Decimal `gorm:"column:delivery_fee;type:decimal(12,2);not null" json:"delivery_fee"`
	Total         decimal.Decimal `gorm:"column:total;type:decimal(12,2);not null" json:"total"`
	Lines         datatypes.JSON  `gorm:"column:line_items;not null" json:"lines"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	return nil
}

type ServiceRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID       `gorm:"type:uuid;column:session_id;index" json:"session_id"`
	Tariff      string          `gorm:"column:tariff;not null" json:"tariff"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	Origin      string          `gorm:"column:origin;not null" json:"origin"`
	Destination string          `gorm:"column:destination" json:"destination"`
	Description string          `gorm:"column:description" json:"description"`
	ScheduledAt *time.Time      `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	Status      string          `gorm:"column:status;not null;index" json:"status"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ServiceRequest) TableName() string { return "service_requests" }

func (s *ServiceRequest) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}
