package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/data/repos"
	types "github.com/yungbote/estrella-backend/internal/domain/orders"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type OrderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Order, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit int) ([]*types.Order, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	repoLog := baseLog.With("repo", "OrderRepo")
	return &orderRepo{db: db, log: repoLog}
}

func (r *orderRepo) Create(ctx context.Context, tx *gorm.DB, order *types.Order) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if order == nil {
		return nil, errors.New("order required")
	}
	if err := transaction.WithContext(ctx).Create(order).Error; err != nil {
		return nil, repos.MapError("create order", err)
	}
	return order, nil
}

func (r *orderRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Order
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, repos.MapError("get order", err)
	}
	return &out, nil
}

func (r *orderRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, limit int) ([]*types.Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var results []*types.Order
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, repos.MapError("list orders", err)
	}
	return results, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return repos.MapError("update order status", res.Error)
	}
	if res.RowsAffected == 0 {
		return repos.MapError("update order status", gorm.ErrRecordNotFound)
	}
	return nil
}

type ServiceRequestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, req *types.ServiceRequest) (*types.ServiceRequest, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ServiceRequest, error)
}

type serviceRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewServiceRequestRepo(db *gorm.DB, baseLog *logger.Logger) ServiceRequestRepo {
	repoLog := baseLog.With("repo", "ServiceRequestRepo")
	return &serviceRequestRepo{db: db, log: repoLog}
}

func (r *serviceRequestRepo) Create(ctx context.Context, tx *gorm.DB, req *types.ServiceRequest) (*types.ServiceRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if req == nil {
		return nil, errors.New("service request required")
	}
	if err := transaction.WithContext(ctx).Create(req).Error; err != nil {
		return nil, repos.MapError("create service request", err)
	}
	return req, nil
}

func (r *serviceRequestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ServiceRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.ServiceRequest
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, repos.MapError("get service request", err)
	}
	return &out, nil
}
