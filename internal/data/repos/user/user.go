package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/data/repos"
	types "github.com/yungbote/estrella-backend/internal/domain/user"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	UpdateRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	if user == nil {
		return nil, errors.New("user required")
	}
	user.Email = normalizeEmail(user.Email)
	if err := transaction.WithContext(ctx).Create(user).Error; err != nil {
		return nil, repos.MapError("create user", err)
	}
	return user, nil
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	var out types.User
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, repos.MapError("get user", err)
	}
	return &out, nil
}

func (ur *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	var out types.User
	if err := transaction.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&out).Error; err != nil {
		return nil, repos.MapError("get user by email", err)
	}
	return &out, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, repos.MapError("email exists", err)
	}
	return count > 0, nil
}

func (ur *userRepo) UpdateRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role string) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return repos.MapError("update user role", res.Error)
	}
	if res.RowsAffected == 0 {
		return repos.MapError("update user role", gorm.ErrRecordNotFound)
	}
	return nil
}
