package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	types "github.com/yungbote/estrella-backend/internal/domain/user"
)

// SeedUser inserts an account whose password is "password123".
func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, role string) *types.User {
	tb.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hashed),
		Name:     "Cliente",
		Role:     role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
