package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/data/repos/testutil"
	types "github.com/yungbote/estrella-backend/internal/domain/user"
	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, &types.User{
		Email:    "  Cliente@Example.com ",
		Password: "hash",
		Name:     "Cliente",
		Role:     "user",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil || created.Email != "cliente@example.com" {
		t.Fatalf("Create: unexpected user %+v", created)
	}

	got, err := repo.GetByEmail(ctx, tx, "CLIENTE@example.com")
	if err != nil || got.ID != created.ID {
		t.Fatalf("GetByEmail: %v %+v", err, got)
	}

	exists, err := repo.EmailExists(ctx, tx, "cliente@example.com")
	if err != nil || !exists {
		t.Fatalf("EmailExists: %v %v", exists, err)
	}

	if _, err := repo.Create(ctx, tx, &types.User{Email: "cliente@example.com", Password: "x", Role: "user"}); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("duplicate email: want ErrConflict, got %v", err)
	}
}

func TestUserRepoUpdateRole(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	u, err := repo.Create(ctx, nil, &types.User{Email: "admin@example.com", Password: "x", Role: "user"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateRole(ctx, nil, u.ID, "admin"); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	got, err := repo.GetByID(ctx, nil, u.ID)
	if err != nil || got.Role != "admin" {
		t.Fatalf("GetByID: %v %+v", err, got)
	}
	if _, err := repo.GetByID(ctx, nil, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing user: want ErrNotFound, got %v", err)
	}
}
