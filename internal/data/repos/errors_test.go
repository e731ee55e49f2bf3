package repos

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"not found", gorm.ErrRecordNotFound, pkgerrors.ErrNotFound},
		{"pg unique", &pgconn.PgError{Code: "23505"}, pkgerrors.ErrConflict},
		{"pg fk", &pgconn.PgError{Code: "23503"}, pkgerrors.ErrInvalidArgument},
		{"sqlite unique", errors.New("UNIQUE constraint failed: users.email"), pkgerrors.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil in, nil out")
	}
}
