package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
)

// MapError folds driver failures into the shared sentinels so services and
// handlers never branch on driver types.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, pkgerrors.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, pkgerrors.ErrConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %s", op, pkgerrors.ErrConflict, pgErr.ConstraintName)
		case "23503", "23502", "22P02": // foreign_key, not_null, invalid_text
			return fmt.Errorf("%s: %w: %s", op, pkgerrors.ErrInvalidArgument, pgErr.Message)
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint failed") {
		return fmt.Errorf("%s: %w", op, pkgerrors.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
