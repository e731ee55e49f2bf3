package apierr

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/yungbote/estrella-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From resolves err into an *Error. Explicit *Error values win; the shared
// sentinels map to their usual statuses; anything else is a 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, pkgerrors.ErrForbidden):
		return New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, pkgerrors.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	}
	return New(http.StatusInternalServerError, "internal", err)
}
