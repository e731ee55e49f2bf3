package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/clients/intake"
	"github.com/yungbote/estrella-backend/internal/http/response"
	"github.com/yungbote/estrella-backend/internal/modules/checkout"
	"github.com/yungbote/estrella-backend/internal/modules/servicerequest"
)

// classify maps domain errors to status and code. ok is false for errors
// that should fall through to apierr.
func classify(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, checkout.ErrSubmissionInFlight), errors.Is(err, servicerequest.ErrSubmissionInFlight):
		return http.StatusConflict, "submission_in_flight", true
	case errors.Is(err, checkout.ErrInvalidTransition), errors.Is(err, servicerequest.ErrInvalidStep):
		return http.StatusConflict, "invalid_state", true
	case intake.IsCollaboratorError(err):
		return http.StatusBadGateway, "collaborator_failed", true
	}
	return 0, "", false
}

func validationFields(err error) (map[string]string, bool) {
	var cv checkout.ValidationErrors
	if errors.As(err, &cv) {
		out := make(map[string]string, len(cv))
		for _, fe := range cv {
			out[fe.Field] = fe.Message
		}
		return out, true
	}
	var sv servicerequest.ValidationErrors
	if errors.As(err, &sv) {
		out := make(map[string]string, len(sv))
		for _, fe := range sv {
			out[fe.Field] = fe.Message
		}
		return out, true
	}
	return nil, false
}

func respondErr(c *gin.Context, err error) {
	respondErrWith(c, err, nil)
}

// respondErrWith attaches extra state (cart, view, notification) to the error
// body where the client needs it to redraw.
func respondErrWith(c *gin.Context, err error, extra gin.H) {
	if fields, ok := validationFields(err); ok {
		response.RespondValidationWith(c, err, fields, extra)
		return
	}
	if status, code, ok := classify(err); ok {
		_ = c.Error(err)
		msg := err
		if status == http.StatusBadGateway {
			// The collaborator's own message is logged, not shown.
			msg = errors.New("upstream service failed")
		}
		response.RespondErrorWith(c, status, code, msg, extra)
		return
	}
	response.RespondAPIError(c, err)
}
