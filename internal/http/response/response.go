package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/estrella-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	// Fields carries inline validation messages keyed by form field.
	Fields map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondValidation answers 422 with one message per field.
func RespondValidation(c *gin.Context, err error, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
		Error: APIError{
			Message: err.Error(),
			Code:    "validation_failed",
			Fields:  fields,
		},
	})
}

// RespondAPIError resolves err through apierr. 5xx messages are replaced so
// internals never reach the client.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	_ = c.Error(err)
	msg := "unknown error"
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	if ae.Status >= http.StatusInternalServerError && ae.Status != http.StatusBadGateway && ae.Status != http.StatusServiceUnavailable {
		msg = http.StatusText(ae.Status)
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: msg, Code: ae.Code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
