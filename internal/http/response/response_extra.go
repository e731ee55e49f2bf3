package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondErrorWith writes the error envelope plus extra top-level fields, so
// a failed submit can still carry the state the client should render.
func RespondErrorWith(c *gin.Context, status int, code string, err error, extra gin.H) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	body := gin.H{"error": APIError{Message: msg, Code: code}}
	for k, v := range extra {
		if k == "error" {
			continue
		}
		body[k] = v
	}
	c.JSON(status, body)
}

func RespondValidationWith(c *gin.Context, err error, fields map[string]string, extra gin.H) {
	body := gin.H{"error": APIError{Message: err.Error(), Code: "validation_failed", Fields: fields}}
	for k, v := range extra {
		if k == "error" {
			continue
		}
		body[k] = v
	}
	c.JSON(http.StatusUnprocessableEntity, body)
}
