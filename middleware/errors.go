package middleware

import (
	"food-ordering-api/apperror"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	ErrorKind apperror.Kind     `json:"error_kind"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// AbortWithError renders err as {error_kind, message} with the mapped status.
// The error is attached to the context so the request logger records it.
func AbortWithError(c *gin.Context, err error) {
	AbortWithFields(c, err, nil)
}

func AbortWithFields(c *gin.Context, err error, fields map[string]string) {
	_ = c.Error(err)
	kind := apperror.KindOf(err)
	c.AbortWithStatusJSON(apperror.HTTPStatus(kind), ErrorBody{
		ErrorKind: kind,
		Message:   apperror.Message(err),
		Fields:    fields,
	})
}
