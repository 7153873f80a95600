package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"food-ordering-api/apperror"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNames sync.Once

// UseJSONFieldNames makes validation errors report json names.
func UseJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// bindJSON binds the body into req and writes an invalid_input response on failure.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = describe(fe)
		}
		middleware.AbortWithFields(c, apperror.New(apperror.InvalidInput, "validation failed"), fields)
		return false
	}
	middleware.AbortWithError(c, apperror.Wrap(apperror.InvalidInput, err, "malformed request body"))
	return false
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "dive":
		return "is invalid"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func actorOf(c *gin.Context) statemachine.Actor {
	return statemachine.Actor{ID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

func parseStatus(s string) (models.OrderStatus, error) {
	st, err := models.ParseOrderStatus(s)
	if err != nil {
		return "", apperror.Wrap(apperror.InvalidInput, err, fmt.Sprintf("unknown order status %q", s))
	}
	return st, nil
}
