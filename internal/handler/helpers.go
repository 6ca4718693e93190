package handler

import (
	"net/http"
	"reflect"

	"paylog/internal/apierror"
	"paylog/internal/middleware"
	"paylog/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewCoded(service.CodeValidation, "Invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// actorFromClaims converts the JWT claims into the explicit actor every
// engine operation takes as a parameter.
func actorFromClaims(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	id, _ := uuid.Parse(claims.UserID)
	return service.Actor{ID: id, Role: claims.Role}
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
// The code in the envelope tells callers whether the failure is "not allowed"
// (403), "invalid input" (422), "not found" (404), or "not possible right
// now" (409) — each needs a different corrective action.
func writeServiceError(c *gin.Context, err error) {
	code := service.CodeOf(err)
	switch code {
	case service.CodeValidation:
		c.JSON(http.StatusUnprocessableEntity, apierror.NewCoded(code, err.Error()))
	case service.CodeForbidden:
		c.JSON(http.StatusForbidden, apierror.NewCoded(code, err.Error()))
	case service.CodeNotFound:
		c.JSON(http.StatusNotFound, apierror.NewCoded(code, err.Error()))
	case service.CodeInvalidTransition, service.CodeNotPayable,
		service.CodeOverpayment, service.CodeResubmissionLimit, service.CodeConflict:
		c.JSON(http.StatusConflict, apierror.NewCoded(code, err.Error()))
	case "":
		// Infrastructure failure — never leak internals
		_ = c.Error(err)
	default:
		c.JSON(http.StatusBadRequest, apierror.NewCoded(code, err.Error()))
	}
}
