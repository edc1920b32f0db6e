package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"medpos/internal/apierror"
	"medpos/internal/middleware"
	"medpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
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
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
}

// statusByCategory maps a failure category onto its HTTP status.
var statusByCategory = map[apierror.Category]int{
	apierror.CategoryValidation:          http.StatusUnprocessableEntity,
	apierror.CategoryIdentifierExhausted: http.StatusServiceUnavailable,
	apierror.CategoryDuplicate:           http.StatusConflict,
	apierror.CategoryInvalidReference:    http.StatusUnprocessableEntity,
	apierror.CategoryMissingFields:       http.StatusUnprocessableEntity,
	apierror.CategoryNotFound:            http.StatusNotFound,
	apierror.CategoryInvalidTransition:   http.StatusConflict,
	apierror.CategoryInternal:            http.StatusInternalServerError,
}

// bindJSON binds the body and answers 400 on malformed JSON (including
// non-numeric amounts). Returns false when a response was written.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		resp := apierror.New(apierror.CategoryValidation, "JSON invalide")
		resp.Fields = map[string]string{"body": err.Error()}
		c.JSON(http.StatusBadRequest, resp)
		return false
	}
	return true
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if !bindJSON(c, req) {
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// parseID reads a uuid path parameter, answering 400 when malformed.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CategoryValidation, "Identifiant invalide"))
		return uuid.Nil, false
	}
	return id, true
}

// actorID is the authenticated staff member, uuid.Nil on unauthenticated routes.
func actorID(c *gin.Context) uuid.UUID {
	if claims := middleware.GetClaims(c); claims != nil {
		return claims.ActorID()
	}
	return uuid.Nil
}

// errorResponder writes service failures; debug adds the cause to the body.
type errorResponder struct{ debug bool }

func (r errorResponder) respond(c *gin.Context, err error) {
	var se *service.ServiceError
	if !errors.As(err, &se) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.Internal())
		return
	}

	status, ok := statusByCategory[se.Category]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := &apierror.APIError{Category: se.Category, Detail: se.Message, Fields: se.Fields}
	if r.debug && se.Err != nil {
		body.WithDebug(se.Err.Error())
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("request failed")
	}
	c.JSON(status, body)
}
