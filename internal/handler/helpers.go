package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"fastclick/internal/apierror"
	"fastclick/internal/middleware"
	"fastclick/internal/repository"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

func init() {
	// decimal.Decimal validates as a float so min/gt/required work.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// Report fields by their JSON name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs validator tags. On failure it
// writes the response and returns false.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}

// optionalSessionID reads ?session_id=; absent means all sessions.
func optionalSessionID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("session_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session_id"))
		return nil, false
	}
	return &id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, service.ErrReceiptNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, service.ErrSessionMismatch),
		errors.Is(err, service.ErrSessionAlreadyOpen),
		errors.Is(err, service.ErrAlreadyInBasket),
		errors.Is(err, service.ErrItemNotAvailable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrGameExists),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrRecomputeInProgress),
		errors.Is(err, repository.ErrStockConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyBasket),
		errors.Is(err, service.ErrSellerNameRequired),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidSessionWindow),
		errors.Is(err, service.ErrEventNameRequired),
		errors.Is(err, service.ErrNotSeller):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps domain errors to their status. Anything unknown is
// handed to middleware.ErrorHandler, which logs it and answers 500.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}

// claims returns the caller's token claims; routes using it sit behind JWTAuth.
func claims(c *gin.Context) *middleware.JWTClaims {
	if cl := middleware.GetClaims(c); cl != nil {
		return cl
	}
	return &middleware.JWTClaims{}
}
