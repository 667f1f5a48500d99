package handler

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/middleware"
	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/service"
)

// RequestValidator plugs go-playground/validator into echo.  Failures are
// returned as *service.ValidationError keyed by JSON field name.
type RequestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *RequestValidator {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, translator)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v, translator: translator}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &service.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = fe.Translate(rv.translator)
	}
	return ve
}

// bind decodes the request into dst and validates it.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return c.Validate(dst)
}

// actor returns the authenticated caller.  Routes are mounted behind
// JWTAuth, so a missing actor means a wiring bug.
func actor(c echo.Context) (model.Actor, error) {
	a, ok := middleware.Actor(c)
	if !ok {
		return model.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return a, nil
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &service.ValidationError{Fields: map[string]string{name: "must be an RFC 3339 timestamp"}}
	}
	return &t, nil
}

// ErrorHandler renders errors as {"error": "..."} with the status code of
// their kind.  Unexpected errors are logged and reported as 500.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, body := errorResponse(err)
		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Warn("write error response", zap.Error(err))
		}
	}
}

func errorResponse(err error) (int, echo.Map) {
	var funds *service.InsufficientFundsError
	var invalid *service.ValidationError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &funds):
		return http.StatusPaymentRequired, echo.Map{
			"error":     "insufficient funds",
			"required":  funds.Required,
			"balance":   funds.Balance,
			"shortfall": funds.Shortfall,
		}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": invalid.Fields}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, echo.Map{"error": err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, echo.Map{"error": err.Error()}
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusUnprocessableEntity, echo.Map{"error": err.Error()}
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, echo.Map{"error": err.Error()}
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, echo.Map{"error": msg}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal server error"}
}
