package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object from the request body. Numbers are
// kept as json.Number so that amounts are never rounded through float64.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required", apperrors.ValidationDetail{
				Field:   "body",
				Message: "request body must be a JSON object",
			})
		}
		return apperrors.NewValidationError("invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
	}
	return nil
}

// Validator reports struct tag violations under their json field names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct returns nil or a *errors.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}

	details := make([]apperrors.ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperrors.ValidationDetail{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return apperrors.NewValidationError("validation failed", details...)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// Dates parses ISO-8601 request fields and collects the failures.
type Dates struct {
	details []apperrors.ValidationDetail
}

func (d *Dates) Parse(field, value string) *time.Time {
	t, err := domain.ParseISOTime(value)
	if err != nil {
		d.details = append(d.details, apperrors.ValidationDetail{
			Field:   field,
			Message: field + " must be an ISO-8601 date",
		})
		return nil
	}
	return t
}

// ParseOptional treats nil and empty input as not supplied.
func (d *Dates) ParseOptional(field string, value *string) *time.Time {
	if value == nil {
		return nil
	}
	return d.Parse(field, *value)
}

func (d *Dates) Err() error {
	if len(d.details) == 0 {
		return nil
	}
	return apperrors.NewValidationError("invalid date", d.details...)
}
