package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "tiervc/internal/errors"
)

// Validator decodes request bodies and checks their struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
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

// DecodeJSON reads a JSON body into dst and validates it. Oversized bodies
// surface as *http.MaxBytesError so the error handler can answer 413.
func (v *Validator) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apierrors.InvalidRequestWithError(errors.New("request body is empty"))
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return maxErr
		}
		if errors.Is(err, io.EOF) {
			return apierrors.InvalidRequestWithError(errors.New("request body is empty"))
		}
		return apierrors.InvalidRequestWithError(err)
	}
	return v.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// fieldPath drops the root struct name from the namespace: records[0].name
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", field, strings.ToLower(param))
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, param)
	case "max":
		return fmt.Sprintf("%s must contain at most %s item(s)", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ContentTypeValidator rejects request bodies whose Content-Type is not allowed
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.CodeUnsupportedMediaType,
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}
