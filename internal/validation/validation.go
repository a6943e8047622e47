// Package validation checks decoded request payloads against their struct
// tags and reports every violated constraint at once.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error aggregates all constraint violations of one payload.
type Error struct {
	Detail string
	Fields map[string]string
}

func (e *Error) Error() string {
	return "validation error: " + e.Detail
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// maxbytes bounds the encoded length of a string, e.g. bcrypt's 72-byte input.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

// Struct validates v against its `validate` tags. It returns nil, a *Error,
// or the validator's own error when v is not a struct.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(fieldErrs))}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := describe(fe)
		out.Fields[fe.Field()] = msg
		msgs = append(msgs, msg)
	}
	out.Detail = strings.Join(msgs, "; ")
	return out
}

// Decode reads one JSON document from r into dst and validates it. Unknown
// keys are ignored.
func Decode(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &Error{Detail: "request body is required"}
		}
		return &Error{Detail: "invalid JSON body: " + err.Error()}
	}
	return Struct(dst)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "min", "gte":
		if isString(fe) {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if isString(fe) {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %s check", field, fe.Tag())
	}
}

func isString(fe validator.FieldError) bool {
	return fe.Kind() == reflect.String
}
