package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their json name so messages match the
// request payload
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// FieldErrors maps a payload field to the rule it failed
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	msgs := make([]string, 0, len(f))
	for field, rule := range f {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s", field, rule))
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates a struct using its validate tags. Rule failures
// come back as FieldErrors.
func ValidateStruct(s interface{}) error {
	if s == nil {
		return nil
	}

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validator: expected a struct, got %T", s)
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(FieldErrors, len(ve))
		for _, e := range ve {
			fields[e.Field()] = e.Tag()
		}
		return fields
	}
	return fmt.Errorf("validation failed: %w", err)
}
