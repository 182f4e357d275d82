// Package validation wraps go-playground/validator with readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is matched by every error Struct returns.
var ErrInvalid = errors.New("invalid input")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json names, not Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Error lists the failed fields in declaration order.
type Error struct {
	Fields   []string
	Messages []string
}

func (e *Error) Error() string { return strings.Join(e.Messages, "; ") }

func (e *Error) Is(target error) bool { return target == ErrInvalid }

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fe.Field())
		out.Messages = append(out.Messages, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
