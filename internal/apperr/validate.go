package apperr

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Invalid turns a validator failure into a ValidationError whose message
// names the first offending field.
func Invalid(op string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Wrap(ErrValidation, op, err)
	}
	return &Error{Kind: ErrValidation, Op: op, Message: fieldMessage(verrs[0]), Err: err}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s does not match.", field)
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color like #FA774C.", field)
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}

// NewValidator returns a validator that names fields by their `label` tag
// in messages, falling back to the Go field name.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	return v
}
