package chatsvc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mkrupp/voicechat/internal/domain"
)

// ErrInvalidInput is returned when input is rejected before any request is sent.
var ErrInvalidInput = errors.New("invalid input")

// Credentials are the inputs of a login.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Registration holds the inputs of a registration. Picture is optional.
type Registration struct {
	Username string       `validate:"required"`
	Email    string       `validate:"required,email"`
	Password string       `validate:"required,min=8"`
	Picture  *domain.File `validate:"-"`
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validateInput checks input against its validate tags and returns a
// domain.KindValidation failure describing every violated rule.
func validateInput(validate *validator.Validate, op string, input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewFailure(domain.KindValidation, op, op+" failed: "+err.Error(), errors.Join(ErrInvalidInput, err))
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		problems = append(problems, describe(fieldErr))
	}

	return domain.NewFailure(domain.KindValidation, op,
		op+" failed: "+strings.Join(problems, "; "), errors.Join(ErrInvalidInput, err))
}

func describe(fieldErr validator.FieldError) string {
	field := strings.ToLower(fieldErr.Field())

	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fieldErr.Tag())
	}
}
