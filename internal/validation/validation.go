// Package validation holds the form schemas checked before a gateway call.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"snapgram/internal/models"

	"github.com/go-playground/validator/v10"
)

// Signup is the sign-up form.
type Signup struct {
	Name     string `json:"name" validate:"min=2"`
	Username string `json:"username" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

// Signin is the sign-in form.
type Signin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

// Post is the create/edit post form. Tags is the raw comma separated string.
type Post struct {
	Caption  string `json:"caption" validate:"min=5,max=2200"`
	Location string `json:"location" validate:"min=2,max=100"`
	Tags     string `json:"tags"`
}

// Profile is the edit profile form.
type Profile struct {
	Name     string `json:"name" validate:"min=2"`
	Username string `json:"username" validate:"min=2"`
	Email    string `json:"email" validate:"required,email"`
	Bio      string `json:"bio" validate:"max=2200"`
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates one of the form types and returns a VALIDATION_ERROR
// AppError carrying one message per failing field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return models.NewFieldValidationError(fields)
}

func message(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Invalid email."
	case "min":
		return fmt.Sprintf("%s must contain at least %s character(s).", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s character(s).", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}
