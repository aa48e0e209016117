package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nexus-console/nexus-console/internal/rbac"
)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := rbac.ParseRole(fl.Field().String())
		return ok
	})
	return v
}

func validateForm(form any) error {
	return formValidator.Struct(form)
}

// fieldFailed reports whether err names a failed validation on field.
func fieldFailed(err error, field string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == field {
			return true
		}
	}
	return false
}

type rolesForm struct {
	Roles []string `validate:"dive,role"`
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
