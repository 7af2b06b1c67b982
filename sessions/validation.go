package sessions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Limits mirror the server's request models.
const (
	MinFullNameLength = 2
	MinPasswordLength = 6
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

var fieldLabels = map[string]string{
	"username":  "Email",
	"email":     "Email",
	"full_name": "Full name",
	"password":  "Password",
	"confirm":   "Password confirmation",
	"token":     "Reset token",
}

type loginForm struct {
	Identifier string `form:"username" validate:"required"`
	Password   string `form:"password" validate:"required"`
}

type registerForm struct {
	Email    string `form:"email" validate:"required,email"`
	FullName string `form:"full_name" validate:"required,min=2"`
	Password string `form:"password" validate:"required,min=6"`
}

type forgotForm struct {
	Email string `form:"email" validate:"required,email"`
}

type resetForm struct {
	Token    string `form:"token" validate:"required"`
	Password string `form:"password" validate:"required,min=6"`
}

func ValidateLogin(identifier, password string) error {
	return check(loginForm{Identifier: strings.TrimSpace(identifier), Password: password})
}

func ValidateRegistration(email, fullName, password string) error {
	return check(registerForm{Email: strings.TrimSpace(email), FullName: strings.TrimSpace(fullName), Password: password})
}

func ValidateEmail(email string) error {
	return check(forgotForm{Email: strings.TrimSpace(email)})
}

// ValidatePasswordReset checks the reset form, including that the two
// password fields agree.
func ValidatePasswordReset(resetToken, password, confirm string) error {
	if err := check(resetForm{Token: strings.TrimSpace(resetToken), Password: password}); err != nil {
		return err
	}
	if confirm == "" {
		return &ValidationError{Field: "confirm", Message: "Password confirmation is required"}
	}
	if password != confirm {
		return &ValidationError{Field: "confirm", Message: "Passwords do not match"}
	}
	return nil
}

// check validates form and reports the first failing field.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("[sessions check] %w", err)
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
