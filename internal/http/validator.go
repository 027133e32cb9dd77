package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"salvadanaio/internal/core"
)

// CustomValidator checks decoded request bodies against their struct tags.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds a go-playground validator that reports JSON field
// names and understands the "amount" tag.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

// Validate runs the struct tag checks on i.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// validationOutcome turns validator errors into the outcome shown to the user.
// A bad amount reads the same as one rejected by the engine.
func validationOutcome(err error) core.Outcome {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return core.Failure("Invalid request", "%v", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "amount" {
			return core.OutcomeFromError(core.ErrInvalidAmount)
		}
		problems = append(problems, describeFieldError(fe))
	}
	return core.Failure("Invalid request", "%s", strings.Join(problems, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte", "lte", "min":
		return fmt.Sprintf("%s is out of range (%s %s)", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
