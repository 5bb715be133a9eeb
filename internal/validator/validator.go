// Package validator provides custom validation functions for Gin's binding
// engine and translates validation failures into field-keyed API errors.
package validator

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	apperrors "expensetracker/internal/errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// iconRegex matches Material Icons names such as "shopping_cart".
var iconRegex = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// standalone checks values outside of request binding.
var standalone = validator.New()

// Email reports whether s is a well-formed email address.
func Email(s string) bool {
	return standalone.Var(s, "required,email") == nil
}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("ymd", validateYMD)
		_ = v.RegisterValidation("icon", validateIcon)
	}
}

func validateYMD(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateIcon(fl validator.FieldLevel) bool {
	return iconRegex.MatchString(fl.Field().String())
}

// jsonFieldName reports fields by their JSON name so error keys match the
// request body.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Translate converts a binding error into an AppError. Validation failures
// become a field-keyed 422; malformed bodies become INVALID_INPUT.
func Translate(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], message(fe))
		}
		return apperrors.ValidationFields(fields)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.Validation(typeErr.Field, "has the wrong type")
	}

	return apperrors.Wrap(apperrors.ErrInvalidInput, err)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return apperrors.MsgBlank
	case "email":
		return "is invalid"
	case "min":
		return "is too short (minimum is " + fe.Param() + " characters)"
	case "max":
		return "is too long (maximum is " + fe.Param() + " characters)"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "ymd":
		return "must be a date in YYYY-MM-DD format"
	case "icon":
		return "is not a known icon"
	case "eqfield":
		return "doesn't match " + fe.Param()
	default:
		return "is invalid"
	}
}
