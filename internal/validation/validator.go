// Package validation checks intents and request bodies with validator/v10 and converts failures to domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/critiqapp/critiq-sync/internal/domain"
	domainerrors "github.com/critiqapp/critiq-sync/internal/errors"
)

// MaxEntityIDLength bounds entity identifiers accepted by the engine.
const MaxEntityIDLength = 128

var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the entityid and hiddenreason rules registered.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("entityid", func(fl validator.FieldLevel) bool {
		return ValidEntityID(fl.Field().String())
	})
	_ = v.RegisterValidation("hiddenreason", func(fl validator.FieldLevel) bool {
		return domain.HiddenReason(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// ValidEntityID reports whether id is a well-formed entity identifier.
func ValidEntityID(id string) bool {
	return len(id) <= MaxEntityIDLength && entityIDPattern.MatchString(id)
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err, "")
	}
	return nil
}

// Var validates a single value against tag, reporting failures under name.
func (v *Validator) Var(value any, tag, name string) error {
	if err := v.v.Var(value, tag); err != nil {
		return v.formatError(err, name)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error, name string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		field := e.Field()
		if field == "" {
			field = name
		}
		fieldErrors[field] = v.friendlyMessage(e)
	}

	if name != "" {
		return domainerrors.ValidationWithDetails(name+" "+fieldErrors[name], fieldErrors)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "entityid":
		return fmt.Sprintf("must be 1-%d letters, digits, '-' or '_'", MaxEntityIDLength)
	case "hiddenreason":
		return "must be one of: user_hidden spam harassment inappropriate misinformation other"
	default:
		return "is invalid"
	}
}
