package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"streetcrime/internal/types"
)

// Validator wraps go-playground/validator with the service's custom tags.
//
// Registered tags:
//   - period: a "YYYY-MM" month string.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers custom tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("period", validatePeriod); err != nil {
		logger.Error("failed to register period validator", "error", err)
	}
	return &Validator{validate: v, logger: logger}
}

func validatePeriod(fl validator.FieldLevel) bool {
	_, err := types.ParsePeriod(fl.Field().String())
	return err == nil
}

// Struct validates s. Failures come back as a validation AppError whose
// details map each offending query parameter to the rule it broke. A
// malformed period gets its own code.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	code := types.ErrCodeValidationInvalidQuery
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
		switch fe.Tag() {
		case "period":
			code = types.ErrCodeValidationInvalidPeriod
		case "required":
			if code == types.ErrCodeValidationInvalidQuery {
				code = types.ErrCodeValidationMissingField
			}
		}
	}

	return types.NewAppErrorWithDetails(code, "invalid query parameters", err, map[string]any{"fields": fields})
}
