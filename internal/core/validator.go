package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"rentroll/internal/types"
)

// Validator wraps go-playground/validator with the domain-specific rules of
// the rental API and translates validation failures into structured
// AppErrors with per-field details.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// payment_method restricts a field to the known payment methods.
	// The registration only fails for an empty tag name, so the error is
	// ignored.
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		val := types.PaymentMethod(fl.Field().String())
		for _, m := range types.AllPaymentMethods {
			if val == m {
				return true
			}
		}
		return false
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct applies the struct's validation tags. On failure it returns
// a *types.AppError with code "validation_invalid_field" carrying a
// field->rule detail map; any non-validation error surfaces as an internal
// error.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		v.logger.Error("validator returned non-validation error", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fieldName(fe)] = ruleDescription(fe)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidField,
		"one or more fields failed validation",
		nil,
		details,
	)
}

// fieldName derives the client-facing field name from a validation error.
// Namespaces like "CreateContractRequest.PaymentDay" reduce to the JSON-ish
// snake form of the final segment.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	return toSnake(name)
}

// ruleDescription renders a failed rule into a short human-readable message.
func ruleDescription(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " items or characters"
	case "max":
		return "must have at most " + fe.Param() + " items or characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "payment_method":
		return "must be a valid payment method"
	default:
		return "failed rule: " + fe.Tag()
	}
}

// toSnake converts a Go field name to snake_case for error details. Runs of
// capitals ("PropertyID") are treated as one word segment.
func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
