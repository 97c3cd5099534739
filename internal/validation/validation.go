package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	MinHoldMinutes   = 1
	MaxHoldMinutes   = 2160
	MaxCutoffMinutes = 1440
)

var validate = newValidator()

// newValidator reports fields by their form name so messages match the submitted inputs.
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

// UUID checks that value is a canonical RFC 4122 identifier (versions 1-5).
func UUID(value, label string) error {
	u, err := uuid.Parse(value)
	if err != nil || len(value) != 36 || u.Variant() != uuid.RFC4122 || u.Version() < 1 || u.Version() > 5 {
		return &domain.ValidationError{Field: label, Message: fmt.Sprintf("invalid %s: %q", label, value)}
	}
	return nil
}

func HoldMinutes(n int) error {
	if n < MinHoldMinutes || n > MaxHoldMinutes {
		return domain.NewValidationError("hold_minutes", "must be between %d and %d", MinHoldMinutes, MaxHoldMinutes)
	}
	return nil
}

func SeatCount(n int) error {
	if n < 1 {
		return domain.NewValidationError("seat_count", "must be >= 1")
	}
	return nil
}

func CutoffMinutes(n int) error {
	if n < 0 || n > MaxCutoffMinutes {
		return domain.NewValidationError("booking_cutoff_minutes", "must be between 0 and %d", MaxCutoffMinutes)
	}
	return nil
}

// Struct runs the validator tags of v and returns field -> message, or nil when valid.
func Struct(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range validationErrors {
			errs[fe.Field()] = message(fe)
		}
		return errs
	}
	errs["input"] = err.Error()
	return errs
}

// StructError is Struct folded into a single *domain.ValidationError.
func StructError(v any) error {
	errs := Struct(v)
	if len(errs) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: Format(errs)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid", "uuid_rfc4122":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// Format joins field errors in a stable order.
func Format(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s %s", f, errs[f]))
	}
	return strings.Join(msgs, "; ")
}
