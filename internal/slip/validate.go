package slip

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	monthPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{4}$`)
	validate     = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// decimals validate as float magnitudes so gte/lte tags apply
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		return monthPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		return Rating(fl.Field().String()).Valid()
	})
	return v
}

// ValidationError reports which fields of a slip or profile were rejected.
type ValidationError struct {
	Fields map[string]string // field -> failed rule
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range sortedKeys(e.Fields) {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, e.Fields[name]))
	}
	return "invalid " + strings.Join(parts, ", ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}

// ValidMonth reports whether s is formatted MM/YYYY.
func ValidMonth(s string) bool { return monthPattern.MatchString(s) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
