package customfield

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"
)

// Validation error codes.
const (
	CodeReadOnly    = "field-invalid-readonly"
	CodeRequired    = "field-required"
	CodePattern     = "field-invalid-string-pattern"
	CodeOption      = "field-invalid-string-option"
	CodeLength      = "field-invalid-string-length"
	CodeNumberMin   = "field-invalid-number-range-min"
	CodeNumberMax   = "field-invalid-number-range-max"
	CodeDateTimeMin = "field-invalid-datetime-range-min"
	CodeDateTimeMax = "field-invalid-datetime-range-max"
	CodeType        = "field-invalid-type"
	CodeCustom      = "field-invalid-custom"
)

var (
	// ErrReadOnly is matched by validation errors with CodeReadOnly.
	ErrReadOnly = errors.New("customfield: field is read-only")

	// ErrRequired is matched by validation errors with CodeRequired.
	ErrRequired = errors.New("customfield: value is required")
)

// ValidationError describes a value that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("customfield %q: %s", e.Field, e.Message)
}

// Is lets errors.Is match ErrReadOnly and ErrRequired.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrReadOnly:
		return e.Code == CodeReadOnly
	case ErrRequired:
		return e.Code == CodeRequired
	}
	return false
}

// LocalizedError is returned by custom validators that provide a message
// per language.
type LocalizedError struct {
	Messages []LocalizedString
}

func (e *LocalizedError) Error() string { return Pick(e.Messages, "en") }

// ValidateValue checks value against cfg. languageCode selects the message
// of a *LocalizedError returned by the custom validator.
func ValidateValue(ctx context.Context, cfg Config, value any, languageCode string) error {
	if cfg.ReadOnly {
		return invalid(cfg, CodeReadOnly, "the field is read-only")
	}
	if isNil(value) {
		if !cfg.IsNullable() {
			return invalid(cfg, CodeRequired, "a value is required")
		}
		return nil
	}

	if cfg.List {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return invalid(cfg, CodeType, fmt.Sprintf("expected a list, got %T", value))
		}
		for i := range rv.Len() {
			if err := validateScalar(cfg, rv.Index(i).Interface()); err != nil {
				var ve *ValidationError
				if errors.As(err, &ve) {
					ve.Message = fmt.Sprintf("item %d: %s", i, ve.Message)
				}
				return err
			}
		}
	} else if err := validateScalar(cfg, value); err != nil {
		return err
	}

	if cfg.Validate != nil {
		if err := cfg.Validate(ctx, value); err != nil {
			msg := err.Error()
			var le *LocalizedError
			if errors.As(err, &le) {
				msg = Pick(le.Messages, languageCode)
			}
			return invalid(cfg, CodeCustom, msg)
		}
	}
	return nil
}

func validateScalar(cfg Config, value any) error {
	if isNil(value) {
		return invalid(cfg, CodeType, "list items must not be null")
	}
	switch cfg.Type {
	case TypeString, TypeLocaleString, TypeText, TypeLocaleText:
		s, ok := value.(string)
		if !ok {
			return invalid(cfg, CodeType, fmt.Sprintf("expected a string, got %T", value))
		}
		return validateString(cfg, s)

	case TypeInt, TypeFloat:
		n, ok := toFloat(value)
		if !ok {
			return invalid(cfg, CodeType, fmt.Sprintf("expected a number, got %T", value))
		}
		if cfg.Type == TypeInt && n != math.Trunc(n) {
			return invalid(cfg, CodeType, fmt.Sprintf("expected an integer, got %v", n))
		}
		if cfg.Min != nil && n < *cfg.Min {
			return invalid(cfg, CodeNumberMin, fmt.Sprintf("value %v is less than the minimum of %v", n, *cfg.Min))
		}
		if cfg.Max != nil && n > *cfg.Max {
			return invalid(cfg, CodeNumberMax, fmt.Sprintf("value %v is greater than the maximum of %v", n, *cfg.Max))
		}

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return invalid(cfg, CodeType, fmt.Sprintf("expected a boolean, got %T", value))
		}

	case TypeDateTime:
		t, ok := toTime(value)
		if !ok {
			return invalid(cfg, CodeType, fmt.Sprintf("expected an RFC 3339 date-time, got %v", value))
		}
		if lo, err := parseBound(cfg.MinDate); err == nil && !lo.IsZero() && t.Before(lo) {
			return invalid(cfg, CodeDateTimeMin, fmt.Sprintf("date %s is before %s", t.Format(time.RFC3339), cfg.MinDate))
		}
		if hi, err := parseBound(cfg.MaxDate); err == nil && !hi.IsZero() && t.After(hi) {
			return invalid(cfg, CodeDateTimeMax, fmt.Sprintf("date %s is after %s", t.Format(time.RFC3339), cfg.MaxDate))
		}

	case TypeRelation:
		switch v := value.(type) {
		case string:
			if v == "" {
				return invalid(cfg, CodeType, "relation id must not be empty")
			}
		case map[string]any:
			if _, ok := v["id"]; !ok {
				return invalid(cfg, CodeType, "relation object has no id")
			}
		case fmt.Stringer:
		default:
			return invalid(cfg, CodeType, fmt.Sprintf("expected a relation id, got %T", value))
		}
	}
	return nil
}

func validateString(cfg Config, s string) error {
	if cfg.Pattern != "" {
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return invalid(cfg, CodePattern, fmt.Sprintf("invalid pattern %q", cfg.Pattern))
		}
		if !re.MatchString(s) {
			return invalid(cfg, CodePattern, fmt.Sprintf("value %q does not match pattern %q", s, cfg.Pattern))
		}
	}
	if len(cfg.Options) > 0 && cfg.Type.shortString() {
		if !slices.ContainsFunc(cfg.Options, func(o StringOption) bool { return o.Value == s }) {
			return invalid(cfg, CodeOption, fmt.Sprintf("value %q is not a valid option", s))
		}
	}
	if limit := cfg.MaxLength(); limit > 0 && utf8.RuneCountInString(s) > limit {
		return invalid(cfg, CodeLength, fmt.Sprintf("value exceeds the maximum length of %d", limit))
	}
	return nil
}

func invalid(cfg Config, code, msg string) error {
	return &ValidationError{Field: cfg.Name, Code: code, Message: msg}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
