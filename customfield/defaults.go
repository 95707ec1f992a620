package customfield

import (
	"context"
	"maps"
	"slices"
)

// ApplyDefaults returns a copy of values with every missing field set to its
// default. Lists without a default become empty, other fields without a
// default become nil.
func ApplyDefaults(cfgs []Config, values map[string]any) map[string]any {
	out := make(map[string]any, len(cfgs))
	maps.Copy(out, values)
	for _, c := range cfgs {
		if _, ok := out[c.Name]; ok {
			continue
		}
		switch {
		case c.DefaultValue != nil:
			out[c.Name] = c.DefaultValue
		case c.List:
			out[c.Name] = []any{}
		default:
			out[c.Name] = nil
		}
	}
	return out
}

// ValidateValues validates each provided value against its declaration, in
// field-name order. Unknown keys are rejected.
func ValidateValues(ctx context.Context, cfgs []Config, values map[string]any, languageCode string) error {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		i := slices.IndexFunc(cfgs, func(c Config) bool { return c.Name == name })
		if i < 0 {
			return &ValidationError{Field: name, Code: CodeType, Message: "unknown custom field"}
		}
		if err := ValidateValue(ctx, cfgs[i], values[name], languageCode); err != nil {
			return err
		}
	}
	return nil
}
