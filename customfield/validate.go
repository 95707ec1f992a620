package customfield

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	nameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	reservedNames = map[string]bool{
		"id":           true,
		"createdAt":    true,
		"updatedAt":    true,
		"customFields": true,
	}
)

// Validate checks every declaration and returns a joined error listing
// all problems found, or nil.
func (f Fields) Validate() error {
	var errs []error
	for _, entity := range f.Entities() {
		if !IsCustomizable(entity) {
			errs = append(errs, fmt.Errorf("customfield: %s: entity does not support custom fields", entity))
			continue
		}
		seen := make(map[string]bool, len(f[entity]))
		for _, cfg := range f[entity] {
			if cfg.Name != "" && seen[cfg.Name] {
				errs = append(errs, fmt.Errorf("customfield: %s.%s: duplicate field name", entity, cfg.Name))
				continue
			}
			seen[cfg.Name] = true
			for _, err := range cfg.problems() {
				errs = append(errs, fmt.Errorf("customfield: %s.%s: %w", entity, cfg.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c Config) problems() []error {
	var errs []error
	switch {
	case c.Name == "":
		errs = append(errs, errors.New("name is required"))
	case !nameRE.MatchString(c.Name):
		errs = append(errs, errors.New("name must be a valid GraphQL identifier"))
	case reservedNames[c.Name]:
		errs = append(errs, errors.New("name is reserved"))
	}

	if !c.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown type %q", c.Type))
		return errs
	}

	if !c.Type.shortString() {
		if c.Pattern != "" {
			errs = append(errs, fmt.Errorf("pattern is not supported on type %s", c.Type))
		}
		if len(c.Options) > 0 {
			errs = append(errs, fmt.Errorf("options are not supported on type %s", c.Type))
		}
	}
	if c.Pattern != "" {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid pattern: %w", err))
		}
	}
	if c.Length < 0 {
		errs = append(errs, errors.New("length must not be negative"))
	}

	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		errs = append(errs, fmt.Errorf("min %v is greater than max %v", *c.Min, *c.Max))
	}
	if c.Step != nil && *c.Step <= 0 {
		errs = append(errs, errors.New("step must be positive"))
	}

	minDate, err := parseBound(c.MinDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("minDate: %w", err))
	}
	maxDate, err := parseBound(c.MaxDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("maxDate: %w", err))
	}
	if !minDate.IsZero() && !maxDate.IsZero() && minDate.After(maxDate) {
		errs = append(errs, errors.New("minDate is after maxDate"))
	}

	if c.Type == TypeRelation && c.Entity == "" {
		errs = append(errs, errors.New("relation requires an entity"))
	}

	if c.DefaultValue != nil && len(errs) == 0 {
		candidate := c
		candidate.ReadOnly = false
		candidate.Validate = nil
		if err := ValidateValue(context.Background(), candidate, c.DefaultValue, ""); err != nil {
			errs = append(errs, fmt.Errorf("default value: %w", err))
		}
	}
	return errs
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
