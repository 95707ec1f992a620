package customfield

import (
	"context"
	"slices"
	"sort"
)

// Type is the data type of a custom field.
type Type string

const (
	TypeString       Type = "string"
	TypeLocaleString Type = "localeString"
	TypeText         Type = "text"
	TypeLocaleText   Type = "localeText"
	TypeInt          Type = "int"
	TypeFloat        Type = "float"
	TypeBoolean      Type = "boolean"
	TypeDateTime     Type = "datetime"
	TypeRelation     Type = "relation"
)

// DefaultStringLength is the maximum length of string and localeString
// values when Config.Length is zero.
const DefaultStringLength = 255

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeLocaleString, TypeText, TypeLocaleText,
		TypeInt, TypeFloat, TypeBoolean, TypeDateTime, TypeRelation:
		return true
	}
	return false
}

// Localized reports whether values of this type are stored per language.
func (t Type) Localized() bool {
	return t == TypeLocaleString || t == TypeLocaleText
}

// shortString reports whether t is a bounded string that supports
// pattern, options and length.
func (t Type) shortString() bool {
	return t == TypeString || t == TypeLocaleString
}

func (t Type) numeric() bool {
	return t == TypeInt || t == TypeFloat
}

// LocalizedString is a value in a single language.
type LocalizedString struct {
	LanguageCode string `json:"languageCode" yaml:"languageCode"`
	Value        string `json:"value" yaml:"value"`
}

// Pick returns the value for languageCode, falling back to the first entry.
func Pick(ls []LocalizedString, languageCode string) string {
	for _, l := range ls {
		if l.LanguageCode == languageCode {
			return l.Value
		}
	}
	if len(ls) > 0 {
		return ls[0].Value
	}
	return ""
}

// StringOption is one allowed value of a string field with options.
type StringOption struct {
	Value string            `json:"value" yaml:"value"`
	Label []LocalizedString `json:"label,omitempty" yaml:"label,omitempty"`
}

// Validator is a custom value check. Returning a *LocalizedError lets the
// message follow the caller's language.
type Validator func(ctx context.Context, value any) error

// Config declares a single custom field.
type Config struct {
	Name        string            `json:"name" yaml:"name"`
	Type        Type              `json:"type" yaml:"type"`
	List        bool              `json:"list,omitempty" yaml:"list,omitempty"`
	Label       []LocalizedString `json:"label,omitempty" yaml:"label,omitempty"`
	Description []LocalizedString `json:"description,omitempty" yaml:"description,omitempty"`

	// Nullable defaults to true when unset.
	Nullable     *bool `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	DefaultValue any   `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`

	// Public defaults to true when unset. Non-public fields are hidden
	// from the shop API.
	Public *bool `json:"public,omitempty" yaml:"public,omitempty"`

	// ReadOnly fields cannot be written through the API.
	ReadOnly bool `json:"readonly,omitempty" yaml:"readonly,omitempty"`

	// Internal fields are never exposed by any API.
	Internal bool `json:"internal,omitempty" yaml:"internal,omitempty"`

	Unique             bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
	RequiresPermission []string `json:"requiresPermission,omitempty" yaml:"requiresPermission,omitempty"`

	// string / localeString
	Pattern string         `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Options []StringOption `json:"options,omitempty" yaml:"options,omitempty"`
	Length  int            `json:"length,omitempty" yaml:"length,omitempty"`

	// int / float
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step *float64 `json:"step,omitempty" yaml:"step,omitempty"`

	// datetime, RFC 3339
	MinDate string `json:"minDate,omitempty" yaml:"minDate,omitempty"`
	MaxDate string `json:"maxDate,omitempty" yaml:"maxDate,omitempty"`

	// relation
	Entity      string `json:"entity,omitempty" yaml:"entity,omitempty"`
	GraphQLType string `json:"graphQLType,omitempty" yaml:"graphQLType,omitempty"`
	Eager       bool   `json:"eager,omitempty" yaml:"eager,omitempty"`

	Validate Validator `json:"-" yaml:"-"`
}

// IsNullable reports whether the field accepts null.
func (c Config) IsNullable() bool { return c.Nullable == nil || *c.Nullable }

// IsPublic reports whether the field is visible to the shop API.
func (c Config) IsPublic() bool { return c.Public == nil || *c.Public }

// MaxLength returns the effective maximum length for bounded string types,
// or zero when the type is unbounded.
func (c Config) MaxLength() int {
	if !c.Type.shortString() {
		return 0
	}
	if c.Length > 0 {
		return c.Length
	}
	return DefaultStringLength
}

// Bool returns a pointer to b, for Nullable and Public.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to f, for Min, Max and Step.
func Float(f float64) *float64 { return &f }

// Fields maps each entity to its declared custom fields.
type Fields map[EntityName][]Config

// Add appends field declarations for an entity.
func (f Fields) Add(entity EntityName, cfgs ...Config) {
	f[entity] = append(f[entity], cfgs...)
}

// Get returns the declarations for an entity.
func (f Fields) Get(entity EntityName) []Config { return f[entity] }

// Find looks up a single field.
func (f Fields) Find(entity EntityName, name string) (Config, bool) {
	i := slices.IndexFunc(f[entity], func(c Config) bool { return c.Name == name })
	if i < 0 {
		return Config{}, false
	}
	return f[entity][i], true
}

// Entities returns the entities that declare at least one field, sorted.
func (f Fields) Entities() []EntityName {
	out := make([]EntityName, 0, len(f))
	for e, cfgs := range f {
		if len(cfgs) > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a copy that can be mutated independently.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for e, cfgs := range f {
		out[e] = slices.Clone(cfgs)
	}
	return out
}

// Visible filters out internal fields and, when publicOnly is set,
// fields hidden from the shop API.
func Visible(cfgs []Config, publicOnly bool) []Config {
	out := make([]Config, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Internal {
			continue
		}
		if publicOnly && !c.IsPublic() {
			continue
		}
		out = append(out, c)
	}
	return out
}
