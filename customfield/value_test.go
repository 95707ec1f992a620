package customfield_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/xraph/plaza/customfield"
)

func TestValidateValue(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      customfield.Config
		value    any
		wantCode string
	}{
		{"readonly", customfield.Config{Name: "f", Type: customfield.TypeString, ReadOnly: true}, "x", customfield.CodeReadOnly},
		{"nullable nil", customfield.Config{Name: "f", Type: customfield.TypeString}, nil, ""},
		{"required nil", customfield.Config{Name: "f", Type: customfield.TypeString, Nullable: customfield.Bool(false)}, nil, customfield.CodeRequired},
		{"string ok", customfield.Config{Name: "f", Type: customfield.TypeString}, "hello", ""},
		{"string wrong type", customfield.Config{Name: "f", Type: customfield.TypeString}, 3, customfield.CodeType},
		{"pattern ok", customfield.Config{Name: "f", Type: customfield.TypeString, Pattern: `^[A-Z]{3}$`}, "ABC", ""},
		{"pattern fail", customfield.Config{Name: "f", Type: customfield.TypeString, Pattern: `^[A-Z]{3}$`}, "abcd", customfield.CodePattern},
		{"option ok", customfield.Config{Name: "f", Type: customfield.TypeString, Options: []customfield.StringOption{{Value: "s"}, {Value: "m"}}}, "m", ""},
		{"option fail", customfield.Config{Name: "f", Type: customfield.TypeString, Options: []customfield.StringOption{{Value: "s"}, {Value: "m"}}}, "xl", customfield.CodeOption},
		{"length fail", customfield.Config{Name: "f", Type: customfield.TypeString, Length: 3}, "abcd", customfield.CodeLength},
		{"default length", customfield.Config{Name: "f", Type: customfield.TypeString}, strings.Repeat("a", 256), customfield.CodeLength},
		{"text unbounded", customfield.Config{Name: "f", Type: customfield.TypeText}, strings.Repeat("a", 5000), ""},
		{"int ok", customfield.Config{Name: "f", Type: customfield.TypeInt}, 42, ""},
		{"int from json float", customfield.Config{Name: "f", Type: customfield.TypeInt}, float64(42), ""},
		{"int fractional", customfield.Config{Name: "f", Type: customfield.TypeInt}, 4.2, customfield.CodeType},
		{"int json number", customfield.Config{Name: "f", Type: customfield.TypeInt, Max: customfield.Float(10)}, json.Number("11"), customfield.CodeNumberMax},
		{"float below min", customfield.Config{Name: "f", Type: customfield.TypeFloat, Min: customfield.Float(0.5)}, 0.1, customfield.CodeNumberMin},
		{"float above max", customfield.Config{Name: "f", Type: customfield.TypeFloat, Max: customfield.Float(1)}, 1.5, customfield.CodeNumberMax},
		{"number wrong type", customfield.Config{Name: "f", Type: customfield.TypeFloat}, "1.5", customfield.CodeType},
		{"bool ok", customfield.Config{Name: "f", Type: customfield.TypeBoolean}, true, ""},
		{"bool wrong type", customfield.Config{Name: "f", Type: customfield.TypeBoolean}, "true", customfield.CodeType},
		{"datetime string", customfield.Config{Name: "f", Type: customfield.TypeDateTime}, "2024-05-01T10:00:00Z", ""},
		{"datetime time", customfield.Config{Name: "f", Type: customfield.TypeDateTime}, time.Now(), ""},
		{"datetime malformed", customfield.Config{Name: "f", Type: customfield.TypeDateTime}, "May 1st", customfield.CodeType},
		{"datetime before min", customfield.Config{Name: "f", Type: customfield.TypeDateTime, MinDate: "2024-01-01T00:00:00Z"}, "2023-12-31T23:59:59Z", customfield.CodeDateTimeMin},
		{"datetime after max", customfield.Config{Name: "f", Type: customfield.TypeDateTime, MaxDate: "2024-01-01T00:00:00Z"}, "2024-01-02T00:00:00Z", customfield.CodeDateTimeMax},
		{"relation id", customfield.Config{Name: "f", Type: customfield.TypeRelation, Entity: "Asset"}, "T_1", ""},
		{"relation object", customfield.Config{Name: "f", Type: customfield.TypeRelation, Entity: "Asset"}, map[string]any{"id": "T_1"}, ""},
		{"relation empty", customfield.Config{Name: "f", Type: customfield.TypeRelation, Entity: "Asset"}, "", customfield.CodeType},
		{"list ok", customfield.Config{Name: "f", Type: customfield.TypeInt, List: true, Max: customfield.Float(10)}, []any{1, 2, 3}, ""},
		{"list typed slice", customfield.Config{Name: "f", Type: customfield.TypeString, List: true}, []string{"a", "b"}, ""},
		{"list item fails", customfield.Config{Name: "f", Type: customfield.TypeInt, List: true, Max: customfield.Float(10)}, []any{1, 20}, customfield.CodeNumberMax},
		{"list not slice", customfield.Config{Name: "f", Type: customfield.TypeInt, List: true}, 1, customfield.CodeType},
		{"list null item", customfield.Config{Name: "f", Type: customfield.TypeInt, List: true}, []any{nil}, customfield.CodeType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := customfield.ValidateValue(ctx, tt.cfg, tt.value, "en")
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *customfield.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Code != tt.wantCode {
				t.Errorf("code = %q, want %q (%s)", ve.Code, tt.wantCode, ve.Message)
			}
			if ve.Field != "f" {
				t.Errorf("field = %q, want %q", ve.Field, "f")
			}
		})
	}
}

func TestValidateValueSentinels(t *testing.T) {
	ctx := context.Background()
	err := customfield.ValidateValue(ctx, customfield.Config{Name: "f", Type: customfield.TypeInt, ReadOnly: true}, 1, "")
	if !errors.Is(err, customfield.ErrReadOnly) {
		t.Errorf("errors.Is(err, ErrReadOnly) = false, err = %v", err)
	}
	err = customfield.ValidateValue(ctx, customfield.Config{Name: "f", Type: customfield.TypeInt, Nullable: customfield.Bool(false)}, nil, "")
	if !errors.Is(err, customfield.ErrRequired) {
		t.Errorf("errors.Is(err, ErrRequired) = false, err = %v", err)
	}
}

func TestValidateValueCustomValidator(t *testing.T) {
	ctx := context.Background()
	cfg := customfield.Config{
		Name: "sku",
		Type: customfield.TypeString,
		Validate: func(_ context.Context, v any) error {
			if strings.HasPrefix(v.(string), "SKU-") {
				return nil
			}
			return &customfield.LocalizedError{Messages: []customfield.LocalizedString{
				{LanguageCode: "en", Value: "must start with SKU-"},
				{LanguageCode: "de", Value: "muss mit SKU- beginnen"},
			}}
		},
	}

	if err := customfield.ValidateValue(ctx, cfg, "SKU-1", "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := customfield.ValidateValue(ctx, cfg, "1", "de")
	var ve *customfield.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if ve.Code != customfield.CodeCustom {
		t.Errorf("code = %q, want %q", ve.Code, customfield.CodeCustom)
	}
	if ve.Message != "muss mit SKU- beginnen" {
		t.Errorf("message = %q, want German message", ve.Message)
	}

	cfg.Validate = func(context.Context, any) error { return errors.New("plain failure") }
	err = customfield.ValidateValue(ctx, cfg, "x", "de")
	if !errors.As(err, &ve) || ve.Message != "plain failure" {
		t.Errorf("error = %v, want plain failure message", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfgs := []customfield.Config{
		{Name: "color", Type: customfield.TypeString, DefaultValue: "red"},
		{Name: "tags", Type: customfield.TypeString, List: true},
		{Name: "note", Type: customfield.TypeText},
		{Name: "weight", Type: customfield.TypeInt, DefaultValue: 1},
	}
	in := map[string]any{"weight": 5}

	got := customfield.ApplyDefaults(cfgs, in)
	want := map[string]any{
		"color":  "red",
		"tags":   []any{},
		"note":   nil,
		"weight": 5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ApplyDefaults mismatch (-want +got):\n%s", diff)
	}
	if len(in) != 1 {
		t.Errorf("ApplyDefaults mutated its input: %v", in)
	}
}

func TestValidateValues(t *testing.T) {
	ctx := context.Background()
	cfgs := []customfield.Config{
		{Name: "a", Type: customfield.TypeInt},
		{Name: "b", Type: customfield.TypeBoolean},
	}
	if err := customfield.ValidateValues(ctx, cfgs, map[string]any{"a": 1, "b": false}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := customfield.ValidateValues(ctx, cfgs, map[string]any{"a": 1, "zzz": 2}, "")
	var ve *customfield.ValidationError
	if !errors.As(err, &ve) || ve.Field != "zzz" {
		t.Errorf("error = %v, want unknown field zzz", err)
	}
}

func TestVisible(t *testing.T) {
	cfgs := []customfield.Config{
		{Name: "pub", Type: customfield.TypeString},
		{Name: "priv", Type: customfield.TypeString, Public: customfield.Bool(false)},
		{Name: "internal", Type: customfield.TypeString, Internal: true},
	}
	names := func(cs []customfield.Config) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Name)
		}
		return out
	}
	if diff := cmp.Diff([]string{"pub"}, names(customfield.Visible(cfgs, true))); diff != "" {
		t.Errorf("shop visibility (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pub", "priv"}, names(customfield.Visible(cfgs, false))); diff != "" {
		t.Errorf("admin visibility (-want +got):\n%s", diff)
	}
}
