package customfield_test

import (
	"strings"
	"testing"

	"github.com/xraph/plaza/customfield"
)

func TestFieldsValidateOK(t *testing.T) {
	f := customfield.Fields{}
	f.Add(customfield.Product,
		customfield.Config{Name: "weight", Type: customfield.TypeInt, Min: customfield.Float(0), Max: customfield.Float(1000)},
		customfield.Config{Name: "tags", Type: customfield.TypeString, List: true},
		customfield.Config{Name: "color", Type: customfield.TypeString, Options: []customfield.StringOption{{Value: "red"}, {Value: "blue"}}, DefaultValue: "red"},
		customfield.Config{Name: "featuredAsset2", Type: customfield.TypeRelation, Entity: "Asset"},
		customfield.Config{Name: "launch", Type: customfield.TypeDateTime, MinDate: "2020-01-01T00:00:00Z"},
	)
	f.Add(customfield.Customer, customfield.Config{Name: "nickname", Type: customfield.TypeLocaleString})

	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFieldsValidateProblems(t *testing.T) {
	tests := []struct {
		name   string
		entity customfield.EntityName
		cfgs   []customfield.Config
		want   string
	}{
		{"unknown entity", "Widget", []customfield.Config{{Name: "a", Type: customfield.TypeString}}, "does not support custom fields"},
		{"empty name", customfield.Product, []customfield.Config{{Type: customfield.TypeString}}, "name is required"},
		{"invalid name", customfield.Product, []customfield.Config{{Name: "1abc", Type: customfield.TypeString}}, "valid GraphQL identifier"},
		{"reserved name", customfield.Product, []customfield.Config{{Name: "id", Type: customfield.TypeString}}, "reserved"},
		{"duplicate", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeString}, {Name: "a", Type: customfield.TypeInt}}, "duplicate field name"},
		{"unknown type", customfield.Product, []customfield.Config{{Name: "a", Type: "money"}}, `unknown type "money"`},
		{"pattern on int", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeInt, Pattern: "x"}}, "pattern is not supported"},
		{"options on text", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeText, Options: []customfield.StringOption{{Value: "x"}}}}, "options are not supported"},
		{"bad regex", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeString, Pattern: "("}}, "invalid pattern"},
		{"min over max", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeFloat, Min: customfield.Float(5), Max: customfield.Float(1)}}, "greater than max"},
		{"bad date", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeDateTime, MinDate: "yesterday"}}, "minDate"},
		{"relation no entity", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeRelation}}, "relation requires an entity"},
		{"bad default", customfield.Product, []customfield.Config{{Name: "a", Type: customfield.TypeInt, Max: customfield.Float(3), DefaultValue: 10}}, "default value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := customfield.Fields{}
			f.Add(tt.entity, tt.cfgs...)
			err := f.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestFieldsValidateJoinsAllProblems(t *testing.T) {
	f := customfield.Fields{}
	f.Add(customfield.Order,
		customfield.Config{Name: "createdAt", Type: customfield.TypeString},
		customfield.Config{Name: "x", Type: "nope"},
	)
	err := f.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"Order.createdAt", "Order.x"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestReadOnlyDefaultIsAccepted(t *testing.T) {
	f := customfield.Fields{}
	f.Add(customfield.Product, customfield.Config{Name: "syncedAt", Type: customfield.TypeString, ReadOnly: true, DefaultValue: "never"})
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFieldsHelpers(t *testing.T) {
	f := customfield.Fields{}
	f.Add(customfield.Product, customfield.Config{Name: "a", Type: customfield.TypeString})
	f.Add(customfield.Address, customfield.Config{Name: "b", Type: customfield.TypeInt})
	f[customfield.Zone] = nil

	got := f.Entities()
	if len(got) != 2 || got[0] != customfield.Address || got[1] != customfield.Product {
		t.Errorf("Entities() = %v, want [Address Product]", got)
	}
	if _, ok := f.Find(customfield.Product, "a"); !ok {
		t.Error("Find(Product, a) not found")
	}
	if _, ok := f.Find(customfield.Product, "b"); ok {
		t.Error("Find(Product, b) should not be found")
	}

	clone := f.Clone()
	clone.Add(customfield.Product, customfield.Config{Name: "c", Type: customfield.TypeString})
	if len(f.Get(customfield.Product)) != 1 {
		t.Errorf("Clone shares storage with original")
	}
}

func TestIsCustomizable(t *testing.T) {
	if !customfield.IsCustomizable(customfield.ProductVariant) {
		t.Error("ProductVariant should be customizable")
	}
	if customfield.IsCustomizable("Widget") {
		t.Error("Widget should not be customizable")
	}
	if n := len(customfield.Entities()); n != 27 {
		t.Errorf("Entities() has %d entries, want 27", n)
	}
}
