package customfield_test

import (
	"strings"
	"testing"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/xraph/plaza/customfield"
)

func sampleFields() customfield.Fields {
	f := customfield.Fields{}
	f.Add(customfield.Product,
		customfield.Config{Name: "weight", Type: customfield.TypeInt, Nullable: customfield.Bool(false)},
		customfield.Config{Name: "tags", Type: customfield.TypeString, List: true},
		customfield.Config{Name: "cost", Type: customfield.TypeFloat, Public: customfield.Bool(false)},
		customfield.Config{Name: "syncToken", Type: customfield.TypeString, Internal: true},
		customfield.Config{Name: "importedAt", Type: customfield.TypeDateTime, ReadOnly: true},
		customfield.Config{Name: "hero", Type: customfield.TypeRelation, Entity: "Asset"},
		customfield.Config{Name: "gallery", Type: customfield.TypeRelation, Entity: "Asset", List: true},
		customfield.Config{Name: "rating", Type: customfield.TypeInt, Nullable: customfield.Bool(false), DefaultValue: 3},
	)
	return f
}

func TestSDLAdmin(t *testing.T) {
	sdl := customfield.SDL(sampleFields(), customfield.SDLOptions{Inputs: true})

	for _, want := range []string{
		"type ProductCustomFields {",
		"  weight: Int!\n",
		"  tags: [String!]\n",
		"  cost: Float\n",
		"  importedAt: DateTime\n",
		"  hero: Asset\n",
		"  gallery: [Asset!]\n",
		"extend type Product {\n  customFields: ProductCustomFields\n}",
		"input CreateProductCustomFieldsInput {",
		"input UpdateProductCustomFieldsInput {",
		"  heroId: ID\n",
		"  galleryIds: [ID!]\n",
		"extend type Order {\n  customFields: JSON\n}",
	} {
		if !strings.Contains(sdl, want) {
			t.Errorf("SDL missing %q\n%s", want, sdl)
		}
	}
	if strings.Contains(sdl, "syncToken") {
		t.Error("internal field leaked into SDL")
	}

	create := section(sdl, "input CreateProductCustomFieldsInput {")
	if !strings.Contains(create, "  weight: Int!\n") {
		t.Errorf("required field should be non-null on create input:\n%s", create)
	}
	if !strings.Contains(create, "  rating: Int\n") {
		t.Errorf("field with default should be nullable on create input:\n%s", create)
	}
	if strings.Contains(create, "importedAt") {
		t.Errorf("readonly field present on create input:\n%s", create)
	}
	update := section(sdl, "input UpdateProductCustomFieldsInput {")
	if !strings.Contains(update, "  weight: Int\n") {
		t.Errorf("update input should be nullable:\n%s", update)
	}
}

func TestSDLShopHidesPrivate(t *testing.T) {
	sdl := customfield.SDL(sampleFields(), customfield.SDLOptions{PublicOnly: true})
	if strings.Contains(sdl, "cost") {
		t.Error("non-public field exposed to shop API")
	}
	if strings.Contains(sdl, "input Create") {
		t.Error("inputs generated without Inputs option")
	}
}

func TestSDLParses(t *testing.T) {
	var base strings.Builder
	base.WriteString("scalar DateTime\nscalar JSON\ntype Query { ok: Boolean }\n")
	for _, e := range customfield.Entities() {
		base.WriteString("type " + string(e) + " { id: ID! }\n")
	}

	sdl := customfield.SDL(sampleFields(), customfield.SDLOptions{Inputs: true})
	_, err := gqlparser.LoadSchema(
		&ast.Source{Name: "base.graphql", Input: base.String()},
		&ast.Source{Name: "custom-fields.graphql", Input: sdl},
	)
	if err != nil {
		t.Fatalf("generated SDL does not load: %v\n%s", err, sdl)
	}
}

func TestSDLDescriptionEscaping(t *testing.T) {
	desc := "Ships in \"gift\" wrap\a\v\\ café\n\ttab\x01"
	f := customfield.Fields{}
	f.Add(customfield.Product, customfield.Config{
		Name:        "giftNote",
		Type:        customfield.TypeString,
		Description: []customfield.LocalizedString{{LanguageCode: "en", Value: desc}},
	})

	var base strings.Builder
	base.WriteString("scalar DateTime\nscalar JSON\ntype Query { ok: Boolean }\n")
	for _, e := range customfield.Entities() {
		base.WriteString("type " + string(e) + " { id: ID! }\n")
	}

	sdl := customfield.SDL(f, customfield.SDLOptions{})
	s, err := gqlparser.LoadSchema(
		&ast.Source{Name: "base.graphql", Input: base.String()},
		&ast.Source{Name: "custom-fields.graphql", Input: sdl},
	)
	if err != nil {
		t.Fatalf("generated SDL does not load: %v\n%s", err, sdl)
	}
	field := s.Types["ProductCustomFields"].Fields.ForName("giftNote")
	if field == nil {
		t.Fatalf("giftNote missing from ProductCustomFields\n%s", sdl)
	}
	if field.Description != desc {
		t.Errorf("description = %q, want %q", field.Description, desc)
	}
}

func section(sdl, header string) string {
	i := strings.Index(sdl, header)
	if i < 0 {
		return ""
	}
	rest := sdl[i:]
	if j := strings.Index(rest, "}"); j >= 0 {
		return rest[:j+1]
	}
	return rest
}
