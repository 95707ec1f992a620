package customfield

import (
	"fmt"
	"strings"
)

// SDLOptions selects what SDL generates for one API surface.
type SDLOptions struct {
	// PublicOnly hides non-public fields (shop API).
	PublicOnly bool

	// Inputs adds Create<Entity>CustomFieldsInput and
	// Update<Entity>CustomFieldsInput types.
	Inputs bool
}

// SDL renders the GraphQL type extensions for every customizable entity.
// Entities without visible fields expose customFields as JSON.
func SDL(fields Fields, opts SDLOptions) string {
	var b strings.Builder
	for _, entity := range Entities() {
		visible := Visible(fields[entity], opts.PublicOnly)
		if len(visible) == 0 {
			fmt.Fprintf(&b, "extend type %s {\n  customFields: JSON\n}\n\n", entity)
			continue
		}

		typeName := string(entity) + "CustomFields"
		fmt.Fprintf(&b, "type %s {\n", typeName)
		for _, c := range visible {
			writeDescription(&b, c)
			fmt.Fprintf(&b, "  %s: %s\n", c.Name, outputType(c))
		}
		b.WriteString("}\n\n")
		fmt.Fprintf(&b, "extend type %s {\n  customFields: %s\n}\n\n", entity, typeName)

		if !opts.Inputs {
			continue
		}
		writable := make([]Config, 0, len(visible))
		for _, c := range visible {
			if !c.ReadOnly {
				writable = append(writable, c)
			}
		}
		if len(writable) == 0 {
			continue
		}
		fmt.Fprintf(&b, "input Create%sCustomFieldsInput {\n", entity)
		for _, c := range writable {
			required := !c.IsNullable() && c.DefaultValue == nil
			fmt.Fprintf(&b, "  %s: %s\n", inputName(c), inputType(c, required))
		}
		b.WriteString("}\n\n")
		fmt.Fprintf(&b, "input Update%sCustomFieldsInput {\n", entity)
		for _, c := range writable {
			fmt.Fprintf(&b, "  %s: %s\n", inputName(c), inputType(c, false))
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

func writeDescription(b *strings.Builder, c Config) {
	desc := Pick(c.Description, "en")
	if desc == "" {
		return
	}
	b.WriteString("  ")
	writeGraphQLString(b, desc)
	b.WriteString("\n")
}

// writeGraphQLString quotes s using the escapes a GraphQL string value
// accepts. Other control characters become \uXXXX.
func writeGraphQLString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// GraphQLType returns the named GraphQL type of a single value.
func GraphQLType(c Config) string {
	switch c.Type {
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	case TypeDateTime:
		return "DateTime"
	case TypeRelation:
		if c.GraphQLType != "" {
			return c.GraphQLType
		}
		return c.Entity
	default:
		return "String"
	}
}

func outputType(c Config) string {
	t := GraphQLType(c)
	if c.List {
		t = "[" + t + "!]"
	}
	if !c.IsNullable() {
		t += "!"
	}
	return t
}

func inputName(c Config) string {
	if c.Type != TypeRelation {
		return c.Name
	}
	if c.List {
		return c.Name + "Ids"
	}
	return c.Name + "Id"
}

func inputType(c Config, required bool) string {
	t := GraphQLType(c)
	if c.Type == TypeRelation {
		t = "ID"
	}
	if c.List {
		t = "[" + t + "!]"
	}
	if required {
		t += "!"
	}
	return t
}
