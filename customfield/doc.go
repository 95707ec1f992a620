// Package customfield models custom fields: typed, validated, optionally
// localized attributes that extend core entities through configuration
// instead of schema changes.
//
// Fields are declared per entity:
//
//	fields := customfield.Fields{}
//	fields.Add(customfield.Product,
//	    customfield.Config{Name: "weight", Type: customfield.TypeInt, Min: customfield.Float(0)},
//	    customfield.Config{Name: "tags", Type: customfield.TypeString, List: true},
//	)
//	if err := fields.Validate(); err != nil { ... }
//
// The same declarations drive three things: configuration validation at
// bootstrap ([Fields.Validate]), runtime value validation on writes
// ([ValidateValue]) and the GraphQL SDL exposed by each API ([SDL]).
package customfield
