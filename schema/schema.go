package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/xraph/plaza"
	"github.com/xraph/plaza/customfield"
)

var (
	//go:embed base.graphql
	baseSDL string

	//go:embed job.graphql
	jobSDL string
)

// API identifies a GraphQL API surface.
type API string

const (
	Shop  API = "shop"
	Admin API = "admin"
)

// APIs lists every surface.
var APIs = []API{Shop, Admin}

// Valid reports whether a is a known surface.
func (a API) Valid() bool { return a == Shop || a == Admin }

// ParseAPI parses a surface name.
func ParseAPI(s string) (API, error) {
	a := API(strings.ToLower(s))
	if !a.Valid() {
		return "", fmt.Errorf("schema: unknown api %q", s)
	}
	return a, nil
}

// Extension is one SDL document contributed to a surface.
type Extension struct {
	// Source names the contributor in error messages.
	Source string
	SDL    string
}

// Schema is a validated API schema.
type Schema struct {
	API API
	AST *ast.Schema
	SDL string
}

// JobSDL returns the job status schema fragment.
func JobSDL() string { return jobSDL }

// Build assembles and validates the schema for api.
func Build(api API, fields customfield.Fields, exts []Extension) (*Schema, error) {
	if !api.Valid() {
		return nil, fmt.Errorf("%w: unknown api %q", plaza.ErrInvalidSchema, api)
	}

	sources := []*ast.Source{
		{Name: "base.graphql", Input: baseSDL},
		{Name: "entities.graphql", Input: entityStubs()},
	}
	if api == Admin {
		sources = append(sources, &ast.Source{Name: "job.graphql", Input: jobSDL})
	}
	sources = append(sources, &ast.Source{
		Name: "custom-fields.graphql",
		Input: customfield.SDL(fields, customfield.SDLOptions{
			PublicOnly: api == Shop,
			Inputs:     api == Admin,
		}),
	})
	for _, ext := range exts {
		if strings.TrimSpace(ext.SDL) == "" {
			continue
		}
		sources = append(sources, &ast.Source{Name: ext.Source, Input: ext.SDL})
	}

	doc, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s api: %v", plaza.ErrInvalidSchema, api, err)
	}

	var b strings.Builder
	formatter.NewFormatter(&b).FormatSchema(doc)
	return &Schema{API: api, AST: doc, SDL: b.String()}, nil
}

func entityStubs() string {
	var b strings.Builder
	for _, e := range customfield.Entities() {
		fmt.Fprintf(&b, "type %s {\n  id: ID!\n  createdAt: DateTime!\n  updatedAt: DateTime!\n}\n\n", e)
	}
	return b.String()
}
