// Package schema assembles the GraphQL schema of each API surface from the
// base document, custom fields and plugin extensions, and validates the
// result with gqlparser.
//
// Sources are loaded in a fixed order:
//
//  1. base.graphql (scalars, root types) and one stub type per customizable entity
//  2. job.graphql (admin only)
//  3. custom-field types and extensions
//  4. plugin extensions, in plugin registration order
//
// Execution is left to the host GraphQL server; this package only
// produces a validated [ast.Schema] and its printed SDL.
package schema
