package plaza

import "github.com/xraph/plaza/id"

// ID is the primary identifier type for all plaza entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
