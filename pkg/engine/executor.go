package engine

import (
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/jsonlogic"
)

// Operator is a custom JSONLogic operator usable in "when" expressions.
// Arguments arrive with their {"var": ...} references resolved.
type Operator = jsonlogic.Operator

// Built-in operators, exported for reuse in custom ones.
var (
	Intersects = jsonlogic.Intersects
	StartsWith = jsonlogic.StartsWith
)
