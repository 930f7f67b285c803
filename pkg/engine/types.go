package engine

import (
	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	core "github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// Declaration side.
type (
	Declaration  = model.Declaration
	Counterparty = model.Counterparty
	LineItem     = model.LineItem
	Registro     = model.Registro
)

// Catalog side.
type (
	Catalog  = domain.Catalog
	Rulepack = domain.Rulepack
	Stage    = domain.Stage
)

// Results.
type (
	Options       = core.Options
	Plan          = core.Plan
	Report        = core.Report
	Simulation    = core.Simulation
	TraceDocument = core.TraceDocument
	Violation     = domain.Violation
)

const (
	StageLoad        = domain.StageLoad
	StagePreValidate = domain.StagePreValidate
	StageExport      = domain.StageExport
)
