package interfaces

import (
	"context"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
)

var ErrRuleExecutionFailed = domain.ErrRuleExecutionFailed

// CatalogLoader supplies the catalog and rulepacks the engine resolves against
// (from a file, the database, ...).
type CatalogLoader interface {
	Load(ctx context.Context) (*domain.Catalog, error)
}

// CatalogStore is the persistent catalog: the loader plus import and listing.
type CatalogStore interface {
	CatalogLoader
	Import(dbc dbctx.Context, cat *domain.Catalog) error
	ListRulepacks(dbc dbctx.Context) ([]domain.Rulepack, error)
}

// TraceStore keeps the latest trace document per declaration.
type TraceStore interface {
	Save(dbc dbctx.Context, trace *domain.RuleTrace) error
	Get(dbc dbctx.Context, declarationID string) (*domain.RuleTrace, error)
}

// CounterStore is the row-level access to sequence counters and their log.
// LockCounter must hold an exclusive lock on the row until dbc.Tx ends.
type CounterStore interface {
	EnsureCounter(dbc dbctx.Context, key domain.SequenceKey) error
	LockCounter(dbc dbctx.Context, key domain.SequenceKey) (*domain.SequenceCounter, error)
	GetCounter(dbc dbctx.Context, key domain.SequenceKey) (*domain.SequenceCounter, error)
	UpdateLastIssued(dbc dbctx.Context, counterID uint, value int) error
	AppendLog(dbc dbctx.Context, entry *domain.SequenceLog) error
	ListLog(dbc dbctx.Context, counterID uint) ([]domain.SequenceLog, error)
}

// ConditionEvaluator evaluates the optional JSONLogic "when" expressions.
type ConditionEvaluator = engine.ConditionEvaluator

// Prepared is a declaration completed with the records its plan still needs.
type Prepared struct {
	Declaration *model.Declaration `json:"declaration"`
	Added       []model.Registro   `json:"added"`
}

// PatchResult is a patched declaration with the validation report it now gets.
type PatchResult struct {
	Declaration model.Declaration `json:"declaration"`
	Report      engine.Report     `json:"report"`
}

// AllowedCodes is the export allow-list; Restricted is false when anything goes.
type AllowedCodes struct {
	Codes      []string `json:"codes"`
	Restricted bool     `json:"restricted"`
}

// EngineFacade is the entry point of the application for declarations.
type EngineFacade interface {
	Plan(ctx context.Context, decl *model.Declaration) (*engine.Plan, error)
	Validate(ctx context.Context, decl *model.Declaration) (engine.Report, error)
	Simulate(ctx context.Context, decl *model.Declaration) (engine.Simulation, error)
	Prepare(ctx context.Context, decl *model.Declaration) (*Prepared, error)
	CheckStage(ctx context.Context, decl *model.Declaration, stage domain.Stage) error
	AllowedCodes(ctx context.Context, decl *model.Declaration, stage domain.Stage) (AllowedCodes, error)
	Explain(ctx context.Context, decl *model.Declaration) (*engine.TraceDocument, error)
	Patch(ctx context.Context, decl model.Declaration, patch []byte) (*PatchResult, error)
	Trace(ctx context.Context, declarationID string) (*domain.RuleTrace, error)
	Rulepacks(ctx context.Context) ([]domain.Rulepack, error)
}

// SequenceAllocator mints official consecutive numbers.
type SequenceAllocator interface {
	Allocate(ctx context.Context, key domain.SequenceKey, note string) (*domain.Allocation, error)
}
