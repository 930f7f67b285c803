package engine

import (
	"context"

	core "github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/diff"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/jsonlogic"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase/runengine"
)

// Service embeds the resolver in another Go program. It never touches a
// database; traces are returned, not stored.
type Service struct {
	eval   *jsonlogic.Evaluator
	engine *core.Engine
}

// New builds a service over an in-memory catalog.
func New(cat *Catalog, opts Options) *Service {
	eval := jsonlogic.NewEvaluator()
	return &Service{eval: eval, engine: core.New(cat, eval, &diff.Differ{}, opts)}
}

// NewFromFile loads, normalizes and validates a YAML or JSON catalog.
func NewFromFile(ctx context.Context, path string, opts Options) (*Service, error) {
	cat, err := infrastructure.NewFileCatalogLoader(path).Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(cat, opts), nil
}

// RegisterOperator adds a custom operator to "when" expressions.
func (s *Service) RegisterOperator(name string, op Operator) {
	s.eval.RegisterOperator(name, op)
}

func (s *Service) Catalog() *Catalog { return s.engine.Catalog }

func (s *Service) Resolve(decl *Declaration) (*Plan, error) {
	return s.engine.Resolve(decl)
}

// Run resolves and validates decl and returns the plan, the report and the
// trace document in one pass.
func (s *Service) Run(ctx context.Context, decl *Declaration) (*Plan, Report, TraceDocument, error) {
	uc := &runengine.UseCase{Engine: s.engine}
	res, err := uc.Run(ctx, decl)
	if err != nil {
		return nil, Report{}, TraceDocument{}, err
	}
	return res.Plan, res.Report, res.Trace, nil
}

func (s *Service) Simulate(decl *Declaration) (Simulation, error) {
	plan, err := s.engine.Resolve(decl)
	if err != nil {
		return Simulation{}, err
	}
	return s.engine.Simulate(plan, decl), nil
}

// Prepare returns decl completed with the records its plan requires, and the
// records that were added.
func (s *Service) Prepare(decl *Declaration) (*Declaration, []Registro, error) {
	plan, err := s.engine.Resolve(decl)
	if err != nil {
		return nil, nil, err
	}
	return s.engine.Prepare(plan, decl)
}

func (s *Service) CheckStage(decl *Declaration, stage Stage) error {
	return s.engine.CheckStage(decl, stage)
}
