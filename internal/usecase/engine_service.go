package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase/runengine"
)

// EngineService resolves declarations against the catalog supplied by its
// loader. The catalog is loaded on first use and kept until Reload.
type EngineService struct {
	loader interfaces.CatalogLoader
	eval   interfaces.ConditionEvaluator
	differ engine.StateDiffer
	opts   engine.Options
	traces *TraceRecorder
	log    *logger.Logger

	mu  sync.RWMutex
	eng *engine.Engine
}

var _ interfaces.EngineFacade = (*EngineService)(nil)

func NewEngineService(
	loader interfaces.CatalogLoader,
	eval interfaces.ConditionEvaluator,
	differ engine.StateDiffer,
	opts engine.Options,
	traces *TraceRecorder,
	baseLog *logger.Logger,
) *EngineService {
	return &EngineService{
		loader: loader,
		eval:   eval,
		differ: differ,
		opts:   opts,
		traces: traces,
		log:    baseLog.With("service", "EngineService"),
	}
}

// Reload reads the catalog again and swaps the engine.
func (s *EngineService) Reload(ctx context.Context) error {
	cat, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	eng := engine.New(cat, s.eval, s.differ, s.opts)
	s.mu.Lock()
	s.eng = eng
	s.mu.Unlock()
	s.log.Info("catalog loaded", "rulepacks", len(cat.Rulepacks), "structure_rules", len(cat.StructureRules))
	return nil
}

func (s *EngineService) engine(ctx context.Context) (*engine.Engine, error) {
	s.mu.RLock()
	eng := s.eng
	s.mu.RUnlock()
	if eng != nil {
		return eng, nil
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eng, nil
}

func requireDeclaration(decl *model.Declaration) error {
	if decl == nil {
		return fmt.Errorf("%w: declaration is required", domain.ErrInvalidArgument)
	}
	return nil
}

func (s *EngineService) resolve(ctx context.Context, decl *model.Declaration) (*engine.Engine, *engine.Plan, error) {
	if err := requireDeclaration(decl); err != nil {
		return nil, nil, err
	}
	eng, err := s.engine(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	plan, err := eng.Resolve(decl)
	if err != nil {
		s.log.Warn("resolution failed", "declaration_id", decl.ID, "error", err)
		return nil, nil, err
	}
	return eng, plan, nil
}

// Plan resolves the record plan and records its trace.
func (s *EngineService) Plan(ctx context.Context, decl *model.Declaration) (*engine.Plan, error) {
	eng, plan, err := s.resolve(ctx, decl)
	if err != nil {
		return nil, err
	}
	s.traces.Record(ctx, engine.BuildTrace(decl.ID, plan, nil, eng.Options.TraceLimit))
	return plan, nil
}

// Validate checks the captured records. Violations come back both in the
// report and as a *domain.ValidationError.
func (s *EngineService) Validate(ctx context.Context, decl *model.Declaration) (engine.Report, error) {
	if err := requireDeclaration(decl); err != nil {
		return engine.Report{}, err
	}
	eng, err := s.engine(ctx)
	if err != nil {
		return engine.Report{}, err
	}
	uc := &runengine.UseCase{Engine: eng}
	res, err := uc.Run(ctx, decl)
	if err != nil {
		s.log.Warn("validation failed", "declaration_id", decl.ID, "error", err)
		return engine.Report{}, err
	}
	s.traces.Record(ctx, res.Trace)
	if len(res.Report.Violations) > 0 {
		s.log.Info("declaration rejected", "declaration_id", decl.ID, "violations", len(res.Report.Violations))
	}
	return res.Report, res.Report.Err()
}

// Simulate reports missing and forbidden records without failing.
func (s *EngineService) Simulate(ctx context.Context, decl *model.Declaration) (engine.Simulation, error) {
	eng, plan, err := s.resolve(ctx, decl)
	if err != nil {
		return engine.Simulation{}, err
	}
	sim := eng.Simulate(plan, decl)
	s.traces.Record(ctx, engine.BuildTrace(decl.ID, plan, sim.Errors, eng.Options.TraceLimit))
	return sim, nil
}

// Prepare completes the declaration with the records its plan requires.
func (s *EngineService) Prepare(ctx context.Context, decl *model.Declaration) (*interfaces.Prepared, error) {
	eng, plan, err := s.resolve(ctx, decl)
	if err != nil {
		return nil, err
	}
	out, added, err := eng.Prepare(plan, decl)
	if err != nil {
		return nil, err
	}
	s.traces.Record(ctx, engine.BuildTrace(decl.ID, plan, nil, eng.Options.TraceLimit))
	return &interfaces.Prepared{Declaration: out, Added: added}, nil
}

func (s *EngineService) CheckStage(ctx context.Context, decl *model.Declaration, stage domain.Stage) error {
	if err := requireDeclaration(decl); err != nil {
		return err
	}
	eng, err := s.engine(ctx)
	if err != nil {
		return err
	}
	return eng.CheckStage(decl, stage)
}

// AllowedCodes intersects the plan's non-forbidden codes with the
// allow_only_records rules of stage.
func (s *EngineService) AllowedCodes(ctx context.Context, decl *model.Declaration, stage domain.Stage) (interfaces.AllowedCodes, error) {
	eng, plan, err := s.resolve(ctx, decl)
	if err != nil {
		return interfaces.AllowedCodes{}, err
	}
	planCodes, planRestricted := engine.AllowedCodes(plan)
	stageCodes, stageRestricted, err := eng.StageAllowedCodes(decl, stage)
	if err != nil {
		return interfaces.AllowedCodes{}, err
	}

	switch {
	case !planRestricted && !stageRestricted:
		return interfaces.AllowedCodes{Codes: []string{}}, nil
	case !stageRestricted:
		return interfaces.AllowedCodes{Codes: planCodes, Restricted: true}, nil
	case !planRestricted:
		codes := make([]string, 0, len(stageCodes))
		for c := range stageCodes {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		return interfaces.AllowedCodes{Codes: codes, Restricted: true}, nil
	}
	codes := []string{}
	for _, c := range planCodes {
		if stageCodes[c] {
			codes = append(codes, c)
		}
	}
	return interfaces.AllowedCodes{Codes: codes, Restricted: true}, nil
}

// Explain resolves and validates the declaration and returns the trace document.
func (s *EngineService) Explain(ctx context.Context, decl *model.Declaration) (*engine.TraceDocument, error) {
	if err := requireDeclaration(decl); err != nil {
		return nil, err
	}
	eng, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	uc := &runengine.UseCase{Engine: eng}
	res, err := uc.Run(ctx, decl)
	if err != nil {
		return nil, err
	}
	s.traces.Record(ctx, res.Trace)
	return &res.Trace, nil
}

// Patch applies an RFC 6902 patch and validates the result.
func (s *EngineService) Patch(ctx context.Context, decl model.Declaration, patch []byte) (*interfaces.PatchResult, error) {
	updated, err := infrastructure.ApplyDeclarationPatch(decl, patch)
	if err != nil {
		return nil, err
	}
	report, err := s.Validate(ctx, &updated)
	if err != nil && len(report.Violations) == 0 {
		return nil, err
	}
	return &interfaces.PatchResult{Declaration: updated, Report: report}, nil
}

func (s *EngineService) Trace(ctx context.Context, declarationID string) (*domain.RuleTrace, error) {
	return s.traces.Latest(ctx, declarationID)
}

// Rulepacks lists the loaded rulepacks by code, without their rules.
func (s *EngineService) Rulepacks(ctx context.Context) ([]domain.Rulepack, error) {
	eng, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Rulepack, 0, len(eng.Catalog.Rulepacks))
	for _, p := range eng.Catalog.Rulepacks {
		p.Scenarios, p.Selectors, p.ProcessRules, p.ConditionRules = nil, nil, nil, nil
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
