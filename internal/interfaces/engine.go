package interfaces

import (
	"context"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/diff"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/jsonlogic"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase/runengine"
)

// NewEngine wires the resolver with the JSONLogic evaluator and the
// merge-patch differ.
func NewEngine(cat *domain.Catalog, opts engine.Options) *engine.Engine {
	return engine.New(cat, jsonlogic.NewEvaluator(), &diff.Differ{}, opts)
}

// RunEngine resolves, validates and traces one declaration without storage.
func RunEngine(ctx context.Context, cat *domain.Catalog, decl *model.Declaration, opts engine.Options) (runengine.Result, error) {
	uc := &runengine.UseCase{Engine: NewEngine(cat, opts)}
	return uc.Run(ctx, decl)
}
