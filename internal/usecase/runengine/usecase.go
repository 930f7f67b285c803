package runengine

import (
	"context"

	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// UseCase runs one full resolution pass: plan, validation and trace document.
// It touches no storage.
type UseCase struct {
	Engine *engine.Engine
}

type Result struct {
	Plan   *engine.Plan
	Report engine.Report
	Trace  engine.TraceDocument
}

func (u *UseCase) Run(ctx context.Context, decl *model.Declaration) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	plan, err := u.Engine.Resolve(decl)
	if err != nil {
		return Result{}, err
	}
	report := u.Engine.Validate(plan, decl)

	errs := make([]string, 0, len(report.Violations))
	for _, v := range report.Violations {
		errs = append(errs, v.Message)
	}
	return Result{
		Plan:   plan,
		Report: report,
		Trace:  engine.BuildTrace(decl.ID, plan, errs, u.Engine.Options.TraceLimit),
	}, nil
}
