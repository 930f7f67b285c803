package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/ctxutil"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

// TraceRecorder persists trace documents on a best-effort basis: failures are
// logged and never reach the caller.
type TraceRecorder struct {
	store interfaces.TraceStore
	log   *logger.Logger
	now   func() time.Time
}

func NewTraceRecorder(store interfaces.TraceStore, baseLog *logger.Logger) *TraceRecorder {
	return &TraceRecorder{store: store, log: baseLog.With("service", "TraceRecorder"), now: time.Now}
}

// Record stores doc under its declaration id. It is a no-op without a store,
// without a declaration id, or when ctx is already writing a trace.
func (r *TraceRecorder) Record(ctx context.Context, doc engine.TraceDocument) {
	if r == nil || r.store == nil || doc.Meta.DeclarationID == "" {
		return
	}
	if ctxutil.SkipTraceWrite(ctx) {
		return
	}
	ctx = ctxutil.WithoutTraceWrite(ctx)

	body, err := json.Marshal(doc)
	if err != nil {
		r.log.Warn("trace encode failed", "declaration_id", doc.Meta.DeclarationID, "error", err)
		return
	}
	rec := &domain.RuleTrace{
		DeclarationID: doc.Meta.DeclarationID,
		RulepackCode:  doc.Meta.RulepackCode,
		Scenario:      doc.Meta.Scenario,
		Truncated:     doc.Meta.Truncated,
		Document:      body,
		RecordedAt:    r.now().UTC(),
	}
	if err := r.store.Save(dbctx.Background(ctx), rec); err != nil {
		r.log.Warn("trace write failed", "declaration_id", doc.Meta.DeclarationID, "error", err)
		return
	}
	r.log.Debug("trace recorded", "declaration_id", doc.Meta.DeclarationID, "rows", doc.Meta.TraceRows, "truncated", doc.Meta.Truncated)
}

// Latest returns the stored trace of a declaration.
func (r *TraceRecorder) Latest(ctx context.Context, declarationID string) (*domain.RuleTrace, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("%w: trace storage is disabled", domain.ErrNotFound)
	}
	return r.store.Get(dbctx.Background(ctx), declarationID)
}
