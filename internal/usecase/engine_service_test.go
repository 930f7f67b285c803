package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/diff"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/jsonlogic"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/ctxutil"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

type memTraceStore struct {
	mu    sync.Mutex
	rows  map[string]*domain.RuleTrace
	saves int
	err   error
}

func newMemTraceStore() *memTraceStore {
	return &memTraceStore{rows: map[string]*domain.RuleTrace{}}
}

func (m *memTraceStore) Save(_ dbctx.Context, trace *domain.RuleTrace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.rows[trace.DeclarationID] = trace
	return nil
}

func (m *memTraceStore) Get(_ dbctx.Context, id string) (*domain.RuleTrace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func newTestService(t *testing.T, store *memTraceStore) *EngineService {
	t.Helper()
	loader := infrastructure.NewFileCatalogLoader(filepath.Join("..", "..", "pkg", "rules", "catalog.yaml"))
	opts := engine.Options{Clock: func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) }}
	return NewEngineService(loader, jsonlogic.NewEvaluator(), &diff.Differ{}, opts, NewTraceRecorder(store, logger.Nop()), logger.Nop())
}

func transitDecl(codes ...string) *model.Declaration {
	decl := &model.Declaration{
		ID:             "PED-T-1",
		MovementType:   "1",
		Regime:         domain.RegimeTransit,
		DeclarationKey: "T1",
		AsOf:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, c := range codes {
		decl.Records = append(decl.Records, model.Registro{Code: c, Sequence: i + 1})
	}
	return decl
}

func TestEngineService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("complete transit declaration passes and is traced", func(t *testing.T) {
		store := newMemTraceStore()
		svc := newTestService(t, store)

		report, err := svc.Validate(ctx, transitDecl("500", "501", "502"))
		require.NoError(t, err)
		assert.Empty(t, report.Violations)

		rec, err := svc.Trace(ctx, "PED-T-1")
		require.NoError(t, err)
		assert.Equal(t, "RP-2026", rec.RulepackCode)
		assert.Equal(t, "transito", rec.Scenario)

		var doc engine.TraceDocument
		require.NoError(t, json.Unmarshal(rec.Document, &doc))
		assert.Equal(t, "transit-base", doc.Meta.StructureRule)
		assert.Empty(t, doc.Errors)
	})

	t.Run("forbidden invoice is reported", func(t *testing.T) {
		store := newMemTraceStore()
		svc := newTestService(t, store)

		report, err := svc.Validate(ctx, transitDecl("500", "501", "502", "505"))
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"record 505 is forbidden for this context, found 1"}, verr.Messages())
		assert.Len(t, report.Violations, 1)

		var doc engine.TraceDocument
		require.NoError(t, json.Unmarshal(store.rows["PED-T-1"].Document, &doc))
		assert.Equal(t, verr.Messages(), doc.Errors)
	})

	t.Run("trace write failures do not surface", func(t *testing.T) {
		store := newMemTraceStore()
		store.err = errors.New("disk full")
		svc := newTestService(t, store)

		_, err := svc.Validate(ctx, transitDecl("500", "501", "502"))
		require.NoError(t, err)
		assert.Equal(t, 1, store.saves)
	})

	t.Run("re-entrant calls skip the trace write", func(t *testing.T) {
		store := newMemTraceStore()
		svc := newTestService(t, store)

		_, err := svc.Validate(ctxutil.WithoutTraceWrite(ctx), transitDecl("500", "501", "502"))
		require.NoError(t, err)
		assert.Zero(t, store.saves)
	})

	t.Run("nil declaration", func(t *testing.T) {
		svc := newTestService(t, newMemTraceStore())
		_, err := svc.Validate(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestEngineService_SimulateAndPrepare(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemTraceStore())

	sim, err := svc.Simulate(ctx, transitDecl("500", "505"))
	require.NoError(t, err)
	assert.Equal(t, "transit-base", sim.StructureRule)
	assert.Equal(t, []string{"501(0/1)", "502(0/1)"}, sim.Missing)
	assert.Equal(t, []string{"505(1)"}, sim.ForbiddenPresent)
	assert.Len(t, sim.Errors, 2)

	prepared, err := svc.Prepare(ctx, transitDecl("500"))
	require.NoError(t, err)
	require.Len(t, prepared.Added, 2)
	assert.Equal(t, "501", prepared.Added[0].Code)
	assert.Equal(t, "502", prepared.Added[1].Code)
	assert.Len(t, prepared.Declaration.Records, 3)
}

func TestEngineService_Stages(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemTraceStore())

	t.Run("load requires the customs office", func(t *testing.T) {
		err := svc.CheckStage(ctx, transitDecl("500"), domain.StageLoad)
		var serr *domain.StageError
		require.ErrorAs(t, err, &serr)
		require.Len(t, serr.Violations, 1)
		assert.Equal(t, "rule lead-customs-office: field aduana is required", serr.Violations[0].Message)

		decl := transitDecl("500")
		decl.Fields = map[string]any{"aduana": "240"}
		assert.NoError(t, svc.CheckStage(ctx, decl, domain.StageLoad))
	})

	t.Run("unknown stage", func(t *testing.T) {
		err := svc.CheckStage(ctx, transitDecl("500"), domain.Stage("archive"))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("export codes intersect plan and stage", func(t *testing.T) {
		codes, err := svc.AllowedCodes(ctx, transitDecl("500"), domain.StageExport)
		require.NoError(t, err)
		assert.True(t, codes.Restricted)
		assert.Equal(t, []string{"500", "501", "502"}, codes.Codes)
	})
}

func TestEngineService_ExplainPatchAndRulepacks(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemTraceStore())

	doc, err := svc.Explain(ctx, transitDecl("500", "501", "502"))
	require.NoError(t, err)
	assert.Equal(t, "RP-2026", doc.Meta.RulepackCode)
	assert.Equal(t, "transito", doc.Meta.Scenario)
	assert.False(t, doc.Meta.Truncated)
	assert.NotEmpty(t, doc.Trace)

	res, err := svc.Patch(ctx, *transitDecl("500", "501", "502", "505"), []byte(`[{"op":"remove","path":"/records/3"}]`))
	require.NoError(t, err)
	assert.Empty(t, res.Report.Violations)
	assert.Len(t, res.Declaration.Records, 3)

	_, err = svc.Patch(ctx, *transitDecl("500"), []byte(`[{"op":"remove","path":"/records/9"}]`))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	packs, err := svc.Rulepacks(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "RP-2026", packs[0].Code)
	assert.Nil(t, packs[0].ConditionRules)
}
