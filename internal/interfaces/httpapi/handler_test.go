package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/diff"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/jsonlogic"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/ctxutil"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase"
)

type stubAllocator struct {
	err   error
	key   domain.SequenceKey
	actor string
}

func (s *stubAllocator) Allocate(ctx context.Context, key domain.SequenceKey, note string) (*domain.Allocation, error) {
	s.key = key
	s.actor = ctxutil.Actor(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Allocation{Key: key, Consecutive: 1, Number: "000001", Display: key.Year[1:] + "000001"}, nil
}

func newTestServer(t *testing.T, alloc *stubAllocator) *echo.Echo {
	t.Helper()
	loader := infrastructure.NewFileCatalogLoader(filepath.Join("..", "..", "..", "pkg", "rules", "catalog.yaml"))
	opts := engine.Options{Clock: func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) }}
	svc := usecase.NewEngineService(loader, jsonlogic.NewEvaluator(), &diff.Differ{}, opts, usecase.NewTraceRecorder(nil, logger.Nop()), logger.Nop())

	e := echo.New()
	e.Use(Actor())
	h := NewHandler(svc, nil, logger.Nop())
	if alloc != nil {
		h = NewHandler(svc, alloc, logger.Nop())
	}
	h.Register(e)
	return e
}

const transitJSON = `{
	"id": "PED-T-1",
	"movement_type": "1",
	"regime": "transito",
	"declaration_key": "T1",
	"as_of": "2026-03-01T00:00:00Z",
	"records": [%s]
}`

func transitBody(codes ...string) string {
	recs := make([]string, 0, len(codes))
	for i, c := range codes {
		recs = append(recs, fmt.Sprintf(`{"code":%q,"sequence":%d}`, c, i+1))
	}
	return fmt.Sprintf(transitJSON, strings.Join(recs, ","))
}

func do(e *echo.Echo, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandler_Declarations(t *testing.T) {
	e := newTestServer(t, nil)

	t.Run("plan", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/plan", transitBody("500"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var plan engine.Plan
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
		assert.Equal(t, "transito", plan.Scenario)
		assert.Equal(t, "transit-base", plan.StructureRule)
	})

	t.Run("valid declaration", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/validate", transitBody("500", "501", "502"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decode(t, rec)["valid"])
	})

	t.Run("violations are unprocessable", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/validate", transitBody("500", "501", "502", "505"))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		violations, ok := body["violations"].([]any)
		require.True(t, ok)
		require.Len(t, violations, 1)
		assert.Equal(t, "record 505 is forbidden for this context, found 1", violations[0].(map[string]any)["message"])
	})

	t.Run("stage errors are unprocessable", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/stages/load_from_lead/check", transitBody("500"))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "load_from_lead", decode(t, rec)["stage"])
	})

	t.Run("unknown stage is a bad request", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/stages/archive/check", transitBody("500"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("allowed codes", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/stages/export/allowed-codes", transitBody("500"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{"500", "501", "502"}, decode(t, rec)["codes"])
	})

	t.Run("simulate", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/simulate", transitBody("500"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{"501(0/1)", "502(0/1)"}, decode(t, rec)["missing"])
	})

	t.Run("prepare", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/prepare", transitBody("500"))
		require.Equal(t, http.StatusOK, rec.Code)
		added, ok := decode(t, rec)["added"].([]any)
		require.True(t, ok)
		assert.Len(t, added, 2)
	})

	t.Run("explain", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/explain", transitBody("500", "501", "502"))
		require.Equal(t, http.StatusOK, rec.Code)
		meta := decode(t, rec)["meta"].(map[string]any)
		assert.Equal(t, "RP-2026", meta["rulepack_code"])
	})

	t.Run("patch re-validates", func(t *testing.T) {
		body := fmt.Sprintf(`{"declaration": %s, "patch": [{"op":"remove","path":"/records/3"}]}`, transitBody("500", "501", "502", "505"))
		rec := do(e, http.MethodPatch, "/declarations", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		report := decode(t, rec)["report"].(map[string]any)
		assert.Empty(t, report["violations"])
	})

	t.Run("patch without operations", func(t *testing.T) {
		body := fmt.Sprintf(`{"declaration": %s}`, transitBody("500"))
		rec := do(e, http.MethodPatch, "/declarations", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/declarations/plan", `{"records": "nope"`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("trace storage disabled", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/declarations/PED-T-1/trace", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rulepacks", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/rulepacks", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var packs []domain.Rulepack
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &packs))
		require.Len(t, packs, 1)
		assert.Equal(t, "RP-2026", packs[0].Code)
	})
}

func TestHandler_Allocate(t *testing.T) {
	t.Run("from a date", func(t *testing.T) {
		alloc := &stubAllocator{}
		e := newTestServer(t, alloc)
		rec := do(e, http.MethodPost, "/sequences/allocate",
			`{"date":"2026-03-01T00:00:00Z","office":"24","license":"3420"}`, HeaderActor, "agent-7")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, domain.SequenceKey{Year: "26", Office: "24", License: "3420"}, alloc.key)
		assert.Equal(t, "agent-7", alloc.actor)
		assert.Equal(t, "6000001", decode(t, rec)["display"])
	})

	t.Run("capacity exhausted", func(t *testing.T) {
		key := domain.SequenceKey{Year: "26", Office: "24", License: "3420"}
		e := newTestServer(t, &stubAllocator{err: &domain.CapacityError{Key: key, Limit: domain.MaxConsecutive}})
		rec := do(e, http.MethodPost, "/sequences/allocate", `{"year":"26","office":"24","license":"3420"}`)
		assert.Equal(t, http.StatusInsufficientStorage, rec.Code)
	})

	t.Run("not registered without allocator", func(t *testing.T) {
		e := newTestServer(t, nil)
		rec := do(e, http.MethodPost, "/sequences/allocate", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.ConfigurationError{Reason: "no rulepack"}, http.StatusConflict},
		{&domain.ValidationError{}, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", &domain.StageError{}), http.StatusUnprocessableEntity},
		{&domain.CapacityError{}, http.StatusInsufficientStorage},
		{fmt.Errorf("%w: bad", domain.ErrInvalidArgument), http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
