package infrastructure

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

func TestFileCatalogLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("seed yaml", func(t *testing.T) {
		cat, err := NewFileCatalogLoader(filepath.Join("..", "..", "pkg", "rules", "catalog.yaml")).Load(ctx)
		require.NoError(t, err)
		pack, ok := cat.Rulepack("RP-2026")
		require.True(t, ok)
		assert.Len(t, pack.Scenarios, 3)
		_, ok = cat.StructureRule("transit-base")
		assert.True(t, ok)
	})

	t.Run("dangling selector is rejected", func(t *testing.T) {
		_, err := NewFileCatalogLoader(filepath.Join("testdata", "bad_selector.json")).Load(ctx)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Contains(t, err.Error(), `unknown scenario "missing"`)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewFileCatalogLoader("catalog.toml").Load(ctx)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewFileCatalogLoader("catalog.yaml").Load(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestApplyDeclarationPatch(t *testing.T) {
	decl := model.Declaration{
		ID:      "PED-1",
		Records: []model.Registro{{Code: "500", Sequence: 1}, {Code: "505", Sequence: 2}},
	}

	t.Run("remove a record", func(t *testing.T) {
		out, err := ApplyDeclarationPatch(decl, []byte(`[{"op":"remove","path":"/records/1"}]`))
		require.NoError(t, err)
		require.Len(t, out.Records, 1)
		assert.Equal(t, "500", out.Records[0].Code)
		assert.Len(t, decl.Records, 2)
	})

	t.Run("replace a header value", func(t *testing.T) {
		out, err := ApplyDeclarationPatch(decl, []byte(`[{"op":"replace","path":"/id","value":"PED-2"}]`))
		require.NoError(t, err)
		assert.Equal(t, "PED-2", out.ID)
	})

	t.Run("malformed patch", func(t *testing.T) {
		out, err := ApplyDeclarationPatch(decl, []byte(`{"op":"remove"}`))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Equal(t, decl.ID, out.ID)
	})

	t.Run("path out of range", func(t *testing.T) {
		_, err := ApplyDeclarationPatch(decl, []byte(`[{"op":"remove","path":"/records/7"}]`))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
