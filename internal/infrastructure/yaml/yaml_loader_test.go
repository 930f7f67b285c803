package yaml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCatalog(t *testing.T) {
	doc := []byte(`
movement_types:
  - code: "1"
    name: Importacion
structure_rules:
  - name: base
    movement_type: "1"
    lines:
      - record_code: "500"
        min_occurs: 1
        max_occurs: 1
rulepacks:
  - code: RP-1
    state: active
    valid_from: 2026-01-01
`)
	cat, err := DecodeCatalog(doc)
	require.NoError(t, err)
	require.Len(t, cat.StructureRules, 1)
	assert.Equal(t, "500", cat.StructureRules[0].Lines[0].RecordCode)
	require.Len(t, cat.Rulepacks, 1)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), cat.Rulepacks[0].ValidFrom)
}

func TestDecodeCatalogRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeCatalog([]byte("rulepacks:\n  - code: RP-1\n    priorty: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "priorty")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog("does-not-exist.yaml")
	assert.Error(t, err)
}
