package jsonlogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	vars := map[string]any{
		"declaration_key": "T1",
		"is_virtual":      false,
		"chapters":        []any{"84", "85"},
		"tariff_codes":    []any{"84713001"},
	}
	e := NewEvaluator()

	tests := []struct {
		name string
		expr map[string]any
		want bool
	}{
		{"equality", map[string]any{"==": []any{map[string]any{"var": "declaration_key"}, "T1"}}, true},
		{"negated flag", map[string]any{"!": []any{map[string]any{"var": "is_virtual"}}}, true},
		{"membership", map[string]any{"in": []any{"84713001", map[string]any{"var": "tariff_codes"}}}, true},
		{"intersects", map[string]any{"intersects": []any{[]any{"01", "85"}, map[string]any{"var": "chapters"}}}, true},
		{"intersects miss", map[string]any{"intersects": []any{[]any{"01"}, map[string]any{"var": "chapters"}}}, false},
		{"starts with", map[string]any{"starts_with": []any{map[string]any{"var": "declaration_key"}, "V", "T"}}, true},
		{"missing var", map[string]any{"starts_with": []any{map[string]any{"var": "nope.deep"}, "T"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy([]any{}))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(map[string]any{}))
}
