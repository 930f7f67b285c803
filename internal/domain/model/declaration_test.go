package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistroLineItemNumber(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    int
		ok      bool
	}{
		{"partida beats numero_partida", map[string]any{"numero_partida": "2", "partida": "1"}, 1, true},
		{"numero_partida beats partida_seq", map[string]any{"partida_seq": 9, "numero_partida": 4.0}, 4, true},
		{"keys fold case and spaces", map[string]any{" Partida ": "0007"}, 7, true},
		{"zero falls through to the next key", map[string]any{"partida": "0", "num_partida": 3}, 3, true},
		{"non numeric falls through", map[string]any{"partida": "n/a", "secuencia_partida": "P-5"}, 5, true},
		{"unknown keys", map[string]any{"fraccion": "84713001"}, 0, false},
		{"empty payload", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Registro{Code: "551", Payload: tt.payload}
			for i := 0; i < 50; i++ {
				got, ok := r.LineItemNumber()
				assert.Equal(t, tt.ok, ok)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRegistroLineItemNumberFoldedDuplicates(t *testing.T) {
	r := Registro{Payload: map[string]any{"PARTIDA": "8", "Partida": "6"}}
	for i := 0; i < 50; i++ {
		n, ok := r.LineItemNumber()
		assert.True(t, ok)
		assert.Equal(t, 8, n, "smallest raw key wins among folded matches")
	}
}
