package diff

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/Victor-armando18/pedimento-rules/internal/domain/engine"
)

// Differ renders record state changes as an RFC 7386 merge patch.
type Differ struct{}

func (d *Differ) Diff(before, after map[string]engine.RecordState) ([]byte, error) {
	original, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("encode base states: %w", err)
	}
	modified, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("encode final states: %w", err)
	}
	return jsonpatch.CreateMergePatch(original, modified)
}
