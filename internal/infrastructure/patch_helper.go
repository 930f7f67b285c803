package infrastructure

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// ApplyDeclarationPatch applies an RFC 6902 patch to a declaration and returns
// the updated copy. The original is returned untouched on failure.
func ApplyDeclarationPatch(original model.Declaration, patchData []byte) (model.Declaration, error) {
	originalJSON, err := json.Marshal(original)
	if err != nil {
		return original, fmt.Errorf("encode declaration: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchData)
	if err != nil {
		return original, fmt.Errorf("%w: decode patch: %v", domain.ErrInvalidArgument, err)
	}

	modifiedJSON, err := patch.Apply(originalJSON)
	if err != nil {
		return original, fmt.Errorf("%w: apply patch: %v", domain.ErrInvalidArgument, err)
	}

	var updated model.Declaration
	if err := json.Unmarshal(modifiedJSON, &updated); err != nil {
		return original, fmt.Errorf("%w: decode patched declaration: %v", domain.ErrInvalidArgument, err)
	}
	return updated, nil
}
