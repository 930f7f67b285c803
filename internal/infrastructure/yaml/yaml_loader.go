package yaml

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// DecodeCatalog decodes a YAML catalog document. Unknown keys are rejected so
// that typos in rulepack files surface at load time.
func DecodeCatalog(data []byte) (*domain.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cat domain.Catalog
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode yaml catalog: %w", err)
	}
	return &cat, nil
}

func LoadCatalog(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeCatalog(data)
}
