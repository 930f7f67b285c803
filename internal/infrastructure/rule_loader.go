package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/yaml"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
)

// FileCatalogLoader reads a catalog from a JSON or YAML file, picked by extension.
type FileCatalogLoader struct {
	Path string
}

func NewFileCatalogLoader(path string) interfaces.CatalogLoader {
	return &FileCatalogLoader{Path: path}
}

func (l *FileCatalogLoader) Load(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		cat *domain.Catalog
		err error
	)
	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".yaml", ".yml":
		cat, err = yaml.LoadCatalog(l.Path)
	case ".json":
		cat, err = loadJSON(l.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported catalog file %s", domain.ErrInvalidArgument, l.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", l.Path, err)
	}
	cat.Normalize()
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", l.Path, err)
	}
	return cat, nil
}

func loadJSON(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat domain.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return &cat, nil
}
