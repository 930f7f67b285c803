package engine

import (
	"sort"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// EvalContext is the normalized view of a declaration that conditions are
// matched against.
type EvalContext struct {
	MovementType   string
	OperationType  domain.OperationType
	Regime         domain.Regime
	DeclarationKey string
	IsVirtual      bool
	Scenario       string
	TariffCodes    map[string]bool
	Chapters       map[string]bool
}

// BuildContext derives the evaluation context. The declaration key's default
// movement type overrides the one captured on the declaration.
func (e *Engine) BuildContext(decl *model.Declaration, scenario string) EvalContext {
	ctx := EvalContext{
		MovementType:   strings.TrimSpace(decl.MovementType),
		OperationType:  decl.OperationType,
		Regime:         decl.Regime,
		DeclarationKey: strings.ToUpper(strings.TrimSpace(decl.DeclarationKey)),
		Scenario:       scenario,
		TariffCodes:    map[string]bool{},
		Chapters:       map[string]bool{},
	}
	if key, ok := e.Catalog.DeclarationKey(ctx.DeclarationKey); ok {
		if key.DefaultMovementType != "" {
			ctx.MovementType = key.DefaultMovementType
		}
		ctx.IsVirtual = key.IsVirtual
	}
	for _, li := range decl.LineItems {
		code := strings.TrimSpace(li.TariffCode)
		if code != "" {
			ctx.TariffCodes[code] = true
		}
		if ch := e.lineItemChapter(li); ch != "" {
			ctx.Chapters[ch] = true
		}
	}
	return ctx
}

func (e *Engine) lineItemChapter(li model.LineItem) string {
	if ch := strings.TrimSpace(li.Chapter); ch != "" {
		return ch
	}
	if t, ok := e.Catalog.TariffItem(li.TariffCode); ok {
		return t.ChapterCode()
	}
	return domain.ChapterOf(li.TariffCode)
}

// Vars exposes the context to JSONLogic expressions.
func (c EvalContext) Vars() map[string]any {
	return map[string]any{
		"movement_type":   c.MovementType,
		"operation_type":  string(c.OperationType),
		"regime":          string(c.Regime),
		"declaration_key": c.DeclarationKey,
		"is_virtual":      c.IsVirtual,
		"scenario":        c.Scenario,
		"tariff_codes":    sortedKeys(c.TariffCodes),
		"chapters":        sortedKeys(c.Chapters),
	}
}

func sortedKeys(m map[string]bool) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
