package engine

import (
	"sort"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// detectScenario is the pre-rulepack heuristic: the declaration key's structure
// type, unless it defers with "auto".
func (e *Engine) detectScenario(ctx EvalContext) string {
	if key, ok := e.Catalog.DeclarationKey(ctx.DeclarationKey); ok {
		if t := strings.TrimSpace(key.StructureType); t != "" && !strings.EqualFold(t, "auto") {
			return t
		}
	}
	return domain.ScenarioGeneric
}

// findStructureRule scores the structure rules of the movement type:
// scenario +4, key +3, operation +2, regime +1. Rules contradicting the
// context are skipped; ties go to the higher rule priority, then the higher id.
func (e *Engine) findStructureRule(ctx EvalContext) *domain.StructureRule {
	type scored struct {
		rule  *domain.StructureRule
		score int
	}
	var found []scored
	for i := range e.Catalog.StructureRules {
		r := &e.Catalog.StructureRules[i]
		if r.Disabled || !sameValue(r.MovementType, ctx.MovementType) {
			continue
		}
		score, ok := 0, true
		check := func(want, got string, points int) {
			if domain.IsWildcard(want) {
				return
			}
			if !sameValue(want, got) {
				ok = false
				return
			}
			score += points
		}
		if !strings.EqualFold(r.Scenario, domain.ScenarioGeneric) {
			check(r.Scenario, ctx.Scenario, 4)
		}
		check(r.DeclarationKey, ctx.DeclarationKey, 3)
		check(string(r.OperationType), string(ctx.OperationType), 2)
		check(string(r.Regime), string(ctx.Regime), 1)
		if ok {
			found = append(found, scored{rule: r, score: score})
		}
	}
	if len(found) == 0 {
		return nil
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].score != found[j].score {
			return found[i].score > found[j].score
		}
		if found[i].rule.Priority != found[j].rule.Priority {
			return found[i].rule.Priority > found[j].rule.Priority
		}
		return found[i].rule.ID > found[j].rule.ID
	})
	return found[0].rule
}
