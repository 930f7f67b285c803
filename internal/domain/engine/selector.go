package engine

import (
	"fmt"
	"sort"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// Selection is the scenario chosen for a declaration within a rulepack.
type Selection struct {
	Scenario      *domain.Scenario
	StructureRule *domain.StructureRule
	Trace         SelectorTrace
}

// SelectScenario evaluates the rulepack selectors in (priority desc, sequence,
// id) order. Every match overwrites the previous one, so the last match before
// a stop wins, unless SelectorFirstMatchWins is set. Without a match the
// default scenario applies, then any active scenario.
func (e *Engine) SelectScenario(pack *domain.Rulepack, ctx EvalContext, strict bool) (Selection, error) {
	var sel Selection
	scenarios := activeScenarios(pack)
	byCode := make(map[string]*domain.Scenario, len(scenarios))
	for _, s := range scenarios {
		byCode[s.Code] = s
	}

	selectors := make([]domain.Selector, 0, len(pack.Selectors))
	for _, s := range pack.Selectors {
		if !s.Disabled {
			selectors = append(selectors, s)
		}
	}
	sort.SliceStable(selectors, func(i, j int) bool {
		a, b := selectors[i], selectors[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.ID < b.ID
	})

	winner := -1
	for _, s := range selectors {
		matched, err := e.matchConditions(s.Conditions, ctx)
		if err != nil {
			return sel, fmt.Errorf("selector %d: %w", s.ID, err)
		}
		scenario, known := byCode[s.Scenario]
		sel.Trace.Candidates = append(sel.Trace.Candidates, SelectorCandidate{
			SelectorID:      s.ID,
			Scenario:        s.Scenario,
			Priority:        s.Priority,
			Sequence:        s.Sequence,
			Stop:            s.Stop,
			Specificity:     conditionsSpecificity(s.Conditions),
			Matched:         matched,
			UnknownScenario: !known,
		})
		if !matched || !known {
			continue
		}
		sel.Scenario = scenario
		winner = len(sel.Trace.Candidates) - 1
		if s.Stop || e.Options.SelectorFirstMatchWins {
			break
		}
	}

	if winner >= 0 {
		sel.Trace.Candidates[winner].Winner = true
		sel.Trace.WinnerSelectorID = sel.Trace.Candidates[winner].SelectorID
	} else {
		for _, s := range scenarios {
			if s.IsDefault {
				sel.Scenario = s
				sel.Trace.Fallback = "default"
				break
			}
		}
		if sel.Scenario == nil && len(scenarios) > 0 {
			sel.Scenario = scenarios[0]
			sel.Trace.Fallback = "first_active"
		}
	}

	if sel.Scenario == nil {
		if strict {
			return sel, &domain.ConfigurationError{Reason: fmt.Sprintf("rulepack %s has no selectable scenario", pack.Code)}
		}
		return sel, nil
	}

	if name := sel.Scenario.StructureRule; name != "" {
		if rule, ok := e.Catalog.StructureRule(name); ok && !rule.Disabled {
			sel.StructureRule = rule
		}
	}
	if sel.StructureRule == nil && strict {
		return sel, &domain.ConfigurationError{Reason: fmt.Sprintf("scenario %s of rulepack %s has no structure rule", sel.Scenario.Code, pack.Code)}
	}
	return sel, nil
}

func activeScenarios(pack *domain.Rulepack) []*domain.Scenario {
	out := make([]*domain.Scenario, 0, len(pack.Scenarios))
	for i := range pack.Scenarios {
		if !pack.Scenarios[i].Disabled {
			out = append(out, &pack.Scenarios[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out
}
