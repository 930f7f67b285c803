package engine

import (
	"time"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

type evalFunc func(expr, vars map[string]any) (bool, error)

func (f evalFunc) Evaluate(expr, vars map[string]any) (bool, error) { return f(expr, vars) }

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// testCatalog holds an A1 import key, a transit key and one rulepack with two
// scenarios backed by structure rules.
func testCatalog() *domain.Catalog {
	cat := &domain.Catalog{
		MovementTypes: []domain.MovementType{{ID: 1, Code: "1", Name: "Alta"}},
		DeclarationKeys: []domain.DeclarationKey{
			{ID: 1, Code: "A1", OperationType: domain.OperationImport, Regime: domain.RegimeDefinitive, DefaultMovementType: "1", StructureType: "normal"},
			{ID: 2, Code: "T1", Regime: domain.RegimeTransit, DefaultMovementType: "1", StructureType: "auto"},
		},
		TariffItems: []domain.TariffItem{{ID: 1, Code: "84713001", Chapter: "84"}},
		StructureRules: []domain.StructureRule{
			{ID: 1, Name: "normal-base", MovementType: "1", Scenario: "normal", Lines: []domain.StructureRuleLine{
				{ID: 1, Sequence: 1, RecordCode: "500", Required: true, MinOccurs: 1, MaxOccurs: 1},
				{ID: 2, Sequence: 2, RecordCode: "501", Required: true},
				{ID: 3, Sequence: 3, RecordCode: "502", Required: true, MinOccurs: 1},
				{ID: 4, Sequence: 4, RecordCode: "505"},
			}},
			{ID: 2, Name: "transit-base", MovementType: "1", Scenario: "transito", Lines: []domain.StructureRuleLine{
				{ID: 5, Sequence: 1, RecordCode: "500", Required: true},
				{ID: 6, Sequence: 2, RecordCode: "501", Required: true},
			}},
		},
		Rulepacks: []domain.Rulepack{{
			ID: 1, Code: "RP-2026", State: domain.StateActive, ValidFrom: day("2026-01-01"),
			Scenarios: []domain.Scenario{
				{ID: 1, Code: "normal", IsDefault: true, StructureRule: "normal-base"},
				{ID: 2, Code: "transito", StructureRule: "transit-base", Sequence: 1},
			},
			Selectors: []domain.Selector{
				{ID: 1, Priority: 10, Scenario: "transito", Conditions: domain.Conditions{Regime: domain.RegimeTransit}},
			},
		}},
	}
	return cat.Reindex()
}

func testEngine(cat *domain.Catalog) *Engine {
	return New(cat, nil, nil, Options{Clock: func() time.Time { return day("2026-06-15") }})
}

func importDecl(records ...model.Registro) *model.Declaration {
	return &model.Declaration{
		ID:             "PED-1",
		MovementType:   "1",
		OperationType:  domain.OperationImport,
		Regime:         domain.RegimeDefinitive,
		DeclarationKey: "A1",
		AsOf:           day("2026-06-15"),
		Records:        records,
	}
}

func rec(code string, seq int, payload map[string]any) model.Registro {
	return model.Registro{Code: code, Sequence: seq, Payload: payload}
}

var propertyPolicies = []domain.RecordPolicy{domain.PolicyRequired, domain.PolicyOptional, domain.PolicyForbidden}

// rulesFromSeeds decodes each seed into a condition rule over records 500-503.
func rulesFromSeeds(seeds []int) []domain.ConditionRule {
	rules := make([]domain.ConditionRule, 0, len(seeds))
	for i, v := range seeds {
		rules = append(rules, domain.ConditionRule{
			ID:         uint(i + 1),
			Name:       "generated",
			RecordCode: []string{"500", "501", "502", "503"}[v%4],
			Target:     domain.TargetRecord,
			Policy:     propertyPolicies[(v/4)%3],
			Stop:       (v/12)%2 == 1,
			Priority:   (v / 24) % 5,
			MinOccurs:  (v / 120) % 3,
			MaxOccurs:  (v / 360) % 3,
		})
	}
	return rules
}

func propertyEngine(rules []domain.ConditionRule) *Engine {
	cat := testCatalog()
	cat.Rulepacks[0].ConditionRules = rules
	return testEngine(cat)
}
