package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// normalizeStructure turns the structure rule lines into normalized rules.
// They carry no priority and no specificity.
func normalizeStructure(rule *domain.StructureRule, weight int) []NormalizedRule {
	if rule == nil {
		return nil
	}
	lines := append([]domain.StructureRuleLine(nil), rule.Lines...)
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Sequence != lines[j].Sequence {
			return lines[i].Sequence < lines[j].Sequence
		}
		return lines[i].ID < lines[j].ID
	})
	out := make([]NormalizedRule, 0, len(lines))
	for _, l := range lines {
		code := domain.NormalizeRecordCode(l.RecordCode)
		if code == "" {
			continue
		}
		n := NormalizedRule{
			RuleID:       l.ID,
			Source:       domain.SourceStructure,
			SourceWeight: weight,
			Scope:        domain.ScopeDeclaration,
			RecordCode:   code,
			Policy:       domain.PolicyOptional,
			Min:          nonNegative(l.MinOccurs),
			Max:          nonNegative(l.MaxOccurs),
		}
		if l.Required {
			n.Policy = domain.PolicyRequired
			n.Min = max(n.Min, 1)
		}
		out = append(out, n)
	}
	return out
}

// normalizeKeyPolicies reads the record policies of the declaration key.
func (e *Engine) normalizeKeyPolicies(keyCode string, weight int) ([]NormalizedRule, error) {
	key, ok := e.Catalog.DeclarationKey(keyCode)
	if !ok || key.Disabled {
		return nil, nil
	}
	lines := append([]domain.KeyPolicyLine(nil), key.Policies...)
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.ID < b.ID
	})
	out := make([]NormalizedRule, 0, len(lines))
	for _, l := range lines {
		code := domain.NormalizeRecordCode(l.RecordCode)
		if code == "" {
			continue
		}
		if !l.Policy.Valid() {
			return nil, fmt.Errorf("%w: declaration key %s: unknown policy %q for record %s", domain.ErrInvalidArgument, key.Code, l.Policy, code)
		}
		scope := l.Scope.Normalize()
		spec := 0
		if scope == domain.ScopeLineItem {
			spec = scoreLineItem
		}
		out = append(out, NormalizedRule{
			RuleID:       l.ID,
			Source:       domain.SourceKeyPolicy,
			SourceWeight: weight,
			Specificity:  spec,
			Priority:     l.Priority,
			Scope:        scope,
			RecordCode:   code,
			Policy:       l.Policy,
			Min:          nonNegative(l.MinOccurs),
			Max:          nonNegative(l.MaxOccurs),
			Identifier:   domain.NormalizeIdentifier(l.RequiredIdentifier),
			Stop:         l.Stop,
		})
	}
	return out, nil
}

// matchingConditionRules returns the enabled condition rules of the pack that
// match ctx, in (priority desc, sequence, id) order.
func (e *Engine) matchingConditionRules(pack *domain.Rulepack, ctx EvalContext) ([]domain.ConditionRule, error) {
	if pack == nil {
		return nil, nil
	}
	rules := make([]domain.ConditionRule, 0, len(pack.ConditionRules))
	for _, r := range pack.ConditionRules {
		if !r.Disabled {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.ID < b.ID
	})
	matched := rules[:0]
	for _, r := range rules {
		ok, err := e.matchConditionRule(r, ctx)
		if err != nil {
			return nil, fmt.Errorf("condition rule %q: %w", r.Name, err)
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// normalizeConditions splits matched condition rules into record rules and
// field directives.
func normalizeConditions(rules []domain.ConditionRule, weight int) ([]NormalizedRule, []FieldDirective, error) {
	var records []NormalizedRule
	var fields []FieldDirective
	for _, r := range rules {
		code := domain.NormalizeRecordCode(r.RecordCode)
		if code == "" {
			continue
		}
		if r.IsFieldRule() {
			if !r.FieldPolicy.Valid() {
				return nil, nil, fmt.Errorf("%w: condition rule %q: unknown field policy %q", domain.ErrInvalidArgument, r.Name, r.FieldPolicy)
			}
			fields = append(fields, FieldDirective{
				RuleID:        r.ID,
				Scope:         r.Scope.Normalize(),
				RecordCode:    code,
				Field:         strings.TrimSpace(r.FieldName),
				Policy:        r.FieldPolicy,
				DefaultValue:  r.DefaultValue,
				TariffCode:    strings.TrimSpace(r.TariffCode),
				TariffChapter: strings.TrimSpace(r.TariffChapter),
			})
			continue
		}
		policy := r.Policy
		if policy == "" {
			policy = domain.PolicyRequired
		}
		if !policy.Valid() {
			return nil, nil, fmt.Errorf("%w: condition rule %q: unknown policy %q", domain.ErrInvalidArgument, r.Name, policy)
		}
		records = append(records, NormalizedRule{
			RuleID:        r.ID,
			Source:        domain.SourceCondition,
			SourceWeight:  weight,
			Specificity:   conditionRuleSpecificity(r),
			Priority:      r.Priority,
			Scope:         r.Scope.Normalize(),
			RecordCode:    code,
			Policy:        policy,
			Min:           nonNegative(r.MinOccurs),
			Max:           nonNegative(r.MaxOccurs),
			Identifier:    domain.NormalizeIdentifier(r.RequiredIdentifier),
			Stop:          r.Stop,
			TariffCode:    strings.TrimSpace(r.TariffCode),
			TariffChapter: strings.TrimSpace(r.TariffChapter),
		})
	}
	return records, fields, nil
}

// sourceRank breaks rule id ties between sources deterministically.
func sourceRank(s domain.Source) int {
	switch s {
	case domain.SourceCondition:
		return 0
	case domain.SourceKeyPolicy:
		return 1
	case domain.SourceStructure:
		return 2
	}
	return 3
}

// ruleLess orders normalized rules for conflict resolution:
// priority desc, specificity desc, source weight desc, rule id asc.
func ruleLess(a, b NormalizedRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Specificity != b.Specificity {
		return a.Specificity > b.Specificity
	}
	if a.SourceWeight != b.SourceWeight {
		return a.SourceWeight > b.SourceWeight
	}
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	return sourceRank(a.Source) < sourceRank(b.Source)
}

func sortRules(rules []NormalizedRule) {
	sort.SliceStable(rules, func(i, j int) bool { return ruleLess(rules[i], rules[j]) })
}
