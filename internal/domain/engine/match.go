package engine

import (
	"fmt"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// Specificity weights of each populated condition.
const (
	scoreMovement  = 30
	scoreKey       = 25
	scoreScenario  = 20
	scoreRegime    = 15
	scoreOperation = 10
	scoreVirtual   = 8
	scoreLineItem  = 5
	scoreTariff    = 22
	scoreChapter   = 12
)

func sameValue(want, got string) bool {
	return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

// matchConditions checks the shared context filters and the optional when
// expression.
func (e *Engine) matchConditions(c domain.Conditions, ctx EvalContext) (bool, error) {
	if !domain.IsWildcard(c.MovementType) && !sameValue(c.MovementType, ctx.MovementType) {
		return false, nil
	}
	if !domain.IsWildcard(string(c.OperationType)) && !sameValue(string(c.OperationType), string(ctx.OperationType)) {
		return false, nil
	}
	if !domain.IsWildcard(string(c.Regime)) && !sameValue(string(c.Regime), string(ctx.Regime)) {
		return false, nil
	}
	if !domain.IsWildcard(c.DeclarationKey) && !sameValue(c.DeclarationKey, ctx.DeclarationKey) {
		return false, nil
	}
	switch c.Virtual {
	case domain.VirtualYes:
		if !ctx.IsVirtual {
			return false, nil
		}
	case domain.VirtualNo:
		if ctx.IsVirtual {
			return false, nil
		}
	case domain.VirtualAny, "":
	}
	if len(c.When) == 0 {
		return true, nil
	}
	if e.Eval == nil {
		return false, fmt.Errorf("%w: no evaluator configured for when expressions", domain.ErrRuleExecutionFailed)
	}
	ok, err := e.Eval.Evaluate(c.When, ctx.Vars())
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrRuleExecutionFailed, err)
	}
	return ok, nil
}

// matchConditionRule adds the scenario and tariff filters of condition rules.
func (e *Engine) matchConditionRule(r domain.ConditionRule, ctx EvalContext) (bool, error) {
	if !domain.IsWildcard(r.Scenario) && !sameValue(r.Scenario, ctx.Scenario) {
		return false, nil
	}
	if code := strings.TrimSpace(r.TariffCode); code != "" {
		if !ctx.TariffCodes[code] {
			return false, nil
		}
	} else if ch := strings.TrimSpace(r.TariffChapter); ch != "" {
		if !ctx.Chapters[ch] {
			return false, nil
		}
	}
	return e.matchConditions(r.Conditions, ctx)
}

func conditionsSpecificity(c domain.Conditions) int {
	score := 0
	if !domain.IsWildcard(c.MovementType) {
		score += scoreMovement
	}
	if !domain.IsWildcard(c.DeclarationKey) {
		score += scoreKey
	}
	if !domain.IsWildcard(string(c.Regime)) {
		score += scoreRegime
	}
	if !domain.IsWildcard(string(c.OperationType)) {
		score += scoreOperation
	}
	if c.Virtual == domain.VirtualYes || c.Virtual == domain.VirtualNo {
		score += scoreVirtual
	}
	return score
}

func conditionRuleSpecificity(r domain.ConditionRule) int {
	score := conditionsSpecificity(r.Conditions)
	if !domain.IsWildcard(r.Scenario) {
		score += scoreScenario
	}
	if r.Scope.Normalize() == domain.ScopeLineItem {
		score += scoreLineItem
	}
	if strings.TrimSpace(r.TariffCode) != "" {
		score += scoreTariff
	} else if strings.TrimSpace(r.TariffChapter) != "" {
		score += scoreChapter
	}
	return score
}
