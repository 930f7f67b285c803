package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// applyRule folds one normalized rule into a record state. Forbidden wins
// over everything folded before or after it.
func applyRule(state *RecordState, r NormalizedRule) {
	given := nonNegative(r.Min)
	switch r.Policy {
	case domain.PolicyForbidden:
		state.Forbidden = true
		state.Required = false
		state.Min = 0
		state.Max = 0
	case domain.PolicyRequired:
		if !state.Forbidden {
			state.Required = true
			state.Min = max(state.Min, max(given, 1))
		}
	case domain.PolicyOptional:
		if !state.Forbidden {
			state.Min = max(state.Min, given)
		}
	}
	if m := nonNegative(r.Max); m > 0 && !state.Forbidden {
		if state.Max == 0 {
			state.Max = m
		} else {
			state.Max = min(state.Max, m)
		}
	}
	if r.Identifier != "" {
		state.Identifier = r.Identifier
	}
}

func settle(state *RecordState) {
	if state.Forbidden {
		state.Required = false
		state.Min = 0
		state.Max = 0
	}
}

type groupKey struct {
	code  string
	scope domain.Scope
}

// Resolve runs a full resolution pass: rulepack, scenario, structure rule,
// normalization and the per-record fold.
func (e *Engine) Resolve(decl *model.Declaration) (*Plan, error) {
	if decl == nil {
		return nil, fmt.Errorf("%w: declaration is required", domain.ErrInvalidArgument)
	}
	strict := e.StrictMode(decl)
	plan := &Plan{
		Strict:      strict,
		AsOf:        e.AsOf(decl),
		States:      map[string]RecordState{},
		BaseStates:  map[string]RecordState{},
		Resolutions: map[string]RecordResolution{},
	}
	logStep := func(phase PipelinePhase, format string, args ...any) {
		plan.ExecutionLog = append(plan.ExecutionLog, ExecutionStep{Phase: phase, Message: fmt.Sprintf(format, args...)})
	}

	pack, err := e.ResolveRulepack(decl, strict)
	if err != nil {
		return nil, err
	}
	plan.Weights = pack.SourceWeights()
	if pack != nil {
		plan.Rulepack = &RulepackRef{ID: pack.ID, Code: pack.Code}
		logStep(PhaseRulepack, "rulepack %s (priority %d)", pack.Code, pack.Priority)
	} else {
		logStep(PhaseRulepack, "no rulepack applies, using legacy detection")
	}

	baseCtx := e.BuildContext(decl, "")
	var sel Selection
	if pack != nil {
		sel, err = e.SelectScenario(pack, baseCtx, strict)
		if err != nil {
			return nil, err
		}
		plan.Selector = sel.Trace
	}
	if sel.Scenario != nil {
		plan.Scenario = sel.Scenario.Code
		logStep(PhaseSelector, "scenario %s (selector %d)", plan.Scenario, sel.Trace.WinnerSelectorID)
	} else {
		plan.Scenario = e.detectScenario(baseCtx)
		logStep(PhaseSelector, "scenario %s detected from declaration key", plan.Scenario)
	}
	ctx := e.BuildContext(decl, plan.Scenario)

	structure, err := e.structureRule(decl, sel, ctx, strict)
	if err != nil {
		return nil, err
	}
	if structure != nil {
		plan.StructureRule = structure.Name
		logStep(PhaseStructure, "structure rule %s", structure.Name)
	} else {
		logStep(PhaseStructure, "no structure rule, empty baseline")
	}

	normalized := normalizeStructure(structure, plan.Weights.Structure)
	for _, n := range normalized {
		plan.structureOrder = append(plan.structureOrder, n.RecordCode)
	}
	keyRules, err := e.normalizeKeyPolicies(ctx.DeclarationKey, plan.Weights.KeyPolicy)
	if err != nil {
		return nil, err
	}
	normalized = append(normalized, keyRules...)
	condRules, err := e.matchingConditionRules(pack, ctx)
	if err != nil {
		return nil, err
	}
	condNormalized, directives, err := normalizeConditions(condRules, plan.Weights.Condition)
	if err != nil {
		return nil, err
	}
	normalized = append(normalized, condNormalized...)
	plan.FieldDirectives = directives
	logStep(PhaseNormalize, "%d record rules, %d field directives", len(normalized), len(directives))

	e.fold(plan, normalized)
	logStep(PhaseFold, "%d records resolved, %d line item policies", len(plan.States), len(plan.LineItemPolicies))

	if err := e.diff(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// structureRule picks the pinned rule, then the scenario's rule, then the
// legacy search. In strict mode the legacy search is never reached.
func (e *Engine) structureRule(decl *model.Declaration, sel Selection, ctx EvalContext, strict bool) (*domain.StructureRule, error) {
	if name := strings.TrimSpace(decl.StructureRule); name != "" {
		if r, ok := e.Catalog.StructureRule(name); ok {
			return r, nil
		}
		if strict {
			return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("pinned structure rule %q does not exist", name)}
		}
	}
	if sel.StructureRule != nil {
		return sel.StructureRule, nil
	}
	if strict {
		return nil, &domain.ConfigurationError{Reason: "could not resolve a structure rule"}
	}
	if ctx.MovementType == "" {
		return nil, nil
	}
	return e.findStructureRule(ctx), nil
}

func (e *Engine) fold(plan *Plan, normalized []NormalizedRule) {
	for _, n := range normalized {
		if n.Source != domain.SourceStructure || n.Scope != domain.ScopeDeclaration {
			continue
		}
		state := plan.BaseStates[n.RecordCode]
		applyRule(&state, n)
		plan.BaseStates[n.RecordCode] = state
	}

	groups := map[groupKey][]NormalizedRule{}
	for _, n := range normalized {
		k := groupKey{code: n.RecordCode, scope: n.Scope}
		groups[k] = append(groups[k], n)
	}
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].code != keys[j].code {
			return keys[i].code < keys[j].code
		}
		return keys[i].scope < keys[j].scope
	})

	for _, k := range keys {
		items := groups[k]
		sortRules(items)
		if k.scope == domain.ScopeLineItem {
			plan.LineItemPolicies = append(plan.LineItemPolicies, items...)
			continue
		}
		base := plan.BaseStates[k.code]
		state := base
		res := RecordResolution{RecordCode: k.code, Scope: k.scope, BaseState: base}
		blocked, decided := false, false
		for _, item := range items {
			row := TraceRow{NormalizedRule: item, Matched: true}
			if blocked {
				row.Blocked = true
				res.Candidates = append(res.Candidates, row)
				continue
			}
			applyRule(&state, item)
			row.Applied = true
			res.Candidates = append(res.Candidates, row)
			if !decided {
				decided = true
				res.WinnerRuleID = item.RuleID
				res.WinnerSource = item.Source
			}
			if item.Stop {
				blocked = true
			}
		}
		settle(&state)
		res.FinalState = state
		plan.States[k.code] = state
		plan.Resolutions[ResolutionKey(k.code, k.scope)] = res
		plan.TraceRows = append(plan.TraceRows, res.Candidates...)
	}
	sortRules(plan.LineItemPolicies)
}

func (e *Engine) diff(plan *Plan) error {
	d := PlanDiff{Added: []string{}, Removed: []string{}, Changed: []StateChange{}}
	for code := range plan.States {
		if _, ok := plan.BaseStates[code]; !ok {
			d.Added = append(d.Added, code)
		}
	}
	for code, base := range plan.BaseStates {
		final, ok := plan.States[code]
		if !ok {
			d.Removed = append(d.Removed, code)
			continue
		}
		if final != base {
			d.Changed = append(d.Changed, StateChange{Key: ResolutionKey(code, domain.ScopeDeclaration), From: base, To: final})
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Key < d.Changed[j].Key })
	if e.Differ != nil {
		patch, err := e.Differ.Diff(plan.BaseStates, plan.States)
		if err != nil {
			return fmt.Errorf("diff record states: %w", err)
		}
		d.Patch = patch
	}
	plan.Diff = d
	return nil
}
