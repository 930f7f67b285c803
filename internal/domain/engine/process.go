package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

var digitRun = regexp.MustCompile(`\d+`)

// StageRules returns the enabled process rules of the declaration's rulepack
// for stage that match its context, in (priority desc, specificity desc,
// sequence, id) order.
func (e *Engine) StageRules(decl *model.Declaration, stage domain.Stage) ([]domain.ProcessRule, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidArgument, stage)
	}
	pack, err := e.ResolveRulepack(decl, e.StrictMode(decl))
	if err != nil || pack == nil {
		return nil, err
	}
	ctx := e.BuildContext(decl, "")
	var rules []domain.ProcessRule
	for _, r := range pack.ProcessRules {
		if !r.Disabled && r.Stage == stage {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		sa, sb := conditionsSpecificity(a.Conditions), conditionsSpecificity(b.Conditions)
		if sa != sb {
			return sa > sb
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.ID < b.ID
	})
	matched := rules[:0]
	for _, r := range rules {
		ok, err := e.matchConditions(r.Conditions, ctx)
		if err != nil {
			return nil, fmt.Errorf("process rule %q: %w", r.Name, err)
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// CheckStage runs the stage's process rules against the declaration header.
// A rule with stop ends the stage after it has been checked.
func (e *Engine) CheckStage(decl *model.Declaration, stage domain.Stage) error {
	rules, err := e.StageRules(decl, stage)
	if err != nil {
		return err
	}
	var violations []domain.Violation
	fail := func(format string, args ...any) {
		violations = append(violations, domain.Violation{Kind: domain.ViolationProcess, Message: fmt.Sprintf(format, args...)})
	}
	for _, r := range rules {
		switch r.Action {
		case domain.ActionRequirePaymentMethods:
			allowed := payloadStrings(r.Payload, "allowed")
			current := PaymentMethodCodes(decl.PaymentMethods)
			if len(current) == 0 {
				fail("rule %s: payment methods must be captured", r.Name)
				break
			}
			if len(allowed) > 0 {
				permitted := map[string]bool{}
				for _, a := range allowed {
					permitted[a] = true
				}
				var invalid []string
				for _, c := range current {
					if !permitted[c] {
						invalid = append(invalid, c)
					}
				}
				if len(invalid) > 0 {
					sortNumeric(allowed)
					fail("rule %s: allowed payment methods %s, not allowed: %s", r.Name, strings.Join(allowed, ", "), strings.Join(invalid, ", "))
				}
			}
		case domain.ActionRequireField:
			if field := payloadString(r.Payload, "field"); field != "" && !decl.FieldPresent(field) {
				fail("rule %s: field %s is required", r.Name, field)
			}
		case domain.ActionForbidField:
			if field := payloadString(r.Payload, "field"); field != "" && decl.FieldPresent(field) {
				fail("rule %s: field %s must be empty", r.Name, field)
			}
		case domain.ActionAllowOnlyRecords:
			// consumed by StageAllowedCodes
		}
		if r.Stop {
			break
		}
	}
	if len(violations) > 0 {
		return &domain.StageError{Stage: stage, Violations: violations}
	}
	return nil
}

// StageAllowedCodes intersects the allow_only_records lists of the stage. The
// boolean is false when no such rule applies, meaning every code is allowed.
func (e *Engine) StageAllowedCodes(decl *model.Declaration, stage domain.Stage) (map[string]bool, bool, error) {
	rules, err := e.StageRules(decl, stage)
	if err != nil {
		return nil, false, err
	}
	var allowed map[string]bool
	for _, r := range rules {
		if r.Action != domain.ActionAllowOnlyRecords {
			continue
		}
		codes := map[string]bool{}
		for _, c := range payloadStrings(r.Payload, "codes") {
			codes[domain.NormalizeRecordCode(c)] = true
		}
		if allowed == nil {
			allowed = codes
		} else {
			for c := range allowed {
				if !codes[c] {
					delete(allowed, c)
				}
			}
		}
		if r.Stop {
			break
		}
	}
	return allowed, allowed != nil, nil
}

// PaymentMethodCodes extracts the distinct numeric codes from the captured
// payment methods, sorted numerically.
func PaymentMethodCodes(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range raw {
		for _, tok := range digitRun.FindAllString(s, -1) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	sortNumeric(out)
	return out
}

func sortNumeric(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		a, errA := strconv.Atoi(values[i])
		b, errB := strconv.Atoi(values[j])
		if errA != nil || errB != nil {
			return values[i] < values[j]
		}
		return a < b
	})
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func payloadStrings(payload map[string]any, key string) []string {
	var out []string
	switch v := payload[key].(type) {
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
