package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// Report is the outcome of checking the captured records against a plan.
type Report struct {
	Violations []domain.Violation `json:"violations"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// Err returns the aggregated validation error, or nil when the records comply.
func (r Report) Err() error {
	if len(r.Violations) == 0 {
		return nil
	}
	return &domain.ValidationError{Violations: r.Violations}
}

type lineItemMeta struct {
	tariff  string
	chapter string
}

// Validate checks occurrences, forbidden records and identifiers at declaration
// level and per line item, plus the field directives. Every finding is kept.
func (e *Engine) Validate(plan *Plan, decl *model.Declaration) Report {
	var rep Report
	counts := decl.CountByCode()

	codes := make([]string, 0, len(plan.States))
	for code := range plan.States {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		state := plan.States[code]
		present := counts[code]
		rep.Violations = append(rep.Violations, checkState(state, code, present, 0, func(id string) bool {
			return anyRecordHasToken(decl.Records, code, 0, id)
		})...)
	}

	if len(plan.LineItemPolicies) > 0 {
		rep.Violations = append(rep.Violations, e.validateLineItems(plan, decl)...)
	}

	fieldViolations, warnings := e.validateFields(plan, decl)
	rep.Violations = append(rep.Violations, fieldViolations...)
	rep.Warnings = warnings
	return rep
}

// checkState compares one resolved state with the captured count. lineItem is
// zero for declaration-level checks.
func checkState(state RecordState, code string, present, lineItem int, hasToken func(string) bool) []domain.Violation {
	prefix := ""
	if lineItem > 0 {
		prefix = fmt.Sprintf("line item %d: ", lineItem)
	}
	violation := func(kind domain.ViolationKind, format string, args ...any) domain.Violation {
		return domain.Violation{Kind: kind, RecordCode: code, LineItem: lineItem, Message: prefix + fmt.Sprintf(format, args...)}
	}

	if state.Forbidden {
		if present > 0 {
			return []domain.Violation{violation(domain.ViolationForbidden, "record %s is forbidden for this context, found %d", code, present)}
		}
		return nil
	}

	var out []domain.Violation
	minOcc, maxOcc := nonNegative(state.Min), nonNegative(state.Max)
	if state.Required && present < max(minOcc, 1) {
		out = append(out, violation(domain.ViolationMissing, "missing record %s (min %d, actual %d)", code, max(minOcc, 1), present))
	} else if minOcc > 0 && present < minOcc {
		out = append(out, violation(domain.ViolationMissing, "missing record %s (min %d, actual %d)", code, minOcc, present))
	}
	if maxOcc > 0 && present > maxOcc {
		out = append(out, violation(domain.ViolationExcess, "record %s exceeds maximum (%d > %d)", code, present, maxOcc))
	}
	if id := domain.NormalizeIdentifier(state.Identifier); id != "" && present > 0 && !hasToken(id) {
		out = append(out, violation(domain.ViolationIdentifier, "record %s requires identifier %s", code, id))
	}
	return out
}

// anyRecordHasToken looks for the identifier in the records of code, limited
// to one line item when lineItem is positive.
func anyRecordHasToken(records []model.Registro, code string, lineItem int, token string) bool {
	for _, r := range records {
		if domain.NormalizeRecordCode(r.Code) != code {
			continue
		}
		if lineItem > 0 {
			if n, ok := r.LineItemNumber(); !ok || n != lineItem {
				continue
			}
		}
		if r.HasToken(token) {
			return true
		}
	}
	return false
}

// LineItemNumbers returns the line item numbers to validate: the explicit line
// items, otherwise the numbers referenced by record payloads.
func LineItemNumbers(decl *model.Declaration) []int {
	seen := map[int]bool{}
	for _, li := range decl.LineItems {
		if li.Number > 0 {
			seen[li.Number] = true
		}
	}
	if len(seen) == 0 {
		for _, r := range decl.Records {
			if n, ok := r.LineItemNumber(); ok && n > 0 {
				seen[n] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func (e *Engine) lineItemMetas(decl *model.Declaration) map[int]lineItemMeta {
	metas := make(map[int]lineItemMeta, len(decl.LineItems))
	for _, li := range decl.LineItems {
		if li.Number <= 0 {
			continue
		}
		metas[li.Number] = lineItemMeta{tariff: strings.TrimSpace(li.TariffCode), chapter: e.lineItemChapter(li)}
	}
	return metas
}

func policyAppliesTo(tariff, chapter string, meta lineItemMeta) bool {
	if tariff != "" && tariff != meta.tariff {
		return false
	}
	if chapter != "" && chapter != meta.chapter {
		return false
	}
	return true
}

// appliesTo reports whether the directive targets record r, honouring the
// line item scope and the tariff filters. It returns the record's line item.
func (d FieldDirective) appliesTo(r model.Registro, metas map[int]lineItemMeta) (int, bool) {
	if domain.NormalizeRecordCode(r.Code) != d.RecordCode {
		return 0, false
	}
	n, hasLine := r.LineItemNumber()
	if d.TariffCode != "" || d.TariffChapter != "" {
		if !hasLine || !policyAppliesTo(d.TariffCode, d.TariffChapter, metas[n]) {
			return n, false
		}
	}
	if d.Scope == domain.ScopeLineItem && !hasLine {
		return n, false
	}
	return n, true
}

func (e *Engine) validateLineItems(plan *Plan, decl *model.Declaration) []domain.Violation {
	numbers := LineItemNumbers(decl)
	if len(numbers) == 0 {
		return []domain.Violation{{
			Kind:    domain.ViolationConfiguration,
			Message: "line item rules exist but no line item number was captured in line items or records",
		}}
	}
	metas := e.lineItemMetas(decl)

	type countKey struct {
		number int
		code   string
	}
	counts := map[countKey]int{}
	for _, r := range decl.Records {
		n, ok := r.LineItemNumber()
		if !ok {
			continue
		}
		counts[countKey{n, domain.NormalizeRecordCode(r.Code)}]++
	}

	var out []domain.Violation
	for _, number := range numbers {
		meta := metas[number]
		states := map[string]*RecordState{}
		blocked := map[string]bool{}
		for _, p := range plan.LineItemPolicies {
			if blocked[p.RecordCode] || !policyAppliesTo(p.TariffCode, p.TariffChapter, meta) {
				continue
			}
			state, ok := states[p.RecordCode]
			if !ok {
				state = &RecordState{}
				states[p.RecordCode] = state
			}
			applyRule(state, p)
			if p.Stop {
				blocked[p.RecordCode] = true
			}
		}

		codes := make([]string, 0, len(states))
		for code := range states {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			state := *states[code]
			settle(&state)
			out = append(out, checkState(state, code, counts[countKey{number, code}], number, func(id string) bool {
				return anyRecordHasToken(decl.Records, code, number, id)
			})...)
		}
	}
	return out
}

// validateFields enforces require_field and forbid_field directives on every
// captured instance of the record, and collects warn_field notices.
func (e *Engine) validateFields(plan *Plan, decl *model.Declaration) ([]domain.Violation, []string) {
	if len(plan.FieldDirectives) == 0 {
		return nil, nil
	}
	metas := e.lineItemMetas(decl)
	var out []domain.Violation
	var warnings []string
	for _, d := range plan.FieldDirectives {
		for _, r := range decl.Records {
			n, ok := d.appliesTo(r, metas)
			if !ok {
				continue
			}
			value := r.FieldValue(d.Field)
			v := domain.Violation{Kind: domain.ViolationField, RecordCode: d.RecordCode, LineItem: n}
			switch d.Policy {
			case domain.FieldRequire:
				if value == "" {
					v.Message = fmt.Sprintf("record %s (sequence %d): field %s is required", d.RecordCode, r.Sequence, d.Field)
					out = append(out, v)
				}
			case domain.FieldForbid:
				if value != "" {
					v.Message = fmt.Sprintf("record %s (sequence %d): field %s must be empty", d.RecordCode, r.Sequence, d.Field)
					out = append(out, v)
				}
			case domain.FieldWarn:
				if value == "" {
					warnings = append(warnings, fmt.Sprintf("record %s (sequence %d): field %s is empty", d.RecordCode, r.Sequence, d.Field))
				}
			case domain.FieldDefault:
				// applied while preparing records
			}
		}
	}
	return out, warnings
}
