package engine

import (
	"fmt"
	"sort"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// Prepare returns a copy of the declaration with empty records appended until
// every non-forbidden record reaches its minimum, plus the appended records.
// Codes follow the structure rule line order, then code order. Field defaults
// are applied to the records their directive targets.
func (e *Engine) Prepare(plan *Plan, decl *model.Declaration) (*model.Declaration, []model.Registro, error) {
	if plan.StructureRule == "" && len(plan.States) == 0 {
		return nil, nil, fmt.Errorf("%w: no structure rule exists for this context", domain.ErrNotFound)
	}
	order := map[string]int{}
	for i, code := range plan.structureOrder {
		if _, ok := order[code]; !ok {
			order[code] = i + 1
		}
	}
	codes := make([]string, 0, len(plan.States))
	for code := range plan.States {
		codes = append(codes, code)
	}
	rank := func(code string) int {
		if r, ok := order[code]; ok {
			return r
		}
		return 9999
	}
	sort.Slice(codes, func(i, j int) bool {
		if rank(codes[i]) != rank(codes[j]) {
			return rank(codes[i]) < rank(codes[j])
		}
		return codes[i] < codes[j]
	})

	out := *decl
	out.Records = append([]model.Registro(nil), decl.Records...)
	counts := decl.CountByCode()
	for _, code := range codes {
		state := plan.States[code]
		if state.Forbidden {
			continue
		}
		need := nonNegative(state.Min)
		if state.Required {
			need = max(need, 1)
		}
		for seq := counts[code] + 1; seq <= need; seq++ {
			out.Records = append(out.Records, model.Registro{Code: code, Sequence: seq, Payload: map[string]any{}})
		}
	}
	applyFieldDefaults(plan.FieldDirectives, out.Records, e.lineItemMetas(&out))
	return &out, out.Records[len(decl.Records):], nil
}

// applyFieldDefaults fills empty fields targeted by default_field directives.
func applyFieldDefaults(directives []FieldDirective, records []model.Registro, metas map[int]lineItemMeta) {
	for _, d := range directives {
		if d.Policy != domain.FieldDefault {
			continue
		}
		for i := range records {
			r := &records[i]
			if _, ok := d.appliesTo(*r, metas); !ok || r.FieldValue(d.Field) != "" {
				continue
			}
			if r.Payload == nil {
				r.Payload = map[string]any{}
			} else {
				r.Payload = clonePayload(r.Payload)
			}
			r.Payload[d.Field] = d.DefaultValue
		}
	}
}

func clonePayload(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Simulation summarizes how far the captured records are from the plan
// without changing anything.
type Simulation struct {
	StructureRule    string   `json:"structure_rule,omitempty"`
	Scenario         string   `json:"scenario"`
	Missing          []string `json:"missing"`
	ForbiddenPresent []string `json:"forbidden_present"`
	Errors           []string `json:"errors,omitempty"`
}

func (e *Engine) Simulate(plan *Plan, decl *model.Declaration) Simulation {
	sim := Simulation{StructureRule: plan.StructureRule, Scenario: plan.Scenario, Missing: []string{}, ForbiddenPresent: []string{}}
	counts := decl.CountByCode()
	codes := make([]string, 0, len(plan.States))
	for code := range plan.States {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		state := plan.States[code]
		present := counts[code]
		if state.Forbidden {
			if present > 0 {
				sim.ForbiddenPresent = append(sim.ForbiddenPresent, fmt.Sprintf("%s(%d)", code, present))
			}
			continue
		}
		need := nonNegative(state.Min)
		if state.Required {
			need = max(need, 1)
		}
		if need > 0 && present < need {
			sim.Missing = append(sim.Missing, fmt.Sprintf("%s(%d/%d)", code, present, need))
		}
	}
	if len(sim.Missing) > 0 {
		sim.Errors = append(sim.Errors, "required records are missing")
	}
	if len(sim.ForbiddenPresent) > 0 {
		sim.Errors = append(sim.Errors, "forbidden records are captured")
	}
	return sim
}

// AllowedCodes lists the codes the layout may emit. Without a structure rule
// nothing is restricted and the boolean is false.
func AllowedCodes(plan *Plan) ([]string, bool) {
	if plan.StructureRule == "" {
		return nil, false
	}
	var codes []string
	for code, state := range plan.States {
		if !state.Forbidden {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return nil, false
	}
	sort.Strings(codes)
	return codes, true
}
