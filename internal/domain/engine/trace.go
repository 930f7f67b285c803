package engine

import (
	"time"
)

// TraceMeta heads a trace document.
type TraceMeta struct {
	DeclarationID string `json:"declaration_id"`
	RulepackID    uint   `json:"rulepack_id,omitempty"`
	RulepackCode  string `json:"rulepack_code,omitempty"`
	Scenario      string `json:"scenario"`
	StructureRule string `json:"structure_rule,omitempty"`
	StrictMode    bool   `json:"strict_mode"`
	AsOf          string `json:"as_of"`
	TraceRows     int    `json:"trace_rows"`
	Truncated     bool   `json:"truncated"`
}

// TraceDocument is the explainability snapshot of one resolution pass. It
// holds no wall-clock time, so the same inputs always yield the same document.
type TraceDocument struct {
	Meta             TraceMeta                   `json:"meta"`
	SelectorTrace    SelectorTrace               `json:"selector_trace"`
	WinnerSelectorID uint                        `json:"winner_selector_id,omitempty"`
	Records          map[string]RecordResolution `json:"record_resolution"`
	Diff             PlanDiff                    `json:"diff_base_final"`
	States           map[string]RecordState      `json:"states"`
	Trace            []TraceRow                  `json:"trace"`
	Errors           []string                    `json:"errors"`
}

// BuildTrace snapshots the plan, keeping at most limit trace rows.
func BuildTrace(declarationID string, plan *Plan, errs []string, limit int) TraceDocument {
	if limit <= 0 {
		limit = DefaultTraceLimit
	}
	rows := plan.TraceRows
	truncated := len(rows) > limit
	if truncated {
		rows = rows[:limit]
	}
	doc := TraceDocument{
		Meta: TraceMeta{
			DeclarationID: declarationID,
			Scenario:      plan.Scenario,
			StructureRule: plan.StructureRule,
			StrictMode:    plan.Strict,
			AsOf:          plan.AsOf.Format(time.DateOnly),
			TraceRows:     len(rows),
			Truncated:     truncated,
		},
		SelectorTrace:    plan.Selector,
		WinnerSelectorID: plan.Selector.WinnerSelectorID,
		Records:          plan.Resolutions,
		Diff:             plan.Diff,
		States:           plan.States,
		Trace:            append([]TraceRow(nil), rows...),
		Errors:           append([]string{}, errs...),
	}
	if plan.Rulepack != nil {
		doc.Meta.RulepackID = plan.Rulepack.ID
		doc.Meta.RulepackCode = plan.Rulepack.Code
	}
	return doc
}
