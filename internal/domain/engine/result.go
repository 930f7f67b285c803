package engine

import (
	"encoding/json"
	"time"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// RecordState is the resolved outcome for one record code in one scope.
type RecordState struct {
	Required   bool   `json:"required"`
	Forbidden  bool   `json:"forbidden"`
	Min        int    `json:"min"`
	Max        int    `json:"max"`
	Identifier string `json:"identifier,omitempty"`
}

// NormalizedRule is the common shape every rule source is reduced to before
// conflict resolution.
type NormalizedRule struct {
	RuleID        uint                `json:"rule_id"`
	Source        domain.Source       `json:"source"`
	SourceWeight  int                 `json:"source_weight"`
	Specificity   int                 `json:"specificity"`
	Priority      int                 `json:"priority"`
	Scope         domain.Scope        `json:"scope"`
	RecordCode    string              `json:"record_code"`
	Policy        domain.RecordPolicy `json:"policy"`
	Min           int                 `json:"min"`
	Max           int                 `json:"max"`
	Identifier    string              `json:"identifier,omitempty"`
	Stop          bool                `json:"stop,omitempty"`
	TariffCode    string              `json:"tariff_code,omitempty"`
	TariffChapter string              `json:"tariff_chapter,omitempty"`
}

// TraceRow is one normalized rule as seen by the fold.
type TraceRow struct {
	NormalizedRule
	Matched bool `json:"matched"`
	Applied bool `json:"applied"`
	Blocked bool `json:"blocked"`
}

// RecordResolution explains how one (record code, scope) group was decided.
type RecordResolution struct {
	RecordCode   string        `json:"record_code"`
	Scope        domain.Scope  `json:"scope"`
	BaseState    RecordState   `json:"base_state"`
	WinnerRuleID uint          `json:"winner_rule_id,omitempty"`
	WinnerSource domain.Source `json:"winner_source,omitempty"`
	Candidates   []TraceRow    `json:"candidates"`
	FinalState   RecordState   `json:"final_state"`
}

// SelectorCandidate is one selector considered during scenario selection.
type SelectorCandidate struct {
	SelectorID  uint   `json:"selector_id"`
	Scenario    string `json:"scenario"`
	Priority    int    `json:"priority"`
	Sequence    int    `json:"sequence"`
	Stop        bool   `json:"stop,omitempty"`
	Specificity int    `json:"specificity"`
	Matched     bool   `json:"matched"`
	Winner      bool   `json:"winner"`

	// UnknownScenario marks a selector whose scenario is missing or disabled
	// in the pack. Such a selector can match but never wins.
	UnknownScenario bool `json:"unknown_scenario,omitempty"`
}

type SelectorTrace struct {
	Candidates       []SelectorCandidate `json:"candidates"`
	WinnerSelectorID uint                `json:"winner_selector_id,omitempty"`
	Fallback         string              `json:"fallback,omitempty"`
}

// PlanDiff compares the structure-only baseline with the final plan.
type PlanDiff struct {
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
	Changed []StateChange `json:"changed"`
	// Patch is a JSON merge patch turning the baseline states into the final ones.
	Patch json.RawMessage `json:"patch,omitempty"`
}

type StateChange struct {
	Key  string      `json:"key"`
	From RecordState `json:"from"`
	To   RecordState `json:"to"`
}

// FieldDirective is a field-targeted condition rule that matched the context.
type FieldDirective struct {
	RuleID        uint               `json:"rule_id"`
	Scope         domain.Scope       `json:"scope"`
	RecordCode    string             `json:"record_code"`
	Field         string             `json:"field"`
	Policy        domain.FieldPolicy `json:"policy"`
	DefaultValue  string             `json:"default_value,omitempty"`
	TariffCode    string             `json:"tariff_code,omitempty"`
	TariffChapter string             `json:"tariff_chapter,omitempty"`
}

// RulepackRef identifies the rulepack a plan was built from.
type RulepackRef struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
}

// Plan is the outcome of one resolution pass over a declaration.
type Plan struct {
	Rulepack      *RulepackRef         `json:"rulepack,omitempty"`
	Strict        bool                 `json:"strict"`
	AsOf          time.Time            `json:"as_of"`
	Scenario      string               `json:"scenario"`
	StructureRule string               `json:"structure_rule,omitempty"`
	Weights       domain.SourceWeights `json:"weights"`

	States           map[string]RecordState      `json:"states"`
	BaseStates       map[string]RecordState      `json:"base_states"`
	Resolutions      map[string]RecordResolution `json:"resolutions"`
	LineItemPolicies []NormalizedRule            `json:"line_item_policies,omitempty"`
	FieldDirectives  []FieldDirective            `json:"field_directives,omitempty"`
	TraceRows        []TraceRow                  `json:"trace_rows"`
	Selector         SelectorTrace               `json:"selector"`
	Diff             PlanDiff                    `json:"diff"`
	ExecutionLog     []ExecutionStep             `json:"execution_log,omitempty"`

	// structureOrder keeps the structure line order for record preparation.
	structureOrder []string
}

// ResolutionKey builds the "code|scope" key used by Plan.Resolutions.
func ResolutionKey(code string, scope domain.Scope) string {
	return code + "|" + string(scope)
}
