package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Rulepack is a versioned, dated bundle of normative rules. Scenarios,
// selectors, process rules and condition rules are owned by the pack and
// deleted with it.
type Rulepack struct {
	ID              uint           `gorm:"primaryKey" json:"id" yaml:"id"`
	Code            string         `gorm:"column:code;uniqueIndex;not null" json:"code" yaml:"code"`
	Name            string         `gorm:"column:name" json:"name" yaml:"name"`
	Priority        int            `gorm:"column:priority" json:"priority" yaml:"priority"`
	State           LifecycleState `gorm:"column:state;not null;index" json:"state" yaml:"state"`
	ValidFrom       time.Time      `gorm:"column:valid_from;not null;index" json:"valid_from" yaml:"valid_from"`
	ValidTo         *time.Time     `gorm:"column:valid_to" json:"valid_to,omitempty" yaml:"valid_to,omitempty"`
	WeightStructure int            `gorm:"column:weight_structure" json:"weight_structure,omitempty" yaml:"weight_structure,omitempty"`
	WeightKeyPolicy int            `gorm:"column:weight_key_policy" json:"weight_key_policy,omitempty" yaml:"weight_key_policy,omitempty"`
	WeightCondition int            `gorm:"column:weight_condition" json:"weight_condition,omitempty" yaml:"weight_condition,omitempty"`
	Disabled        bool           `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Note            string         `gorm:"column:note" json:"note,omitempty" yaml:"note,omitempty"`

	Scenarios      []Scenario      `gorm:"foreignKey:RulepackID;constraint:OnDelete:CASCADE" json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
	Selectors      []Selector      `gorm:"foreignKey:RulepackID;constraint:OnDelete:CASCADE" json:"selectors,omitempty" yaml:"selectors,omitempty"`
	ProcessRules   []ProcessRule   `gorm:"foreignKey:RulepackID;constraint:OnDelete:CASCADE" json:"process_rules,omitempty" yaml:"process_rules,omitempty"`
	ConditionRules []ConditionRule `gorm:"foreignKey:RulepackID;constraint:OnDelete:CASCADE" json:"condition_rules,omitempty" yaml:"condition_rules,omitempty"`
}

func (Rulepack) TableName() string { return "rulepack" }

// Covers reports whether the validity window contains the calendar day of asOf.
func (r Rulepack) Covers(asOf time.Time) bool {
	day := DateOnly(asOf)
	if DateOnly(r.ValidFrom).After(day) {
		return false
	}
	if r.ValidTo != nil && DateOnly(*r.ValidTo).Before(day) {
		return false
	}
	return true
}

// SourceWeights returns the configured weights, falling back to 10/20/30.
func (r *Rulepack) SourceWeights() SourceWeights {
	w := DefaultSourceWeights()
	if r == nil {
		return w
	}
	if r.WeightStructure > 0 {
		w.Structure = r.WeightStructure
	}
	if r.WeightKeyPolicy > 0 {
		w.KeyPolicy = r.WeightKeyPolicy
	}
	if r.WeightCondition > 0 {
		w.Condition = r.WeightCondition
	}
	return w
}

type SourceWeights struct {
	Structure int `json:"estructura"`
	KeyPolicy int `json:"clave"`
	Condition int `json:"condition"`
}

func DefaultSourceWeights() SourceWeights {
	return SourceWeights{Structure: 10, KeyPolicy: 20, Condition: 30}
}

// Conditions are the context filters shared by selectors, process rules and
// condition rules. Empty and wildcard values match everything. When is an
// optional JSONLogic expression evaluated against the evaluation context.
type Conditions struct {
	MovementType   string            `gorm:"column:movement_type" json:"movement_type,omitempty" yaml:"movement_type,omitempty"`
	OperationType  OperationType     `gorm:"column:operation_type" json:"operation_type,omitempty" yaml:"operation_type,omitempty"`
	Regime         Regime            `gorm:"column:regime" json:"regime,omitempty" yaml:"regime,omitempty"`
	DeclarationKey string            `gorm:"column:declaration_key" json:"declaration_key,omitempty" yaml:"declaration_key,omitempty"`
	Virtual        VirtualFlag       `gorm:"column:is_virtual" json:"is_virtual,omitempty" yaml:"is_virtual,omitempty"`
	When           datatypes.JSONMap `gorm:"column:when_expr" json:"when,omitempty" yaml:"when,omitempty"`
}

// Scenario is a structural archetype of a rulepack pointing at its base structure rule.
type Scenario struct {
	ID            uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	RulepackID    uint   `gorm:"column:rulepack_id;index;not null" json:"-" yaml:"-"`
	Sequence      int    `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Code          string `gorm:"column:code;not null" json:"code" yaml:"code"`
	Name          string `gorm:"column:name" json:"name" yaml:"name"`
	IsDefault     bool   `gorm:"column:is_default;not null" json:"is_default,omitempty" yaml:"is_default,omitempty"`
	StructureRule string `gorm:"column:structure_rule" json:"structure_rule,omitempty" yaml:"structure_rule,omitempty"`
	Disabled      bool   `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

func (Scenario) TableName() string { return "rulepack_scenario" }

// Selector maps a condition set to a scenario code of the same rulepack.
type Selector struct {
	ID         uint       `gorm:"primaryKey" json:"id" yaml:"id"`
	RulepackID uint       `gorm:"column:rulepack_id;index;not null" json:"-" yaml:"-"`
	Sequence   int        `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Priority   int        `gorm:"column:priority" json:"priority" yaml:"priority"`
	Stop       bool       `gorm:"column:stop;not null" json:"stop,omitempty" yaml:"stop,omitempty"`
	Disabled   bool       `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Conditions Conditions `gorm:"embedded" json:"conditions" yaml:"conditions"`
	Scenario   string     `gorm:"column:scenario;not null" json:"scenario" yaml:"scenario"`
}

func (Selector) TableName() string { return "rulepack_selector" }

// ProcessRule is a stage-scoped directive (allowed records, header fields, payment methods).
type ProcessRule struct {
	ID         uint              `gorm:"primaryKey" json:"id" yaml:"id"`
	RulepackID uint              `gorm:"column:rulepack_id;index;not null" json:"-" yaml:"-"`
	Name       string            `gorm:"column:name;not null" json:"name" yaml:"name"`
	Sequence   int               `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Priority   int               `gorm:"column:priority" json:"priority" yaml:"priority"`
	Stop       bool              `gorm:"column:stop;not null" json:"stop,omitempty" yaml:"stop,omitempty"`
	Disabled   bool              `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Stage      Stage             `gorm:"column:stage;not null" json:"stage" yaml:"stage"`
	Action     ProcessAction     `gorm:"column:action;not null" json:"action" yaml:"action"`
	Payload    datatypes.JSONMap `gorm:"column:payload" json:"payload,omitempty" yaml:"payload,omitempty"`
	Conditions Conditions        `gorm:"embedded" json:"conditions" yaml:"conditions"`
}

func (ProcessRule) TableName() string { return "rulepack_process_rule" }

// ConditionRule is the most granular rule source. Target selects which policy
// family applies: Policy for whole records, FieldPolicy for a single field.
type ConditionRule struct {
	ID                 uint         `gorm:"primaryKey" json:"id" yaml:"id"`
	RulepackID         uint         `gorm:"column:rulepack_id;index;not null" json:"-" yaml:"-"`
	Name               string       `gorm:"column:name;not null" json:"name" yaml:"name"`
	Sequence           int          `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Priority           int          `gorm:"column:priority" json:"priority" yaml:"priority"`
	Stop               bool         `gorm:"column:stop;not null" json:"stop,omitempty" yaml:"stop,omitempty"`
	Disabled           bool         `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Scope              Scope        `gorm:"column:scope" json:"scope,omitempty" yaml:"scope,omitempty"`
	Target             Target       `gorm:"column:target" json:"target,omitempty" yaml:"target,omitempty"`
	Policy             RecordPolicy `gorm:"column:policy" json:"policy,omitempty" yaml:"policy,omitempty"`
	FieldPolicy        FieldPolicy  `gorm:"column:field_policy" json:"field_policy,omitempty" yaml:"field_policy,omitempty"`
	RecordCode         string       `gorm:"column:record_code;size:3;not null" json:"record_code" yaml:"record_code"`
	FieldName          string       `gorm:"column:field_name" json:"field_name,omitempty" yaml:"field_name,omitempty"`
	DefaultValue       string       `gorm:"column:default_value" json:"default_value,omitempty" yaml:"default_value,omitempty"`
	MinOccurs          int          `gorm:"column:min_occurs" json:"min_occurs,omitempty" yaml:"min_occurs,omitempty"`
	MaxOccurs          int          `gorm:"column:max_occurs" json:"max_occurs,omitempty" yaml:"max_occurs,omitempty"`
	RequiredIdentifier string       `gorm:"column:required_identifier;size:3" json:"required_identifier,omitempty" yaml:"required_identifier,omitempty"`
	Conditions         Conditions   `gorm:"embedded" json:"conditions" yaml:"conditions"`
	Scenario           string       `gorm:"column:scenario" json:"scenario,omitempty" yaml:"scenario,omitempty"`
	TariffCode         string       `gorm:"column:tariff_code" json:"tariff_code,omitempty" yaml:"tariff_code,omitempty"`
	TariffChapter      string       `gorm:"column:tariff_chapter;size:2" json:"tariff_chapter,omitempty" yaml:"tariff_chapter,omitempty"`
}

func (ConditionRule) TableName() string { return "rulepack_condition_rule" }

// IsFieldRule reports whether the rule targets a field instead of a record.
func (r ConditionRule) IsFieldRule() bool {
	return r.Target == TargetField || r.FieldPolicy != ""
}

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
