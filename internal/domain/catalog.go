package domain

import (
	"strings"
)

// MovementType is the "tipo de movimiento" catalog entry (1 = new declaration, 2 = deletion, ...).
type MovementType struct {
	ID       uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Code     string `gorm:"column:code;size:2;uniqueIndex;not null" json:"code" yaml:"code"`
	Name     string `gorm:"column:name" json:"name" yaml:"name"`
	Disabled bool   `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

func (MovementType) TableName() string { return "movement_type" }

// DeclarationKey is a "clave de pedimento" (A1, V1, ...) with its record policies.
type DeclarationKey struct {
	ID                  uint          `gorm:"primaryKey" json:"id" yaml:"id"`
	Code                string        `gorm:"column:code;uniqueIndex;not null" json:"code" yaml:"code"`
	Name                string        `gorm:"column:name" json:"name" yaml:"name"`
	OperationType       OperationType `gorm:"column:operation_type" json:"operation_type,omitempty" yaml:"operation_type,omitempty"`
	Regime              Regime        `gorm:"column:regime" json:"regime,omitempty" yaml:"regime,omitempty"`
	IsVirtual           bool          `gorm:"column:is_virtual;not null" json:"is_virtual,omitempty" yaml:"is_virtual,omitempty"`
	DefaultMovementType string        `gorm:"column:default_movement_type" json:"default_movement_type,omitempty" yaml:"default_movement_type,omitempty"`
	// StructureType feeds the legacy scenario detector; "auto" or empty defers to it.
	StructureType string          `gorm:"column:structure_type" json:"structure_type,omitempty" yaml:"structure_type,omitempty"`
	Disabled      bool            `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Policies      []KeyPolicyLine `gorm:"foreignKey:DeclarationKeyID;constraint:OnDelete:CASCADE" json:"policies,omitempty" yaml:"policies,omitempty"`
}

func (DeclarationKey) TableName() string { return "declaration_key" }

// KeyPolicyLine is one record policy attached to a declaration key.
type KeyPolicyLine struct {
	ID                 uint         `gorm:"primaryKey" json:"id" yaml:"id"`
	DeclarationKeyID   uint         `gorm:"column:declaration_key_id;index;not null" json:"-" yaml:"-"`
	Sequence           int          `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	RecordCode         string       `gorm:"column:record_code;size:3;not null" json:"record_code" yaml:"record_code"`
	Policy             RecordPolicy `gorm:"column:policy;not null" json:"policy" yaml:"policy"`
	Scope              Scope        `gorm:"column:scope" json:"scope,omitempty" yaml:"scope,omitempty"`
	MinOccurs          int          `gorm:"column:min_occurs" json:"min_occurs,omitempty" yaml:"min_occurs,omitempty"`
	MaxOccurs          int          `gorm:"column:max_occurs" json:"max_occurs,omitempty" yaml:"max_occurs,omitempty"`
	RequiredIdentifier string       `gorm:"column:required_identifier;size:3" json:"required_identifier,omitempty" yaml:"required_identifier,omitempty"`
	Priority           int          `gorm:"column:priority" json:"priority,omitempty" yaml:"priority,omitempty"`
	Stop               bool         `gorm:"column:stop;not null" json:"stop,omitempty" yaml:"stop,omitempty"`
}

func (KeyPolicyLine) TableName() string { return "declaration_key_policy" }

// TariffItem is a tariff classification ("fraccion arancelaria").
type TariffItem struct {
	ID          uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	Code        string `gorm:"column:code;size:8;index;not null" json:"code" yaml:"code"`
	Nico        string `gorm:"column:nico;size:2" json:"nico,omitempty" yaml:"nico,omitempty"`
	Chapter     string `gorm:"column:chapter;size:2" json:"chapter,omitempty" yaml:"chapter,omitempty"`
	Description string `gorm:"column:description" json:"description,omitempty" yaml:"description,omitempty"`
}

func (TariffItem) TableName() string { return "tariff_item" }

// ChapterCode returns the explicit chapter or the first two digits of the code.
func (t TariffItem) ChapterCode() string {
	if c := strings.TrimSpace(t.Chapter); c != "" {
		return c
	}
	return ChapterOf(t.Code)
}

// ChapterOf derives the two-digit chapter from a tariff code.
func ChapterOf(code string) string {
	digits := OnlyDigits(code)
	if len(digits) < 2 {
		return ""
	}
	return digits[:2]
}

// StructureRule is the coarse per-movement baseline of required records.
type StructureRule struct {
	ID             uint                `gorm:"primaryKey" json:"id" yaml:"id"`
	Name           string              `gorm:"column:name;uniqueIndex;not null" json:"name" yaml:"name"`
	Priority       int                 `gorm:"column:priority" json:"priority,omitempty" yaml:"priority,omitempty"`
	MovementType   string              `gorm:"column:movement_type" json:"movement_type" yaml:"movement_type"`
	DeclarationKey string              `gorm:"column:declaration_key" json:"declaration_key,omitempty" yaml:"declaration_key,omitempty"`
	OperationType  OperationType       `gorm:"column:operation_type" json:"operation_type,omitempty" yaml:"operation_type,omitempty"`
	Regime         Regime              `gorm:"column:regime" json:"regime,omitempty" yaml:"regime,omitempty"`
	Scenario       string              `gorm:"column:scenario" json:"scenario,omitempty" yaml:"scenario,omitempty"`
	Disabled       bool                `gorm:"column:disabled;not null" json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Lines          []StructureRuleLine `gorm:"foreignKey:StructureRuleID;constraint:OnDelete:CASCADE" json:"lines" yaml:"lines"`
}

func (StructureRule) TableName() string { return "structure_rule" }

type StructureRuleLine struct {
	ID              uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	StructureRuleID uint   `gorm:"column:structure_rule_id;index;not null" json:"-" yaml:"-"`
	Sequence        int    `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	RecordCode      string `gorm:"column:record_code;size:3;not null" json:"record_code" yaml:"record_code"`
	Required        bool   `gorm:"column:required;not null" json:"required" yaml:"required"`
	MinOccurs       int    `gorm:"column:min_occurs" json:"min_occurs,omitempty" yaml:"min_occurs,omitempty"`
	MaxOccurs       int    `gorm:"column:max_occurs" json:"max_occurs,omitempty" yaml:"max_occurs,omitempty"`
}

func (StructureRuleLine) TableName() string { return "structure_rule_line" }

// LayoutRecord is a record type of the validation file layout (500, 501, ...).
type LayoutRecord struct {
	ID     uint          `gorm:"primaryKey" json:"id" yaml:"id"`
	Code   string        `gorm:"column:code;size:3;uniqueIndex;not null" json:"code" yaml:"code"`
	Name   string        `gorm:"column:name" json:"name,omitempty" yaml:"name,omitempty"`
	Order  int           `gorm:"column:sort_order" json:"order,omitempty" yaml:"order,omitempty"`
	Fields []LayoutField `gorm:"foreignKey:LayoutRecordID;constraint:OnDelete:CASCADE" json:"fields,omitempty" yaml:"fields,omitempty"`
}

func (LayoutRecord) TableName() string { return "layout_record" }

// HasField reports whether name is one of the record's fields, ignoring case.
func (l *LayoutRecord) HasField(name string) bool {
	name = strings.TrimSpace(name)
	for _, f := range l.Fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

type LayoutField struct {
	ID             uint   `gorm:"primaryKey" json:"id" yaml:"id"`
	LayoutRecordID uint   `gorm:"column:layout_record_id;index;not null" json:"-" yaml:"-"`
	Name           string `gorm:"column:name;not null" json:"name" yaml:"name"`
	Sequence       int    `gorm:"column:sequence" json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Length         int    `gorm:"column:length" json:"length,omitempty" yaml:"length,omitempty"`
}

func (LayoutField) TableName() string { return "layout_field" }

// NormalizeRecordCode trims and left-pads a record code to three digits.
func NormalizeRecordCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 3 {
		code = "0" + code
	}
	return code
}

// NormalizeIdentifier trims and upper-cases an identifier token.
func NormalizeIdentifier(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IsRecordCode reports whether code is a three-digit numeric record code.
func IsRecordCode(code string) bool {
	return len(code) == 3 && OnlyDigits(code) == code
}

// OnlyDigits strips every non-digit rune from s.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
