package domain

import (
	"time"

	"gorm.io/datatypes"
)

// RuleTrace stores the latest explainability document of a declaration.
type RuleTrace struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	DeclarationID string         `gorm:"column:declaration_id;uniqueIndex;not null" json:"declaration_id"`
	RulepackCode  string         `gorm:"column:rulepack_code;index" json:"rulepack_code,omitempty"`
	Scenario      string         `gorm:"column:scenario" json:"scenario,omitempty"`
	Truncated     bool           `gorm:"column:truncated;not null" json:"truncated"`
	Document      datatypes.JSON `gorm:"column:document;not null" json:"document"`
	RecordedAt    time.Time      `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

func (RuleTrace) TableName() string { return "rule_trace" }
