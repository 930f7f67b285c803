package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrRuleExecutionFailed = errors.New("rule execution failed")
)

// ConfigurationError is raised in strict mode when the catalog cannot produce
// a rulepack, scenario or structure rule for the declaration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "strict mode: " + e.Reason
}

// ViolationKind classifies a validation finding.
type ViolationKind string

const (
	ViolationMissing       ViolationKind = "missing"
	ViolationForbidden     ViolationKind = "forbidden"
	ViolationExcess        ViolationKind = "excess"
	ViolationIdentifier    ViolationKind = "identifier"
	ViolationField         ViolationKind = "field"
	ViolationConfiguration ViolationKind = "configuration"
	ViolationProcess       ViolationKind = "process"
)

type Violation struct {
	Kind       ViolationKind `json:"kind"`
	RecordCode string        `json:"record_code,omitempty"`
	LineItem   int           `json:"line_item,omitempty"`
	Message    string        `json:"message"`
}

// ValidationError aggregates every violation found in one pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return joinViolations(e.Violations)
}

// Messages returns the human-readable messages in report order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Message)
	}
	return out
}

// StageError aggregates process-rule violations for one workflow stage.
type StageError struct {
	Stage      Stage
	Violations []Violation
}

func (e *StageError) Error() string {
	return joinViolations(e.Violations)
}

// CapacityError reports an exhausted consecutive space for a sequence key.
type CapacityError struct {
	Key   SequenceKey
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("consecutive limit %d reached for %s", e.Limit, e.Key)
}

func joinViolations(vs []Violation) string {
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "\n")
}
