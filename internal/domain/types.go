package domain

import (
	"strings"
)

// --- Enumerations shared by catalogs and rulepacks ---

// RecordPolicy is the record-level outcome a rule asks for.
type RecordPolicy string

const (
	PolicyRequired  RecordPolicy = "required"
	PolicyOptional  RecordPolicy = "optional"
	PolicyForbidden RecordPolicy = "forbidden"
)

func (p RecordPolicy) Valid() bool {
	switch p {
	case PolicyRequired, PolicyOptional, PolicyForbidden:
		return true
	}
	return false
}

// FieldPolicy is the field-level directive a condition rule can carry.
type FieldPolicy string

const (
	FieldRequire FieldPolicy = "require_field"
	FieldForbid  FieldPolicy = "forbid_field"
	FieldDefault FieldPolicy = "default_field"
	FieldWarn    FieldPolicy = "warn_field"
)

func (p FieldPolicy) Valid() bool {
	switch p {
	case FieldRequire, FieldForbid, FieldDefault, FieldWarn:
		return true
	}
	return false
}

// Target tells whether a condition rule addresses a whole record or one field.
type Target string

const (
	TargetRecord Target = "record"
	TargetField  Target = "field"
)

// Scope is where a rule is evaluated: the whole declaration or each partida.
type Scope string

const (
	ScopeDeclaration Scope = "pedimento"
	ScopeLineItem    Scope = "partida"
)

// Normalize maps the empty scope to the declaration scope.
func (s Scope) Normalize() Scope {
	if s == ScopeLineItem {
		return ScopeLineItem
	}
	return ScopeDeclaration
}

// Source identifies which of the three rule families produced a normalized rule.
type Source string

const (
	SourceStructure Source = "estructura"
	SourceKeyPolicy Source = "clave"
	SourceCondition Source = "condition"
)

// LifecycleState of a rulepack.
type LifecycleState string

const (
	StateDraft   LifecycleState = "draft"
	StateActive  LifecycleState = "active"
	StateRetired LifecycleState = "retired"
)

func (s LifecycleState) Valid() bool {
	switch s {
	case StateDraft, StateActive, StateRetired:
		return true
	}
	return false
}

type OperationType string

const (
	OperationImport OperationType = "importacion"
	OperationExport OperationType = "exportacion"
	OperationAny    OperationType = "ambas"
)

type Regime string

const (
	RegimeDefinitive      Regime = "definitivo"
	RegimeTemporary       Regime = "temporal"
	RegimeBondedWarehouse Regime = "deposito_fiscal"
	RegimeTransit         Regime = "transito"
	RegimeAny             Regime = "cualquiera"
)

// VirtualFlag narrows a rule to virtual or non-virtual declaration keys.
type VirtualFlag string

const (
	VirtualAny VirtualFlag = "any"
	VirtualYes VirtualFlag = "yes"
	VirtualNo  VirtualFlag = "no"
)

// Stage of the declaration workflow where process rules are evaluated.
type Stage string

const (
	StageLoad        Stage = "load_from_lead"
	StagePreValidate Stage = "pre_validate"
	StageExport      Stage = "export"
)

func (s Stage) Valid() bool {
	switch s {
	case StageLoad, StagePreValidate, StageExport:
		return true
	}
	return false
}

// ProcessAction is what a process rule enforces inside its stage.
type ProcessAction string

const (
	ActionAllowOnlyRecords      ProcessAction = "allow_only_records"
	ActionRequireField          ProcessAction = "require_field"
	ActionForbidField           ProcessAction = "forbid_field"
	ActionRequirePaymentMethods ProcessAction = "require_formas_pago"
)

func (a ProcessAction) Valid() bool {
	switch a {
	case ActionAllowOnlyRecords, ActionRequireField, ActionForbidField, ActionRequirePaymentMethods:
		return true
	}
	return false
}

// StrictPolicy is the per-declaration and per-counterparty strict-mode override.
type StrictPolicy string

const (
	StrictInherit StrictPolicy = "inherit"
	StrictOn      StrictPolicy = "strict"
	StrictRelaxed StrictPolicy = "relaxed"
)

// Scenario codes known to the catalog. The list is open: rulepacks may add more.
const (
	ScenarioNormal        = "normal"
	ScenarioTransit       = "transito"
	ScenarioRectification = "rectificacion"
	ScenarioComplementary = "complementario"
	ScenarioGeneric       = "generico"
	ScenarioAny           = "any"
)

// IsWildcard reports whether a condition value matches every context.
func IsWildcard(v string) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "", "ambas", "cualquiera", "any":
		return true
	}
	return false
}
