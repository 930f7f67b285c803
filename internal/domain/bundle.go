package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Catalog is the read-only reference data the engine resolves against:
// catalogs plus every rulepack. Entities reference each other by code or name;
// lookups go through the indexes built by Reindex, never through back-pointers.
type Catalog struct {
	MovementTypes   []MovementType   `json:"movement_types,omitempty" yaml:"movement_types,omitempty"`
	DeclarationKeys []DeclarationKey `json:"declaration_keys,omitempty" yaml:"declaration_keys,omitempty"`
	TariffItems     []TariffItem     `json:"tariff_items,omitempty" yaml:"tariff_items,omitempty"`
	StructureRules  []StructureRule  `json:"structure_rules,omitempty" yaml:"structure_rules,omitempty"`
	LayoutRecords   []LayoutRecord   `json:"layout_records,omitempty" yaml:"layout_records,omitempty"`
	Rulepacks       []Rulepack       `json:"rulepacks,omitempty" yaml:"rulepacks,omitempty"`

	keyByCode       map[string]int
	tariffByCode    map[string]int
	structureByName map[string]int
	layoutByCode    map[string]int
	rulepackByCode  map[string]int
}

// Reindex rebuilds the lookup indexes. Call it after mutating the slices.
func (c *Catalog) Reindex() *Catalog {
	c.keyByCode = make(map[string]int, len(c.DeclarationKeys))
	for i, k := range c.DeclarationKeys {
		c.keyByCode[strings.ToUpper(strings.TrimSpace(k.Code))] = i
	}
	c.tariffByCode = make(map[string]int, len(c.TariffItems))
	for i, t := range c.TariffItems {
		c.tariffByCode[strings.TrimSpace(t.Code)] = i
	}
	c.structureByName = make(map[string]int, len(c.StructureRules))
	for i, s := range c.StructureRules {
		c.structureByName[strings.TrimSpace(s.Name)] = i
	}
	c.layoutByCode = make(map[string]int, len(c.LayoutRecords))
	for i, l := range c.LayoutRecords {
		c.layoutByCode[NormalizeRecordCode(l.Code)] = i
	}
	c.rulepackByCode = make(map[string]int, len(c.Rulepacks))
	for i, r := range c.Rulepacks {
		c.rulepackByCode[strings.TrimSpace(r.Code)] = i
	}
	return c
}

func (c *Catalog) ensureIndex() {
	if c.keyByCode == nil {
		c.Reindex()
	}
}

func (c *Catalog) DeclarationKey(code string) (*DeclarationKey, bool) {
	c.ensureIndex()
	i, ok := c.keyByCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, false
	}
	return &c.DeclarationKeys[i], true
}

func (c *Catalog) TariffItem(code string) (*TariffItem, bool) {
	c.ensureIndex()
	i, ok := c.tariffByCode[strings.TrimSpace(code)]
	if !ok {
		return nil, false
	}
	return &c.TariffItems[i], true
}

func (c *Catalog) StructureRule(name string) (*StructureRule, bool) {
	c.ensureIndex()
	i, ok := c.structureByName[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return &c.StructureRules[i], true
}

func (c *Catalog) LayoutRecord(code string) (*LayoutRecord, bool) {
	c.ensureIndex()
	i, ok := c.layoutByCode[NormalizeRecordCode(code)]
	if !ok {
		return nil, false
	}
	return &c.LayoutRecords[i], true
}

func (c *Catalog) Rulepack(code string) (*Rulepack, bool) {
	c.ensureIndex()
	i, ok := c.rulepackByCode[strings.TrimSpace(code)]
	if !ok {
		return nil, false
	}
	return &c.Rulepacks[i], true
}

// Normalize applies the write-time normalization of codes and identifiers and
// assigns ids to entities loaded without one, in file order.
func (c *Catalog) Normalize() {
	var lineID, policyID uint
	for i := range c.StructureRules {
		r := &c.StructureRules[i]
		for j := range r.Lines {
			l := &r.Lines[j]
			l.RecordCode = NormalizeRecordCode(l.RecordCode)
			lineID = nextID(&l.ID, lineID)
		}
	}
	for i := range c.DeclarationKeys {
		k := &c.DeclarationKeys[i]
		k.Code = strings.ToUpper(strings.TrimSpace(k.Code))
		for j := range k.Policies {
			p := &k.Policies[j]
			p.RecordCode = NormalizeRecordCode(p.RecordCode)
			p.RequiredIdentifier = NormalizeIdentifier(p.RequiredIdentifier)
			policyID = nextID(&p.ID, policyID)
		}
	}
	for i := range c.LayoutRecords {
		c.LayoutRecords[i].Code = NormalizeRecordCode(c.LayoutRecords[i].Code)
	}
	for i := range c.Rulepacks {
		p := &c.Rulepacks[i]
		var scenarioID, selectorID, processID, conditionID uint
		for j := range p.Scenarios {
			scenarioID = nextID(&p.Scenarios[j].ID, scenarioID)
		}
		for j := range p.Selectors {
			selectorID = nextID(&p.Selectors[j].ID, selectorID)
		}
		for j := range p.ProcessRules {
			processID = nextID(&p.ProcessRules[j].ID, processID)
		}
		for j := range p.ConditionRules {
			r := &p.ConditionRules[j]
			r.RecordCode = NormalizeRecordCode(r.RecordCode)
			r.RequiredIdentifier = NormalizeIdentifier(r.RequiredIdentifier)
			if r.FieldPolicy != "" {
				r.Target = TargetField
			}
			if r.Target == "" {
				r.Target = TargetRecord
			}
			if r.Target == TargetRecord && r.Policy == "" {
				r.Policy = PolicyRequired
			}
			conditionID = nextID(&r.ID, conditionID)
		}
	}
	c.Reindex()
}

// nextID keeps an explicit id, otherwise hands out last+1.
func nextID(id *uint, last uint) uint {
	if *id == 0 {
		*id = last + 1
	}
	if *id > last {
		return *id
	}
	return last
}

// Validate enforces the catalog constraints and returns every problem found.
func (c *Catalog) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...))
	}
	withLayout := len(c.LayoutRecords) > 0
	checkOccurs := func(owner, code string, min, max int) {
		if !IsRecordCode(code) {
			bad("%s: record code %q must be 3 digits", owner, code)
		} else if withLayout {
			if _, ok := c.LayoutRecord(code); !ok {
				bad("%s: record %s is not part of the layout", owner, code)
			}
		}
		if min < 0 || max < 0 {
			bad("%s: record %s occurrences cannot be negative", owner, code)
		}
		if max > 0 && max < min {
			bad("%s: record %s max occurrences %d below min %d", owner, code, max, min)
		}
	}

	for _, r := range c.StructureRules {
		if r.MovementType == "" {
			bad("structure rule %q: movement type is required", r.Name)
		}
		for _, l := range r.Lines {
			checkOccurs("structure rule "+r.Name, l.RecordCode, l.MinOccurs, l.MaxOccurs)
		}
	}
	for _, k := range c.DeclarationKeys {
		for _, p := range k.Policies {
			checkOccurs("declaration key "+k.Code, p.RecordCode, p.MinOccurs, p.MaxOccurs)
			if !p.Policy.Valid() {
				bad("declaration key %s: unknown policy %q", k.Code, p.Policy)
			}
		}
	}
	for _, p := range c.Rulepacks {
		if !p.State.Valid() {
			bad("rulepack %s: unknown state %q", p.Code, p.State)
		}
		if p.ValidTo != nil && DateOnly(*p.ValidTo).Before(DateOnly(p.ValidFrom)) {
			bad("rulepack %s: validity end before start", p.Code)
		}
		scenarios := map[string]bool{}
		for _, s := range p.Scenarios {
			scenarios[s.Code] = true
			if s.StructureRule != "" {
				if _, ok := c.StructureRule(s.StructureRule); !ok {
					bad("rulepack %s: scenario %s references unknown structure rule %q", p.Code, s.Code, s.StructureRule)
				}
			}
		}
		for _, s := range p.Selectors {
			if !scenarios[s.Scenario] {
				bad("rulepack %s: selector %d references unknown scenario %q", p.Code, s.ID, s.Scenario)
			}
		}
		for _, r := range p.ProcessRules {
			if !r.Stage.Valid() {
				bad("rulepack %s: process rule %q has unknown stage %q", p.Code, r.Name, r.Stage)
			}
			if !r.Action.Valid() {
				bad("rulepack %s: process rule %q has unknown action %q", p.Code, r.Name, r.Action)
			}
		}
		for _, r := range p.ConditionRules {
			owner := fmt.Sprintf("rulepack %s: condition rule %q", p.Code, r.Name)
			checkOccurs(owner, r.RecordCode, r.MinOccurs, r.MaxOccurs)
			switch r.Target {
			case TargetField:
				if !r.FieldPolicy.Valid() {
					bad("%s: invalid field policy %q", owner, r.FieldPolicy)
				}
				if strings.TrimSpace(r.FieldName) == "" {
					bad("%s: field target requires a field name", owner)
				} else if layout, ok := c.LayoutRecord(r.RecordCode); withLayout && ok && !layout.HasField(r.FieldName) {
					bad("%s: record %s has no layout field %q", owner, r.RecordCode, r.FieldName)
				}
				if r.FieldPolicy == FieldDefault && strings.TrimSpace(r.DefaultValue) == "" {
					bad("%s: default_field requires a default value", owner)
				}
			case TargetRecord:
				if !r.Policy.Valid() {
					bad("%s: invalid record policy %q", owner, r.Policy)
				}
			default:
				bad("%s: unknown target %q", owner, r.Target)
			}
		}
	}
	return errors.Join(errs...)
}
