package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

// Declaration is the pedimento being evaluated, as handed over by the CRM.
type Declaration struct {
	ID             string               `json:"id"`
	MovementType   string               `json:"movement_type"`
	OperationType  domain.OperationType `json:"operation_type"`
	Regime         domain.Regime        `json:"regime"`
	DeclarationKey string               `json:"declaration_key"`
	AsOf           time.Time            `json:"as_of"`

	// Explicit pins; they beat date-based and scenario-based resolution.
	RulepackCode  string `json:"rulepack_code,omitempty"`
	StructureRule string `json:"structure_rule,omitempty"`

	StrictMode   domain.StrictPolicy `json:"strict_mode,omitempty"`
	Counterparty *Counterparty       `json:"counterparty,omitempty"`

	// Header fields addressed by process rules (require_field / forbid_field).
	Fields         map[string]any `json:"fields,omitempty"`
	PaymentMethods []string       `json:"payment_methods,omitempty"`

	LineItems []LineItem `json:"line_items,omitempty"`
	Records   []Registro `json:"records,omitempty"`
}

// Counterparty is the participant or customer owning the declaration.
type Counterparty struct {
	ID         string              `json:"id"`
	StrictMode domain.StrictPolicy `json:"strict_mode,omitempty"`
}

// LineItem is a partida.
type LineItem struct {
	Number     int     `json:"number"`
	TariffCode string  `json:"tariff_code,omitempty"`
	Chapter    string  `json:"chapter,omitempty"`
	Quantity   float64 `json:"quantity,omitempty"`
	Value      float64 `json:"value,omitempty"`
}

// Registro is one captured record of the validation file.
type Registro struct {
	Code     string         `json:"code"`
	Sequence int            `json:"sequence"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// lineItemKeys are the payload keys naming a partida, in lookup order.
var lineItemKeys = []string{
	"partida",
	"numero_partida",
	"num_partida",
	"partida_numero",
	"secuencia_partida",
	"partida_seq",
}

// LineItemNumber extracts the partida number referenced by a record payload.
// Keys match case-insensitively; the first key of lineItemKeys holding a
// number wins.
func (r Registro) LineItemNumber() (int, bool) {
	if len(r.Payload) == 0 {
		return 0, false
	}
	for _, want := range lineItemKeys {
		if n, ok := lineItemValue(r.payloadValue(want)); ok {
			return n, true
		}
	}
	return 0, false
}

// payloadValue looks key up ignoring case and surrounding spaces. An exact
// match beats a folded one; among folded matches the smallest raw key wins.
func (r Registro) payloadValue(key string) any {
	if v, ok := r.Payload[key]; ok {
		return v
	}
	var (
		found string
		value any
		hit   bool
	)
	for raw, v := range r.Payload {
		if strings.ToLower(strings.TrimSpace(raw)) != key {
			continue
		}
		if !hit || raw < found {
			found, value, hit = raw, v, true
		}
	}
	return value
}

func lineItemValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, v != 0
	case float64:
		return int(v), v != 0
	case string:
		if digits := domain.OnlyDigits(v); digits != "" {
			if n, err := strconv.Atoi(digits); err == nil && n != 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// HasToken reports whether any string value of the payload contains token as a
// whole alphanumeric word, ignoring case. An empty token always matches.
func (r Registro) HasToken(token string) bool {
	token = domain.NormalizeIdentifier(token)
	if token == "" {
		return true
	}
	for _, value := range r.Payload {
		s, ok := value.(string)
		if !ok {
			continue
		}
		for _, part := range strings.FieldsFunc(s, notAlnum) {
			if strings.ToUpper(part) == token {
				return true
			}
		}
	}
	return false
}

// FieldValue returns the payload value of field rendered as trimmed text.
func (r Registro) FieldValue(field string) string {
	v, ok := r.Payload[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return "set"
}

func notAlnum(r rune) bool {
	return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
}

// CountByCode tallies captured records per normalized code.
func (d *Declaration) CountByCode() map[string]int {
	counts := make(map[string]int, len(d.Records))
	for _, r := range d.Records {
		counts[domain.NormalizeRecordCode(r.Code)]++
	}
	return counts
}

// FieldPresent reports whether a header field carries a truthy value.
func (d *Declaration) FieldPresent(name string) bool {
	v, ok := d.Fields[name]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
