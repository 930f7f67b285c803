package jsonlogic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// Operator is a custom operator resolved before the expression reaches the
// JSONLogic library. Arguments arrive with their {"var": ...} references
// already resolved against the context.
type Operator func(args ...any) any

// Evaluator evaluates "when" expressions of rulepack conditions.
type Evaluator struct {
	customOps map[string]Operator
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{customOps: map[string]Operator{}}
	e.RegisterOperator("intersects", Intersects)
	e.RegisterOperator("starts_with", StartsWith)
	return e
}

func (e *Evaluator) RegisterOperator(name string, op Operator) {
	e.customOps[name] = op
}

// Evaluate applies expr to vars and reports the JSONLogic truthiness of the result.
func (e *Evaluator) Evaluate(expr map[string]any, vars map[string]any) (bool, error) {
	res, err := e.Apply(expr, vars)
	if err != nil {
		return false, err
	}
	return Truthy(res), nil
}

// Apply returns the raw result of expr.
func (e *Evaluator) Apply(expr map[string]any, vars map[string]any) (any, error) {
	if len(expr) == 1 {
		for name, op := range e.customOps {
			if args, ok := expr[name]; ok {
				return op(e.resolveArgs(args, vars)...), nil
			}
		}
	}

	ruleJSON, err := json.Marshal(expr)
	if err != nil {
		return nil, fmt.Errorf("encode expression: %w", err)
	}
	dataJSON, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(ruleJSON), bytes.NewReader(dataJSON), &out); err != nil {
		return nil, fmt.Errorf("apply expression: %w", err)
	}
	raw := strings.TrimSpace(out.String())
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var res any
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return res, nil
}

func (e *Evaluator) resolveArgs(args any, vars map[string]any) []any {
	list, ok := args.([]any)
	if !ok {
		return []any{e.resolveVar(args, vars)}
	}
	out := make([]any, 0, len(list))
	for _, a := range list {
		out = append(out, e.resolveVar(a, vars))
	}
	return out
}

// resolveVar replaces a {"var": "a.b"} reference with its value in vars.
func (e *Evaluator) resolveVar(arg any, vars map[string]any) any {
	m, ok := arg.(map[string]any)
	if !ok {
		return arg
	}
	path, ok := m["var"].(string)
	if !ok {
		return arg
	}
	var cur any = vars
	for _, part := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = node[part]
	}
	return cur
}

// Truthy follows JSONLogic truthiness: false, 0, "", null and [] are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	}
	return true
}
