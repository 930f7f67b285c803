package engine

// ConditionEvaluator evaluates the optional "when" expression attached to a
// selector, process rule or condition rule against the evaluation context.
type ConditionEvaluator interface {
	Evaluate(expr map[string]any, vars map[string]any) (bool, error)
}

// StateDiffer renders the before/after difference of the record states as a
// JSON document for the trace.
type StateDiffer interface {
	Diff(before, after map[string]RecordState) ([]byte, error)
}
