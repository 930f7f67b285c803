package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
)

// DefaultTraceLimit caps the trace rows persisted per declaration.
const DefaultTraceLimit = 500

// Options carries the engine configuration. Nothing in this package reads
// process-wide settings; callers inject them here.
type Options struct {
	// StrictDefault applies when neither the declaration nor its counterparty override it.
	StrictDefault bool
	TraceLimit    int
	// SelectorFirstMatchWins makes the first matching selector win instead of
	// the last one evaluated before a stop.
	SelectorFirstMatchWins bool
	// Clock supplies "today" for declarations without an as-of date.
	Clock func() time.Time
}

// Engine resolves record plans for declarations against a catalog.
type Engine struct {
	Catalog *domain.Catalog
	Eval    ConditionEvaluator
	Differ  StateDiffer
	Options Options
}

func New(cat *domain.Catalog, eval ConditionEvaluator, differ StateDiffer, opts Options) *Engine {
	if opts.TraceLimit <= 0 {
		opts.TraceLimit = DefaultTraceLimit
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if cat == nil {
		cat = &domain.Catalog{}
	}
	cat.Reindex()
	return &Engine{Catalog: cat, Eval: eval, Differ: differ, Options: opts}
}

// StrictMode resolves the effective strict flag: declaration override, then
// counterparty override, then the configured default.
func (e *Engine) StrictMode(decl *model.Declaration) bool {
	switch decl.StrictMode {
	case domain.StrictOn:
		return true
	case domain.StrictRelaxed:
		return false
	}
	if decl.Counterparty != nil {
		switch decl.Counterparty.StrictMode {
		case domain.StrictOn:
			return true
		case domain.StrictRelaxed:
			return false
		}
	}
	return e.Options.StrictDefault
}

// AsOf returns the reference date of the declaration, defaulting to today.
func (e *Engine) AsOf(decl *model.Declaration) time.Time {
	if decl.AsOf.IsZero() {
		return domain.DateOnly(e.Options.Clock())
	}
	return domain.DateOnly(decl.AsOf)
}

// ResolveRulepack returns the pinned rulepack, or the best active rulepack
// whose validity window covers the as-of date. A nil result without error
// means no rulepack applies and strict mode is off.
func (e *Engine) ResolveRulepack(decl *model.Declaration, strict bool) (*domain.Rulepack, error) {
	if decl.RulepackCode != "" {
		if pack, ok := e.Catalog.Rulepack(decl.RulepackCode); ok {
			return pack, nil
		}
		if strict {
			return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("pinned rulepack %q does not exist", decl.RulepackCode)}
		}
	}

	asOf := e.AsOf(decl)
	var candidates []*domain.Rulepack
	for i := range e.Catalog.Rulepacks {
		p := &e.Catalog.Rulepacks[i]
		if p.Disabled || p.State != domain.StateActive || !p.Covers(asOf) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		if strict {
			return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("no active rulepack covers %s", asOf.Format(time.DateOnly))}
		}
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.After(b.ValidFrom)
		}
		return a.ID > b.ID
	})
	return candidates[0], nil
}
