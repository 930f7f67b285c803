//go:build property
// +build property

package engine

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
)

func TestResolutionIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same inputs give the same trace document", prop.ForAll(
		func(seeds []int) bool {
			rules := rulesFromSeeds(seeds)
			reversed := make([]domain.ConditionRule, len(rules))
			for i, r := range rules {
				reversed[len(rules)-1-i] = r
			}

			p1, err1 := propertyEngine(rules).Resolve(importDecl())
			p2, err2 := propertyEngine(reversed).Resolve(importDecl())
			if err1 != nil || err2 != nil {
				return false
			}
			d1, _ := json.Marshal(BuildTrace("PED-1", p1, nil, 0))
			d2, _ := json.Marshal(BuildTrace("PED-1", p2, nil, 0))
			return string(d1) == string(d2)
		},
		gen.SliceOf(gen.IntRange(0, 1079)),
	))

	properties.TestingRun(t)
}

func TestForbiddenPrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("an applied forbidden rule always yields a forbidden state", prop.ForAll(
		func(seeds []int) bool {
			plan, err := propertyEngine(rulesFromSeeds(seeds)).Resolve(importDecl())
			if err != nil {
				return false
			}
			for _, res := range plan.Resolutions {
				forbidden := false
				for _, c := range res.Candidates {
					if c.Applied && c.Policy == domain.PolicyForbidden {
						forbidden = true
					}
				}
				if forbidden != res.FinalState.Forbidden {
					return false
				}
				if res.FinalState.Forbidden && (res.FinalState.Required || res.FinalState.Min != 0 || res.FinalState.Max != 0) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1079)),
	))

	properties.Property("nothing after an applied stop is applied", prop.ForAll(
		func(seeds []int) bool {
			plan, err := propertyEngine(rulesFromSeeds(seeds)).Resolve(importDecl())
			if err != nil {
				return false
			}
			for _, res := range plan.Resolutions {
				stopped := false
				for _, c := range res.Candidates {
					if stopped && (c.Applied || !c.Blocked) {
						return false
					}
					if c.Applied && c.Stop {
						stopped = true
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1079)),
	))

	properties.TestingRun(t)
}
