package model

import (
	"slices"

	"github.com/samber/lo"
)

//** Completion and bans

func (decision *Decision) HasBeenCompleted(plan *Plan, by Time) bool {
	return decision.completedBy(plan, by, false)
}

// HasBeenSpeculativelyCompleted is HasBeenCompleted with electives assumed
// satisfied.
func (decision *Decision) HasBeenSpeculativelyCompleted(plan *Plan, by Time) bool {
	return decision.completedBy(plan, by, true)
}

func (decision *Decision) completedBy(plan *Plan, by Time, speculative bool) bool {
	if speculative && decision.elective {
		return true
	}
	switch decision.selection {
	case Or:
		return lo.SomeBy(decision.options, func(option Option) bool {
			return option.completedBy(plan, by, speculative)
		})
	case And:
		return lo.EveryBy(decision.options, func(option Option) bool {
			return option.completedBy(plan, by, speculative)
		})
	}

	if decision.creditPoints <= 0 {
		return true
	}
	sum := 0
	for _, option := range decision.options {
		if option.completedBy(plan, by, speculative) {
			sum += option.CreditPoints()
			if sum >= decision.creditPoints {
				return true
			}
		}
	}
	return false
}

func (decision *Decision) HasBeenBanned(plan *Plan) bool {
	if decision.elective {
		return false
	}
	switch decision.selection {
	case Or:
		return lo.EveryBy(decision.options, func(option Option) bool { return option.HasBeenBanned(plan) })
	case And:
		return lo.SomeBy(decision.options, func(option Option) bool { return option.HasBeenBanned(plan) })
	}
	available := lo.SumBy(decision.options, func(option Option) int {
		if option.HasBeenBanned(plan) {
			return 0
		}
		return option.CreditPoints()
	})
	return available < decision.creditPoints
}

// CreditPoints is the least amount of credit points that satisfies the
// decision.
func (decision *Decision) CreditPoints() int {
	switch decision.selection {
	case Or:
		if len(decision.options) == 0 {
			return 0
		}
		return lo.Min(lo.Map(decision.options, func(option Option, _ int) int { return option.CreditPoints() }))
	case And:
		return sumCreditPoints(decision.options)
	}
	return max(decision.creditPoints, 0)
}

// RequiredCompletionTime is the latest time by which the decision has to be
// satisfied for the content it stems from to stay where it is scheduled.
// Reasons that are not scheduled subjects impose no constraint.
func (decision *Decision) RequiredCompletionTime(plan *Plan) Time {
	required := Never
	for _, reason := range decision.reasons {
		subject, ok := reason.Content.(*Subject)
		if !ok {
			continue
		}
		scheduled, ok := plan.TimeOf(subject)
		if !ok {
			continue
		}
		if reason.Kind == Prerequisite {
			scheduled = scheduled.Previous()
		}
		required = MinTime(required, scheduled)
	}
	return required
}

//** Reduction

// RemainingDecision returns what is still left to decide once the plan's
// selections and bans have been taken into account. The result is not
// simplified.
func (decision *Decision) RemainingDecision(plan *Plan) *Decision {
	if decision.IsCompleted() || decision.IsImpossible() {
		return decision
	}
	return decision.remaining(plan, decision.RequiredCompletionTime(plan))
}

func (decision *Decision) remaining(plan *Plan, required Time) *Decision {
	switch decision.selection {
	case Or:
		if lo.SomeBy(decision.options, func(option Option) bool { return option.completedBy(plan, required, false) }) {
			return decision.completed()
		}
		options := make([]Option, 0, len(decision.options))
		for _, option := range decision.options {
			if option.HasBeenBanned(plan) {
				continue
			}
			if child, ok := option.(*Decision); ok {
				option = child.remaining(plan, required)
			}
			options = append(options, option)
		}
		return decision.derive(Or, 0, options)

	case And:
		options := make([]Option, 0, len(decision.options))
		for _, option := range decision.options {
			if option.completedBy(plan, required, false) {
				continue
			}
			if option.HasBeenBanned(plan) {
				return decision.impossible()
			}
			if child, ok := option.(*Decision); ok {
				option = child.remaining(plan, required)
			}
			options = append(options, option)
		}
		return decision.derive(And, 0, options)
	}

	if decision.completedBy(plan, required, false) {
		return decision.completed()
	}
	result := decision
	for _, content := range plan.selectedByCode() {
		if !result.containsContent(content) || !content.completedBy(plan, required, false) {
			continue
		}
		result = result.WithoutContent(content, true)
		if result.IsCompleted() {
			return result
		}
	}
	return result.withoutBanned(plan)
}

// withoutBanned strips banned content from the tree.
func (decision *Decision) withoutBanned(plan *Plan) *Decision {
	options := make([]Option, 0, len(decision.options))
	for _, option := range decision.options {
		if child, ok := option.(*Decision); ok {
			option = child.withoutBanned(plan)
		}
		if option.HasBeenBanned(plan) {
			if decision.selection == And {
				return decision.impossible()
			}
			continue
		}
		options = append(options, option)
	}
	return decision.derive(decision.selection, decision.creditPoints, options)
}

// WithoutContent returns the decision with content already taken care of.
//
// When the content sits directly among the options it is consumed: an Or is
// completed, an And drops it and a CP drops it and lowers its target. When it
// only sits inside child decisions, an And or CP designates which child it
// counts towards; every admissible designation becomes one branch of the
// resulting Or. A child is admissible unless another candidate child holds a
// strict subset of its content. Designation is skipped for non-designated
// calls on decisions that also list bare content.
func (decision *Decision) WithoutContent(content Content, designated bool) *Decision {
	if decision.IsCompleted() || decision.IsImpossible() {
		return decision
	}

	if index := decision.indexOfContent(content); index >= 0 {
		rest := slices.Delete(slices.Clone(decision.options), index, index+1)
		switch decision.selection {
		case Or:
			return decision.completed()
		case And:
			return decision.derive(And, 0, rest)
		}
		target := decision.creditPoints - content.CreditPoints()
		if target <= 0 {
			return decision.completed()
		}
		return decision.derive(CP, target, rest)
	}

	candidates := make([]int, 0)
	for index, option := range decision.options {
		if child, ok := option.(*Decision); ok && child.containsContent(content) {
			candidates = append(candidates, index)
		}
	}
	if len(candidates) == 0 {
		return decision
	}

	if decision.selection == Or {
		return decision.withoutContentUniformly(content, candidates, designated)
	}

	admissible := decision.admissibleDesignations(candidates, designated)
	if len(admissible) == 0 {
		return decision.withoutContentUniformly(content, candidates, false)
	}

	results := lo.Map(admissible, func(index int, _ int) Option {
		return decision.absorbedBy(index, content)
	})
	if len(results) == 1 {
		return results[0].(*Decision)
	}
	return decision.derive(Or, 0, results).Simplified()
}

// absorbedBy reduces the child at index by content. A CP decision lowers its
// target by the credit points the child gives up, never by more than the
// content's own.
func (decision *Decision) absorbedBy(index int, content Content) *Decision {
	options := slices.Clone(decision.options)
	child := options[index].(*Decision)
	reduced := child.WithoutContent(content, true)
	options[index] = reduced
	if decision.selection != CP {
		return decision.derive(decision.selection, 0, options)
	}

	released := min(max(child.CreditPoints()-reduced.CreditPoints(), 0), content.CreditPoints())
	target := decision.creditPoints - released
	if target <= 0 {
		return decision.completed()
	}
	return decision.derive(CP, target, options)
}

func (decision *Decision) withoutContentUniformly(content Content, candidates []int, designated bool) *Decision {
	options := slices.Clone(decision.options)
	for _, index := range candidates {
		options[index] = options[index].(*Decision).WithoutContent(content, designated)
	}
	return decision.derive(decision.selection, decision.creditPoints, options)
}

func (decision *Decision) admissibleDesignations(candidates []int, designated bool) []int {
	if !designated && lo.SomeBy(decision.options, isContent) {
		return nil
	}
	sets := lo.Map(candidates, func(index int, _ int) map[Content]bool {
		return leafSet(decision.options[index])
	})
	admissible := make([]int, 0, len(candidates))
	for i, index := range candidates {
		superset := false
		for j := range candidates {
			if i != j && len(sets[j]) < len(sets[i]) && isSubset(sets[j], sets[i]) {
				superset = true
				break
			}
		}
		if !superset {
			admissible = append(admissible, index)
		}
	}
	return admissible
}
