package model

import (
	"slices"

	"github.com/samber/lo"
)

// Simplified returns an equivalent decision in normal form: sentinels are
// folded, nested decisions of the same kind are flattened, duplicates are
// removed and options shared by every branch of an Or are factored out.
// A CP decision whose options each meet the target becomes an Or first, so
// it is factored the same way.
func (decision *Decision) Simplified() *Decision {
	if decision.IsImpossible() {
		return decision
	}
	if decision.IsCompleted() {
		return decision.completed()
	}

	options := make([]Option, 0, len(decision.options))
	for _, option := range decision.options {
		if decision.selection == CP {
			// Options without credit points cannot move a CP decision forward
			if option.CreditPoints() <= 0 {
				continue
			}
			options = append(options, simplifiedWorth(option))
			continue
		}
		if child, ok := option.(*Decision); ok {
			option = child.Simplified()
		}
		options = append(options, option)
	}

	switch decision.selection {
	case Or:
		if lo.SomeBy(options, isCompletedOption) {
			return decision.completed()
		}
		options = lo.Reject(options, func(option Option, _ int) bool { return isImpossibleOption(option) })
		options = flatten(options, Or)
	case And:
		if lo.SomeBy(options, isImpossibleOption) {
			return decision.impossible()
		}
		options = lo.Reject(options, func(option Option, _ int) bool { return isCompletedOption(option) })
		options = flatten(options, And)
	}
	if decision.selection != CP {
		// Equal options of a CP decision each count towards the target
		options = lo.UniqBy(options, optionKey)
	}

	switch decision.selection {
	case Or:
		return decision.simplifiedOr(options)
	case And:
		if len(options) == 0 {
			return decision.completed()
		}
		if len(options) == 1 {
			if child, ok := options[0].(*Decision); ok {
				return child.WithReasons(decision.reasons...)
			}
		}
		return decision.derive(And, 0, options)
	}

	if decision.creditPoints <= 0 {
		return decision.completed()
	}
	if !decision.elective {
		sum := sumCreditPoints(options)
		switch {
		case sum < decision.creditPoints:
			return decision.impossible()
		case sum == decision.creditPoints:
			return decision.derive(And, 0, options).Simplified()
		case lo.EveryBy(options, func(option Option) bool { return option.CreditPoints() >= decision.creditPoints }):
			return decision.derive(Or, 0, options).Simplified()
		}
	}
	return decision.derive(CP, decision.creditPoints, options)
}

// simplifiedWorth simplifies an option of a CP decision without changing the
// credit points it counts for once completed.
func simplifiedWorth(option Option) Option {
	child, ok := option.(*Decision)
	if !ok {
		return option
	}
	worth := child.CreditPoints()
	simplified := child.Simplified()
	switch {
	case simplified.IsImpossible() || simplified.CreditPoints() == worth:
		return simplified
	case simplified.CreditPoints() > worth:
		// A bare Or or And would count its own credit points
		return child.derive(CP, worth, []Option{simplified})
	}
	return child
}

func (decision *Decision) simplifiedOr(options []Option) *Decision {
	if len(options) == 0 {
		return decision.impossible()
	}
	if len(options) == 1 {
		if child, ok := options[0].(*Decision); ok {
			return child.WithReasons(decision.reasons...)
		}
		return decision.derive(Or, 0, options)
	}

	// (A and B) or (A and C) becomes A and (B or C)
	branches := lo.Map(options, func(option Option, _ int) []Option {
		if child, ok := option.(*Decision); ok && child.selection == And {
			return child.options
		}
		return []Option{option}
	})
	common := lo.Filter(branches[0], func(option Option, _ int) bool {
		key := optionKey(option)
		return lo.EveryBy(branches[1:], func(branch []Option) bool {
			return slices.ContainsFunc(branch, func(other Option) bool { return optionKey(other) == key })
		})
	})
	if len(common) == 0 {
		return decision.derive(Or, 0, options)
	}

	commonKeys := lo.SliceToMap(common, func(option Option) (string, bool) { return optionKey(option), true })
	rests := make([]Option, 0, len(branches))
	for _, branch := range branches {
		rest := lo.Reject(branch, func(option Option, _ int) bool { return commonKeys[optionKey(option)] })
		if len(rest) == 0 {
			return decision.derive(And, 0, common).Simplified()
		}
		if len(rest) == 1 {
			rests = append(rests, rest[0])
		} else {
			rests = append(rests, decision.derive(And, 0, rest))
		}
	}
	factored := append(slices.Clone(common), decision.derive(Or, 0, rests))
	return decision.derive(And, 0, factored).Simplified()
}

func flatten(options []Option, selection Selection) []Option {
	flat := make([]Option, 0, len(options))
	for _, option := range options {
		if child, ok := option.(*Decision); ok && child.selection == selection {
			flat = append(flat, child.options...)
			continue
		}
		flat = append(flat, option)
	}
	return flat
}

func isCompletedOption(option Option) bool {
	child, ok := option.(*Decision)
	return ok && child.IsCompleted()
}

func isImpossibleOption(option Option) bool {
	child, ok := option.(*Decision)
	return ok && child.IsImpossible()
}
