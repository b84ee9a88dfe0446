package model

import (
	"math"
	"slices"

	"github.com/samber/lo"
)

func (decision *Decision) EarliestCompletionTime(plan *Plan) Time {
	switch decision.selection {
	case Or:
		return MinTime(lo.Map(decision.options, func(option Option, _ int) Time {
			return option.EarliestCompletionTime(plan)
		})...)
	case And:
		return MaxTime(lo.Map(decision.options, func(option Option, _ int) Time {
			return option.EarliestCompletionTime(plan)
		})...)
	}

	if decision.creditPoints <= 0 {
		return Early
	}
	type contribution struct {
		time         Time
		creditPoints int
	}
	contributions := lo.Map(decision.options, func(option Option, _ int) contribution {
		return contribution{time: option.EarliestCompletionTime(plan), creditPoints: option.CreditPoints()}
	})
	slices.SortStableFunc(contributions, func(a, b contribution) int { return a.time.Compare(b.time) })

	sum := 0
	for _, item := range contributions {
		if item.time.IsNever() {
			break
		}
		sum += item.creditPoints
		if sum >= decision.creditPoints {
			return item.time
		}
	}
	return Never
}

// EnoughCreditPoints reports whether the credit points still needed by the
// decision fit in available, along with that amount.
func (decision *Decision) EnoughCreditPoints(plan *Plan, available int) (bool, int) {
	if decision.HasBeenCompleted(plan, Never) {
		return true, 0
	}
	if decision.HasBeenBanned(plan) {
		return false, decision.CreditPoints()
	}
	required := decision.requiredCreditPoints(plan)
	return required <= available, required
}

func (decision *Decision) requiredCreditPoints(plan *Plan) int {
	requiredBy := func(option Option) int {
		_, required := option.EnoughCreditPoints(plan, math.MaxInt)
		return required
	}

	switch decision.selection {
	case Or:
		candidates := lo.Reject(decision.options, func(option Option, _ int) bool { return option.HasBeenBanned(plan) })
		if len(candidates) == 0 {
			return 0
		}
		return lo.Min(lo.Map(candidates, func(option Option, _ int) int { return requiredBy(option) }))
	case And:
		amounts := lo.Map(decision.options, func(option Option, _ int) int { return requiredBy(option) })
		// Shared content would be counted twice
		if disjointLeaves(decision.options) {
			return lo.Sum(amounts)
		}
		return lo.Max(amounts)
	}

	completed := lo.SumBy(decision.options, func(option Option) int {
		if option.HasBeenCompleted(plan, Never) {
			return option.CreditPoints()
		}
		return 0
	})
	return max(decision.creditPoints-completed, 0)
}

// ForcedBans returns the codes every way of completing the decision bans,
// excluding the decision's own content.
func (decision *Decision) ForcedBans() []string {
	if decision.elective || decision.IsImpossible() {
		return nil
	}

	var bans []string
	switch decision.selection {
	case Or:
		bans = decision.options[0].ForcedBans()
		for _, option := range decision.options[1:] {
			bans = lo.Intersect(bans, option.ForcedBans())
		}
	case And:
		for _, option := range decision.options {
			bans = append(bans, option.ForcedBans()...)
		}
	case CP:
		total := sumCreditPoints(decision.options)
		for _, option := range decision.options {
			if total-option.CreditPoints() < decision.creditPoints {
				bans = append(bans, option.ForcedBans()...)
			}
		}
	}

	own := lo.Map(decision.LeafContents(), func(content Content, _ int) string { return content.Code() })
	bans = lo.Uniq(lo.Without(bans, own...))
	slices.Sort(bans)
	return bans
}
