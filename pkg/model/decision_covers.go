package model

import (
	"github.com/samber/lo"
)

// Covers reports whether completing the receiver necessarily completes other.
// Decisions that stem from different courses never cover each other, since
// their content cannot count twice.
func (decision *Decision) Covers(other *Decision) bool {
	if other == nil || decision.Equal(other) {
		return false
	}
	if decision.IsCompleted() || decision.IsImpossible() || other.IsCompleted() || other.IsImpossible() {
		return false
	}
	if decision.Unique() && other.Unique() && !sameCourses(decision, other) {
		return false
	}
	// A unique requirement large enough absorbs an open elective pool
	if other.elective && !other.Unique() && decision.Unique() && decision.CreditPoints() >= other.creditPoints {
		return true
	}
	return covers(decision, other)
}

// CoveredBy returns the presented decision of the plan that covers the
// receiver, or nil.
func (decision *Decision) CoveredBy(plan *Plan) *Decision {
	coverer, ok := lo.Find(plan.decisions, func(candidate *Decision) bool {
		return candidate.Covers(decision)
	})
	if !ok {
		return nil
	}
	return coverer
}

func covers(a, b Option) bool {
	if optionKey(a) == optionKey(b) {
		return true
	}

	if decisionA, ok := a.(*Decision); ok && !decisionA.IsImpossible() {
		switch {
		case decisionA.MustPickAll() && decisionA.selection == And:
			if lo.SomeBy(decisionA.options, func(option Option) bool { return covers(option, b) }) {
				return true
			}
		case decisionA.MustPickAll():
			// A CP whose target exceeds its options can never be completed
			if decisionA.creditPoints == sumCreditPoints(decisionA.options) &&
				lo.SomeBy(decisionA.options, func(option Option) bool { return covers(option, b) }) {
				return true
			}
		}
		if decisionA.OnlyPickOne() && len(decisionA.options) > 0 &&
			lo.EveryBy(decisionA.options, func(option Option) bool { return covers(option, b) }) {
			return true
		}
	}

	decisionB, ok := b.(*Decision)
	if !ok {
		content := b.(Content)
		decisionA, ok := a.(*Decision)
		return ok && decisionA.selection == CP && !decisionA.elective &&
			guaranteedCreditPoints(decisionA, map[Content]bool{content: true}) >= content.CreditPoints() &&
			content.CreditPoints() > 0
	}

	if decisionB.IsCompleted() {
		return true
	}
	if decisionB.elective {
		return false
	}
	switch decisionB.selection {
	case And:
		if lo.EveryBy(decisionB.options, func(option Option) bool { return covers(a, option) }) {
			return true
		}
	case Or:
		if lo.SomeBy(decisionB.options, func(option Option) bool { return covers(a, option) }) {
			return true
		}
	case CP:
		if decisionB.OnlyPickOne() &&
			lo.SomeBy(decisionB.options, func(option Option) bool { return covers(a, option) }) {
			return true
		}
		if decisionB.creditPoints == sumCreditPoints(decisionB.options) &&
			lo.EveryBy(decisionB.options, func(option Option) bool { return covers(a, option) }) {
			return true
		}
		contents := make(map[Content]bool)
		for _, option := range decisionB.options {
			if content, ok := option.(Content); ok {
				contents[content] = true
			}
		}
		if guaranteedCreditPoints(a, contents) >= decisionB.creditPoints {
			return true
		}
	}
	return false
}

// guaranteedCreditPoints is a lower bound of the credit points inside within
// that any completion of option includes.
func guaranteedCreditPoints(option Option, within map[Content]bool) int {
	switch typed := option.(type) {
	case Content:
		if within[typed] {
			return typed.CreditPoints()
		}
		return 0
	case *Decision:
		if typed.elective {
			return 0
		}
		switch typed.selection {
		case Or:
			if len(typed.options) == 0 {
				return 0
			}
			return lo.Min(lo.Map(typed.options, func(child Option, _ int) int {
				return guaranteedCreditPoints(child, within)
			}))
		case And:
			amounts := lo.Map(typed.options, func(child Option, _ int) int {
				return guaranteedCreditPoints(child, within)
			})
			if disjointLeaves(typed.options) {
				return lo.Sum(amounts)
			}
			return lo.Max(amounts)
		}
		outside := lo.SumBy(typed.options, func(child Option) int {
			if content, ok := child.(Content); ok && within[content] {
				return 0
			}
			return child.CreditPoints()
		})
		return max(typed.creditPoints-outside, 0)
	}
	return 0
}

func disjointLeaves(options []Option) bool {
	seen := make(map[Content]bool)
	for _, option := range options {
		for content := range leafSet(option) {
			if seen[content] {
				return false
			}
			seen[content] = true
		}
	}
	return true
}

func sameCourses(a, b *Decision) bool {
	coursesOf := func(decision *Decision) map[Content]bool {
		courses := make(map[Content]bool)
		for _, reason := range decision.reasons {
			if _, ok := reason.Content.(*Course); ok && reason.Kind == Prerequisite {
				courses[reason.Content] = true
			}
		}
		return courses
	}
	coursesA, coursesB := coursesOf(a), coursesOf(b)
	return isSubset(coursesA, coursesB) && isSubset(coursesB, coursesA)
}
