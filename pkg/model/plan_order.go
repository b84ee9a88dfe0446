package model

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Order greedily assigns every selected subject to a time, filling each time
// in turn up to its capacity. Subjects with a forced time take priority once
// that time is reached. Ties between eligible subjects are broken by, in
// order: most remaining subjects depending on it, fewest offered sessions,
// lowest level, smallest elective requirement, not being a direct course
// requisite, and code.
func (plan *Plan) Order() {
	plan.assignment = make(map[*Subject]Time)
	plan.order = make(map[Time][]*Subject)

	remaining := plan.SelectedSubjects()
	ancestors := plan.ancestors()
	courseRequisites := plan.directCourseRequisites()
	horizon := plan.Horizon()

	for t := plan.config.Start; len(remaining) > 0; t = t.Next() {
		if t.After(horizon) {
			codes := lo.Map(remaining, func(subject *Subject, _ int) string { return subject.Code() })
			invariantf("cannot place %v within %d years", strings.Join(codes, ", "), plan.config.MaxYears)
		}

		used := 0
		for {
			next := plan.pickNext(t, remaining, used, ancestors, courseRequisites)
			if next == nil {
				break
			}
			plan.assignment[next] = t
			plan.order[t] = append(plan.order[t], next)
			used += next.CreditPoints()
			remaining = lo.Without(remaining, next)
		}
	}
}

func (plan *Plan) pickNext(
	t Time,
	remaining []*Subject,
	used int,
	ancestors map[*Subject]map[*Subject]bool,
	courseRequisites map[*Subject]bool,
) *Subject {
	capacity := plan.Capacity(t)
	candidates := lo.Filter(remaining, func(subject *Subject, _ int) bool {
		if forced, ok := plan.forcedTimes[subject]; ok && forced.After(t) {
			return false
		}
		return subject.OfferedIn(t.Session) && used+subject.CreditPoints() <= capacity
	})

	overdue := lo.SomeBy(remaining, func(subject *Subject) bool {
		forced, ok := plan.forcedTimes[subject]
		return ok && !forced.After(t)
	})
	if overdue {
		candidates = lo.Filter(candidates, func(subject *Subject, _ int) bool {
			_, ok := plan.forcedTimes[subject]
			return ok
		})
		slices.SortStableFunc(candidates, func(a, b *Subject) int {
			return cmp.Or(plan.forcedTimes[a].Compare(plan.forcedTimes[b]), compareSubjects(a, b))
		})
		if len(candidates) == 0 {
			return nil
		}
		return candidates[0]
	}

	candidates = lo.Filter(candidates, func(subject *Subject, _ int) bool {
		return plan.RequisitesHaveBeenSelected(subject, t)
	})
	if len(candidates) == 0 {
		return nil
	}

	pending := lo.SliceToMap(remaining, func(subject *Subject) (*Subject, bool) { return subject, true })
	dependents := func(subject *Subject) int {
		return lo.CountBy(lo.Keys(ancestors[subject]), func(ancestor *Subject) bool { return pending[ancestor] })
	}
	electiveSize := func(subject *Subject) int {
		return subject.Prerequisites().electiveSize() + subject.Corequisites().electiveSize()
	}
	slices.SortStableFunc(candidates, func(a, b *Subject) int {
		return cmp.Or(
			cmp.Compare(dependents(b), dependents(a)),
			cmp.Compare(len(a.Offered()), len(b.Offered())),
			cmp.Compare(a.Level(), b.Level()),
			cmp.Compare(electiveSize(a), electiveSize(b)),
			compareBool(courseRequisites[a], courseRequisites[b]),
			compareSubjects(a, b),
		)
	})
	return candidates[0]
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

// ancestors maps each selected subject to the selected subjects that depend
// on it, directly or transitively.
func (plan *Plan) ancestors() map[*Subject]map[*Subject]bool {
	dependants := make(map[Content][]Content)
	for _, relation := range plan.relations {
		dependants[relation.To] = append(dependants[relation.To], relation.From)
	}

	result := make(map[*Subject]map[*Subject]bool)
	for _, subject := range plan.SelectedSubjects() {
		found := make(map[*Subject]bool)
		visited := map[Content]bool{subject: true}
		queue := []Content{subject}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, dependant := range dependants[current] {
				if visited[dependant] {
					continue
				}
				visited[dependant] = true
				queue = append(queue, dependant)
				if typed, ok := dependant.(*Subject); ok {
					found[typed] = true
				}
			}
		}
		result[subject] = found
	}
	return result
}

func (plan *Plan) directCourseRequisites() map[*Subject]bool {
	result := make(map[*Subject]bool)
	for _, relation := range plan.relations {
		if _, ok := relation.From.(*Course); !ok {
			continue
		}
		if subject, ok := relation.To.(*Subject); ok {
			result[subject] = true
		}
	}
	return result
}

//** Requisite checks

// RequisitesHaveBeenSelected reports whether subject may be placed at t given
// what has been scheduled so far.
func (plan *Plan) RequisitesHaveBeenSelected(subject *Subject, t Time) bool {
	return plan.requisiteReady(subject, subject.Prerequisites(), t, Prerequisite) &&
		plan.requisiteReady(subject, subject.Corequisites(), t, Corequisite)
}

func (plan *Plan) requisiteReady(subject *Subject, option Option, t Time, kind RequisiteKind) bool {
	switch typed := option.(type) {
	case Content:
		return plan.contentReady(subject, typed, t, kind)
	case *Decision:
		return plan.decisionReady(subject, typed, t, kind)
	}
	return true
}

func (plan *Plan) contentReady(subject *Subject, content Content, t Time, kind RequisiteKind) bool {
	dependency, ok := content.(*Subject)
	if !ok {
		return true
	}
	if scheduled, ok := plan.assignment[dependency]; ok {
		if kind == Prerequisite {
			return scheduled.Before(t)
		}
		return !scheduled.After(t)
	}
	return !plan.OptionMustComeBeforeSubject(dependency, subject)
}

func (plan *Plan) decisionReady(subject *Subject, decision *Decision, t Time, kind RequisiteKind) bool {
	if decision.elective {
		return t.Year-plan.config.Start.Year >= subject.Level()-1
	}

	involved := lo.Filter(decision.options, func(option Option, _ int) bool {
		return plan.involvesSelection(option)
	})
	ready := func(option Option) bool {
		return plan.requisiteReady(subject, option, t, kind)
	}

	switch decision.selection {
	case And:
		return lo.EveryBy(involved, ready)
	case Or:
		return len(involved) == 0 || lo.SomeBy(involved, ready)
	}

	needed := min(decision.creditPoints, sumCreditPoints(involved))
	counted := lo.SumBy(involved, func(option Option) int {
		if ready(option) {
			return option.CreditPoints()
		}
		return 0
	})
	return counted >= needed
}

func (plan *Plan) involvesSelection(option Option) bool {
	switch typed := option.(type) {
	case Content:
		return plan.IsSelected(typed)
	case *Decision:
		return typed.elective || lo.SomeBy(typed.LeafContents(), plan.IsSelected)
	}
	return false
}
