package model

import (
	"slices"

	"github.com/samber/lo"
)

//** Bans

// recomputeBans derives the banned set from the NCCW lists of the selection
// and from the forced bans of the open decisions.
func (plan *Plan) recomputeBans() {
	banned := make(map[Content][]BanReason)
	ban := func(code string, reason BanReason) {
		content, ok := plan.registry.Lookup(code)
		if !ok {
			return
		}
		banned[content] = append(banned[content], reason)
	}

	for _, content := range plan.SelectedContents() {
		for _, code := range content.NCCWs() {
			ban(code, BanReason{Content: content})
		}
	}
	for _, decision := range plan.decisions {
		for _, code := range decision.ForcedBans() {
			if content, ok := plan.registry.Lookup(code); ok && plan.IsSelected(content) {
				continue
			}
			ban(code, BanReason{Decision: decision})
		}
	}

	plan.banned = banned
}

//** Relations

type relationKey struct {
	from, to  Content
	requisite RequisiteKind
}

// recomputeRelations walks the requisites of every selected content and
// records the selected content they lead to. Electives are not followed.
func (plan *Plan) recomputeRelations() {
	kinds := make(map[relationKey]RelationKind)
	keys := make([]relationKey, 0)
	record := func(key relationKey, kind RelationKind) {
		previous, ok := kinds[key]
		if !ok {
			keys = append(keys, key)
		}
		if !ok || kind == Compulsory && previous == Optional {
			kinds[key] = kind
		}
	}

	type step struct {
		decision   *Decision
		compulsory bool
	}
	for _, from := range plan.selectedByCode() {
		for _, requisite := range []RequisiteKind{Prerequisite, Corequisite} {
			root := from.Prerequisites()
			if requisite == Corequisite {
				root = from.Corequisites()
			}
			queue := []step{{decision: root, compulsory: true}}
			for len(queue) > 0 {
				current := queue[0]
				queue = queue[1:]
				if current.decision.elective {
					continue
				}
				compulsory := current.compulsory && current.decision.requiresEvery()
				for _, option := range current.decision.options {
					switch typed := option.(type) {
					case *Decision:
						queue = append(queue, step{decision: typed, compulsory: compulsory})
					case Content:
						if typed == from || !plan.IsSelected(typed) {
							continue
						}
						kind := Optional
						if compulsory {
							kind = Compulsory
						}
						record(relationKey{from: from, to: typed, requisite: requisite}, kind)
					}
				}
			}
		}
	}

	plan.relations = lo.Map(keys, func(key relationKey, _ int) Relation {
		return Relation{From: key.from, To: key.to, Kind: kinds[key], Requisite: key.requisite}
	})
	plan.compulsory = make(map[Content][]Content)
	for _, relation := range plan.relations {
		if relation.Kind == Compulsory && !slices.Contains(plan.compulsory[relation.From], relation.To) {
			plan.compulsory[relation.From] = append(plan.compulsory[relation.From], relation.To)
		}
	}
}

// OptionMustComeBeforeSubject reports whether option has to be scheduled
// before subject can be. It does not when option itself compulsorily depends
// on subject, in which case they are scheduled together.
func (plan *Plan) OptionMustComeBeforeSubject(option Content, subject *Subject) bool {
	visited := map[Content]bool{option: true}
	queue := []Content{option}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range plan.compulsory[current] {
			if next == Content(subject) {
				return false
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return true
}

//** Earliest times

// recomputeEarliestTimes computes the earliest completion time of every
// subject of the registry. Subjects are revisited whenever one of their
// requisites moves later, until nothing changes.
func (plan *Plan) recomputeEarliestTimes() {
	plan.earliest = make(map[*Subject]Time)

	queue := plan.registry.Subjects()
	queued := lo.SliceToMap(queue, func(subject *Subject) (*Subject, bool) { return subject, true })
	for len(queue) > 0 {
		subject := queue[0]
		queue = queue[1:]
		queued[subject] = false

		t := plan.earliestFor(subject)
		if t == plan.EarliestTime(subject) {
			continue
		}
		plan.earliest[subject] = t
		for _, parent := range plan.registry.Parents(subject) {
			if !queued[parent] {
				queued[parent] = true
				queue = append(queue, parent)
			}
		}
	}
}

func (plan *Plan) earliestFor(subject *Subject) Time {
	if plan.IsBanned(subject) {
		return Never
	}
	t := MaxTime(
		subject.Prerequisites().EarliestCompletionTime(plan).Next(),
		subject.Corequisites().EarliestCompletionTime(plan),
		plan.config.Start,
	)
	return plan.nextAvailable(subject, t)
}

// nextAvailable returns the first time at or after t in which subject is
// offered and fits, or Never when there is none within the horizon.
func (plan *Plan) nextAvailable(subject *Subject, t Time) Time {
	horizon := plan.Horizon()
	for ; !t.IsNever() && !t.After(horizon); t = t.Next() {
		if subject.OfferedIn(t.Session) && plan.Capacity(t) >= subject.CreditPoints() {
			return t
		}
	}
	return Never
}
