package model

import (
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestDecisionSentinels(t *testing.T) {
	assert.True(t, Completed.IsCompleted())
	assert.True(t, Impossible.IsImpossible())
	assert.True(t, NewAnd().IsCompleted())
	assert.True(t, NewOr().IsImpossible())
	assert.True(t, NewCP(0, newSubject("A", 10)).IsCompleted())
	assert.False(t, Completed.IsImpossible())
	assert.False(t, Impossible.IsCompleted())

	plan := NewPlan(newTestRegistry(), DefaultPlanConfig())
	assert.True(t, Completed.HasBeenCompleted(plan, Early))
	assert.False(t, Completed.HasBeenBanned(plan))
	assert.False(t, Impossible.HasBeenCompleted(plan, Never))
	assert.True(t, Impossible.HasBeenBanned(plan))
}

func TestDecisionStructuralEquality(t *testing.T) {
	a, b := newSubject("A", 10), newSubject("B", 10)
	course := NewCourse("BSC", "", Qualification, nil)

	assert.Equal(t, NewOr(a, b).Key(), NewOr(b, a).Key())
	assert.True(t, NewOr(a, b).WithReasons(Reason{Content: course}).Equal(NewOr(b, a)))
	assert.False(t, NewOr(a, b).Equal(NewAnd(a, b)))
	assert.False(t, NewCP(10, a, b).Equal(NewCP(20, a, b)))
	assert.False(t, NewCP(10, a, b).Equal(NewElective(10, a, b)))
}

func TestDecisionUnique(t *testing.T) {
	a := newSubject("A", 10)
	course := NewCourse("BSC", "", Qualification, nil)
	subject := newSubject("COMP2000", 10)

	assert.True(t, NewOr(a).WithReasons(Reason{Content: course, Kind: Prerequisite}).Unique())
	assert.False(t, NewOr(a).WithReasons(Reason{Content: course, Kind: Corequisite}).Unique())
	assert.False(t, NewOr(a).WithReasons(Reason{Content: subject, Kind: Prerequisite}).Unique())

	t.Run("Requisites stamp reasons deep", func(t *testing.T) {
		// Arrange
		inner := NewCP(10, a, newSubject("B", 10), newSubject("C", 10))
		course.SetRequisites(NewAnd(newSubject("X", 10), inner), nil)

		// Act
		options := course.Prerequisites().Options()

		// Assert
		nested := options[1].(*Decision)
		assert.True(t, course.Prerequisites().Unique())
		assert.True(t, nested.Unique())
		assert.Equal(t, []string{"BSC"}, reasonCodes(nested))
	})
}

func TestDecisionSimplified(t *testing.T) {
	a, b, c, d := newSubject("A", 10), newSubject("B", 10), newSubject("C", 10), newSubject("D", 10)
	e := newSubject("E", 20)

	scenarios := []struct {
		name     string
		decision *Decision
		expected string
	}{
		{"Credit points already met", NewCP(0, a), Completed.Key()},
		{"Credit points needing every option", NewCP(20, a, b), "AND[A,B]"},
		{"Credit points met by any option", NewCP(10, a, b), "OR[A,B]"},
		{"Credit points out of reach", NewCP(30, a, b), Impossible.Key()},
		{"Electives are kept open", NewElective(30, a, b), "CP30e[A,B]"},
		{"Common options are factored out", NewOr(NewAnd(a, b), NewAnd(a, c)), "AND[A,OR[B,C]]"},
		{"Absorbed branch", NewOr(a, NewAnd(a, c)), "AND[A]"},
		{"Nested disjunctions are flattened", NewOr(a, NewOr(b, c)), "OR[A,B,C]"},
		{"Nested conjunctions are flattened", NewAnd(a, NewAnd(b, NewAnd(c, d))), "AND[A,B,C,D]"},
		{"Single decision collapses", NewAnd(NewOr(a, b)), "OR[A,B]"},
		{"Completed option completes a disjunction", NewOr(Completed, a), Completed.Key()},
		{"Impossible option is dropped from a disjunction", NewOr(Impossible, a, b), "OR[A,B]"},
		{"Impossible option fails a conjunction", NewAnd(Impossible, a), Impossible.Key()},
		{"Completed option is dropped from a conjunction", NewAnd(Completed, a, b), "AND[A,B]"},
		{"Duplicates are removed", NewOr(a, a, b), "OR[A,B]"},
		{"Threshold credit points are factored", NewCP(10, NewAnd(a, b), NewAnd(a, c)), "AND[A,OR[B,C]]"},
		{"Nested credit points keep their worth", NewCP(16, c, NewCP(2, NewAnd(e))), Impossible.Key()},
		{"Nested credit points count their target", NewCP(4, c, NewCP(2, NewAnd(e))), "CP4[C,CP2[AND[E]]]"},
		{"Repeated credit point options each count", NewCP(20, NewOr(a, b), NewCP(10, a, b)), "OR[A,B]"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			assert.Equal(t, scenario.expected, scenario.decision.Simplified().Key())
		})
	}

	t.Run("Reasons survive collapsing", func(t *testing.T) {
		subject := newSubject("COMP2000", 10)
		decision := NewAnd(NewOr(a, b)).WithReasons(Reason{Content: subject})
		assert.Equal(t, []string{"COMP2000"}, reasonCodes(decision.Simplified()))
	})
}

func TestDecisionWithoutContent(t *testing.T) {
	a, b, c, d := newSubject("A", 10), newSubject("B", 10), newSubject("C", 10), newSubject("D", 10)

	t.Run("Direct options", func(t *testing.T) {
		assert.True(t, NewOr(a, b).WithoutContent(a, true).IsCompleted())
		assert.Equal(t, "AND[B]", NewAnd(a, b).WithoutContent(a, true).Key())
		assert.Equal(t, "CP10[B,C]", NewCP(20, a, b, c).WithoutContent(a, true).Key())
		assert.True(t, NewCP(10, a, b).WithoutContent(a, true).IsCompleted())
	})

	t.Run("Unrelated content is ignored", func(t *testing.T) {
		decision := NewAnd(b, NewOr(c, d))
		assert.Equal(t, decision.Key(), decision.WithoutContent(a, true).Key())
	})

	t.Run("Designation branches", func(t *testing.T) {
		// Act
		result := NewAnd(NewCP(10, a, b), NewCP(10, a, c)).WithoutContent(a, true)

		// Assert
		assert.Equal(t, "OR[A,B,C]", result.Key())
	})

	t.Run("Supersets of another candidate are not designated", func(t *testing.T) {
		// Act
		result := NewAnd(NewCP(10, a, b), NewCP(10, a, b, c)).WithoutContent(a, true)

		// Assert
		assert.Equal(t, "OR[A,B,C]", result.Simplified().Key())
	})

	t.Run("Designated child lowers the credit point target", func(t *testing.T) {
		e, f := newSubject("E", 10), newSubject("F", 10)
		decision := NewCP(20, NewCP(10, a, b), NewCP(10, c, d), NewCP(10, e, f))

		// Act
		result := decision.WithoutContent(a, true)

		// Assert
		assert.Equal(t, "OR[C,D,E,F]", result.Simplified().Key())
		assert.True(t, result.WithoutContent(c, true).IsCompleted())
	})

	t.Run("Target drops by what the child gives up", func(t *testing.T) {
		large := newSubject("L", 20)

		// Act
		result := NewCP(30, NewOr(large, b), c, d).WithoutContent(large, true)

		// Assert
		assert.Equal(t, "CP20[AND[],C,D]", result.Key())
		assert.Equal(t, "AND[C,D]", result.Simplified().Key())
	})

	t.Run("Non-designated removal is uniform", func(t *testing.T) {
		// Act
		result := NewAnd(d, NewCP(10, a, b), NewCP(10, a, c)).WithoutContent(a, false)

		// Assert
		assert.Equal(t, "AND[D]", result.Simplified().Key())
	})
}

func TestDecisionRemaining(t *testing.T) {
	a, b, c := newSubject("A", 10), newSubject("B", 10), newSubject("C", 10)
	plan := NewPlan(newTestRegistry(a, b, c), DefaultPlanConfig())
	plan.selected = []Content{a}
	plan.resetDerived()
	plan.banned[b] = []BanReason{{Content: a}}

	assert.True(t, NewOr(a, c).RemainingDecision(plan).IsCompleted())
	assert.Equal(t, "OR[C]", NewOr(b, c).RemainingDecision(plan).Key())
	assert.True(t, NewAnd(b, c).RemainingDecision(plan).IsImpossible())
	assert.Equal(t, "AND[C]", NewAnd(a, c).RemainingDecision(plan).Key())
	assert.Equal(t, "AND[C]", NewCP(20, a, b, c).RemainingDecision(plan).Simplified().Key())
	assert.True(t, NewCP(30, a, b, c).RemainingDecision(plan).Simplified().IsImpossible())

	t.Run("Nested credit point requirements", func(t *testing.T) {
		d, e, f := newSubject("D", 10), newSubject("E", 10), newSubject("F", 10)
		top := newSubject("TOP", 10)
		requirement := NewCP(20, NewCP(10, a, c), NewCP(10, d, e), NewCP(10, f, newSubject("G", 10)))
		plan := NewPlan(newTestRegistry(a, c, d, e, f, top), DefaultPlanConfig())
		plan.selected = []Content{top, a}
		plan.resetDerived()

		// Act
		remaining := requirement.RemainingDecision(plan).Simplified()

		// Assert
		assert.Equal(t, "OR[D,E,F,G]", remaining.Key())

		plan.selected = append(plan.selected, d)
		plan.resetDerived()
		assert.True(t, requirement.HasBeenCompleted(plan, Never))
		remaining = requirement.RemainingDecision(plan).Simplified()
		assert.True(t, remaining.IsCompleted())
		assert.False(t, remaining.HasBeenBanned(plan))
	})
}

func TestDecisionCovers(t *testing.T) {
	a, b, c := newSubject("A", 6), newSubject("B", 6), newSubject("C", 6)
	x, y := newSubject("X", 10), newSubject("Y", 10)

	t.Run("Smaller pool with the same target", func(t *testing.T) {
		assert.True(t, NewCP(10, a, b).Covers(NewCP(10, a, b, c)))
		assert.False(t, NewCP(10, a, b, c).Covers(NewCP(10, a, b)))
	})

	t.Run("Conjunctions and disjunctions", func(t *testing.T) {
		assert.True(t, NewAnd(x, y).Covers(NewOr(x, c)))
		assert.True(t, NewOr(x, y).Covers(NewOr(x, y, c)))
		assert.False(t, NewOr(x, y).Covers(NewAnd(x, y)))
		assert.False(t, NewOr(x, y).Covers(NewOr(x, c)))
	})

	t.Run("Different courses never cover each other", func(t *testing.T) {
		first, second := NewCourse("BSC", "", Qualification, nil), NewCourse("BA", "", Qualification, nil)
		covering := NewOr(x, y).WithReasons(Reason{Content: first, Kind: Prerequisite})

		assert.False(t, covering.Covers(NewOr(x, y, c).WithReasons(Reason{Content: second, Kind: Prerequisite})))
		assert.True(t, covering.Covers(NewOr(x, y, c).WithReasons(Reason{Content: first, Kind: Prerequisite})))
	})

	t.Run("Unique requirement absorbs electives", func(t *testing.T) {
		course := NewCourse("BSC", "", Qualification, nil)
		unique := NewCP(20, x, y, c).WithReasons(Reason{Content: course, Kind: Prerequisite})

		assert.True(t, unique.Covers(NewElective(10, a, b)))
		assert.False(t, unique.Covers(NewElective(30, a, b)))
	})
}

func TestDecisionEarliestCompletionTime(t *testing.T) {
	a, b, c := newSubject("A", 10), newSubject("B", 10), newSubject("C", 10)
	plan := NewPlan(newTestRegistry(a, b, c), DefaultPlanConfig())
	plan.earliest[a] = NewTime(1, S1)
	plan.earliest[b] = NewTime(1, S2)
	plan.earliest[c] = NewTime(2, S1)

	assert.Equal(t, NewTime(1, S1), NewOr(a, c).EarliestCompletionTime(plan))
	assert.Equal(t, NewTime(2, S1), NewAnd(a, c).EarliestCompletionTime(plan))
	assert.Equal(t, Early, NewAnd().EarliestCompletionTime(plan))
	assert.Equal(t, Never, NewOr().EarliestCompletionTime(plan))
	assert.Equal(t, NewTime(1, S2), NewCP(20, c, b, a).EarliestCompletionTime(plan))
	assert.Equal(t, Never, NewCP(40, a, b, c).EarliestCompletionTime(plan))

	plan.earliest[b] = Never
	assert.Equal(t, NewTime(2, S1), NewCP(20, a, b, c).EarliestCompletionTime(plan))
}

func TestDecisionForcedBans(t *testing.T) {
	p := NewSubject("P", "", 10, []Session{S1}, 0, []string{"Q"})
	r := NewSubject("R", "", 10, []Session{S1}, 0, []string{"Q"})
	s := newSubject("S", 10)
	u := NewSubject("U", "", 10, []Session{S1}, 0, []string{"P", "Q"})

	assert.Equal(t, []string{"Q"}, NewAnd(p, s).ForcedBans())
	assert.Equal(t, []string{"Q"}, NewOr(p, r).ForcedBans())
	assert.Empty(t, NewOr(p, s).ForcedBans())
	assert.Empty(t, NewCP(20, p, s, r).ForcedBans())
	assert.Equal(t, []string{"Q"}, NewCP(20, p, s).ForcedBans())
	assert.Equal(t, []string{"Q"}, NewAnd(u, p).ForcedBans(), "own options are never banned")
	assert.Empty(t, NewElective(10, p).ForcedBans())
}

func TestDecisionEnoughCreditPoints(t *testing.T) {
	a, b, c := newSubject("A", 10), newSubject("B", 30), newSubject("C", 10)
	plan := NewPlan(newTestRegistry(a, b, c), DefaultPlanConfig())

	enough, required := NewAnd(a, c).EnoughCreditPoints(plan, 15)
	assert.False(t, enough)
	assert.Equal(t, 20, required)

	enough, required = NewOr(a, b).EnoughCreditPoints(plan, 15)
	assert.True(t, enough)
	assert.Equal(t, 10, required)

	_, required = NewAnd(NewOr(a, b), NewOr(a, c)).EnoughCreditPoints(plan, 100)
	assert.Equal(t, 10, required, "shared content is not counted twice")

	plan.selected = []Content{a}
	plan.resetDerived()
	enough, required = NewCP(20, a, b, c).EnoughCreditPoints(plan, 10)
	assert.True(t, enough)
	assert.Equal(t, 10, required)
}

//** Properties over random decisions

func randomDecision(rng *rand.Rand, leaves []*Subject, depth int) *Decision {
	selection := Selection(rng.Intn(3))
	count := 1 + rng.Intn(3)
	options := make([]Option, 0, count)
	for _, index := range rng.Perm(len(leaves))[:count] {
		if depth > 0 && rng.Intn(3) == 0 {
			options = append(options, randomDecision(rng, leaves, depth-1))
			continue
		}
		options = append(options, leaves[index])
	}
	options = lo.UniqBy(options, optionKey)

	if selection != CP {
		return NewDecision(selection, 0, options)
	}
	target := rng.Intn(sumCreditPoints(options) + 6)
	if rng.Intn(6) == 0 {
		return NewElective(target, options...)
	}
	return NewCP(target, options...)
}

func randomPlan(rng *rand.Rand, leaves []*Subject) *Plan {
	contents := lo.Map(leaves, func(subject *Subject, _ int) Content { return subject })
	plan := NewPlan(newTestRegistry(contents...), DefaultPlanConfig())
	for _, leaf := range leaves {
		switch rng.Intn(4) {
		case 0:
			plan.selected = append(plan.selected, leaf)
		case 1:
			plan.banned[leaf] = []BanReason{{}}
		}
	}
	plan.resetDerived()
	return plan
}

func randomLeaves() []*Subject {
	return []*Subject{
		newSubject("A", 6),
		newSubject("B", 10),
		newSubject("C", 10),
		newSubject("D", 12),
		newSubject("E", 20),
	}
}

func TestSimplificationPreservesMeaning(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	leaves := randomLeaves()

	for range 2000 {
		// Arrange
		decision := randomDecision(rng, leaves, 2)
		plan := randomPlan(rng, leaves)

		// Act
		simplified := decision.Simplified()

		// Assert
		assert.Equal(t, decision.HasBeenCompleted(plan, Never), simplified.HasBeenCompleted(plan, Never),
			"completion of %v and %v", decision.Key(), simplified.Key())
		assert.Equal(t, decision.HasBeenSpeculativelyCompleted(plan, Never), simplified.HasBeenSpeculativelyCompleted(plan, Never),
			"speculative completion of %v and %v", decision.Key(), simplified.Key())
		assert.Equal(t, decision.HasBeenBanned(plan), simplified.HasBeenBanned(plan),
			"ban of %v and %v", decision.Key(), simplified.Key())
	}
}

func TestCompletedDecisionsLeaveNothingRemaining(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	leaves := randomLeaves()

	completed := 0
	for range 3000 {
		// Arrange
		decision := randomDecision(rng, leaves, 2)
		plan := randomPlan(rng, leaves)
		if !decision.HasBeenCompleted(plan, Never) {
			continue
		}
		completed++

		// Act
		remaining := decision.RemainingDecision(plan).Simplified()

		// Assert
		assert.True(t, remaining.IsCompleted(), "%v reduced to %v", decision.Key(), remaining.Key())
		assert.False(t, remaining.HasBeenBanned(plan), "%v reduced to %v", decision.Key(), remaining.Key())
	}
	assert.Greater(t, completed, 0)
}

func TestCoverageIsSound(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	leaves := randomLeaves()

	covered := 0
	for range 3000 {
		// Arrange
		a := randomDecision(rng, leaves, 2).Simplified()
		b := randomDecision(rng, leaves, 2).Simplified()
		if !a.Covers(b) {
			continue
		}
		covered++

		// Assert
		for range 20 {
			plan := randomPlan(rng, leaves)
			if a.HasBeenCompleted(plan, Never) {
				assert.True(t, b.HasBeenCompleted(plan, Never), "%v covers %v", a.Key(), b.Key())
			}
		}
	}
	assert.Greater(t, covered, 0)
}
