package model

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestDeciderSingleSubject(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10, S1)
	decider := newTestDecider(x)

	// Act
	err := decider.AddContent(x)

	// Assert
	assert.Nil(t, err)
	plan := decider.Plan()
	assert.Empty(t, plan.Decisions())
	scheduled, ok := plan.TimeOf(x)
	assert.True(t, ok)
	assert.Equal(t, NewTime(1, S1), scheduled)
	assert.Nil(t, plan.Verify())
}

func TestDeciderSimplePrerequisite(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	y := newSubject("COMP2000", 10)
	y.SetRequisites(NewOr(x), nil)
	decider := newTestDecider(x, y)
	plan := decider.Plan()

	t.Run("Open decision", func(t *testing.T) {
		// Act
		err := decider.AddContent(y)

		// Assert
		assert.Nil(t, err)
		assert.Equal(t, []string{"OR[COMP1000]"}, decisionKeys(plan.Decisions()))
		assert.Equal(t, []string{"COMP2000"}, reasonCodes(plan.Decisions()[0]))
	})

	t.Run("Answered decision", func(t *testing.T) {
		// Act
		err := decider.AddContent(x)

		// Assert
		assert.Nil(t, err)
		assert.Empty(t, plan.Decisions())
		timeX, _ := plan.TimeOf(x)
		timeY, _ := plan.TimeOf(y)
		assert.True(t, timeX.Before(timeY))
		assert.Nil(t, plan.Verify())
	})

	t.Run("Removing the dependency reopens the decision", func(t *testing.T) {
		// Act
		err := decider.RemoveContent(x)

		// Assert
		assert.Nil(t, err)
		assert.Equal(t, []string{"OR[COMP1000]"}, decisionKeys(plan.Decisions()))
	})
}

func TestDeciderPickAllSelectsOnBehalf(t *testing.T) {
	// Arrange
	a := newSubject("COMP1001", 10)
	b := newSubject("COMP1002", 10)
	s := newSubject("COMP3000", 10)
	s.SetRequisites(NewAnd(a, b), nil)
	decider := newTestDecider(a, b, s)
	plan := decider.Plan()

	// Act
	err := decider.AddContent(s)

	// Assert
	assert.Nil(t, err)
	assert.Empty(t, plan.Decisions())
	assert.ElementsMatch(t, []string{"COMP1001", "COMP1002"}, contentCodes(plan.DerivedSelections()))
	assert.Equal(t, []string{"COMP3000"}, contentCodes(plan.UserSelections()))

	timeS, _ := plan.TimeOf(s)
	for _, requisite := range []*Subject{a, b} {
		scheduled, ok := plan.TimeOf(requisite)
		assert.True(t, ok)
		assert.True(t, scheduled.Before(timeS))
	}

	relations := plan.Relations()
	assert.Len(t, relations, 2)
	for _, relation := range relations {
		assert.Equal(t, Compulsory, relation.Kind)
		assert.Equal(t, Content(s), relation.From)
	}

	t.Run("Derived selections follow the user", func(t *testing.T) {
		assert.Nil(t, decider.RemoveContent(s))
		assert.Empty(t, plan.DerivedSelections())
		assert.Empty(t, plan.SelectedSubjects())
	})
}

func TestDeciderIncompatibleContent(t *testing.T) {
	// Arrange
	p := NewSubject("PHYS1001", "", 10, []Session{S1, S2}, 0, []string{"PHYS1002"})
	q := NewSubject("PHYS1002", "", 10, []Session{S1, S2}, 0, []string{"PHYS1001"})
	z := newSubject("MATH2000", 10)
	z.SetRequisites(NewOr(q), nil)
	decider := newTestDecider(p, q, z)
	plan := decider.Plan()

	t.Run("Selecting bans the incompatible subject", func(t *testing.T) {
		// Act
		err := decider.AddContent(p)

		// Assert
		assert.Nil(t, err)
		assert.Equal(t, []string{"PHYS1002"}, contentCodes(plan.BannedContents()))
		assert.Equal(t, []BanReason{{Content: p}}, plan.BanReasons(q))
		assert.Equal(t, Never, plan.EarliestTime(q))
	})

	t.Run("A requisite on banned content is a conflict", func(t *testing.T) {
		// Act
		err := decider.AddContent(z)

		// Assert
		assert.Nil(t, err)
		assert.Empty(t, plan.Decisions())
		assert.Len(t, plan.Conflicts(), 1)
		assert.Equal(t, []string{"MATH2000"}, reasonCodes(plan.Conflicts()[0]))
	})
}

func TestDeciderRemovesCoveredDecisions(t *testing.T) {
	// Arrange
	a, b, c := newSubject("ELEC1001", 6), newSubject("ELEC1002", 6), newSubject("ELEC1003", 6)
	s := newSubject("COMP2001", 10)
	s.SetRequisites(NewCP(10, a, b), nil)
	u := newSubject("COMP2002", 10)
	u.SetRequisites(NewCP(10, a, b, c), nil)
	decider := newTestDecider(a, b, c, s, u)
	plan := decider.Plan()

	// Act
	assert.Nil(t, decider.AddContent(s))
	assert.Nil(t, decider.AddContent(u))

	// Assert
	decisions := plan.Decisions()
	assert.Equal(t, []string{"CP10[ELEC1001,ELEC1002]"}, decisionKeys(decisions))
	assert.Equal(t, []string{"COMP2001", "COMP2002"}, reasonCodes(decisions[0]))
}

func TestDeciderCourse(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	a, b, c := newSubject("ELEC1001", 10), newSubject("ELEC1002", 10), newSubject("ELEC1003", 10)
	large := newSubject("PROJ3000", 30)
	course := NewCourse("BCOMP", "Bachelor of Computing", Qualification, nil)
	course.SetRequisites(NewAnd(x, NewCP(20, a, b, c)), nil)
	decider := newTestDecider(x, a, b, c, large, course)
	plan := decider.Plan()

	// Act
	err := decider.AddContent(course)

	// Assert
	assert.Nil(t, err)
	assert.Equal(t, []string{"COMP1000"}, contentCodes(plan.DerivedSelections()))
	decisions := plan.Decisions()
	assert.Equal(t, []string{"CP20[ELEC1001,ELEC1002,ELEC1003]"}, decisionKeys(decisions))
	assert.True(t, decisions[0].Unique())

	t.Run("Feasibility", func(t *testing.T) {
		assert.Equal(t, 20, plan.AvailableCreditPoints())
		assert.True(t, decider.Feasible(a))
		assert.False(t, decider.Feasible(large))
		assert.True(t, decider.Feasible(decisions[0]))
	})

	t.Run("Other courses are banned", func(t *testing.T) {
		other := NewCourse("BA", "", Qualification, nil)
		assert.True(t, other.HasBeenBanned(plan))
		assert.False(t, course.HasBeenBanned(plan))
	})

	t.Run("Answering the decision", func(t *testing.T) {
		assert.Nil(t, decider.AddContent(a))
		assert.Equal(t, []string{"OR[ELEC1002,ELEC1003]"}, decisionKeys(plan.Decisions()))

		assert.Nil(t, decider.AddContent(b))
		assert.Empty(t, plan.Decisions())
		assert.Nil(t, plan.Verify())
	})
}

func TestDeciderIsIdempotent(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	y := newSubject("COMP2000", 10)
	y.SetRequisites(NewAnd(x), nil)
	a, b, c := newSubject("ELEC1001", 10), newSubject("ELEC1002", 10), newSubject("ELEC1003", 10)
	z := newSubject("COMP3000", 10)
	z.SetRequisites(NewCP(20, a, b, c), NewOr(y))
	decider := newTestDecider(x, y, a, b, c, z)
	plan := decider.Plan()
	assert.Nil(t, decider.AddContent(z))
	assert.Nil(t, decider.AddContent(a))

	snapshot := func() ([]string, []string, []string, map[*Subject]Time) {
		return decisionKeys(plan.Decisions()), contentCodes(plan.BannedContents()), contentCodes(plan.SelectedContents()), plan.Assignment()
	}
	decisions, banned, selected, assignment := snapshot()

	// Act
	assert.Nil(t, decider.Reanalyse())

	// Assert
	decisionsAgain, bannedAgain, selectedAgain, assignmentAgain := snapshot()
	assert.Equal(t, decisions, decisionsAgain)
	assert.Equal(t, banned, bannedAgain)
	assert.Equal(t, selected, selectedAgain)
	assert.Equal(t, assignment, assignmentAgain)
}

func TestDeciderBansOnlyGrow(t *testing.T) {
	// Arrange
	p := NewSubject("PHYS1001", "", 10, []Session{S1, S2}, 0, []string{"PHYS1002"})
	q := NewSubject("PHYS1002", "", 10, []Session{S1, S2}, 0, []string{"PHYS1001"})
	r := NewSubject("CHEM1001", "", 10, []Session{S1, S2}, 0, []string{"CHEM1002"})
	s := newSubject("CHEM1002", 10)
	u := newSubject("MATH1000", 10)
	decider := newTestDecider(p, q, r, s, u)
	plan := decider.Plan()

	previous := []string{}
	for _, content := range []Content{u, p, r} {
		// Act
		assert.Nil(t, decider.AddContent(content))

		// Assert
		current := contentCodes(plan.BannedContents())
		for _, code := range previous {
			assert.Contains(t, current, code)
		}
		previous = current
	}
	assert.Equal(t, []string{"CHEM1002", "PHYS1002"}, previous)
}

func TestDeciderForcedTimes(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	y := newSubject("COMP1001", 10)
	decider := newTestDecider(x, y)
	plan := decider.Plan()
	assert.Nil(t, decider.AddContent(x))
	assert.Nil(t, decider.AddContent(y))

	t.Run("Forced subject waits for its time", func(t *testing.T) {
		// Act
		err := decider.ForceTime(x, NewTime(2, S2))

		// Assert
		assert.Nil(t, err)
		scheduled, _ := plan.TimeOf(x)
		assert.Equal(t, NewTime(2, S2), scheduled)
		assert.Nil(t, plan.Verify())
	})

	t.Run("Sessions the subject is not offered in are rejected", func(t *testing.T) {
		err := decider.ForceTime(y, NewTime(1, WinterVacation))
		assert.True(t, errors.Is(err, ErrNotOffered))
	})

	t.Run("Times outside the plan are rejected", func(t *testing.T) {
		assert.True(t, errors.Is(decider.ForceTime(y, Never), ErrInvalidTime))
		assert.True(t, errors.Is(decider.ForceTime(y, NewTime(0, S1)), ErrInvalidTime))
	})

	t.Run("Unforcing", func(t *testing.T) {
		assert.Nil(t, decider.UnforceTime(x))
		scheduled, _ := plan.TimeOf(x)
		assert.Equal(t, NewTime(1, S1), scheduled)
		assert.True(t, errors.Is(decider.UnforceTime(x), ErrNotForced))
	})
}

func TestDeciderRejectsInvalidMutations(t *testing.T) {
	x := newSubject("COMP1000", 10)
	decider := newTestDecider(x)

	assert.True(t, errors.Is(decider.RemoveContent(x), ErrNotSelected))
	assert.Nil(t, decider.AddContent(x))
	assert.True(t, errors.Is(decider.AddContent(x), ErrAlreadySelected))
	assert.True(t, errors.Is(decider.SetCapacity(NewTime(1, S1), -10), ErrInvalidCapacity))
	assert.True(t, errors.Is(decider.SetCapacity(Early, 10), ErrInvalidTime))
}

func TestDeciderReportsInvariantViolations(t *testing.T) {
	// Arrange
	nowhere := NewSubject("COMP1999", "", 10, nil, 0, nil)
	decider := newTestDecider(nowhere)

	// Act
	err := decider.AddContent(nowhere)

	// Assert
	var invariant *InvariantError
	assert.True(t, errors.As(err, &invariant))
}

func TestDeciderNextDecision(t *testing.T) {
	// Arrange
	a, b := newSubject("ELEC1001", 10), newSubject("ELEC1002", 10)
	c, d := newSubject("ELEC1003", 10), newSubject("ELEC1004", 10)
	s := newSubject("COMP2001", 10)
	s.SetRequisites(NewOr(a, b), nil)
	u := newSubject("COMP2002", 10)
	u.SetRequisites(NewOr(c, d), nil)
	decider := newTestDecider(a, b, c, d, s, u)
	plan := decider.Plan()
	assert.Nil(t, decider.AddContent(s))
	assert.Nil(t, decider.AddContent(u))

	// Act
	first := decider.NextDecision(nil)

	// Assert
	assert.Equal(t, "OR[ELEC1001,ELEC1002]", first.Key())
	assert.Equal(t, first.Key(), decider.NextDecision(first).Key(), "an open decision stays next")

	t.Run("Refinements come first", func(t *testing.T) {
		broader := NewOr(a, b, c)
		assert.Equal(t, "OR[ELEC1001,ELEC1002]", decider.NextDecision(broader).Key())
	})

	t.Run("Moves on once answered", func(t *testing.T) {
		assert.Nil(t, decider.AddContent(a))
		assert.Equal(t, "OR[ELEC1003,ELEC1004]", decider.NextDecision(first).Key())
	})

	t.Run("Nothing left", func(t *testing.T) {
		assert.Nil(t, decider.AddContent(c))
		assert.Empty(t, plan.Decisions())
		assert.Nil(t, decider.NextDecision(first))
	})
}

type recordingObserver struct {
	stats  []AnalysisStats
	errors []error
}

func (observer *recordingObserver) AnalysisFinished(stats AnalysisStats, err error) {
	observer.stats = append(observer.stats, stats)
	observer.errors = append(observer.errors, err)
}

func TestDeciderNotifiesObserver(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	y := newSubject("COMP2000", 10)
	y.SetRequisites(NewOr(x), nil)
	observer := &recordingObserver{}
	plan := NewPlan(newTestRegistry(x, y), DefaultPlanConfig())
	decider := NewDecider(plan, WithObserver(observer))

	// Act
	assert.Nil(t, decider.AddContent(y))
	assert.Nil(t, decider.AddContent(x))

	// Assert
	assert.Len(t, observer.stats, 2)
	assert.Equal(t, []error{nil, nil}, observer.errors)
	assert.Equal(t, 1, observer.stats[0].Decisions)
	assert.Equal(t, 0, observer.stats[1].Decisions)
	assert.True(t, lo.EveryBy(observer.stats, func(stats AnalysisStats) bool { return stats.Passes > 0 }))
}

func TestDeciderReportsUnsettledSchedule(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	var logs bytes.Buffer
	observer := &recordingObserver{}
	plan := NewPlan(newTestRegistry(x), DefaultPlanConfig())
	decider := NewDecider(plan,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithObserver(observer),
	)
	decider.maxRounds = 1

	// Act
	err := decider.AddContent(x)

	// Assert
	assert.Nil(t, err)
	assert.True(t, observer.stats[0].Unsettled)
	assert.Contains(t, logs.String(), "schedule did not settle")

	t.Run("A settled schedule is not reported", func(t *testing.T) {
		decider.maxRounds = maxScheduleRounds
		logs.Reset()

		assert.Nil(t, decider.Reanalyse())
		assert.False(t, observer.stats[1].Unsettled)
		assert.NotContains(t, logs.String(), "schedule did not settle")
	})
}

func TestDeciderLoad(t *testing.T) {
	// Arrange
	x := newSubject("COMP1000", 10)
	y := newSubject("COMP2000", 10)
	y.SetRequisites(NewOr(x), nil)
	decider := newTestDecider(x, y)

	// Act
	err := decider.Load(Inputs{
		Selections:  []Content{x, y},
		ForcedTimes: map[*Subject]Time{y: NewTime(2, S1)},
		Capacities:  map[Time]int{NewTime(1, S1): 20},
	})

	// Assert
	assert.Nil(t, err)
	plan := decider.Plan()
	assert.Empty(t, plan.Decisions())
	scheduled, _ := plan.TimeOf(y)
	assert.Equal(t, NewTime(2, S1), scheduled)
	assert.Equal(t, 20, plan.Capacity(NewTime(1, S1)))
	inputs := plan.Inputs()
	assert.True(t, slices.Equal([]Content{x, y}, inputs.Selections))
}
