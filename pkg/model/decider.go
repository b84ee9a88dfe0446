package model

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	maxPasses         = 256
	maxIterations     = 100_000
	maxScheduleRounds = 4
)

// AnalysisStats summarises one analysis of a plan.
type AnalysisStats struct {
	Passes     int
	Iterations int
	Restarts   int
	Rounds     int
	Decisions  int
	Conflicts  int
	Banned     int
	Selected   int
	Duration   time.Duration
	// Unsettled is set when the schedule kept moving after the last round
	Unsettled bool
}

// Observer is notified about every analysis a Decider runs.
type Observer interface {
	AnalysisFinished(stats AnalysisStats, err error)
}

type NoopObserver struct{}

func (NoopObserver) AnalysisFinished(AnalysisStats, error) {}

// Inputs are the user-owned parts of a plan.
type Inputs struct {
	Selections  []Content
	ForcedTimes map[*Subject]Time
	Capacities  map[Time]int
}

// Decider keeps a plan's derived state consistent with its inputs. Every
// mutation re-runs the analysis: open decisions are reduced against the
// selection until nothing new is selected on the user's behalf, covered
// decisions are dropped, and the selection is ordered into times.
type Decider struct {
	plan      *Plan
	logger    *slog.Logger
	observer  Observer
	maxRounds int
}

type DeciderOption func(*Decider)

func WithLogger(logger *slog.Logger) DeciderOption {
	return func(decider *Decider) {
		if logger != nil {
			decider.logger = logger
		}
	}
}

func WithObserver(observer Observer) DeciderOption {
	return func(decider *Decider) {
		if observer != nil {
			decider.observer = observer
		}
	}
}

func NewDecider(plan *Plan, options ...DeciderOption) *Decider {
	decider := &Decider{
		plan:      plan,
		logger:    slog.Default(),
		observer:  NoopObserver{},
		maxRounds: maxScheduleRounds,
	}
	for _, option := range options {
		option(decider)
	}
	return decider
}

func (decider *Decider) Plan() *Plan { return decider.plan }

//** Mutations

func (decider *Decider) AddContent(content Content) error {
	if err := decider.plan.addSelection(content); err != nil {
		return err
	}
	decider.logger.Info("content added", "code", content.Code())
	return decider.Reanalyse()
}

func (decider *Decider) RemoveContent(content Content) error {
	if err := decider.plan.removeSelection(content); err != nil {
		return err
	}
	decider.logger.Info("content removed", "code", content.Code())
	return decider.Reanalyse()
}

// ForceTime pins subject to t. The subject has to be selected and offered in
// t's session.
func (decider *Decider) ForceTime(subject *Subject, t Time) error {
	plan := decider.plan
	if t.IsSentinel() || t.Before(plan.config.Start) || t.After(plan.Horizon()) {
		return fmt.Errorf("%v: %w", t, ErrInvalidTime)
	}
	if !plan.IsSelected(subject) {
		return fmt.Errorf("%v: %w", subject.Code(), ErrNotSelected)
	}
	if !subject.OfferedIn(t.Session) {
		return fmt.Errorf("%v in %v: %w", subject.Code(), t.Session, ErrNotOffered)
	}
	plan.forcedTimes[subject] = t
	decider.logger.Info("time forced", "code", subject.Code(), "time", t.String())
	return decider.Reanalyse()
}

func (decider *Decider) UnforceTime(subject *Subject) error {
	if _, ok := decider.plan.forcedTimes[subject]; !ok {
		return fmt.Errorf("%v: %w", subject.Code(), ErrNotForced)
	}
	delete(decider.plan.forcedTimes, subject)
	decider.logger.Info("time unforced", "code", subject.Code())
	return decider.Reanalyse()
}

func (decider *Decider) SetCapacity(t Time, creditPoints int) error {
	if t.IsSentinel() {
		return fmt.Errorf("%v: %w", t, ErrInvalidTime)
	}
	if creditPoints < 0 {
		return fmt.Errorf("%d: %w", creditPoints, ErrInvalidCapacity)
	}
	decider.plan.setCapacity(t, creditPoints)
	decider.logger.Info("capacity set", "time", t.String(), "creditPoints", creditPoints)
	return decider.Reanalyse()
}

// Load replaces the plan's inputs and analyses it once.
func (decider *Decider) Load(inputs Inputs) error {
	plan := decider.plan
	plan.selected = nil
	plan.resetDerived()
	for _, content := range inputs.Selections {
		if err := plan.addSelection(content); err != nil {
			return err
		}
	}
	plan.forcedTimes = make(map[*Subject]Time)
	for subject, t := range inputs.ForcedTimes {
		if !plan.IsSelected(subject) {
			return fmt.Errorf("forced %v: %w", subject.Code(), ErrNotSelected)
		}
		plan.forcedTimes[subject] = t
	}
	plan.capacities = make(map[Time]int)
	for t, creditPoints := range inputs.Capacities {
		plan.capacities[t] = creditPoints
	}
	return decider.Reanalyse()
}

// Reanalyse recomputes every derived part of the plan. An invariant
// violation aborts the analysis and is returned as an *InvariantError.
func (decider *Decider) Reanalyse() (err error) {
	started := time.Now()
	stats := AnalysisStats{}
	defer func() {
		stats.Duration = time.Since(started)
		stats.Decisions = len(decider.plan.decisions)
		stats.Conflicts = len(decider.plan.conflicts)
		stats.Banned = len(decider.plan.banned)
		stats.Selected = len(decider.plan.selectedSet)
		decider.observer.AnalysisFinished(stats, err)
		if err != nil {
			decider.logger.Error("analysis failed", "error", err)
			return
		}
		decider.logger.Debug("analysis finished",
			"passes", stats.Passes,
			"rounds", stats.Rounds,
			"decisions", stats.Decisions,
			"conflicts", stats.Conflicts,
			"duration", stats.Duration,
		)
	}()
	defer recoverInvariant(&err)

	plan := decider.plan
	previous := plan.Assignment()
	for {
		stats.Rounds++
		decider.derive(&stats)
		plan.Order()
		// Required completion times depend on the schedule
		if maps.Equal(previous, plan.assignment) {
			break
		}
		if stats.Rounds >= decider.maxRounds {
			stats.Unsettled = true
			decider.logger.Warn("schedule did not settle",
				"rounds", stats.Rounds,
				"subjects", len(plan.assignment),
			)
			break
		}
		previous = plan.Assignment()
	}
	return nil
}

func (decider *Decider) derive(stats *AnalysisStats) {
	plan := decider.plan
	plan.resetDerived()
	for pass := 1; ; pass++ {
		if pass > maxPasses {
			invariantf("analysis did not settle after %d passes", maxPasses)
		}
		stats.Passes++
		plan.decisions = nil
		plan.conflicts = nil
		plan.recomputeBans()
		plan.recomputeEarliestTimes()
		if !decider.runPass(stats) {
			break
		}
	}

	plan.recomputeRelations()
	plan.removeCoveredDecisions()
	plan.sortDecisions()
}

// runPass reduces the requisites of the selection. It reports whether new
// content was selected on the user's behalf, in which case the pass has to
// start over.
func (decider *Decider) runPass(stats *AnalysisStats) bool {
	plan := decider.plan
	everBanned := lo.SliceToMap(lo.Keys(plan.banned), func(content Content) (Content, bool) { return content, true })

	worklist := plan.initialDecisions()
	for len(worklist) > 0 {
		stats.Iterations++
		if stats.Iterations > maxIterations {
			invariantf("analysis did not settle after %d iterations", maxIterations)
		}
		decision := worklist[0]
		worklist = worklist[1:]
		plan.removeDecision(decision)

		if decision.MustPickAll() && !lo.SomeBy(decision.options, isContent) {
			for _, option := range decision.options {
				worklist = append(worklist, option.(*Decision))
			}
			continue
		}

		remaining := decision.RemainingDecision(plan).Simplified()
		if remaining.HasBeenCompleted(plan, remaining.RequiredCompletionTime(plan)) {
			continue
		}
		if remaining.HasBeenBanned(plan) {
			if !remaining.IsImpossible() {
				invariantf("%v is banned but was not reduced to impossible", remaining)
			}
			decider.logger.Warn("requisite can no longer be satisfied", "decision", decision.String(), "reasons", reasonLabels(decision))
			plan.addConflict(decision)
			continue
		}

		if remaining.MustPickAll() {
			selected := false
			for _, option := range remaining.options {
				switch typed := option.(type) {
				case *Decision:
					worklist = append(worklist, typed)
				case Content:
					if plan.selectDerived(typed) {
						decider.logger.Debug("content selected on the user's behalf", "code", typed.Code(), "decision", decision.String())
						selected = true
					}
				}
			}
			if selected {
				return true
			}
			continue
		}

		plan.presentDecision(remaining)
		grew := false
		for content := range plan.banned {
			if !everBanned[content] {
				everBanned[content] = true
				grew = true
			}
		}
		if grew {
			stats.Restarts++
			worklist = append(worklist, plan.Decisions()...)
		}
	}
	return false
}

//** Queries

// NextDecision picks the decision to show after previous was answered: a
// still open refinement of it, else one stemming from the same subject, else
// the first open decision.
func (decider *Decider) NextDecision(previous *Decision) *Decision {
	decisions := decider.plan.Decisions()
	if len(decisions) == 0 {
		return nil
	}
	if previous == nil {
		return decisions[0]
	}

	leaves := leafSet(previous)
	if refinement, ok := lo.Find(decisions, func(decision *Decision) bool {
		return !decision.Equal(previous) && isSubset(leafSet(decision), leaves)
	}); ok {
		return refinement
	}

	subjects := lo.Filter(previous.reasons, func(reason Reason, _ int) bool {
		_, ok := reason.Content.(*Subject)
		return ok
	})
	if related, ok := lo.Find(decisions, func(decision *Decision) bool {
		return lo.SomeBy(decision.reasons, func(reason Reason) bool {
			return lo.SomeBy(subjects, func(other Reason) bool { return other.Content == reason.Content })
		})
	}); ok {
		return related
	}
	return decisions[0]
}

// Feasible reports whether option still fits in the credit points left to the
// plan.
func (decider *Decider) Feasible(option Option) bool {
	enough, _ := option.EnoughCreditPoints(decider.plan, decider.plan.AvailableCreditPoints())
	return enough
}

// Recommendations collects the registry's suggestions for the selected
// subjects, excluding what is selected or banned.
func (decider *Decider) Recommendations() []Content {
	plan := decider.plan
	selected := plan.SelectedContents()
	recommended := make([]Content, 0)
	for _, subject := range plan.SelectedSubjects() {
		for _, content := range plan.registry.Recommendations(subject, selected) {
			if plan.IsSelected(content) || content.HasBeenBanned(plan) || slices.Contains(recommended, content) {
				continue
			}
			recommended = append(recommended, content)
		}
	}
	slices.SortFunc(recommended, compareContents)
	return recommended
}

func reasonLabels(decision *Decision) []string {
	return lo.Map(decision.reasons, func(reason Reason, _ int) string {
		return fmt.Sprintf("%v of %v", reason.Kind, contentLabel(reason.Content))
	})
}

//** Plan helpers used by the analysis

// AvailableCreditPoints is what the selected courses still require or, with no
// course selected, what the remaining horizon can hold.
func (plan *Plan) AvailableCreditPoints() int {
	used := lo.SumBy(plan.SelectedSubjects(), func(subject *Subject) int { return subject.CreditPoints() })
	if courses := plan.SelectedCourses(); len(courses) > 0 {
		required := lo.SumBy(courses, func(course *Course) int { return course.CreditPoints() })
		return max(required-used, 0)
	}
	total := 0
	for t := plan.config.Start; !t.After(plan.Horizon()); t = t.Next() {
		total += plan.Capacity(t)
	}
	return max(total-used, 0)
}

func (plan *Plan) initialDecisions() []*Decision {
	worklist := make([]*Decision, 0)
	if courses := plan.SelectedCourses(); len(courses) > 0 {
		options := lo.Map(courses, func(course *Course, _ int) Option { return course.Prerequisites() })
		reasons := lo.FlatMap(courses, func(course *Course, _ int) []Reason { return course.Prerequisites().reasons })
		target := lo.SumBy(courses, func(course *Course) int { return course.CreditPoints() })
		worklist = append(worklist, NewDecision(CP, target, options, reasons...))
		for _, course := range courses {
			worklist = append(worklist, course.Corequisites())
		}
	}
	for _, subject := range plan.SelectedSubjects() {
		worklist = append(worklist, subject.Prerequisites(), subject.Corequisites())
	}
	return worklist
}

// removeCoveredDecisions drops every decision that another open decision
// covers, moving its reasons onto the covering one. Decisions stemming from
// courses are considered first.
func (plan *Plan) removeCoveredDecisions() {
	candidates := slices.Clone(plan.decisions)
	slices.SortStableFunc(candidates, func(a, b *Decision) int {
		return compareBool(!a.Unique(), !b.Unique())
	})
	for _, decision := range candidates {
		coverer := decision.CoveredBy(plan)
		if coverer == nil {
			continue
		}
		plan.removeDecision(decision)
		index := plan.indexOfDecision(coverer)
		plan.decisions[index] = coverer.WithReasons(decision.reasons...)
	}
}

// sortDecisions orders decisions for presentation: course decisions first,
// electives last, then higher level, fewer options, smaller targets, earlier
// required completion and finally by description.
func (plan *Plan) sortDecisions() {
	slices.SortStableFunc(plan.decisions, func(a, b *Decision) int {
		if result := cmp.Or(
			compareBool(!a.involvesCourse(), !b.involvesCourse()),
			compareBool(a.elective, b.elective),
			cmp.Compare(b.Level(), a.Level()),
			cmp.Compare(len(a.options), len(b.options)),
		); result != 0 {
			return result
		}
		if a.selection == CP && b.selection == CP {
			if result := cmp.Compare(a.creditPoints, b.creditPoints); result != 0 {
				return result
			}
		}
		return cmp.Or(
			a.RequiredCompletionTime(plan).Compare(b.RequiredCompletionTime(plan)),
			strings.Compare(a.String(), b.String()),
		)
	})
}
