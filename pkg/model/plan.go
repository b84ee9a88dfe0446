package model

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

type PlanConfig struct {
	Start      Time
	Capacities map[Session]int
	// MaxYears bounds how far ahead the plan may place subjects
	MaxYears int
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		Start: NewTime(1, S1),
		Capacities: map[Session]int{
			S1:             40,
			WinterVacation: 0,
			S2:             40,
			S3:             0,
		},
		MaxYears: 10,
	}
}

// BanReason explains a ban: either a selected content whose NCCW list names
// the banned content, or a presented decision every completion of which
// excludes it.
type BanReason struct {
	Content  Content
	Decision *Decision
}

func (reason BanReason) String() string {
	if reason.Content != nil {
		return fmt.Sprintf("incompatible with %v", reason.Content.Code())
	}
	return fmt.Sprintf("excluded by %v", reason.Decision)
}

type RelationKind int

const (
	Compulsory RelationKind = iota
	Optional
)

func (kind RelationKind) String() string {
	if kind == Optional {
		return "optional"
	}
	return "compulsory"
}

// Relation records that From depends on the selected content To through its
// requisites.
type Relation struct {
	From      Content
	To        Content
	Kind      RelationKind
	Requisite RequisiteKind
}

// Plan holds the user's inputs together with everything derived from them.
// Derived state is only consistent after the Decider has analysed the plan.
type Plan struct {
	registry Registry
	config   PlanConfig

	//** Inputs
	selected    []Content
	forcedTimes map[*Subject]Time
	capacities  map[Time]int

	//** Derived
	derived     []Content
	selectedSet map[Content]bool
	decisions   []*Decision
	conflicts   []*Decision
	banned      map[Content][]BanReason
	earliest    map[*Subject]Time
	relations   []Relation
	compulsory  map[Content][]Content
	assignment  map[*Subject]Time
	order       map[Time][]*Subject

	visitingCourses map[*Course]bool
}

func NewPlan(registry Registry, config PlanConfig) *Plan {
	defaults := DefaultPlanConfig()
	if config.Capacities == nil {
		config.Capacities = defaults.Capacities
	}
	if config.MaxYears <= 0 {
		config.MaxYears = defaults.MaxYears
	}
	if config.Start == (Time{}) || config.Start.IsSentinel() {
		config.Start = defaults.Start
	}
	return &Plan{
		registry:        registry,
		config:          config,
		forcedTimes:     make(map[*Subject]Time),
		capacities:      make(map[Time]int),
		selectedSet:     make(map[Content]bool),
		banned:          make(map[Content][]BanReason),
		earliest:        make(map[*Subject]Time),
		compulsory:      make(map[Content][]Content),
		assignment:      make(map[*Subject]Time),
		order:           make(map[Time][]*Subject),
		visitingCourses: make(map[*Course]bool),
	}
}

func (plan *Plan) Registry() Registry { return plan.registry }
func (plan *Plan) Config() PlanConfig { return plan.config }

//** Selections

func (plan *Plan) IsSelected(content Content) bool {
	return plan.selectedSet[content]
}

// IsUserSelected reports whether the user picked content, as opposed to it
// being selected on their behalf.
func (plan *Plan) IsUserSelected(content Content) bool {
	return slices.Contains(plan.selected, content)
}

func (plan *Plan) UserSelections() []Content    { return slices.Clone(plan.selected) }
func (plan *Plan) DerivedSelections() []Content { return slices.Clone(plan.derived) }

// SelectedContents lists user selections followed by derived ones.
func (plan *Plan) SelectedContents() []Content {
	return append(slices.Clone(plan.selected), plan.derived...)
}

func (plan *Plan) SelectedSubjects() []*Subject {
	subjects := make([]*Subject, 0)
	for _, content := range plan.SelectedContents() {
		if subject, ok := content.(*Subject); ok {
			subjects = append(subjects, subject)
		}
	}
	slices.SortFunc(subjects, compareSubjects)
	return subjects
}

func (plan *Plan) SelectedCourses() []*Course {
	courses := make([]*Course, 0)
	for _, content := range plan.SelectedContents() {
		if course, ok := content.(*Course); ok {
			courses = append(courses, course)
		}
	}
	return courses
}

func (plan *Plan) selectedByCode() []Content {
	contents := plan.SelectedContents()
	slices.SortFunc(contents, compareContents)
	return contents
}

func (plan *Plan) addSelection(content Content) error {
	if plan.IsUserSelected(content) {
		return fmt.Errorf("%v: %w", content.Code(), ErrAlreadySelected)
	}
	plan.selected = append(plan.selected, content)
	plan.derived = lo.Without(plan.derived, content)
	plan.selectedSet[content] = true
	return nil
}

func (plan *Plan) removeSelection(content Content) error {
	if !plan.IsUserSelected(content) {
		return fmt.Errorf("%v: %w", content.Code(), ErrNotSelected)
	}
	plan.selected = lo.Without(plan.selected, content)
	if subject, ok := content.(*Subject); ok {
		delete(plan.forcedTimes, subject)
	}
	plan.resetDerived()
	return nil
}

// selectDerived selects content on the user's behalf. It reports whether the
// content was not selected before.
func (plan *Plan) selectDerived(content Content) bool {
	if plan.selectedSet[content] {
		return false
	}
	plan.derived = append(plan.derived, content)
	plan.selectedSet[content] = true
	return true
}

func (plan *Plan) resetDerived() {
	plan.derived = nil
	plan.selectedSet = lo.SliceToMap(plan.selected, func(content Content) (Content, bool) { return content, true })
}

//** Times and capacities

// Capacity returns the credit points that may be scheduled at t.
func (plan *Plan) Capacity(t Time) int {
	if capacity, ok := plan.capacities[t]; ok {
		return capacity
	}
	return plan.config.Capacities[t.Session]
}

func (plan *Plan) setCapacity(t Time, creditPoints int) {
	plan.capacities[t] = creditPoints
}

func (plan *Plan) ForcedTime(subject *Subject) (Time, bool) {
	t, ok := plan.forcedTimes[subject]
	return t, ok
}

func (plan *Plan) ForcedTimes() map[*Subject]Time {
	forced := make(map[*Subject]Time, len(plan.forcedTimes))
	for subject, t := range plan.forcedTimes {
		forced[subject] = t
	}
	return forced
}

// CapacityOverrides lists the capacities set explicitly for a given time.
func (plan *Plan) CapacityOverrides() map[Time]int {
	overrides := make(map[Time]int, len(plan.capacities))
	for t, creditPoints := range plan.capacities {
		overrides[t] = creditPoints
	}
	return overrides
}

// Inputs returns a snapshot of the user-owned parts of the plan.
func (plan *Plan) Inputs() Inputs {
	return Inputs{
		Selections:  plan.UserSelections(),
		ForcedTimes: plan.ForcedTimes(),
		Capacities:  plan.CapacityOverrides(),
	}
}

// Horizon is the last time the plan may use.
func (plan *Plan) Horizon() Time {
	return NewTime(plan.config.Start.Year+plan.config.MaxYears-1, S3)
}

// TimeOf returns the time subject has been scheduled at by the last ordering.
func (plan *Plan) TimeOf(subject *Subject) (Time, bool) {
	t, ok := plan.assignment[subject]
	return t, ok
}

// EarliestTime is the earliest time subject could be completed. Subjects
// never visited by the propagation are unconstrained.
func (plan *Plan) EarliestTime(subject *Subject) Time {
	if t, ok := plan.earliest[subject]; ok {
		return t
	}
	return Early
}

// SubjectsAt lists the subjects scheduled at t in placement order.
func (plan *Plan) SubjectsAt(t Time) []*Subject {
	return slices.Clone(plan.order[t])
}

// SubjectsInOrder maps each used time to its subjects in placement order.
func (plan *Plan) SubjectsInOrder() map[Time][]*Subject {
	order := make(map[Time][]*Subject, len(plan.order))
	for t, subjects := range plan.order {
		order[t] = slices.Clone(subjects)
	}
	return order
}

// Times lists every time that holds at least one scheduled subject.
func (plan *Plan) Times() []Time {
	times := lo.Keys(plan.order)
	slices.SortFunc(times, func(a, b Time) int { return a.Compare(b) })
	return times
}

// Assignment maps each scheduled subject to its time.
func (plan *Plan) Assignment() map[*Subject]Time {
	assignment := make(map[*Subject]Time, len(plan.assignment))
	for subject, t := range plan.assignment {
		assignment[subject] = t
	}
	return assignment
}

//** Derived state

func (plan *Plan) IsBanned(content Content) bool {
	_, ok := plan.banned[content]
	return ok
}

// BannedContents lists banned content ordered by code.
func (plan *Plan) BannedContents() []Content {
	contents := lo.Keys(plan.banned)
	slices.SortFunc(contents, compareContents)
	return contents
}

func (plan *Plan) BanReasons(content Content) []BanReason {
	return slices.Clone(plan.banned[content])
}

// Decisions lists the open decisions in presentation order.
func (plan *Plan) Decisions() []*Decision { return slices.Clone(plan.decisions) }

// Conflicts lists requisites that the current selection made impossible.
func (plan *Plan) Conflicts() []*Decision { return slices.Clone(plan.conflicts) }

func (plan *Plan) Relations() []Relation { return slices.Clone(plan.relations) }

func (plan *Plan) indexOfDecision(decision *Decision) int {
	return slices.IndexFunc(plan.decisions, decision.Equal)
}

// presentDecision adds decision to the open decisions and refreshes bans.
func (plan *Plan) presentDecision(decision *Decision) {
	if index := plan.indexOfDecision(decision); index >= 0 {
		plan.decisions[index] = plan.decisions[index].WithReasons(decision.reasons...)
		return
	}
	plan.decisions = append(plan.decisions, decision)
	plan.recomputeBans()
}

func (plan *Plan) removeDecision(decision *Decision) {
	if index := plan.indexOfDecision(decision); index >= 0 {
		plan.decisions = slices.Delete(plan.decisions, index, index+1)
	}
}

func (plan *Plan) addConflict(decision *Decision) {
	if !slices.ContainsFunc(plan.conflicts, decision.Equal) {
		plan.conflicts = append(plan.conflicts, decision)
	}
}
