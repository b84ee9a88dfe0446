package model

import (
	"fmt"
	"log"
	"slices"
	"unicode"

	"github.com/samber/lo"
)

// Option is anything a Decision can choose between: a piece of Content or
// another Decision. The set of implementations is closed (*Subject, *Course
// and *Decision).
type Option interface {
	// HasBeenCompleted reports whether the plan satisfies the option by the
	// given time.
	HasBeenCompleted(plan *Plan, by Time) bool
	// HasBeenBanned reports whether the plan has made the option impossible.
	HasBeenBanned(plan *Plan) bool
	// CreditPoints returns the credit points needed to satisfy the option.
	CreditPoints() int
	// EarliestCompletionTime returns the earliest time the option could be
	// satisfied given the plan's earliest subject times.
	EarliestCompletionTime(plan *Plan) Time
	// EnoughCreditPoints returns a lower bound of the credit points needed to
	// clear the option and whether that bound fits in available.
	EnoughCreditPoints(plan *Plan, available int) (bool, int)
	// ForcedBans returns the codes of content that choosing the option
	// necessarily excludes.
	ForcedBans() []string
	String() string

	completedBy(plan *Plan, by Time, speculative bool) bool
}

// Content is an atomic, named, selectable unit.
type Content interface {
	Option
	Code() string
	Name() string
	Prerequisites() *Decision
	Corequisites() *Decision
	NCCWs() []string
	// SetRequisites attaches the requisite decisions. It may be called once.
	SetRequisites(prerequisites, corequisites *Decision)
}

type RequisiteKind int

const (
	Prerequisite RequisiteKind = iota
	Corequisite
)

func (kind RequisiteKind) String() string {
	if kind == Corequisite {
		return "corequisite"
	}
	return "prerequisite"
}

// requisites implements the write-once requisite fields shared by Subject and
// Course.
type requisites struct {
	prerequisites *Decision
	corequisites  *Decision
	set           bool
}

func (r *requisites) attach(owner Content, prerequisites, corequisites *Decision) {
	if r.set {
		log.Panicf("requisites of %v have already been set", owner.Code())
	}
	if prerequisites == nil {
		prerequisites = Completed
	}
	if corequisites == nil {
		corequisites = Completed
	}
	r.prerequisites = prerequisites.withReasonDeep(Reason{Content: owner, Kind: Prerequisite})
	r.corequisites = corequisites.withReasonDeep(Reason{Content: owner, Kind: Corequisite})
	r.set = true
}

func (r *requisites) Prerequisites() *Decision {
	if r.prerequisites == nil {
		return Completed
	}
	return r.prerequisites
}

func (r *requisites) Corequisites() *Decision {
	if r.corequisites == nil {
		return Completed
	}
	return r.corequisites
}

type Subject struct {
	requisites
	code         string
	name         string
	creditPoints int
	offered      []Session
	level        int
	nccws        []string
}

// NewSubject builds a subject. A level of zero is derived from the first digit
// of the code (COMP2010 is level 2).
func NewSubject(code, name string, creditPoints int, offered []Session, level int, nccws []string) *Subject {
	if level <= 0 {
		level = levelFromCode(code)
	}
	offeredCopy := lo.Uniq(offered)
	slices.Sort(offeredCopy)
	return &Subject{
		code:         code,
		name:         name,
		creditPoints: creditPoints,
		offered:      offeredCopy,
		level:        level,
		nccws:        slices.Clone(nccws),
	}
}

func levelFromCode(code string) int {
	for _, r := range code {
		if unicode.IsDigit(r) {
			return int(r - '0')
		}
	}
	return 0
}

func (subject *Subject) Code() string         { return subject.code }
func (subject *Subject) Name() string         { return subject.name }
func (subject *Subject) Level() int           { return subject.level }
func (subject *Subject) NCCWs() []string      { return slices.Clone(subject.nccws) }
func (subject *Subject) Offered() []Session   { return slices.Clone(subject.offered) }
func (subject *Subject) CreditPoints() int    { return subject.creditPoints }
func (subject *Subject) String() string       { return subject.code }
func (subject *Subject) ForcedBans() []string { return subject.NCCWs() }

func (subject *Subject) OfferedIn(session Session) bool {
	return slices.Contains(subject.offered, session)
}

func (subject *Subject) SetRequisites(prerequisites, corequisites *Decision) {
	subject.attach(subject, prerequisites, corequisites)
}

func (subject *Subject) HasBeenCompleted(plan *Plan, by Time) bool {
	return subject.completedBy(plan, by, false)
}

func (subject *Subject) completedBy(plan *Plan, by Time, _ bool) bool {
	if !plan.IsSelected(subject) {
		return false
	}
	scheduled, ok := plan.TimeOf(subject)
	return !ok || !scheduled.After(by)
}

func (subject *Subject) HasBeenBanned(plan *Plan) bool {
	return plan.IsBanned(subject)
}

func (subject *Subject) EarliestCompletionTime(plan *Plan) Time {
	return plan.EarliestTime(subject)
}

func (subject *Subject) EnoughCreditPoints(plan *Plan, available int) (bool, int) {
	if plan.IsSelected(subject) {
		return true, 0
	}
	if subject.HasBeenBanned(plan) {
		return false, subject.creditPoints
	}
	return subject.creditPoints <= available, subject.creditPoints
}

type CourseKind string

const (
	Qualification CourseKind = "qualification"
	Major         CourseKind = "major"
	Minor         CourseKind = "minor"
)

// Course is a qualification, major or minor. Only one course may be selected
// at a time.
type Course struct {
	requisites
	code  string
	name  string
	kind  CourseKind
	nccws []string
}

func NewCourse(code, name string, kind CourseKind, nccws []string) *Course {
	if kind == "" {
		kind = Qualification
	}
	return &Course{code: code, name: name, kind: kind, nccws: slices.Clone(nccws)}
}

func (course *Course) Code() string         { return course.code }
func (course *Course) Name() string         { return course.name }
func (course *Course) Kind() CourseKind     { return course.kind }
func (course *Course) NCCWs() []string      { return slices.Clone(course.nccws) }
func (course *Course) String() string       { return course.code }
func (course *Course) ForcedBans() []string { return course.NCCWs() }

func (course *Course) SetRequisites(prerequisites, corequisites *Decision) {
	course.attach(course, prerequisites, corequisites)
}

// CreditPoints is the total required by the course's own requirements.
func (course *Course) CreditPoints() int {
	return course.Prerequisites().CreditPoints()
}

func (course *Course) HasBeenCompleted(plan *Plan, by Time) bool {
	return course.completedBy(plan, by, false)
}

func (course *Course) completedBy(plan *Plan, _ Time, _ bool) bool {
	return plan.IsSelected(course)
}

func (course *Course) HasBeenBanned(plan *Plan) bool {
	if plan.IsBanned(course) {
		return true
	}
	if plan.IsSelected(course) {
		return false
	}
	return len(plan.SelectedCourses()) > 0
}

func (course *Course) EarliestCompletionTime(plan *Plan) Time {
	// Courses may reference themselves through their requisite trees
	if plan.visitingCourses[course] {
		return Never
	}
	plan.visitingCourses[course] = true
	defer delete(plan.visitingCourses, course)

	return MaxTime(
		course.Prerequisites().EarliestCompletionTime(plan),
		course.Corequisites().EarliestCompletionTime(plan),
	)
}

func (course *Course) EnoughCreditPoints(plan *Plan, available int) (bool, int) {
	if plan.IsSelected(course) {
		return true, 0
	}
	if course.HasBeenBanned(plan) {
		return false, course.CreditPoints()
	}
	return course.Prerequisites().EnoughCreditPoints(plan, available)
}

func contentLabel(content Content) string {
	if content.Name() == "" {
		return content.Code()
	}
	return fmt.Sprintf("%v (%v)", content.Code(), content.Name())
}
