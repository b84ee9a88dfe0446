package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

type Selection int

const (
	// Or picks exactly one option
	Or Selection = iota
	// And picks every option
	And
	// CP picks options until their credit points reach the target
	CP
)

func (selection Selection) String() string {
	switch selection {
	case Or:
		return "OR"
	case And:
		return "AND"
	case CP:
		return "CP"
	}
	return fmt.Sprintf("Selection(%d)", int(selection))
}

// Reason records which content a decision originates from.
type Reason struct {
	Content Content
	Kind    RequisiteKind
}

// Decision is an immutable choice over child options. Equality is
// structural: two decisions with the same selection, target, elective flag
// and option set are the same decision regardless of their reasons.
type Decision struct {
	selection    Selection
	options      []Option
	creditPoints int
	elective     bool
	reasons      []Reason

	key string
}

var (
	// Completed is always satisfied and never banned.
	Completed = &Decision{selection: And}
	// Impossible is never satisfied and always banned.
	Impossible = &Decision{selection: Or}
)

func NewDecision(selection Selection, creditPoints int, options []Option, reasons ...Reason) *Decision {
	if selection != CP {
		creditPoints = 0
	}
	return &Decision{
		selection:    selection,
		options:      slices.Clone(options),
		creditPoints: creditPoints,
		reasons:      uniqueReasons(reasons),
	}
}

func NewOr(options ...Option) *Decision  { return NewDecision(Or, 0, options) }
func NewAnd(options ...Option) *Decision { return NewDecision(And, 0, options) }

func NewCP(creditPoints int, options ...Option) *Decision {
	return NewDecision(CP, creditPoints, options)
}

// NewElective builds an open credit point requirement. Electives are never
// banned and are assumed satisfied when completeness is only being estimated.
func NewElective(creditPoints int, options ...Option) *Decision {
	decision := NewDecision(CP, creditPoints, options)
	decision.elective = true
	return decision
}

func (decision *Decision) Selection() Selection { return decision.selection }
func (decision *Decision) Options() []Option    { return slices.Clone(decision.options) }
func (decision *Decision) Target() int          { return decision.creditPoints }
func (decision *Decision) IsElective() bool     { return decision.elective }
func (decision *Decision) Reasons() []Reason    { return slices.Clone(decision.reasons) }

// IsCompleted reports whether the decision is the Completed sentinel (or an
// equivalent empty requirement).
func (decision *Decision) IsCompleted() bool {
	switch decision.selection {
	case And:
		return len(decision.options) == 0
	case CP:
		return decision.creditPoints <= 0
	}
	return false
}

// IsImpossible reports whether the decision is the Impossible sentinel.
func (decision *Decision) IsImpossible() bool {
	return decision.selection == Or && len(decision.options) == 0
}

// Unique reports whether the decision stems from a course requirement, in
// which case its content cannot double count towards another course.
func (decision *Decision) Unique() bool {
	return lo.SomeBy(decision.reasons, func(reason Reason) bool {
		_, isCourse := reason.Content.(*Course)
		return isCourse && reason.Kind == Prerequisite
	})
}

// MustPickAll reports whether every option has to be picked.
func (decision *Decision) MustPickAll() bool {
	switch decision.selection {
	case And:
		return true
	case CP:
		return !decision.elective && len(decision.options) > 0 &&
			decision.creditPoints >= sumCreditPoints(decision.options)
	}
	return false
}

// OnlyPickOne reports whether picking any single option satisfies the
// decision.
func (decision *Decision) OnlyPickOne() bool {
	switch decision.selection {
	case Or:
		return true
	case CP:
		return decision.creditPoints > 0 && len(decision.options) > 0 &&
			lo.EveryBy(decision.options, func(option Option) bool {
				return option.CreditPoints() >= decision.creditPoints
			})
	}
	return false
}

// requiresEvery is MustPickAll extended to single-option Or decisions, which
// leave no real choice.
func (decision *Decision) requiresEvery() bool {
	return decision.MustPickAll() || (decision.selection == Or && len(decision.options) == 1)
}

func (decision *Decision) Equal(other *Decision) bool {
	if decision == nil || other == nil {
		return decision == other
	}
	return decision.Key() == other.Key()
}

// Key is a canonical representation used for structural equality.
func (decision *Decision) Key() string {
	if decision.key != "" {
		return decision.key
	}
	keys := lo.Map(decision.options, func(option Option, _ int) string { return optionKey(option) })
	slices.Sort(keys)
	if decision.selection != CP {
		// Repeated options of a CP decision each count towards the target
		keys = slices.Compact(keys)
	}

	var builder strings.Builder
	builder.WriteString(decision.selection.String())
	if decision.selection == CP {
		fmt.Fprintf(&builder, "%d", decision.creditPoints)
		if decision.elective {
			builder.WriteString("e")
		}
	}
	builder.WriteString("[")
	builder.WriteString(strings.Join(keys, ","))
	builder.WriteString("]")
	decision.key = builder.String()
	return decision.key
}

func optionKey(option Option) string {
	switch typed := option.(type) {
	case *Decision:
		return typed.Key()
	case Content:
		return typed.Code()
	}
	return option.String()
}

func (decision *Decision) String() string {
	if decision.IsImpossible() {
		return "impossible"
	}
	if decision.IsCompleted() {
		return "completed"
	}

	names := lo.Map(decision.options, func(option Option, _ int) string {
		if typed, ok := option.(*Decision); ok && len(typed.options) > 1 {
			return "[" + typed.String() + "]"
		}
		return option.String()
	})
	list := strings.Join(names, ", ")

	switch decision.selection {
	case Or:
		if len(names) == 1 {
			return list
		}
		return "one of " + list
	case And:
		if len(names) == 1 {
			return list
		}
		return "all of " + list
	}
	if decision.elective {
		return fmt.Sprintf("%dcp of electives from %v", decision.creditPoints, list)
	}
	return fmt.Sprintf("%dcp from %v", decision.creditPoints, list)
}

// derive builds a decision that inherits the receiver's reasons.
func (decision *Decision) derive(selection Selection, creditPoints int, options []Option) *Decision {
	derived := NewDecision(selection, creditPoints, options, decision.reasons...)
	derived.elective = decision.elective && selection == CP
	return derived
}

func (decision *Decision) completed() *Decision {
	return NewDecision(And, 0, nil, decision.reasons...)
}

func (decision *Decision) impossible() *Decision {
	return NewDecision(Or, 0, nil, decision.reasons...)
}

// WithReasons returns a copy of the decision that also carries reasons.
func (decision *Decision) WithReasons(reasons ...Reason) *Decision {
	copied := *decision
	copied.options = slices.Clone(decision.options)
	copied.reasons = uniqueReasons(append(slices.Clone(decision.reasons), reasons...))
	return &copied
}

// withReasonDeep stamps a reason on the decision and every child decision.
func (decision *Decision) withReasonDeep(reason Reason) *Decision {
	options := lo.Map(decision.options, func(option Option, _ int) Option {
		if child, ok := option.(*Decision); ok {
			return child.withReasonDeep(reason)
		}
		return option
	})
	stamped := decision.WithReasons(reason)
	stamped.options = options
	stamped.key = ""
	return stamped
}

func (decision *Decision) reasonsOf(kind RequisiteKind) []Content {
	return lo.FilterMap(decision.reasons, func(reason Reason, _ int) (Content, bool) {
		return reason.Content, reason.Kind == kind
	})
}

func uniqueReasons(reasons []Reason) []Reason {
	return lo.UniqBy(reasons, func(reason Reason) string {
		return fmt.Sprintf("%v/%v", reason.Content.Code(), reason.Kind)
	})
}

// LeafContents returns every content reachable through the decision tree in
// order of first appearance.
func (decision *Decision) LeafContents() []Content {
	seen := make(map[Content]bool)
	leaves := make([]Content, 0)
	var walk func(*Decision)
	walk = func(current *Decision) {
		for _, option := range current.options {
			switch typed := option.(type) {
			case *Decision:
				walk(typed)
			case Content:
				if !seen[typed] {
					seen[typed] = true
					leaves = append(leaves, typed)
				}
			}
		}
	}
	walk(decision)
	return leaves
}

func (decision *Decision) containsContent(content Content) bool {
	return slices.Contains(decision.LeafContents(), content)
}

func (decision *Decision) indexOfContent(content Content) int {
	return slices.IndexFunc(decision.options, func(option Option) bool {
		typed, ok := option.(Content)
		return ok && typed == content
	})
}

func leafSet(option Option) map[Content]bool {
	switch typed := option.(type) {
	case *Decision:
		return lo.SliceToMap(typed.LeafContents(), func(content Content) (Content, bool) { return content, true })
	case Content:
		return map[Content]bool{typed: true}
	}
	return map[Content]bool{}
}

func isSubset(small, large map[Content]bool) bool {
	for content := range small {
		if !large[content] {
			return false
		}
	}
	return true
}

func isContent(option Option) bool {
	_, ok := option.(Content)
	return ok
}

func sumCreditPoints(options []Option) int {
	return lo.SumBy(options, func(option Option) int { return option.CreditPoints() })
}

// Level is the highest subject level referenced by the decision.
func (decision *Decision) Level() int {
	return lo.Reduce(decision.LeafContents(), func(level int, content Content, _ int) int {
		if subject, ok := content.(*Subject); ok && subject.Level() > level {
			return subject.Level()
		}
		return level
	}, 0)
}

// electiveSize sums the targets of the elective decisions in the tree.
func (decision *Decision) electiveSize() int {
	size := 0
	if decision.elective {
		size += decision.creditPoints
	}
	for _, option := range decision.options {
		if child, ok := option.(*Decision); ok {
			size += child.electiveSize()
		}
	}
	return size
}

func (decision *Decision) involvesCourse() bool {
	return lo.SomeBy(decision.reasons, func(reason Reason) bool {
		_, ok := reason.Content.(*Course)
		return ok
	}) || lo.SomeBy(decision.LeafContents(), func(content Content) bool {
		_, ok := content.(*Course)
		return ok
	})
}
