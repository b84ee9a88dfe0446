package model

import (
	"io"
	"log/slog"
	"slices"

	"github.com/samber/lo"
)

type testRegistry struct {
	contents map[string]Content
	subjects []*Subject
	parents  map[*Subject][]*Subject
}

// newTestRegistry indexes contents. Requisites must be attached beforehand.
func newTestRegistry(contents ...Content) *testRegistry {
	registry := &testRegistry{contents: make(map[string]Content)}
	for _, content := range contents {
		registry.contents[content.Code()] = content
		if subject, ok := content.(*Subject); ok {
			registry.subjects = append(registry.subjects, subject)
		}
	}
	slices.SortFunc(registry.subjects, compareSubjects)
	registry.parents = IndexParents(registry.subjects)
	return registry
}

func (registry *testRegistry) Lookup(code string) (Content, bool) {
	content, ok := registry.contents[code]
	return content, ok
}

func (registry *testRegistry) Subjects() []*Subject { return slices.Clone(registry.subjects) }

func (registry *testRegistry) Parents(subject *Subject) []*Subject {
	return registry.parents[subject]
}

func (registry *testRegistry) Recommendations(*Subject, []Content) []Content { return nil }

func newSubject(code string, creditPoints int, offered ...Session) *Subject {
	if len(offered) == 0 {
		offered = []Session{S1, S2}
	}
	return NewSubject(code, "", creditPoints, offered, 0, nil)
}

func newTestDecider(contents ...Content) *Decider {
	plan := NewPlan(newTestRegistry(contents...), DefaultPlanConfig())
	return NewDecider(plan, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func decisionKeys(decisions []*Decision) []string {
	return lo.Map(decisions, func(decision *Decision, _ int) string { return decision.Key() })
}

func contentCodes(contents []Content) []string {
	return lo.Map(contents, func(content Content, _ int) string { return content.Code() })
}

func reasonCodes(decision *Decision) []string {
	codes := lo.Map(decision.Reasons(), func(reason Reason, _ int) string { return reason.Content.Code() })
	slices.Sort(codes)
	return lo.Uniq(codes)
}
