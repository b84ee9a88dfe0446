package model

import (
	"slices"
	"strings"
)

// Registry resolves content codes and exposes the structure of a catalogue.
type Registry interface {
	// Lookup finds content by code.
	Lookup(code string) (Content, bool)
	// Subjects lists every subject of the catalogue ordered by code.
	Subjects() []*Subject
	// Parents lists the subjects whose requisites mention subject.
	Parents(subject *Subject) []*Subject
	// Recommendations suggests content that pairs well with subject given
	// the current selection.
	Recommendations(subject *Subject, selected []Content) []Content
}

// IndexParents maps each subject to the subjects whose requisite trees
// mention it.
func IndexParents(subjects []*Subject) map[*Subject][]*Subject {
	parents := make(map[*Subject][]*Subject)
	for _, parent := range subjects {
		for _, requisite := range []*Decision{parent.Prerequisites(), parent.Corequisites()} {
			for _, content := range requisite.LeafContents() {
				child, ok := content.(*Subject)
				if !ok || child == parent || slices.Contains(parents[child], parent) {
					continue
				}
				parents[child] = append(parents[child], parent)
			}
		}
	}
	for child := range parents {
		slices.SortFunc(parents[child], compareSubjects)
	}
	return parents
}

func compareSubjects(a, b *Subject) int {
	return strings.Compare(a.Code(), b.Code())
}

func compareContents(a, b Content) int {
	return strings.Compare(a.Code(), b.Code())
}
