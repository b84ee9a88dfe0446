package catalog

import (
	"slices"
	"strings"

	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/samber/lo"
)

// Catalog is an immutable, fully linked set of subjects and courses. It
// implements model.Registry.
type Catalog struct {
	contents map[string]model.Content
	subjects []*model.Subject
	courses  []*model.Course
	parents  map[*model.Subject][]*model.Subject
}

var _ model.Registry = (*Catalog)(nil)

func newCatalog(subjects []*model.Subject, courses []*model.Course) *Catalog {
	catalog := &Catalog{
		contents: make(map[string]model.Content, len(subjects)+len(courses)),
		subjects: slices.Clone(subjects),
		courses:  slices.Clone(courses),
	}
	for _, subject := range subjects {
		catalog.contents[subject.Code()] = subject
	}
	for _, course := range courses {
		catalog.contents[course.Code()] = course
	}
	slices.SortFunc(catalog.subjects, func(a, b *model.Subject) int { return strings.Compare(a.Code(), b.Code()) })
	slices.SortFunc(catalog.courses, func(a, b *model.Course) int { return strings.Compare(a.Code(), b.Code()) })
	catalog.parents = model.IndexParents(catalog.subjects)
	return catalog
}

func (catalog *Catalog) Lookup(code string) (model.Content, bool) {
	content, ok := catalog.contents[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		content, ok = catalog.contents[strings.TrimSpace(code)]
	}
	return content, ok
}

func (catalog *Catalog) Subjects() []*model.Subject { return slices.Clone(catalog.subjects) }

func (catalog *Catalog) Courses() []*model.Course { return slices.Clone(catalog.courses) }

func (catalog *Catalog) Parents(subject *model.Subject) []*model.Subject {
	return slices.Clone(catalog.parents[subject])
}

// Recommendations returns the subjects mentioned by the requisites of subject
// that are not part of selected, ordered by code.
func (catalog *Catalog) Recommendations(subject *model.Subject, selected []model.Content) []model.Content {
	chosen := lo.SliceToMap(selected, func(content model.Content) (string, bool) { return content.Code(), true })
	leaves := append(subject.Prerequisites().LeafContents(), subject.Corequisites().LeafContents()...)
	recommended := lo.Filter(leaves, func(content model.Content, _ int) bool {
		_, isSubject := content.(*model.Subject)
		return isSubject && content != model.Content(subject) && !chosen[content.Code()]
	})
	recommended = lo.UniqBy(recommended, func(content model.Content) string { return content.Code() })
	slices.SortFunc(recommended, func(a, b model.Content) int { return strings.Compare(a.Code(), b.Code()) })
	return recommended
}

// Size returns the number of subjects and courses in the catalogue.
func (catalog *Catalog) Size() (int, int) {
	return len(catalog.subjects), len(catalog.courses)
}
