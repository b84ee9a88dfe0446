package model

import (
	"errors"
	"fmt"
)

// Verify checks the last ordering against the plan's inputs: every selected
// subject sits in exactly one offered time, no time exceeds its capacity and
// forced subjects are not placed before their forced time.
func (plan *Plan) Verify() error {
	var errs []error

	placed := make(map[*Subject]int)
	for t, subjects := range plan.order {
		load := 0
		for _, subject := range subjects {
			placed[subject]++
			load += subject.CreditPoints()
			if !subject.OfferedIn(t.Session) {
				errs = append(errs, fmt.Errorf("%v placed in %v which does not offer it", subject.Code(), t))
			}
			if scheduled := plan.assignment[subject]; scheduled != t {
				errs = append(errs, fmt.Errorf("%v is listed in %v but assigned to %v", subject.Code(), t, scheduled))
			}
			if forced, ok := plan.forcedTimes[subject]; ok && t.Before(forced) {
				errs = append(errs, fmt.Errorf("%v placed in %v before its forced time %v", subject.Code(), t, forced))
			}
		}
		if load > plan.Capacity(t) {
			errs = append(errs, fmt.Errorf("%v holds %d credit points but its capacity is %d", t, load, plan.Capacity(t)))
		}
	}

	for _, subject := range plan.SelectedSubjects() {
		switch count := placed[subject]; {
		case count == 0:
			errs = append(errs, fmt.Errorf("%v is selected but not placed", subject.Code()))
		case count > 1:
			errs = append(errs, fmt.Errorf("%v is placed %d times", subject.Code(), count))
		}
	}
	for subject := range placed {
		if !plan.IsSelected(subject) {
			errs = append(errs, fmt.Errorf("%v is placed but not selected", subject.Code()))
		}
	}

	return errors.Join(errs...)
}
