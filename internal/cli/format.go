package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/limaJavier/studyplan/internal/store"
	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/samber/lo"
)

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorYellow = lipgloss.Color("#fabd2f")
	colorRed    = lipgloss.Color("#fb4934")
	colorDim    = lipgloss.Color("#928374")
	colorHeader = lipgloss.Color("#fe8019")

	styleGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	styleYellow = lipgloss.NewStyle().Foreground(colorYellow)
	styleRed    = lipgloss.NewStyle().Foreground(colorRed)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
)

func header(w io.Writer, title string) {
	fmt.Fprintln(w, styleHeader.Render(title))
}

func codesOf[T model.Content](contents []T) string {
	return strings.Join(lo.Map(contents, func(content T, _ int) string { return content.Code() }), ", ")
}

func reasonsOf(decision *model.Decision) string {
	labels := lo.Map(decision.Reasons(), func(reason model.Reason, _ int) string {
		return fmt.Sprintf("%v of %v", reason.Kind, reason.Content.Code())
	})
	return strings.Join(lo.Uniq(labels), "; ")
}

func printRecord(w io.Writer, record store.PlanRecord) {
	fmt.Fprintf(w, "%v  %v  %v\n", record.ID, record.Name, styleDim.Render("updated "+record.UpdatedAt.Local().Format("2006-01-02 15:04")))
}

func printSelections(w io.Writer, plan *model.Plan) {
	header(w, "Selected")
	if len(plan.UserSelections()) == 0 {
		fmt.Fprintln(w, styleDim.Render("  nothing selected"))
		return
	}
	fmt.Fprintf(w, "  %v\n", codesOf(plan.UserSelections()))
	if derived := plan.DerivedSelections(); len(derived) > 0 {
		fmt.Fprintf(w, "  %v %v\n", styleDim.Render("required:"), codesOf(derived))
	}
}

func printDecisions(w io.Writer, decider *model.Decider) {
	plan := decider.Plan()
	header(w, "Decisions")
	decisions := plan.Decisions()
	if len(decisions) == 0 {
		fmt.Fprintln(w, styleGreen.Render("  no open decisions"))
	}
	for index, decision := range decisions {
		feasibility := styleGreen.Render("feasible")
		if !decider.Feasible(decision) {
			feasibility = styleYellow.Render("needs more credit points than remain")
		}
		fmt.Fprintf(w, "  %d. %v  %v  %v\n", index+1, decision, styleDim.Render("("+reasonsOf(decision)+")"), feasibility)
	}

	if conflicts := plan.Conflicts(); len(conflicts) > 0 {
		header(w, "Conflicts")
		for _, conflict := range conflicts {
			fmt.Fprintf(w, "  %v %v cannot be met\n", styleRed.Render("!"), reasonsOf(conflict))
		}
	}
}

func printSchedule(w io.Writer, plan *model.Plan) {
	header(w, "Schedule")
	times := plan.Times()
	if len(times) == 0 {
		fmt.Fprintln(w, styleDim.Render("  nothing scheduled"))
		return
	}
	byTime := plan.SubjectsInOrder()
	for _, t := range times {
		subjects := byTime[t]
		labels := lo.Map(subjects, func(subject *model.Subject, _ int) string {
			if _, forced := plan.ForcedTime(subject); forced {
				return subject.Code() + "*"
			}
			return subject.Code()
		})
		load := lo.SumBy(subjects, func(subject *model.Subject) int { return subject.CreditPoints() })
		fmt.Fprintf(w, "  %-8v %v  %v\n", t, strings.Join(labels, ", "), styleDim.Render(fmt.Sprintf("%d/%dcp", load, plan.Capacity(t))))
	}
}

func printBans(w io.Writer, plan *model.Plan) {
	header(w, "Unavailable")
	banned := plan.BannedContents()
	if len(banned) == 0 {
		fmt.Fprintln(w, styleDim.Render("  nothing is unavailable"))
		return
	}
	for _, content := range banned {
		reasons := lo.Map(plan.BanReasons(content), func(reason model.BanReason, _ int) string { return reason.String() })
		fmt.Fprintf(w, "  %-10v %v\n", content.Code(), styleDim.Render(strings.Join(lo.Uniq(reasons), "; ")))
	}
}

func printNext(w io.Writer, decider *model.Decider) {
	decision := decider.NextDecision(nil)
	if decision == nil {
		fmt.Fprintln(w, styleGreen.Render("Nothing left to decide"))
	} else {
		header(w, "Next decision")
		fmt.Fprintf(w, "  %v  %v\n", decision, styleDim.Render("("+reasonsOf(decision)+")"))
		for _, option := range decision.Options() {
			marker := " "
			if !decider.Feasible(option) {
				marker = styleYellow.Render("~")
			}
			fmt.Fprintf(w, "  %v %v\n", marker, optionLabel(option))
		}
	}

	if recommended := decider.Recommendations(); len(recommended) > 0 {
		header(w, "Also consider")
		fmt.Fprintf(w, "  %v\n", codesOf(recommended))
	}
}

func optionLabel(option model.Option) string {
	if content, ok := option.(model.Content); ok && content.Name() != "" {
		return content.Code() + " " + styleDim.Render(content.Name())
	}
	return option.String()
}
