package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/limaJavier/studyplan/internal/catalog"
	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/samber/lo"
)

const (
	maxAnswers         = 200
	MB         float32 = 1024 * 1024
)

type ResultType int

const (
	completed ResultType = iota
	stuck
	failed
)

var resultTypes = map[ResultType]string{
	completed: "completed",
	stuck:     "stuck",
	failed:    "failed",
}

// BenchmarkResult describes one simulated planning session: the course is
// selected and every presented decision is answered with its first viable
// option until nothing is left to decide.
type BenchmarkResult struct {
	Course     string
	Answers    int
	Analyses   int
	Passes     int
	Restarts   int
	Selected   int
	Banned     int
	LastTime   model.Time
	Duration   time.Duration
	Allocation float32
	Result     ResultType
}

// statsCollector accumulates the statistics of every analysis.
type statsCollector struct {
	analyses int
	passes   int
	restarts int
}

func (collector *statsCollector) AnalysisFinished(stats model.AnalysisStats, _ error) {
	collector.analyses++
	collector.passes += stats.Passes
	collector.restarts += stats.Restarts
}

func main() {
	catalogPath := flag.String("catalog", "catalog.yaml", "Path to the YAML or JSON catalogue")
	outPath := flag.String("out", "benchmark_results.csv", "Path of the CSV file to write")
	startYear := flag.Int("start", time.Now().Year(), "First year of every simulated plan")
	flag.Parse()

	registry, err := catalog.Load(*catalogPath)
	if err != nil {
		log.Fatalf("cannot load catalogue: %v", err)
	}

	planConfig := model.DefaultPlanConfig()
	planConfig.Start = model.NewTime(*startYear, model.S1)

	results := make([]BenchmarkResult, 0)
	for _, course := range registry.Courses() {
		fmt.Printf("Benchmarking course \"%v\"\n", course.Code())
		results = append(results, simulate(registry, planConfig, course))
	}

	completedCount := lo.CountBy(results, func(result BenchmarkResult) bool { return result.Result == completed })
	fmt.Printf("%v of %v courses completed\n", completedCount, len(results))

	file, err := os.Create(*outPath)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()
	toCsv(file, results)
}

func simulate(registry model.Registry, planConfig model.PlanConfig, course *model.Course) BenchmarkResult {
	collector := &statsCollector{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decider := model.NewDecider(model.NewPlan(registry, planConfig), model.WithLogger(logger), model.WithObserver(collector))

	var before runtime.MemStats
	runtime.ReadMemStats(&before)
	started := time.Now()

	result := BenchmarkResult{Course: course.Code(), Result: completed}
	err := decider.AddContent(course)
	var previous *model.Decision
	for err == nil && result.Answers < maxAnswers {
		decision := decider.NextDecision(previous)
		if decision == nil {
			break
		}
		choice, ok := answer(decider, decision)
		if !ok {
			result.Result = stuck
			break
		}
		err = decider.AddContent(choice)
		result.Answers++
		previous = decision
	}
	if err != nil {
		log.Printf("course %v: %v", course.Code(), err)
		result.Result = failed
	} else if result.Answers == maxAnswers || len(decider.Plan().Conflicts()) > 0 {
		result.Result = stuck
	}

	result.Duration = time.Since(started)
	var after runtime.MemStats
	runtime.ReadMemStats(&after)
	result.Allocation = float32(after.TotalAlloc-before.TotalAlloc) / MB

	plan := decider.Plan()
	result.Analyses = collector.analyses
	result.Passes = collector.passes
	result.Restarts = collector.restarts
	result.Selected = len(plan.SelectedContents())
	result.Banned = len(plan.BannedContents())
	result.LastTime = model.MaxTime(plan.Times()...)
	return result
}

// answer picks the first option of decision that can still be selected,
// descending into nested decisions.
func answer(decider *model.Decider, decision *model.Decision) (model.Content, bool) {
	plan := decider.Plan()
	for _, option := range decision.Options() {
		switch typed := option.(type) {
		case *model.Decision:
			if content, ok := answer(decider, typed); ok {
				return content, true
			}
		case model.Content:
			if plan.IsSelected(typed) || typed.HasBeenBanned(plan) || !decider.Feasible(typed) {
				continue
			}
			return typed, true
		}
	}
	return nil, false
}

func lastTime(t model.Time) string {
	if t.IsSentinel() {
		return "-"
	}
	return t.String()
}

func toCsv(w io.Writer, results []BenchmarkResult) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Course", "Answers", "Analyses", "Passes", "Restarts", "Selected", "Banned", "Last Time", "Duration(ms)", "Allocated(MB)", "Result"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			result.Course,
			fmt.Sprintf("%d", result.Answers),
			fmt.Sprintf("%d", result.Analyses),
			fmt.Sprintf("%d", result.Passes),
			fmt.Sprintf("%d", result.Restarts),
			fmt.Sprintf("%d", result.Selected),
			fmt.Sprintf("%d", result.Banned),
			lastTime(result.LastTime),
			fmt.Sprintf("%d", result.Duration.Milliseconds()),
			fmt.Sprintf("%.1f", result.Allocation),
			resultTypes[result.Result],
		}
		if err := writer.Write(record); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}
