package telemetry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	namespace = "advisor"
	subsystem = "analysis"
)

// Metrics records every plan analysis. It implements model.Observer.
type Metrics struct {
	analyses  *prometheus.CounterVec
	duration  prometheus.Histogram
	passes    prometheus.Histogram
	restarts  prometheus.Counter
	unsettled prometheus.Counter
	decisions prometheus.Gauge
	conflicts prometheus.Gauge
	banned    prometheus.Gauge
	selected  prometheus.Gauge
}

var _ model.Observer = (*Metrics)(nil)

// NewMetrics registers the analysis metrics with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		// Labels: status (ok, invariant_violation)
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total",
			Help:      "Total plan analyses by outcome",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Time taken by a plan analysis in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}),
		passes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "passes",
			Help:      "Decision passes run by a plan analysis",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		}),
		restarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "restarts_total",
			Help:      "Total times a decision pass restarted after new bans",
		}),
		unsettled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "unsettled_total",
			Help:      "Total analyses whose schedule was still moving after the last round",
		}),
		decisions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "open_decisions",
			Help:      "Open decisions after the latest analysis",
		}),
		conflicts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conflicts",
			Help:      "Conflicting decisions after the latest analysis",
		}),
		banned: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "banned_contents",
			Help:      "Banned contents after the latest analysis",
		}),
		selected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "selected_contents",
			Help:      "Selected contents, including derived ones, after the latest analysis",
		}),
	}
}

func (metrics *Metrics) AnalysisFinished(stats model.AnalysisStats, err error) {
	status := "ok"
	if err != nil {
		status = "invariant_violation"
	}
	metrics.analyses.WithLabelValues(status).Inc()
	metrics.duration.Observe(stats.Duration.Seconds())
	metrics.passes.Observe(float64(stats.Passes))
	metrics.restarts.Add(float64(stats.Restarts))
	if stats.Unsettled {
		metrics.unsettled.Inc()
	}
	metrics.decisions.Set(float64(stats.Decisions))
	metrics.conflicts.Set(float64(stats.Conflicts))
	metrics.banned.Set(float64(stats.Banned))
	metrics.selected.Set(float64(stats.Selected))
}

// Sample is a flattened metric value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

func (sample Sample) String() string {
	if sample.Labels == "" {
		return fmt.Sprintf("%v %g", sample.Name, sample.Value)
	}
	return fmt.Sprintf("%v{%v} %g", sample.Name, sample.Labels, sample.Value)
}

// Snapshot gathers the metrics of gatherer into samples ordered by name.
// Histograms contribute their count and sum.
func Snapshot(gatherer prometheus.Gatherer) ([]Sample, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}

	samples := make([]Sample, 0)
	for _, family := range families {
		name := family.GetName()
		for _, metric := range family.GetMetric() {
			labels := labelString(metric.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: metric.GetCounter().GetValue()})
			case dto.MetricType_GAUGE:
				samples = append(samples, Sample{Name: name, Labels: labels, Value: metric.GetGauge().GetValue()})
			case dto.MetricType_HISTOGRAM:
				histogram := metric.GetHistogram()
				samples = append(samples,
					Sample{Name: name + "_count", Labels: labels, Value: float64(histogram.GetSampleCount())},
					Sample{Name: name + "_sum", Labels: labels, Value: histogram.GetSampleSum()},
				)
			}
		}
	}
	slices.SortStableFunc(samples, func(a, b Sample) int {
		return strings.Compare(a.Name+a.Labels, b.Name+b.Labels)
	})
	return samples, nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, fmt.Sprintf("%v=%q", pair.GetName(), pair.GetValue()))
	}
	return strings.Join(parts, ",")
}
