package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector bundles Prometheus metrics for the analysis pipeline
// and the telemetry generator.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	FoldersProcessed *prometheus.CounterVec
	RecordsLoaded    prometheus.Counter
	RecordsSkipped   prometheus.Counter
	Incidents        *prometheus.CounterVec
	ReportDurations  prometheus.Histogram

	CyclesGenerated prometheus.Counter
	FilesGenerated  prometheus.Counter
}

// NewPipelineCollector registers pipeline Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	folders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_folders_processed_total",
		Help: "Device folders processed, labeled by outcome (succeeded, warned, failed).",
	}, []string{"outcome"})
	folders, err := registerCounterVec(reg, folders, "telemetry_folders_processed_total")
	if err != nil {
		return nil, err
	}

	loaded, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_records_loaded_total",
		Help: "Telemetry records that passed parsing and hash verification.",
	}), "telemetry_records_loaded_total")
	if err != nil {
		return nil, err
	}
	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_records_skipped_total",
		Help: "Telemetry units skipped as malformed or corrupt.",
	}), "telemetry_records_skipped_total")
	if err != nil {
		return nil, err
	}

	incidents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_disconnection_incidents_total",
		Help: "Detected disconnection incidents, labeled resolved or unresolved.",
	}, []string{"state"})
	incidents, err = registerCounterVec(reg, incidents, "telemetry_disconnection_incidents_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "telemetry_report_write_duration_seconds",
		Help:    "Report rendering and write latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	durations, err = registerHistogram(reg, durations, "telemetry_report_write_duration_seconds")
	if err != nil {
		return nil, err
	}

	cycles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_generator_cycles_total",
		Help: "Generation cycles completed.",
	}), "telemetry_generator_cycles_total")
	if err != nil {
		return nil, err
	}
	files, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_generator_files_total",
		Help: "Telemetry files written by the generator.",
	}), "telemetry_generator_files_total")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:         gatherer,
		FoldersProcessed: folders,
		RecordsLoaded:    loaded,
		RecordsSkipped:   skipped,
		Incidents:        incidents,
		ReportDurations:  durations,
		CyclesGenerated:  cycles,
		FilesGenerated:   files,
	}, nil
}

// ObserveFolder records one folder's outcome.
func (c *PipelineCollector) ObserveFolder(outcome string) {
	if c == nil || c.FoldersProcessed == nil {
		return
	}
	c.FoldersProcessed.WithLabelValues(outcome).Inc()
}

// ObserveIncidents records detected incidents split by resolution state.
func (c *PipelineCollector) ObserveIncidents(resolved, unresolved int) {
	if c == nil || c.Incidents == nil {
		return
	}
	c.Incidents.WithLabelValues("resolved").Add(float64(resolved))
	c.Incidents.WithLabelValues("unresolved").Add(float64(unresolved))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
