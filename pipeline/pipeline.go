// Package pipeline orchestrates the per-folder analysis pass: load,
// analyse, report, archive. Folders are independent units of work; one
// folder's failure never aborts its siblings.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/mission-telemetry/analysis"
	"github.com/signalsfoundry/mission-telemetry/archive"
	"github.com/signalsfoundry/mission-telemetry/config"
	"github.com/signalsfoundry/mission-telemetry/internal/logging"
	"github.com/signalsfoundry/mission-telemetry/internal/observability"
	"github.com/signalsfoundry/mission-telemetry/model"
	"github.com/signalsfoundry/mission-telemetry/report"
)

// State is a device folder's position in the processing lifecycle. A
// failure leaves the folder at the state it had reached, which determines
// what the next pass retries.
type State int

const (
	// StatePending: folder exists at the source, not yet analysed.
	StatePending State = iota
	// StateAnalyzed: analysis produced, report not yet confirmed.
	StateAnalyzed
	// StateReported: report durably written; retries are archive-only.
	StateReported
	// StateArchived: terminal; folder relocated to backup storage.
	StateArchived
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAnalyzed:
		return "analyzed"
	case StateReported:
		return "reported"
	case StateArchived:
		return "archived"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FolderResult records one folder's journey through the pipeline.
type FolderResult struct {
	Folder   string
	State    State
	Warnings []analysis.Warning
	Err      error
}

// Summary aggregates a whole run for the operator-facing recap.
type Summary struct {
	Results []FolderResult
}

// Succeeded lists folders archived without warnings.
func (s *Summary) Succeeded() []string { return s.filter(true, false) }

// Warned lists folders archived despite skipped units.
func (s *Summary) Warned() []string { return s.filter(true, true) }

// Failed lists folders that did not reach the archived state.
func (s *Summary) Failed() []string {
	var names []string
	for _, res := range s.Results {
		if res.Err != nil {
			names = append(names, res.Folder)
		}
	}
	return names
}

func (s *Summary) filter(archived, warned bool) []string {
	var names []string
	for _, res := range s.Results {
		if res.Err != nil || (res.State == StateArchived) != archived {
			continue
		}
		if (len(res.Warnings) > 0) == warned {
			names = append(names, res.Folder)
		}
	}
	return names
}

// Pipeline processes every device folder under the configured devices path.
type Pipeline struct {
	cfg      *config.Config
	writer   *report.Writer
	archiver *archive.Archiver
	log      logging.Logger
	metrics  *observability.PipelineCollector
	tracer   trace.Tracer
	workers  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds how many folders are processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithMetrics attaches a collector; without it the pipeline runs unmetered.
func WithMetrics(c *observability.PipelineCollector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// New wires a pipeline from the shared config.
func New(cfg *config.Config, writer *report.Writer, archiver *archive.Archiver, log logging.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: cfg is nil")
	}
	if writer == nil {
		return nil, fmt.Errorf("pipeline: writer is nil")
	}
	if archiver == nil {
		return nil, fmt.Errorf("pipeline: archiver is nil")
	}
	if log == nil {
		log = logging.Noop()
	}

	p := &Pipeline{
		cfg:      cfg,
		writer:   writer,
		archiver: archiver,
		log:      log,
		tracer:   otel.Tracer("mission-telemetry/pipeline"),
		workers:  4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run processes every device folder currently present and returns the run
// summary. The returned error covers only discovery; per-folder failures
// live in the summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	ctx, log := logging.WithRunLogger(ctx, p.log)

	entries, err := os.ReadDir(p.cfg.DevicesPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read devices dir %q: %w", p.cfg.DevicesPath, err)
	}
	var folders []string
	for _, entry := range entries {
		if entry.IsDir() {
			folders = append(folders, entry.Name())
		}
	}

	log.Info(ctx, "run started",
		logging.Int("folders", len(folders)),
		logging.Int("workers", p.workers),
	)

	jobs := make(chan string)
	results := make(chan FolderResult)

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for folder := range jobs {
				results <- p.processFolder(ctx, log, folder)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, folder := range folders {
			select {
			case jobs <- folder:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	for res := range results {
		summary.Results = append(summary.Results, res)
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Folder < summary.Results[j].Folder
	})

	log.Info(ctx, "run finished",
		logging.Int("succeeded", len(summary.Succeeded())),
		logging.Int("warned", len(summary.Warned())),
		logging.Int("failed", len(summary.Failed())),
	)
	return summary, nil
}

// processFolder walks one folder through the state machine. An existing
// report short-circuits straight to archival so a folder is never analysed
// twice.
func (p *Pipeline) processFolder(ctx context.Context, log logging.Logger, folder string) FolderResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.folder",
		trace.WithAttributes(attribute.String("folder", folder)))
	defer span.End()

	log = log.With(logging.String("folder", folder))
	res := FolderResult{Folder: folder, State: StatePending}
	src := filepath.Join(p.cfg.DevicesPath, folder)

	if p.writer.Exists(folder) {
		log.Info(ctx, "report already written; retrying archive only")
		res.State = StateReported
		return p.archiveFolder(ctx, log, src, res)
	}

	records, warnings, err := p.loadFolder(ctx, src)
	if err != nil {
		log.Error(ctx, "ingest failed", logging.String("error", err.Error()))
		p.observe("failed")
		res.Err = err
		return res
	}
	res.Warnings = warnings
	for _, warn := range warnings {
		log.Warn(ctx, "unit skipped",
			logging.String("file", warn.File),
			logging.String("reason", warn.Reason),
		)
	}
	if p.metrics != nil {
		p.metrics.RecordsLoaded.Add(float64(len(records)))
		p.metrics.RecordsSkipped.Add(float64(len(warnings)))
	}

	result := p.analyzeFolder(ctx, folder, records)
	result.Warnings = warnings
	res.State = StateAnalyzed

	resolved, unresolved := 0, 0
	for _, inc := range result.Incidents {
		if inc.Resolved {
			resolved++
		} else {
			unresolved++
		}
	}
	if p.metrics != nil {
		p.metrics.ObserveIncidents(resolved, unresolved)
	}

	if err := p.writeReport(ctx, result); err != nil {
		log.Error(ctx, "report write failed", logging.String("error", err.Error()))
		p.observe("failed")
		res.Err = err
		return res
	}
	res.State = StateReported
	log.Info(ctx, "report written",
		logging.Int("records", result.Records),
		logging.Int("incidents", len(result.Incidents)),
	)

	return p.archiveFolder(ctx, log, src, res)
}

func (p *Pipeline) loadFolder(ctx context.Context, src string) ([]model.TelemetryRecord, []analysis.Warning, error) {
	_, span := p.tracer.Start(ctx, "pipeline.load")
	defer span.End()
	return analysis.LoadFolder(src)
}

func (p *Pipeline) analyzeFolder(ctx context.Context, folder string, records []model.TelemetryRecord) *analysis.Result {
	_, span := p.tracer.Start(ctx, "pipeline.analyze")
	defer span.End()
	return analysis.Analyze(folder, records, p.cfg.Missions, p.cfg.AnomalousStatus)
}

func (p *Pipeline) writeReport(ctx context.Context, result *analysis.Result) error {
	_, span := p.tracer.Start(ctx, "pipeline.report")
	defer span.End()

	start := time.Now()
	_, err := p.writer.Write(result)
	if err == nil && p.metrics != nil {
		p.metrics.ReportDurations.Observe(time.Since(start).Seconds())
	}
	return err
}

func (p *Pipeline) archiveFolder(ctx context.Context, log logging.Logger, src string, res FolderResult) FolderResult {
	_, span := p.tracer.Start(ctx, "pipeline.archive")
	defer span.End()

	if err := p.archiver.Archive(src); err != nil {
		log.Error(ctx, "archive failed", logging.String("error", err.Error()))
		p.observe("failed")
		res.Err = err
		return res
	}
	res.State = StateArchived
	log.Info(ctx, "folder archived")

	if len(res.Warnings) > 0 {
		p.observe("warned")
	} else {
		p.observe("succeeded")
	}
	return res
}

func (p *Pipeline) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.ObserveFolder(outcome)
	}
}
