package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/signalsfoundry/mission-telemetry/archive"
	"github.com/signalsfoundry/mission-telemetry/config"
	"github.com/signalsfoundry/mission-telemetry/internal/logging"
	"github.com/signalsfoundry/mission-telemetry/internal/observability"
	"github.com/signalsfoundry/mission-telemetry/pipeline"
	"github.com/signalsfoundry/mission-telemetry/report"
)

func main() {
	configPath := flag.String("config", "configs/mission_config.json", "Path to the JSON mission configuration")
	workers := flag.Int("workers", 4, "Number of device folders processed concurrently")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables the endpoint)")
	exportXLSX := flag.Bool("export-xlsx", false, "Also write each report as an .xlsx workbook")
	exportPDF := flag.Bool("export-pdf", false, "Also write each report as a .pdf document")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("path", *configPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	serveMetrics(*metricsAddr, collector, log)

	var reportOpts []report.Option
	if *exportXLSX {
		reportOpts = append(reportOpts, report.WithXLSX())
	}
	if *exportPDF {
		reportOpts = append(reportOpts, report.WithPDF())
	}
	writer, err := report.NewWriter(cfg.ReportsPath, reportOpts...)
	if err != nil {
		log.Error(ctx, "failed to prepare report writer", logging.String("error", err.Error()))
		os.Exit(1)
	}
	archiver, err := archive.NewArchiver(cfg.BackupsPath)
	if err != nil {
		log.Error(ctx, "failed to prepare archiver", logging.String("error", err.Error()))
		os.Exit(1)
	}

	p, err := pipeline.New(cfg, writer, archiver, log,
		pipeline.WithWorkers(*workers),
		pipeline.WithMetrics(collector),
	)
	if err != nil {
		log.Error(ctx, "failed to build pipeline", logging.String("error", err.Error()))
		os.Exit(1)
	}

	summary, err := p.Run(ctx)
	if err != nil {
		log.Error(ctx, "run aborted", logging.String("error", err.Error()))
		os.Exit(1)
	}

	printSummary(summary)
	if len(summary.Failed()) > 0 {
		os.Exit(1)
	}
}

func printSummary(summary *pipeline.Summary) {
	fmt.Printf("Processed %d device folders\n", len(summary.Results))
	for _, res := range summary.Results {
		switch {
		case res.Err != nil:
			fmt.Printf("  %s: %s (%v)\n", res.Folder, res.State, res.Err)
		case len(res.Warnings) > 0:
			fmt.Printf("  %s: %s (%d units skipped)\n", res.Folder, res.State, len(res.Warnings))
		default:
			fmt.Printf("  %s: %s\n", res.Folder, res.State)
		}
	}
}

func serveMetrics(addr string, collector *observability.PipelineCollector, log logging.Logger) {
	if addr == "" || collector == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()
	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
}
