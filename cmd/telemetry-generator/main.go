package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/mission-telemetry/config"
	"github.com/signalsfoundry/mission-telemetry/generator"
	"github.com/signalsfoundry/mission-telemetry/internal/logging"
	"github.com/signalsfoundry/mission-telemetry/internal/observability"
	"github.com/signalsfoundry/mission-telemetry/timectrl"
)

func main() {
	configPath := flag.String("config", "configs/mission_config.json", "Path to the JSON mission configuration")
	duration := flag.Duration("duration", 0, "Total simulation duration (0 runs until interrupted)")
	accelerated := flag.Bool("accelerated", false, "Advance cycles as fast as they complete instead of waiting the cycle interval")
	metricsAddr := flag.String("metrics-addr", ":9091", "HTTP address for Prometheus /metrics (empty disables the endpoint)")
	seed := flag.Int64("seed", 0, "Random seed for telemetry draws (0 uses the current time)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("path", *configPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	serveMetrics(*metricsAddr, collector, log)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	gen := generator.New(cfg, log, *seed)

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	driver := timectrl.NewDriver(time.Now().UTC(), cfg.CycleInterval, mode)
	driver.AddListener(func(simTime time.Time) {
		folder, err := gen.GenerateCycle(ctx, simTime)
		if err != nil {
			log.Error(ctx, "cycle failed", logging.String("error", err.Error()))
			return
		}
		collector.CyclesGenerated.Inc()
		if entries, err := os.ReadDir(folder); err == nil {
			collector.FilesGenerated.Add(float64(len(entries)))
		}
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	log.Info(ctx, "starting telemetry generation",
		logging.String("devices_path", cfg.DevicesPath),
		logging.String("interval", cfg.CycleInterval.String()),
	)
	if err := driver.Run(runCtx, *duration); err != nil && err != context.Canceled {
		log.Error(ctx, "generation stopped", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "generation finished")
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
