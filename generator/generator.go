// Package generator simulates telemetry from mission hardware as discrete
// status files, one device folder per cycle, in the layout the analysis
// pipeline ingests.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/mission-telemetry/config"
	"github.com/signalsfoundry/mission-telemetry/internal/logging"
	"github.com/signalsfoundry/mission-telemetry/model"
)

// Generator writes simulated telemetry folders. It is not safe for
// concurrent use; one generator drives one cadence loop.
type Generator struct {
	cfg *config.Config
	log logging.Logger
	rng *rand.Rand

	missions []string // abbreviations, sorted for deterministic draws
	motion   map[string]PositionModel
	devices  map[string]string // device type -> stable instance id

	cycle int
}

// New constructs a generator. The seed fixes the random draws, which keeps
// tests reproducible; production callers pass time.Now().UnixNano().
func New(cfg *config.Config, log logging.Logger, seed int64) *Generator {
	if log == nil {
		log = logging.Noop()
	}

	missions := make([]string, 0, len(cfg.Missions))
	for abbr := range cfg.Missions {
		missions = append(missions, abbr)
	}
	sort.Strings(missions)

	motion := make(map[string]PositionModel, len(cfg.Devices))
	devices := make(map[string]string, len(cfg.Devices))
	for _, deviceType := range cfg.Devices {
		motion[deviceType] = newPositionModel(deviceType, cfg.SatelliteTLE[0], cfg.SatelliteTLE[1])
		devices[deviceType] = uuid.NewString()
	}

	return &Generator{
		cfg:      cfg,
		log:      log,
		rng:      rand.New(rand.NewSource(seed)),
		missions: missions,
		motion:   motion,
		devices:  devices,
	}
}

// GenerateCycle writes one device folder named "<cycle>_<count>" under the
// configured devices path and returns its path. Every record is sealed with
// its content hash before being written.
func (g *Generator) GenerateCycle(ctx context.Context, simTime time.Time) (string, error) {
	g.cycle++
	count := g.cfg.FilesPerCycleMin
	if spread := g.cfg.FilesPerCycleMax - g.cfg.FilesPerCycleMin; spread > 0 {
		count += g.rng.Intn(spread + 1)
	}

	folderName := fmt.Sprintf("%d_%d", g.cycle, count)
	folderPath := filepath.Join(g.cfg.DevicesPath, folderName)
	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return "", fmt.Errorf("generator: create folder %q: %w", folderPath, err)
	}

	// One opaque identity per cycle for unknown-mission telemetry, as if an
	// unregistered asset phoned home.
	unknownID := uuid.NewString()

	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		abbr := g.missions[g.rng.Intn(len(g.missions))]
		// Spread capture times across the cycle so per-device timelines
		// have a usable chronological order.
		rec := g.buildRecord(abbr, unknownID, simTime.Add(time.Duration(i-1)*time.Second))

		sealed, err := rec.Seal()
		if err != nil {
			return "", fmt.Errorf("generator: seal record: %w", err)
		}
		data, err := json.MarshalIndent(sealed, "", "  ")
		if err != nil {
			return "", fmt.Errorf("generator: marshal record: %w", err)
		}

		fileName := fmt.Sprintf("APL%s-%05d.log", abbr, i)
		if err := os.WriteFile(filepath.Join(folderPath, fileName), data, 0o644); err != nil {
			return "", fmt.Errorf("generator: write %q: %w", fileName, err)
		}
	}

	g.log.Info(ctx, "cycle generated",
		logging.String("folder", folderName),
		logging.Int("files", count),
	)
	return folderPath, nil
}

func (g *Generator) buildRecord(abbr, unknownID string, simTime time.Time) model.TelemetryRecord {
	deviceType := g.cfg.Devices[g.rng.Intn(len(g.cfg.Devices))]
	rec := model.TelemetryRecord{
		Date:       simTime,
		Mission:    abbr,
		DeviceType: deviceType,
		DeviceID:   g.devices[deviceType],
		Status:     g.cfg.Statuses[g.rng.Intn(len(g.cfg.Statuses))],
		Position:   g.motion[deviceType].Position(simTime),
	}

	// Telemetry drawn for the placeholder "unknown" mission carries the
	// cycle's opaque identity; its abbreviation is not in the configured
	// mission set, so it lands in the consolidator's unrecognized bucket.
	if g.cfg.Missions[abbr] == "Unknown" {
		rec.Mission = unknownID
		rec.DeviceType = "unknown"
		rec.DeviceID = ""
		rec.Status = g.cfg.AnomalousStatus
		rec.Position = nil
	}
	return rec
}
