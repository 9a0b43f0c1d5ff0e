// Package config loads simulation and pipeline parameters from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/signalsfoundry/mission-telemetry/model"
)

// Config holds the validated parameters shared by the generator and the
// analysis pipeline.
type Config struct {
	// DevicesPath is where the generator deposits device folders and the
	// pipeline picks them up.
	DevicesPath string
	// ReportsPath receives one report artifact per processed folder.
	ReportsPath string
	// BackupsPath is the archive namespace for processed folders.
	BackupsPath string

	// Devices are the hardware categories telemetry is simulated for.
	Devices []string
	// Missions maps mission abbreviations to full names.
	Missions model.MissionSet
	// Statuses is the closed set of reportable device states.
	Statuses model.StatusSet
	// AnomalousStatus is the member of Statuses that marks a disconnected
	// device.
	AnomalousStatus string

	// CycleInterval is the generator cadence between cycles.
	CycleInterval time.Duration
	// FilesPerCycleMin/Max bound how many telemetry files one cycle emits.
	FilesPerCycleMin int
	FilesPerCycleMax int

	// SatelliteTLE carries the two TLE lines used to propagate positions
	// for satellite-category devices. Empty lines disable propagation.
	SatelliteTLE [2]string
}

// internal JSON shape – kept unexported so the on-disk format can evolve
// independently of the Config struct.
type configJSON struct {
	OutputPath       string            `json:"output_path"`
	ReportsPath      string            `json:"reports_path"`
	BackupsPath      string            `json:"backups_path"`
	Devices          []string          `json:"devices"`
	Missions         map[string]string `json:"missions"`
	Statuses         []string          `json:"statuses"`
	AnomalousStatus  string            `json:"anomalous_status"`
	TimeSleepSeconds int               `json:"time_sleep_seconds"`
	NumFilesRange    []int             `json:"num_files_range"`
	SatelliteTLE     []string          `json:"satellite_tle"`
}

// Load reads a JSON config from r, applies defaults, and validates the
// closed sets. It fails only on structural or validation errors; unknown
// mission abbreviations encountered later in telemetry are a consolidation
// concern, not a load error.
func Load(r io.Reader) (*Config, error) {
	var payload configJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("config: decode failed: %w", err)
	}

	cfg := &Config{
		DevicesPath:      payload.OutputPath,
		ReportsPath:      payload.ReportsPath,
		BackupsPath:      payload.BackupsPath,
		Devices:          payload.Devices,
		Missions:         model.MissionSet(payload.Missions),
		Statuses:         model.StatusSet(payload.Statuses),
		AnomalousStatus:  payload.AnomalousStatus,
		CycleInterval:    time.Duration(payload.TimeSleepSeconds) * time.Second,
		FilesPerCycleMin: 1,
		FilesPerCycleMax: 100,
	}
	if len(payload.NumFilesRange) == 2 {
		cfg.FilesPerCycleMin = payload.NumFilesRange[0]
		cfg.FilesPerCycleMax = payload.NumFilesRange[1]
	}
	if len(payload.SatelliteTLE) == 2 {
		cfg.SatelliteTLE = [2]string{payload.SatelliteTLE[0], payload.SatelliteTLE[1]}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile opens path and delegates to Load.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func (c *Config) applyDefaults() {
	if c.DevicesPath == "" {
		c.DevicesPath = "devices"
	}
	if c.ReportsPath == "" {
		c.ReportsPath = "reports"
	}
	if c.BackupsPath == "" {
		c.BackupsPath = "backups"
	}
	if len(c.Statuses) == 0 {
		c.Statuses = model.StatusSet{
			model.StatusExcellent,
			model.StatusGood,
			model.StatusWarning,
			model.StatusFaulty,
			model.StatusKilled,
			model.StatusUnknown,
		}
	}
	if c.AnomalousStatus == "" {
		c.AnomalousStatus = model.StatusUnknown
	}
	if c.CycleInterval <= 0 {
		c.CycleInterval = 20 * time.Second
	}
}

func (c *Config) validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("config: devices list is empty")
	}
	if len(c.Missions) == 0 {
		return fmt.Errorf("config: missions map is empty")
	}
	if !c.Statuses.Contains(c.AnomalousStatus) {
		return fmt.Errorf("config: anomalous status %q is not in the status set", c.AnomalousStatus)
	}
	if c.FilesPerCycleMin < 1 || c.FilesPerCycleMax < c.FilesPerCycleMin {
		return fmt.Errorf("config: invalid files-per-cycle range [%d, %d]",
			c.FilesPerCycleMin, c.FilesPerCycleMax)
	}
	return nil
}
