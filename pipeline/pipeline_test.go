package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/mission-telemetry/analysis"
	"github.com/signalsfoundry/mission-telemetry/archive"
	"github.com/signalsfoundry/mission-telemetry/config"
	"github.com/signalsfoundry/mission-telemetry/model"
	"github.com/signalsfoundry/mission-telemetry/report"
)

type testEnv struct {
	cfg      *config.Config
	pipeline *Pipeline
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	cfg := &config.Config{
		DevicesPath: t.TempDir(),
		ReportsPath: t.TempDir(),
		BackupsPath: t.TempDir(),
		Devices:     []string{"satellite", "spacesuit"},
		Missions: model.MissionSet{
			"ORBONE": "OrbitOne",
			"CLNM":   "ColonyMoon",
		},
		Statuses:        model.StatusSet{model.StatusGood, model.StatusFaulty, model.StatusUnknown},
		AnomalousStatus: model.StatusUnknown,
	}

	writer, err := report.NewWriter(cfg.ReportsPath)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	archiver, err := archive.NewArchiver(cfg.BackupsPath)
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	p, err := New(cfg, writer, archiver, nil, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{cfg: cfg, pipeline: p}
}

func (env *testEnv) writeFolder(t *testing.T, name string, records ...model.TelemetryRecord) {
	t.Helper()
	dir := filepath.Join(env.cfg.DevicesPath, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i, rec := range records {
		sealed, err := rec.Seal()
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		data, err := json.Marshal(sealed)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		path := filepath.Join(dir, unitName(rec.Mission, i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func unitName(mission string, i int) string {
	return "APL" + mission + "-" + string(rune('a'+i)) + ".log"
}

func rec(mission, deviceID, status string, ts time.Time) model.TelemetryRecord {
	return model.TelemetryRecord{
		Date:       ts,
		Mission:    mission,
		DeviceType: "satellite",
		DeviceID:   deviceID,
		Status:     status,
	}
}

func TestRunProcessesFolderEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	env.writeFolder(t, "1_2",
		rec("ORBONE", "sat-1", model.StatusUnknown, t0),
		rec("ORBONE", "sat-1", model.StatusGood, t0.Add(time.Minute)),
	)

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Succeeded(); len(got) != 1 || got[0] != "1_2" {
		t.Fatalf("Succeeded = %v, want [1_2]", got)
	}

	if _, err := os.Stat(filepath.Join(env.cfg.ReportsPath, report.Filename("1_2"))); err != nil {
		t.Fatalf("report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.BackupsPath, "1_2")); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.DevicesPath, "1_2")); !os.IsNotExist(err) {
		t.Fatalf("source folder still present")
	}
}

func TestRunIsolatesFailedFolders(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	env.writeFolder(t, "1_1", rec("ORBONE", "sat-1", model.StatusGood, t0))

	// Folder 2_1 contains only garbage, so its ingest hard-fails.
	bad := filepath.Join(env.cfg.DevicesPath, "2_1")
	if err := os.MkdirAll(bad, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bad, "junk.log"), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Succeeded(); len(got) != 1 || got[0] != "1_1" {
		t.Fatalf("Succeeded = %v, want [1_1]", got)
	}
	if got := summary.Failed(); len(got) != 1 || got[0] != "2_1" {
		t.Fatalf("Failed = %v, want [2_1]", got)
	}

	// The failed folder stays pending at the source for a later retry.
	if _, err := os.Stat(bad); err != nil {
		t.Fatalf("failed folder removed from source: %v", err)
	}
	var res *FolderResult
	for i := range summary.Results {
		if summary.Results[i].Folder == "2_1" {
			res = &summary.Results[i]
		}
	}
	if res == nil || res.State != StatePending {
		t.Fatalf("failed folder state = %v, want pending", res)
	}
	var ingest *analysis.IngestError
	if !errors.As(res.Err, &ingest) {
		t.Fatalf("error = %v, want IngestError", res.Err)
	}
}

func TestRunCountsWarnedFolders(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	env.writeFolder(t, "1_2", rec("ORBONE", "sat-1", model.StatusGood, t0))
	if err := os.WriteFile(filepath.Join(env.cfg.DevicesPath, "1_2", "zz.log"), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Warned(); len(got) != 1 || got[0] != "1_2" {
		t.Fatalf("Warned = %v, want [1_2]", got)
	}
	if got := summary.Succeeded(); len(got) != 0 {
		t.Fatalf("Succeeded = %v, want none", got)
	}
}

func TestRunRetriesArchiveOnlyWhenReportExists(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	env.writeFolder(t, "1_1", rec("ORBONE", "sat-1", model.StatusGood, t0))

	// A report from an earlier pass marks the folder reported; the retry
	// must not re-analyse (and must not overwrite the report).
	reportPath := filepath.Join(env.cfg.ReportsPath, report.Filename("1_1"))
	if err := os.WriteFile(reportPath, []byte("earlier pass"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Succeeded(); len(got) != 1 || got[0] != "1_1" {
		t.Fatalf("Succeeded = %v, want [1_1]", got)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != "earlier pass" {
		t.Fatalf("archive-only retry rewrote the report")
	}
	if _, err := os.Stat(filepath.Join(env.cfg.BackupsPath, "1_1")); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
}

func TestRunArchiveConflictLeavesFolderReported(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	env.writeFolder(t, "1_1", rec("ORBONE", "sat-1", model.StatusGood, t0))

	// Occupy the backup slot so archival must refuse.
	if err := os.MkdirAll(filepath.Join(env.cfg.BackupsPath, "1_1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Failed(); len(got) != 1 || got[0] != "1_1" {
		t.Fatalf("Failed = %v, want [1_1]", got)
	}
	res := summary.Results[0]
	if res.State != StateReported {
		t.Fatalf("state = %v, want reported", res.State)
	}
	var conflict *archive.ArchiveConflictError
	if !errors.As(res.Err, &conflict) {
		t.Fatalf("error = %v, want ArchiveConflictError", res.Err)
	}
	// Analysis and report are preserved for the next pass.
	if _, err := os.Stat(filepath.Join(env.cfg.ReportsPath, report.Filename("1_1"))); err != nil {
		t.Fatalf("report missing after conflict: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.DevicesPath, "1_1")); err != nil {
		t.Fatalf("source folder missing after conflict: %v", err)
	}
}

func TestRunEmptyDevicesDir(t *testing.T) {
	env := newTestEnv(t)
	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Results) != 0 {
		t.Fatalf("results = %v, want none", summary.Results)
	}
}

func TestRunParallelFoldersAllArchive(t *testing.T) {
	env := newTestEnv(t, WithWorkers(4))
	t0 := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"1_1", "2_1", "3_1", "4_1", "5_1", "6_1"}
	for _, name := range names {
		env.writeFolder(t, name, rec("CLNM", "sat-9", model.StatusGood, t0))
	}

	summary, err := env.pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Succeeded(); len(got) != len(names) {
		t.Fatalf("Succeeded = %v, want %d folders", got, len(names))
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(env.cfg.BackupsPath, name)); err != nil {
			t.Fatalf("backup %s missing: %v", name, err)
		}
	}
}
