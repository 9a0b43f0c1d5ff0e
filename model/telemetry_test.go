package model

import (
	"testing"
	"time"
)

func testRecord() TelemetryRecord {
	return TelemetryRecord{
		Date:       time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC),
		Mission:    "ORBONE",
		DeviceType: "satellite",
		DeviceID:   "sat-7",
		Status:     StatusGood,
	}
}

func TestComputeHashIsDeterministic(t *testing.T) {
	rec := testRecord()
	h1, err := rec.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash error: %v", err)
	}
	h2, err := rec.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash error: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestComputeHashIgnoresStoredHash(t *testing.T) {
	rec := testRecord()
	h1, err := rec.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash error: %v", err)
	}
	rec.ContentHash = "something-else"
	h2, err := rec.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash error: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("stored hash leaked into canonical encoding")
	}
}

func TestSealAndVerify(t *testing.T) {
	rec, err := testRecord().Seal()
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	if !rec.Verify() {
		t.Fatalf("sealed record failed to verify")
	}

	tampered := rec
	tampered.Status = StatusKilled
	if tampered.Verify() {
		t.Fatalf("tampered record verified")
	}
}

func TestVerifyEmptyHash(t *testing.T) {
	if testRecord().Verify() {
		t.Fatalf("record with empty hash verified")
	}
}

func TestHashCoversPosition(t *testing.T) {
	rec := testRecord()
	rec.Position = &Position{X: 6871.0, Y: 12.5, Z: -301.7}
	sealed, err := rec.Seal()
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	sealed.Position.Z = 0
	if sealed.Verify() {
		t.Fatalf("position change not detected by hash")
	}
}

func TestMissionSetContains(t *testing.T) {
	set := MissionSet{"ORBONE": "OrbitOne", "CLNM": "ColonyMoon"}
	if !set.Contains("ORBONE") {
		t.Fatalf("expected ORBONE to be recognised")
	}
	if set.Contains("VAC") {
		t.Fatalf("did not expect VAC to be recognised")
	}
}

func TestStatusSetContains(t *testing.T) {
	set := StatusSet{StatusExcellent, StatusGood, StatusUnknown}
	if !set.Contains(StatusUnknown) {
		t.Fatalf("expected unknown to be a member")
	}
	if set.Contains("degraded") {
		t.Fatalf("did not expect degraded to be a member")
	}
}
