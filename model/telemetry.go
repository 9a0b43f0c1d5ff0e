package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Default device statuses. The operational set is configurable; these are
// the values used by the generator and the reference config.
const (
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusWarning   = "warning"
	StatusFaulty    = "faulty"
	StatusKilled    = "killed"
	// StatusUnknown is the anomalous state: the device stopped reporting.
	StatusUnknown = "unknown"
)

// Position is an ECEF position in kilometres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TelemetryRecord is one reported observation from a piece of mission
// hardware. It is the unit the generator writes and the loader reads; one
// record per telemetry file.
//
// ContentHash covers the canonical JSON encoding of the record with the
// hash field cleared. Field order follows the struct declaration, so the
// encoding is stable across runs and implementations.
type TelemetryRecord struct {
	Date        time.Time `json:"date"`
	Mission     string    `json:"mission"`
	DeviceType  string    `json:"device_type"`
	DeviceID    string    `json:"device_id,omitempty"`
	Status      string    `json:"device_status"`
	Position    *Position `json:"position,omitempty"`
	ContentHash string    `json:"hash"`
}

// ComputeHash returns the hex SHA-256 of the record's canonical encoding.
// The receiver is a copy, so clearing the hash field does not mutate the
// caller's record.
func (r TelemetryRecord) ComputeHash() (string, error) {
	r.ContentHash = ""
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal stamps the record with its content hash and returns it.
func (r TelemetryRecord) Seal() (TelemetryRecord, error) {
	h, err := r.ComputeHash()
	if err != nil {
		return r, err
	}
	r.ContentHash = h
	return r, nil
}

// Verify reports whether the stored content hash matches the recomputed
// one. A record with an empty hash never verifies.
func (r TelemetryRecord) Verify() bool {
	if r.ContentHash == "" {
		return false
	}
	h, err := r.ComputeHash()
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(h), []byte(r.ContentHash)) == 1
}

// MissionSet maps mission abbreviations to full mission names. It is a
// validated closed set loaded from configuration; abbreviations outside the
// set are reported, not rejected, by the consolidation step.
type MissionSet map[string]string

// Contains reports whether abbr is a recognised mission abbreviation.
func (m MissionSet) Contains(abbr string) bool {
	_, ok := m[abbr]
	return ok
}

// StatusSet is the closed set of operational states a device may report.
type StatusSet []string

// Contains reports whether status is a member of the set.
func (s StatusSet) Contains(status string) bool {
	for _, v := range s {
		if v == status {
			return true
		}
	}
	return false
}
