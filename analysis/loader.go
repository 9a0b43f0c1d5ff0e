// Package analysis implements the per-folder telemetry analysis: loading,
// event tallies, disconnection detection, mission consolidation, and
// percentage statistics.
package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalsfoundry/mission-telemetry/model"
)

// IngestError reports that a device folder could not be loaded at all:
// missing, empty, or with no unit surviving parsing and hash verification.
type IngestError struct {
	Folder string
	Reason string
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s", e.Folder, e.Reason)
}

// Warning describes one telemetry unit that was skipped during load.
// Skipped units are the partial-corruption case: the load continues as long
// as at least one unit survives.
type Warning struct {
	File   string
	Reason string
}

// LoadFolder reads every telemetry unit in dir into validated records,
// preserving the folder's natural enumeration order. Units that fail to
// parse or whose stored hash does not match the recomputed one are skipped
// with a warning. It never sorts and never mutates the folder.
func LoadFolder(dir string) ([]model.TelemetryRecord, []Warning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, &IngestError{Folder: dir, Reason: fmt.Sprintf("folder unreadable: %v", err)}
	}

	var (
		records  []model.TelemetryRecord
		warnings []Warning
		units    int
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		units++
		name := entry.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			warnings = append(warnings, Warning{File: name, Reason: fmt.Sprintf("unreadable: %v", err)})
			continue
		}

		var rec model.TelemetryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			warnings = append(warnings, Warning{File: name, Reason: fmt.Sprintf("malformed: %v", err)})
			continue
		}
		if !rec.Verify() {
			warnings = append(warnings, Warning{File: name, Reason: "content hash mismatch"})
			continue
		}
		records = append(records, rec)
	}

	if units == 0 {
		return nil, nil, &IngestError{Folder: dir, Reason: "folder is empty"}
	}
	if len(records) == 0 {
		return nil, warnings, &IngestError{Folder: dir, Reason: "no unit survived parsing and verification"}
	}
	return records, warnings, nil
}
