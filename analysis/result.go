package analysis

import (
	"sync"

	"github.com/signalsfoundry/mission-telemetry/model"
)

// Result is the ephemeral per-folder aggregate consumed by the report
// writer. It is owned by one processing pass and discarded afterwards.
type Result struct {
	Folder      string
	Records     int
	Warnings    []Warning
	EventCounts map[string]int
	Incidents   []Incident
	Missions    []MissionSummary
	Percentages map[string]float64
}

// Analyze derives the four analysis outputs from one loaded record set.
// The derivations are independent and run concurrently against the shared
// immutable slice; Analyze returns once all four have completed.
func Analyze(folder string, records []model.TelemetryRecord, known model.MissionSet, anomalous string) *Result {
	res := &Result{Folder: folder, Records: len(records)}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		res.Incidents = DetectDisconnections(records, anomalous)
	}()
	go func() {
		defer wg.Done()
		res.Missions = ConsolidateMissions(records, known)
	}()
	go func() {
		defer wg.Done()
		res.EventCounts = CountEvents(records)
		// The percentage table is derived from the event counts, so it
		// shares their goroutine.
		res.Percentages = Percentages(len(records), res.EventCounts)
	}()
	wg.Wait()

	return res
}
