package analysis

import "github.com/signalsfoundry/mission-telemetry/model"

// CountEvents tallies status occurrences across the record set. It is
// order-independent and defined for the empty sequence, where every count
// is zero.
func CountEvents(records []model.TelemetryRecord) map[string]int {
	counts := make(map[string]int, 8)
	for _, rec := range records {
		counts[rec.Status]++
	}
	return counts
}
