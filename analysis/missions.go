package analysis

import (
	"sort"

	"github.com/signalsfoundry/mission-telemetry/model"
)

// UnrecognizedMission is the bucket for records whose mission abbreviation
// is not in the configured mission set. Keeping them in an explicit bucket
// means per-mission counts always reconcile with the total record count.
const UnrecognizedMission = "UNRECOGNIZED"

// MissionSummary aggregates one mission's records.
type MissionSummary struct {
	Mission  string
	Records  int
	Statuses map[string]int
}

// ConsolidateMissions groups the record set by mission abbreviation and
// returns per-mission totals and status breakdowns, ordered by mission.
func ConsolidateMissions(records []model.TelemetryRecord, known model.MissionSet) []MissionSummary {
	byMission := make(map[string]*MissionSummary)
	for _, rec := range records {
		mission := rec.Mission
		if !known.Contains(mission) {
			mission = UnrecognizedMission
		}
		summary, ok := byMission[mission]
		if !ok {
			summary = &MissionSummary{Mission: mission, Statuses: make(map[string]int)}
			byMission[mission] = summary
		}
		summary.Records++
		summary.Statuses[rec.Status]++
	}

	summaries := make([]MissionSummary, 0, len(byMission))
	for _, summary := range byMission {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Mission < summaries[j].Mission
	})
	return summaries
}
