package analysis

import (
	"sort"
	"time"

	"github.com/signalsfoundry/mission-telemetry/model"
)

// Incident is a detected outage window on one device timeline. For a
// resolved incident, DownAt is the last anomalous record before recovery
// and RecoveredAt the recovery record; consecutive anomalous records
// collapse into a single outage. An unresolved incident has a zero
// RecoveredAt.
type Incident struct {
	DeviceType  string
	DeviceID    string
	DownAt      time.Time
	RecoveredAt time.Time
	Resolved    bool
}

type deviceKey struct {
	deviceType string
	deviceID   string
}

// DetectDisconnections groups records into per-device timelines (device
// type plus device id; records with an empty id share one timeline per
// type), orders each timeline chronologically, and scans consecutive pairs
// for anomalous-to-recovered transitions. A timeline ending in the
// anomalous status yields one unresolved incident.
//
// Sorting is stable, with ties broken by original sequence position, so the
// result is the same for any permutation of the input.
func DetectDisconnections(records []model.TelemetryRecord, anomalous string) []Incident {
	groups := make(map[deviceKey][]model.TelemetryRecord)
	for _, rec := range records {
		key := deviceKey{deviceType: rec.DeviceType, deviceID: rec.DeviceID}
		groups[key] = append(groups[key], rec)
	}

	keys := make([]deviceKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].deviceType != keys[j].deviceType {
			return keys[i].deviceType < keys[j].deviceType
		}
		return keys[i].deviceID < keys[j].deviceID
	})

	var incidents []Incident
	for _, key := range keys {
		timeline := groups[key]
		// Records were appended in sequence order, so a stable sort on the
		// timestamp alone keeps the original position as tie-breaker.
		sort.SliceStable(timeline, func(i, j int) bool {
			return timeline[i].Date.Before(timeline[j].Date)
		})

		for i := 0; i+1 < len(timeline); i++ {
			if timeline[i].Status == anomalous && timeline[i+1].Status != anomalous {
				incidents = append(incidents, Incident{
					DeviceType:  key.deviceType,
					DeviceID:    key.deviceID,
					DownAt:      timeline[i].Date,
					RecoveredAt: timeline[i+1].Date,
					Resolved:    true,
				})
			}
		}
		if n := len(timeline); n > 1 && timeline[n-1].Status == anomalous {
			incidents = append(incidents, Incident{
				DeviceType: key.deviceType,
				DeviceID:   key.deviceID,
				DownAt:     timeline[n-1].Date,
			})
		}
	}
	return incidents
}
