package generator

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/mission-telemetry/model"
)

// PositionModel yields a device position for a simulation time, or nil when
// the device category has no meaningful position.
type PositionModel interface {
	Position(simTime time.Time) *model.Position
}

// staticModel reports no position.
type staticModel struct{}

func (staticModel) Position(time.Time) *model.Position { return nil }

// sgp4Model propagates a TLE with SGP4 and reports ECEF positions in
// kilometres.
type sgp4Model struct {
	sat satellite.Satellite
}

func newSGP4Model(line1, line2 string) *sgp4Model {
	return &sgp4Model{sat: satellite.TLEToSat(line1, line2, satellite.GravityWGS72)}
}

func (m *sgp4Model) Position(simTime time.Time) *model.Position {
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	return &model.Position{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z}
}

// newPositionModel chooses a model for the device category. Satellites with
// a configured TLE get SGP4 propagation; everything else is static.
func newPositionModel(deviceType, tle1, tle2 string) PositionModel {
	if deviceType == "satellite" && tle1 != "" && tle2 != "" {
		return newSGP4Model(tle1, tle2)
	}
	return staticModel{}
}
