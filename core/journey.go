package core

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/mural/model"
)

// Journey supplies an element's Earth-fixed position over time.
type Journey interface {
	PositionAt(at time.Time) SpaceVector
}

// FixedJourney never moves.
type FixedJourney struct {
	Position SpaceVector
}

func (j FixedJourney) PositionAt(time.Time) SpaceVector { return j.Position }

// SGP4Journey propagates a two-line element set with go-satellite.
type SGP4Journey struct {
	sat satellite.Satellite
}

// NewSGP4Journey parses the TLE lines into a propagator.
func NewSGP4Journey(line1, line2 string) (*SGP4Journey, error) {
	if strings.TrimSpace(line1) == "" || strings.TrimSpace(line2) == "" {
		return nil, fmt.Errorf("empty TLE line")
	}
	return &SGP4Journey{sat: satellite.TLEToSat(line1, line2, satellite.GravityWGS72)}, nil
}

// PositionAt returns the ECEF position in kilometres at the given time.
func (j *SGP4Journey) PositionAt(at time.Time) SpaceVector {
	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()

	eci, _ := satellite.Propagate(j.sat, year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	ecef := satellite.ECIToECEF(eci, gmst)
	return SpaceVector{X: ecef.X, Y: ecef.Y, Z: ecef.Z}
}

// JourneyFor builds the position provider appropriate to the element type.
func JourneyFor(e *model.Element) (Journey, error) {
	if e == nil {
		return nil, fmt.Errorf("nil element")
	}
	switch e.Type {
	case model.ElementUserVehicle, model.ElementRelaySatellite:
		if e.MotionSource == model.MotionSourceTLE {
			j, err := NewSGP4Journey(e.TLELine1, e.TLELine2)
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", e.Designator, err)
			}
			return j, nil
		}
		return FixedJourney{Position: FromGeodetic(e.LatitudeDeg, e.LongitudeDeg, e.AltitudeKm)}, nil
	case model.ElementGroundStation:
		return FixedJourney{Position: FromGeodetic(e.LatitudeDeg, e.LongitudeDeg, e.AltitudeKm)}, nil
	}
	return nil, fmt.Errorf("element %q has unknown type %v", e.Designator, e.Type)
}
