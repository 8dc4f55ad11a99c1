package core

import (
	"github.com/signalsfoundry/mural/timectrl"
)

// Geometry is the link geometry between two elements at one instant, seen
// from the first element.
type Geometry struct {
	ElevationDeg float64
	RangeKm      float64
	LineOfSight  bool
}

// GeometryBetween evaluates the geometry from observer to target.
func GeometryBetween(observer, target SpaceVector) Geometry {
	return Geometry{
		ElevationDeg: ElevationAngle(observer, target),
		RangeKm:      RangeKm(observer, target),
		LineOfSight:  InLineOfSight(observer, target),
	}
}

// LinkInview samples the geometry between two journeys at the start of every
// time step and returns the per-step in-view flags. accept decides whether
// a sampled geometry is usable; line of sight is always required.
func LinkInview(tp *timectrl.TimePiece, from, to Journey, accept func(Geometry) bool) []bool {
	n := tp.GetNumberOfTimeSteps()
	out := make([]bool, n)
	for idx := 0; idx < n; idx++ {
		at := tp.TimeAt(idx)
		g := GeometryBetween(from.PositionAt(at), to.PositionAt(at))
		out[idx] = g.LineOfSight && (accept == nil || accept(g))
	}
	return out
}

// RegionInview reports, per time step, whether a vehicle is at or above
// minElevationDeg as seen from a region centre.
func RegionInview(tp *timectrl.TimePiece, vehicle Journey, center SpaceVector, minElevationDeg float64) []bool {
	n := tp.GetNumberOfTimeSteps()
	out := make([]bool, n)
	for idx := 0; idx < n; idx++ {
		pos := vehicle.PositionAt(tp.TimeAt(idx))
		out[idx] = InLineOfSight(center.Scale(1.0001), pos) && ElevationAngle(center, pos) >= minElevationDeg
	}
	return out
}
