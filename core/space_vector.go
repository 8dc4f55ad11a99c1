package core

import (
	"math"

	"github.com/signalsfoundry/mural/model"
)

// EarthRadiusKm is the mean Earth radius used by the spherical Earth model.
const EarthRadiusKm = 6371.0

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// SpaceVector is an Earth-fixed position or direction in kilometres.
type SpaceVector struct {
	X, Y, Z float64
}

// FromCoordinates converts a model coordinate triple.
func FromCoordinates(c model.Coordinates) SpaceVector {
	return SpaceVector{X: c.X, Y: c.Y, Z: c.Z}
}

// Coordinates converts back to the model representation.
func (v SpaceVector) Coordinates() model.Coordinates {
	return model.Coordinates{X: v.X, Y: v.Y, Z: v.Z}
}

// FromGeodetic places a point on (or above) the spherical Earth.
func FromGeodetic(latDeg, lonDeg, altKm float64) SpaceVector {
	lat := latDeg * degToRad
	lon := lonDeg * degToRad
	r := EarthRadiusKm + altKm
	return SpaceVector{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

func (v SpaceVector) Magnitude() float64 {
	return math.Sqrt(v.DotProduct(v))
}

func (v SpaceVector) Add(o SpaceVector) SpaceVector {
	return SpaceVector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v SpaceVector) Subtract(o SpaceVector) SpaceVector {
	return SpaceVector{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v SpaceVector) DotProduct(o SpaceVector) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v SpaceVector) Scale(s float64) SpaceVector {
	return SpaceVector{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Unit returns the unit vector, or the zero vector for a zero input.
func (v SpaceVector) Unit() SpaceVector {
	m := v.Magnitude()
	if m == 0 {
		return SpaceVector{}
	}
	return v.Scale(1 / m)
}

// SeparationAngle returns the angle between two directions in degrees.
func (v SpaceVector) SeparationAngle(o SpaceVector) float64 {
	den := v.Magnitude() * o.Magnitude()
	if den == 0 {
		return 0
	}
	c := v.DotProduct(o) / den
	return math.Acos(math.Max(-1, math.Min(1, c))) * radToDeg
}

// RangeKm returns the straight-line distance between two points.
func RangeKm(a, b SpaceVector) float64 {
	return b.Subtract(a).Magnitude()
}

// ElevationAngle returns the elevation of target above the local horizon
// of observer, in degrees. Coincident points report 90.
func ElevationAngle(observer, target SpaceVector) float64 {
	los := target.Subtract(observer)
	if los.Magnitude() == 0 || observer.Magnitude() == 0 {
		return 90
	}
	return 90 - observer.SeparationAngle(los)
}

// InLineOfSight reports whether the segment between p1 and p2 clears the
// Earth sphere.
func InLineOfSight(p1, p2 SpaceVector) bool {
	d := p2.Subtract(p1)
	a := d.DotProduct(d)
	if a == 0 {
		return p1.DotProduct(p1) > EarthRadiusKm*EarthRadiusKm
	}
	// closest approach of the segment to the Earth's centre
	t := math.Max(0, math.Min(1, -p1.DotProduct(d)/a))
	closest := SpaceVector{X: p1.X + d.X*t, Y: p1.Y + d.Y*t, Z: p1.Z + d.Z*t}
	return closest.DotProduct(closest) > EarthRadiusKm*EarthRadiusKm
}
