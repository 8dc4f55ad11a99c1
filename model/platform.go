package model

import "fmt"

// ElementType is the closed set of constellation element kinds.
type ElementType int

const (
	ElementUnknown ElementType = iota
	ElementUserVehicle
	ElementRelaySatellite
	ElementGroundStation
)

func (t ElementType) String() string {
	switch t {
	case ElementUserVehicle:
		return "USER_VEHICLE"
	case ElementRelaySatellite:
		return "RELAY_SATELLITE"
	case ElementGroundStation:
		return "GROUND_STATION"
	default:
		return "UNKNOWN"
	}
}

// ParseElementType maps a configuration string onto an ElementType.
func ParseElementType(s string) (ElementType, error) {
	switch s {
	case "USER_VEHICLE", "user_vehicle", "user":
		return ElementUserVehicle, nil
	case "RELAY_SATELLITE", "relay_satellite", "relay":
		return ElementRelaySatellite, nil
	case "GROUND_STATION", "ground_station", "ground":
		return ElementGroundStation, nil
	}
	return ElementUnknown, fmt.Errorf("unknown element type %q", s)
}

// IsSpaceBased reports whether the element moves along an orbit.
func (t ElementType) IsSpaceBased() bool {
	switch t {
	case ElementUserVehicle, ElementRelaySatellite:
		return true
	case ElementGroundStation:
		return false
	}
	return false
}

// MotionSource indicates how an element's position is determined.
type MotionSource int

const (
	MotionSourceFixed MotionSource = iota
	MotionSourceTLE
)

// Element is a user vehicle, relay satellite or ground station.
type Element struct {
	Designator string
	Type       ElementType

	MotionSource MotionSource
	TLELine1     string
	TLELine2     string

	// Fixed position for ground stations (geodetic).
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKm   float64

	// ResourceIndex is the collecting resource this element provides, or -1.
	ResourceIndex int
}
