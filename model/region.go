package model

import (
	"fmt"
	"math"
)

// SubRegionDivider scales a sub-region number into the fractional part of
// a full region number (region 12, sub-region 3 -> 12.03).
const SubRegionDivider = 100.0

// Coordinates is an ECEF position in kilometres.
type Coordinates struct {
	X float64
	Y float64
	Z float64
}

// Region is a fixed geographic collection cell.
type Region struct {
	Number      int
	SubRegion   int
	CountryCode string

	// Center is Earth-fixed, so it does not move between time steps.
	Center       Coordinates
	LatitudeDeg  float64
	LongitudeDeg float64
}

// FullRegionNumber encodes region.subregion as one number.
func (r *Region) FullRegionNumber() float64 {
	return FullRegionNumber(r.Number, r.SubRegion)
}

// RegionCenter returns the region centre at timeIndex.
func (r *Region) RegionCenter(timeIndex int) Coordinates {
	return r.Center
}

func (r *Region) String() string {
	return FormatRegionNumber(r.FullRegionNumber())
}

// FullRegionNumber combines a region and sub-region number.
func FullRegionNumber(region, subRegion int) float64 {
	return float64(region) + float64(subRegion)/SubRegionDivider
}

// SplitRegionNumber is the inverse of FullRegionNumber.
func SplitRegionNumber(full float64) (region, subRegion int) {
	region = int(math.Floor(full))
	subRegion = int(math.Round((full - float64(region)) * SubRegionDivider))
	return region, subRegion
}

// FormatRegionNumber renders a full region number as "region.sub" with a
// two-digit sub-region. It is used as a stable map key.
func FormatRegionNumber(full float64) string {
	region, sub := SplitRegionNumber(full)
	return fmt.Sprintf("%d.%02d", region, sub)
}
