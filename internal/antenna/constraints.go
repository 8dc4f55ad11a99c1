package antenna

import (
	"github.com/signalsfoundry/mural/core"
	"github.com/signalsfoundry/mural/internal/errs"
)

// Unconstrained accepts any geometry with line of sight.
var Unconstrained = Constraint{MinElevationDeg: -90}

// Constraint bounds the geometry under which a link may be used. Elevation
// is measured at the receiving end.
type Constraint struct {
	MinElevationDeg float64
	MinRangeKm      float64
	MaxRangeKm      float64 // 0 is unbounded
}

// Satisfied reports whether g meets the constraint. Line of sight is
// always required.
func (c Constraint) Satisfied(g core.Geometry) bool {
	if !g.LineOfSight {
		return false
	}
	if g.ElevationDeg < c.MinElevationDeg {
		return false
	}
	if g.RangeKm < c.MinRangeKm {
		return false
	}
	return c.MaxRangeKm <= 0 || g.RangeKm <= c.MaxRangeKm
}

func (c Constraint) validate(label string, col *errs.Collector) {
	if c.MinElevationDeg < -90 || c.MinElevationDeg > 90 {
		col.Addf("%s minimum elevation %.2f outside [-90, 90]", label, c.MinElevationDeg)
	}
	if c.MinRangeKm < 0 || c.MaxRangeKm < 0 {
		col.Addf("%s range bounds must not be negative", label)
	}
	if c.MaxRangeKm > 0 && c.MinRangeKm > c.MaxRangeKm {
		col.Addf("%s minimum range %.1f exceeds maximum %.1f", label, c.MinRangeKm, c.MaxRangeKm)
	}
}

// LinkConstraints is a defaulted map: a partner designator without an
// override uses the default constraint.
type LinkConstraints struct {
	defaults  Constraint
	overrides map[string]Constraint
}

// NewLinkConstraints validates the default and every override.
func NewLinkConstraints(defaults Constraint, overrides map[string]Constraint) (*LinkConstraints, error) {
	col := errs.NewCollector("LinkConstraints", "NewLinkConstraints")
	defaults.validate("default", col)
	for partner, c := range overrides {
		c.validate("override for "+partner, col)
	}
	if err := col.Err(); err != nil {
		return nil, err
	}
	lc := &LinkConstraints{defaults: defaults, overrides: make(map[string]Constraint, len(overrides))}
	for partner, c := range overrides {
		lc.overrides[partner] = c
	}
	return lc, nil
}

// For returns the constraint that applies to the partner.
func (lc *LinkConstraints) For(partner string) Constraint {
	if lc == nil {
		return Unconstrained
	}
	if c, ok := lc.overrides[partner]; ok {
		return c
	}
	return lc.defaults
}

// Satisfied reports whether g meets the constraint for the partner.
func (lc *LinkConstraints) Satisfied(partner string, g core.Geometry) bool {
	return lc.For(partner).Satisfied(g)
}
