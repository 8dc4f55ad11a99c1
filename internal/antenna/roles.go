package antenna

import (
	"fmt"

	"github.com/signalsfoundry/mural/internal/errs"
)

// UserAntenna transmits mission data from a user vehicle.
type UserAntenna struct {
	*Antenna
	resourceIndex int
}

// NewUserAntenna builds the antenna of the user vehicle that owns
// collection resource resourceIndex.
func NewUserAntenna(designator, name string, capacity, resourceIndex int, opts ...Option) (*UserAntenna, error) {
	a, err := newAntenna(KindUser, designator, name, capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &UserAntenna{Antenna: a, resourceIndex: resourceIndex}, nil
}

func (u *UserAntenna) ResourceIndex() int { return u.resourceIndex }

// HasMissionLink reports whether any link carries mission data at t.
func (u *UserAntenna) HasMissionLink(t int) bool {
	for _, l := range u.links {
		if l.IsAllocatedMission(t) {
			return true
		}
	}
	return false
}

// MissionLinks returns the links carrying mission data at t.
func (u *UserAntenna) MissionLinks(t int) []*Link {
	var out []*Link
	for _, l := range u.links {
		if l.IsAllocatedMission(t) {
			out = append(out, l)
		}
	}
	return out
}

// RelayAntenna receives user links on a relay satellite.
type RelayAntenna struct {
	*Antenna
}

// NewRelayAntenna builds a relay antenna.
func NewRelayAntenna(designator, name string, capacity int, opts ...Option) (*RelayAntenna, error) {
	a, err := newAntenna(KindRelay, designator, name, capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &RelayAntenna{Antenna: a}, nil
}

// Facilities is the run-wide list of receive facility identifiers. An
// antenna's facility index is its position in this list.
type Facilities []string

// IndexOf returns the position of id.
func (f Facilities) IndexOf(id string) (int, bool) {
	for i, v := range f {
		if v == id {
			return i, true
		}
	}
	return -1, false
}

// ReceiveFacilityAntenna receives user links at a ground facility.
type ReceiveFacilityAntenna struct {
	*Antenna
	facility      string
	facilityIndex int
	stateOfHealth bool
}

// NewReceiveFacilityAntenna builds a ground antenna for a known facility.
// stateOfHealth marks contacts through it as state-of-health contacts.
func NewReceiveFacilityAntenna(designator, name string, capacity int, facilities Facilities, facility string, stateOfHealth bool, opts ...Option) (*ReceiveFacilityAntenna, error) {
	a, err := newAntenna(KindReceiveFacility, designator, name, capacity, opts...)
	if err != nil {
		return nil, err
	}
	idx, ok := facilities.IndexOf(facility)
	if !ok {
		return nil, errs.NewInputError("ReceiveFacilityAntenna", "New", fmt.Sprintf("unknown receive facility %q", facility))
	}
	return &ReceiveFacilityAntenna{Antenna: a, facility: facility, facilityIndex: idx, stateOfHealth: stateOfHealth}, nil
}

func (r *ReceiveFacilityAntenna) Facility() string    { return r.facility }
func (r *ReceiveFacilityAntenna) FacilityIndex() int  { return r.facilityIndex }
func (r *ReceiveFacilityAntenna) StateOfHealth() bool { return r.stateOfHealth }
