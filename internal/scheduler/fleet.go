package scheduler

import (
	"github.com/signalsfoundry/mural/core"
	"github.com/signalsfoundry/mural/internal/antenna"
	"github.com/signalsfoundry/mural/model"
	"github.com/signalsfoundry/mural/timectrl"
)

// Vehicle is a collecting user vehicle and the antenna that carries its
// mission data.
type Vehicle struct {
	Element *model.Element
	Journey core.Journey
	Antenna *antenna.UserAntenna

	// Sensors lists the indices of the sensors the vehicle carries; empty
	// means every sensor.
	Sensors []int
}

func (v *Vehicle) carries(sensorIndex int) bool {
	if len(v.Sensors) == 0 {
		return true
	}
	for _, s := range v.Sensors {
		if s == sensorIndex {
			return true
		}
	}
	return false
}

// Receiver is a relay or ground antenna able to receive user links.
type Receiver struct {
	Element       *model.Element
	Journey       core.Journey
	Antenna       *antenna.Antenna
	StateOfHealth bool
}

// Fleet groups every element taking part in a run.
type Fleet struct {
	Vehicles  []*Vehicle
	Receivers []*Receiver
}

// NumberOfResources is the number of collecting vehicles.
func (f *Fleet) NumberOfResources() int { return len(f.Vehicles) }

// BuildLinks creates one link per vehicle/receiver pair, attaches it to
// both antennas and samples its visibility. A step is in view when both
// ends accept the geometry seen from the receiver.
func (f *Fleet) BuildLinks(tp *timectrl.TimePiece) []*antenna.Link {
	var links []*antenna.Link
	for _, v := range f.Vehicles {
		for _, r := range f.Receivers {
			link := antenna.NewLink(v.Antenna.Designator(), r.Antenna.Designator(), tp.GetNumberOfTimeSteps())
			vehicle, receiver := v, r
			accept := func(g core.Geometry) bool {
				return receiver.Antenna.Constraints().Satisfied(vehicle.Element.Designator, g) &&
					vehicle.Antenna.Constraints().Satisfied(receiver.Element.Designator, g)
			}
			link.SetInview(core.LinkInview(tp, r.Journey, v.Journey, accept))
			v.Antenna.AddLink(link)
			r.Antenna.AddLink(link)
			links = append(links, link)
		}
	}
	for _, v := range f.Vehicles {
		v.Antenna.SortLinks()
	}
	for _, r := range f.Receivers {
		r.Antenna.SortLinks()
	}
	return links
}

func (f *Fleet) receiverFor(designator string) *Receiver {
	for _, r := range f.Receivers {
		if r.Antenna.Designator() == designator {
			return r
		}
	}
	return nil
}
