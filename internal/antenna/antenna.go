package antenna

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalsfoundry/mural/internal/errs"
)

// Kind distinguishes the antenna roles.
type Kind int

const (
	KindUser Kind = iota
	KindRelay
	KindReceiveFacility
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "USER"
	case KindRelay:
		return "RELAY"
	case KindReceiveFacility:
		return "RECEIVE_FACILITY"
	}
	return "UNKNOWN"
}

// ParseKind maps a configuration string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "user":
		return KindUser, nil
	case "relay":
		return KindRelay, nil
	case "receive_facility", "ground":
		return KindReceiveFacility, nil
	}
	return 0, fmt.Errorf("unknown antenna kind %q", s)
}

// Timing is the number of steps spent in the transitional states at either
// end of a contact.
type Timing struct {
	PrepSteps        int
	AcquisitionSteps int
	DropLinkSteps    int
}

// Antenna holds capacity and link allocation state for one antenna of an
// element. The role-specific types embed it.
type Antenna struct {
	designator string
	name       string
	kind       Kind

	capacity        int
	capacityPerStep []int
	timing          Timing
	constraints     *LinkConstraints

	links       []*Link
	assignments [][]int
}

// Option configures optional Antenna state.
type Option func(*Antenna)

// WithCapacityPerStep overrides the capacity for the leading time steps.
func WithCapacityPerStep(capacity []int) Option {
	return func(a *Antenna) { a.capacityPerStep = append([]int(nil), capacity...) }
}

// WithTiming sets the transitional step counts.
func WithTiming(t Timing) Option {
	return func(a *Antenna) { a.timing = t }
}

// WithConstraints sets the link constraints.
func WithConstraints(lc *LinkConstraints) Option {
	return func(a *Antenna) { a.constraints = lc }
}

func newAntenna(kind Kind, designator, name string, capacity int, opts ...Option) (*Antenna, error) {
	col := errs.NewCollector(kind.String()+"Antenna", "New")
	col.Require(designator != "", "antenna designator")
	if capacity < 0 {
		col.Addf("antenna %s capacity %d is negative", designator, capacity)
	}
	a := &Antenna{designator: designator, name: name, kind: kind, capacity: capacity}
	for _, opt := range opts {
		opt(a)
	}
	for t, c := range a.capacityPerStep {
		if c < 0 {
			col.Addf("antenna %s capacity at step %d is negative", designator, t)
		}
	}
	if a.timing.PrepSteps < 0 || a.timing.AcquisitionSteps < 0 || a.timing.DropLinkSteps < 0 {
		col.Addf("antenna %s timing steps must not be negative", designator)
	}
	if err := col.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Antenna) Designator() string            { return a.designator }
func (a *Antenna) Name() string                  { return a.name }
func (a *Antenna) Kind() Kind                    { return a.kind }
func (a *Antenna) Timing() Timing                { return a.timing }
func (a *Antenna) Links() []*Link                { return a.links }
func (a *Antenna) Constraints() *LinkConstraints { return a.constraints }
func (a *Antenna) AssetAssignments() [][]int     { return a.assignments }

// AddLink attaches a link to the antenna. Links keep insertion order.
func (a *Antenna) AddLink(l *Link) { a.links = append(a.links, l) }

// SortLinks orders links by partner designator for deterministic passes.
func (a *Antenna) SortLinks() {
	sort.SliceStable(a.links, func(i, j int) bool {
		return a.links[i].String() < a.links[j].String()
	})
}

// GetCapacity returns the capacity at time index t.
func (a *Antenna) GetCapacity(t int) int {
	if t >= 0 && t < len(a.capacityPerStep) {
		return a.capacityPerStep[t]
	}
	return a.capacity
}

// MaximumCapacity returns the largest capacity at any step.
func (a *Antenna) MaximumCapacity() int {
	m := a.capacity
	for _, c := range a.capacityPerStep {
		if c > m {
			m = c
		}
	}
	return m
}

// NumberOfAllocated counts links allocated at t. Prep-only allocations are
// skipped when excludePrep is set.
func (a *Antenna) NumberOfAllocated(t int, excludePrep bool) int {
	n := 0
	for _, l := range a.links {
		if !l.IsAllocated(t) || (excludePrep && l.IsPrepOnly(t)) {
			continue
		}
		n++
	}
	return n
}

// CheckCapacityFull reports whether every slot is taken at t.
func (a *Antenna) CheckCapacityFull(t int) bool {
	return a.NumberOfAllocated(t, false) >= a.GetCapacity(t)
}

// CheckReceiveCapacityFull counts only links received by this antenna,
// ignoring transmit-prep-only allocations.
func (a *Antenna) CheckReceiveCapacityFull(t int) bool {
	return a.countSide(t, func(l *Link) bool { return l.receive == a.designator }, TransmitPrep) >= a.GetCapacity(t)
}

// CheckTransmitCapacityFull counts only links transmitted by this antenna,
// ignoring receive-prep-only allocations.
func (a *Antenna) CheckTransmitCapacityFull(t int) bool {
	return a.countSide(t, func(l *Link) bool { return l.transmit == a.designator }, ReceivePrep) >= a.GetCapacity(t)
}

func (a *Antenna) countSide(t int, side func(*Link) bool, ignoreOnly AllocationStatus) int {
	n := 0
	for _, l := range a.links {
		s := l.Status(t)
		if s == NotAllocated || s == ignoreOnly || !side(l) {
			continue
		}
		n++
	}
	return n
}

func (a *Antenna) holds(l *Link) bool {
	for _, own := range a.links {
		if own == l {
			return true
		}
	}
	return false
}

// AllocateLink adds status to the link at t on this antenna alone.
func (a *Antenna) AllocateLink(l *Link, t int, status AllocationStatus) error {
	return AllocateLink(l, t, status, a)
}

// AllocateLink adds status to the link at t once every antenna at either
// end has room. A link already allocated at t takes no further slot.
func AllocateLink(l *Link, t int, status AllocationStatus, ends ...*Antenna) error {
	if err := errs.CheckIndex("Antenna", "AllocateLink", "time index", t, l.NumberOfTimeSteps()); err != nil {
		return err
	}
	if status == NotAllocated {
		return nil
	}
	if !l.IsAllocated(t) {
		for _, a := range ends {
			if !a.holds(l) {
				return fmt.Errorf("antenna %s does not carry link %s", a.designator, l)
			}
			if a.CheckCapacityFull(t) {
				return fmt.Errorf("%w: %s at step %d (capacity %d)", errs.ErrCapacityExceeded, a.designator, t, a.GetCapacity(t))
			}
		}
	}
	l.addStatus(t, status)
	return nil
}

// DeallocateAll clears every link allocation and any asset assignment.
func (a *Antenna) DeallocateAll() {
	for _, l := range a.links {
		for t := range l.status {
			l.status[t] = NotAllocated
		}
	}
	a.assignments = nil
}
