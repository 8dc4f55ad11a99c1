package antenna

import "strings"

// AllocationStatus is a set of overlapping allocation flags held by a link
// at one time step.
type AllocationStatus uint16

const (
	Acquisition AllocationStatus = 1 << iota
	TransmitPrep
	ReceivePrep
	Mission
	Buffer
	StateOfHealth
	DropLink
	Overhead
	NarrowbandContact
)

// NotAllocated is the empty status.
const NotAllocated AllocationStatus = 0

var statusNames = []struct {
	flag AllocationStatus
	name string
}{
	{Acquisition, "ACQ"},
	{TransmitPrep, "TX_PREP"},
	{ReceivePrep, "RX_PREP"},
	{Mission, "MISSION"},
	{Buffer, "BUFFER"},
	{StateOfHealth, "SOH"},
	{DropLink, "DROP"},
	{Overhead, "OVERHEAD"},
	{NarrowbandContact, "NARROWBAND"},
}

func (s AllocationStatus) String() string {
	if s == NotAllocated {
		return "NONE"
	}
	var parts []string
	for _, n := range statusNames {
		if s&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether every flag in f is set.
func (s AllocationStatus) Has(f AllocationStatus) bool { return s&f == f }

const prepFlags = TransmitPrep | ReceivePrep

// ContactWindow is an inclusive run of in-view time steps.
type ContactWindow struct {
	Start int
	End   int
}

// Steps returns the window length in time steps.
func (w ContactWindow) Steps() int { return w.End - w.Start + 1 }

// Link is a communication opportunity from a transmitting element to a
// receiving element, with per-step visibility and allocation state.
type Link struct {
	transmit string
	receive  string

	inview []bool
	status []AllocationStatus
}

// NewLink creates an unallocated, never-in-view link.
func NewLink(transmitDesignator, receiveDesignator string, numberOfTimeSteps int) *Link {
	return &Link{
		transmit: transmitDesignator,
		receive:  receiveDesignator,
		inview:   make([]bool, numberOfTimeSteps),
		status:   make([]AllocationStatus, numberOfTimeSteps),
	}
}

func (l *Link) GetTransmitDesignator() string { return l.transmit }
func (l *Link) GetReceiveDesignator() string  { return l.receive }
func (l *Link) NumberOfTimeSteps() int        { return len(l.status) }
func (l *Link) String() string                { return l.transmit + "->" + l.receive }

func (l *Link) valid(t int) bool { return t >= 0 && t < len(l.status) }

// SetInview replaces the per-step visibility. Extra entries are ignored.
func (l *Link) SetInview(inview []bool) {
	for t := range l.inview {
		l.inview[t] = t < len(inview) && inview[t]
	}
}

// SetInviewAt sets visibility for one step.
func (l *Link) SetInviewAt(t int, inview bool) {
	if l.valid(t) {
		l.inview[t] = inview
	}
}

func (l *Link) IsInview(t int) bool { return l.valid(t) && l.inview[t] }

// ContactWindows returns every maximal run of in-view steps in order.
func (l *Link) ContactWindows() []ContactWindow {
	var out []ContactWindow
	start := -1
	for t, v := range l.inview {
		switch {
		case v && start < 0:
			start = t
		case !v && start >= 0:
			out = append(out, ContactWindow{Start: start, End: t - 1})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, ContactWindow{Start: start, End: len(l.inview) - 1})
	}
	return out
}

// Status returns the allocation flags at t.
func (l *Link) Status(t int) AllocationStatus {
	if !l.valid(t) {
		return NotAllocated
	}
	return l.status[t]
}

func (l *Link) addStatus(t int, s AllocationStatus) { l.status[t] |= s }

// Deallocate clears every flag at t.
func (l *Link) Deallocate(t int) {
	if l.valid(t) {
		l.status[t] = NotAllocated
	}
}

func (l *Link) IsAllocated(t int) bool { return l.Status(t) != NotAllocated }

func (l *Link) IsAllocatedAcquisition(t int) bool       { return l.Status(t)&Acquisition != 0 }
func (l *Link) IsAllocatedTransmitPrep(t int) bool      { return l.Status(t)&TransmitPrep != 0 }
func (l *Link) IsAllocatedReceivePrep(t int) bool       { return l.Status(t)&ReceivePrep != 0 }
func (l *Link) IsAllocatedMission(t int) bool           { return l.Status(t)&Mission != 0 }
func (l *Link) IsAllocatedBuffer(t int) bool            { return l.Status(t)&Buffer != 0 }
func (l *Link) IsAllocatedStateOfHealth(t int) bool     { return l.Status(t)&StateOfHealth != 0 }
func (l *Link) IsAllocatedDropLink(t int) bool          { return l.Status(t)&DropLink != 0 }
func (l *Link) IsAllocatedOverhead(t int) bool          { return l.Status(t)&Overhead != 0 }
func (l *Link) IsAllocatedNarrowbandContact(t int) bool { return l.Status(t)&NarrowbandContact != 0 }

// IsPrepOnly reports an allocation made of prep flags alone.
func (l *Link) IsPrepOnly(t int) bool {
	s := l.Status(t)
	return s != NotAllocated && s&^prepFlags == 0
}

// IsTransitioning reports acquisition or drop-link steps, which the best
// fit assignment marks with a negative asset number.
func (l *Link) IsTransitioning(t int) bool {
	return l.Status(t)&(Acquisition|DropLink) != 0
}

// AllocatedSteps counts the steps with any allocation.
func (l *Link) AllocatedSteps() int {
	n := 0
	for _, s := range l.status {
		if s != NotAllocated {
			n++
		}
	}
	return n
}
