package antenna

import (
	"fmt"

	"github.com/signalsfoundry/mural/internal/errs"
)

// MakeBestFitAllocatedAssetAssignments packs the allocated links of the
// antenna into numbered capacity slots for every time step. The result is
// indexed [timeIndex][slot]; a slot holds 0 when idle, the asset number
// (link position + 1) for a steady allocation and its negation while the
// asset is acquiring or dropping.
//
// A running asset keeps its slot. A returning asset takes back the slot it
// last held when free. A free slot is held for its last asset when that
// asset comes back within switchThreshold idle steps, unless no other slot
// is free.
func (a *Antenna) MakeBestFitAllocatedAssetAssignments(numberOfTimeSteps, switchThreshold int) ([][]int, error) {
	width := a.MaximumCapacity()
	assign := make([][]int, numberOfTimeSteps)
	lastHolder := make([]int, width)
	lastUsed := make([]int, width)
	for s := range lastUsed {
		lastUsed[s] = -1
	}
	running := map[int]int{}

	for t := 0; t < numberOfTimeSteps; t++ {
		assign[t] = make([]int, width)
		capacity := a.GetCapacity(t)
		if capacity > width {
			capacity = width
		}
		occupied := make([]bool, width)
		next := map[int]int{}

		var pending []int
		for i, l := range a.links {
			if l.IsAllocated(t) {
				pending = append(pending, i+1)
			}
		}
		if len(pending) > capacity {
			return nil, fmt.Errorf("%w: %s has %d allocated links at step %d (capacity %d)",
				errs.ErrCapacityExceeded, a.designator, len(pending), t, capacity)
		}

		place := func(asset, slot int) {
			value := asset
			if a.links[asset-1].IsTransitioning(t) {
				value = -asset
			}
			assign[t][slot] = value
			occupied[slot] = true
			lastHolder[slot] = asset
			lastUsed[slot] = t
			next[asset] = slot
		}

		pending = a.placeWhere(pending, capacity, occupied, place, func(asset, slot int) bool {
			s, ok := running[asset]
			return ok && s == slot
		})
		pending = a.placeWhere(pending, capacity, occupied, place, func(asset, slot int) bool {
			return lastHolder[slot] == asset
		})
		pending = a.placeWhere(pending, capacity, occupied, place, func(asset, slot int) bool {
			return !a.reserved(slot, t, lastHolder, lastUsed, switchThreshold)
		})
		pending = a.placeWhere(pending, capacity, occupied, place, func(int, int) bool { return true })
		if len(pending) > 0 {
			return nil, fmt.Errorf("%w: %s could not place asset %d at step %d",
				errs.ErrCapacityExceeded, a.designator, pending[0], t)
		}
		running = next
	}
	a.assignments = assign
	return assign, nil
}

// placeWhere places each pending asset into the first free slot accepted
// by ok and returns the assets left over.
func (a *Antenna) placeWhere(pending []int, capacity int, occupied []bool, place func(asset, slot int), ok func(asset, slot int) bool) []int {
	var left []int
	for _, asset := range pending {
		placed := false
		for slot := 0; slot < capacity; slot++ {
			if occupied[slot] || !ok(asset, slot) {
				continue
			}
			place(asset, slot)
			placed = true
			break
		}
		if !placed {
			left = append(left, asset)
		}
	}
	return left
}

// reserved reports whether slot is being held for the asset that last used
// it, which returns within switchThreshold idle steps.
func (a *Antenna) reserved(slot, t int, lastHolder, lastUsed []int, switchThreshold int) bool {
	holder := lastHolder[slot]
	if holder == 0 || switchThreshold <= 0 {
		return false
	}
	link := a.links[holder-1]
	if link.IsAllocated(t) {
		return false
	}
	for u := t + 1; u < link.NumberOfTimeSteps(); u++ {
		if link.IsAllocated(u) {
			return u-lastUsed[slot]-1 <= switchThreshold
		}
	}
	return false
}
