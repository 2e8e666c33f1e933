package core

import "fmt"

// WindowStructure models the instruction window's per-cycle execution-port
// scheduling: each cycle, each port bit in a uop's portMask can host at
// most one in-flight uop. It is the structural-hazard helper IssueModel's
// dispatch step consults before committing to a dispatch cycle.
//
// No reference implementation survived into the retrieved corpus (see
// DESIGN.md); the port-occupancy bitmap and the horizon-overflow hard
// error are built directly from the behavioural contract in the
// specification text and IssueModel's call sites.
type WindowStructure struct {
	horizon  uint64
	capacity int

	// occupancy maps an absolute cycle to the bitmask of ports already
	// claimed in that cycle. Entries older than curCycle-horizon are
	// pruned lazily by advancePos/longAdvance.
	occupancy map[uint64]uint64
}

// NewWindowStructure creates a scheduler with the given sliding horizon
// (in cycles) and capacity. The capacity is stored but Schedule does not
// enforce it.
func NewWindowStructure(horizon uint64, capacity int) *WindowStructure {
	return &WindowStructure{
		horizon:   horizon,
		capacity:  capacity,
		occupancy: make(map[uint64]uint64),
	}
}

// Schedule finds the earliest cycle ≥ minCycle at which some port in
// portMask is free for extraSlots+1 consecutive cycles, claims that port
// for the span, and returns the (possibly advanced) curCycle together
// with the scheduled cycle. curCycle advances when minCycle would
// otherwise fall outside the sliding horizon.
func (w *WindowStructure) Schedule(curCycle, minCycle, portMask uint64, extraSlots uint64) (newCurCycle, scheduled uint64) {
	candidate := minCycle
	if curCycle > candidate {
		candidate = curCycle
	}

	for attempts := uint64(0); ; attempts++ {
		if attempts > 4*w.horizon+1024 {
			panic(fmt.Errorf("windowstructure: scheduling past the instruction window horizon (candidate=%d, curCycle=%d, horizon=%d)",
				candidate, curCycle, w.horizon))
		}

		if candidate > curCycle+w.horizon {
			curCycle = candidate - w.horizon
		}

		if w.spanFree(candidate, portMask, extraSlots) {
			w.claim(candidate, portMask, extraSlots)
			return curCycle, candidate
		}
		candidate++
	}
}

func (w *WindowStructure) spanFree(from, portMask, extraSlots uint64) bool {
	for c := from; c <= from+extraSlots; c++ {
		busy := w.occupancy[c]
		if portMask&^busy == 0 {
			return false
		}
	}
	return true
}

func (w *WindowStructure) claim(from, portMask, extraSlots uint64) {
	for c := from; c <= from+extraSlots; c++ {
		busy := w.occupancy[c]
		free := portMask &^ busy
		lsb := free & -free
		w.occupancy[c] = busy | lsb
	}
}

// AdvancePos moves the window forward by one cycle, pruning occupancy
// records that have fallen outside the sliding horizon.
func (w *WindowStructure) AdvancePos(curCycle uint64) uint64 {
	next := curCycle + 1
	w.prune(next)
	return next
}

// LongAdvance bulk-advances from curCycle to target, pruning stale
// occupancy in one pass rather than cycle by cycle.
func (w *WindowStructure) LongAdvance(curCycle, target uint64) uint64 {
	w.prune(target)
	return target
}

func (w *WindowStructure) prune(curCycle uint64) {
	if curCycle <= w.horizon {
		return
	}
	threshold := curCycle - w.horizon
	for c := range w.occupancy {
		if c < threshold {
			delete(w.occupancy, c)
		}
	}
}
