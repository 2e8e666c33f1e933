// Package simctx bundles the process-wide state the timing core needs but
// does not own: the phase length and address-line width used to compute
// phaseEndCycle and cache line boundaries, the tid-indexed core dispatch
// table, and the phase-barrier rendezvous cores suspend on at the end of
// bbl(). The distilled core spec keeps this out of scope; this package is
// the concrete realisation a runnable rewrite needs, grounded on the
// akita-style TickingComponent event loop but adapted from event-driven to
// barrier-driven since a Core is pulled forward by trace events rather than
// pushed by a discrete-event engine's scheduler.
package simctx

import (
	"fmt"
	"sync"

	"github.com/sarchlab/memotime/bbl"
	"github.com/sarchlab/memotime/timing/core"
)

// SimulationContext owns the cores[tid] dispatch table, the TakeBarrier
// rendezvous, and the interval/total cycle counters that would otherwise
// live in process globals (source's zinfo and cores[] arrays).
type SimulationContext struct {
	phaseLength uint64
	lineBits    uint

	mu       sync.Mutex
	cond     *sync.Cond
	numCores int
	arrived  int
	gen      uint64

	cores   []core.Core
	funcs   []core.InstrFuncPtrs
	tidCid  []int
	migrate []int // pending forced migration target, or -1

	intervalCycles uint64
	totalCycles    uint64
}

// New builds a SimulationContext sized for numCores concurrently-scheduled
// cores, with the given phase length (in cycles) and cache line width (in
// address bits).
func New(numCores int, phaseLength uint64, lineBits uint) *SimulationContext {
	s := &SimulationContext{
		phaseLength: phaseLength,
		lineBits:    lineBits,
		numCores:    numCores,
		cores:       make([]core.Core, numCores),
		funcs:       make([]core.InstrFuncPtrs, numCores),
		tidCid:      make([]int, numCores),
		migrate:     make([]int, numCores),
	}
	s.cond = sync.NewCond(&s.mu)
	for tid := range s.tidCid {
		s.tidCid[tid] = tid
		s.migrate[tid] = -1
	}
	return s
}

// PhaseLength returns the configured barrier phase length.
func (s *SimulationContext) PhaseLength() uint64 { return s.phaseLength }

// LineBits returns the configured cache-line address-bit width.
func (s *SimulationContext) LineBits() uint { return s.lineBits }

// RegisterCore assigns c to tid, caching its callback set for the
// static-callback-indirection trampolines below, and Joins it to this
// context's barrier. cid defaults to tid. Join is called with the lock
// released, since it may call back into GetCid.
func (s *SimulationContext) RegisterCore(tid int, c core.Core) {
	s.mu.Lock()
	s.cores[tid] = c
	s.funcs[tid] = c.GetFuncPtrs()
	s.mu.Unlock()

	c.Join(s, tid)
}

// UnregisterCore Leaves tid's core from this context's barrier and clears
// its dispatch-table entry, the counterpart to RegisterCore's Join.
func (s *SimulationContext) UnregisterCore(tid int) {
	s.mu.Lock()
	c := s.cores[tid]
	s.cores[tid] = nil
	s.funcs[tid] = core.InstrFuncPtrs{}
	s.mu.Unlock()

	if c != nil {
		c.Leave()
	}
}

// CSimStart begins a contention-simulation epoch across every registered
// core, mirroring the source's global cSimStart() driving each Core's own
// cSimStart() in turn.
func (s *SimulationContext) CSimStart() {
	for _, c := range s.snapshotCores() {
		if c != nil {
			c.CSimStart()
		}
	}
}

// CSimEnd ends a contention-simulation epoch across every registered core.
func (s *SimulationContext) CSimEnd() {
	for _, c := range s.snapshotCores() {
		if c != nil {
			c.CSimEnd()
		}
	}
}

func (s *SimulationContext) snapshotCores() []core.Core {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Core(nil), s.cores...)
}

// GetCid implements core.Barrier: the cid a tid currently owns.
func (s *SimulationContext) GetCid(tid int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tidCid[tid]
}

// ScheduleMigration forces the next TakeBarrier call for tid to reassign it
// to newCid instead of releasing it back to its current one. Test/CLI hook
// for the load-balancing policy the source leaves external to the core.
func (s *SimulationContext) ScheduleMigration(tid, newCid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrate[tid] = newCid
}

// TakeBarrier implements core.Barrier: a rendezvous point. Every tid that
// reaches TakeBarrier for the current generation blocks until every other
// registered tid has also arrived, then all are released together. If a
// migration was scheduled for tid, it is applied and the new cid returned;
// otherwise the caller's cid is unchanged.
func (s *SimulationContext) TakeBarrier(tid, cid int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.gen
	s.arrived++
	if s.arrived == s.numCores {
		s.arrived = 0
		s.gen++
		s.cond.Broadcast()
	} else {
		for s.gen == gen {
			s.cond.Wait()
		}
	}

	newCid := cid
	if m := s.migrate[tid]; m != -1 {
		newCid = m
		s.migrate[tid] = -1
	}
	s.tidCid[tid] = newCid
	return newCid
}

// AccumulateCycles folds delta into both the current interval counter and
// the running total, standing in for the source's interval_*/total_*
// process globals.
func (s *SimulationContext) AccumulateCycles(delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervalCycles += delta
	s.totalCycles += delta
}

// ResetInterval zeroes the interval counter and returns its value prior to
// reset, the way a periodic stats backend drains a sample window.
func (s *SimulationContext) ResetInterval() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.intervalCycles
	s.intervalCycles = 0
	return v
}

// TotalCycles returns the cumulative cycle count across all intervals.
func (s *SimulationContext) TotalCycles() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCycles
}

// dispatch recovers the registered core's callback set for tid, panicking
// with a clear message rather than a nil-pointer fault if the front-end
// drives an unregistered thread id.
func (s *SimulationContext) dispatch(tid int) core.InstrFuncPtrs {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tid < 0 || tid >= len(s.funcs) || s.cores[tid] == nil {
		panic(fmt.Sprintf("simctx: no core registered for tid %d", tid))
	}
	return s.funcs[tid]
}

// FuncPtrs returns the tid-dispatching trampoline set the instrumentation
// front-end drives: each closure recovers the Core registered for the tid
// it is called with and forwards. This is the Go realisation of the
// source's static-callback indirection, which required literal C function
// pointers recovering a Core from a tid-indexed global table.
func (s *SimulationContext) FuncPtrs() core.InstrFuncPtrs {
	return core.InstrFuncPtrs{
		LoadFunc: func(tid int, addr uint64) {
			s.dispatch(tid).LoadFunc(tid, addr)
		},
		StoreFunc: func(tid int, addr uint64) {
			s.dispatch(tid).StoreFunc(tid, addr)
		},
		PredLoadFunc: func(tid int, addr uint64, pred bool) {
			s.dispatch(tid).PredLoadFunc(tid, addr, pred)
		},
		PredStoreFunc: func(tid int, addr uint64, pred bool) {
			s.dispatch(tid).PredStoreFunc(tid, addr, pred)
		},
		BblFunc: func(tid int, bblAddr uint64, info *bbl.BblInfo) {
			s.dispatch(tid).BblFunc(tid, bblAddr, info)
		},
		BranchFunc: func(tid int, pc uint64, taken bool, takenNpc, notTakenNpc uint64) {
			s.dispatch(tid).BranchFunc(tid, pc, taken, takenNpc, notTakenNpc)
		},
	}
}
