package core

import (
	"github.com/sarchlab/memotime/bbl"
	"github.com/sarchlab/memotime/tage"
)

// FetchModel times frontend fetch and branch prediction against an L1I
// filter cache; it carries no LSU state and does not advance curCycle from
// a uop's dispatch cycle.
type FetchModel struct {
	base

	l1i        FilterCache
	branchPred *tage.Predictor

	branchPc            uint64
	branchTaken         bool
	branchTakenNpc      uint64
	branchNotTakenNpc   uint64

	lineBits uint

	mispredBranches uint64
	profFetchStalls uint64
}

// NewFetchModel creates a FetchModel bound to thread tid and filter cache
// l1i.
func NewFetchModel(tid int, params OOOParams, l1i FilterCache) *FetchModel {
	return &FetchModel{
		base:       newBase(tid, params),
		l1i:        l1i,
		branchPred: tage.NewPredictor(tage.Config{NumTables: params.TageNumTables, IndexSize: params.TageIndexSize}),
		lineBits:   params.LineBits,
	}
}

// Bbl is the central hot path (spec §4.3/§4.5).
func (f *FetchModel) Bbl(bblAddr uint64, info *bbl.BblInfo) {
	if f.prevBbl == nil {
		f.prevBbl = info
		f.prevBblAddr = bblAddr
		return
	}

	prev := f.prevBbl
	f.prevBbl = info
	f.prevBblAddr = bblAddr

	prevDecCycle := uint64(0)
	lastCommitCycle := f.curCycle

	for i := range prev.Bbl.Uops {
		u := &prev.Bbl.Uops[i]

		f.decodeCycle += u.DecCycle - prevDecCycle
		prevDecCycle = u.DecCycle
		f.curCycle = maxU64(f.curCycle, f.decodeCycle)

		f.scoreboard.Sentinel(f.curCycle)
		c0 := f.scoreboard.ReadyCycle(u.Rs[0])
		c1 := f.scoreboard.ReadyCycle(u.Rs[1])
		cOps := maxU64(c0, c1)

		dispatchCycle := maxU64(cOps, f.curCycle+(DispatchStage-IssueStage))
		commitCycle := dispatchCycle + u.Lat

		f.writeDests(u, commitCycle)
		lastCommitCycle = commitCycle
	}

	f.instrs += prev.Instrs

	f.fetchFrontend(bblAddr, info, lastCommitCycle)

	f.takeBarrierLoop()
}

// fetchFrontend implements spec §4.5's frontend step: gate on the pending
// branch's prediction, simulate wrong-path fetches on a misprediction, then
// fetch the BBL's own lines.
func (f *FetchModel) fetchFrontend(bblAddr uint64, info *bbl.BblInfo, lastCommitCycle uint64) {
	fetchCycle := f.decodeCycle - (DecodeStage - FetchStage)
	lineSize := uint64(1) << f.lineBits

	if f.branchPc != 0 {
		target := f.branchNotTakenNpc
		if f.branchTaken {
			target = f.branchTakenNpc
		}
		correct := f.branchPred.Predict(f.branchPc, f.branchTaken, target)
		if !correct {
			f.mispredBranches++
			f.simulateWrongPathFetch(lineSize, lastCommitCycle)
			fetchCycle = lastCommitCycle
		}
	}
	f.branchPc = 0

	step := lineSize
	if f.params.FetchBytesPerCycle != 0 && uint64(f.params.FetchBytesPerCycle) < step {
		step = uint64(f.params.FetchBytesPerCycle)
	}
	for addr := bblAddr; addr < bblAddr+info.Bytes; addr += step {
		fetchLat := f.l1i.Load(addr, f.curCycle) - f.curCycle
		f.cRec.Record(f.curCycle, f.curCycle, f.curCycle+fetchLat)
		fetchCycle += fetchLat
	}

	f.decodeCycle++
	if fetchCycle+(DecodeStage-FetchStage) > f.decodeCycle {
		f.profFetchStalls += fetchCycle + (DecodeStage - FetchStage) - f.decodeCycle
		f.decodeCycle = fetchCycle + (DecodeStage - FetchStage)
	}
}

// simulateWrongPathFetch models the speculative-path instruction fetches
// that occur before a misprediction is discovered: up to ceil(5*64/lineSize)
// cache lines, each an L1I request timed against l1i, stopping early once
// the response would land after the mispredicting uop's own commit.
func (f *FetchModel) simulateWrongPathFetch(lineSize, lastCommitCycle uint64) {
	wrongPathAddr := f.branchTakenNpc
	if f.branchTaken {
		wrongPathAddr = f.branchNotTakenNpc
	}

	maxLines := (5*64 + lineSize - 1) / lineSize
	bytesPerCycle := uint64(f.params.FetchBytesPerCycle)
	if bytesPerCycle == 0 {
		bytesPerCycle = 1
	}

	reqCycle := f.curCycle
	for i := uint64(0); i < maxLines; i++ {
		fetchLat := f.l1i.Load(wrongPathAddr+lineSize*i, f.curCycle) - f.curCycle
		f.cRec.Record(f.curCycle, f.curCycle, f.curCycle+fetchLat)
		respCycle := reqCycle + fetchLat
		if respCycle > lastCommitCycle {
			break
		}
		reqCycle = respCycle + lineSize/bytesPerCycle
	}
}

// Load is a no-op: FetchModel carries no LSU state.
func (f *FetchModel) Load(uint64) {}

// Store is a no-op: FetchModel carries no LSU state.
func (f *FetchModel) Store(uint64) {}

// PredLoad is a no-op: FetchModel carries no LSU state.
func (f *FetchModel) PredLoad(uint64, bool) {}

// PredStore is a no-op: FetchModel carries no LSU state.
func (f *FetchModel) PredStore(uint64, bool) {}

// Branch records the pending conditional branch that terminates the
// previous BBL, consumed by the next Bbl's frontend step.
func (f *FetchModel) Branch(pc uint64, taken bool, takenNpc, notTakenNpc uint64) {
	f.branchPc = pc
	f.branchTaken = taken
	f.branchTakenNpc = takenNpc
	f.branchNotTakenNpc = notTakenNpc
}

// Join binds the core to barrier under tid, then advances curCycle to
// whatever cycle the contention recorder says it must catch up to.
func (f *FetchModel) Join(barrier Barrier, tid int) {
	target := f.join(barrier, tid)
	if target > f.curCycle {
		f.Advance(target)
	}
}

// Leave releases the core's barrier binding.
func (f *FetchModel) Leave() { f.leave() }

// GetCycles reports contention-relevant cycles as of curCycle.
func (f *FetchModel) GetCycles() uint64 { return f.getCycles() }

// CurCycle exposes the issue-centric cycle counter, for tests that need to
// observe it directly rather than through the contention-bounded GetCycles.
func (f *FetchModel) CurCycle() uint64 { return f.curCycle }

// GetInstrs reports retired instructions.
func (f *FetchModel) GetInstrs() uint64 { return f.getInstrs() }

// GetPhaseCycles reports curCycle modulo the phase length.
func (f *FetchModel) GetPhaseCycles() uint64 { return f.getPhaseCycles() }

// ContextSwitch cancels any deferred BBL and any pending branch and, on
// gid == -1, invalidates the filter cache's virtually-addressed tags.
func (f *FetchModel) ContextSwitch(gid int) {
	f.contextSwitchBase(gid)
	if gid == -1 {
		f.branchPc = 0
		if f.l1i != nil {
			f.l1i.ContextSwitch()
		}
	}
}

// GetFuncPtrs returns the callback set this model drives.
func (f *FetchModel) GetFuncPtrs() InstrFuncPtrs {
	return InstrFuncPtrs{
		LoadFunc:      func(_ int, addr uint64) { f.Load(addr) },
		StoreFunc:     func(_ int, addr uint64) { f.Store(addr) },
		PredLoadFunc:  func(_ int, addr uint64, pred bool) { f.PredLoad(addr, pred) },
		PredStoreFunc: func(_ int, addr uint64, pred bool) { f.PredStore(addr, pred) },
		BblFunc:       func(_ int, bblAddr uint64, info *bbl.BblInfo) { f.Bbl(bblAddr, info) },
		BranchFunc: func(_ int, pc uint64, taken bool, takenNpc, notTakenNpc uint64) {
			f.Branch(pc, taken, takenNpc, notTakenNpc)
		},
	}
}

// CSimStart begins a contention-simulation epoch, advancing curCycle to
// whatever cycle the contention recorder says this core must catch up to.
func (f *FetchModel) CSimStart() {
	target := f.cRec.CSimStart(f.curCycle)
	if target > f.curCycle {
		f.Advance(target)
	}
}

// CSimEnd ends a contention-simulation epoch, advancing curCycle the same
// way CSimStart does.
func (f *FetchModel) CSimEnd() {
	target := f.cRec.CSimEnd(f.curCycle)
	if target > f.curCycle {
		f.Advance(target)
	}
}

// GetEventRecorder exposes the recorder bridging to the global contention
// model.
func (f *FetchModel) GetEventRecorder() *OOOCoreRecorder { return f.cRec }

// Advance jumps curCycle/decodeCycle forward to target.
func (f *FetchModel) Advance(target uint64) { f.advanceBase(target) }

// FetchModelStats is the statistics contract FetchModel publishes.
type FetchModelStats struct {
	Cycles          uint64
	Icount          uint64
	MispredBranches uint64
	FetchStalls     uint64
}

// Stats returns the current statistics snapshot.
func (f *FetchModel) Stats() FetchModelStats {
	return FetchModelStats{
		Cycles:          f.getCycles(),
		Icount:          f.instrs,
		MispredBranches: f.mispredBranches,
		FetchStalls:     f.profFetchStalls,
	}
}
