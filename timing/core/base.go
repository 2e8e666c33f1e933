package core

import "github.com/sarchlab/memotime/bbl"

// base holds the per-thread state shared by every timing model: the
// issue-centric and decode clocks, the register scoreboard, the deferred
// BBL and its memory-op address buffers, retired-instruction accounting,
// the store-ordering watermarks, and the contention recorder.
type base struct {
	tid int

	curCycle     uint64
	decodeCycle  uint64
	phaseEndCycle uint64

	prevBbl     *bbl.BblInfo
	prevBblAddr uint64

	loadAddrs  [maxMemOps]uint64
	storeAddrs [maxMemOps]uint64
	loads      int
	stores     int

	instrs uint64

	lastStoreAddrCommitCycle uint64
	lastStoreCommitCycle     uint64

	scoreboard Scoreboard

	cRec *OOOCoreRecorder

	barrier Barrier
	cid     int

	params OOOParams
}

func newBase(tid int, params OOOParams) base {
	return base{
		tid:         tid,
		decodeCycle: DecodeStage,
		cRec:        NewOOOCoreRecorder(tid, nil),
		params:      params,
	}
}

// join binds the core to barrier under tid and returns the cycle the
// caller's contention recorder says this core must catch up to before
// resuming (== b.curCycle when there is nothing to catch up to). The
// concrete model's Join wraps this and conditionally calls its own
// Advance, mirroring the source's join()/notifyJoin() pairing.
func (b *base) join(barrier Barrier, tid int) uint64 {
	b.barrier = barrier
	b.tid = tid
	if barrier != nil {
		b.cid = barrier.GetCid(tid)
	}
	b.phaseEndCycle = b.curCycle + b.params.PhaseLength
	return b.cRec.NotifyJoin(b.curCycle)
}

func (b *base) leave() {
	b.cRec.NotifyLeave(b.curCycle)
	b.barrier = nil
}

func (b *base) getCycles() uint64 { return b.cRec.GetUnhaltedCycles(b.curCycle) }

func (b *base) getInstrs() uint64 { return b.instrs }

func (b *base) getPhaseCycles() uint64 {
	if b.params.PhaseLength == 0 {
		return b.curCycle
	}
	return b.curCycle % b.params.PhaseLength
}

// contextSwitchBase cancels any deferred BBL on a -1 ("leaving the core
// entirely") context switch. No partial BBL simulation is ever re-run.
func (b *base) contextSwitchBase(gid int) {
	if gid == -1 {
		b.prevBbl = nil
		b.loads = 0
		b.stores = 0
	}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// recordLoad and recordStore buffer addr (or the predicated-false sentinel) in program
// order, ahead of the Bbl callback that will consume it.
func (b *base) recordLoad(addr uint64)  { b.loadAddrs[b.loads] = addr; b.loads++ }
func (b *base) recordStore(addr uint64) { b.storeAddrs[b.stores] = addr; b.stores++ }

// takeBarrierLoop is the one suspension point a core may yield at: the end
// of bbl(), looping while curCycle has crossed phaseEndCycle. It returns
// false once TakeBarrier signals the caller no longer owns this core.
func (b *base) takeBarrierLoop() bool {
	for b.curCycle > b.phaseEndCycle {
		b.phaseEndCycle += b.params.PhaseLength
		if b.barrier == nil {
			continue
		}
		newCid := b.barrier.TakeBarrier(b.tid, b.cid)
		if newCid != b.cid {
			b.cid = newCid
			return false
		}
	}
	return true
}

// advanceBase implements CacheModel/FetchModel's advance(target):
// decodeCycle += target - curCycle; curCycle = target.
func (b *base) advanceBase(target uint64) {
	b.decodeCycle += target - b.curCycle
	b.curCycle = target
}

// decodeUop performs the shared decode-delay / scoreboard-read /
// base-dispatch-cycle computation (spec §4.3 step 2a-2d), common to all
// three models. It returns the dispatch cycle before any per-type LSU
// adjustment.
func (b *base) decodeUop(u *bbl.DynUop, prevDecCycle uint64) (dispatchCycle, cOps uint64) {
	b.decodeCycle += u.DecCycle - prevDecCycle
	b.curCycle = maxU64(b.curCycle, b.decodeCycle)

	b.scoreboard.Sentinel(b.curCycle)
	c0 := b.scoreboard.ReadyCycle(u.Rs[0])
	c1 := b.scoreboard.ReadyCycle(u.Rs[1])
	cOps = maxU64(c0, c1)

	dispatchCycle = maxU64(cOps, b.curCycle+(DispatchStage-IssueStage))
	return dispatchCycle, cOps
}

func (b *base) writeDests(u *bbl.DynUop, commitCycle uint64) {
	b.scoreboard.MarkReady(u.Rd[0], commitCycle)
	b.scoreboard.MarkReady(u.Rd[1], commitCycle)
}
