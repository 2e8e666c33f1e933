package core

import (
	"fmt"

	"github.com/sarchlab/memotime/bbl"
)

// FwdEntry is carried over from the source CacheModel header: a
// store-forwarding table cell. CacheModel allocates fwdArray but, per
// DESIGN.md, never reads or writes it — forwarding is only modelled in
// IssueModel. Kept here, unused, to mirror that exact piece of dead state
// rather than silently dropping it.
type FwdEntry struct {
	Addr       uint64
	StoreCycle uint64
}

// CacheModel times loads and stores against a filter cache; frontend
// fetch is fixed-latency; there is no branch prediction and no
// issue-width/RF-port structural hazard modelling.
type CacheModel struct {
	base

	l1d      FilterCache
	lineBits uint

	fwdArray [32]FwdEntry // dead state, see FwdEntry.

	stats CacheModelStats
}

// CacheModelStats is the statistics contract CacheModel publishes.
type CacheModelStats struct {
	Cycles  uint64
	CCycles uint64
	Icount  uint64
	Pcount  uint64
}

// NewCacheModel creates a CacheModel bound to thread tid and filter cache
// l1d.
func NewCacheModel(tid int, params OOOParams, l1d FilterCache) *CacheModel {
	return &CacheModel{
		base:     newBase(tid, params),
		l1d:      l1d,
		lineBits: params.LineBits,
	}
}

// Bbl is the central hot path (spec §4.3/§4.4). On the first call after
// scheduling it only records bblInfo as the deferred BBL; on every
// subsequent call it simulates the deferred BBL's uops, then fetches the
// current one.
func (c *CacheModel) Bbl(bblAddr uint64, info *bbl.BblInfo) {
	if c.prevBbl == nil {
		c.prevBbl = info
		c.prevBblAddr = bblAddr
		c.loads = 0
		c.stores = 0
		return
	}

	prev := c.prevBbl
	c.prevBbl = info
	c.prevBblAddr = bblAddr

	loadIdx, storeIdx := 0, 0
	prevDecCycle := uint64(0)

	for i := range prev.Bbl.Uops {
		u := &prev.Bbl.Uops[i]
		dispatchCycle, _ := c.decodeUop(u, prevDecCycle)
		prevDecCycle = u.DecCycle

		var commitCycle uint64
		switch u.Type {
		case bbl.UopGeneral:
			commitCycle = dispatchCycle + u.Lat

		case bbl.UopLoad:
			dispatchCycle = maxU64(dispatchCycle, c.lastStoreAddrCommitCycle+1)
			addr := c.loadAddrs[loadIdx]
			loadIdx++
			if addr == predFalseAddr {
				commitCycle = dispatchCycle
			} else {
				req := c.l1d.Load(addr, dispatchCycle) + L1DLat
				c.cRec.Record(c.curCycle, dispatchCycle, req)
				commitCycle = req
			}

		case bbl.UopStore:
			dispatchCycle = maxU64(dispatchCycle, c.lastStoreAddrCommitCycle+1)
			addr := c.storeAddrs[storeIdx]
			storeIdx++
			req := c.l1d.Store(addr, dispatchCycle) + L1DLat
			commitCycle = req
			c.lastStoreCommitCycle = maxU64(c.lastStoreCommitCycle, req)

		case bbl.UopStoreAddr:
			commitCycle = dispatchCycle + u.Lat
			c.lastStoreAddrCommitCycle = maxU64(c.lastStoreAddrCommitCycle, commitCycle)

		case bbl.UopFence:
			commitCycle = dispatchCycle + u.Lat
			c.lastStoreAddrCommitCycle = maxU64(commitCycle,
				maxU64(c.lastStoreAddrCommitCycle, c.lastStoreCommitCycle))

		default:
			panic(fmt.Errorf("cachemodel: unrecognised uop type %v at tid %d", u.Type, c.tid))
		}

		c.writeDests(u, commitCycle)
	}

	if loadIdx != c.loads || storeIdx != c.stores {
		panic(fmt.Errorf("cachemodel: memory-op buffer mismatch at tid %d: loadIdx=%d loads=%d storeIdx=%d stores=%d",
			c.tid, loadIdx, c.loads, storeIdx, c.stores))
	}
	c.loads = 0
	c.stores = 0

	c.instrs += prev.Instrs
	c.stats.Icount = c.instrs

	c.fetchFrontend(bblAddr, info)

	c.takeBarrierLoop()
}

// fetchFrontend models the fixed-latency instruction fetch of the BBL that
// just arrived in this Bbl call — the original reassigns prevBbl to the new
// BBL before running its ifetch loop, so the loop always walks the
// just-arrived BBL's own address range, not the one whose uops were just
// backend-simulated.
func (c *CacheModel) fetchFrontend(bblAddr uint64, info *bbl.BblInfo) {
	fetchCycle := c.decodeCycle - (DecodeStage - FetchStage)

	lineSize := uint64(1) << c.lineBits
	for addr := bblAddr; addr < bblAddr+info.Bytes; addr += lineSize {
		c.cRec.Record(c.curCycle, c.curCycle, c.curCycle+L1ILat)
		fetchCycle += L1ILat
	}

	c.decodeCycle++
	c.decodeCycle = maxU64(c.decodeCycle, fetchCycle+(DecodeStage-FetchStage))
}

// Load buffers a load address ahead of the Bbl callback that consumes it.
func (c *CacheModel) Load(addr uint64) { c.recordLoad(addr) }

// Store buffers a store address ahead of the Bbl callback that consumes it.
func (c *CacheModel) Store(addr uint64) { c.recordStore(addr) }

// PredLoad buffers a predicated load: addr if taken, the sentinel if not.
func (c *CacheModel) PredLoad(addr uint64, pred bool) {
	if pred {
		c.recordLoad(addr)
	} else {
		c.recordLoad(predFalseAddr)
	}
}

// PredStore buffers a predicated store: addr if taken, the sentinel if not.
func (c *CacheModel) PredStore(addr uint64, pred bool) {
	if pred {
		c.recordStore(addr)
	} else {
		c.recordStore(predFalseAddr)
	}
}

// Branch is a no-op for CacheModel: it does not model branch prediction.
func (c *CacheModel) Branch(uint64, bool, uint64, uint64) {}

// Join binds the core to barrier under tid, then advances curCycle to
// whatever cycle the contention recorder says it must catch up to.
func (c *CacheModel) Join(barrier Barrier, tid int) {
	target := c.join(barrier, tid)
	if target > c.curCycle {
		c.Advance(target)
	}
}

// Leave releases the core's barrier binding.
func (c *CacheModel) Leave() { c.leave() }

// GetCycles reports contention-relevant cycles as of curCycle.
func (c *CacheModel) GetCycles() uint64 { return c.getCycles() }

// CurCycle exposes the issue-centric cycle counter, for tests that need to
// observe it directly rather than through the contention-bounded GetCycles.
func (c *CacheModel) CurCycle() uint64 { return c.curCycle }

// GetInstrs reports retired instructions.
func (c *CacheModel) GetInstrs() uint64 { return c.getInstrs() }

// GetPhaseCycles reports curCycle modulo the phase length.
func (c *CacheModel) GetPhaseCycles() uint64 { return c.getPhaseCycles() }

// ContextSwitch cancels any deferred BBL and, on gid == -1, invalidates
// the filter cache's virtually-addressed tags.
func (c *CacheModel) ContextSwitch(gid int) {
	c.contextSwitchBase(gid)
	if gid == -1 && c.l1d != nil {
		c.l1d.ContextSwitch()
	}
}

// GetFuncPtrs returns the callback set this model drives.
func (c *CacheModel) GetFuncPtrs() InstrFuncPtrs {
	return InstrFuncPtrs{
		LoadFunc:      func(_ int, addr uint64) { c.Load(addr) },
		StoreFunc:     func(_ int, addr uint64) { c.Store(addr) },
		PredLoadFunc:  func(_ int, addr uint64, pred bool) { c.PredLoad(addr, pred) },
		PredStoreFunc: func(_ int, addr uint64, pred bool) { c.PredStore(addr, pred) },
		BblFunc:       func(_ int, bblAddr uint64, info *bbl.BblInfo) { c.Bbl(bblAddr, info) },
		BranchFunc: func(_ int, pc uint64, taken bool, takenNpc, notTakenNpc uint64) {
			c.Branch(pc, taken, takenNpc, notTakenNpc)
		},
	}
}

// CSimStart begins a contention-simulation epoch, advancing curCycle to
// whatever cycle the contention recorder says this core must catch up to.
func (c *CacheModel) CSimStart() {
	target := c.cRec.CSimStart(c.curCycle)
	if target > c.curCycle {
		c.Advance(target)
	}
}

// CSimEnd ends a contention-simulation epoch, advancing curCycle the same
// way CSimStart does.
func (c *CacheModel) CSimEnd() {
	target := c.cRec.CSimEnd(c.curCycle)
	if target > c.curCycle {
		c.Advance(target)
	}
}

// GetEventRecorder exposes the recorder bridging to the global contention
// model.
func (c *CacheModel) GetEventRecorder() *OOOCoreRecorder { return c.cRec }

// Advance jumps curCycle/decodeCycle forward to target, as called from
// cSimStart/cSimEnd/join.
func (c *CacheModel) Advance(target uint64) { c.advanceBase(target) }

// Stats returns the current statistics snapshot.
func (c *CacheModel) Stats() CacheModelStats {
	c.stats.Cycles = c.getCycles()
	return c.stats
}
