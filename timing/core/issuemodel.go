package core

import (
	"fmt"

	"github.com/sarchlab/memotime/bbl"
)

// insWindowHorizon is the sliding horizon, in cycles, of the instruction
// window's per-cycle port scheduler.
const insWindowHorizon = 1024

// IssueModel times the backend's out-of-order structural hazards:
// instruction-window port scheduling, ROB/load-queue/store-queue
// occupancy, uop-queue bandwidth, RF read ports, the issue-width
// throttle, and store-to-load forwarding. It does not simulate ifetch
// itself; a layered configuration feeds it a decodeCycle that already
// accounts for frontend stalls.
type IssueModel struct {
	base

	insWindow  *WindowStructure
	rob        *ReorderBuffer
	loadQueue  *ReorderBuffer
	storeQueue *ReorderBuffer
	uopQueue   *CycleQueue

	curCycleIssuedUops uint64
	curCycleRFReads    uint64

	fwdArray [32]FwdEntry

	stats IssueModelStats
}

// IssueModelStats is the statistics contract IssueModel publishes.
type IssueModelStats struct {
	Cycles      uint64
	Icount      uint64
	IssueStalls uint64
}

// NewIssueModel creates an IssueModel bound to thread tid, sized by params.
func NewIssueModel(tid int, params OOOParams) *IssueModel {
	return &IssueModel{
		base:       newBase(tid, params),
		insWindow:  NewWindowStructure(insWindowHorizon, params.InsWinCap),
		rob:        NewReorderBuffer(params.RobCap, params.Width),
		loadQueue:  NewReorderBuffer(params.LoadQueueCap, params.Width),
		storeQueue: NewReorderBuffer(params.StoreQueueCap, params.Width),
		uopQueue:   NewCycleQueue(params.IssueQueueCap),
	}
}

// Bbl is the central hot path (spec §4.3/§4.6).
func (m *IssueModel) Bbl(bblAddr uint64, info *bbl.BblInfo) {
	if m.prevBbl == nil {
		m.prevBbl = info
		m.prevBblAddr = bblAddr
		m.loads = 0
		m.stores = 0
		return
	}

	prev := m.prevBbl
	m.prevBbl = info
	m.prevBblAddr = bblAddr

	loadIdx, storeIdx := 0, 0
	prevDecCycle := uint64(0)

	for i := range prev.Bbl.Uops {
		u := &prev.Bbl.Uops[i]

		m.decodeGate(u.DecCycle - prevDecCycle)
		prevDecCycle = u.DecCycle

		m.scoreboard.Sentinel(m.curCycle)
		c0 := m.scoreboard.ReadyCycle(u.Rs[0])
		c1 := m.scoreboard.ReadyCycle(u.Rs[1])
		cOps := maxU64(c0, c1)

		m.throttleIssueWidth()
		m.curCycleIssuedUops++
		m.throttleRFPorts(c0, c1)

		dispatchCycle := m.scheduleDispatch(cOps, u.PortMask, u.ExtraSlots)

		var commitCycle uint64
		switch u.Type {
		case bbl.UopGeneral:
			commitCycle = dispatchCycle + u.Lat

		case bbl.UopLoad:
			dispatchCycle = maxU64(dispatchCycle,
				maxU64(m.loadQueue.MinAllocCycle(), m.lastStoreAddrCommitCycle+1))
			addr := m.loadAddrs[loadIdx]
			loadIdx++
			if addr == predFalseAddr {
				commitCycle = dispatchCycle
			} else {
				req := dispatchCycle + L1DLat
				if fw := m.fwdArray[(addr>>2)&31]; fw.Addr == addr {
					req = maxU64(req, fw.StoreCycle)
				}
				commitCycle = req
			}
			m.loadQueue.MarkRetire(commitCycle)

		case bbl.UopStore:
			dispatchCycle = maxU64(dispatchCycle,
				maxU64(m.storeQueue.MinAllocCycle(), m.lastStoreAddrCommitCycle+1))
			addr := m.storeAddrs[storeIdx]
			storeIdx++
			req := dispatchCycle + L1DLat
			m.fwdArray[(addr>>2)&31] = FwdEntry{Addr: addr, StoreCycle: req}
			commitCycle = req
			m.lastStoreCommitCycle = maxU64(m.lastStoreCommitCycle, req)
			m.storeQueue.MarkRetire(commitCycle)

		case bbl.UopStoreAddr:
			commitCycle = dispatchCycle + u.Lat
			m.lastStoreAddrCommitCycle = maxU64(m.lastStoreAddrCommitCycle, commitCycle)

		case bbl.UopFence:
			commitCycle = dispatchCycle + u.Lat
			commitCycle = maxU64(commitCycle,
				maxU64(m.lastStoreAddrCommitCycle, m.lastStoreCommitCycle+u.Lat))
			m.lastStoreAddrCommitCycle = commitCycle

		default:
			panic(fmt.Errorf("issuemodel: unrecognised uop type %v at tid %d", u.Type, m.tid))
		}

		m.writeDests(u, commitCycle)
		m.rob.MarkRetire(commitCycle)
	}

	if loadIdx != m.loads || storeIdx != m.stores {
		panic(fmt.Errorf("issuemodel: memory-op buffer mismatch at tid %d: loadIdx=%d loads=%d storeIdx=%d stores=%d",
			m.tid, loadIdx, m.loads, storeIdx, m.stores))
	}
	m.loads = 0
	m.stores = 0

	m.instrs += prev.Instrs
	m.stats.Icount = m.instrs

	m.takeBarrierLoop()
}

// decodeGate implements the decode-stage gating step: decodeCycle is
// raised by the uop-queue's own bandwidth limit alongside the ordinary
// decode delay, and curCycle is walked forward one cycle at a time through
// the instruction window until it catches up.
func (m *IssueModel) decodeGate(decDiff uint64) {
	m.decodeCycle = maxU64(m.decodeCycle+decDiff, m.uopQueue.MinAllocCycle())

	for m.decodeCycle > m.curCycle {
		m.curCycle = m.insWindow.AdvancePos(m.curCycle)
		m.resetPerCycleCounters()
	}

	m.uopQueue.MarkLeave(m.curCycle)
}

// throttleIssueWidth charges profIssueStalls and advances the window by one
// cycle once the per-cycle issue-width budget is exhausted.
func (m *IssueModel) throttleIssueWidth() {
	if m.curCycleIssuedUops >= uint64(m.params.Width) {
		m.stats.IssueStalls++
		m.resetPerCycleCounters()
		m.curCycle = m.insWindow.AdvancePos(m.curCycle)
	}
}

// throttleRFPorts advances the window by one cycle for each of c0, c1 that
// overflows the physical register file's read-port count.
func (m *IssueModel) throttleRFPorts(c0, c1 uint64) {
	for _, c := range [2]uint64{c0, c1} {
		if c >= m.curCycle {
			continue
		}
		m.curCycleRFReads++
		if m.curCycleRFReads > uint64(m.params.PrfPorts) {
			m.curCycleRFReads -= uint64(m.params.PrfPorts)
			m.curCycleIssuedUops = 0
			m.curCycle = m.insWindow.AdvancePos(m.curCycle)
		}
	}
}

// scheduleDispatch computes the ROB-gated dispatch cycle and schedules it
// against the instruction window's port occupancy, absorbing whatever
// forward push the window demands.
func (m *IssueModel) scheduleDispatch(cOps, portMask, extraSlots uint64) uint64 {
	c2 := m.rob.MinAllocCycle()
	c3 := m.curCycle
	dispatchCycle := maxU64(cOps, maxU64(c2, c3)+(DispatchStage-IssueStage))

	newCur, scheduled := m.insWindow.Schedule(m.curCycle, dispatchCycle, portMask, extraSlots)
	if newCur != m.curCycle {
		m.curCycle = newCur
		m.resetPerCycleCounters()
	}
	return scheduled
}

func (m *IssueModel) resetPerCycleCounters() {
	m.curCycleIssuedUops = 0
	m.curCycleRFReads = 0
}

// Load is a stub. The source's IssueModel wires LSU address buffers but
// never populates them through its own LoadFunc/StoreFunc — see DESIGN.md.
// A layered core drives RecordLoad/RecordStore directly instead.
func (m *IssueModel) Load(uint64) {}

// Store is a stub; see Load.
func (m *IssueModel) Store(uint64) {}

// PredLoad is a stub; see Load.
func (m *IssueModel) PredLoad(uint64, bool) {}

// PredStore is a stub; see Load.
func (m *IssueModel) PredStore(uint64, bool) {}

// RecordLoad populates the LSU load-address buffer directly, bypassing the
// stubbed Load callback, for a layered core composing IssueModel behind a
// fetch/cache stage that has already resolved the address.
func (m *IssueModel) RecordLoad(addr uint64) { m.recordLoad(addr) }

// RecordStore is RecordLoad's store counterpart.
func (m *IssueModel) RecordStore(addr uint64) { m.recordStore(addr) }

// RecordPredLoad is RecordLoad's predicated counterpart.
func (m *IssueModel) RecordPredLoad(addr uint64, pred bool) {
	if pred {
		m.recordLoad(addr)
	} else {
		m.recordLoad(predFalseAddr)
	}
}

// RecordPredStore is RecordStore's predicated counterpart.
func (m *IssueModel) RecordPredStore(addr uint64, pred bool) {
	if pred {
		m.recordStore(addr)
	} else {
		m.recordStore(predFalseAddr)
	}
}

// Branch is a no-op: IssueModel does not model branch prediction.
func (m *IssueModel) Branch(uint64, bool, uint64, uint64) {}

// Join binds the core to barrier under tid, then advances curCycle to
// whatever cycle the contention recorder says it must catch up to.
func (m *IssueModel) Join(barrier Barrier, tid int) {
	target := m.join(barrier, tid)
	if target > m.curCycle {
		m.Advance(target)
	}
}

// Leave releases the core's barrier binding.
func (m *IssueModel) Leave() { m.leave() }

// GetCycles reports contention-relevant cycles as of curCycle.
func (m *IssueModel) GetCycles() uint64 { return m.getCycles() }

// GetInstrs reports retired instructions.
func (m *IssueModel) GetInstrs() uint64 { return m.getInstrs() }

// GetPhaseCycles reports curCycle modulo the phase length.
func (m *IssueModel) GetPhaseCycles() uint64 { return m.getPhaseCycles() }

// ContextSwitch cancels any deferred BBL and, on a full switch (gid == -1),
// resets the ROB, load/store queues, and uop queue, which hold no meaningful
// entries once the thread's architectural state has moved to another core.
// The instruction window's port occupancy and the forwarding table are kept.
func (m *IssueModel) ContextSwitch(gid int) {
	m.contextSwitchBase(gid)
	if gid == -1 {
		m.rob.Reset()
		m.loadQueue.Reset()
		m.storeQueue.Reset()
		m.uopQueue.Reset()
	}
}

// GetFuncPtrs returns the callback set this model drives. LoadFunc and
// StoreFunc are the stubs described on Load/Store.
func (m *IssueModel) GetFuncPtrs() InstrFuncPtrs {
	return InstrFuncPtrs{
		LoadFunc:      func(_ int, addr uint64) { m.Load(addr) },
		StoreFunc:     func(_ int, addr uint64) { m.Store(addr) },
		PredLoadFunc:  func(_ int, addr uint64, pred bool) { m.PredLoad(addr, pred) },
		PredStoreFunc: func(_ int, addr uint64, pred bool) { m.PredStore(addr, pred) },
		BblFunc:       func(_ int, bblAddr uint64, info *bbl.BblInfo) { m.Bbl(bblAddr, info) },
		BranchFunc: func(_ int, pc uint64, taken bool, takenNpc, notTakenNpc uint64) {
			m.Branch(pc, taken, takenNpc, notTakenNpc)
		},
	}
}

// CSimStart begins a contention-simulation epoch, advancing curCycle to
// whatever cycle the contention recorder says this core must catch up to.
func (m *IssueModel) CSimStart() {
	target := m.cRec.CSimStart(m.curCycle)
	if target > m.curCycle {
		m.Advance(target)
	}
}

// CSimEnd ends a contention-simulation epoch, advancing curCycle the same
// way CSimStart does.
func (m *IssueModel) CSimEnd() {
	target := m.cRec.CSimEnd(m.curCycle)
	if target > m.curCycle {
		m.Advance(target)
	}
}

// GetEventRecorder exposes the recorder bridging to the global contention
// model.
func (m *IssueModel) GetEventRecorder() *OOOCoreRecorder { return m.cRec }

// Advance jumps curCycle/decodeCycle forward to target, additionally
// bulk-advancing the instruction window and asserting the target was
// actually reached.
func (m *IssueModel) Advance(target uint64) {
	m.advanceBase(target)
	m.curCycle = m.insWindow.LongAdvance(m.curCycle, target)
	m.resetPerCycleCounters()
	if m.curCycle != target {
		panic(fmt.Errorf("issuemodel: advance did not reach target cycle at tid %d (got %d, want %d)",
			m.tid, m.curCycle, target))
	}
}

// Stats returns the current statistics snapshot.
func (m *IssueModel) Stats() IssueModelStats {
	m.stats.Cycles = m.getCycles()
	return m.stats
}

// CurCycle exposes the issue-centric cycle counter, for tests that need to
// assert on structural-hazard cycle effects directly (spec §8 S5).
func (m *IssueModel) CurCycle() uint64 { return m.curCycle }

// ForwardingHit reports whether the direct-mapped store-forwarding table's
// slot for addr currently holds addr, the observable half of spec §8 S4's
// store-forward scenario.
func (m *IssueModel) ForwardingHit(addr uint64) bool {
	return m.fwdArray[(addr>>2)&31].Addr == addr
}
