package core

import "github.com/sarchlab/memotime/bbl"

// FilterCache is the contract the timing core needs from the memory
// hierarchy below L1: responses are monotonic in reqCycle.
type FilterCache interface {
	Load(addr, reqCycle uint64) uint64
	Store(addr, reqCycle uint64) uint64
	ContextSwitch()
}

// Barrier is the contract the timing core needs from the global
// phase-barrier scheduler: a rendezvous that may migrate tid to a
// different core id.
type Barrier interface {
	TakeBarrier(tid, cid int) int
	GetCid(tid int) int
}

// InstrFuncPtrs is the callback set the instrumentation front-end drives,
// one set per thread. Go has no use for literal function pointers; these
// are closures captured over a single Core, recovered by tid in the
// dispatch table that hands them out.
type InstrFuncPtrs struct {
	LoadFunc      func(tid int, addr uint64)
	StoreFunc     func(tid int, addr uint64)
	PredLoadFunc  func(tid int, addr uint64, pred bool)
	PredStoreFunc func(tid int, addr uint64, pred bool)
	BblFunc       func(tid int, bblAddr uint64, info *bbl.BblInfo)
	BranchFunc    func(tid int, pc uint64, taken bool, takenNpc, notTakenNpc uint64)
}

// Core is the capability set common to CacheModel, FetchModel, and
// IssueModel.
type Core interface {
	Join(barrier Barrier, tid int)
	Leave()
	GetCycles() uint64
	GetInstrs() uint64
	GetPhaseCycles() uint64
	ContextSwitch(gid int)
	GetFuncPtrs() InstrFuncPtrs
	CSimStart()
	CSimEnd()
	GetEventRecorder() *OOOCoreRecorder
}
