// Package trace stands in for the out-of-scope binary instrumentation
// front-end: it owns a decoded-basic-block cache the way the front-end
// would, and replays a recorded sequence of per-thread events through a
// Core's InstrFuncPtrs callback set in program order, buffering memory-op
// addresses between Bbl events exactly as the real front-end does.
//
// Grounded on the teacher's loader/elf.go + emu/emulator.go pairing: a
// loader producing a static program image, an emulator stepping through it
// one instruction at a time. Player generalises that shape from "emulate an
// ISA" to "replay a pre-decoded BBL/uop trace" — it still owns a decode
// cache, steps one unit of work per call, and exposes a Run loop.
package trace

import "github.com/sarchlab/memotime/bbl"

// EventKind discriminates which of the six InstrFuncPtrs callbacks an Event
// drives.
type EventKind uint8

// Recognised event kinds, one per InstrFuncPtrs callback.
const (
	EventLoad EventKind = iota
	EventStore
	EventPredLoad
	EventPredStore
	EventBbl
	EventBranch
)

// Event is one program-order callback for a single thread. Only the fields
// relevant to Kind are read.
type Event struct {
	Kind EventKind

	// Load, Store, PredLoad, PredStore
	Addr uint64
	Pred bool

	// Bbl. Info is only required the first time a given (BblAddr, Instrs)
	// pair is played; Player caches it and later events for the same block
	// may leave Info nil, supplying only BblAddr and Instrs to look it up.
	BblAddr uint64
	Instrs  uint64
	Info    *bbl.BblInfo

	// Branch
	PC            uint64
	Taken         bool
	TakenNpc      uint64
	NotTakenNpc   uint64
}
