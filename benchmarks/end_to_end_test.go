package benchmarks_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memotime/bbl"
	"github.com/sarchlab/memotime/timing/cache"
	"github.com/sarchlab/memotime/timing/core"
	"github.com/sarchlab/memotime/trace"
)

// curCycleReader is implemented by every timing model's test-only CurCycle
// accessor, letting one scenario body drive all three.
type curCycleReader interface {
	core.Core
	CurCycle() uint64
}

// buildScenarioTrace hand-assembles a small, deterministic program-order
// event stream mixing loads, stores, and a taken branch across four basic
// blocks, followed by a trailing empty block that flushes the last real one.
func buildScenarioTrace() ([]trace.Event, uint64) {
	blocks := []*bbl.BblInfo{
		{
			Instrs: 2,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopGeneral, Lat: 1, Rd: [2]uint8{1}, PortMask: 1},
				{DecCycle: 1, Type: bbl.UopStore, Lat: 1, PortMask: 1},
			}},
		},
		{
			Instrs: 3,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopLoad, Lat: 1, Rs: [2]uint8{1}, PortMask: 1},
				{DecCycle: 1, Type: bbl.UopGeneral, Lat: 2, PortMask: 1},
				{DecCycle: 2, Type: bbl.UopFence, Lat: 1, PortMask: 1},
			}},
		},
		{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopGeneral, Lat: 1, PortMask: 1},
			}},
		},
		{
			Instrs: 2,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopStore, Lat: 1, PortMask: 1},
				{DecCycle: 1, Type: bbl.UopLoad, Lat: 1, PortMask: 1},
			}},
		},
	}

	var events []trace.Event
	var wantInstrs uint64
	addr := uint64(0x1000)
	for i, blk := range blocks {
		events = append(events, trace.Event{Kind: trace.EventBbl, BblAddr: addr, Instrs: blk.Instrs, Info: blk})
		wantInstrs += blk.Instrs

		for _, u := range blk.Bbl.Uops {
			switch u.Type {
			case bbl.UopLoad:
				events = append(events, trace.Event{Kind: trace.EventLoad, Addr: 0x2000 + addr})
			case bbl.UopStore:
				events = append(events, trace.Event{Kind: trace.EventStore, Addr: 0x3000 + addr})
			}
		}

		if i == 1 {
			events = append(events, trace.Event{
				Kind: trace.EventBranch, PC: addr, Taken: true,
				TakenNpc: addr + 0x40, NotTakenNpc: addr + 0x10,
			})
		}

		addr += 0x40
	}

	// Flush the last real block.
	events = append(events, trace.Event{
		Kind: trace.EventBbl, BblAddr: addr, Instrs: 0,
		Info: &bbl.BblInfo{Instrs: 0, Bytes: 16},
	})

	return events, wantInstrs
}

// S8: a Player replaying a small synthetic trace through each of the three
// models produces monotone non-decreasing curCycle snapshots at every Bbl
// boundary (the invariant §8 states generally), and final icount equals the
// trace's total retired-instruction count.
var _ = Describe("End-to-end trace replay", func() {
	DescribeTable("drives every model to a consistent final instruction count",
		func(build func() (curCycleReader, core.InstrFuncPtrs)) {
			events, wantInstrs := buildScenarioTrace()
			c, funcs := build()

			var snapshots []uint64
			player := trace.NewPlayer(0, funcs)
			for i := range events {
				Expect(player.Run(events[i : i+1])).To(Succeed())
				if events[i].Kind == trace.EventBbl {
					snapshots = append(snapshots, c.CurCycle())
				}
			}

			for i := 1; i < len(snapshots); i++ {
				Expect(snapshots[i]).To(BeNumerically(">=", snapshots[i-1]))
			}

			Expect(c.GetInstrs()).To(Equal(wantInstrs))
		},
		Entry("CacheModel", func() (curCycleReader, core.InstrFuncPtrs) {
			l1d := cache.NewFilterCache(cache.DefaultL1DConfig())
			cm := core.NewCacheModel(0, core.DefaultOOOParams(), l1d)
			return cm, cm.GetFuncPtrs()
		}),
		Entry("FetchModel", func() (curCycleReader, core.InstrFuncPtrs) {
			l1i := cache.NewFilterCache(cache.DefaultL1IConfig())
			fm := core.NewFetchModel(0, core.DefaultOOOParams(), l1i)
			return fm, fm.GetFuncPtrs()
		}),
		Entry("IssueModel", func() (curCycleReader, core.InstrFuncPtrs) {
			im := core.NewIssueModel(0, core.DefaultOOOParams())
			funcs := im.GetFuncPtrs()
			funcs.LoadFunc = func(_ int, addr uint64) { im.RecordLoad(addr) }
			funcs.StoreFunc = func(_ int, addr uint64) { im.RecordStore(addr) }
			return im, funcs
		}),
	)
})
