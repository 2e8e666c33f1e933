package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memotime/bbl"
	"github.com/sarchlab/memotime/timing/core"
)

// cacheCall records one Load/Store invocation a fakeFilterCache observed.
type cacheCall struct {
	addr, reqCycle uint64
}

// fakeFilterCache is a minimal core.FilterCache double: every request
// resolves after a fixed latency, and every call is logged in program
// order for scenario tests to inspect.
type fakeFilterCache struct {
	latency    uint64
	loadCalls  []cacheCall
	storeCalls []cacheCall
	switched   bool
}

func (f *fakeFilterCache) Load(addr, reqCycle uint64) uint64 {
	f.loadCalls = append(f.loadCalls, cacheCall{addr, reqCycle})
	return reqCycle + f.latency
}

func (f *fakeFilterCache) Store(addr, reqCycle uint64) uint64 {
	f.storeCalls = append(f.storeCalls, cacheCall{addr, reqCycle})
	return reqCycle + f.latency
}

func (f *fakeFilterCache) ContextSwitch() { f.switched = true }

var _ = Describe("CacheModel", func() {
	var (
		fake *fakeFilterCache
		cm   *core.CacheModel
	)

	BeforeEach(func() {
		fake = &fakeFilterCache{latency: 100}
		cm = core.NewCacheModel(0, core.DefaultOOOParams(), fake)
	})

	// S1: single load, cold cache.
	It("schedules a load against the filter cache at its buffered address", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopLoad},
			}},
		}
		cm.Bbl(0x1000, info)
		cm.Load(0x1000)

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		cm.Bbl(0x2000, next)

		Expect(fake.loadCalls).To(HaveLen(1))
		Expect(fake.loadCalls[0].addr).To(Equal(uint64(0x1000)))
		Expect(cm.GetInstrs()).To(Equal(uint64(1)))
		Expect(cm.Stats().Icount).To(Equal(uint64(1)))
	})

	// S2: fence serialises a following load behind a preceding store.
	It("serialises a load's dispatch behind a fence that follows a store", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopStore},
				{DecCycle: 0, Type: bbl.UopFence, Lat: 1},
				{DecCycle: 0, Type: bbl.UopLoad},
			}},
		}
		cm.Bbl(0x1000, info)
		cm.Store(0x40)
		cm.Load(0x80)

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		cm.Bbl(0x2000, next)

		Expect(fake.storeCalls).To(HaveLen(1))
		Expect(fake.loadCalls).To(HaveLen(1))

		storeCommit := fake.storeCalls[0].reqCycle + fake.latency + core.L1DLat
		Expect(fake.loadCalls[0].reqCycle).To(BeNumerically(">=", storeCommit+1))
	})

	// A predicated-false memory op is recorded as the sentinel and never
	// reaches the filter cache.
	It("skips the filter cache for a predicated-false load", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopLoad},
			}},
		}
		cm.Bbl(0x1000, info)
		cm.PredLoad(0x1000, false)

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		cm.Bbl(0x2000, next)

		Expect(fake.loadCalls).To(BeEmpty())
	})

	It("panics on a memory-op buffer mismatch", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopLoad},
			}},
		}
		cm.Bbl(0x1000, info)
		// No Load() call: loadIdx will end at 0 while loads expects 1.

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		Expect(func() { cm.Bbl(0x2000, next) }).To(Panic())
	})

	It("invalidates the filter cache on a full context switch", func() {
		cm.ContextSwitch(-1)
		Expect(fake.switched).To(BeTrue())
	})
})
