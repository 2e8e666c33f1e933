package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memotime/bbl"
	"github.com/sarchlab/memotime/timing/core"
)

var _ = Describe("IssueModel", func() {
	var im *core.IssueModel

	BeforeEach(func() {
		im = core.NewIssueModel(0, core.DefaultOOOParams())
	})

	// S4: a store followed by a same-address load populates and then hits
	// the direct-mapped forwarding table.
	It("records a store-forward hit for a load to a recently stored address", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopStore, PortMask: 1},
				{DecCycle: 2, Type: bbl.UopLoad, PortMask: 1},
			}},
		}
		im.Bbl(0x1000, info)
		im.RecordStore(0x200)
		im.RecordLoad(0x200)

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		im.Bbl(0x2000, next)

		Expect(im.ForwardingHit(0x200)).To(BeTrue())
		Expect(im.GetInstrs()).To(Equal(uint64(1)))
	})

	// S5: enough register-file reads within a single decode-gated cycle to
	// overflow ooo_prf_ports forces the window forward without losing
	// instruction accounting. prime's results are ready at cycle 10; the
	// burst decodes at DecodeStage+10 = 14, so every source is an RF read.
	It("advances the cycle when register-file read demand exceeds prf_ports", func() {
		params := core.DefaultOOOParams()
		params.PrfPorts = 2

		im = core.NewIssueModel(0, params)

		prime := &bbl.BblInfo{
			Instrs: 2,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopGeneral, Rd: [2]uint8{1, 2}, PortMask: 1},
			}},
		}
		im.Bbl(0x0800, prime)

		burst := &bbl.BblInfo{
			Instrs: 3,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 10, Type: bbl.UopGeneral, Rs: [2]uint8{1, 2}, PortMask: 1},
				{DecCycle: 10, Type: bbl.UopGeneral, Rs: [2]uint8{1, 2}, PortMask: 1},
				{DecCycle: 10, Type: bbl.UopGeneral, Rs: [2]uint8{1, 2}, PortMask: 1},
			}},
		}
		im.Bbl(0x1000, burst)

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		im.Bbl(0x2000, next)

		// Decode gating alone stops at cycle 14; the RF-port overflows push
		// curCycle beyond it.
		Expect(im.CurCycle()).To(BeNumerically(">", uint64(core.DecodeStage+10)))
		Expect(im.GetInstrs()).To(Equal(uint64(5)))
	})

	It("panics on a memory-op buffer mismatch", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopLoad, PortMask: 1},
			}},
		}
		im.Bbl(0x1000, info)
		// No RecordLoad(): loadIdx ends at 0 while loads expects 1.

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		Expect(func() { im.Bbl(0x2000, next) }).To(Panic())
	})

	It("resets structural state on a full context switch without panicking", func() {
		info := &bbl.BblInfo{
			Instrs: 1,
			Bytes:  16,
			Bbl: bbl.DynBbl{Uops: []bbl.DynUop{
				{DecCycle: 0, Type: bbl.UopGeneral, PortMask: 1},
			}},
		}
		im.Bbl(0x1000, info)
		im.ContextSwitch(-1)

		next := &bbl.BblInfo{Instrs: 1, Bytes: 16}
		im.Bbl(0x1000, next)
		im.Bbl(0x2000, &bbl.BblInfo{Instrs: 1, Bytes: 16})

		Expect(im.GetInstrs()).To(Equal(uint64(1)))
	})
})
