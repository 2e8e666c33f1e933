package bbl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memotime/bbl"
)

var _ = Describe("BasicBlockKey", func() {
	It("hashes as addr XOR (instrs << 32)", func() {
		k := bbl.BasicBlockKey{Addr: 0x1000, Instrs: 3}
		Expect(k.Hash()).To(Equal(uint64(0x1000) ^ (uint64(3) << 32)))
	})

	It("compares componentwise via struct equality", func() {
		a := bbl.BasicBlockKey{Addr: 0x1000, Instrs: 3}
		b := bbl.BasicBlockKey{Addr: 0x1000, Instrs: 3}
		c := bbl.BasicBlockKey{Addr: 0x1000, Instrs: 4}
		Expect(a).To(Equal(b))
		Expect(a).NotTo(Equal(c))
	})
})

var _ = Describe("Map", func() {
	It("dedupes insertions under the same key", func() {
		m := bbl.NewMap()
		k := bbl.BasicBlockKey{Addr: 0x2000, Instrs: 5}
		info := &bbl.BblInfo{Instrs: 5, Bytes: 20}

		m.Insert(k, info)
		m.Insert(k, info)

		Expect(m.Len()).To(Equal(1))
		Expect(m.Lookup(k)).To(BeIdenticalTo(info))
	})

	It("returns nil for an absent key", func() {
		m := bbl.NewMap()
		Expect(m.Lookup(bbl.BasicBlockKey{Addr: 1, Instrs: 1})).To(BeNil())
	})
})

var _ = Describe("UopType", func() {
	It("stringifies every recognised type", func() {
		Expect(bbl.UopGeneral.String()).To(Equal("GENERAL"))
		Expect(bbl.UopLoad.String()).To(Equal("LOAD"))
		Expect(bbl.UopStore.String()).To(Equal("STORE"))
		Expect(bbl.UopStoreAddr.String()).To(Equal("STORE_ADDR"))
		Expect(bbl.UopFence.String()).To(Equal("FENCE"))
	})
})
