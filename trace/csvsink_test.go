package trace_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memotime/trace"
)

var _ = Describe("CSVSink", func() {
	It("writes a header followed by one row per Record", func() {
		dir, err := os.MkdirTemp("", "memotime-csvsink")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "trace.csv")
		sink, err := trace.NewCSVSink(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(sink.Write(trace.Record{Tid: 0, BblAddr: 0x1000, Cycles: 42, Instrs: 3})).To(Succeed())
		Expect(sink.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("run_id,tid,bbl_addr,cycles,instrs"))
		Expect(string(data)).To(ContainSubstring(",0,1000,42,3"))
	})
})
