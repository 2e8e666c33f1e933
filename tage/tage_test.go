package tage_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memotime/tage"
)

var _ = Describe("Predictor", func() {
	var p *tage.Predictor

	BeforeEach(func() {
		p = tage.NewPredictor(tage.DefaultConfig())
	})

	It("returns the same prediction across consecutive GetPrediction calls", func() {
		first := p.GetPrediction(0x4000)
		second := p.GetPrediction(0x4000)
		Expect(second).To(Equal(first))
	})

	It("keeps useAltOnNa within [0, 7] under a long alternating stream", func() {
		for i := 0; i < 2000; i++ {
			taken := i%2 == 0
			p.Predict(0x8000, taken, 0)
			Expect(p.UseAltOnNa()).To(BeNumerically(">=", 0))
			Expect(p.UseAltOnNa()).To(BeNumerically("<=", tage.UseAltCounterMax))
		}
	})

	It("retains only the last 64 outcomes in the history buffer", func() {
		for i := 0; i < 100; i++ {
			p.Predict(0x1234, true, 0)
		}
		// All-taken history of width 64 must read back as all ones.
		Expect(p.HistoryBuffer()).To(Equal(^uint64(0)))
	})

	It("selects provider strictly above alt-provider when both are tagged", func() {
		for i := 0; i < 200; i++ {
			p.Predict(0xABCD, i%3 == 0, 0)
		}
		p.GetPrediction(0xABCD)
		if p.ProviderIndex() > 0 && p.AltProviderIndex() > 0 {
			Expect(p.ProviderIndex()).To(BeNumerically(">", p.AltProviderIndex()))
		}
	})

	It("converges on an alternating branch at a single pc", func() {
		correct := 0
		const n = 10000
		for i := 0; i < n; i++ {
			taken := i%2 == 0
			if p.Predict(0x9000, taken, 0) {
				correct++
			}
		}
		// Early mispredictions during warm-up are expected; counted over
		// the whole stream, correct predictions are still the majority.
		Expect(correct).To(BeNumerically(">", n/2))
	})
})
