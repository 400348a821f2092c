package main

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/bench"
)

func TestRvxlateBench(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rvxlate-bench Suite")
}

var _ = Describe("syntheticTrace", func() {
	It("should produce iterations*workingSet accesses", func() {
		trace := syntheticTrace(100, 4)
		Expect(trace).To(HaveLen(400))
	})

	It("should revisit the hot prefix once per iteration", func() {
		trace := syntheticTrace(100, 3)
		hotAddr := trace[0]
		count := 0
		for _, pc := range trace {
			if pc == hotAddr {
				count++
			}
		}
		Expect(count).To(Equal(3))
	})

	It("should guarantee at least one hot block even for a tiny working set", func() {
		trace := syntheticTrace(1, 2)
		Expect(trace).To(HaveLen(2))
	})
})

var _ = Describe("runOne", func() {
	It("should report a higher hit rate for a small working set than a large one", func() {
		small := runOne(bench.MediumConfig(), syntheticTrace(8, 20))
		large := runOne(bench.SmallConfig(), syntheticTrace(20000, 2))

		Expect(small.hitRate).To(BeNumerically(">", large.hitRate))
	})

	It("should report zero rate and latency for an empty trace", func() {
		result := runOne(bench.MediumConfig(), nil)
		Expect(result.hitRate).To(Equal(float64(0)))
		Expect(result.avgLatency).To(Equal(float64(0)))
	})
})
