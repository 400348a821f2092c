package guest_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/guest"
)

func TestGuest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Guest Suite")
}

var _ = Describe("State record layout", func() {
	It("should be padded up to a 16-byte multiple", func() {
		Expect(guest.Size % 16).To(Equal(0))
	})

	It("should lay out integer registers at consecutive 8-byte slots", func() {
		Expect(guest.RegOffset(0)).To(Equal(int64(0)))
		Expect(guest.RegOffset(1)).To(Equal(int64(8)))
		Expect(guest.RegOffset(31)).To(Equal(int64(31 * 8)))
	})

	It("should panic on an out-of-range register index", func() {
		Expect(func() { guest.RegOffset(32) }).To(Panic())
	})

	It("should enumerate every field exactly once, in offset order", func() {
		fields := guest.FieldTable()
		Expect(fields).To(HaveLen(guest.NumIntRegs + 12))
		for i := 1; i < len(fields); i++ {
			Expect(fields[i].Offset).To(BeNumerically(">", fields[i-1].Offset))
		}
	})
})

var _ = Describe("ABIName", func() {
	It("should name the calling-convention registers", func() {
		Expect(guest.ABIName(0)).To(Equal("zero"))
		Expect(guest.ABIName(2)).To(Equal("sp"))
		Expect(guest.ABIName(10)).To(Equal("a0"))
	})
})

var _ = Describe("State", func() {
	var s *guest.State

	BeforeEach(func() { s = &guest.State{} })

	It("should round-trip a register write through a read", func() {
		s.SetReg(10, 0xDEADBEEF)
		Expect(s.GetReg(10)).To(Equal(uint64(0xDEADBEEF)))
	})

	It("should always read register zero as 0", func() {
		s.SetReg(0, 0xFFFFFFFFFFFFFFFF)
		Expect(s.GetReg(0)).To(Equal(uint64(0)))
	})

	It("should silently discard writes to register zero", func() {
		s.SetReg(0, 42)
		for _, b := range s.Bytes[:8] {
			Expect(b).To(Equal(byte(0)))
		}
	})

	It("should round-trip the program counter", func() {
		s.SetPC(0x8000_1000)
		Expect(s.PC()).To(Equal(uint64(0x8000_1000)))
	})

	It("should not let one register's write bleed into its neighbor", func() {
		s.SetReg(5, 0x1111111111111111)
		s.SetReg(6, 0x2222222222222222)
		Expect(s.GetReg(5)).To(Equal(uint64(0x1111111111111111)))
		Expect(s.GetReg(6)).To(Equal(uint64(0x2222222222222222)))
	})
})

var _ = Describe("LLSCSize", func() {
	It("should enumerate exactly the three fallback transaction sizes", func() {
		Expect(guest.LLSCNoTransaction).To(Equal(guest.LLSCSize(0)))
		Expect(guest.LLSCSize4).To(Equal(guest.LLSCSize(4)))
		Expect(guest.LLSCSize8).To(Equal(guest.LLSCSize(8)))
	})
})
