package isel_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/hostisa"
	"github.com/sarchlab/rv64xlate/ir"
	"github.com/sarchlab/rv64xlate/isel"
)

func TestIsel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Isel Suite")
}

var _ = Describe("Select", func() {
	var s *isel.Selector

	BeforeEach(func() {
		s = isel.New(isel.Config{MaxGuestAddrHint: 1 << 47})
	})

	It("should open every block with a single event-check instruction", func() {
		var b ir.Block
		b.Append(ir.Put(0x10, ir.Get(ir.I64, 0x10)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs[0].Op).To(Equal(hostisa.OpEvCheck))

		var evChecks int
		for _, instr := range instrs {
			if instr.Op == hostisa.OpEvCheck {
				evChecks++
			}
		}
		Expect(evChecks).To(Equal(1))
	})

	It("should lower a Get/Put pair through the base-block pointer", func() {
		var b ir.Block
		b.Append(ir.Put(0x10, ir.Get(ir.I64, 0x10)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs).To(HaveLen(3))
		Expect(instrs[1].Op).To(Equal(hostisa.OpLD))
		Expect(instrs[1].Rs1).To(Equal(hostisa.PhysicalInt(hostisa.RegS0)))
		Expect(instrs[1].Imm).To(Equal(int64(0x10 - hostisa.BaseBlockOffsetAdjust)))
		Expect(instrs[2].Op).To(Equal(hostisa.OpSD))
		Expect(instrs[2].Imm).To(Equal(int64(0x10 - hostisa.BaseBlockOffsetAdjust)))
	})

	It("should assign a fresh virtual register per live temp", func() {
		var b ir.Block
		dst := b.NewTemp(ir.I64)
		b.Append(ir.WrTmp(dst, ir.Const(ir.I64, 5)))
		b.Append(ir.Put(0, ir.ReadTmp(dst)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs).To(HaveLen(3))
		Expect(instrs[1].Op).To(Equal(hostisa.OpADDI))
		Expect(instrs[1].Rd.IsVirtual()).To(BeTrue())
		Expect(instrs[2].Rs2).To(Equal(instrs[1].Rd))
	})

	It("should fail a read of a temp that was never written", func() {
		var b ir.Block
		ghost := ir.Temp{ID: 99, Typ: ir.I64}
		b.Append(ir.Put(0, ir.ReadTmp(ghost)))

		Expect(func() { s.Select(&b) }).To(Panic())
	})

	It("should materialize a small constant as a single ADDI", func() {
		var b ir.Block
		dst := b.NewTemp(ir.I64)
		b.Append(ir.WrTmp(dst, ir.Const(ir.I64, 7)))
		b.Append(ir.Put(0, ir.ReadTmp(dst)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs[1].Op).To(Equal(hostisa.OpADDI))
		Expect(instrs[1].Rs1).To(Equal(hostisa.PhysicalInt(hostisa.RegZero)))
		Expect(instrs[1].Imm).To(Equal(int64(7)))
	})

	It("should materialize a constant outside the 12-bit range as OpLI", func() {
		var b ir.Block
		dst := b.NewTemp(ir.I64)
		b.Append(ir.WrTmp(dst, ir.Const(ir.I64, 0x123456)))
		b.Append(ir.Put(0, ir.ReadTmp(dst)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs[1].Op).To(Equal(hostisa.OpLI))
	})

	It("should lower a store with the width-matched store opcode", func() {
		var b ir.Block
		addr := b.NewTemp(ir.I64)
		b.Append(ir.WrTmp(addr, ir.Const(ir.I64, 0x1000)))
		b.Append(ir.Store(ir.ReadTmp(addr), ir.Const(ir.I16, 0xAB)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		last := instrs[len(instrs)-1]
		Expect(last.Op).To(Equal(hostisa.OpSH))
	})

	It("should lower a chainable exit to OpXDirect unchained", func() {
		var b ir.Block
		b.Append(ir.Exit(nil, ir.JkBoring, 0x8000, 4))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs).To(HaveLen(2))
		Expect(instrs[1].Op).To(Equal(hostisa.OpXDirect))
		Expect(instrs[1].Chained).To(BeFalse())
		Expect(instrs[1].Target).To(Equal(uint64(0x8000)))
	})

	It("should lower an assisted exit to OpXAssisted carrying the jump kind", func() {
		var b ir.Block
		b.Append(ir.Exit(nil, ir.JkSysSyscall, 0, 4))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs[1].Op).To(Equal(hostisa.OpXAssisted))
		Expect(instrs[1].AssistReason).To(Equal(uint8(ir.JkSysSyscall)))
	})

	It("should lower an unresolved-target exit to OpXIndir", func() {
		var b ir.Block
		b.Append(ir.Exit(nil, ir.JkRet, 0, 4))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())
		Expect(instrs[1].Op).To(Equal(hostisa.OpXIndir))
	})

	It("should lower a plain integer binop to its matching ALU instruction", func() {
		var b ir.Block
		a := b.NewTemp(ir.I64)
		c := b.NewTemp(ir.I64)
		b.Append(ir.WrTmp(a, ir.Const(ir.I64, 1)))
		b.Append(ir.WrTmp(c, ir.BinopExpr(ir.OpAdd64, ir.I64, ir.ReadTmp(a), ir.Const(ir.I64, 2))))
		b.Append(ir.Put(0, ir.ReadTmp(c)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())

		var found bool
		for _, instr := range instrs {
			if instr.Op == hostisa.OpADD {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("should lower a comparison as a four-instruction branch-around", func() {
		var b ir.Block
		cmp := b.NewTemp(ir.I1)
		b.Append(ir.WrTmp(cmp, ir.BinopExpr(ir.OpCmpEQ64, ir.I1, ir.Const(ir.I64, 1), ir.Const(ir.I64, 1))))
		b.Append(ir.Put(0, ir.ReadTmp(cmp)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())

		var branches int
		for _, instr := range instrs {
			if instr.Op == hostisa.OpBEQ {
				branches++
			}
		}
		Expect(branches).To(Equal(1))
	})

	It("should lower ITE to a single conditional-select pseudo", func() {
		var b ir.Block
		dst := b.NewTemp(ir.I64)
		ite := ir.ITE(ir.Const(ir.I1, 1), ir.Const(ir.I64, 10), ir.Const(ir.I64, 20))
		b.Append(ir.WrTmp(dst, ite))
		b.Append(ir.Put(0, ir.ReadTmp(dst)))

		instrs, err := s.Select(&b)
		Expect(err).NotTo(HaveOccurred())

		var csel *hostisa.Instr
		for i, instr := range instrs {
			Expect(instr.Op).NotTo(Equal(hostisa.OpBEQ))
			Expect(instr.Op).NotTo(Equal(hostisa.OpJAL))
			if instr.Op == hostisa.OpCSEL {
				csel = &instrs[i]
			}
		}
		Expect(csel).NotTo(BeNil())
		Expect(csel.Rd.IsVirtual()).To(BeTrue())
		Expect(csel.Rs2.IsVirtual()).To(BeTrue())
		Expect(csel.Rs3.IsVirtual()).To(BeTrue())
	})
})
