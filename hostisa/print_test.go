package hostisa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/hostisa"
)

var _ = Describe("Disassemble", func() {
	It("should render a register-register ALU instruction", func() {
		instr := hostisa.Instr{
			Op: hostisa.OpADD,
			Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegA1), Rs2: hostisa.PhysicalInt(hostisa.RegA2),
		}
		Expect(hostisa.Disassemble(instr)).To(Equal("add a0, a1, a2"))
	})

	It("should render a load with its immediate offset", func() {
		instr := hostisa.Instr{Op: hostisa.OpLD, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegS0), Imm: -16}
		Expect(hostisa.Disassemble(instr)).To(Equal("ld a0, -16(s0)"))
	})

	It("should render OpLI as the li pseudo-mnemonic", func() {
		instr := hostisa.Instr{Op: hostisa.OpLI, Rd: hostisa.PhysicalInt(hostisa.RegT0), Imm: 0x1234}
		Expect(hostisa.Disassemble(instr)).To(Equal("li t0, 0x1234"))
	})

	It("should render a chained XDirect exit distinctly from an unchained one", func() {
		chained := hostisa.Instr{Op: hostisa.OpXDirect, Target: 0x8000, Chained: true}
		unchained := hostisa.Instr{Op: hostisa.OpXDirect, Target: 0x8000, Chained: false}
		Expect(hostisa.Disassemble(chained)).To(ContainSubstring("chained(c.jr)"))
		Expect(hostisa.Disassemble(unchained)).To(ContainSubstring("unchained(c.jalr)"))
	})

	It("should append .aq/.rl suffixes for atomics carrying those flags", func() {
		instr := hostisa.Instr{
			Op: hostisa.OpAMOW, Rd: hostisa.PhysicalInt(hostisa.RegA0),
			Rs1: hostisa.PhysicalInt(hostisa.RegA1), Rs2: hostisa.PhysicalInt(hostisa.RegA2),
			Aq: true, Rl: true,
		}
		Expect(hostisa.Disassemble(instr)).To(HaveSuffix(".aq.rl"))
	})

	It("should render DisassembleBlock as one line per instruction", func() {
		instrs := []hostisa.Instr{
			{Op: hostisa.OpNOP},
			{Op: hostisa.OpNOP},
		}
		text := hostisa.DisassembleBlock(instrs)
		Expect(text).To(Equal("nop\nnop\n"))
	})
})
