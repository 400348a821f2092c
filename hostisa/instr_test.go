package hostisa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/hostisa"
)

var _ = Describe("Instr.Uses", func() {
	It("should report a write-only use for immediate-materialization ops", func() {
		rd := hostisa.VirtualInt(0)
		instr := hostisa.Instr{Op: hostisa.OpLUI, Rd: rd, Imm: 1}
		Expect(instr.Uses()).To(Equal([]hostisa.RegUse{{Reg: rd, Role: hostisa.RoleWrite}}))
	})

	It("should report one write and two reads for a reg-reg ALU op", func() {
		rd, rs1, rs2 := hostisa.VirtualInt(0), hostisa.VirtualInt(1), hostisa.VirtualInt(2)
		instr := hostisa.Instr{Op: hostisa.OpSUB, Rd: rd, Rs1: rs1, Rs2: rs2}
		uses := instr.Uses()
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rd, Role: hostisa.RoleWrite}))
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rs1, Role: hostisa.RoleRead}))
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rs2, Role: hostisa.RoleRead}))
	})

	It("should report two reads and no write for a store", func() {
		rs1, rs2 := hostisa.VirtualInt(0), hostisa.VirtualInt(1)
		instr := hostisa.Instr{Op: hostisa.OpSD, Rs1: rs1, Rs2: rs2}
		uses := instr.Uses()
		for _, u := range uses {
			Expect(u.Role).To(Equal(hostisa.RoleRead))
		}
		Expect(uses).To(HaveLen(2))
	})

	It("should report three live registers for a store-conditional", func() {
		rd, rs1, rs2 := hostisa.VirtualInt(0), hostisa.VirtualInt(1), hostisa.VirtualInt(2)
		instr := hostisa.Instr{Op: hostisa.OpSCD, Rd: rd, Rs1: rs1, Rs2: rs2}
		Expect(instr.Uses()).To(HaveLen(3))
	})

	It("should report no register uses at all for OpFENCE", func() {
		instr := hostisa.Instr{Op: hostisa.OpFENCE}
		Expect(instr.Uses()).To(BeEmpty())
	})

	It("should print its Op via String()", func() {
		Expect(hostisa.OpADD.String()).To(Equal("add"))
		Expect(hostisa.OpLD.String()).To(Equal("ld"))
	})

	It("should report one write and three reads for a conditional-select pseudo", func() {
		rd, rs1, rs2, rs3 := hostisa.VirtualInt(0), hostisa.VirtualInt(1), hostisa.VirtualInt(2), hostisa.VirtualInt(3)
		instr := hostisa.Instr{Op: hostisa.OpCSEL, Rd: rd, Rs1: rs1, Rs2: rs2, Rs3: rs3}
		uses := instr.Uses()
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rd, Role: hostisa.RoleWrite}))
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rs1, Role: hostisa.RoleRead}))
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rs2, Role: hostisa.RoleRead}))
		Expect(uses).To(ContainElement(hostisa.RegUse{Reg: rs3, Role: hostisa.RoleRead}))
		Expect(uses).To(HaveLen(4))
	})

	It("should read only the first argCount arg registers for a call pseudo", func() {
		instr := hostisa.Instr{Op: hostisa.OpCall, Imm: 2}
		uses := instr.Uses()

		var reads []hostisa.Reg
		for _, u := range uses {
			if u.Role == hostisa.RoleRead {
				reads = append(reads, u.Reg)
			}
		}
		Expect(reads).To(ConsistOf(hostisa.PhysicalInt(hostisa.RegA0), hostisa.PhysicalInt(hostisa.RegA1)))
	})

	It("should clobber every integer and float caller-save register for a call pseudo", func() {
		instr := hostisa.Instr{Op: hostisa.OpCall, Imm: 0}
		uses := instr.Uses()

		var writes []hostisa.Reg
		for _, u := range uses {
			if u.Role == hostisa.RoleWrite {
				writes = append(writes, u.Reg)
			}
		}
		Expect(writes).To(ContainElement(hostisa.PhysicalInt(hostisa.RegA0)))
		Expect(writes).To(ContainElement(hostisa.PhysicalInt(hostisa.RegA7)))
		Expect(writes).To(HaveLen(8 + len(hostisa.GlobalUniverse().AllocableFloat)))
	})
})
