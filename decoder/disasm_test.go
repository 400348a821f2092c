package decoder_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/decoder"
)

func TestDecoder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Decoder Suite")
}

var _ = Describe("Disassemble", func() {
	Describe("standard 32-bit instructions", func() {
		It("should disassemble addi ra, sp, 10", func() {
			// addi x1, x2, 10 -> imm=10 rs1=2 funct3=0 rd=1 opcode=0010011
			word := uint32(10)<<20 | uint32(2)<<15 | uint32(1)<<7 | 0b0010011
			Expect(decoder.Disassemble(word)).To(Equal("addi ra, sp, 10"))
		})

		It("should disassemble add gp, tp, t0", func() {
			word := uint32(5)<<20 | uint32(4)<<15 | uint32(3)<<7 | 0b0110011
			Expect(decoder.Disassemble(word)).To(Equal("add gp, tp, t0"))
		})

		It("should disassemble lui t1, 0x12345", func() {
			word := uint32(0x12345)<<12 | uint32(6)<<7 | 0b0110111
			Expect(decoder.Disassemble(word)).To(Equal("lui t1, 0x12345"))
		})

		It("should report unknown opcodes instead of panicking", func() {
			Expect(decoder.Disassemble(0x7F)).To(ContainSubstring("unknown opcode"))
		})
	})

	Describe("RVC compressed instructions", func() {
		It("should disassemble c.nop", func() {
			Expect(decoder.Disassemble16(0x0001)).To(Equal("c.nop"))
		})

		It("should disassemble c.addi s0, 1", func() {
			// CI-format: funct3=000, rd/rs1=8 (s0), imm=1, op=01
			word := uint16(0b000<<13 | 0<<12 | 8<<7 | 1<<2 | 0b01)
			Expect(decoder.Disassemble16(word)).To(Equal("c.addi s0, 1"))
		})
	})

	Describe("DisassembleOne", func() {
		It("should select the 2-byte compressed form when bits[1:0] != 11", func() {
			cursor := []byte{0x01, 0x00, 0xAA, 0xAA}
			text, n := decoder.DisassembleOne(cursor)
			Expect(n).To(Equal(2))
			Expect(text).To(Equal("c.nop"))
		})

		It("should select the 4-byte standard form when bits[1:0] == 11", func() {
			word := uint32(10)<<20 | uint32(2)<<15 | uint32(1)<<7 | 0b0010011
			cursor := []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
			text, n := decoder.DisassembleOne(cursor)
			Expect(n).To(Equal(4))
			Expect(text).To(Equal("addi ra, sp, 10"))
		})

		It("should report truncation rather than read out of bounds", func() {
			text, n := decoder.DisassembleOne([]byte{0x03})
			Expect(n).To(Equal(0))
			Expect(text).To(Equal("[truncated]"))
		})
	})
})
