package decoder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/decoder"
	"github.com/sarchlab/rv64xlate/guest"
	"github.com/sarchlab/rv64xlate/ir"
)

func encode32(word uint32) []byte {
	return []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
}

var _ = Describe("Decoder.Decode", func() {
	var (
		dec   *decoder.Decoder
		block *ir.Block
		abi   decoder.ABI
	)

	BeforeEach(func() {
		dec = decoder.New()
		block = &ir.Block{}
		abi = decoder.ABI{}
	})

	It("should lower addi into a Get/Put pair around a sign-extended add", func() {
		// addi a0, a1, 10
		word := uint32(10)<<20 | uint32(11)<<15 | uint32(10)<<7 | 0b0010011
		dres, ok := dec.Decode(encode32(word), 0x1000, abi, nil, block)

		Expect(ok).To(BeTrue())
		Expect(dres.Len).To(Equal(4))
		Expect(dres.WhatNext).To(Equal(decoder.Continue))

		var sawPut bool
		for _, stmt := range block.Stmts {
			if stmt.Kind == ir.StmtPut && stmt.PutOffset == guest.RegOffset(10) {
				sawPut = true
			}
		}
		Expect(sawPut).To(BeTrue(), "addi must write its result into rd's guest-state slot")
	})

	It("should terminate the block with a syscall exit on ecall", func() {
		dres, ok := dec.Decode(encode32(0b1110011), 0x2000, abi, nil, block)

		Expect(ok).To(BeTrue())
		Expect(dres.WhatNext).To(Equal(decoder.StopHere))
		Expect(dres.JkStopHere).To(Equal(ir.JkSysSyscall))

		term, hasTerm := block.Terminator()
		Expect(hasTerm).To(BeTrue())
		Expect(term.ExitJump).To(Equal(ir.JkSysSyscall))
	})

	It("should reject a truncated two-byte cursor", func() {
		_, ok := dec.Decode([]byte{0x01}, 0x1000, abi, nil, block)
		Expect(ok).To(BeFalse())
	})

	It("should panic on a misaligned guest PC", func() {
		Expect(func() { dec.Decode(encode32(0x13), 0x1001, abi, nil, block) }).To(Panic())
	})

	It("should decode a compressed instruction and consume only 2 bytes", func() {
		// c.addi s0, 1
		word := uint16(0b000<<13 | 0<<12 | 8<<7 | 1<<2 | 0b01)
		cursor := []byte{byte(word), byte(word >> 8), 0xAA, 0xAA}
		dres, ok := dec.Decode(cursor, 0x3000, abi, nil, block)

		Expect(ok).To(BeTrue())
		Expect(dres.Len).To(Equal(2))
	})
})
