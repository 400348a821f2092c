package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/ir"
)

var _ = Describe("PutReg32S", func() {
	It("should wrap the value in a trunc-then-sign-extend pair", func() {
		stmt := ir.PutReg32S(0x10, ir.Const(ir.I32, 0xFFFFFFFF))

		Expect(stmt.Kind).To(Equal(ir.StmtPut))
		Expect(stmt.PutOffset).To(Equal(int64(0x10)))

		outer := stmt.PutValue
		Expect(outer.Kind).To(Equal(ir.ExprUnop))
		Expect(outer.UnopOp).To(Equal(ir.UnopSignExtend32to64))
		Expect(outer.Typ).To(Equal(ir.I64))

		inner := outer.UnopArg
		Expect(inner.Kind).To(Equal(ir.ExprUnop))
		Expect(inner.UnopOp).To(Equal(ir.UnopTrunc64to32))
		Expect(inner.Typ).To(Equal(ir.I32))
	})
})

var _ = Describe("PutRegSX", func() {
	DescribeTable("should select the trunc/extend pair matching width n",
		func(n int, trunc, ext ir.Unop) {
			stmt := ir.PutRegSX(0, n, ir.Const(ir.I64, 1))
			Expect(stmt.PutValue.UnopOp).To(Equal(ext))
			Expect(stmt.PutValue.UnopArg.UnopOp).To(Equal(trunc))
		},
		Entry("8 bits", 8, ir.UnopTrunc64to8, ir.UnopSignExtend8to64),
		Entry("16 bits", 16, ir.UnopTrunc64to16, ir.UnopSignExtend16to64),
		Entry("32 bits", 32, ir.UnopTrunc64to32, ir.UnopSignExtend32to64),
	)

	It("should raise an invariant violation for an unsupported width", func() {
		Expect(func() { ir.PutRegSX(0, 7, ir.Const(ir.I64, 1)) }).To(Panic())
	})
})

var _ = Describe("PutReg1Z", func() {
	It("should zero-extend a 1-bit value to 64 bits", func() {
		stmt := ir.PutReg1Z(0, ir.Const(ir.I1, 1))
		Expect(stmt.PutValue.UnopOp).To(Equal(ir.UnopZeroExtend1to64))
	})
})

var _ = Describe("SignExtendTo64 and ZeroExtendTo64", func() {
	It("should pass a 64-bit value through unchanged", func() {
		v := ir.Const(ir.I64, 7)
		Expect(ir.SignExtendTo64(64, v)).To(BeIdenticalTo(v))
		Expect(ir.ZeroExtendTo64(64, v)).To(BeIdenticalTo(v))
	})

	It("should wrap narrower widths in the matching extension unop", func() {
		v := ir.Const(ir.I16, 7)
		Expect(ir.SignExtendTo64(16, v).UnopOp).To(Equal(ir.UnopSignExtend16to64))
		Expect(ir.ZeroExtendTo64(16, v).UnopOp).To(Equal(ir.UnopZeroExtend16to64))
	})
})

var _ = Describe("TypeForWidth", func() {
	DescribeTable("should map bit widths to their IR type",
		func(n int, want ir.Type) { Expect(ir.TypeForWidth(n)).To(Equal(want)) },
		Entry("1", 1, ir.I1),
		Entry("8", 8, ir.I8),
		Entry("16", 16, ir.I16),
		Entry("32", 32, ir.I32),
		Entry("64", 64, ir.I64),
	)
})
