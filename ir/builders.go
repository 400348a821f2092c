package ir

// This file collects the helper constructors the decoder calls while
// appending statements to a Block. Naming follows the teacher's
// verb+width convention (see emu/alu.go's ADD64/ADD32Imm), but every
// helper here builds an IR node rather than performing the operation.

// PutReg32S narrows value to 32 bits and sign-extends it back to 64 before
// writing it to the guest integer register at offset. This is the single
// non-obvious contract in the builder layer (§4.2): every guest integer
// register holds a canonical sign-extended value at IR block boundaries,
// so every writer that produces a narrower result must funnel through
// this helper rather than Put directly.
func PutReg32S(offset int64, value32 *Expr) Stmt {
	narrowed := UnopExpr(UnopTrunc64to32, I32, value32)
	widened := UnopExpr(UnopSignExtend32to64, I64, narrowed)
	return Put(offset, widened)
}

// PutRegSX narrows value to n bits (8, 16, or 32) and sign-extends it back
// to 64 before writing it to the guest integer register at offset. Used by
// sub-word ALU results (e.g. the W-form instructions, which always narrow
// from 32).
func PutRegSX(offset int64, n int, value *Expr) Stmt {
	var trunc Unop
	var ext Unop
	var tt Type
	switch n {
	case 8:
		trunc, ext, tt = UnopTrunc64to8, UnopSignExtend8to64, I8
	case 16:
		trunc, ext, tt = UnopTrunc64to16, UnopSignExtend16to64, I16
	case 32:
		trunc, ext, tt = UnopTrunc64to32, UnopSignExtend32to64, I32
	default:
		Invariant("ir: PutRegSX called with width %d", n)
	}
	narrowed := UnopExpr(trunc, tt, value)
	widened := UnopExpr(ext, I64, narrowed)
	return Put(offset, widened)
}

// PutReg1Z zero-extends a 1-bit logical value to 64 bits before writing it
// to the guest register at offset, per the "1-bit logical values are
// zero-extended" invariant of §3.
func PutReg1Z(offset int64, value1 *Expr) Stmt {
	widened := UnopExpr(UnopZeroExtend1to64, I64, value1)
	return Put(offset, widened)
}

// SignExtendTo64 wraps value (of width n bits) in the appropriate
// sign-extension unop to reach I64. n must be 8, 16, or 32; for n == 64 it
// returns value unchanged.
func SignExtendTo64(n int, value *Expr) *Expr {
	switch n {
	case 8:
		return UnopExpr(UnopSignExtend8to64, I64, value)
	case 16:
		return UnopExpr(UnopSignExtend16to64, I64, value)
	case 32:
		return UnopExpr(UnopSignExtend32to64, I64, value)
	case 64:
		return value
	default:
		Invariant("ir: SignExtendTo64 called with width %d", n)
		return nil
	}
}

// ZeroExtendTo64 wraps value (of width n bits) in the appropriate
// zero-extension unop to reach I64.
func ZeroExtendTo64(n int, value *Expr) *Expr {
	switch n {
	case 8:
		return UnopExpr(UnopZeroExtend8to64, I64, value)
	case 16:
		return UnopExpr(UnopZeroExtend16to64, I64, value)
	case 32:
		return UnopExpr(UnopZeroExtend32to64, I64, value)
	case 64:
		return value
	default:
		Invariant("ir: ZeroExtendTo64 called with width %d", n)
		return nil
	}
}

// TypeForWidth maps a bit width to its IR Type.
func TypeForWidth(n int) Type {
	switch n {
	case 1:
		return I1
	case 8:
		return I8
	case 16:
		return I16
	case 32:
		return I32
	case 64:
		return I64
	default:
		Invariant("ir: TypeForWidth called with width %d", n)
		return I64
	}
}
