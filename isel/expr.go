package isel

import (
	"github.com/sarchlab/rv64xlate/hostisa"
	"github.com/sarchlab/rv64xlate/ir"
)

// selectExpr lowers e into a sequence of instructions appended to s.instrs
// and returns the register holding its value. Widening/narrowing unops
// that are no-ops under the sign-extension canonicalization invariant
// (§4.2) compile to nothing: the source register already holds a
// correctly-extended 64-bit value.
func (s *Selector) selectExpr(e *ir.Expr) hostisa.Reg {
	switch e.Kind {
	case ir.ExprConst:
		return s.materialize(e.ConstVal)

	case ir.ExprTmp:
		reg, ok := s.temps[e.Tmp.ID]
		if !ok {
			ir.Invariant("isel: read of temp t%d before it was written", e.Tmp.ID)
		}
		return reg

	case ir.ExprGet:
		dst := s.freshInt()
		s.emit(hostisa.Instr{
			Op: hostisa.OpLD, Rd: dst, Rs1: hostisa.PhysicalInt(hostisa.RegS0),
			Imm: e.GetOffset - hostisa.BaseBlockOffsetAdjust,
		})
		return dst

	case ir.ExprLoad:
		addr := s.selectExpr(e.LoadAddr)
		dst := s.freshInt()
		// ExprLoad's result is exactly the requested width; the decoder's
		// surrounding SignExtendTo64/ZeroExtendTo64 wrapper (always
		// present per the canonicalization invariant) supplies the
		// sign/zero-extend semantics. A load reached here is selected in
		// its signed form; a ZeroExtend wrapper is caught in selectUnop,
		// which selects the unsigned load there instead.
		s.emit(hostisa.Instr{Op: loadOpForWidth(e.Typ, true), Rd: dst, Rs1: addr})
		return dst

	case ir.ExprUnop:
		return s.selectUnop(e)

	case ir.ExprBinop:
		return s.selectBinop(e)

	case ir.ExprITE:
		return s.selectITE(e)

	default:
		ir.Invariant("isel: unhandled expression kind %d", e.Kind)
		return hostisa.Reg{}
	}
}

// materialize emits the minimal instruction sequence to load a 64-bit
// constant into a fresh register: ADDI alone when it fits in 12 bits,
// otherwise the full LI pseudo-op the emitter expands (§4.5/§4.6's
// "addr48_to_ireg" family is the specialized 18-byte variant of this used
// for chain-target materialization).
func (s *Selector) materialize(v uint64) hostisa.Reg {
	dst := s.freshInt()
	sv := int64(v)
	if sv >= -(1<<11) && sv < (1<<11) {
		s.emit(hostisa.Instr{Op: hostisa.OpADDI, Rd: dst, Rs1: hostisa.PhysicalInt(hostisa.RegZero), Imm: sv})
		return dst
	}
	s.emit(hostisa.Instr{Op: hostisa.OpLI, Rd: dst, Imm: sv})
	return dst
}

func (s *Selector) selectUnop(e *ir.Expr) hostisa.Reg {
	// mulh/mulhu/mull-pair selection: recognize Unop(High/LowHalfOf128,
	// Binop(MullS64/MullU64/DivModS64to64/DivModU64to64, a, b)) and emit
	// the single host instruction that directly produces the requested
	// half, rather than materializing a 128-bit value that has no host
	// register to live in.
	if e.UnopOp == ir.UnopHighHalfOf128 || e.UnopOp == ir.UnopLowHalfOf128 {
		if wide := e.UnopArg; wide.Kind == ir.ExprBinop {
			if op, ok := widePairOp(wide.BinopOp, e.UnopOp == ir.UnopHighHalfOf128); ok {
				a := s.selectExpr(wide.BinopArg0)
				b := s.selectExpr(wide.BinopArg1)
				dst := s.freshInt()
				s.emit(hostisa.Instr{Op: op, Rd: dst, Rs1: a, Rs2: b})
				return dst
			}
		}
	}

	switch e.UnopOp {
	case ir.UnopZeroExtend8to64, ir.UnopZeroExtend16to64, ir.UnopZeroExtend32to64:
		// lbu/lhu/lwu: the unsigned load zero-extends in hardware.
		if ld := e.UnopArg; ld.Kind == ir.ExprLoad {
			addr := s.selectExpr(ld.LoadAddr)
			dst := s.freshInt()
			s.emit(hostisa.Instr{Op: loadOpForWidth(ld.Typ, false), Rd: dst, Rs1: addr})
			return dst
		}
	}

	arg := s.selectExpr(e.UnopArg)

	switch e.UnopOp {
	case ir.UnopSignExtend8to64, ir.UnopSignExtend16to64, ir.UnopSignExtend32to64,
		ir.UnopZeroExtend8to64, ir.UnopZeroExtend16to64, ir.UnopZeroExtend32to64, ir.UnopZeroExtend1to64:
		// Already canonicalized at the source; a plain move suffices.
		dst := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpMV, Rd: dst, Rs1: arg})
		return dst

	case ir.UnopTrunc64to32:
		dst := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpADDIW, Rd: dst, Rs1: arg, Imm: 0})
		return dst

	case ir.UnopTrunc64to16, ir.UnopTrunc64to8, ir.UnopTrunc64to1:
		// Realized as a shift-left / arithmetic-shift-right pair, per
		// §4.2's narrowing-truncation note.
		shift := int64(64 - e.Typ.Bits())
		t1 := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpSLLI, Rd: t1, Rs1: arg, Imm: shift})
		dst := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpSRAI, Rd: dst, Rs1: t1, Imm: shift})
		return dst

	case ir.UnopNeg64:
		dst := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpSUB, Rd: dst, Rs1: hostisa.PhysicalInt(hostisa.RegZero), Rs2: arg})
		return dst

	case ir.UnopNot64:
		dst := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpXORI, Rd: dst, Rs1: arg, Imm: -1})
		return dst

	case ir.UnopNot1:
		dst := s.freshInt()
		s.emit(hostisa.Instr{Op: hostisa.OpSLTIU, Rd: dst, Rs1: arg, Imm: 1})
		return dst

	default:
		ir.Invariant("isel: unhandled unop %d", e.UnopOp)
		return hostisa.Reg{}
	}
}

// widePairOp maps a 128-bit-producing binop and a hi/lo selector to the
// single real instruction that computes that half directly.
func widePairOp(op ir.Binop, high bool) (hostisa.Op, bool) {
	switch op {
	case ir.OpMullS64:
		if high {
			return hostisa.OpMULH, true
		}
		return hostisa.OpMUL, true
	case ir.OpMullU64:
		if high {
			return hostisa.OpMULHU, true
		}
		return hostisa.OpMUL, true
	case ir.OpDivModS64to64:
		if high {
			return hostisa.OpREM, true
		}
		return hostisa.OpDIV, true
	case ir.OpDivModU64to64:
		if high {
			return hostisa.OpREMU, true
		}
		return hostisa.OpDIVU, true
	default:
		return 0, false
	}
}

var binopTable = map[ir.Binop]hostisa.Op{
	ir.OpAdd64: hostisa.OpADD, ir.OpSub64: hostisa.OpSUB,
	ir.OpAnd64: hostisa.OpAND, ir.OpOr64: hostisa.OpOR, ir.OpXor64: hostisa.OpXOR,
	ir.OpShl64: hostisa.OpSLL, ir.OpShrL64: hostisa.OpSRL, ir.OpShrA64: hostisa.OpSRA,
	ir.OpAdd32: hostisa.OpADDW, ir.OpSub32: hostisa.OpSUBW,
	ir.OpAnd32: hostisa.OpAND, ir.OpOr32: hostisa.OpOR, ir.OpXor32: hostisa.OpXOR,
	ir.OpShl32: hostisa.OpSLLW, ir.OpShrL32: hostisa.OpSRLW, ir.OpShrA32: hostisa.OpSRAW,

	ir.OpMul64: hostisa.OpMUL, ir.OpMul32: hostisa.OpMULW,
	ir.OpDivS64: hostisa.OpDIV, ir.OpDivU64: hostisa.OpDIVU,
	ir.OpRemS64: hostisa.OpREM, ir.OpRemU64: hostisa.OpREMU,
	ir.OpDivS32: hostisa.OpDIVW, ir.OpDivU32: hostisa.OpDIVUW,
	ir.OpRemS32: hostisa.OpREMW, ir.OpRemU32: hostisa.OpREMUW,

	// AMO "compute new value from old+operand" ops lower to plain ALU
	// instructions here: the decoder's AMO lowering (decoder/rv64a.go)
	// already isolates the atomic memory transition into a separate CAS
	// statement, so by the time this binop is selected it is pure
	// register arithmetic. Swap is special-cased in selectBinop instead
	// (it needs no instruction at all); the min/max family never reaches
	// this table — the decoder builds those directly as ir.ITE, lowered
	// by selectITE's conditional-select pseudo.
	ir.OpAmoAdd: hostisa.OpADD, ir.OpAmoXor: hostisa.OpXOR,
	ir.OpAmoAnd: hostisa.OpAND, ir.OpAmoOr: hostisa.OpOR,
}

var cmpOps = map[ir.Binop]hostisa.Op{
	ir.OpCmpEQ64: hostisa.OpBEQ, ir.OpCmpNE64: hostisa.OpBNE,
	ir.OpCmpLTS64: hostisa.OpBLT, ir.OpCmpLTU64: hostisa.OpBLTU,
	ir.OpCmpGES64: hostisa.OpBGE, ir.OpCmpGEU64: hostisa.OpBGEU,
	ir.OpCmpLES64: hostisa.OpBGE, ir.OpCmpGTS64: hostisa.OpBLT, // swapped-operand forms; handled by selectCompare
	ir.OpCmpLEU64: hostisa.OpBGEU, ir.OpCmpGTU64: hostisa.OpBLTU,
	ir.OpCmpEQ32: hostisa.OpBEQ, ir.OpCmpNE32: hostisa.OpBNE,
	ir.OpCmpLTS32: hostisa.OpBLT, ir.OpCmpLTU32: hostisa.OpBLTU,
}

func (s *Selector) selectBinop(e *ir.Expr) hostisa.Reg {
	if branchOp, ok := cmpOps[e.BinopOp]; ok {
		return s.selectCompare(e, branchOp)
	}
	if e.BinopOp == ir.OpAmoSwap {
		// The new value simply is the operand; no instruction needed.
		return s.selectExpr(e.BinopArg1)
	}

	op, ok := binopTable[e.BinopOp]
	if !ok {
		ir.Invariant("isel: unhandled binop %d", e.BinopOp)
	}
	a := s.selectExpr(e.BinopArg0)
	b := s.selectExpr(e.BinopArg1)
	dst := s.freshInt()
	s.emit(hostisa.Instr{Op: op, Rd: dst, Rs1: a, Rs2: b})
	return dst
}

// selectCompare materializes a 0/1 boolean result from a comparison: host
// RV64 has no integer compare-into-register beyond slt/sltu, and every
// relation, the ones slt/sltu could compute included, is built here from a
// 4-instruction local branch-around (branch-if-true, set 0, jump past,
// set 1). Target fields here are local
// instruction indices, the same convention selectCAS uses for its retry
// branch; the emitter resolves both the same way. swap indicates operands
// need to be swapped first (LE/GT forms reuse the GE/LT branch with
// arguments exchanged).
func (s *Selector) selectCompare(e *ir.Expr, branchOp hostisa.Op) hostisa.Reg {
	a := s.selectExpr(e.BinopArg0)
	b := s.selectExpr(e.BinopArg1)
	if swapsOperands(e.BinopOp) {
		a, b = b, a
	}

	dst := s.freshInt()
	base := len(s.instrs)
	// base+0: branch to settrue (base+3) if the comparison holds.
	s.emit(hostisa.Instr{Op: branchOp, Rs1: a, Rs2: b, Target: uint64(base + 3)})
	// base+1: comparison false: dst = 0, then jump past settrue.
	s.emit(hostisa.Instr{Op: hostisa.OpADDI, Rd: dst, Rs1: hostisa.PhysicalInt(hostisa.RegZero), Imm: 0})
	s.emit(hostisa.Instr{Op: hostisa.OpJAL, Rd: hostisa.PhysicalInt(hostisa.RegZero), Target: uint64(base + 4)})
	// base+3: comparison true: dst = 1.
	s.emit(hostisa.Instr{Op: hostisa.OpADDI, Rd: dst, Rs1: hostisa.PhysicalInt(hostisa.RegZero), Imm: 1})
	return dst
}

func swapsOperands(op ir.Binop) bool {
	switch op {
	case ir.OpCmpLES64, ir.OpCmpGTS64, ir.OpCmpLEU64, ir.OpCmpGTU64:
		return true
	default:
		return false
	}
}

// selectITE lowers an if-then-else value expression to the conditional-
// select pseudo-instruction: Rd = cond != 0 ? then : else. The emitter
// expands OpCSEL into a branch-over-move pair.
func (s *Selector) selectITE(e *ir.Expr) hostisa.Reg {
	cond := s.selectExpr(e.ITECond)
	thenReg := s.selectExpr(e.ITEThen)
	elseReg := s.selectExpr(e.ITEElse)

	dst := s.freshInt()
	s.emit(hostisa.Instr{Op: hostisa.OpCSEL, Rd: dst, Rs1: cond, Rs2: thenReg, Rs3: elseReg})
	return dst
}
