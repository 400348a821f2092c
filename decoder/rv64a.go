package decoder

import "github.com/sarchlab/rv64xlate/ir"

// RV64A funct5 values (bits [31:27]).
const (
	amoF5LR      = 0b00010
	amoF5SC      = 0b00011
	amoF5SWAP    = 0b00001
	amoF5ADD     = 0b00000
	amoF5XOR     = 0b00100
	amoF5AND     = 0b01100
	amoF5OR      = 0b01000
	amoF5MIN     = 0b10000
	amoF5MAX     = 0b10100
	amoF5MINU    = 0b11000
	amoF5MAXU    = 0b11100
)

func amoWidth(f3 uint32) (int, ir.Type) {
	switch f3 {
	case 0b010:
		return 32, ir.I32
	case 0b011:
		return 64, ir.I64
	default:
		ir.Invariant("decoder: unsupported AMO width funct3 %#o", f3)
		return 0, ir.I64
	}
}

func decodeAMO(word uint32, pc uint64, abi ABI, block *ir.Block) {
	f5 := (word >> 27) & 0x1F
	f3 := funct3(word)
	aq := (word>>26)&1 == 1
	rl := (word>>25)&1 == 1
	width, ty := amoWidth(f3)
	// Snapshot rs1 before any write to rd, so rd == rs1 still sees the
	// original address.
	addrTmp := block.NewTemp(ir.I64)
	block.Append(ir.WrTmp(addrTmp, getReg(rs1(word))))
	addr := ir.ReadTmp(addrTmp)

	if aq {
		block.Append(ir.MemBarrier())
	}

	switch f5 {
	case amoF5LR:
		decodeLR(word, addr, width, ty, abi, block)
	case amoF5SC:
		decodeSC(word, addr, width, ty, abi, block, pc)
	default:
		decodeAMOArith(word, pc, f5, addr, width, ty, block)
	}

	if rl {
		block.Append(ir.MemBarrier())
	}
}

func decodeLR(word uint32, addr *ir.Expr, width int, ty ir.Type, abi ABI, block *ir.Block) {
	result := block.NewTemp(ty)
	block.Append(ir.LoadLinked(result, ty, addr))
	val := ir.SignExtendTo64(width, ir.ReadTmp(result))
	putRd(word, val, block)

	if !abi.LLSCNative {
		// Fallback mode: record (address, sign-extended value, size) so a
		// later SC can validate its transaction against this snapshot.
		block.Append(ir.Put(llscAddrOff, addr))
		block.Append(ir.Put(llscDataOff, val))
		block.Append(ir.Put(llscSizeOff, ir.Const(ir.I64, uint64(width))))
	}
}

func decodeSC(word uint32, addr *ir.Expr, width int, ty ir.Type, abi ABI, block *ir.Block, pc uint64) {
	src := narrowFrom64(width, ty, getReg(rs2(word)))

	if abi.LLSCNative {
		result := block.NewTemp(ir.I1)
		block.Append(ir.StoreConditional(result, ty, addr, src))
		// IR primitive convention is 1-on-success; RISC-V wants
		// 0-on-success, so invert before writing rd.
		fail := ir.UnopExpr(ir.UnopNot1, ir.I1, ir.ReadTmp(result))
		putRd(word, ir.ZeroExtendTo64(1, fail), block)
		return
	}

	// Fallback emulation (§4.1): assume failure, then validate the
	// recorded transaction before attempting the real compare-and-swap.
	d := rd(word)
	if d != 0 {
		block.Append(ir.Put(regOffset(d), ir.Const(ir.I64, 1)))
	}

	recordedSize := ir.Get(ir.I64, llscSizeOff)
	recordedAddr := ir.Get(ir.I64, llscAddrOff)
	recordedData := ir.Get(ir.I64, llscDataOff)

	// Atomically invalidate the transaction: a racing SC on another
	// thread sharing this pseudo-state slot can no longer observe it.
	block.Append(ir.Put(llscSizeOff, ir.Const(ir.I64, 0)))

	sizeMatch := ir.BinopExpr(ir.OpCmpEQ64, ir.I1, recordedSize, ir.Const(ir.I64, uint64(width)))
	addrMatch := ir.BinopExpr(ir.OpCmpEQ64, ir.I1, recordedAddr, addr)
	curVal := ir.SignExtendTo64(width, ir.Load(ty, addr))
	valMatch := ir.BinopExpr(ir.OpCmpEQ64, ir.I1, recordedData, curVal)

	allMatch := ir.BinopExpr(ir.OpAnd64, ir.I1, ir.BinopExpr(ir.OpAnd64, ir.I1, sizeMatch, addrMatch), valMatch)
	mismatch := ir.UnopExpr(ir.UnopNot1, ir.I1, allMatch)

	// On mismatch, stop here: rd is already the failure value (1).
	block.Append(ir.Exit(mismatch, ir.JkBoring, pc+4, 4))

	// Transaction still valid: attempt the real CAS against the
	// recorded value.
	oldVal := block.NewTemp(ty)
	expected := narrowFrom64(width, ty, recordedData)
	block.Append(ir.CAS(oldVal, ty, addr, expected, src))

	casOk := ir.BinopExpr(ir.OpCmpEQ64, ir.I1,
		ir.SignExtendTo64(width, ir.ReadTmp(oldVal)), recordedData)
	if d != 0 {
		fail := ir.UnopExpr(ir.UnopNot1, ir.I1, casOk)
		block.Append(ir.Put(regOffset(d), ir.ZeroExtendTo64(1, fail)))
	}
}

// narrowFrom64 narrows a 64-bit expression down to width (32 or 64) bits,
// producing type ty. The 64-bit case is already the right width and is
// passed through unchanged.
func narrowFrom64(width int, ty ir.Type, e *ir.Expr) *ir.Expr {
	if width == 64 {
		return e
	}
	return ir.UnopExpr(ir.UnopTrunc64to32, ty, e)
}

var amoBinops = map[uint32]ir.Binop{
	amoF5SWAP: ir.OpAmoSwap,
	amoF5ADD:  ir.OpAmoAdd,
	amoF5XOR:  ir.OpAmoXor,
	amoF5AND:  ir.OpAmoAnd,
	amoF5OR:   ir.OpAmoOr,
}

// amoMinMaxValue builds the min/max family's new-value expression as an
// ITE over a width-matched comparison of the narrow (pre-sign-extension)
// old/operand values — the same narrow-compare convention decodeAMOArith
// already uses for its CAS-retry check below. ok is false for any funct5
// outside the min/max family, so the caller falls back to amoBinops.
func amoMinMaxValue(f5 uint32, width int, ty ir.Type, oldRaw, old64, operand *ir.Expr) (*ir.Expr, bool) {
	signed := f5 == amoF5MIN || f5 == amoF5MAX
	takeMax := f5 == amoF5MAX || f5 == amoF5MAXU
	switch f5 {
	case amoF5MIN, amoF5MAX, amoF5MINU, amoF5MAXU:
	default:
		return nil, false
	}

	cmp := ir.OpCmpLTU64
	switch {
	case signed && width == 64:
		cmp = ir.OpCmpLTS64
	case signed && width == 32:
		cmp = ir.OpCmpLTS32
	case !signed && width == 32:
		cmp = ir.OpCmpLTU32
	}

	operandNarrow := narrowFrom64(width, ty, operand)
	cond := ir.BinopExpr(cmp, ir.I1, oldRaw, operandNarrow)
	if takeMax {
		return ir.ITE(cond, operand, old64), true
	}
	return ir.ITE(cond, old64, operand), true
}

// decodeAMOArith lowers amo<op>.{w,d}: read current memory value, compute
// the new value, CAS it back against the value just read, and on CAS
// failure branch back to the same guest PC to retry (§4.1).
func decodeAMOArith(word uint32, pc uint64, f5 uint32, addr *ir.Expr, width int, ty ir.Type, block *ir.Block) {
	oldRaw := block.NewTemp(ty)
	block.Append(ir.WrTmp(oldRaw, ir.Load(ty, addr)))
	old64 := ir.SignExtendTo64(width, ir.ReadTmp(oldRaw))

	operand := getReg(rs2(word))
	newVal64, ok := amoMinMaxValue(f5, width, ty, ir.ReadTmp(oldRaw), old64, operand)
	if !ok {
		op, isOp := amoBinops[f5]
		if !isOp {
			ir.Invariant("decoder: unknown AMO funct5 %#05b", f5)
		}
		newVal64 = ir.BinopExpr(op, ir.I64, old64, operand)
	}
	newNarrow := narrowFrom64(width, ty, newVal64)

	casOld := block.NewTemp(ty)
	block.Append(ir.CAS(casOld, ty, addr, ir.ReadTmp(oldRaw), newNarrow))

	cmpNE := ir.OpCmpNE64
	if width == 32 {
		cmpNE = ir.OpCmpNE32
	}
	casFailed := ir.BinopExpr(cmpNE, ir.I1, ir.ReadTmp(casOld), ir.ReadTmp(oldRaw))
	block.Append(ir.Exit(casFailed, ir.JkBoring, pc, 0))

	putRd(word, old64, block)
}
