package decoder

import (
	"github.com/sarchlab/rv64xlate/ir"
)

// Opcode field values (bits [6:0]).
const (
	opLUI     = 0b0110111
	opAUIPC   = 0b0010111
	opJAL     = 0b1101111
	opJALR    = 0b1100111
	opBranch  = 0b1100011
	opLoad    = 0b0000011
	opStore   = 0b0100011
	opImm     = 0b0010011
	opReg     = 0b0110011
	opImm32   = 0b0011011
	opReg32   = 0b0111011
	opMiscMem = 0b0001111
	opSystem  = 0b1110011
	opAMO     = 0b0101111
)

func (d *Decoder) decode32(word uint32, pc uint64, abi ABI, block *ir.Block) (DisResult, bool) {
	opcode := word & 0x7F

	switch opcode {
	case opLUI:
		decodeLUI(word, block)
		return contResult(4), true
	case opAUIPC:
		decodeAUIPC(word, pc, block)
		return contResult(4), true
	case opJAL:
		return decodeJAL(word, pc, block), true
	case opJALR:
		return decodeJALR(word, pc, block), true
	case opBranch:
		return decodeBranch(word, pc, block), true
	case opLoad:
		decodeLoad(word, block)
		return contResult(4), true
	case opStore:
		decodeStore(word, block)
		return contResult(4), true
	case opImm:
		decodeOpImm(word, block)
		return contResult(4), true
	case opImm32:
		decodeOpImm32(word, block)
		return contResult(4), true
	case opReg:
		funct7 := (word >> 25) & 0x7F
		if funct7 == 0b0000001 {
			decodeMulDivReg(word, block, false)
		} else {
			decodeOpReg(word, block)
		}
		return contResult(4), true
	case opReg32:
		funct7 := (word >> 25) & 0x7F
		if funct7 == 0b0000001 {
			decodeMulDivReg(word, block, true)
		} else {
			decodeOpReg32(word, block)
		}
		return contResult(4), true
	case opMiscMem:
		block.Append(ir.MemBarrier())
		return contResult(4), true
	case opSystem:
		return decodeSystem(word, pc, block)
	case opAMO:
		decodeAMO(word, pc, abi, block)
		return contResult(4), true
	default:
		return DisResult{}, false
	}
}

func contResult(n int) DisResult { return DisResult{Len: n, WhatNext: Continue} }

func rd(word uint32) uint8 { return uint8((word >> 7) & 0x1F) }
func rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }
func funct3(word uint32) uint32 { return (word >> 12) & 0x7 }

// immI extracts and sign-extends the I-type 12-bit immediate.
func immI(word uint32) int64 {
	raw := uint64(word >> 20)
	return signExtend(raw, 12)
}

// immS extracts and sign-extends the S-type 12-bit immediate.
func immS(word uint32) int64 {
	raw := uint64(((word>>25)&0x7F)<<5 | (word>>7)&0x1F)
	return signExtend(raw, 12)
}

// immB extracts and sign-extends the B-type 13-bit (LSB implicit zero)
// branch immediate.
func immB(word uint32) int64 {
	b12 := (word >> 31) & 0x1
	b11 := (word >> 7) & 0x1
	b10_5 := (word >> 25) & 0x3F
	b4_1 := (word >> 8) & 0xF
	raw := uint64(b12<<12 | b11<<11 | b10_5<<5 | b4_1<<1)
	return signExtend(raw, 13)
}

// immU extracts the U-type 20-bit immediate already shifted into [31:12].
func immU(word uint32) int64 {
	return int64(int32(word & 0xFFFFF000))
}

// immJ extracts and sign-extends the J-type 21-bit (LSB implicit zero)
// jump immediate.
func immJ(word uint32) int64 {
	b20 := (word >> 31) & 0x1
	b19_12 := (word >> 12) & 0xFF
	b11 := (word >> 20) & 0x1
	b10_1 := (word >> 21) & 0x3FF
	raw := uint64(b20<<20 | b19_12<<12 | b11<<11 | b10_1<<1)
	return signExtend(raw, 21)
}

func putRd(word uint32, value *ir.Expr, block *ir.Block) {
	d := rd(word)
	if d == 0 {
		return // zero-register discipline: never emit a write to x0
	}
	block.Append(ir.Put(regOffset(d), value))
}

func getReg(r uint8) *ir.Expr {
	if r == 0 {
		return ir.Const(ir.I64, 0)
	}
	return ir.Get(ir.I64, regOffset(r))
}

func decodeLUI(word uint32, block *ir.Block) {
	val := ir.Const(ir.I64, uint64(immU(word)))
	putRd(word, val, block)
}

func decodeAUIPC(word uint32, pc uint64, block *ir.Block) {
	val := ir.BinopExpr(ir.OpAdd64, ir.I64, ir.Const(ir.I64, pc), ir.Const(ir.I64, uint64(immU(word))))
	putRd(word, val, block)
}

func decodeJAL(word uint32, pc uint64, block *ir.Block) DisResult {
	offset := immJ(word)
	target := uint64(int64(pc) + offset)
	d := rd(word)
	if d != 0 {
		block.Append(ir.Put(regOffset(d), ir.Const(ir.I64, pc+4)))
	}
	block.Append(ir.Put(pcOffset, ir.Const(ir.I64, target)))
	jk := ir.JkBoring
	if d != 0 {
		jk = ir.JkCall
	}
	block.Append(ir.Exit(nil, jk, target, 4))
	return DisResult{Len: 4, WhatNext: StopHere, JkStopHere: jk}
}

func decodeJALR(word uint32, pc uint64, block *ir.Block) DisResult {
	offset := immI(word)
	base := getReg(rs1(word))
	target := ir.BinopExpr(ir.OpAdd64, ir.I64, base, ir.Const(ir.I64, uint64(offset)))
	// Clear bit 0, per the RISC-V JALR contract.
	target = ir.BinopExpr(ir.OpAnd64, ir.I64, target, ir.Const(ir.I64, ^uint64(1)))

	tmp := block.NewTemp(ir.I64)
	block.Append(ir.WrTmp(tmp, target))

	d := rd(word)
	if d != 0 {
		block.Append(ir.Put(regOffset(d), ir.Const(ir.I64, pc+4)))
	}
	block.Append(ir.Put(pcOffset, ir.ReadTmp(tmp)))

	jk := ir.JkBoring
	switch {
	case d != 0:
		jk = ir.JkCall
	case rd(word) == 0 && rs1(word) == 1 && offset == 0:
		jk = ir.JkRet
	}
	block.Append(ir.Exit(nil, jk, 0, 4))
	return DisResult{Len: 4, WhatNext: StopHere, JkStopHere: jk}
}

var branchCmpOps = map[uint32]ir.Binop{
	0b000: ir.OpCmpEQ64,
	0b001: ir.OpCmpNE64,
	0b100: ir.OpCmpLTS64,
	0b101: ir.OpCmpGES64,
	0b110: ir.OpCmpLTU64,
	0b111: ir.OpCmpGEU64,
}

func decodeBranch(word uint32, pc uint64, block *ir.Block) DisResult {
	f3 := funct3(word)
	op, ok := branchCmpOps[f3]
	if !ok {
		ir.Invariant("decoder: unknown branch funct3 %#o", f3)
	}
	guard := ir.BinopExpr(op, ir.I1, getReg(rs1(word)), getReg(rs2(word)))
	target := uint64(int64(pc) + immB(word))
	block.Append(ir.Exit(guard, ir.JkBoring, target, 4))
	block.Append(ir.Exit(nil, ir.JkBoring, pc+4, 4))
	return DisResult{Len: 4, WhatNext: StopHere, JkStopHere: ir.JkBoring}
}

func decodeLoad(word uint32, block *ir.Block) {
	f3 := funct3(word)
	addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rs1(word)), ir.Const(ir.I64, uint64(immI(word))))

	var loadTy ir.Type
	var extend func(int, *ir.Expr) *ir.Expr
	var width int
	switch f3 {
	case 0b000: // lb
		width, loadTy, extend = 8, ir.I8, ir.SignExtendTo64
	case 0b001: // lh
		width, loadTy, extend = 16, ir.I16, ir.SignExtendTo64
	case 0b010: // lw
		width, loadTy, extend = 32, ir.I32, ir.SignExtendTo64
	case 0b011: // ld
		width, loadTy, extend = 64, ir.I64, ir.SignExtendTo64
	case 0b100: // lbu
		width, loadTy, extend = 8, ir.I8, ir.ZeroExtendTo64
	case 0b101: // lhu
		width, loadTy, extend = 16, ir.I16, ir.ZeroExtendTo64
	case 0b110: // lwu
		width, loadTy, extend = 32, ir.I32, ir.ZeroExtendTo64
	default:
		ir.Invariant("decoder: unknown load funct3 %#o", f3)
		return
	}
	loaded := ir.Load(loadTy, addr)
	val := extend(width, loaded)
	putRd(word, val, block)
}

func decodeStore(word uint32, block *ir.Block) {
	f3 := funct3(word)
	addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rs1(word)), ir.Const(ir.I64, uint64(immS(word))))
	src := getReg(rs2(word))

	var width int
	switch f3 {
	case 0b000:
		width = 8
	case 0b001:
		width = 16
	case 0b010:
		width = 32
	case 0b011:
		width = 64
	default:
		ir.Invariant("decoder: unknown store funct3 %#o", f3)
	}
	var narrowed *ir.Expr
	switch width {
	case 8:
		narrowed = ir.UnopExpr(ir.UnopTrunc64to8, ir.I8, src)
	case 16:
		narrowed = ir.UnopExpr(ir.UnopTrunc64to16, ir.I16, src)
	case 32:
		narrowed = ir.UnopExpr(ir.UnopTrunc64to32, ir.I32, src)
	default:
		narrowed = src
	}
	block.Append(ir.Store(addr, narrowed))
}

func decodeOpImm(word uint32, block *ir.Block) {
	f3 := funct3(word)
	src := getReg(rs1(word))
	shamt6 := uint64((word >> 20) & 0x3F)

	switch f3 {
	case 0b000: // addi
		val := ir.BinopExpr(ir.OpAdd64, ir.I64, src, ir.Const(ir.I64, uint64(immI(word))))
		putRd(word, val, block)
	case 0b010: // slti
		val := ir.BinopExpr(ir.OpCmpLTS64, ir.I1, src, ir.Const(ir.I64, uint64(immI(word))))
		putRd(word, ir.ZeroExtendTo64(1, val), block)
	case 0b011: // sltiu
		val := ir.BinopExpr(ir.OpCmpLTU64, ir.I1, src, ir.Const(ir.I64, uint64(immI(word))))
		putRd(word, ir.ZeroExtendTo64(1, val), block)
	case 0b100: // xori
		val := ir.BinopExpr(ir.OpXor64, ir.I64, src, ir.Const(ir.I64, uint64(immI(word))))
		putRd(word, val, block)
	case 0b110: // ori
		val := ir.BinopExpr(ir.OpOr64, ir.I64, src, ir.Const(ir.I64, uint64(immI(word))))
		putRd(word, val, block)
	case 0b111: // andi
		val := ir.BinopExpr(ir.OpAnd64, ir.I64, src, ir.Const(ir.I64, uint64(immI(word))))
		putRd(word, val, block)
	case 0b001: // slli
		val := ir.BinopExpr(ir.OpShl64, ir.I64, src, ir.Const(ir.I64, shamt6))
		putRd(word, val, block)
	case 0b101: // srli / srai, distinguished by bit 30
		isArith := (word>>30)&1 == 1
		op := ir.OpShrL64
		if isArith {
			op = ir.OpShrA64
		}
		val := ir.BinopExpr(op, ir.I64, src, ir.Const(ir.I64, shamt6))
		putRd(word, val, block)
	default:
		ir.Invariant("decoder: unknown OP-IMM funct3 %#o", f3)
	}
}

func decodeOpImm32(word uint32, block *ir.Block) {
	f3 := funct3(word)
	src := getReg(rs1(word))
	shamt5 := uint64((word >> 20) & 0x1F)

	switch f3 {
	case 0b000: // addiw
		val := ir.BinopExpr(ir.OpAdd32, ir.I32, src, ir.Const(ir.I64, uint64(immI(word))))
		putRdW(word, val, block)
	case 0b001: // slliw
		val := ir.BinopExpr(ir.OpShl32, ir.I32, src, ir.Const(ir.I64, shamt5))
		putRdW(word, val, block)
	case 0b101: // srliw / sraiw
		isArith := (word>>30)&1 == 1
		op := ir.OpShrL32
		if isArith {
			op = ir.OpShrA32
		}
		val := ir.BinopExpr(op, ir.I32, src, ir.Const(ir.I64, shamt5))
		putRdW(word, val, block)
	default:
		ir.Invariant("decoder: unknown OP-IMM-32 funct3 %#o", f3)
	}
}

// putRdW writes a 32-bit-typed IR value to rd, narrowing then
// sign-extending per the widening invariant (§4.2/§9).
func putRdW(word uint32, value32 *ir.Expr, block *ir.Block) {
	d := rd(word)
	if d == 0 {
		return
	}
	block.Append(ir.PutReg32S(regOffset(d), value32))
}

var opRegBinops = map[[2]uint32]ir.Binop{
	{0b000, 0}: ir.OpAdd64,
	{0b000, 0b0100000}: ir.OpSub64,
	{0b001, 0}: ir.OpShl64,
	{0b100, 0}: ir.OpXor64,
	{0b101, 0}: ir.OpShrL64,
	{0b101, 0b0100000}: ir.OpShrA64,
	{0b110, 0}: ir.OpOr64,
	{0b111, 0}: ir.OpAnd64,
}

func decodeOpReg(word uint32, block *ir.Block) {
	f3 := funct3(word)
	f7 := (word >> 25) & 0x7F
	a := getReg(rs1(word))
	b := getReg(rs2(word))

	switch f3 {
	case 0b010: // slt
		val := ir.BinopExpr(ir.OpCmpLTS64, ir.I1, a, b)
		putRd(word, ir.ZeroExtendTo64(1, val), block)
		return
	case 0b011: // sltu
		val := ir.BinopExpr(ir.OpCmpLTU64, ir.I1, a, b)
		putRd(word, ir.ZeroExtendTo64(1, val), block)
		return
	}

	op, ok := opRegBinops[[2]uint32{f3, f7}]
	if !ok {
		ir.Invariant("decoder: unknown OP funct3/funct7 %#o/%#o", f3, f7)
	}
	// Shift amounts take only the low 6 bits of rs2's value on RV64.
	if f3 == 0b001 || f3 == 0b101 {
		b = ir.BinopExpr(ir.OpAnd64, ir.I64, b, ir.Const(ir.I64, 0x3F))
	}
	val := ir.BinopExpr(op, ir.I64, a, b)
	putRd(word, val, block)
}

var opReg32Binops = map[[2]uint32]ir.Binop{
	{0b000, 0}: ir.OpAdd32,
	{0b000, 0b0100000}: ir.OpSub32,
	{0b001, 0}: ir.OpShl32,
	{0b101, 0}: ir.OpShrL32,
	{0b101, 0b0100000}: ir.OpShrA32,
}

func decodeOpReg32(word uint32, block *ir.Block) {
	f3 := funct3(word)
	f7 := (word >> 25) & 0x7F
	a := getReg(rs1(word))
	b := getReg(rs2(word))
	op, ok := opReg32Binops[[2]uint32{f3, f7}]
	if !ok {
		ir.Invariant("decoder: unknown OP-32 funct3/funct7 %#o/%#o", f3, f7)
	}
	if f3 == 0b001 || f3 == 0b101 {
		b = ir.BinopExpr(ir.OpAnd64, ir.I64, b, ir.Const(ir.I64, 0x1F))
	}
	val := ir.BinopExpr(op, ir.I32, a, b)
	putRdW(word, val, block)
}

func decodeSystem(word uint32, pc uint64, block *ir.Block) (DisResult, bool) {
	f3 := funct3(word)
	imm12 := (word >> 20) & 0xFFF
	if f3 == 0 && imm12 == 0 {
		// ECALL
		block.Append(ir.Exit(nil, ir.JkSysSyscall, pc+4, 4))
		return DisResult{Len: 4, WhatNext: StopHere, JkStopHere: ir.JkSysSyscall}, true
	}
	if f3 == 0 && imm12 == 1 {
		// EBREAK: treated as a trap notification to the scheduler.
		block.Append(ir.Exit(nil, ir.JkSigTRAP, pc+4, 4))
		return DisResult{Len: 4, WhatNext: StopHere, JkStopHere: ir.JkSigTRAP}, true
	}
	// CSR instructions and other SYSTEM forms are privileged/CSR access,
	// explicitly out of scope per §1's Non-goals.
	return DisResult{}, false
}
