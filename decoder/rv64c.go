package decoder

import "github.com/sarchlab/rv64xlate/ir"

// decodeCompressed decodes one 16-bit RVC instruction. Compressed
// floating-point forms (C.FLD/C.FSD and their stack-pointer variants
// C.FLDSP/C.FSDSP) are recognized so the quadrant/funct3 space stays exhaustive,
// but are not lowered: this core targets the integer subset only (§1).
func (d *Decoder) decodeCompressed(cursor []byte, pc uint64, block *ir.Block) (DisResult, bool) {
	word := le16(cursor)
	quadrant := word & 0x3

	switch quadrant {
	case 0:
		return decodeCQ0(word, pc, block)
	case 1:
		return decodeCQ1(word, pc, block)
	case 2:
		return decodeCQ2(word, pc, block)
	default:
		return DisResult{}, false
	}
}

// Compressed-register field: bits [9:7] or [4:2] name one of x8..x15.
func cReg(code uint16) uint8 { return uint8(8 + code&0x7) }

func crRd(word uint16) uint8  { return uint8((word >> 7) & 0x1F) }  // CR/CI full rd/rs1
func crRs2(word uint16) uint8 { return uint8((word >> 2) & 0x1F) }  // CR full rs2

func decodeCQ0(word uint16, pc uint64, block *ir.Block) (DisResult, bool) {
	f3 := (word >> 13) & 0x7
	rdp := cReg(word >> 2)
	rs1p := cReg(word >> 7)

	switch f3 {
	case 0b000: // C.ADDI4SPN
		nzuimm := cAddi4spnImm(word)
		if nzuimm == 0 {
			return DisResult{}, false // reserved
		}
		val := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(2), ir.Const(ir.I64, uint64(nzuimm)))
		block.Append(ir.Put(regOffset(rdp), val))
		return contResult(2), true

	case 0b010: // C.LW
		off := cLwImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rs1p), ir.Const(ir.I64, uint64(off)))
		val := ir.SignExtendTo64(32, ir.Load(ir.I32, addr))
		block.Append(ir.Put(regOffset(rdp), val))
		return contResult(2), true

	case 0b011: // C.LD
		off := cLdImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rs1p), ir.Const(ir.I64, uint64(off)))
		val := ir.Load(ir.I64, addr)
		block.Append(ir.Put(regOffset(rdp), val))
		return contResult(2), true

	case 0b110: // C.SW
		off := cLwImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rs1p), ir.Const(ir.I64, uint64(off)))
		src := ir.UnopExpr(ir.UnopTrunc64to32, ir.I32, getReg(rdp))
		block.Append(ir.Store(addr, src))
		return contResult(2), true

	case 0b111: // C.SD
		off := cLdImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rs1p), ir.Const(ir.I64, uint64(off)))
		block.Append(ir.Store(addr, getReg(rdp)))
		return contResult(2), true

	default:
		// C.FLD/C.FSD (001/101) recognized but not lowered (no FP support).
		return DisResult{}, false
	}
}

func decodeCQ1(word uint16, pc uint64, block *ir.Block) (DisResult, bool) {
	f3 := (word >> 13) & 0x7

	switch f3 {
	case 0b000: // C.ADDI / C.NOP
		rd := crRd(word)
		imm := cImm6(word)
		if rd == 0 {
			return contResult(2), true // C.NOP
		}
		val := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rd), ir.Const(ir.I64, uint64(imm)))
		block.Append(ir.Put(regOffset(rd), val))
		return contResult(2), true

	case 0b001: // C.ADDIW
		rd := crRd(word)
		if rd == 0 {
			return DisResult{}, false // reserved
		}
		imm := cImm6(word)
		val := ir.BinopExpr(ir.OpAdd32, ir.I32, getReg(rd), ir.Const(ir.I64, uint64(imm)))
		block.Append(ir.PutReg32S(regOffset(rd), val))
		return contResult(2), true

	case 0b010: // C.LI
		rd := crRd(word)
		imm := cImm6(word)
		if rd != 0 {
			block.Append(ir.Put(regOffset(rd), ir.Const(ir.I64, uint64(imm))))
		}
		return contResult(2), true

	case 0b011: // C.ADDI16SP / C.LUI
		rd := crRd(word)
		if rd == 2 {
			imm := cAddi16spImm(word)
			if imm == 0 {
				return DisResult{}, false // reserved
			}
			val := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(2), ir.Const(ir.I64, uint64(imm)))
			block.Append(ir.Put(regOffset(2), val))
			return contResult(2), true
		}
		nzimm := cLuiImm(word)
		if nzimm == 0 || rd == 0 {
			return DisResult{}, false // reserved
		}
		block.Append(ir.Put(regOffset(rd), ir.Const(ir.I64, uint64(nzimm))))
		return contResult(2), true

	case 0b100:
		return decodeCQ1Misc(word, pc, block)

	case 0b101: // C.J
		target := uint64(int64(pc) + cJImm(word))
		block.Append(ir.Put(pcOffset, ir.Const(ir.I64, target)))
		block.Append(ir.Exit(nil, ir.JkBoring, target, 2))
		return DisResult{Len: 2, WhatNext: StopHere, JkStopHere: ir.JkBoring}, true

	case 0b110, 0b111: // C.BEQZ / C.BNEZ
		rs1p := cReg(word >> 7)
		op := ir.OpCmpEQ64
		if f3 == 0b111 {
			op = ir.OpCmpNE64
		}
		guard := ir.BinopExpr(op, ir.I1, getReg(rs1p), ir.Const(ir.I64, 0))
		target := uint64(int64(pc) + cBImm(word))
		block.Append(ir.Exit(guard, ir.JkBoring, target, 2))
		block.Append(ir.Exit(nil, ir.JkBoring, pc+2, 2))
		return DisResult{Len: 2, WhatNext: StopHere, JkStopHere: ir.JkBoring}, true

	default:
		return DisResult{}, false
	}
}

// decodeCQ1Misc decodes the quadrant-1/funct3=100 family: C.SRLI, C.SRAI,
// C.ANDI, and the CA-format register-register ops (C.SUB/C.XOR/C.OR/C.AND
// and their W-forms).
func decodeCQ1Misc(word uint16, pc uint64, block *ir.Block) (DisResult, bool) {
	sub := (word >> 10) & 0x3
	rdp := cReg(word >> 7)

	switch sub {
	case 0b00, 0b01: // C.SRLI / C.SRAI
		shamt := cShamt(word)
		op := ir.OpShrL64
		if sub == 0b01 {
			op = ir.OpShrA64
		}
		val := ir.BinopExpr(op, ir.I64, getReg(rdp), ir.Const(ir.I64, uint64(shamt)))
		block.Append(ir.Put(regOffset(rdp), val))
		return contResult(2), true

	case 0b10: // C.ANDI
		imm := cImm6(word)
		val := ir.BinopExpr(ir.OpAnd64, ir.I64, getReg(rdp), ir.Const(ir.I64, uint64(imm)))
		block.Append(ir.Put(regOffset(rdp), val))
		return contResult(2), true

	case 0b11:
		rs2p := cReg(word >> 2)
		wform := (word>>12)&1 == 1
		sel := (word >> 5) & 0x3
		a := getReg(rdp)
		b := getReg(rs2p)

		if wform {
			var op ir.Binop
			switch sel {
			case 0b00:
				op = ir.OpSub32
			case 0b01:
				op = ir.OpAdd32 // C.ADDW (reuses ADD32 since there is no XORW/ORW/ANDW at width 32)
			default:
				return DisResult{}, false // C.MULW/reserved, not in this core's scope
			}
			val := ir.BinopExpr(op, ir.I32, a, b)
			block.Append(ir.PutReg32S(regOffset(rdp), val))
			return contResult(2), true
		}

		var op ir.Binop
		switch sel {
		case 0b00:
			op = ir.OpSub64
		case 0b01:
			op = ir.OpXor64
		case 0b10:
			op = ir.OpOr64
		case 0b11:
			op = ir.OpAnd64
		}
		val := ir.BinopExpr(op, ir.I64, a, b)
		block.Append(ir.Put(regOffset(rdp), val))
		return contResult(2), true

	default:
		return DisResult{}, false
	}
}

func decodeCQ2(word uint16, pc uint64, block *ir.Block) (DisResult, bool) {
	f3 := (word >> 13) & 0x7
	rd := crRd(word)

	switch f3 {
	case 0b000: // C.SLLI
		if rd == 0 {
			return DisResult{}, false
		}
		shamt := cShamt(word)
		val := ir.BinopExpr(ir.OpShl64, ir.I64, getReg(rd), ir.Const(ir.I64, uint64(shamt)))
		block.Append(ir.Put(regOffset(rd), val))
		return contResult(2), true

	case 0b010: // C.LWSP
		if rd == 0 {
			return DisResult{}, false
		}
		off := cLwspImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(2), ir.Const(ir.I64, uint64(off)))
		val := ir.SignExtendTo64(32, ir.Load(ir.I32, addr))
		block.Append(ir.Put(regOffset(rd), val))
		return contResult(2), true

	case 0b011: // C.LDSP
		if rd == 0 {
			return DisResult{}, false
		}
		off := cLdspImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(2), ir.Const(ir.I64, uint64(off)))
		val := ir.Load(ir.I64, addr)
		block.Append(ir.Put(regOffset(rd), val))
		return contResult(2), true

	case 0b100:
		return decodeCQ2Misc(word, pc, block, rd)

	case 0b110: // C.SWSP
		off := cSwspImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(2), ir.Const(ir.I64, uint64(off)))
		src := ir.UnopExpr(ir.UnopTrunc64to32, ir.I32, getReg(crRs2(word)))
		block.Append(ir.Store(addr, src))
		return contResult(2), true

	case 0b111: // C.SDSP
		off := cSdspImm(word)
		addr := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(2), ir.Const(ir.I64, uint64(off)))
		block.Append(ir.Store(addr, getReg(crRs2(word))))
		return contResult(2), true

	default:
		return DisResult{}, false
	}
}

// decodeCQ2Misc decodes the quadrant-2/funct3=100 family: C.JR/C.MV
// (bit 12 == 0) and C.JALR/C.EBREAK/C.ADD (bit 12 == 1).
func decodeCQ2Misc(word uint16, pc uint64, block *ir.Block, rd uint8) (DisResult, bool) {
	bit12 := (word >> 12) & 1
	rs2 := crRs2(word)

	if bit12 == 0 {
		if rs2 == 0 {
			if rd == 0 {
				return DisResult{}, false // reserved
			}
			// C.JR
			tmp := block.NewTemp(ir.I64)
			block.Append(ir.WrTmp(tmp, getReg(rd)))
			block.Append(ir.Put(pcOffset, ir.ReadTmp(tmp)))
			jk := ir.JkBoring
			if rd == 1 {
				jk = ir.JkRet
			}
			block.Append(ir.Exit(nil, jk, 0, 2))
			return DisResult{Len: 2, WhatNext: StopHere, JkStopHere: jk}, true
		}
		// C.MV
		if rd == 0 {
			return DisResult{}, false
		}
		block.Append(ir.Put(regOffset(rd), getReg(rs2)))
		return contResult(2), true
	}

	if rs2 == 0 {
		if rd == 0 {
			// C.EBREAK
			block.Append(ir.Exit(nil, ir.JkSigTRAP, pc+2, 2))
			return DisResult{Len: 2, WhatNext: StopHere, JkStopHere: ir.JkSigTRAP}, true
		}
		// C.JALR
		tmp := block.NewTemp(ir.I64)
		block.Append(ir.WrTmp(tmp, getReg(rd)))
		block.Append(ir.Put(regOffset(1), ir.Const(ir.I64, pc+2)))
		block.Append(ir.Put(pcOffset, ir.ReadTmp(tmp)))
		block.Append(ir.Exit(nil, ir.JkCall, 0, 2))
		return DisResult{Len: 2, WhatNext: StopHere, JkStopHere: ir.JkCall}, true
	}

	// C.ADD
	if rd == 0 {
		return DisResult{}, false
	}
	val := ir.BinopExpr(ir.OpAdd64, ir.I64, getReg(rd), getReg(rs2))
	block.Append(ir.Put(regOffset(rd), val))
	return contResult(2), true
}

// --- compressed immediate decoders ---

func cShamt(word uint16) uint64 {
	b5 := uint64((word >> 12) & 1)
	b40 := uint64((word >> 2) & 0x1F)
	return b5<<5 | b40
}

func cImm6(word uint16) int64 {
	b5 := uint64((word >> 12) & 1)
	b40 := uint64((word >> 2) & 0x1F)
	return signExtend(b5<<5|b40, 6)
}

func cLuiImm(word uint16) int64 {
	b17 := uint64((word >> 12) & 1)
	b1612 := uint64((word >> 2) & 0x1F)
	return signExtend((b17<<17|b1612<<12), 18)
}

func cAddi16spImm(word uint16) int64 {
	b9 := uint64((word >> 12) & 1)
	b4 := uint64((word >> 6) & 1)
	b6 := uint64((word >> 5) & 1)
	b87 := uint64((word >> 3) & 0x3)
	b5 := uint64((word >> 2) & 1)
	raw := b9<<9 | b87<<7 | b6<<6 | b5<<5 | b4<<4
	return signExtend(raw, 10)
}

func cAddi4spnImm(word uint16) int64 {
	b96 := uint64((word >> 7) & 0xF)
	b54 := uint64((word >> 11) & 0x3)
	b3 := uint64((word >> 5) & 1)
	b2 := uint64((word >> 6) & 1)
	raw := (b96 << 6) | (b54 << 4) | (b3 << 3) | (b2 << 2)
	return int64(raw)
}

func cLwImm(word uint16) int64 {
	b6 := uint64((word >> 5) & 1)
	b53 := uint64((word >> 10) & 0x7)
	b2 := uint64((word >> 6) & 1)
	return int64(b6<<6 | b53<<3 | b2<<2)
}

func cLdImm(word uint16) int64 {
	b76 := uint64((word >> 5) & 0x3)
	b53 := uint64((word >> 10) & 0x7)
	return int64(b76<<6 | b53<<3)
}

func cLwspImm(word uint16) int64 {
	b5 := uint64((word >> 12) & 1)
	b42 := uint64((word >> 4) & 0x7)
	b76 := uint64((word >> 2) & 0x3)
	return int64(b5<<5 | b42<<2 | b76<<6)
}

func cLdspImm(word uint16) int64 {
	b5 := uint64((word >> 12) & 1)
	b43 := uint64((word >> 5) & 0x3)
	b86 := uint64((word >> 2) & 0x7)
	return int64(b5<<5 | b43<<3 | b86<<6)
}

func cSwspImm(word uint16) int64 {
	b52 := uint64((word >> 9) & 0xF)
	b76 := uint64((word >> 7) & 0x3)
	return int64(b52<<2 | b76<<6)
}

func cSdspImm(word uint16) int64 {
	b53 := uint64((word >> 10) & 0x7)
	b86 := uint64((word >> 7) & 0x7)
	return int64(b53<<3 | b86<<6)
}

func cJImm(word uint16) int64 {
	b11 := uint64((word >> 12) & 1)
	b4 := uint64((word >> 11) & 1)
	b98 := uint64((word >> 9) & 0x3)
	b10 := uint64((word >> 8) & 1)
	b6 := uint64((word >> 7) & 1)
	b7 := uint64((word >> 6) & 1)
	b31 := uint64((word >> 3) & 0x7)
	b5 := uint64((word >> 2) & 1)
	raw := b11<<11 | b4<<4 | b98<<8 | b10<<10 | b6<<6 | b7<<7 | b31<<1 | b5<<5
	return signExtend(raw, 12)
}

func cBImm(word uint16) int64 {
	b8 := uint64((word >> 12) & 1)
	b43 := uint64((word >> 10) & 0x3)
	b76 := uint64((word >> 5) & 0x3)
	b21 := uint64((word >> 3) & 0x3)
	b5 := uint64((word >> 2) & 1)
	raw := b8<<8 | b76<<6 | b5<<5 | b43<<3 | b21<<1
	return signExtend(raw, 9)
}
