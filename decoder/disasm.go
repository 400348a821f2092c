package decoder

import "fmt"

// abiRegNames are the RISC-V calling-convention register names, indexed by
// raw architectural register number (x0..x31).
var abiRegNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func regName(r uint8) string { return abiRegNames[r&0x1F] }

// Disassemble renders a single 32-bit RV64GC instruction word in RISC-V
// assembler syntax, best-effort. mulhsu, which this core decodes but does
// not lower, still gets a mnemonic; CSR and other SYSTEM forms print a
// bracketed field dump, and forms it cannot classify at all print a
// bracketed raw-word fallback.
func Disassemble(word uint32) string {
	opcode := word & 0x7F
	rdS, rs1S, rs2S := regName(rd(word)), regName(rs1(word)), regName(rs2(word))

	switch opcode {
	case opLUI:
		return fmt.Sprintf("lui %s, %#x", rdS, uint32(immU(word))>>12)
	case opAUIPC:
		return fmt.Sprintf("auipc %s, %#x", rdS, uint32(immU(word))>>12)
	case opJAL:
		return fmt.Sprintf("jal %s, %+d", rdS, immJ(word))
	case opJALR:
		return fmt.Sprintf("jalr %s, %d(%s)", rdS, immI(word), rs1S)
	case opBranch:
		return fmt.Sprintf("%s %s, %s, %+d", branchMnemonic(funct3(word)), rs1S, rs2S, immB(word))
	case opLoad:
		return fmt.Sprintf("%s %s, %d(%s)", loadMnemonic(funct3(word)), rdS, immI(word), rs1S)
	case opStore:
		return fmt.Sprintf("%s %s, %d(%s)", storeMnemonic(funct3(word)), rs2S, immS(word), rs1S)
	case opImm:
		return disasmOpImm(word, rdS, rs1S)
	case opImm32:
		return disasmOpImm32(word, rdS, rs1S)
	case opReg:
		f7 := (word >> 25) & 0x7F
		if f7 == 0b0000001 {
			return disasmMulDiv(word, rdS, rs1S, rs2S, false)
		}
		return disasmOpReg(word, rdS, rs1S, rs2S)
	case opReg32:
		f7 := (word >> 25) & 0x7F
		if f7 == 0b0000001 {
			return disasmMulDiv(word, rdS, rs1S, rs2S, true)
		}
		return disasmOpReg32(word, rdS, rs1S, rs2S)
	case opMiscMem:
		return "fence"
	case opSystem:
		return disasmSystem(word, rdS, rs1S)
	case opAMO:
		return disasmAMO(word, rdS, rs1S, rs2S)
	default:
		return fmt.Sprintf("[unknown opcode %#09b, word=%#010x]", opcode, word)
	}
}

func branchMnemonic(f3 uint32) string {
	switch f3 {
	case 0b000:
		return "beq"
	case 0b001:
		return "bne"
	case 0b100:
		return "blt"
	case 0b101:
		return "bge"
	case 0b110:
		return "bltu"
	case 0b111:
		return "bgeu"
	default:
		return fmt.Sprintf("b?%#o", f3)
	}
}

func loadMnemonic(f3 uint32) string {
	switch f3 {
	case 0b000:
		return "lb"
	case 0b001:
		return "lh"
	case 0b010:
		return "lw"
	case 0b011:
		return "ld"
	case 0b100:
		return "lbu"
	case 0b101:
		return "lhu"
	case 0b110:
		return "lwu"
	default:
		return fmt.Sprintf("l?%#o", f3)
	}
}

func storeMnemonic(f3 uint32) string {
	switch f3 {
	case 0b000:
		return "sb"
	case 0b001:
		return "sh"
	case 0b010:
		return "sw"
	case 0b011:
		return "sd"
	default:
		return fmt.Sprintf("s?%#o", f3)
	}
}

func disasmOpImm(word uint32, rdS, rs1S string) string {
	f3 := funct3(word)
	imm := immI(word)
	switch f3 {
	case 0b000:
		if imm == 0 {
			return fmt.Sprintf("mv %s, %s", rdS, rs1S)
		}
		return fmt.Sprintf("addi %s, %s, %d", rdS, rs1S, imm)
	case 0b010:
		return fmt.Sprintf("slti %s, %s, %d", rdS, rs1S, imm)
	case 0b011:
		return fmt.Sprintf("sltiu %s, %s, %d", rdS, rs1S, imm)
	case 0b100:
		return fmt.Sprintf("xori %s, %s, %d", rdS, rs1S, imm)
	case 0b110:
		return fmt.Sprintf("ori %s, %s, %d", rdS, rs1S, imm)
	case 0b111:
		return fmt.Sprintf("andi %s, %s, %d", rdS, rs1S, imm)
	case 0b001:
		return fmt.Sprintf("slli %s, %s, %d", rdS, rs1S, (word>>20)&0x3F)
	case 0b101:
		if (word>>30)&1 == 1 {
			return fmt.Sprintf("srai %s, %s, %d", rdS, rs1S, (word>>20)&0x3F)
		}
		return fmt.Sprintf("srli %s, %s, %d", rdS, rs1S, (word>>20)&0x3F)
	default:
		return fmt.Sprintf("[op-imm ?%#o]", f3)
	}
}

func disasmOpImm32(word uint32, rdS, rs1S string) string {
	f3 := funct3(word)
	switch f3 {
	case 0b000:
		return fmt.Sprintf("addiw %s, %s, %d", rdS, rs1S, immI(word))
	case 0b001:
		return fmt.Sprintf("slliw %s, %s, %d", rdS, rs1S, (word>>20)&0x1F)
	case 0b101:
		if (word>>30)&1 == 1 {
			return fmt.Sprintf("sraiw %s, %s, %d", rdS, rs1S, (word>>20)&0x1F)
		}
		return fmt.Sprintf("srliw %s, %s, %d", rdS, rs1S, (word>>20)&0x1F)
	default:
		return fmt.Sprintf("[op-imm-32 ?%#o]", f3)
	}
}

func disasmOpReg(word uint32, rdS, rs1S, rs2S string) string {
	f3 := funct3(word)
	f7 := (word >> 25) & 0x7F
	switch {
	case f3 == 0b010:
		return fmt.Sprintf("slt %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b011:
		return fmt.Sprintf("sltu %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b000 && f7 == 0:
		return fmt.Sprintf("add %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b000 && f7 == 0b0100000:
		return fmt.Sprintf("sub %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b001:
		return fmt.Sprintf("sll %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b100:
		return fmt.Sprintf("xor %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b101 && f7 == 0:
		return fmt.Sprintf("srl %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b101 && f7 == 0b0100000:
		return fmt.Sprintf("sra %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b110:
		return fmt.Sprintf("or %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b111:
		return fmt.Sprintf("and %s, %s, %s", rdS, rs1S, rs2S)
	default:
		return fmt.Sprintf("[op ?%#o/%#o]", f3, f7)
	}
}

func disasmOpReg32(word uint32, rdS, rs1S, rs2S string) string {
	f3 := funct3(word)
	f7 := (word >> 25) & 0x7F
	switch {
	case f3 == 0b000 && f7 == 0:
		return fmt.Sprintf("addw %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b000 && f7 == 0b0100000:
		return fmt.Sprintf("subw %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b001:
		return fmt.Sprintf("sllw %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b101 && f7 == 0:
		return fmt.Sprintf("srlw %s, %s, %s", rdS, rs1S, rs2S)
	case f3 == 0b101 && f7 == 0b0100000:
		return fmt.Sprintf("sraw %s, %s, %s", rdS, rs1S, rs2S)
	default:
		return fmt.Sprintf("[op-32 ?%#o/%#o]", f3, f7)
	}
}

func disasmMulDiv(word uint32, rdS, rs1S, rs2S string, is32 bool) string {
	f3 := funct3(word)
	suffix := ""
	if is32 {
		suffix = "w"
	}
	names := map[uint32]string{
		0b000: "mul", 0b001: "mulh", 0b010: "mulhsu", 0b011: "mulhu",
		0b100: "div", 0b101: "divu", 0b110: "rem", 0b111: "remu",
	}
	name, ok := names[f3]
	if !ok || (is32 && (f3 == 0b001 || f3 == 0b010 || f3 == 0b011)) {
		return fmt.Sprintf("[muldiv%s ?%#o]", suffix, f3)
	}
	return fmt.Sprintf("%s%s %s, %s, %s", name, suffix, rdS, rs1S, rs2S)
}

func disasmSystem(word uint32, rdS, rs1S string) string {
	f3 := funct3(word)
	imm12 := (word >> 20) & 0xFFF
	if f3 == 0 && imm12 == 0 {
		return "ecall"
	}
	if f3 == 0 && imm12 == 1 {
		return "ebreak"
	}
	return fmt.Sprintf("[csr ?%#o imm=%#x rd=%s rs1=%s]", f3, imm12, rdS, rs1S)
}

func disasmAMO(word uint32, rdS, rs1S, rs2S string) string {
	f5 := (word >> 27) & 0x1F
	f3 := funct3(word)
	width := "w"
	if f3 == 0b011 {
		width = "d"
	}
	suffix := aqrlSuffix(word)
	switch f5 {
	case amoF5LR:
		return fmt.Sprintf("lr.%s %s, (%s)%s", width, rdS, rs1S, suffix)
	case amoF5SC:
		return fmt.Sprintf("sc.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5SWAP:
		return fmt.Sprintf("amoswap.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5ADD:
		return fmt.Sprintf("amoadd.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5XOR:
		return fmt.Sprintf("amoxor.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5AND:
		return fmt.Sprintf("amoand.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5OR:
		return fmt.Sprintf("amoor.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5MIN:
		return fmt.Sprintf("amomin.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5MAX:
		return fmt.Sprintf("amomax.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5MINU:
		return fmt.Sprintf("amominu.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	case amoF5MAXU:
		return fmt.Sprintf("amomaxu.%s %s, %s, (%s)%s", width, rdS, rs2S, rs1S, suffix)
	default:
		return fmt.Sprintf("[amo ?%#05b]", f5)
	}
}

func aqrlSuffix(word uint32) string {
	aq, rl := (word>>26)&1 == 1, (word>>25)&1 == 1
	switch {
	case aq && rl:
		return ".aqrl"
	case aq:
		return ".aq"
	case rl:
		return ".rl"
	default:
		return ""
	}
}

// Disassemble16 renders a single 16-bit RVC instruction in RISC-V assembler
// syntax, best-effort. Compressed floating-point forms this core recognizes
// but does not lower still get their canonical mnemonic.
func Disassemble16(word uint16) string {
	quadrant := word & 0x3
	switch quadrant {
	case 0:
		return disasmCQ0(word)
	case 1:
		return disasmCQ1(word)
	case 2:
		return disasmCQ2(word)
	default:
		return fmt.Sprintf("[unknown c.word %#06x]", word)
	}
}

func disasmCQ0(word uint16) string {
	f3 := (word >> 13) & 0x7
	rdpS := regName(cReg(word >> 2))
	rs1pS := regName(cReg(word >> 7))
	switch f3 {
	case 0b000:
		return fmt.Sprintf("c.addi4spn %s, %d", rdpS, cAddi4spnImm(word))
	case 0b001:
		return fmt.Sprintf("c.fld %s, %d(%s)", rdpS, cLdImm(word), rs1pS)
	case 0b010:
		return fmt.Sprintf("c.lw %s, %d(%s)", rdpS, cLwImm(word), rs1pS)
	case 0b011:
		return fmt.Sprintf("c.ld %s, %d(%s)", rdpS, cLdImm(word), rs1pS)
	case 0b101:
		return fmt.Sprintf("c.fsd %s, %d(%s)", rdpS, cLdImm(word), rs1pS)
	case 0b110:
		return fmt.Sprintf("c.sw %s, %d(%s)", rdpS, cLwImm(word), rs1pS)
	case 0b111:
		return fmt.Sprintf("c.sd %s, %d(%s)", rdpS, cLdImm(word), rs1pS)
	default:
		return fmt.Sprintf("[c.q0 ?%#o]", f3)
	}
}

func disasmCQ1(word uint16) string {
	f3 := (word >> 13) & 0x7
	rdS := regName(crRd(word))
	switch f3 {
	case 0b000:
		if rdS == "zero" {
			return "c.nop"
		}
		return fmt.Sprintf("c.addi %s, %d", rdS, cImm6(word))
	case 0b001:
		return fmt.Sprintf("c.addiw %s, %d", rdS, cImm6(word))
	case 0b010:
		return fmt.Sprintf("c.li %s, %d", rdS, cImm6(word))
	case 0b011:
		if crRd(word) == 2 {
			return fmt.Sprintf("c.addi16sp %d", cAddi16spImm(word))
		}
		return fmt.Sprintf("c.lui %s, %#x", rdS, uint64(cLuiImm(word))>>12&0x3FFFF)
	case 0b100:
		return disasmCQ1Misc(word)
	case 0b101:
		return fmt.Sprintf("c.j %+d", cJImm(word))
	case 0b110:
		return fmt.Sprintf("c.beqz %s, %+d", regName(cReg(word>>7)), cBImm(word))
	case 0b111:
		return fmt.Sprintf("c.bnez %s, %+d", regName(cReg(word>>7)), cBImm(word))
	default:
		return fmt.Sprintf("[c.q1 ?%#o]", f3)
	}
}

func disasmCQ1Misc(word uint16) string {
	sub := (word >> 10) & 0x3
	rdpS := regName(cReg(word >> 7))
	switch sub {
	case 0b00:
		return fmt.Sprintf("c.srli %s, %d", rdpS, cShamt(word))
	case 0b01:
		return fmt.Sprintf("c.srai %s, %d", rdpS, cShamt(word))
	case 0b10:
		return fmt.Sprintf("c.andi %s, %d", rdpS, cImm6(word))
	case 0b11:
		rs2pS := regName(cReg(word >> 2))
		wform := (word>>12)&1 == 1
		sel := (word >> 5) & 0x3
		names := map[bool]map[uint16]string{
			false: {0b00: "c.sub", 0b01: "c.xor", 0b10: "c.or", 0b11: "c.and"},
			true:  {0b00: "c.subw", 0b01: "c.addw", 0b10: "c.mulw?", 0b11: "c.rsvd?"},
		}
		return fmt.Sprintf("%s %s, %s", names[wform][sel], rdpS, rs2pS)
	default:
		return fmt.Sprintf("[c.q1misc ?%#o]", sub)
	}
}

func disasmCQ2(word uint16) string {
	f3 := (word >> 13) & 0x7
	rdS := regName(crRd(word))
	switch f3 {
	case 0b000:
		return fmt.Sprintf("c.slli %s, %d", rdS, cShamt(word))
	case 0b001:
		return fmt.Sprintf("c.fldsp %s, %d(sp)", rdS, cLdspImm(word))
	case 0b010:
		return fmt.Sprintf("c.lwsp %s, %d(sp)", rdS, cLwspImm(word))
	case 0b011:
		return fmt.Sprintf("c.ldsp %s, %d(sp)", rdS, cLdspImm(word))
	case 0b100:
		return disasmCQ2Misc(word)
	case 0b101:
		return fmt.Sprintf("c.fsdsp %s, %d(sp)", regName(crRs2(word)), cSdspImm(word))
	case 0b110:
		return fmt.Sprintf("c.swsp %s, %d(sp)", regName(crRs2(word)), cSwspImm(word))
	case 0b111:
		return fmt.Sprintf("c.sdsp %s, %d(sp)", regName(crRs2(word)), cSdspImm(word))
	default:
		return fmt.Sprintf("[c.q2 ?%#o]", f3)
	}
}

func disasmCQ2Misc(word uint16) string {
	bit12 := (word >> 12) & 1
	rd := crRd(word)
	rs2 := crRs2(word)
	rdS, rs2S := regName(rd), regName(rs2)

	if bit12 == 0 {
		if rs2 == 0 {
			if rd == 0 {
				return "[c.reserved]"
			}
			return fmt.Sprintf("c.jr %s", rdS)
		}
		return fmt.Sprintf("c.mv %s, %s", rdS, rs2S)
	}
	if rs2 == 0 {
		if rd == 0 {
			return "c.ebreak"
		}
		return fmt.Sprintf("c.jalr %s", rdS)
	}
	return fmt.Sprintf("c.add %s, %s", rdS, rs2S)
}

// DisassembleOne renders one instruction starting at cursor[0] — compressed
// (2-byte) or standard (4-byte) — and reports its encoded length in bytes.
// It never inspects the pseudo-instruction preamble channel; callers that
// care about that (decoder.Decode does) check isPreamble themselves first.
func DisassembleOne(cursor []byte) (text string, length int) {
	if len(cursor) < 2 {
		return "[truncated]", 0
	}
	if cursor[0]&0x3 != 0x3 {
		return Disassemble16(le16(cursor)), 2
	}
	if len(cursor) < 4 {
		return "[truncated]", 0
	}
	return Disassemble(le32(cursor)), 4
}
