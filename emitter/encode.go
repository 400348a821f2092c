// Package emitter encodes selected hostisa.Instr sequences into
// position-independent RV64GC machine code, including the fixed-length
// address-materialization and chain/unchain byte contracts the runtime
// dispatcher depends on (§4.6, §6).
package emitter

import "github.com/sarchlab/rv64xlate/hostisa"

func reg(r hostisa.Reg) uint32 { return r.Encoding() }

// rType encodes the R-type 32-bit form: funct7 rs2 rs1 funct3 rd opcode.
func rType(opcode, funct3, funct7 uint32, rd, rs1, rs2 hostisa.Reg) uint32 {
	return funct7<<25 | reg(rs2)<<20 | reg(rs1)<<15 | funct3<<12 | reg(rd)<<7 | opcode
}

// iType encodes the I-type 32-bit form: imm[11:0] rs1 funct3 rd opcode.
func iType(opcode, funct3 uint32, rd, rs1 hostisa.Reg, imm int64) uint32 {
	return uint32(imm&0xFFF)<<20 | reg(rs1)<<15 | funct3<<12 | reg(rd)<<7 | opcode
}

// sType encodes the S-type 32-bit form used by stores.
func sType(opcode, funct3 uint32, rs1, rs2 hostisa.Reg, imm int64) uint32 {
	u := uint32(imm)
	hi := (u >> 5) & 0x7F
	lo := u & 0x1F
	return hi<<25 | reg(rs2)<<20 | reg(rs1)<<15 | funct3<<12 | lo<<7 | opcode
}

// bType encodes the B-type 32-bit form used by conditional branches. imm
// is the byte displacement; bit 0 is implicitly zero.
func bType(opcode, funct3 uint32, rs1, rs2 hostisa.Reg, imm int64) uint32 {
	u := uint32(imm)
	b12 := (u >> 12) & 1
	b11 := (u >> 11) & 1
	b10_5 := (u >> 5) & 0x3F
	b4_1 := (u >> 1) & 0xF
	return b12<<31 | b10_5<<25 | reg(rs2)<<20 | reg(rs1)<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opcode
}

// uType encodes the U-type 32-bit form (LUI/AUIPC): imm already holds the
// value pre-shifted into bits [31:12].
func uType(opcode uint32, rd hostisa.Reg, imm int64) uint32 {
	return uint32(imm)&0xFFFFF000 | reg(rd)<<7 | opcode
}

// jType encodes the J-type 32-bit form (JAL). imm is the byte
// displacement; bit 0 is implicitly zero.
func jType(opcode uint32, rd hostisa.Reg, imm int64) uint32 {
	u := uint32(imm)
	b20 := (u >> 20) & 1
	b10_1 := (u >> 1) & 0x3FF
	b11 := (u >> 11) & 1
	b19_12 := (u >> 12) & 0xFF
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | reg(rd)<<7 | opcode
}

func putLE32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func putLE16(buf []byte, v uint16) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
}

// Opcode constants, matching decoder's RV64I field values.
const (
	opLUI   = 0b0110111
	opAUIPC = 0b0010111
	opJAL   = 0b1101111
	opJALR  = 0b1100111
	opBr    = 0b1100011
	opLoad  = 0b0000011
	opStore = 0b0100011
	opImm   = 0b0010011
	opReg   = 0b0110011
	opImm32 = 0b0011011
	opReg32 = 0b0111011
	opMisc  = 0b0001111
	opAMO   = 0b0101111
)

var branchFunct3 = map[hostisa.Op]uint32{
	hostisa.OpBEQ: 0b000, hostisa.OpBNE: 0b001,
	hostisa.OpBLT: 0b100, hostisa.OpBGE: 0b101,
	hostisa.OpBLTU: 0b110, hostisa.OpBGEU: 0b111,
}

var loadFunct3 = map[hostisa.Op]uint32{
	hostisa.OpLB: 0b000, hostisa.OpLH: 0b001, hostisa.OpLW: 0b010, hostisa.OpLD: 0b011,
	hostisa.OpLBU: 0b100, hostisa.OpLHU: 0b101, hostisa.OpLWU: 0b110,
}

var storeFunct3 = map[hostisa.Op]uint32{
	hostisa.OpSB: 0b000, hostisa.OpSH: 0b001, hostisa.OpSW: 0b010, hostisa.OpSD: 0b011,
}

type rFields struct{ funct3, funct7 uint32 }

var regRegFields = map[hostisa.Op]rFields{
	hostisa.OpADD: {0b000, 0}, hostisa.OpSUB: {0b000, 0b0100000},
	hostisa.OpSLL: {0b001, 0}, hostisa.OpSLT: {0b010, 0}, hostisa.OpSLTU: {0b011, 0},
	hostisa.OpXOR: {0b100, 0}, hostisa.OpSRL: {0b101, 0}, hostisa.OpSRA: {0b101, 0b0100000},
	hostisa.OpOR: {0b110, 0}, hostisa.OpAND: {0b111, 0},
	hostisa.OpADDW: {0b000, 0}, hostisa.OpSUBW: {0b000, 0b0100000},
	hostisa.OpSLLW: {0b001, 0}, hostisa.OpSRLW: {0b101, 0}, hostisa.OpSRAW: {0b101, 0b0100000},
	hostisa.OpMUL: {0b000, 0b0000001}, hostisa.OpMULH: {0b001, 0b0000001}, hostisa.OpMULHU: {0b011, 0b0000001},
	hostisa.OpMULW: {0b000, 0b0000001},
	hostisa.OpDIV:  {0b100, 0b0000001}, hostisa.OpDIVU: {0b101, 0b0000001},
	hostisa.OpREM: {0b110, 0b0000001}, hostisa.OpREMU: {0b111, 0b0000001},
	hostisa.OpDIVW: {0b100, 0b0000001}, hostisa.OpDIVUW: {0b101, 0b0000001},
	hostisa.OpREMW: {0b110, 0b0000001}, hostisa.OpREMUW: {0b111, 0b0000001},
}

var regImmFields = map[hostisa.Op]uint32{
	hostisa.OpADDI: 0b000, hostisa.OpSLLI: 0b001, hostisa.OpSLTI: 0b010, hostisa.OpSLTIU: 0b011,
	hostisa.OpXORI: 0b100, hostisa.OpSRLI: 0b101, hostisa.OpSRAI: 0b101, hostisa.OpORI: 0b110, hostisa.OpANDI: 0b111,
	hostisa.OpADDIW: 0b000, hostisa.OpSLLIW: 0b001, hostisa.OpSRLIW: 0b101, hostisa.OpSRAIW: 0b101,
}

// encodeOne encodes one non-pseudo, non-housekeeping host instruction into
// its 4-byte RV64GC word. Pseudo-ops (LI, MV, NOP) and housekeeping ops
// (evcheck, x{direct,indir,assisted}) are expanded by emit.go before
// reaching here. OpAMOW/OpAMOD carry no AMO operation and have no encoding
// here.
func encodeOne(instr hostisa.Instr) uint32 {
	switch instr.Op {
	case hostisa.OpLUI:
		return uType(opLUI, instr.Rd, instr.Imm)
	case hostisa.OpAUIPC:
		return uType(opAUIPC, instr.Rd, instr.Imm)
	case hostisa.OpJAL:
		return jType(opJAL, instr.Rd, int64(instr.Target))
	case hostisa.OpJALR:
		return iType(opJALR, 0, instr.Rd, instr.Rs1, instr.Imm)
	case hostisa.OpBEQ, hostisa.OpBNE, hostisa.OpBLT, hostisa.OpBLTU, hostisa.OpBGE, hostisa.OpBGEU:
		return bType(opBr, branchFunct3[instr.Op], instr.Rs1, instr.Rs2, int64(instr.Target))
	case hostisa.OpLB, hostisa.OpLH, hostisa.OpLW, hostisa.OpLD, hostisa.OpLBU, hostisa.OpLHU, hostisa.OpLWU:
		return iType(opLoad, loadFunct3[instr.Op], instr.Rd, instr.Rs1, instr.Imm)
	case hostisa.OpSB, hostisa.OpSH, hostisa.OpSW, hostisa.OpSD:
		return sType(opStore, storeFunct3[instr.Op], instr.Rs1, instr.Rs2, instr.Imm)
	case hostisa.OpFENCE:
		return 0x0FF0000F // fence iorw, iorw (the default predecessor/successor bits)
	case hostisa.OpLRW, hostisa.OpLRD, hostisa.OpSCW, hostisa.OpSCD:
		f3, f5 := uint32(0b011), uint32(0b00010) // lr; rs2 is left as zero
		if instr.Op == hostisa.OpLRW || instr.Op == hostisa.OpSCW {
			f3 = 0b010
		}
		if instr.Op == hostisa.OpSCW || instr.Op == hostisa.OpSCD {
			f5 = 0b00011
		}
		f7 := f5 << 2
		if instr.Aq {
			f7 |= 0b10
		}
		if instr.Rl {
			f7 |= 0b01
		}
		return rType(opAMO, f3, f7, instr.Rd, instr.Rs1, instr.Rs2)
	default:
		if f, ok := regRegFields[instr.Op]; ok {
			opcode := uint32(opReg)
			if is32FormOp(instr.Op) {
				opcode = opReg32
			}
			return rType(opcode, f.funct3, f.funct7, instr.Rd, instr.Rs1, instr.Rs2)
		}
		if f3, ok := regImmFields[instr.Op]; ok {
			opcode := uint32(opImm)
			if is32FormOp(instr.Op) {
				opcode = opImm32
			}
			if isShiftImm(instr.Op) {
				return shiftIType(opcode, f3, instr)
			}
			return iType(opcode, f3, instr.Rd, instr.Rs1, instr.Imm)
		}
		panic("emitter: encodeOne called on an op with no direct encoding: " + instr.Op.String())
	}
}

func is32FormOp(op hostisa.Op) bool {
	switch op {
	case hostisa.OpADDW, hostisa.OpSUBW, hostisa.OpSLLW, hostisa.OpSRLW, hostisa.OpSRAW, hostisa.OpMULW,
		hostisa.OpDIVW, hostisa.OpDIVUW, hostisa.OpREMW, hostisa.OpREMUW,
		hostisa.OpADDIW, hostisa.OpSLLIW, hostisa.OpSRLIW, hostisa.OpSRAIW:
		return true
	default:
		return false
	}
}

func isShiftImm(op hostisa.Op) bool {
	switch op {
	case hostisa.OpSLLI, hostisa.OpSRLI, hostisa.OpSRAI, hostisa.OpSLLIW, hostisa.OpSRLIW, hostisa.OpSRAIW:
		return true
	default:
		return false
	}
}

// shiftIType encodes the shift-immediate I-type variants, which repurpose
// the immediate's high bits as a secondary funct7-like discriminator
// (arithmetic vs logical right shift) instead of a sign-extended value.
func shiftIType(opcode, funct3 uint32, instr hostisa.Instr) uint32 {
	shamtBits := 6
	if opcode == opImm32 {
		shamtBits = 5
	}
	shamt := uint32(instr.Imm) & ((1 << uint(shamtBits)) - 1)
	hi := uint32(0)
	if instr.Op == hostisa.OpSRAI || instr.Op == hostisa.OpSRAIW {
		hi = 0b0100000
	}
	return hi<<25 | shamt<<20 | reg(instr.Rs1)<<15 | funct3<<12 | reg(instr.Rd)<<7 | opcode
}
