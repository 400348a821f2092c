package emitter

import (
	"fmt"

	"github.com/sarchlab/rv64xlate/hostisa"
)

// ChainReg is the physical register every addr48_to_ireg_EXACTLY_18B
// sequence and its trailing jump materialize into: x5 (t0). The chain/
// unchain byte contract (§4.6) is only byte-identical across re-emissions
// because this choice never varies.
const ChainReg = hostisa.RegT0

// Addr48SeqLen is the fixed length, in bytes, of addr48ToIreg's output.
const Addr48SeqLen = 18

// addr48ToIreg appends the exact 18-byte, six-instruction sequence that
// materializes addr into ChainReg: lui, addiw, c.slli 12, addi, c.slli 4,
// c.addi (or c.nop when the low chunk is zero). addr's high 16 bits must
// be all zero or all one (canonical Sv39/Sv48 form); addr48ToIreg panics
// on any other address.
func addr48ToIreg(buf []byte, addr uint64) []byte {
	a := int64(addr)
	high16 := uint16(addr >> 48)
	if high16 != 0 && high16 != 0xFFFF {
		panic(fmt.Sprintf("emitter: invariant violation: addr48ToIreg: address %#x is not Sv48-canonical", addr))
	}

	l3, rem3 := splitSigned(a, 4)
	l2, rem2 := splitSigned(rem3, 12)
	l1, u := splitSigned(rem2, 12)

	rd := hostisa.PhysicalInt(ChainReg)

	buf = append4(buf, uType(opLUI, rd, u<<12))
	buf = append4(buf, iType(opImm32, 0, rd, rd, l1))
	buf = append2(buf, cSlli(rd, 12))
	buf = append4(buf, iType(opImm, 0, rd, rd, l2))
	buf = append2(buf, cSlli(rd, 4))
	if l3 == 0 {
		buf = append2(buf, cNop())
	} else {
		buf = append2(buf, cAddi(rd, l3))
	}
	return buf
}

// splitSigned decomposes value into (lo, hi) such that hi*(1<<width)+lo
// == value, with lo sign-extended within width bits. This is the standard
// lui/addi rounding-compensation trick applied at each decomposition
// level, so every stage reconstructs exactly.
func splitSigned(value int64, width uint) (lo, hi int64) {
	mask := int64(1)<<width - 1
	half := int64(1) << (width - 1)
	lo = value & mask
	if lo >= half {
		lo -= int64(1) << width
	}
	hi = (value - lo) >> width
	return lo, hi
}

func append4(buf []byte, word uint32) []byte {
	var b [4]byte
	putLE32(b[:], word)
	return append(buf, b[:]...)
}

func append2(buf []byte, word uint16) []byte {
	var b [2]byte
	putLE16(b[:], word)
	return append(buf, b[:]...)
}

// cJumpReg encodes the CR-format `c.jr`/`c.jalr rs1` forms: funct4=1000
// for c.jr, 1001 for c.jalr, rs2 field forced to 0.
func cJumpReg(funct4 uint32, rs1 hostisa.Reg) uint16 {
	return uint16(funct4<<12 | reg(rs1)<<7 | 0b10)
}

func cJR(rs1 hostisa.Reg) uint16   { return cJumpReg(0b1000, rs1) }
func cJALR(rs1 hostisa.Reg) uint16 { return cJumpReg(0b1001, rs1) }

// cSlli encodes `c.slli rd, shamt` (CI-format, funct3=000, op=C2).
func cSlli(rd hostisa.Reg, shamt int64) uint16 {
	u := uint32(shamt) & 0x3F
	bit12 := (u >> 5) & 1
	lo5 := u & 0x1F
	return uint16(bit12<<12 | reg(rd)<<7 | lo5<<2 | 0b10)
}

// cAddi encodes `c.addi rd, imm` (CI-format, funct3=000, op=C1). imm must
// fit the signed 6-bit range (-32..31).
func cAddi(rd hostisa.Reg, imm int64) uint16 {
	u := uint32(imm) & 0x3F
	bit12 := (u >> 5) & 1
	lo5 := u & 0x1F
	return uint16(bit12<<12 | reg(rd)<<7 | lo5<<2 | 0b01)
}

func cNop() uint16 { return 0x0001 }

// cLi encodes `c.li rd, imm` (CI-format, funct3=010, op=C1). imm must fit
// the signed 6-bit range (-32..31); rd must not be x0.
func cLi(rd hostisa.Reg, imm int64) uint16 {
	u := uint32(imm) & 0x3F
	bit12 := (u >> 5) & 1
	lo5 := u & 0x1F
	return uint16(0b010<<13 | bit12<<12 | reg(rd)<<7 | lo5<<2 | 0b01)
}

// IsAddr48ToIreg reports whether buf's first Addr48SeqLen bytes are
// byte-identical to a fresh emission of addr48ToIreg(addr): the
// `is_addr48_to_ireg_EXACTLY_18B` pre-image check chainXDirect/
// unchainXDirect run before trusting a tail's prefix (§4.6).
func IsAddr48ToIreg(buf []byte, addr uint64) bool {
	if len(buf) < Addr48SeqLen {
		return false
	}
	want := addr48ToIreg(nil, addr)
	for i := range want {
		if buf[i] != want[i] {
			return false
		}
	}
	return true
}
