package emitter

import (
	"github.com/sarchlab/rv64xlate/guest"
	"github.com/sarchlab/rv64xlate/hostisa"
)

// EvCheckSeqLen is the fixed, published length of the event-check
// prologue every translated block opens with (`evCheckSzB_RISCV64`, §6).
const EvCheckSeqLen = 20

// EmitEvCheck appends the fixed 20-byte event-check prologue to buf:
// load the per-thread counter, decrement it with a sign-extending
// compressed subtract, store it back, branch past the fail path if still
// non-negative, otherwise load the fail address and jump to it. counter
// and faddr are scratch integer registers passed in by the caller; Emit
// passes t0 and t1, which the allocator never hands out.
func EmitEvCheck(buf []byte, counter, faddr hostisa.Reg) []byte {
	s0 := hostisa.PhysicalInt(hostisa.RegS0)
	counterOff := int64(guest.OffEvCheckCounter) - hostisa.BaseBlockOffsetAdjust
	failOff := int64(guest.OffEvCheckFailAddr) - hostisa.BaseBlockOffsetAdjust

	buf = append4(buf, iType(opLoad, 0b010, counter, s0, counterOff))   // lw counter, off(s0)
	buf = append2(buf, cAddiw(counter, -1))                            // c.addiw counter, -1
	buf = append4(buf, sType(opStore, 0b010, s0, counter, counterOff)) // sw counter, off(s0)

	// Fail path (ld + c.jr) is 6 bytes; skip it on a non-negative counter.
	// The branch displacement is relative to the branch instruction's own
	// PC, so it covers its own 4 bytes plus the fail path's 6.
	const skipFailPath = 4 + 4 + 2
	buf = append4(buf, bType(opBr, 0b101, counter, hostisa.PhysicalInt(hostisa.RegZero), skipFailPath)) // bge counter, zero, +skip

	buf = append4(buf, iType(opLoad, 0b011, faddr, s0, failOff)) // ld faddr, off(s0)
	buf = append2(buf, cJR(faddr))                               // c.jr faddr
	return buf
}

// cAddiw encodes `c.addiw rd, imm` (CI-format, funct3=001, op=C1). imm
// must fit the signed 6-bit range.
func cAddiw(rd hostisa.Reg, imm int64) uint16 {
	u := uint32(imm) & 0x3F
	bit12 := (u >> 5) & 1
	lo5 := u & 0x1F
	return uint16(0b001<<13 | bit12<<12 | reg(rd)<<7 | lo5<<2 | 0b01)
}
