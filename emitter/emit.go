package emitter

import (
	"github.com/sarchlab/rv64xlate/guest"
	"github.com/sarchlab/rv64xlate/hostisa"
)

// DispatchAddrs holds the runtime-provided dispatcher entry points a
// translation's block exits materialize jumps to. ChainMe is the only one
// ever rewritten in place later (via ChainXDirect/UnchainXDirect);
// Indirect and Assisted are resolved once per translation and never
// patched — only XDirect is chainable (§6).
type DispatchAddrs struct {
	ChainMe  uint64
	Indirect uint64
	Assisted uint64
}

var noGuard = hostisa.Reg{}

// Emit encodes a selected instruction stream into position-independent
// RV64GC bytes, appending to dst (which may be nil) the same way append
// does, and returning the extended slice.
//
// instrs must come straight from isel.Selector.Select. Every raw
// OpBEQ/OpBNE/OpBLT/OpBLTU/OpBGE/OpBGEU and OpJAL instruction in that
// stream is, by construction, part of one of the selector's own
// branch-around constructs (compare materialization, CAS retry) — guest
// conditional branches never reach here as raw branch ops, they lower to
// ir.Exit and arrive as OpXDirect/OpXIndir/OpXAssisted instead. So every
// such instruction's Target is a *local instruction index* into instrs, not a
// guest address, and gets resolved into a real PC-relative byte
// displacement below rather than passed through to encodeOne verbatim.
func Emit(dst []byte, instrs []hostisa.Instr, addrs DispatchAddrs) []byte {
	offsets := layout(instrs, addrs)

	buf := dst
	for i, instr := range instrs {
		switch instr.Op {
		case hostisa.OpEvCheck:
			buf = EmitEvCheck(buf, hostisa.PhysicalInt(hostisa.RegT0), hostisa.PhysicalInt(hostisa.RegT1))
		case hostisa.OpCSEL:
			buf = emitCSEL(buf, instr)
		case hostisa.OpLI:
			buf = materialize64(buf, instr.Rd, instr.Imm)
		case hostisa.OpMV:
			buf = append4(buf, iType(opImm, 0, instr.Rd, instr.Rs1, 0))
		case hostisa.OpNOP:
			zero := hostisa.PhysicalInt(hostisa.RegZero)
			buf = append4(buf, iType(opImm, 0, zero, zero, 0))
		case hostisa.OpXDirect:
			buf = emitXDirect(buf, instr, addrs.ChainMe, offsets[i+1]-offsets[i])
		case hostisa.OpXIndir:
			buf = emitDispatchJump(buf, instr.Rs1, addrs.Indirect, offsets[i+1]-offsets[i])
		case hostisa.OpXAssisted:
			buf = emitAssisted(buf, instr, addrs.Assisted, offsets[i+1]-offsets[i])
		case hostisa.OpBEQ, hostisa.OpBNE, hostisa.OpBLT, hostisa.OpBLTU, hostisa.OpBGE, hostisa.OpBGEU, hostisa.OpJAL:
			disp := int64(offsets[instr.Target]) - int64(offsets[i])
			patched := instr
			patched.Target = uint64(disp)
			buf = append4(buf, encodeOne(patched))
		default:
			buf = append4(buf, encodeOne(instr))
		}
	}
	return buf
}

// layout computes, for each instruction in instrs, the byte offset its
// encoding starts at; offsets[len(instrs)] is the stream's total length.
// It must stay in exact lockstep with the emission switch in Emit and
// with sizeOf below — both describe the same expansion, once to measure
// and once to produce bytes.
func layout(instrs []hostisa.Instr, addrs DispatchAddrs) []int {
	offsets := make([]int, len(instrs)+1)
	cur := 0
	for i, instr := range instrs {
		offsets[i] = cur
		cur += sizeOf(instr, addrs)
	}
	offsets[len(instrs)] = cur
	return offsets
}

func sizeOf(instr hostisa.Instr, addrs DispatchAddrs) int {
	switch instr.Op {
	case hostisa.OpEvCheck:
		return EvCheckSeqLen
	case hostisa.OpCSEL:
		return CSELSeqLen
	case hostisa.OpLI:
		return len(materialize64(nil, instr.Rd, instr.Imm))
	case hostisa.OpMV, hostisa.OpNOP:
		return 4
	case hostisa.OpXDirect:
		n := 0
		if instr.Rs1 != noGuard {
			n += 4
		}
		n += len(materialize64(nil, hostisa.PhysicalInt(hostisa.RegT1), int64(instr.Target))) + 4 // dstGA + sd
		n += TailLen
		return n
	case hostisa.OpXIndir:
		n := 0
		if instr.Rs1 != noGuard {
			n += 4
		}
		n += len(materialize64(nil, hostisa.PhysicalInt(hostisa.RegT1), int64(addrs.Indirect))) + 4 // jalr
		return n
	case hostisa.OpXAssisted:
		n := 0
		if instr.Rs1 != noGuard {
			n += 4
		}
		n += 4 // addi reasonReg, zero, reason
		n += 4 // sd reasonReg -> emnote slot
		n += len(materialize64(nil, hostisa.PhysicalInt(hostisa.RegT1), int64(addrs.Assisted))) + 4 // jalr
		return n
	default:
		return 4
	}
}

// emitXDirect lowers a chainable direct exit: an optional guard branch
// around the whole exit, the destination guest address stored into the
// guest PC slot, then a fresh unchained 20-byte patchable tail pointing at
// the chain-me dispatcher entry (§4.4, §4.6).
func emitXDirect(buf []byte, instr hostisa.Instr, chainMe uint64, totalSize int) []byte {
	s0 := hostisa.PhysicalInt(hostisa.RegS0)
	pcOff := int64(guest.OffPC) - hostisa.BaseBlockOffsetAdjust
	tmp := hostisa.PhysicalInt(hostisa.RegT1)

	if instr.Rs1 != noGuard {
		skip := int64(totalSize)
		buf = append4(buf, bType(opBr, branchFunct3[hostisa.OpBEQ], instr.Rs1, hostisa.PhysicalInt(hostisa.RegZero), skip))
	}
	buf = materialize64(buf, tmp, int64(instr.Target))
	buf = append4(buf, sType(opStore, 0b011, s0, tmp, pcOff))
	buf = EmitXDirectTail(buf, chainMe)
	return buf
}

// emitDispatchJump lowers an indirect exit: an optional guard branch, then
// a plain (non-patchable) jump to target. XIndir is never chained — the
// dispatcher resolves the actual destination from the guest PC slot the
// block already wrote before this exit.
func emitDispatchJump(buf []byte, guard hostisa.Reg, target uint64, totalSize int) []byte {
	tmp := hostisa.PhysicalInt(hostisa.RegT1)
	if guard != noGuard {
		skip := int64(totalSize)
		buf = append4(buf, bType(opBr, branchFunct3[hostisa.OpBEQ], guard, hostisa.PhysicalInt(hostisa.RegZero), skip))
	}
	buf = materialize64(buf, tmp, int64(target))
	buf = append4(buf, iType(opJALR, 0, hostisa.PhysicalInt(hostisa.RegZero), tmp, 0))
	return buf
}

// emitAssisted lowers an assisted exit: an optional guard branch, the
// jump-kind reason stored into the guest EMNOTE slot for the scheduler to
// read, then a plain jump to the assisted-dispatch entry.
func emitAssisted(buf []byte, instr hostisa.Instr, target uint64, totalSize int) []byte {
	s0 := hostisa.PhysicalInt(hostisa.RegS0)
	reasonReg := hostisa.PhysicalInt(hostisa.RegT2)
	tmp := hostisa.PhysicalInt(hostisa.RegT1)
	emnoteOff := int64(guest.OffEMNOTE) - hostisa.BaseBlockOffsetAdjust

	if instr.Rs1 != noGuard {
		skip := int64(totalSize)
		buf = append4(buf, bType(opBr, branchFunct3[hostisa.OpBEQ], instr.Rs1, hostisa.PhysicalInt(hostisa.RegZero), skip))
	}
	buf = append4(buf, iType(opImm, 0, reasonReg, hostisa.PhysicalInt(hostisa.RegZero), int64(instr.AssistReason)))
	buf = append4(buf, sType(opStore, 0b011, s0, reasonReg, emnoteOff))
	buf = materialize64(buf, tmp, int64(target))
	buf = append4(buf, iType(opJALR, 0, hostisa.PhysicalInt(hostisa.RegZero), tmp, 0))
	return buf
}

// materialize64 appends the shortest real-instruction sequence that loads
// the full 64-bit value into rd, per §4.4: a compressed c.li for values
// fitting the signed 6-bit range, a plain addi for the signed 12-bit
// range, otherwise repeated 12-bit-chunk peeling (slli 12; addi chunk)
// down to a final lui+addiw pair for the most-significant 32 bits —
// the general form of the rounding-compensation trick addr48ToIreg uses
// for its fixed Sv48 case. Every shift and every chunk that fits the
// compressed 6-bit window uses its compressed encoding.
func materialize64(buf []byte, rd hostisa.Reg, value int64) []byte {
	zero := hostisa.PhysicalInt(hostisa.RegZero)
	if fitsSigned(value, 6) {
		return append2(buf, cLi(rd, value))
	}
	if fitsSigned(value, 12) {
		return append4(buf, iType(opImm, 0, rd, zero, value))
	}

	var chunks []int64
	rem := value
	for !fitsSigned(rem, 32) {
		lo, hi := splitSigned(rem, 12)
		chunks = append(chunks, lo)
		rem = hi
	}

	lo32, hi32 := splitSigned(rem, 12)
	buf = append4(buf, uType(opLUI, rd, hi32<<12))
	if fitsSigned(lo32, 6) {
		buf = append2(buf, cAddiw(rd, lo32))
	} else {
		buf = append4(buf, iType(opImm32, 0, rd, rd, lo32))
	}

	for i := len(chunks) - 1; i >= 0; i-- {
		buf = append2(buf, cSlli(rd, 12)) // c.slli rd, 12: the shift amount always fits
		switch {
		case chunks[i] == 0:
			// Already correctly shifted; nothing to add.
		case fitsSigned(chunks[i], 6):
			buf = append2(buf, cAddi(rd, chunks[i]))
		default:
			buf = append4(buf, iType(opImm, 0, rd, rd, chunks[i]))
		}
	}
	return buf
}

func fitsSigned(value int64, bits uint) bool {
	half := int64(1) << (bits - 1)
	return value >= -half && value < half
}
