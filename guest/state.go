// Package guest describes the RV64 guest register file and pseudo-state
// record that the decoder, IR, and emitter all address by fixed offset.
package guest

import "fmt"

// NumIntRegs is the number of architectural integer registers (x0..x31).
const NumIntRegs = 32

// Offsets into the guest state record. The layout is a flat, little-endian
// byte record rather than a Go struct of named fields: the emitter bakes
// these offsets into base-block-relative loads and stores (see package
// emitter), so the numbers here are part of the runtime ABI, not an
// implementation detail.
const (
	OffX0   = 0 // x0..x31, 8 bytes each, 256 bytes total
	OffPC   = OffX0 + 8*NumIntRegs
	OffEMNOTE  = OffPC + 8
	OffCMSTART = OffEMNOTE + 8
	OffCMLEN   = OffCMSTART + 8
	OffNRADDR  = OffCMLEN + 8
	OffIPAtSyscall = OffNRADDR + 8

	// Event-check pseudo-registers.
	OffEvCheckCounter = OffIPAtSyscall + 8 // 4 bytes
	OffEvCheckFailAddr = OffEvCheckCounter + 8 // aligned up to 8, 8 bytes

	// LL/SC fallback emulation triplet.
	OffLLSCSize = OffEvCheckFailAddr + 8 // 8 bytes (holds 0, 4, or 8)
	OffLLSCAddr = OffLLSCSize + 8
	OffLLSCData = OffLLSCAddr + 8

	// Chain-me scratch slot used by the dispatcher when handing a fresh
	// translation its own chain-me entry point.
	OffChainMeScratch = OffLLSCData + 8

	rawSize = OffChainMeScratch + 8
)

// Size is the size in bytes of the guest state record, padded up to a
// 16-byte multiple per §6 of the external interface contract.
const Size = (rawSize + 15) &^ 15

// RegOffset returns the byte offset of architectural integer register r
// (0..31) within the state record.
func RegOffset(r uint8) int64 {
	if r >= NumIntRegs {
		panic(fmt.Sprintf("guest: register index %d out of range", r))
	}
	return int64(OffX0 + 8*int(r))
}

// ABINames maps register index to its canonical ABI name.
var ABINames = [NumIntRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// ABIName returns the canonical ABI name of integer register r.
func ABIName(r uint8) string {
	if r >= NumIntRegs {
		panic(fmt.Sprintf("guest: register index %d out of range", r))
	}
	return ABINames[r]
}

// IsZero reports whether r is the hard-wired zero register. Writes to it
// must be suppressed by every component that could otherwise emit one;
// reads of it always yield 0.
func IsZero(r uint8) bool { return r == 0 }

// LLSCSize enumerates the fallback LL/SC transaction size pseudo-state.
type LLSCSize uint64

// LL/SC fallback transaction sizes. NoTransaction means no outstanding
// LR has been recorded (or it has been consumed/invalidated).
const (
	LLSCNoTransaction LLSCSize = 0
	LLSCSize4         LLSCSize = 4
	LLSCSize8         LLSCSize = 8
)

// Field describes one named field of the state record, for tooling that
// wants to print "x10 = 0x1234" without hardcoding offsets.
type Field struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

// FieldTable returns the full list of named fields in the guest state
// record, in offset order.
func FieldTable() []Field {
	fields := make([]Field, 0, NumIntRegs+8)
	for i := 0; i < NumIntRegs; i++ {
		fields = append(fields, Field{Name: ABINames[i], Offset: OffX0 + 8*i, Size: 8})
	}
	fields = append(fields,
		Field{Name: "pc", Offset: OffPC, Size: 8},
		Field{Name: "emnote", Offset: OffEMNOTE, Size: 8},
		Field{Name: "cmstart", Offset: OffCMSTART, Size: 8},
		Field{Name: "cmlen", Offset: OffCMLEN, Size: 8},
		Field{Name: "nraddr", Offset: OffNRADDR, Size: 8},
		Field{Name: "ip_at_syscall", Offset: OffIPAtSyscall, Size: 8},
		Field{Name: "evcheck_counter", Offset: OffEvCheckCounter, Size: 4},
		Field{Name: "evcheck_failaddr", Offset: OffEvCheckFailAddr, Size: 8},
		Field{Name: "llsc_size", Offset: OffLLSCSize, Size: 8},
		Field{Name: "llsc_addr", Offset: OffLLSCAddr, Size: 8},
		Field{Name: "llsc_data", Offset: OffLLSCData, Size: 8},
		Field{Name: "chain_me_scratch", Offset: OffChainMeScratch, Size: 8},
	)
	return fields
}

// State is an in-process mirror of a per-thread guest state record, used by
// tests and the CLI to exercise decode/translate/emit without a live guest
// thread. It is a plain byte-backed record, not a struct of named Go
// fields, for the same reason the real runtime record is: the emitter
// addresses it purely by offset.
type State struct {
	Bytes [Size]byte
}

// GetReg reads architectural register r (little-endian, 64-bit). Register
// 0 always reads as 0, regardless of what has been written to its slot.
func (s *State) GetReg(r uint8) uint64 {
	if IsZero(r) {
		return 0
	}
	return getU64(s.Bytes[:], RegOffset(r))
}

// SetReg writes architectural register r. Writes to register 0 are
// silently discarded, matching the zero-register discipline every decoder
// path must also honor when building IR.
func (s *State) SetReg(r uint8, v uint64) {
	if IsZero(r) {
		return
	}
	putU64(s.Bytes[:], RegOffset(r), v)
}

// PC returns the current program counter.
func (s *State) PC() uint64 { return getU64(s.Bytes[:], OffPC) }

// SetPC sets the current program counter.
func (s *State) SetPC(v uint64) { putU64(s.Bytes[:], OffPC, v) }

func getU64(b []byte, off int64) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[off+int64(i)]) << (8 * i)
	}
	return v
}

func putU64(b []byte, off int64, v uint64) {
	for i := 0; i < 8; i++ {
		b[off+int64(i)] = byte(v >> (8 * i))
	}
}
