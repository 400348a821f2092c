// Package hostisa defines the host-side (RV64) machine-instruction model:
// virtual/physical registers, the register universe, and the tagged union
// of host instructions the selector emits and the emitter encodes.
package hostisa

import (
	"fmt"
	"sync"
)

// RegClass distinguishes the two register banks the allocator manages.
type RegClass uint8

const (
	// RegClassInt is the 64-bit integer register bank.
	RegClassInt RegClass = iota
	// RegClassFloat is the 64-bit floating-point register bank.
	RegClassFloat
)

func (c RegClass) String() string {
	if c == RegClassFloat {
		return "float"
	}
	return "int"
}

// Reg is a register reference: either virtual (pre-allocation) or physical
// (post-allocation). It is a small value type, not a pointer — no
// ownership concerns arise since registers are interned by (class, index).
type Reg struct {
	class   RegClass
	index   uint32 // virtual serial number, or physical encoding 0..31
	virtual bool
}

// VirtualInt allocates a fresh virtual integer register reference. The
// caller is responsible for handing out unique serials (see VRegAllocator).
func VirtualInt(serial uint32) Reg { return Reg{class: RegClassInt, index: serial, virtual: true} }

// VirtualFloat allocates a fresh virtual float register reference.
func VirtualFloat(serial uint32) Reg { return Reg{class: RegClassFloat, index: serial, virtual: true} }

// PhysicalInt wraps a physical integer register encoding (0..31).
func PhysicalInt(encoding uint32) Reg {
	if encoding > 31 {
		panic(fmt.Sprintf("hostisa: integer register encoding %d out of range", encoding))
	}
	return Reg{class: RegClassInt, index: encoding, virtual: false}
}

// PhysicalFloat wraps a physical float register encoding (0..31).
func PhysicalFloat(encoding uint32) Reg {
	if encoding > 31 {
		panic(fmt.Sprintf("hostisa: float register encoding %d out of range", encoding))
	}
	return Reg{class: RegClassFloat, index: encoding, virtual: false}
}

// IsVirtual reports whether r has not yet been assigned a physical slot.
func (r Reg) IsVirtual() bool { return r.virtual }

// Class returns the register bank r belongs to.
func (r Reg) Class() RegClass { return r.class }

// Index returns the raw index: a virtual serial number if IsVirtual,
// otherwise the physical encoding.
func (r Reg) Index() uint32 { return r.index }

// Encoding returns the physical register encoding. Panics if r is still
// virtual — the caller asked for a register-allocator invariant that does
// not hold yet.
func (r Reg) Encoding() uint32 {
	if r.virtual {
		panic("hostisa: Encoding() called on an unallocated virtual register")
	}
	return r.index
}

// WithEncoding returns a physical copy of r carrying the given encoding,
// used by the register allocator's remapping pass.
func (r Reg) WithEncoding(encoding uint32) Reg {
	r.virtual = false
	r.index = encoding
	return r
}

func (r Reg) String() string {
	if r.virtual {
		return fmt.Sprintf("v%d.%s", r.index, r.class)
	}
	switch r.class {
	case RegClassFloat:
		return floatPhysNames[r.index]
	default:
		return intPhysNames[r.index]
	}
}

// Physical integer register encodings. zero/sp/s0 are reserved
// (non-allocatable); s0 additionally doubles as the base-block pointer.
const (
	RegZero uint32 = 0
	RegRA   uint32 = 1
	RegSP   uint32 = 2
	RegGP   uint32 = 3
	RegTP   uint32 = 4
	RegT0   uint32 = 5
	RegT1   uint32 = 6
	RegT2   uint32 = 7
	RegS0   uint32 = 8 // base-block pointer; see BaseBlockOffsetAdjust
	RegS1   uint32 = 9
	RegA0   uint32 = 10
	RegA1   uint32 = 11
	RegA2   uint32 = 12
	RegA3   uint32 = 13
	RegA4   uint32 = 14
	RegA5   uint32 = 15
	RegA6   uint32 = 16
	RegA7   uint32 = 17
	RegS2   uint32 = 18
	RegS3   uint32 = 19
	RegS4   uint32 = 20
	RegS5   uint32 = 21
	RegS6   uint32 = 22
	RegS7   uint32 = 23
	RegS8   uint32 = 24
	RegS9   uint32 = 25
	RegS10  uint32 = 26
	RegS11  uint32 = 27
	RegT3   uint32 = 28
	RegT4   uint32 = 29
	RegT5   uint32 = 30
	RegT6   uint32 = 31
)

var intPhysNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var floatPhysNames = [32]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

// BaseBlockOffsetAdjust is the constant every guest-state offset is
// reduced by before it is encoded as an immediate relative to s0. s0
// itself points BaseBlockOffsetAdjust bytes past the guest state record's
// start, not at its start: the record's first field lands at immediate
// -2048 and every field at a negative s0-relative immediate, and the
// immediates from the record's end up to 2047 address a scratch region
// immediately past the record — exactly where the allocator's spill slots
// live. The whole record plus that scratch region must stay within
// BaseBlockOffsetAdjust+2047 bytes for this to hold.
const BaseBlockOffsetAdjust = 2048

// Universe describes the register allocator's view of the machine: which
// physical registers it may hand out, and which are permanently reserved.
type Universe struct {
	AllocableInt   []uint32
	AllocableFloat []uint32
	Reserved       []uint32 // zero, sp, s0 — never handed to the allocator
}

var (
	universeOnce sync.Once
	universe     *Universe
)

// GlobalUniverse returns the process-wide register universe, built once
// under a one-time-init guard and read-only thereafter.
func GlobalUniverse() *Universe {
	universeOnce.Do(func() {
		universe = &Universe{
			AllocableInt: []uint32{
				RegS2, RegS3, RegS4, RegS5, RegS6, RegS7, RegS8, RegS9, RegS10, RegS11,
				RegA0, RegA1, RegA2, RegA3, RegA4, RegA5, RegA6, RegA7,
			},
			AllocableFloat: []uint32{
				0, 1, 2, 3, 4, 5, 6, 7, // ft0..ft7
				10, 11, 12, 13, 14, 15, 16, 17, // fa0..fa7
				28, 29, 30, 31, // ft8..ft11
			},
			Reserved: []uint32{RegZero, RegSP, RegS0},
		}
	})
	return universe
}
