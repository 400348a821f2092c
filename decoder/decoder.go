// Package decoder implements the RV64GC front end: it consumes one guest
// instruction at a time from a byte cursor and appends the IR statements
// for it to a block, returning a DisResult describing what was consumed
// and how the block should continue.
package decoder

import (
	"github.com/sarchlab/rv64xlate/ir"
)

// WhatNext classifies how the caller should continue after a decode.
type WhatNext uint8

const (
	// Continue means the caller may decode the next instruction into the
	// same block.
	Continue WhatNext = iota
	// StopHere means the block is complete; dres.JkStopHere names why.
	StopHere
)

// DisResult is the decoder's per-instruction report.
type DisResult struct {
	Len         int // bytes consumed: 2, 4, or 20
	WhatNext    WhatNext
	JkStopHere  ir.JumpKind
	Hint        string // optional diagnostic hint
}

// Diag receives decoder trace output. A nil Diag disables tracing.
type Diag interface {
	Printf(format string, args ...any)
}

// ABI configures ISA-dependent decode choices that are not visible in the
// instruction encoding itself.
type ABI struct {
	// LLSCNative selects whether RV64A LR/SC lowers straight to the IR
	// LLSC primitive (true) or to the pseudo-state fallback triplet
	// emulation (false).
	LLSCNative bool
}

// Decoder decodes RV64GC instructions into IR appended to a caller-owned
// Block. It carries no mutable state of its own: all per-translation state
// lives in the Block and in the ABI/Diag the caller supplies.
type Decoder struct{}

// New creates an RV64GC decoder.
func New() *Decoder { return &Decoder{} }

// Decode decodes one instruction starting at cursor[0], which represents
// guest code at address pc. On success it appends IR statements to block
// and returns (dres, true). On failure it returns a zero-value DisResult
// and false; per §7, the decoder never panics on a decode failure, only on
// its own invariant breaches.
func (d *Decoder) Decode(cursor []byte, pc uint64, abi ABI, diag Diag, block *ir.Block) (DisResult, bool) {
	if pc%2 != 0 {
		ir.Invariant("decoder: guest PC %#x is not 2-byte aligned", pc)
	}
	if len(cursor) < 2 {
		return DisResult{}, false
	}

	low2 := cursor[0] & 0x3
	if low2 != 0x3 {
		return d.decodeCompressed(cursor, pc, block)
	}

	if len(cursor) < 4 {
		return DisResult{}, false
	}
	word := le32(cursor)

	if isPreamble(cursor) {
		return d.decodePseudoChannel(cursor, pc, diag, block)
	}

	dres, ok := d.decode32(word, pc, abi, block)
	if !ok && diag != nil {
		diag.Printf("decode failure at pc=%#x word=%#010x", pc, word)
	}
	return dres, ok
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// signExtend sign-extends the low `bits` bits of v (held in a uint64) to a
// full 64-bit two's-complement value.
func signExtend(v uint64, bits int) int64 {
	shift := 64 - bits
	return int64(v<<uint(shift)) >> uint(shift)
}

func unsupported(mnemonic string) {
	ir.Invariant("decoder: %s lowering is unimplemented", mnemonic)
}
