// Package translate wires the front-end decoder, instruction selector,
// register allocator, and emitter into the single per-request pipeline a
// dispatcher calls once per untranslated guest super-block.
package translate

import (
	"fmt"

	"github.com/sarchlab/rv64xlate/config"
	"github.com/sarchlab/rv64xlate/decoder"
	"github.com/sarchlab/rv64xlate/emitter"
	"github.com/sarchlab/rv64xlate/guest"
	"github.com/sarchlab/rv64xlate/hostisa"
	"github.com/sarchlab/rv64xlate/isel"
	"github.com/sarchlab/rv64xlate/regalloc"
)

// spillAreaBase is the first s0-relative immediate the register allocator
// may hand out as a spill slot: immediately past the guest state record,
// still inside the signed 12-bit window hostisa.BaseBlockOffsetAdjust
// centers s0 on (guest.Size-hostisa.BaseBlockOffsetAdjust .. 2047).
var spillAreaBase = int64(guest.Size) - hostisa.BaseBlockOffsetAdjust

// Unit is one translator instance: the decoder, its ABI and trace sink,
// the dispatcher entry points block exits resolve against, and a reusable
// Arena. Nothing inside is safe for concurrent use — create one Unit per
// worker goroutine, the same single-writer discipline the decoder itself
// assumes (§5).
type Unit struct {
	opts  *config.Options
	dec   *decoder.Decoder
	abi   decoder.ABI
	diag  decoder.Diag
	addrs emitter.DispatchAddrs
	arena *Arena
}

// New creates a Unit. addrs supplies the chain-me, indirect, and assisted
// dispatcher entry points every block exit resolves against. diag may be
// nil to disable decode tracing.
func New(opts *config.Options, addrs emitter.DispatchAddrs, diag decoder.Diag) *Unit {
	return &Unit{
		opts:  opts,
		dec:   decoder.New(),
		abi:   decoder.ABI{LLSCNative: opts.LLSCNative},
		diag:  diag,
		addrs: addrs,
		arena: NewArena(64, 256),
	}
}

// Result is one translation's output: the encoded host bytes and the
// number of guest bytes they cover, for the caller's code-cache and
// guest-address-range bookkeeping.
type Result struct {
	Code     []byte
	GuestLen int
}

// Translate decodes guest code starting at pc from cursor into a single
// super-block — stopping at the first block-terminating exit or after
// opts.MaxBlockInstrs instructions, whichever comes first — selects a host
// instruction sequence for it, allocates registers, and encodes the
// result. If decoding stops without reaching a block-terminating exit (at
// the MaxBlockInstrs cap or the end of cursor), Translate returns an error
// instead. The returned Result.Code aliases the Unit's arena buffer: copy
// it out before the next Translate call if the caller needs to retain it
// (e.g. into a code cache slot) past that point.
func (u *Unit) Translate(cursor []byte, pc uint64) (Result, error) {
	block := u.arena.Block()

	guestPC := pc
	consumed := 0
	for n := 0; n < u.opts.MaxBlockInstrs; n++ {
		if consumed >= len(cursor) {
			break
		}
		dres, ok := u.dec.Decode(cursor[consumed:], guestPC, u.abi, u.diag, block)
		if !ok {
			if consumed == 0 {
				return Result{}, fmt.Errorf("translate: decode failed at guest pc %#x", guestPC)
			}
			break
		}
		consumed += dres.Len
		guestPC += uint64(dres.Len)
		if dres.WhatNext == decoder.StopHere {
			break
		}
	}

	if _, ok := block.Terminator(); !ok {
		return Result{}, fmt.Errorf("translate: block at guest pc %#x ended without a terminating exit", pc)
	}

	if u.opts.TraceIR && u.diag != nil {
		u.diag.Printf("translate: pc=%#x decoded %d guest bytes into %d IR statements", pc, consumed, len(block.Stmts))
	}

	sel := isel.New(isel.FromOptions(u.opts))
	instrs, err := sel.Select(block)
	if err != nil {
		return Result{}, fmt.Errorf("translate: select: %w", err)
	}

	alloc := regalloc.New(spillAreaBase)
	allocated, err := alloc.Allocate(instrs)
	if err != nil {
		return Result{}, fmt.Errorf("translate: register allocation: %w", err)
	}

	buf := emitter.Emit(u.arena.Bytes(), allocated.Instrs, u.addrs)

	if u.opts.TraceAsm && u.diag != nil {
		u.diag.Printf("translate: pc=%#x host code:\n%s", pc, hostisa.DisassembleBlock(allocated.Instrs))
	}

	return Result{Code: buf, GuestLen: consumed}, nil
}
