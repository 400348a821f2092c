package decoder

import (
	"github.com/sarchlab/rv64xlate/ir"
)

// preambleWords are the four right-shift-immediate encodings on x12 that
// make up the canonical 16-byte special preamble (§4.1, §6). Each is a
// `srli x12, x12, imm` with a distinct shift amount, chosen so the
// sequence has no ordinary meaning as guest code but decodes cleanly if
// ever executed natively.
var preambleWords = [4]uint32{0x00365613, 0x00d65613, 0x03365613, 0x03d65613}

// Pseudo-instruction sentinel values: the 4 bytes immediately following
// the preamble, selecting one of the four pseudo-instruction-channel
// actions.
const (
	SentinelClientReq  uint32 = 0x00001100
	SentinelGuestNRADDR uint32 = 0x00001101
	SentinelCallNoRedir uint32 = 0x00001102
	SentinelIRInject    uint32 = 0x00001103
)

// isPreamble reports whether the 16 bytes at cursor match preambleWords.
func isPreamble(cursor []byte) bool {
	if len(cursor) < 20 {
		return false
	}
	for i, want := range preambleWords {
		if le32(cursor[i*4:]) != want {
			return false
		}
	}
	return true
}

// decodePseudoChannel decodes the 4-byte sentinel following a recognized
// preamble and appends the corresponding IR. The whole unit, preamble plus
// sentinel, is always exactly 20 bytes and always ends the block
// (WhatNext = StopHere).
func (d *Decoder) decodePseudoChannel(cursor []byte, pc uint64, diag Diag, block *ir.Block) (DisResult, bool) {
	sentinel := le32(cursor[16:20])

	switch sentinel {
	case SentinelClientReq:
		block.Append(ir.Exit(nil, ir.JkClientReq, pc+20, 20))
		return DisResult{Len: 20, WhatNext: StopHere, JkStopHere: ir.JkClientReq}, true

	case SentinelGuestNRADDR:
		// x13 := NRADDR
		nraddr := ir.Get(ir.I64, nraddrOffset)
		block.Append(ir.Put(x13Offset, nraddr))
		block.Append(ir.Exit(nil, ir.JkBoring, pc+20, 20))
		return DisResult{Len: 20, WhatNext: StopHere, JkStopHere: ir.JkBoring}, true

	case SentinelCallNoRedir:
		// Branch-and-link-to-no-redir through x5 (t0): PC <- x5, no chain.
		target := ir.Get(ir.I64, x5Offset)
		tmp := block.NewTemp(ir.I64)
		block.Append(ir.WrTmp(tmp, target))
		block.Append(ir.Put(pcOffset, ir.ReadTmp(tmp)))
		block.Append(ir.Exit(nil, ir.JkNoRedir, 0, 20))
		return DisResult{Len: 20, WhatNext: StopHere, JkStopHere: ir.JkNoRedir}, true

	case SentinelIRInject:
		block.Append(ir.InjectIR("client-supplied IR"))
		block.Append(ir.Exit(nil, ir.JkInvalICache, pc+20, 20))
		return DisResult{Len: 20, WhatNext: StopHere, JkStopHere: ir.JkInvalICache}, true

	default:
		if diag != nil {
			diag.Printf("unrecognized pseudo-instruction sentinel %#x at pc=%#x", sentinel, pc)
		}
		return DisResult{}, false
	}
}
