package emitter

import (
	"fmt"

	"github.com/sarchlab/rv64xlate/hostisa"
)

// TailLen is the fixed length of a patchable XDirect tail: the 18-byte
// address materialization plus the 2-byte terminator jump (§4.4, §6).
const TailLen = Addr48SeqLen + 2

// tailForm distinguishes the two terminator states a patched XDirect tail
// can be in. The prefix (address materialization) is identical in both;
// only the last two bytes differ.
type tailForm int

const (
	formUnchained tailForm = iota // c.jalr  -> chain-me dispatcher entry
	formChained                   // c.jr    -> a translated block directly
)

func (f tailForm) word() uint16 {
	chainReg := hostisa.PhysicalInt(ChainReg)
	if f == formChained {
		return cJR(chainReg)
	}
	return cJALR(chainReg)
}

// EmitXDirectTail appends a fresh, unchained 20-byte patchable tail
// targeting the chain-me dispatcher entry point chainMeAddr.
func EmitXDirectTail(buf []byte, chainMeAddr uint64) []byte {
	buf = addr48ToIreg(buf, chainMeAddr)
	return append2(buf, formUnchained.word())
}

// ChainXDirect rewrites a previously emitted, unchained tail in place so
// it jumps directly to target instead of calling the chain-me dispatcher.
// It asserts the tail's current 20 bytes are exactly what a fresh
// EmitXDirectTail(chainMeAddr) would produce before touching anything.
func ChainXDirect(tail []byte, chainMeAddr, target uint64) error {
	return rewriteTail(tail, chainMeAddr, formUnchained, target, formChained)
}

// RechainXDirect rewrites an already-chained tail to a new target without
// passing back through the chain-me dispatcher. Unlike ChainXDirect, the
// expected pre-image is the *previous* chained target, not the original
// chain-me address (§8, "chain → chain" scenario).
func RechainXDirect(tail []byte, previousTarget, newTarget uint64) error {
	return rewriteTail(tail, previousTarget, formChained, newTarget, formChained)
}

// UnchainXDirect mirrors ChainXDirect: rewrites a chained tail back to the
// unchained chain-me form.
func UnchainXDirect(tail []byte, chainedTarget, chainMeAddr uint64) error {
	return rewriteTail(tail, chainedTarget, formChained, chainMeAddr, formUnchained)
}

func rewriteTail(tail []byte, expectAddr uint64, expectForm tailForm, newAddr uint64, newForm tailForm) error {
	if len(tail) < TailLen {
		return fmt.Errorf("emitter: invariant violation: tail shorter than %d bytes", TailLen)
	}
	if !IsAddr48ToIreg(tail, expectAddr) {
		return fmt.Errorf("emitter: invariant violation: chain/unchain pre-image mismatch: tail does not re-emit to %#x", expectAddr)
	}
	got := uint16(tail[Addr48SeqLen]) | uint16(tail[Addr48SeqLen+1])<<8
	if got != expectForm.word() {
		return fmt.Errorf("emitter: invariant violation: chain/unchain pre-image mismatch: terminator %#04x, want %#04x", got, expectForm.word())
	}

	fresh := addr48ToIreg(nil, newAddr)
	copy(tail[:Addr48SeqLen], fresh)
	putLE16(tail[Addr48SeqLen:TailLen], newForm.word())
	return nil
}
