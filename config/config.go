// Package config holds translator-wide options: decode/IR/asm tracing
// flags, the LR/SC emulation mode, and the forward-edge fast-entry-point
// threshold the selector and emitter consult. Shaped after the teacher's
// TimingConfig (same JSON-backed Default/Load/Save/Validate/Clone idiom),
// repurposed from per-instruction latency modeling to translation options.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Options holds the translator's run-time configuration.
type Options struct {
	// TraceDecode logs one line per decoded guest instruction.
	TraceDecode bool `json:"trace_decode"`

	// TraceIR dumps the IR block built for each guest super-block.
	TraceIR bool `json:"trace_ir"`

	// TraceAsm dumps the selected and encoded host instructions for each
	// translation.
	TraceAsm bool `json:"trace_asm"`

	// LLSCNative selects RV64A LL/SC lowering mode: true emits the native
	// IR LLSC primitive, false emits the pseudo-state fallback-triplet
	// emulation (see decoder's ABI.LLSCNative, which this feeds).
	LLSCNative bool `json:"llsc_native"`

	// MaxGuestAddrHint upper-bounds the guest address space. It is passed
	// to the selector through isel.Config, which does not read it; Validate
	// requires it to be non-zero. It is never a correctness constraint.
	MaxGuestAddrHint uint64 `json:"max_guest_addr_hint"`

	// ForwardEdgeFastEntryThreshold is the minimum observed hit count on a
	// translation's secondary (non-chained) entry point before the
	// dispatcher promotes it to a chainable forward-edge target.
	ForwardEdgeFastEntryThreshold uint64 `json:"forward_edge_fast_entry_threshold"`

	// MaxBlockInstrs caps how many guest instructions one translation unit
	// may decode before forcing a block boundary.
	MaxBlockInstrs int `json:"max_block_instrs"`
}

// Default returns the translator's default options.
func Default() *Options {
	return &Options{
		TraceDecode:                   false,
		TraceIR:                       false,
		TraceAsm:                      false,
		LLSCNative:                    false,
		MaxGuestAddrHint:              1 << 47,
		ForwardEdgeFastEntryThreshold: 100,
		MaxBlockInstrs:                50,
	}
}

// Load reads Options from a JSON file, starting from Default and
// overlaying whatever fields the file sets.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	opts := Default()
	if err := json.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return opts, nil
}

// Save writes opts to path as indented JSON.
func (o *Options) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("config: serialize: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate reports whether o describes a usable configuration.
func (o *Options) Validate() error {
	if o.MaxGuestAddrHint == 0 {
		return fmt.Errorf("max_guest_addr_hint must be > 0")
	}
	if o.MaxBlockInstrs <= 0 {
		return fmt.Errorf("max_block_instrs must be > 0")
	}
	return nil
}

// Clone returns a deep copy of o (Options has no reference fields, so this
// is a value copy, but the method is kept to match the shape callers that
// mutate a working copy expect).
func (o *Options) Clone() *Options {
	c := *o
	return &c
}
