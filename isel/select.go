// Package isel is the instruction selector: it walks a typed ir.Block and
// produces the []hostisa.Instr sequence that implements it, allocating a
// fresh virtual register per live IR temporary and lowering every guest
// Get/Put against the base-block pointer (hostisa.RegS0, adjusted by
// hostisa.BaseBlockOffsetAdjust) so every access fits a signed 12-bit
// immediate (§4.4).
package isel

import (
	"fmt"

	"github.com/sarchlab/rv64xlate/config"
	"github.com/sarchlab/rv64xlate/hostisa"
	"github.com/sarchlab/rv64xlate/ir"
)

// Config narrows config.Options to the fields handed to the selector, so
// isel does not need to import the full translator options surface. Select
// reads neither field: every statically known direct exit lowers to the
// same chainable XDirect whatever MaxGuestAddrHint is, and none is marked
// for a fast entry point.
type Config struct {
	MaxGuestAddrHint uint64
	LLSCNative       bool
}

// FromOptions derives a selector Config from the translator's options.
func FromOptions(o *config.Options) Config {
	return Config{MaxGuestAddrHint: o.MaxGuestAddrHint, LLSCNative: o.LLSCNative}
}

// Selector lowers one ir.Block at a time. It carries no state across
// blocks — each translation unit gets a fresh Selector.
type Selector struct {
	cfg      Config
	nextVReg uint32
	temps    map[uint32]hostisa.Reg // ir.Temp.ID -> assigned vreg
	instrs   []hostisa.Instr
}

// New creates a Selector for one translation unit.
func New(cfg Config) *Selector {
	return &Selector{cfg: cfg, temps: make(map[uint32]hostisa.Reg)}
}

func (s *Selector) freshInt() hostisa.Reg {
	r := hostisa.VirtualInt(s.nextVReg)
	s.nextVReg++
	return r
}

func (s *Selector) emit(instr hostisa.Instr) { s.instrs = append(s.instrs, instr) }

// Select lowers block to a host instruction sequence. Every translated
// block opens with a single event-check instruction (§4.3); all of a
// block's own local branch-around targets are instruction indices
// relative to s.instrs, so this must be emitted before any statement is
// selected to keep those indices correct.
func (s *Selector) Select(block *ir.Block) ([]hostisa.Instr, error) {
	s.emit(hostisa.Instr{Op: hostisa.OpEvCheck})

	for _, stmt := range block.Stmts {
		if err := s.selectStmt(stmt); err != nil {
			return nil, err
		}
	}
	return s.instrs, nil
}

func (s *Selector) selectStmt(stmt ir.Stmt) error {
	switch stmt.Kind {
	case ir.StmtWrTmp:
		reg := s.selectExpr(stmt.WrTmpValue)
		s.temps[stmt.WrTmpDst.ID] = reg
		return nil

	case ir.StmtPut:
		val := s.selectExpr(stmt.PutValue)
		s.emit(hostisa.Instr{
			Op: hostisa.OpSD, Rs1: hostisa.PhysicalInt(hostisa.RegS0), Rs2: val,
			Imm: stmt.PutOffset - hostisa.BaseBlockOffsetAdjust,
		})
		return nil

	case ir.StmtStore:
		addr := s.selectExpr(stmt.StoreAddr)
		val := s.selectExpr(stmt.StoreValue)
		op := storeOpForWidth(stmt.StoreValue.Typ)
		s.emit(hostisa.Instr{Op: op, Rs1: addr, Rs2: val})
		return nil

	case ir.StmtExit:
		return s.selectExit(stmt)

	case ir.StmtMBarrier:
		s.emit(hostisa.Instr{Op: hostisa.OpFENCE})
		return nil

	case ir.StmtLLSC:
		return s.selectLLSC(stmt)

	case ir.StmtCAS:
		return s.selectCAS(stmt)

	case ir.StmtIRInject, ir.StmtInstrMark:
		// No host code: these are diagnostic/extension markers only.
		return nil

	default:
		return fmt.Errorf("isel: unhandled statement kind %d", stmt.Kind)
	}
}

func storeOpForWidth(t ir.Type) hostisa.Op {
	switch t {
	case ir.I8:
		return hostisa.OpSB
	case ir.I16:
		return hostisa.OpSH
	case ir.I32:
		return hostisa.OpSW
	default:
		return hostisa.OpSD
	}
}

func loadOpForWidth(t ir.Type, signed bool) hostisa.Op {
	switch t {
	case ir.I8:
		if signed {
			return hostisa.OpLB
		}
		return hostisa.OpLBU
	case ir.I16:
		if signed {
			return hostisa.OpLH
		}
		return hostisa.OpLHU
	case ir.I32:
		if signed {
			return hostisa.OpLW
		}
		return hostisa.OpLWU
	default:
		return hostisa.OpLD
	}
}

// selectExit lowers an Exit statement. A conditional exit (Guard != nil)
// becomes a patchable XDirect gated by the guard register — §4.6's
// chain/unchain protocol applies only to Boring/Call/Ret kinds with a
// statically known target; every assisted kind always lowers to
// XAssisted, carrying the jump kind as the dispatcher-visible reason.
func (s *Selector) selectExit(stmt ir.Stmt) error {
	var guard hostisa.Reg
	hasGuard := stmt.ExitGuard != nil
	if hasGuard {
		guard = s.selectExpr(stmt.ExitGuard)
	}

	if stmt.ExitJump.IsAssisted() {
		s.emit(hostisa.Instr{
			Op: hostisa.OpXAssisted, Rs1: guard,
			AssistReason: uint8(stmt.ExitJump), Target: stmt.ExitTarget,
		})
		return nil
	}

	if stmt.ExitTarget != 0 {
		// Statically known guest target: chainable.
		s.emit(hostisa.Instr{
			Op: hostisa.OpXDirect, Rs1: guard, Target: stmt.ExitTarget, Chained: false,
		})
		return nil
	}

	// Target resolved only at run time (JALR/ret/C.JR): the dispatcher
	// reads the PC the block already wrote into guest state.
	s.emit(hostisa.Instr{Op: hostisa.OpXIndir, Rs1: guard})
	return nil
}

// selectLLSC lowers the native-mode RV64A LL/SC primitive pair.
func (s *Selector) selectLLSC(stmt ir.Stmt) error {
	addr := s.selectExpr(stmt.LLSCAddr)
	op := hostisa.OpLRD
	scOp := hostisa.OpSCD
	if stmt.LLSCWidth == ir.I32 {
		op, scOp = hostisa.OpLRW, hostisa.OpSCW
	}

	dst := s.freshInt()
	s.temps[stmt.LLSCResult.ID] = dst

	if !stmt.LLSCIsStore {
		s.emit(hostisa.Instr{Op: op, Rd: dst, Rs1: addr, Width: stmt.LLSCWidth.Bits()})
		return nil
	}

	val := s.selectExpr(stmt.LLSCSrcVal)
	scRes := s.freshInt()
	s.emit(hostisa.Instr{Op: scOp, Rd: scRes, Rs1: addr, Rs2: val, Width: stmt.LLSCWidth.Bits()})
	// Host sc writes 0 on success; the IR result is 1 on success.
	s.emit(hostisa.Instr{Op: hostisa.OpSLTIU, Rd: dst, Rs1: scRes, Imm: 1})
	return nil
}

// selectCAS lowers the compare-and-swap primitive as a single retrying
// LR/SC pair: LR the current value, compare against Expected, SC the New
// value, and branch back to the LR on mismatch or SC failure so the
// caller's single CAS statement observes exactly one atomic transition.
func (s *Selector) selectCAS(stmt ir.Stmt) error {
	addr := s.selectExpr(stmt.CASAddr)
	expected := s.selectExpr(stmt.CASExpected)
	newVal := s.selectExpr(stmt.CASNew)

	lrOp, scOp := hostisa.OpLRD, hostisa.OpSCD
	if stmt.CASWidth == ir.I32 {
		lrOp, scOp = hostisa.OpLRW, hostisa.OpSCW
	}

	old := s.freshInt()
	s.temps[stmt.CASOldVal.ID] = old

	retryTarget := len(s.instrs) // local label: the LR instruction's index
	s.emit(hostisa.Instr{Op: lrOp, Rd: old, Rs1: addr, Width: stmt.CASWidth.Bits()})

	mismatch := s.freshInt()
	s.emit(hostisa.Instr{Op: hostisa.OpSUB, Rd: mismatch, Rs1: old, Rs2: expected})
	s.emit(hostisa.Instr{Op: hostisa.OpBNE, Rs1: mismatch, Rs2: hostisa.PhysicalInt(hostisa.RegZero), Target: uint64(retryTarget)})

	scResult := s.freshInt()
	s.emit(hostisa.Instr{Op: scOp, Rd: scResult, Rs1: addr, Rs2: newVal, Width: stmt.CASWidth.Bits()})
	s.emit(hostisa.Instr{Op: hostisa.OpBNE, Rs1: scResult, Rs2: hostisa.PhysicalInt(hostisa.RegZero), Target: uint64(retryTarget)})
	return nil
}
