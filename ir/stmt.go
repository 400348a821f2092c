package ir

// StmtKind tags which payload of Stmt is in use.
type StmtKind uint8

const (
	StmtWrTmp StmtKind = iota
	StmtPut            // guest-state write
	StmtStore          // little-endian memory store
	StmtExit           // exit-on-condition
	StmtMBarrier
	StmtLLSC // load-linked/store-conditional pair
	StmtCAS  // compare-and-swap
	StmtIRInject
	StmtInstrMark
)

// Stmt is a tagged IR statement. Exactly one payload group is meaningful,
// selected by Kind.
type Stmt struct {
	Kind StmtKind

	// StmtWrTmp
	WrTmpDst   Temp
	WrTmpValue *Expr

	// StmtPut
	PutOffset int64
	PutValue  *Expr

	// StmtStore: width is PutValue/StoreValue.Typ
	StoreAddr  *Expr
	StoreValue *Expr

	// StmtExit
	ExitGuard  *Expr // nil means unconditional
	ExitJump   JumpKind
	ExitTarget uint64 // constant target guest PC, valid when ExitJump allows chaining
	ExitPCOff  int64  // fallback PC offset when guard is false (fallthrough)

	// StmtLLSC
	LLSCIsStore bool
	LLSCAddr    *Expr
	LLSCSrcVal  *Expr  // store value, valid when LLSCIsStore
	LLSCResult  Temp   // load result, or 1/0 store-success flag
	LLSCWidth   Type

	// StmtCAS
	CASAddr     *Expr
	CASExpected *Expr
	CASNew      *Expr
	CASOldVal   Temp // value read before the swap attempt
	CASWidth    Type

	// StmtIRInject / StmtInstrMark
	Note string
	Addr uint64
}

// WrTmp builds a write-temporary statement.
func WrTmp(dst Temp, value *Expr) Stmt {
	return Stmt{Kind: StmtWrTmp, WrTmpDst: dst, WrTmpValue: value}
}

// Put builds a guest-state write statement at the given byte offset.
func Put(offset int64, value *Expr) Stmt {
	return Stmt{Kind: StmtPut, PutOffset: offset, PutValue: value}
}

// Store builds a little-endian memory store statement.
func Store(addr, value *Expr) Stmt {
	return Stmt{Kind: StmtStore, StoreAddr: addr, StoreValue: value}
}

// Exit builds an exit-on-condition statement. guard == nil means
// unconditional.
func Exit(guard *Expr, jk JumpKind, target uint64, pcOff int64) Stmt {
	return Stmt{Kind: StmtExit, ExitGuard: guard, ExitJump: jk, ExitTarget: target, ExitPCOff: pcOff}
}

// MemBarrier builds a memory-barrier (fence) statement.
func MemBarrier() Stmt { return Stmt{Kind: StmtMBarrier} }

// LoadLinked builds the load half of an LL/SC pair.
func LoadLinked(result Temp, width Type, addr *Expr) Stmt {
	return Stmt{Kind: StmtLLSC, LLSCIsStore: false, LLSCAddr: addr, LLSCResult: result, LLSCWidth: width}
}

// StoreConditional builds the store half of an LL/SC pair. The IR
// primitive's native result is 1-on-success; callers translate that to
// RISC-V's 0-success/1-fail convention when writing rd (see the
// decoder's decodeSC).
func StoreConditional(result Temp, width Type, addr, value *Expr) Stmt {
	return Stmt{Kind: StmtLLSC, LLSCIsStore: true, LLSCAddr: addr, LLSCSrcVal: value, LLSCResult: result, LLSCWidth: width}
}

// CAS builds a singleton compare-and-swap statement. Double CAS (for
// 128-bit values) is not supported, matching the selector's contract.
func CAS(oldVal Temp, width Type, addr, expected, newVal *Expr) Stmt {
	return Stmt{Kind: StmtCAS, CASAddr: addr, CASExpected: expected, CASNew: newVal, CASOldVal: oldVal, CASWidth: width}
}

// InjectIR marks a point where the pseudo-instruction channel spliced in
// caller-supplied IR (the "IR injection" client action).
func InjectIR(note string) Stmt { return Stmt{Kind: StmtIRInject, Note: note} }

// InstrMark records the guest address an instruction's IR statements
// originated from, for diagnostics.
func InstrMark(addr uint64) Stmt { return Stmt{Kind: StmtInstrMark, Addr: addr} }

// Block is a typed IR super-block: a flat statement list plus the
// terminator jump kind carried by its final StmtExit. Blocks are built by
// the decoder one guest instruction at a time and consumed whole by the
// instruction selector.
type Block struct {
	Stmts    []Stmt
	nextTmp  uint32
}

// NewTemp allocates a fresh, block-unique temporary of the given type.
func (b *Block) NewTemp(t Type) Temp {
	id := b.nextTmp
	b.nextTmp++
	return Temp{ID: id, Typ: t}
}

// Append adds statements to the block in program order.
func (b *Block) Append(stmts ...Stmt) { b.Stmts = append(b.Stmts, stmts...) }

// Terminator returns the block's final exit statement and whether one is
// present. A well-formed block built by the decoder always ends in
// exactly one StmtExit, possibly preceded by other exits for
// fall-through-after-conditional-branch sequencing.
func (b *Block) Terminator() (Stmt, bool) {
	for i := len(b.Stmts) - 1; i >= 0; i-- {
		if b.Stmts[i].Kind == StmtExit {
			return b.Stmts[i], true
		}
	}
	return Stmt{}, false
}
