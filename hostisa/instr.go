package hostisa

// Op tags the 77 host-instruction variants the selector emits and the
// emitter encodes. Grouped by the RV64GC instruction classes the spec
// walks through in §4.4-§4.6: integer ALU, loads/stores, control flow,
// multiply/divide, atomics, and the translator's own housekeeping forms
// (event check, chain/unchain exits, guest-register spill/reload).
type Op uint8

const (
	// Integer ALU, register-register.
	OpADD Op = iota
	OpSUB
	OpAND
	OpOR
	OpXOR
	OpSLL
	OpSRL
	OpSRA
	OpSLT
	OpSLTU
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	// Integer ALU, register-immediate.
	OpADDI
	OpANDI
	OpORI
	OpXORI
	OpSLLI
	OpSRLI
	OpSRAI
	OpSLTI
	OpSLTIU
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Upper-immediate / PC-relative materialization.
	OpLUI
	OpAUIPC

	// Multiply/divide.
	OpMUL
	OpMULH
	OpMULHU
	OpMULW
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpDIVW
	OpDIVUW
	OpREMW
	OpREMUW

	// Loads/stores (also used for guest-register spill/reload against s0).
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU
	OpSB
	OpSH
	OpSW
	OpSD

	// Control flow.
	OpBEQ
	OpBNE
	OpBLT
	OpBLTU
	OpBGE
	OpBGEU
	OpJAL
	OpJALR

	// Atomics / LL-SC.
	OpLRW
	OpLRD
	OpSCW
	OpSCD
	OpAMOW
	OpAMOD
	OpFENCE

	// Pseudo-ops the emitter expands to multiple real instructions.
	OpLI          // 64-bit immediate materialization (up to 8 real instructions)
	OpMV          // register-register move, encoded as `addi rd, rs, 0`
	OpNOP
	OpCSEL // conditional-select: Rd = Rs1 != 0 ? Rs2 : Rs3, emitted as a branch-over-move
	OpCall // call to a fixed runtime-helper address; see Instr.Imm/Target and Uses()

	// Translator housekeeping, not part of the RV64GC ISA proper.
	OpEvCheck  // event-check sequence, exactly 20 bytes
	OpXDirect  // chainable direct exit: patchable tail, 20 bytes
	OpXIndir   // indirect exit through a computed target
	OpXAssisted
)

// RegRole classifies how an instruction touches one of its register slots,
// driving the register allocator's live-range bookkeeping.
type RegRole uint8

const (
	RoleRead RegRole = iota
	RoleWrite
	RoleReadWrite
)

// RegUse names one register operand and its role.
type RegUse struct {
	Reg  Reg
	Role RegRole
}

// Instr is a tagged-union host instruction. Exactly the fields relevant to
// Op are meaningful; the selector builds these with virtual registers, the
// allocator rewrites Rd/Rs1/Rs2/Rs3 in place to physical registers, and the
// emitter consumes the result.
type Instr struct {
	Op Op

	// Rs3 holds OpCSEL's false-value source (Rd = Rs1 != 0 ? Rs2 : Rs3).
	Rd, Rs1, Rs2, Rs3 Reg
	// Imm is a generic signed immediate, except for OpCall where it holds
	// the call's argument count (0..8, see Uses()).
	Imm int64

	// Branch/jump target: the guest PC for XDirect, a local instruction
	// index for the selector's own branches and JAL (resolved to a byte
	// displacement by the emitter), left zero for forms that compute their
	// target purely from registers (JALR, XIndir), or the absolute address
	// of the runtime helper for OpCall.
	Target uint64

	// AMO/LL-SC metadata.
	Width   int  // 32 or 64
	Aq, Rl  bool

	// XAssisted/event-check metadata: the jump-kind reason surfaced to the
	// dispatcher, carried as an opaque small integer so this package does
	// not need to import ir.
	AssistReason uint8

	// Chainable exits: whether this XDirect slot is currently chained
	// (c.jr, 2 bytes) or unchained (c.jalr, 2 bytes) — see emitter's
	// chain/unchain protocol. Meaningful only for OpXDirect.
	Chained bool
}

// Uses returns the register operands of instr and their roles, in a stable
// order. Instructions that do not touch x0 as a destination never appear
// with Rd set to the zero register; callers building Instr values are
// responsible for honoring that (mirrors the decoder's own zero-register
// discipline).
func (instr Instr) Uses() []RegUse {
	switch instr.Op {
	case OpLUI, OpAUIPC, OpLI, OpNOP:
		return writeOnly(instr.Rd)
	case OpADD, OpSUB, OpAND, OpOR, OpXOR, OpSLL, OpSRL, OpSRA, OpSLT, OpSLTU,
		OpADDW, OpSUBW, OpSLLW, OpSRLW, OpSRAW,
		OpMUL, OpMULH, OpMULHU, OpMULW,
		OpDIV, OpDIVU, OpREM, OpREMU, OpDIVW, OpDIVUW, OpREMW, OpREMUW:
		return rwRd2Src(instr.Rd, instr.Rs1, instr.Rs2)
	case OpADDI, OpANDI, OpORI, OpXORI, OpSLLI, OpSRLI, OpSRAI, OpSLTI, OpSLTIU,
		OpADDIW, OpSLLIW, OpSRLIW, OpSRAIW, OpMV:
		return rwRd1Src(instr.Rd, instr.Rs1)
	case OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU:
		return rwRd1Src(instr.Rd, instr.Rs1)
	case OpSB, OpSH, OpSW, OpSD:
		return readOnly(instr.Rs1, instr.Rs2)
	case OpBEQ, OpBNE, OpBLT, OpBLTU, OpBGE, OpBGEU:
		return readOnly(instr.Rs1, instr.Rs2)
	case OpJAL:
		return writeOnly(instr.Rd)
	case OpJALR:
		return rwRd1Src(instr.Rd, instr.Rs1)
	case OpLRW, OpLRD:
		return rwRd1Src(instr.Rd, instr.Rs1)
	case OpSCW, OpSCD:
		return append(rwRd1Src(instr.Rd, instr.Rs1), RegUse{instr.Rs2, RoleRead})
	case OpAMOW, OpAMOD:
		regs := rwRd1Src(instr.Rd, instr.Rs1)
		return append(regs, RegUse{instr.Rs2, RoleRead})
	case OpFENCE, OpEvCheck:
		return nil
	case OpCSEL:
		return rwRd3Src(instr.Rd, instr.Rs1, instr.Rs2, instr.Rs3)
	case OpCall:
		return callUses(instr.Imm)
	case OpXDirect, OpXAssisted:
		// Conditional exits only read; the guard was already computed into
		// a register by the selector before the exit instruction itself.
		return readOnly(instr.Rs1)
	case OpXIndir:
		return readOnly(instr.Rs1)
	default:
		return nil
	}
}

func writeOnly(rd Reg) []RegUse { return []RegUse{{rd, RoleWrite}} }

func readOnly(regs ...Reg) []RegUse {
	out := make([]RegUse, 0, len(regs))
	for _, r := range regs {
		out = append(out, RegUse{r, RoleRead})
	}
	return out
}

func rwRd1Src(rd, rs1 Reg) []RegUse {
	return []RegUse{{rd, RoleWrite}, {rs1, RoleRead}}
}

func rwRd2Src(rd, rs1, rs2 Reg) []RegUse {
	return []RegUse{{rd, RoleWrite}, {rs1, RoleRead}, {rs2, RoleRead}}
}

func rwRd3Src(rd, rs1, rs2, rs3 Reg) []RegUse {
	return []RegUse{{rd, RoleWrite}, {rs1, RoleRead}, {rs2, RoleRead}, {rs3, RoleRead}}
}

// callUses builds OpCall's fixed clobber set: it reads the first argCount
// of a0..a7 (the call's argument registers) and clobbers every integer
// caller-save (a0..a7) plus every caller-save float register — the same
// split Universe.AllocableFloat already encodes, since this translator
// never allocates a callee-save float register in the first place.
func callUses(argCount int64) []RegUse {
	regs := make([]RegUse, 0, 8+len(GlobalUniverse().AllocableFloat))
	for i := int64(0); i < argCount && i < 8; i++ {
		regs = append(regs, RegUse{PhysicalInt(RegA0 + uint32(i)), RoleRead})
	}
	for enc := RegA0; enc <= RegA7; enc++ {
		regs = append(regs, RegUse{PhysicalInt(enc), RoleWrite})
	}
	for _, enc := range GlobalUniverse().AllocableFloat {
		regs = append(regs, RegUse{PhysicalFloat(enc), RoleWrite})
	}
	return regs
}

// String names instr's opcode, for disassembly and test failure messages.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "OP?"
}

var opNames = map[Op]string{
	OpADD: "add", OpSUB: "sub", OpAND: "and", OpOR: "or", OpXOR: "xor",
	OpSLL: "sll", OpSRL: "srl", OpSRA: "sra", OpSLT: "slt", OpSLTU: "sltu",
	OpADDW: "addw", OpSUBW: "subw", OpSLLW: "sllw", OpSRLW: "srlw", OpSRAW: "sraw",
	OpADDI: "addi", OpANDI: "andi", OpORI: "ori", OpXORI: "xori",
	OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai", OpSLTI: "slti", OpSLTIU: "sltiu",
	OpADDIW: "addiw", OpSLLIW: "slliw", OpSRLIW: "srliw", OpSRAIW: "sraiw",
	OpLUI: "lui", OpAUIPC: "auipc",
	OpMUL: "mul", OpMULH: "mulh", OpMULHU: "mulhu", OpMULW: "mulw",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",
	OpDIVW: "divw", OpDIVUW: "divuw", OpREMW: "remw", OpREMUW: "remuw",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLD: "ld", OpLBU: "lbu", OpLHU: "lhu", OpLWU: "lwu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSD: "sd",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBLTU: "bltu", OpBGE: "bge", OpBGEU: "bgeu",
	OpJAL: "jal", OpJALR: "jalr",
	OpLRW: "lr.w", OpLRD: "lr.d", OpSCW: "sc.w", OpSCD: "sc.d",
	OpAMOW: "amo.w", OpAMOD: "amo.d", OpFENCE: "fence",
	OpLI: "li", OpMV: "mv", OpNOP: "nop", OpCSEL: "csel", OpCall: "call",
	OpEvCheck: "evcheck", OpXDirect: "xdirect", OpXIndir: "xindir", OpXAssisted: "xassisted",
}
