package hostisa

import (
	"fmt"
	"strings"
)

// Disassemble renders a single host instruction in RISC-V assembler
// syntax, best-effort — housekeeping ops (OpEvCheck, OpXDirect, ...) print
// a bracketed synthetic form since they have no native mnemonic.
func Disassemble(instr Instr) string {
	switch instr.Op {
	case OpLUI, OpAUIPC:
		return fmt.Sprintf("%s %s, %#x", instr.Op, instr.Rd, instr.Imm)
	case OpJAL:
		return fmt.Sprintf("jal %s, %#x", instr.Rd, instr.Target)
	case OpJALR:
		return fmt.Sprintf("jalr %s, %s, %d", instr.Rd, instr.Rs1, instr.Imm)
	case OpBEQ, OpBNE, OpBLT, OpBLTU, OpBGE, OpBGEU:
		return fmt.Sprintf("%s %s, %s, %#x", instr.Op, instr.Rs1, instr.Rs2, instr.Target)
	case OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU:
		return fmt.Sprintf("%s %s, %d(%s)", instr.Op, instr.Rd, instr.Imm, instr.Rs1)
	case OpSB, OpSH, OpSW, OpSD:
		return fmt.Sprintf("%s %s, %d(%s)", instr.Op, instr.Rs2, instr.Imm, instr.Rs1)
	case OpLI:
		return fmt.Sprintf("li %s, %#x", instr.Rd, instr.Imm)
	case OpMV:
		return fmt.Sprintf("mv %s, %s", instr.Rd, instr.Rs1)
	case OpNOP:
		return "nop"
	case OpLRW, OpLRD:
		return fmt.Sprintf("%s %s, (%s)%s", instr.Op, instr.Rd, instr.Rs1, aqrl(instr))
	case OpSCW, OpSCD:
		return fmt.Sprintf("%s %s, %s, (%s)%s", instr.Op, instr.Rd, instr.Rs2, instr.Rs1, aqrl(instr))
	case OpAMOW, OpAMOD:
		return fmt.Sprintf("%s %s, %s, (%s)%s", instr.Op, instr.Rd, instr.Rs2, instr.Rs1, aqrl(instr))
	case OpFENCE:
		return "fence"
	case OpEvCheck:
		return "[evcheck]"
	case OpXDirect:
		state := "unchained(c.jalr)"
		if instr.Chained {
			state = "chained(c.jr)"
		}
		return fmt.Sprintf("[xdirect -> %#x, %s]", instr.Target, state)
	case OpXIndir:
		return fmt.Sprintf("[xindir via %s]", instr.Rs1)
	case OpXAssisted:
		return fmt.Sprintf("[xassisted reason=%d]", instr.AssistReason)
	default:
		return fmt.Sprintf("%s %s, %s, %s", instr.Op, instr.Rd, instr.Rs1, instr.Rs2)
	}
}

func aqrl(instr Instr) string {
	var b strings.Builder
	if instr.Aq {
		b.WriteString(".aq")
	}
	if instr.Rl {
		b.WriteString(".rl")
	}
	return b.String()
}

// DisassembleBlock renders a sequence of host instructions, one per line.
func DisassembleBlock(instrs []Instr) string {
	var b strings.Builder
	for _, instr := range instrs {
		b.WriteString(Disassemble(instr))
		b.WriteByte('\n')
	}
	return b.String()
}
