package emitter

import "github.com/sarchlab/rv64xlate/hostisa"

// CSELSeqLen is the fixed length of the conditional-select pseudo's
// branch-over-move expansion: beq, mv, jal, mv, four real 32-bit words.
const CSELSeqLen = 16

// emitCSEL expands the conditional-select pseudo (Rd = Rs1 != 0 ? Rs2 :
// Rs3) into a branch-over-move pair:
//
//	beq  rs1, zero, +12   ; cond false, skip to the else-move
//	mv   rd, rs2          ; cond true: rd = then-value
//	jal  zero, +8         ; skip the else-move
//	mv   rd, rs3          ; cond false: rd = else-value
func emitCSEL(buf []byte, instr hostisa.Instr) []byte {
	zero := hostisa.PhysicalInt(hostisa.RegZero)
	buf = append4(buf, bType(opBr, branchFunct3[hostisa.OpBEQ], instr.Rs1, zero, 12))
	buf = append4(buf, iType(opImm, 0, instr.Rd, instr.Rs2, 0))
	buf = append4(buf, jType(opJAL, zero, 8))
	buf = append4(buf, iType(opImm, 0, instr.Rd, instr.Rs3, 0))
	return buf
}
