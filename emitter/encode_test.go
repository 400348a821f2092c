package emitter_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/rv64xlate/decoder"
	"github.com/sarchlab/rv64xlate/emitter"
	"github.com/sarchlab/rv64xlate/hostisa"
)

var noAddrs = emitter.DispatchAddrs{ChainMe: 0x9000, Indirect: 0xA000, Assisted: 0xB000}

func firstWord(t *testing.T, buf []byte) uint32 {
	t.Helper()
	require.GreaterOrEqual(t, len(buf), 4)
	return binary.LittleEndian.Uint32(buf[:4])
}

func TestEmit_RegRegALU_RoundTripsThroughDisassemble(t *testing.T) {
	instrs := []hostisa.Instr{
		{Op: hostisa.OpADD, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegA1), Rs2: hostisa.PhysicalInt(hostisa.RegA2)},
	}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 4, "a single ALU op must encode to exactly one 32-bit word")

	text := decoder.Disassemble(firstWord(t, buf))
	assert.Equal(t, "add a0, a1, a2", text)
}

func TestEmit_Load_RoundTripsThroughDisassemble(t *testing.T) {
	instrs := []hostisa.Instr{
		{Op: hostisa.OpLD, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegS0), Imm: -16},
	}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 4)

	text := decoder.Disassemble(firstWord(t, buf))
	assert.Equal(t, "ld a0, -16(s0)", text)
}

func TestEmit_ShiftImmediate_EncodesShamtNotSignExtendedImm(t *testing.T) {
	instrs := []hostisa.Instr{
		{Op: hostisa.OpSLLI, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegA1), Imm: 5},
	}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 4)

	word := firstWord(t, buf)
	shamt := (word >> 20) & 0x3F
	assert.Equal(t, uint32(5), shamt)
}

func TestEmit_ArithmeticRightShift_SetsTheHighFunct7Bit(t *testing.T) {
	instrs := []hostisa.Instr{
		{Op: hostisa.OpSRAI, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegA1), Imm: 3},
	}
	buf := emitter.Emit(nil, instrs, noAddrs)
	word := firstWord(t, buf)
	funct7 := (word >> 25) & 0x7F
	assert.Equal(t, uint32(0b0100000), funct7)
}

func TestEmit_NOP_EncodesAsAddiZeroZeroZero(t *testing.T) {
	instrs := []hostisa.Instr{{Op: hostisa.OpNOP}}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 4)

	text := decoder.Disassemble(firstWord(t, buf))
	assert.Equal(t, "mv zero, zero", text, "an addi with a zero immediate disassembles as the mv alias")
}

func TestEmit_MV_EncodesAsAddiRdRs0(t *testing.T) {
	instrs := []hostisa.Instr{{Op: hostisa.OpMV, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegA1)}}
	buf := emitter.Emit(nil, instrs, noAddrs)
	text := decoder.Disassemble(firstWord(t, buf))
	assert.Equal(t, "mv a0, a1", text)
}

func TestEmit_TinyLI_EncodesAsCompressedLi(t *testing.T) {
	instrs := []hostisa.Instr{{Op: hostisa.OpLI, Rd: hostisa.PhysicalInt(hostisa.RegA0), Imm: 7}}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 2, "a value fitting the compressed c.li's signed 6-bit range materializes in one 16-bit instruction")
}

func TestEmit_SmallLI_EncodesAsSingleAddi(t *testing.T) {
	instrs := []hostisa.Instr{{Op: hostisa.OpLI, Rd: hostisa.PhysicalInt(hostisa.RegA0), Imm: 200}}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 4, "a value fitting 12 signed bits but not the compressed 6-bit range must materialize in a single 32-bit instruction")
}

func TestEmit_LargeLI_EncodesAsMultipleInstructions(t *testing.T) {
	instrs := []hostisa.Instr{{Op: hostisa.OpLI, Rd: hostisa.PhysicalInt(hostisa.RegA0), Imm: 0x123456789}}
	buf := emitter.Emit(nil, instrs, noAddrs)
	assert.Greater(t, len(buf), 4, "a 64-bit-range constant cannot fit a single 12-bit immediate")
	assert.Equal(t, 14, len(buf), "lui, addiw, c.slli 12, addi: 4+4+2+4 bytes")
}

func TestEmit_ConditionalBranch_PatchesLocalIndexToByteDisplacement(t *testing.T) {
	instrs := []hostisa.Instr{
		{Op: hostisa.OpADDI, Rd: hostisa.PhysicalInt(hostisa.RegA0), Rs1: hostisa.PhysicalInt(hostisa.RegZero), Imm: 0},
		{Op: hostisa.OpBEQ, Rs1: hostisa.PhysicalInt(hostisa.RegA0), Rs2: hostisa.PhysicalInt(hostisa.RegZero), Target: 0},
	}
	buf := emitter.Emit(nil, instrs, noAddrs)
	require.Len(t, buf, 8)

	word := binary.LittleEndian.Uint32(buf[4:8])
	// A backward branch to instruction index 0 from index 1 is a -4 byte
	// displacement; bit 31 (imm[12]) must be set since the value is negative.
	assert.NotEqual(t, uint32(0), word&(1<<31))
}
