// Package regalloc remaps isel's virtual registers to physical ones,
// spilling overflow virtuals to base-block-relative memory slots when a
// class's allocatable pool runs out. Grounded on the teacher's
// timing/pipeline/hazard.go, which already does per-instruction "which
// registers does this read/write" bookkeeping for hazard detection —
// generalized here from forwarding/stalling decisions into allocator
// constraint reporting — and on timing/pipeline/registers.go's pipeline-
// register-snapshot structs, generalized from per-cycle register state
// into the one-shot virtual-to-physical remap this package performs.
package regalloc

import "github.com/sarchlab/rv64xlate/hostisa"

// Constraints names the registers one instruction reads and writes,
// grouped by role rather than carried per hostisa.RegUse — the shape a
// liveness pass wants directly.
type Constraints struct {
	Read  []hostisa.Reg
	Write []hostisa.Reg
}

// ConstraintsOf derives instr's read/write register sets from its
// Uses(), the same bookkeeping HazardUnit.DetectForwarding performs
// against IDEXRegister/EXMEMRegister/MEMWBRegister, here against one
// instruction at a time instead of pipeline-stage snapshots.
func ConstraintsOf(instr hostisa.Instr) Constraints {
	var c Constraints
	for _, u := range instr.Uses() {
		switch u.Role {
		case hostisa.RoleRead:
			c.Read = append(c.Read, u.Reg)
		case hostisa.RoleWrite:
			c.Write = append(c.Write, u.Reg)
		case hostisa.RoleReadWrite:
			c.Read = append(c.Read, u.Reg)
			c.Write = append(c.Write, u.Reg)
		}
	}
	return c
}
