package regalloc

import (
	"fmt"
	"sort"

	"github.com/sarchlab/rv64xlate/hostisa"
)

type regKey struct {
	class hostisa.RegClass
	index uint32
}

func keyOf(r hostisa.Reg) regKey { return regKey{r.Class(), r.Index()} }

type liveRange struct {
	reg        hostisa.Reg
	start, end int
	// crossesCall is set when some instruction strictly between start and
	// end is OpCall — such a range must not be handed a caller-save
	// physical register, since OpCall's Uses() clobbers the whole set.
	crossesCall bool
}

// Spill is a virtual register's fallback memory slot, relative to the
// base-block pointer (s0, already carrying hostisa.BaseBlockOffsetAdjust),
// used once its class's allocatable pool is exhausted.
type Spill struct {
	Reg    hostisa.Reg
	Offset int64
}

// Result is the outcome of one allocation pass: the remapped instruction
// stream (physical registers only — no vreg survives), and any spill
// slots a caller's frame layout must reserve.
type Result struct {
	Instrs []hostisa.Instr
	Spills []Spill
}

// Allocator performs one linear-scan pass per translation unit. It
// carries no state across Allocate calls except the next free spill
// offset, so a fresh Allocator per translation (like isel.Selector) is
// the intended lifetime.
type Allocator struct {
	universe    *hostisa.Universe
	spillOffset int64
}

// New creates an Allocator seeded from the process-wide register
// universe. spillBase is the first s0-relative byte offset (already
// carrying hostisa.BaseBlockOffsetAdjust) free for spill slots — the
// caller's frame layout owns deciding where that region starts.
func New(spillBase int64) *Allocator {
	return &Allocator{universe: hostisa.GlobalUniverse(), spillOffset: spillBase}
}

// Allocate remaps every virtual register instrs references to a physical
// register, inserting reload/store instructions around any spilled
// virtual's uses. Local branch and jump targets (the instruction-index
// convention isel's compare/CAS selectors use — see emitter.Emit) are
// rewritten to track the insertions so the result stays internally
// consistent for the emitter's later resolution pass.
func (a *Allocator) Allocate(instrs []hostisa.Instr) (Result, error) {
	ranges := computeLiveRanges(instrs)
	assign, spills, err := a.assignPhysical(ranges)
	if err != nil {
		return Result{}, err
	}

	newIndexOf := make([]int, len(instrs)+1)
	var out []hostisa.Instr

	for i, instr := range instrs {
		newIndexOf[i] = len(out)
		pre, main, post, err := rewriteInstr(instr, assign, spills)
		if err != nil {
			return Result{}, fmt.Errorf("regalloc: instruction %d: %w", i, err)
		}
		out = append(out, pre...)
		out = append(out, main)
		out = append(out, post...)
	}
	newIndexOf[len(instrs)] = len(out)

	for i := range out {
		switch out[i].Op {
		case hostisa.OpBEQ, hostisa.OpBNE, hostisa.OpBLT, hostisa.OpBLTU, hostisa.OpBGE, hostisa.OpBGEU, hostisa.OpJAL:
			out[i].Target = uint64(newIndexOf[out[i].Target])
		}
	}

	spillList := make([]Spill, 0, len(spills))
	for _, sp := range spills {
		spillList = append(spillList, sp)
	}
	return Result{Instrs: out, Spills: spillList}, nil
}

func computeLiveRanges(instrs []hostisa.Instr) map[regKey]*liveRange {
	ranges := map[regKey]*liveRange{}
	for i, instr := range instrs {
		for _, u := range instr.Uses() {
			if !u.Reg.IsVirtual() {
				continue
			}
			k := keyOf(u.Reg)
			lr, ok := ranges[k]
			if !ok {
				lr = &liveRange{reg: u.Reg, start: i, end: i}
				ranges[k] = lr
				continue
			}
			if i < lr.start {
				lr.start = i
			}
			if i > lr.end {
				lr.end = i
			}
		}
	}
	for _, lr := range ranges {
		for j := lr.start + 1; j < lr.end; j++ {
			if instrs[j].Op == hostisa.OpCall {
				lr.crossesCall = true
				break
			}
		}
	}
	return ranges
}

// assignPhysical walks live ranges in start order, handing out physical
// registers from the universe's allocatable pools and reclaiming them as
// ranges end — a classic linear-scan pass, adequate for the short,
// straight-line streams one translation unit produces.
func (a *Allocator) assignPhysical(ranges map[regKey]*liveRange) (map[regKey]hostisa.Reg, map[regKey]Spill, error) {
	order := make([]*liveRange, 0, len(ranges))
	for _, lr := range ranges {
		order = append(order, lr)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].start < order[j].start })

	assign := map[regKey]hostisa.Reg{}
	spills := map[regKey]Spill{}

	freeInt := append([]uint32(nil), a.universe.AllocableInt...)
	freeFloat := append([]uint32(nil), a.universe.AllocableFloat...)
	var activeInt, activeFloat []*liveRange

	release := func(active []*liveRange, free *[]uint32, upTo int) []*liveRange {
		kept := active[:0]
		for _, lr := range active {
			if lr.end < upTo {
				*free = append(*free, assign[keyOf(lr.reg)].Encoding())
				continue
			}
			kept = append(kept, lr)
		}
		return kept
	}

	for _, lr := range order {
		if lr.reg.Class() == hostisa.RegClassFloat {
			activeFloat = release(activeFloat, &freeFloat, lr.start)
			if len(freeFloat) == 0 {
				return nil, nil, fmt.Errorf("float register spilling not yet supported (isel does not emit virtual float registers yet)")
			}
			assign[keyOf(lr.reg)] = hostisa.PhysicalFloat(freeFloat[0])
			freeFloat = freeFloat[1:]
			activeFloat = append(activeFloat, lr)
			continue
		}

		activeInt = release(activeInt, &freeInt, lr.start)
		pick := -1
		for i, enc := range freeInt {
			if lr.crossesCall && isCallerSavedInt(enc) {
				continue
			}
			pick = i
			break
		}
		if pick < 0 {
			spills[keyOf(lr.reg)] = Spill{Reg: lr.reg, Offset: a.nextSpillSlot()}
			continue
		}
		assign[keyOf(lr.reg)] = hostisa.PhysicalInt(freeInt[pick])
		freeInt = append(freeInt[:pick], freeInt[pick+1:]...)
		activeInt = append(activeInt, lr)
	}

	return assign, spills, nil
}

// isCallerSavedInt reports whether enc is one of a0..a7 — the integer
// registers OpCall's Uses() declares clobbered, so a live range that
// crosses a call must never be assigned one.
func isCallerSavedInt(enc uint32) bool {
	return enc >= hostisa.RegA0 && enc <= hostisa.RegA7
}

func (a *Allocator) nextSpillSlot() int64 {
	off := a.spillOffset
	a.spillOffset += 8
	return off
}

// Spill reload/store scratch registers. t3/t4/t5 are deliberately outside
// hostisa.Universe's AllocableInt pool (same reservation the emitter
// makes for t0-t2), so they never collide with a live allocation.
var (
	reloadScratch1 = hostisa.PhysicalInt(hostisa.RegT3)
	reloadScratch2 = hostisa.PhysicalInt(hostisa.RegT4)
	reloadScratch3 = hostisa.PhysicalInt(hostisa.RegT5)
)

func rewriteInstr(instr hostisa.Instr, assign map[regKey]hostisa.Reg, spills map[regKey]Spill) (pre []hostisa.Instr, main hostisa.Instr, post []hostisa.Instr, err error) {
	main = instr

	remapRead := func(r hostisa.Reg, scratch hostisa.Reg) (hostisa.Reg, error) {
		if !r.IsVirtual() {
			return r, nil
		}
		k := keyOf(r)
		if p, ok := assign[k]; ok {
			return p, nil
		}
		if sp, ok := spills[k]; ok {
			pre = append(pre, hostisa.Instr{Op: hostisa.OpLD, Rd: scratch, Rs1: hostisa.PhysicalInt(hostisa.RegS0), Imm: sp.Offset})
			return scratch, nil
		}
		return hostisa.Reg{}, fmt.Errorf("virtual register %v has no live range", r)
	}

	remapWrite := func(r hostisa.Reg) (hostisa.Reg, error) {
		if !r.IsVirtual() {
			return r, nil
		}
		k := keyOf(r)
		if p, ok := assign[k]; ok {
			return p, nil
		}
		if sp, ok := spills[k]; ok {
			post = append(post, hostisa.Instr{Op: hostisa.OpSD, Rs1: hostisa.PhysicalInt(hostisa.RegS0), Rs2: reloadScratch1, Imm: sp.Offset})
			return reloadScratch1, nil
		}
		return hostisa.Reg{}, fmt.Errorf("virtual register %v has no live range", r)
	}

	if main.Rs1, err = remapRead(main.Rs1, reloadScratch1); err != nil {
		return nil, hostisa.Instr{}, nil, err
	}
	if main.Rs2, err = remapRead(main.Rs2, reloadScratch2); err != nil {
		return nil, hostisa.Instr{}, nil, err
	}
	if main.Rs3, err = remapRead(main.Rs3, reloadScratch3); err != nil {
		return nil, hostisa.Instr{}, nil, err
	}
	if main.Rd, err = remapWrite(main.Rd); err != nil {
		return nil, hostisa.Instr{}, nil, err
	}
	return pre, main, post, nil
}
