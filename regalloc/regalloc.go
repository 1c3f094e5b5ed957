package regalloc

import (
	"github.com/pkg/errors"

	"github.com/ironhold/ygen/ir"
)

// SnapshotKey identifies one instruction within a function by its block and
// program-order index, the same key the MI builder uses to look up which
// variables are live around a call (for caller-save spill/reload).
type SnapshotKey struct {
	Block string
	Index int
}

// LiveValue is one entry of a liveness snapshot: a variable and where the
// allocator put it.
type LiveValue struct {
	Name     string
	Location Location
}

// Allocation is the result of running Allocate over one function: every
// variable's location, the total (unaligned) stack footprint, and a
// liveness snapshot per instruction.
type Allocation struct {
	Locations map[string]Location
	StackSize int
	Snapshots map[SnapshotKey][]LiveValue
}

type freeList struct {
	free map[Class][]int
	info ClassInfo
}

func newFreeList(info ClassInfo) *freeList {
	fl := &freeList{free: make(map[Class][]int), info: info}
	for _, c := range []Class{ClassGPR, ClassFP, ClassSIMD} {
		n := info.Count(c)
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		fl.free[c] = idx
	}
	return fl
}

// take picks the best-scoring free register of class per §4.2: prefer
// not-callee-saved, then not-REX-requiring, then smallest index. Returns
// ok=false when the class has no free register.
func (fl *freeList) take(class Class) (index int, ok bool) {
	cands := fl.free[class]
	if len(cands) == 0 {
		return 0, false
	}
	best := 0
	for i := 1; i < len(cands); i++ {
		if scoreLess(fl.info, class, cands[i], cands[best]) {
			best = i
		}
	}
	reg := cands[best]
	fl.free[class] = append(cands[:best], cands[best+1:]...)
	return reg, true
}

func scoreLess(info ClassInfo, class Class, a, b int) bool {
	aSaved, bSaved := info.IsCalleeSaved(class, a), info.IsCalleeSaved(class, b)
	if aSaved != bSaved {
		return !aSaved
	}
	aRex, bRex := info.RequiresREX(class, a), info.RequiresREX(class, b)
	if aRex != bRex {
		return !aRex
	}
	return a < b
}

func (fl *freeList) release(class Class, index int) {
	fl.free[class] = append(fl.free[class], index)
}

// remove drops a specific register (consumed by the argument pre-pass)
// from the free list so the main pass never hands it out again.
func (fl *freeList) remove(class Class, index int) {
	cands := fl.free[class]
	for i, c := range cands {
		if c == index {
			fl.free[class] = append(cands[:i], cands[i+1:]...)
			return
		}
	}
}

// MaxStackBudget is the largest stack footprint (bytes) a single
// function's spills may consume before Allocate reports a fatal,
// non-recoverable error — a generous but finite bound standing in for the
// reference target's real frame-size limit.
const MaxStackBudget = 1 << 20

type step struct {
	block string
	index int
	inst  *ir.Instruction
}

// Allocate runs the linear-scan allocator over fn, visiting blocks in the
// given layout order (the output of cfg.Layout) and instructions within
// each block in program order.
func Allocate(fn *ir.Function, order []string, conv Convention, info ClassInfo) (*Allocation, error) {
	blocks := make(map[string]*ir.Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b.Name] = b
	}

	fl := newFreeList(info)
	alloc := &Allocation{
		Locations: make(map[string]Location),
		Snapshots: make(map[SnapshotKey][]LiveValue),
	}
	stackCursor := 0

	var spillErr error
	allocSpill := func(size int) Location {
		stackCursor += size
		if stackCursor > MaxStackBudget && spillErr == nil {
			spillErr = errors.Errorf("regalloc: function %s exceeds stack budget of %d bytes", fn.Name, MaxStackBudget)
		}
		loc := Stack(-stackCursor, size)
		if stackCursor > alloc.StackSize {
			alloc.StackSize = stackCursor
		}
		return loc
	}

	// Argument pre-pass: place formals per the calling convention and
	// remove consumed registers from the free list.
	for i, arg := range fn.Args {
		class, reg, onStack := conv.Argument(i, arg.Type())
		if onStack {
			alloc.Locations[arg.Name()] = allocSpill(arg.Type().ByteSize())
			continue
		}
		fl.remove(class, reg)
		alloc.Locations[arg.Name()] = Reg(class, reg)
	}

	// Flatten into program order once, both to run the phi pre-pass and
	// to compute each variable's last use for expiry during the main pass.
	var steps []step
	for _, name := range order {
		blk, ok := blocks[name]
		if !ok {
			return nil, errors.Errorf("regalloc: layout names unknown block %q", name)
		}
		for idx, inst := range blk.Instructions {
			steps = append(steps, step{block: name, index: idx, inst: inst})
		}
	}

	lastUse := make(map[string]int, len(steps))
	for i, s := range steps {
		for _, in := range s.inst.Inputs() {
			lastUse[in.Name()] = i
		}
	}

	// Phi pre-pass: every phi output gets one location before the main
	// scan reaches it, so MI lowering of predecessor-edge moves (done by
	// the MI builder, not here) can target it uniformly regardless of
	// visit order.
	for _, s := range steps {
		if s.inst.Opcode != ir.OpPhi || !s.inst.Defines() {
			continue
		}
		loc, err := assign(fl, info, allocSpill, s.inst.Output)
		if err != nil {
			return nil, errors.Wrapf(err, "regalloc: phi in %s/%s#%d", fn.Name, s.block, s.index)
		}
		alloc.Locations[s.inst.Output.Name()] = loc
	}

	// Main pass.
	for i, s := range steps {
		key := SnapshotKey{Block: s.block, Index: s.index}
		live := make(map[string]Location, len(alloc.Locations))
		for name, loc := range alloc.Locations {
			if lastUse[name] > i {
				live[name] = loc
			}
		}
		alloc.Snapshots[key] = snapshot(live)

		if s.inst.Opcode != ir.OpPhi && s.inst.Defines() {
			if _, already := alloc.Locations[s.inst.Output.Name()]; !already {
				loc, err := assign(fl, info, allocSpill, s.inst.Output)
				if err != nil {
					return nil, errors.Wrapf(err, "regalloc: %s/%s#%d", fn.Name, s.block, s.index)
				}
				alloc.Locations[s.inst.Output.Name()] = loc
			}
		}

		for _, in := range s.inst.Inputs() {
			if lastUse[in.Name()] != i {
				continue
			}
			loc, ok := alloc.Locations[in.Name()]
			if ok && !loc.OnStack {
				fl.release(loc.Class, loc.Reg)
			}
		}
	}

	if spillErr != nil {
		return nil, spillErr
	}
	return alloc, nil
}

func assign(fl *freeList, info ClassInfo, spill func(int) Location, v ir.Variable) (Location, error) {
	class := info.ClassOf(v.Type())
	if reg, ok := fl.take(class); ok {
		return Reg(class, reg), nil
	}
	return spill(v.Type().ByteSize()), nil
}

func snapshot(locs map[string]Location) []LiveValue {
	out := make([]LiveValue, 0, len(locs))
	for name, loc := range locs {
		out = append(out, LiveValue{Name: name, Location: loc})
	}
	return out
}
