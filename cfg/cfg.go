// Package cfg computes control-flow facts over a verified *ir.Function:
// successor/predecessor maps, leaf-function detection, and the one
// structural pass this framework runs — straight-line block layout.
package cfg

import (
	"github.com/samber/lo"

	"github.com/ironhold/ygen/ir"
)

// Successors returns, for every block in fn, the names of the blocks its
// terminator can transfer control to, in the terminator's own order.
func Successors(fn *ir.Function) map[string][]string {
	out := make(map[string][]string, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		term := blk.Terminator()
		if term == nil {
			out[blk.Name] = nil
			continue
		}
		out[blk.Name] = term.Successors()
	}
	return out
}

// Predecessors inverts Successors: for every block, which blocks can branch
// to it.
func Predecessors(fn *ir.Function) map[string][]string {
	succ := Successors(fn)
	out := make(map[string][]string, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		out[blk.Name] = nil
	}
	for _, blk := range fn.Blocks {
		for _, s := range succ[blk.Name] {
			out[s] = append(out[s], blk.Name)
		}
	}
	return out
}

// IsLeaf reports whether fn calls no other function and stores through no
// pointer-valued value (a conservative approximation of "writes memory
// through pointer-valued globals": any OpStore at all disqualifies a leaf,
// since this IR doesn't distinguish a global pointer from a local one
// syntactically). Leaf functions may omit a prologue/epilogue and frame
// pointer.
func IsLeaf(fn *ir.Function) bool {
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			switch inst.Opcode {
			case ir.OpCall, ir.OpStore:
				return false
			}
		}
	}
	return true
}

// reversePostorder walks fn's blocks from the entry block and returns them
// in reverse postorder, the order the "simple, fast dominance" algorithm
// (Cooper, Harvey, Kennedy) and straight-line layout both expect.
func reversePostorder(fn *ir.Function) []string {
	entry := fn.Entry()
	if entry == nil {
		return nil
	}
	succ := Successors(fn)

	const unseen, seen, done = 0, 1, 2
	state := make(map[string]int, len(fn.Blocks))
	var postorder []string

	stack := []string{entry.Name}
	state[entry.Name] = seen
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch state[name] {
		case unseen:
			panic("BUG: unreachable block pushed onto explore stack")
		case seen:
			stack = append(stack, name)
			for _, s := range succ[name] {
				if state[s] == unseen {
					state[s] = seen
					stack = append(stack, s)
				}
			}
			state[name] = done
		case done:
			postorder = append(postorder, name)
		}
	}
	return lo.Reverse(postorder)
}

// Layout reorders fn's blocks so that, for every conditional branch, the
// fallthrough successor (the block immediately following it in the
// returned order) is the branch's "true" edge — a straight-line layout
// that favours the likelier path needing no jump. Blocks unreachable from
// the entry block are appended afterward, in their original order, so
// Layout never drops a block.
func Layout(fn *ir.Function) []string {
	order := reversePostorder(fn)
	reached := make(map[string]bool, len(order))
	for _, name := range order {
		reached[name] = true
	}
	for _, blk := range fn.Blocks {
		if !reached[blk.Name] {
			order = append(order, blk.Name)
		}
	}
	return order
}

// BranchesTo reports whether to is reachable from from by following only
// forward edges in fn's layout order — i.e., from's successors, their
// successors, and so on, restricted to blocks that appear at or after from
// in Layout(fn). The peephole optimiser uses this to tell a loop-closing
// backward branch (never safe to treat as dead) from a genuine forward
// fallthrough.
func BranchesTo(fn *ir.Function, from, to string) bool {
	order := Layout(fn)
	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	fromIdx, ok := index[from]
	if !ok {
		return false
	}

	succ := Successors(fn)
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range succ[cur] {
			idx, ok := index[s]
			if !ok || idx <= fromIdx || visited[s] {
				continue
			}
			if s == to {
				return true
			}
			visited[s] = true
			queue = append(queue, s)
		}
	}
	return false
}
