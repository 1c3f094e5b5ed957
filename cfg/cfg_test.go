package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/ygen/ir"
)

// buildSwitchFunction builds a block whose only instructions are
// "switch i32 %v, [0 -> b0, 1 -> b1], default b2" plus trivial targets.
func buildSwitchFunction() *ir.Function {
	fn := &ir.Function{Name: "f", Signature: ir.Signature{Args: []ir.Type{ir.I32}, Ret: ir.Void}}
	b := ir.NewBuilder(fn)
	fn.Args = []ir.Variable{b.Mint(ir.I32)}
	b.CreateBlock("entry")
	b.Switch(fn.Args[0], []ir.SwitchCase{
		{Value: ir.Int(ir.I32, 0), Target: "b0"},
		{Value: ir.Int(ir.I32, 1), Target: "b1"},
	}, "b2")
	b.CreateBlock("b0")
	b.Ret(nil)
	b.CreateBlock("b1")
	b.Ret(nil)
	b.CreateBlock("b2")
	b.Ret(nil)
	return fn
}

func TestSuccessors_SwitchReportsAllCasesAndDefault(t *testing.T) {
	fn := buildSwitchFunction()
	succ := Successors(fn)
	require.ElementsMatch(t, []string{"b0", "b1", "b2"}, succ["entry"])
	require.Empty(t, succ["b0"])
}

func TestPredecessors_InvertsSuccessors(t *testing.T) {
	fn := buildSwitchFunction()
	pred := Predecessors(fn)
	require.Equal(t, []string{"entry"}, pred["b0"])
	require.Equal(t, []string{"entry"}, pred["b1"])
	require.Equal(t, []string{"entry"}, pred["b2"])
	require.Empty(t, pred["entry"])
}

func TestIsLeaf(t *testing.T) {
	leaf := buildSwitchFunction()
	require.True(t, IsLeaf(leaf))

	fn := &ir.Function{Name: "caller", Signature: ir.Signature{Ret: ir.Void}}
	b := ir.NewBuilder(fn)
	b.CreateBlock("entry")
	b.Call("other", nil, ir.Void)
	b.Ret(nil)
	require.False(t, IsLeaf(fn))
}

func TestLayout_ReachesEveryBlock(t *testing.T) {
	fn := buildSwitchFunction()
	order := Layout(fn)
	require.ElementsMatch(t, []string{"entry", "b0", "b1", "b2"}, order)
	require.Equal(t, "entry", order[0])
}

func TestBranchesTo_ForwardEdgeOnly(t *testing.T) {
	fn := &ir.Function{Name: "loop", Signature: ir.Signature{Args: []ir.Type{ir.I32}, Ret: ir.Void}}
	b := ir.NewBuilder(fn)
	fn.Args = []ir.Variable{b.Mint(ir.I32)}
	b.CreateBlock("entry")
	b.Br("head")
	b.CreateBlock("head")
	b.BrCond(fn.Args[0], "body", "exit")
	b.CreateBlock("body")
	b.Br("head") // back-edge
	b.CreateBlock("exit")
	b.Ret(nil)

	require.True(t, BranchesTo(fn, "entry", "exit"), "exit is forward-reachable from entry")
	require.False(t, BranchesTo(fn, "body", "entry"), "entry precedes body in layout order, so the back-edge to head must not count as a forward path to entry")
}
