package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildAdd constructs "add(i32 %0, i32 %1) -> i32 { %2 = add %0, %1; ret %2 }",
// the framework's canonical end-to-end scenario.
func buildAdd() *Function {
	fn := &Function{
		Name:      "add",
		Signature: Signature{Args: []Type{I32, I32}, Ret: I32},
		Linkage:   LinkageExternal,
	}
	b := NewBuilder(fn)
	fn.Args = []Variable{b.mint(I32), b.mint(I32)}
	b.CreateBlock("entry")
	sum := b.BinOp(OpAdd, fn.Args[0], fn.Args[1])
	b.Ret(sum)
	return fn
}

func TestBuilder_AddTwoI32(t *testing.T) {
	fn := buildAdd()
	require.Len(t, fn.Blocks, 1)

	entry := fn.Entry()
	require.Len(t, entry.Instructions, 2)

	add := entry.Instructions[0]
	require.Equal(t, OpAdd, add.Opcode)
	require.True(t, add.Defines())
	require.Equal(t, fn.Args, add.Inputs())

	ret := entry.Instructions[1]
	require.Equal(t, OpRet, ret.Opcode)
	require.True(t, ret.Opcode.IsTerminator())
	require.Equal(t, []Value{add.Output}, ret.Operands)
}

// buildCallThrough constructs "test(i32 %0) -> i32 { %1 = call add(%0,%0); ret %1 }".
func buildCallThrough(addFn *Function) *Function {
	fn := &Function{
		Name:      "test",
		Signature: Signature{Args: []Type{I32}, Ret: I32},
		Linkage:   LinkageExternal,
	}
	b := NewBuilder(fn)
	fn.Args = []Variable{b.mint(I32)}
	b.CreateBlock("entry")
	result := b.Call(addFn.Name, []Value{fn.Args[0], fn.Args[0]}, I32)
	b.Ret(result)
	return fn
}

func TestBuilder_CallThrough(t *testing.T) {
	addFn := buildAdd()
	fn := buildCallThrough(addFn)

	call := fn.Entry().Instructions[0]
	require.Equal(t, OpCall, call.Opcode)
	require.Equal(t, "add", call.Callee)
	require.Len(t, call.Operands, 2)
}

func TestBuilder_SwitchTerminatorSuccessors(t *testing.T) {
	fn := &Function{Name: "f", Signature: Signature{Args: []Type{I32}, Ret: Void}}
	b := NewBuilder(fn)
	fn.Args = []Variable{b.mint(I32)}
	b.CreateBlock("entry")
	b.Switch(fn.Args[0], []SwitchCase{
		{Value: Int(I32, 0), Target: "b0"},
		{Value: Int(I32, 1), Target: "b1"},
	}, "b2")

	term := fn.Entry().Terminator()
	require.NotNil(t, term)
	require.Equal(t, []string{"b0", "b1", "b2"}, term.Successors())
}

func TestBuilder_ConstantReferenceModule(t *testing.T) {
	printf := &Function{
		Name:      "printf",
		Signature: Signature{Args: []Type{Ptr}, Ret: Void},
		Linkage:   LinkageExternImport,
	}
	main := &Function{Name: "main", Signature: Signature{Ret: Void}, Linkage: LinkageExternal}
	b := NewBuilder(main)
	b.CreateBlock("entry")
	strPtr := b.ConstAddr("str")
	b.Call("printf", []Value{strPtr}, Void)
	b.Ret(nil)

	require.True(t, printf.IsDeclaration())
	require.False(t, main.IsDeclaration())
	require.Equal(t, "printf", main.Entry().Instructions[1].Callee)
}
