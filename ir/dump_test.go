package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/ygen"
)

func TestDump_AddFunction(t *testing.T) {
	fn := buildAdd()
	m := NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))

	out := Dump(m)
	require.Contains(t, out, "define i32 external @add(i32 %1, i32 %2) {")
	require.Contains(t, out, "entry:")
	require.Contains(t, out, "= add %1, %2")
	require.Contains(t, out, "ret %3")
	require.True(t, strings.HasSuffix(out, "}\n"))
}

func TestDump_ConstantAndDeclaration(t *testing.T) {
	m := NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddConstant(FromString("str", "Hi")))
	require.NoError(t, m.AddFunction(&Function{
		Name:      "printf",
		Signature: Signature{Args: []Type{Ptr}, Ret: Void},
		Linkage:   LinkageExternImport,
	}))

	out := Dump(m)
	require.Contains(t, out, "const internal str = [72, 105, 0]")
	require.Contains(t, out, "declare void @printf(ptr)")
}

func TestDump_SwitchInstruction(t *testing.T) {
	scrutinee := Variable{name: "v", typ: I32}
	inst := &Instruction{
		Opcode: OpSwitch,
		Operands: []Value{scrutinee},
		Cases: []SwitchCase{
			{Value: Int(I32, 0), Target: "b0"},
			{Value: Int(I32, 1), Target: "b1"},
		},
		Default: "b2",
	}
	require.Equal(t, "switch %v [i32 0: label b0, i32 1: label b1], default label b2", formatInstruction(inst))
}
