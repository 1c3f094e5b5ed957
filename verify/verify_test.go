package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/ygen"
	"github.com/ironhold/ygen/ir"
)

func addModule(t *testing.T) *ir.Module {
	t.Helper()
	fn := &ir.Function{Name: "add", Signature: ir.Signature{Args: []ir.Type{ir.I32, ir.I32}, Ret: ir.I32}, Linkage: ir.LinkageExternal}
	b := ir.NewBuilder(fn)
	fn.Args = []ir.Variable{b.Mint(ir.I32), b.Mint(ir.I32)}
	b.CreateBlock("entry")
	sum := b.BinOp(ir.OpAdd, fn.Args[0], fn.Args[1])
	b.Ret(sum)

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))
	return m
}

func TestVerify_ValidAddPasses(t *testing.T) {
	require.NoError(t, Module(addModule(t)))
}

func TestVerify_UseBeforeDef(t *testing.T) {
	fn := &ir.Function{Name: "f", Signature: ir.Signature{Ret: ir.I32}}
	b := ir.NewBuilder(fn)
	b.CreateBlock("entry")
	// A variable minted by an unrelated builder was never defined in fn.
	phantom := ir.NewBuilder(&ir.Function{Name: "other"})
	phantom.CreateBlock("entry")
	undefined := phantom.Mint(ir.I32)
	b.Ret(undefined)

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))

	err := Module(m)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindUseBeforeDef, verr.Kind)
}

func TestVerify_MissingTerminator(t *testing.T) {
	fn := &ir.Function{Name: "f", Signature: ir.Signature{Ret: ir.Void}}
	b := ir.NewBuilder(fn)
	b.CreateBlock("entry")
	b.Intrinsic(ir.IntrinsicDebugTrap)

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))

	err := Module(m)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindTerminator, verr.Kind)
}

func TestVerify_UnknownBranchTarget(t *testing.T) {
	fn := &ir.Function{Name: "f", Signature: ir.Signature{Args: []ir.Type{ir.I32}, Ret: ir.Void}}
	b := ir.NewBuilder(fn)
	fn.Args = []ir.Variable{b.Mint(ir.I32)}
	b.CreateBlock("entry")
	b.BrCond(fn.Args[0], "nope", "also-nope")

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))

	err := Module(m)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindUnknownTarget, verr.Kind)
}

func TestVerify_CallArityMismatch(t *testing.T) {
	addFn := &ir.Function{Name: "add", Signature: ir.Signature{Args: []ir.Type{ir.I32, ir.I32}, Ret: ir.I32}, Linkage: ir.LinkageExternImport}

	fn := &ir.Function{Name: "test", Signature: ir.Signature{Args: []ir.Type{ir.I32}, Ret: ir.I32}}
	b := ir.NewBuilder(fn)
	fn.Args = []ir.Variable{b.Mint(ir.I32)}
	b.CreateBlock("entry")
	result := b.Call("add", []ir.Value{fn.Args[0]}, ir.I32)
	b.Ret(result)

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(addFn))
	require.NoError(t, m.AddFunction(fn))

	err := Module(m)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindCallArity, verr.Kind)
}

func TestVerify_UnknownConstant(t *testing.T) {
	fn := &ir.Function{Name: "main", Signature: ir.Signature{Ret: ir.Void}}
	b := ir.NewBuilder(fn)
	b.CreateBlock("entry")
	b.ConstAddr("missing")
	b.Ret(nil)

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))

	err := Module(m)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindUnknownConstant, verr.Kind)
}

func TestVerify_ReturnTypeMismatch(t *testing.T) {
	fn := &ir.Function{Name: "f", Signature: ir.Signature{Ret: ir.I64}}
	b := ir.NewBuilder(fn)
	b.CreateBlock("entry")
	b.Ret(ir.Int(ir.I32, 1))

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))

	err := Module(m)
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindReturnType, verr.Kind)
}

func TestVerify_SwitchTerminatorSucceedsWithAllTargets(t *testing.T) {
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

	m := ir.NewModule(ygen.X8664SysV)
	require.NoError(t, m.AddFunction(fn))
	require.NoError(t, Module(m))
}
