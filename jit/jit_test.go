package jit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/ygen/backend"
	"github.com/ironhold/ygen/cfg"
	"github.com/ironhold/ygen/internal/jitcall"
	"github.com/ironhold/ygen/ir"
	"github.com/ironhold/ygen/jit"
	"github.com/ironhold/ygen/regalloc"
	"github.com/ironhold/ygen/target"
	"github.com/ironhold/ygen/target/x64"
)

// TestLink_AddTwoI32_JITInvokesAndReturnsSum exercises §8 scenario 1 fully
// end to end: build -> allocate -> lower -> encode -> link -> map -> call.
func TestLink_AddTwoI32_JITInvokesAndReturnsSum(t *testing.T) {
	fn := &ir.Function{Name: "add", Signature: ir.Signature{Args: []ir.Type{ir.I32, ir.I32}, Ret: ir.I32}}
	b := ir.NewBuilder(fn)
	fn.Args = []ir.Variable{b.Mint(ir.I32), b.Mint(ir.I32)}
	b.CreateBlock("entry")
	sum := b.BinOp(ir.OpAdd, fn.Args[0], fn.Args[1])
	b.Ret(sum)

	order := cfg.Layout(fn)
	classInfo := x64.ClassInfo{Conv: target.SystemVAMD64}
	alloc, err := regalloc.Allocate(fn, order, target.SystemVAMD64, classInfo)
	require.NoError(t, err)
	mf, err := backend.Build(fn, alloc, order, target.SystemVAMD64)
	require.NoError(t, err)

	enc, err := x64.Encode(mf, target.SystemVAMD64)
	require.NoError(t, err)

	l := jit.NewLinker()
	require.NoError(t, l.AddFunction("add", enc.Code, true))
	linked, err := l.Link()
	require.NoError(t, err)

	mapped, err := linked.Map()
	require.NoError(t, err)
	defer mapped.Release()

	entry, err := mapped.EntryPointer()
	require.NoError(t, err)

	h, err := jitcall.New[func(int32, int32) int32](mapped, entry)
	require.NoError(t, err)

	require.Equal(t, int32(9), h.Fn(5, 4))
}

// TestLink_CallThrough_JITInvokesAndReturnsTen exercises §8 scenario 2
// fully end to end: test(i32) calls add(x,x) and the JIT-mapped test
// entry point must actually perform that call, not just carry an MICall
// in its MI stream (backend/builder_test.go's TestBuild_CallThroughEmitsArgumentMovesAndCall
// only checks the MI shape; this drives the real call through linked,
// mapped, executable code).
func TestLink_CallThrough_JITInvokesAndReturnsTen(t *testing.T) {
	add := &ir.Function{Name: "add", Signature: ir.Signature{Args: []ir.Type{ir.I32, ir.I32}, Ret: ir.I32}}
	ab := ir.NewBuilder(add)
	add.Args = []ir.Variable{ab.Mint(ir.I32), ab.Mint(ir.I32)}
	ab.CreateBlock("entry")
	sum := ab.BinOp(ir.OpAdd, add.Args[0], add.Args[1])
	ab.Ret(sum)

	test := &ir.Function{Name: "test", Signature: ir.Signature{Args: []ir.Type{ir.I32}, Ret: ir.I32}}
	tb := ir.NewBuilder(test)
	test.Args = []ir.Variable{tb.Mint(ir.I32)}
	tb.CreateBlock("entry")
	r := tb.Call("add", []ir.Value{test.Args[0], test.Args[0]}, ir.I32)
	tb.Ret(r)

	classInfo := x64.ClassInfo{Conv: target.SystemVAMD64}

	addOrder := cfg.Layout(add)
	addAlloc, err := regalloc.Allocate(add, addOrder, target.SystemVAMD64, classInfo)
	require.NoError(t, err)
	addMF, err := backend.Build(add, addAlloc, addOrder, target.SystemVAMD64)
	require.NoError(t, err)
	addEnc, err := x64.Encode(addMF, target.SystemVAMD64)
	require.NoError(t, err)

	testOrder := cfg.Layout(test)
	testAlloc, err := regalloc.Allocate(test, testOrder, target.SystemVAMD64, classInfo)
	require.NoError(t, err)
	testMF, err := backend.Build(test, testAlloc, testOrder, target.SystemVAMD64)
	require.NoError(t, err)
	testEnc, err := x64.Encode(testMF, target.SystemVAMD64)
	require.NoError(t, err)

	l := jit.NewLinker()
	require.NoError(t, l.AddFunction("add", addEnc.Code, false))
	require.NoError(t, l.AddFunction("test", testEnc.Code, true))
	for _, r := range testEnc.Relocs {
		l.AddReloc("test", r.Symbol, r.Offset, r.Addend)
	}
	linked, err := l.Link()
	require.NoError(t, err)

	mapped, err := linked.Map()
	require.NoError(t, err)
	defer mapped.Release()

	entry, err := mapped.EntryPointer()
	require.NoError(t, err)

	h, err := jitcall.New[func(int32) int32](mapped, entry)
	require.NoError(t, err)

	require.Equal(t, int32(10), h.Fn(5))
}

func TestLink_RejectsImportedSymbol(t *testing.T) {
	l := jit.NewLinker()
	l.Import("missing")
	require.NoError(t, l.AddFunction("main", []byte{0xc3}, true))
	l.AddReloc("main", "missing", 0, 0)
	_, err := l.Link()
	require.Error(t, err)
}

func TestLink_EntryPlacedFirst(t *testing.T) {
	l := jit.NewLinker()
	require.NoError(t, l.AddFunction("helper", []byte{0x90, 0x90}, false))
	require.NoError(t, l.AddFunction("main", []byte{0xc3}, true))
	linked, err := l.Link()
	require.NoError(t, err)
	require.Equal(t, 0, linked.Positions["main"])
	require.Equal(t, 1, linked.Positions["helper"])
}
