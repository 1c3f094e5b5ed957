package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestType_ByteSize(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want int
	}{
		{"i8", I8, 1},
		{"u8", U8, 1},
		{"i16", I16, 2},
		{"i32", I32, 4},
		{"f32", F32, 4},
		{"i64", I64, 8},
		{"f64", F64, 8},
		{"ptr", Ptr, 8},
		{"void", Void, 0},
		{"vector i32x4", Vector(I32, 4), 16},
		{"vector u8x16", Vector(U8, 16), 16},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.typ.ByteSize())
			require.Equal(t, tc.want*8, tc.typ.BitSize())
		})
	}
}

func TestType_Predicates(t *testing.T) {
	require.True(t, I32.IsInteger())
	require.True(t, I32.IsSigned())
	require.False(t, U32.IsSigned())
	require.True(t, U32.IsInteger())
	require.True(t, F64.IsFloat())
	require.False(t, I32.IsFloat())
	require.True(t, Ptr.IsPointer())
	require.True(t, Void.IsVoid())
	require.True(t, Vector(I32, 4).IsVector())
	require.False(t, I32.IsVector())
}

func TestType_Vector(t *testing.T) {
	v := Vector(F32, 4)
	require.Equal(t, "f32<4>", v.String())
	require.Equal(t, 4, v.Lanes())
	require.True(t, v.LaneType().Equal(F32))
	require.Equal(t, 1, I32.Lanes())
	require.True(t, I32.LaneType().Equal(I32))
}

func TestType_VectorPanicsOnBadLane(t *testing.T) {
	require.Panics(t, func() { Vector(Void, 4) })
	require.Panics(t, func() { Vector(Vector(I8, 2), 2) })
}

func TestType_Equal(t *testing.T) {
	require.True(t, I32.Equal(I32))
	require.False(t, I32.Equal(I64))
	require.True(t, Vector(I32, 4).Equal(Vector(I32, 4)))
	require.False(t, Vector(I32, 4).Equal(Vector(I32, 8)))
	require.False(t, Vector(I32, 4).Equal(Vector(I16, 4)))
}

func TestType_String(t *testing.T) {
	require.Equal(t, "i32", I32.String())
	require.Equal(t, "ptr", Ptr.String())
	require.Equal(t, "void", Void.String())
}
