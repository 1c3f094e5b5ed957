package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstant_FromString(t *testing.T) {
	c := FromString("greeting", "hi")
	require.Equal(t, []byte{'h', 'i', 0}, c.Bytes)
	require.Equal(t, LinkageInternal, c.Linkage)
}

func TestConstant_FromBytes(t *testing.T) {
	data := []byte{1, 2, 3}
	c := FromBytes("raw", data)
	data[0] = 9
	require.Equal(t, []byte{1, 2, 3}, c.Bytes, "FromBytes must copy, not alias, the input slice")
}

func TestConstant_FromInt(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		v    int64
		want []byte
	}{
		{"i32 little-endian", I32, 0x01020304, []byte{0x04, 0x03, 0x02, 0x01}},
		{"i8 truncates", I8, 0x1FF, []byte{0xFF}},
		{"i64", I64, 1, []byte{1, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := FromInt("k", tc.typ, tc.v)
			require.Equal(t, tc.want, c.Bytes)
		})
	}
}

func TestLinkage_String(t *testing.T) {
	require.Equal(t, "internal", LinkageInternal.String())
	require.Equal(t, "external", LinkageExternal.String())
	require.Equal(t, "extern_import", LinkageExternImport.String())
}
