package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlock_Terminator(t *testing.T) {
	blk := &Block{Name: "entry"}
	require.Nil(t, blk.Terminator(), "empty block has no terminator")

	blk.Append(&Instruction{Opcode: OpAdd})
	require.Nil(t, blk.Terminator(), "last instruction isn't a terminator")

	ret := &Instruction{Opcode: OpRet}
	blk.Append(ret)
	require.Same(t, ret, blk.Terminator())
}
