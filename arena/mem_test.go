package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_MemArena_GrowContiguous(t *testing.T) {
	m := NewMem(64)
	require.Equal(t, 0, m.Len())
	require.Equal(t, 64, m.Cap())

	base, err := m.Grow(16)
	require.NoError(t, err)
	require.Equal(t, 0, base)

	first := m.Bytes()
	first[0] = 0x5A

	base, err = m.Grow(32)
	require.NoError(t, err)
	require.Equal(t, 16, base)
	require.Equal(t, 48, m.Len())
	require.Equal(t, 2, m.Grows())

	// old slices still alias the arena
	require.Equal(t, byte(0x5A), m.Bytes()[0])
	first[1] = 0xA5
	require.Equal(t, byte(0xA5), m.Bytes()[1])
}

func Test_MemArena_Exhausted(t *testing.T) {
	m := NewMem(32)
	_, err := m.Grow(24)
	require.NoError(t, err)

	_, err = m.Grow(16)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 24, m.Len(), "failed growth must not change the arena")

	_, err = m.Grow(8)
	require.NoError(t, err)
	require.Equal(t, 32, m.Len())
}

func Test_MemArena_BadIncrement(t *testing.T) {
	m := NewMem(32)
	_, err := m.Grow(0)
	require.ErrorIs(t, err, ErrBadIncrement)
	_, err = m.Grow(-8)
	require.ErrorIs(t, err, ErrBadIncrement)
}
