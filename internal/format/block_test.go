package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Pack_RoundTrip(t *testing.T) {
	for _, size := range []uint32{0, 8, 16, 24, 4096, MaxBlockSize} {
		for _, alloc := range []bool{false, true} {
			tag := Pack(size, alloc)
			assert.Equal(t, size, TagSize(tag), "size %d alloc %v", size, alloc)
			assert.Equal(t, alloc, TagAlloc(tag), "size %d alloc %v", size, alloc)
		}
	}
}

func Test_SizeClass(t *testing.T) {
	tests := []struct {
		size uint32
		want int
	}{
		{16, 0},
		{24, 0},
		{31, 0},
		{32, 1},
		{63, 1},
		{64, 2},
		{4096, 8},
		{1 << 19, 15},
		{1 << 20, 15}, // clamped to the top bucket
		{MaxBlockSize, 15},
		{8, 0}, // below the first bucket
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeClass(tt.size, 4, 16), "size %d", tt.size)
	}
}

func Test_ClassBounds_CoverAllSizes(t *testing.T) {
	const minShift, k = 4, 10
	for size := uint32(MinBlockSize); size < 1<<16; size += DWordSize {
		c := SizeClass(size, minShift, k)
		lo, hi := ClassBounds(c, minShift, k)
		require.GreaterOrEqual(t, uint64(size), lo, "size %d class %d", size, c)
		if hi != 0 {
			require.Less(t, uint64(size), hi, "size %d class %d", size, c)
		}
	}
	_, hi := ClassBounds(k-1, minShift, k)
	require.Zero(t, hi, "top bucket must be unbounded")
}

func Test_Header_Layout(t *testing.T) {
	h := Header{NumClasses: 16, MinShift: 4}
	require.NoError(t, h.Validate())

	// 16 + 64 bytes of buckets, already aligned
	require.Equal(t, 0x10, h.BucketOffset(0))
	require.Equal(t, 0x4C, h.BucketOffset(15))
	require.Equal(t, 0x58, h.Prologue())
	require.Equal(t, 0x60, h.Len())
	require.Equal(t, h.Len(), h.FirstBlock())
	require.True(t, IsAligned(h.FirstBlock()))

	// an odd bucket count needs a padding word before the prologue
	odd := Header{NumClasses: 5, MinShift: 4}
	require.True(t, IsAligned(odd.Prologue()))
	require.True(t, IsAligned(odd.FirstBlock()))
	require.Greater(t, odd.Prologue()-DWordSize, odd.BucketOffset(4))
}

func Test_Header_WriteParse(t *testing.T) {
	h := Header{NumClasses: 12, MinShift: 5}
	b := make([]byte, h.Len())
	for i := range b {
		b[i] = 0xAA
	}
	h.Write(b)

	got, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, h, got)
	for i := range h.NumClasses {
		require.Equal(t, uint32(NilOffset), ReadU32(b, h.BucketOffset(i)))
	}
}

func Test_ParseHeader_Errors(t *testing.T) {
	h := Header{NumClasses: 16, MinShift: 4}
	good := make([]byte, h.Len())
	h.Write(good)

	_, err := ParseHeader(good[:8])
	require.True(t, errors.Is(err, ErrTruncated))

	_, err = ParseHeader(good[:h.Len()-8])
	require.True(t, errors.Is(err, ErrTruncated))

	bad := append([]byte(nil), good...)
	bad[0] = 'x'
	_, err = ParseHeader(bad)
	require.True(t, errors.Is(err, ErrSignatureMismatch))

	bad = append([]byte(nil), good...)
	PutU32(bad, HeaderNumClassesOffset, 0)
	_, err = ParseHeader(bad)
	require.True(t, errors.Is(err, ErrBadClasses))
}

func Test_Header_Validate(t *testing.T) {
	tests := []struct {
		name string
		h    Header
		ok   bool
	}{
		{"default", Header{16, 4}, true},
		{"single bucket", Header{1, 4}, true},
		{"max buckets", Header{28, 4}, true},
		{"too many buckets", Header{29, 4}, false},
		{"no buckets", Header{0, 4}, false},
		{"shift below minimum block", Header{8, 3}, false},
		{"shift too large", Header{8, 17}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.h.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrBadClasses)
			}
		})
	}
}
