package pack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimplePacker_Unpacked(t *testing.T) {
	vals := []uint32{3, 1, 4, 1, 5}
	p := NewSimplePacker(vals)

	require.Equal(t, 5, p.Size())

	got, permanent := p.Unpacked()
	require.True(t, permanent)
	require.Equal(t, vals, got)

	// the packer owns a copy; mutating the input must not leak through
	vals[0] = 99
	got, _ = p.Unpacked()
	require.Equal(t, uint32(3), got[0])
}

func TestSimplePacker_Empty(t *testing.T) {
	p := NewSimplePacker([]uint32{})
	require.Equal(t, 0, p.Size())

	got, permanent := p.Unpacked()
	require.True(t, permanent)
	require.Empty(t, got)
}

func TestConvert_Float32(t *testing.T) {
	p := Convert[float32]([]float64{1.5, 2.0, 0.25})

	got, permanent := p.Unpacked()
	require.True(t, permanent)
	require.Equal(t, []float32{1.5, 2.0, 0.25}, got)
}

func TestBitsFor(t *testing.T) {
	testCases := []struct {
		max  uint32
		want uint
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{7, 3},
		{8, 4},
		{255, 8},
		{256, 9},
		{1<<31 - 1, 31},
		{1 << 31, 32},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, BitsFor(tc.max), "max=%d", tc.max)
	}
}

func TestMaxValue(t *testing.T) {
	require.Equal(t, uint32(0), MaxValue(nil))
	require.Equal(t, uint32(7), MaxValue([]uint32{3, 7, 1}))
}

func TestFixedWidthPacker_Layout(t *testing.T) {
	// 2-bit packing of 0,1,2,3 is a single byte 0b00011011
	p, err := NewFixedWidthPacker(2, []uint32{0, 1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{0x1B}, p.Bytes())

	// 4-bit packing of 1,2 is 0b00010010
	p, err = NewFixedWidthPacker(4, []uint32{1, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{0x12}, p.Bytes())

	// trailing bits are left-aligned in the final byte: 3 values of 3 bits
	// 101 110 011 -> 10111001 1xxxxxxx
	p, err = NewFixedWidthPacker(3, []uint32{5, 6, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{0xB9, 0x80}, p.Bytes())
}

func TestFixedWidthPacker_RoundTrip(t *testing.T) {
	for width := uint(1); width <= 32; width++ {
		var limit uint64 = 1<<width - 1

		vals := []uint32{0, uint32(limit), uint32(limit / 2), 1, uint32(limit / 3)}
		if width == 1 {
			vals = []uint32{0, 1, 1, 0, 1, 1, 1, 0, 0}
		}

		p, err := NewFixedWidthPacker(width, vals)
		require.NoError(t, err, "width=%d", width)
		require.Equal(t, len(vals), p.Size())
		require.Equal(t, width, p.Width())

		got, permanent := p.Unpacked()
		require.False(t, permanent, "width=%d", width)
		require.Equal(t, vals, got, "width=%d", width)
	}
}

func TestFixedWidthPacker_ScratchReuse(t *testing.T) {
	p, err := NewFixedWidthPacker(3, []uint32{1, 2, 3, 4})
	require.NoError(t, err)

	first, permanent := p.Unpacked()
	require.False(t, permanent)
	snapshot := make([]uint32, len(first))
	copy(snapshot, first)

	// the next call decodes into the same scratch storage
	second, _ := p.Unpacked()
	require.Equal(t, snapshot, second)
	require.Equal(t, &first[0], &second[0])
}

func TestFixedWidthPacker_Errors(t *testing.T) {
	_, err := NewFixedWidthPacker(0, []uint32{1})
	require.Error(t, err)

	_, err = NewFixedWidthPacker(33, []uint32{1})
	require.Error(t, err)

	_, err = NewFixedWidthPacker(2, []uint32{4})
	require.Error(t, err)
}

func TestFixedWidthPacker_Empty(t *testing.T) {
	p, err := NewFixedWidthPacker(5, nil)
	require.NoError(t, err)
	require.Equal(t, 0, p.Size())
	require.Empty(t, p.Bytes())

	got, permanent := p.Unpacked()
	require.False(t, permanent)
	require.Empty(t, got)
}
