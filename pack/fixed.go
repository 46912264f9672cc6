package pack

import (
	"fmt"

	"github.com/arloliu/treebank/errs"
)

// FixedWidthPacker stores unsigned integers as a contiguous MSB-first bit
// stream, each value occupying exactly width bits.
//
// A vector of n values occupies ceil(n*width/8) bytes. Values must fit in
// width bits; NewFixedWidthPacker rejects a vector whose maximum does not.
//
// Decoding writes into a scratch slice owned by the packer, so the slice
// returned by Unpacked is invalidated by the next Unpacked call. Callers that
// need the values past that point must copy them out; the permanence flag
// signals this.
type FixedWidthPacker struct {
	bits  []byte
	count int
	width uint

	// scratch backs Unpacked; reused across calls.
	scratch []uint32
}

var _ Packer[uint32] = (*FixedWidthPacker)(nil)

// MaxWidth is the largest supported bit width per value.
const MaxWidth = 32

// NewFixedWidthPacker packs vals at the given bit width (1..MaxWidth).
func NewFixedWidthPacker(width uint, vals []uint32) (*FixedWidthPacker, error) {
	if width == 0 || width > MaxWidth {
		return nil, fmt.Errorf("%w: bit width %d out of range [1,%d]", errs.ErrInvalidArgument, width, MaxWidth)
	}
	if width < MaxWidth {
		limit := uint32(1)<<width - 1
		for _, v := range vals {
			if v > limit {
				return nil, fmt.Errorf("%w: value %d does not fit in %d bits", errs.ErrInvalidArgument, v, width)
			}
		}
	}

	p := &FixedWidthPacker{
		bits:  make([]byte, 0, (len(vals)*int(width)+7)/8),
		count: len(vals),
		width: width,
	}

	var acc uint64
	var nacc uint
	for _, v := range vals {
		acc = acc<<width | uint64(v)
		nacc += width
		for nacc >= 8 {
			nacc -= 8
			p.bits = append(p.bits, byte(acc>>nacc))
		}
		acc &= 1<<nacc - 1
	}
	if nacc > 0 {
		// Left-align the trailing bits in the final byte.
		p.bits = append(p.bits, byte(acc<<(8-nacc)))
	}

	return p, nil
}

// Size returns the number of stored values.
func (p *FixedWidthPacker) Size() int {
	return p.count
}

// Width returns the bit width per value.
func (p *FixedWidthPacker) Width() uint {
	return p.width
}

// Bytes returns the packed bit stream. The buffer is owned by the packer and
// must not be modified.
func (p *FixedWidthPacker) Bytes() []byte {
	return p.bits
}

// Unpacked decodes all values into the packer's scratch slice.
//
// The returned slice is valid only until the next Unpacked call on this
// packer; permanent is always false.
func (p *FixedWidthPacker) Unpacked() ([]uint32, bool) {
	if cap(p.scratch) < p.count {
		p.scratch = make([]uint32, p.count)
	}
	out := p.scratch[:p.count]

	mask := uint64(1)<<p.width - 1
	var acc uint64
	var nacc uint
	pos := 0
	for k := 0; k < p.count; k++ {
		for nacc < p.width {
			acc = acc<<8 | uint64(p.bits[pos])
			pos++
			nacc += 8
		}
		nacc -= p.width
		out[k] = uint32(acc >> nacc & mask)
		acc &= 1<<nacc - 1
	}

	return out, false
}
