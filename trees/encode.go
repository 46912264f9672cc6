package trees

import (
	"fmt"
	"math"

	"github.com/arloliu/treebank/errs"
	"github.com/arloliu/treebank/format"
	"github.com/arloliu/treebank/internal/pool"
	"github.com/arloliu/treebank/newick"
	"github.com/arloliu/treebank/pack"
)

// epsilon is the double-precision machine epsilon used for height equality.
var epsilon = math.Nextafter(1, 2) - 1

func sameHeight(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// defaultBranch is assumed for a node without an explicit branch length when
// a metric is needed: tips in a cladogram count one level per edge, and an
// unlabelled internal edge contributes one level.
const defaultBranch = 1.0

// buildRep encodes a parsed node list into the compact representation.
//
// The single pass walks the post-order node list keeping, per node, the
// running height of the top of its stem in stemTop. For a tip that is its
// branch length; for an internal node it is the node height plus its branch.
// Because children precede their parent, the parent reads its children's
// stemTop values to find its own height.
//
// locs is the canonical index: for a tip at parsed index i, locs[i]+1 is the
// tip ordinal in the topology walk; for an internal node, locs[i] equals the
// locs of its last descendant tip. The internal node's own height sits in the
// heights slots locs[son]+1 of every son but the last.
func (s *Set) buildRep(nodes []newick.Node) (Rep, error) {
	var (
		taxa     []uint32
		maxTaxon uint32
		hasAttrs bool
	)
	cladogram := true

	for i := range nodes {
		n := &nodes[i]
		if len(n.Sons) == 0 {
			// tips may be unnamed; the empty label interns like any other
			id := s.taxa.Intern(n.Taxon)
			if id > maxTaxon {
				maxTaxon = id
			}
			taxa = append(taxa, id)
		}
		if n.Branch != nil {
			cladogram = false
		}
		if len(n.Attributes) > 0 {
			hasAttrs = true
		}
	}

	nTips := len(taxa)
	if nTips == 0 {
		return nil, fmt.Errorf("%w: parsed tree has no tips", errs.ErrInternal)
	}

	// heights and the per-node scratch live only for the duration of this
	// call; the packers below copy what they keep.
	heights, heightsDone := pool.GetFloat64Slice(nTips - 1)
	defer heightsDone()
	clear(heights)

	stemTop, stemDone := pool.GetFloat64Slice(len(nodes))
	defer stemDone()

	locs := make([]int, len(nodes))
	var tipHeights []float64

	for i := range nodes {
		n := &nodes[i]
		if len(n.Sons) == 0 {
			b := defaultBranch
			if n.Branch != nil {
				b = *n.Branch
			}
			stemTop[i] = b

			if i == 0 {
				locs[i] = -1
			} else {
				locs[i] = locs[i-1] + 1
			}

			continue
		}

		// node height is the tallest child stem
		h := math.Inf(-1)
		for _, son := range n.Sons {
			if stemTop[son] > h {
				h = stemTop[son]
			}
		}

		if !cladogram {
			// Children shorter than the tallest sibling get the difference
			// pushed down their subtree: internal descendants rise by dh in
			// the heights vector, tip descendants accumulate dh as an offset
			// above the base level.
			for _, son := range n.Sons {
				dh := h - stemTop[son]
				if dh > 0 && !sameHeight(h, stemTop[son]) {
					if tipHeights == nil {
						tipHeights = make([]float64, nTips)
					}
					stack := []int{son}
					for len(stack) > 0 {
						x := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						if len(nodes[x].Sons) == 0 {
							tipHeights[locs[x]+1] += dh
						} else {
							for _, c := range nodes[x].Sons[:len(nodes[x].Sons)-1] {
								heights[locs[c]+1] += dh
							}
							stack = append(stack, nodes[x].Sons...)
						}
					}
				}
			}
		}

		// the node height lands in the pair slot after each son but the last
		for _, son := range n.Sons[:len(n.Sons)-1] {
			heights[locs[son]+1] = h
		}

		locs[i] = locs[i-1]

		// parents read the stem top, not the edge length
		if n.Branch != nil {
			stemTop[i] = h + *n.Branch
		} else if i+1 != len(nodes) {
			stemTop[i] = h + defaultBranch
		}
	}

	var topo pack.Packer[uint32]
	if s.cfg.compressed {
		p, err := pack.NewFixedWidthPacker(pack.BitsFor(maxTaxon), taxa)
		if err != nil {
			return nil, err
		}
		topo = p
	} else {
		topo = pack.NewSimplePacker(taxa)
	}

	var attrs []Attributes
	if hasAttrs {
		attrs = make([]Attributes, 2*nTips-1)
		for i := range nodes {
			n := &nodes[i]
			if len(n.Attributes) == 0 {
				continue
			}
			slot := locs[i]
			if len(n.Sons) == 0 {
				slot++
			} else {
				// first of the node's own heights slots, past the tip slots
				slot = locs[n.Sons[0]] + 1 + nTips
			}
			attrs[slot] = n.Attributes
		}
	}

	base := repBase{topo: topo, attrs: attrs}

	if cladogram {
		hs, hsDone := pool.GetUint32Slice(len(heights))
		defer hsDone()
		for i, h := range heights {
			hs[i] = uint32(h + 0.5)
		}

		var packed pack.Packer[uint32]
		if s.cfg.compressed && len(hs) > 0 {
			p, err := pack.NewFixedWidthPacker(pack.BitsFor(pack.MaxValue(hs)), hs)
			if err != nil {
				return nil, err
			}
			packed = p
		} else {
			packed = pack.NewSimplePacker(hs)
		}

		return &cladogramRep{repBase: base, heights: packed}, nil
	}

	if s.cfg.precision == format.Precision64 {
		r := &phylogramRep64{
			repBase: base,
			heights: pack.NewSimplePacker(heights),
		}
		if tipHeights != nil {
			r.tipHeights = pack.NewSimplePacker(tipHeights)
		}

		return r, nil
	}

	r := &phylogramRep32{
		repBase: base,
		heights: pack.Convert[float32](heights),
	}
	if tipHeights != nil {
		r.tipHeights = pack.Convert[float32](tipHeights)
	}

	return r, nil
}
