package trees

import (
	"math"

	"github.com/arloliu/treebank/format"
)

// ExpandedNode is one node of an expanded tree.
//
// Nodes are stored leaves-and-internals interleaved in post-order; the root
// is the last entry. Sons is a slice into the expansion's shared child-index
// block, so an expansion costs one node array plus a single child buffer.
type ExpandedNode struct {
	// Taxon is the taxon id of a tip, or -1 for an internal node.
	Taxon int

	// Sons are the child node indices in left-to-right topology order; empty
	// for tips.
	Sons []int

	// Branch is the length of the edge above the node; nil for the root and
	// for every node of a cladogram.
	Branch *float64

	// Height is the node height above the base level. NaN on cladograms,
	// whose heights are ordinal rather than metric.
	Height float64

	// Parent is the parent node index, or -1 for the root.
	Parent int

	// Attributes are the node's annotations, nil when absent.
	Attributes Attributes
}

// Expanded is a fully navigable tree reconstructed from a Rep.
//
// It owns its node array and child-index block; the attribute slots are
// borrowed from the Rep it was built from. Dropping an expansion leaves the
// Rep untouched.
type Expanded struct {
	nodes     []ExpandedNode
	sonsBlock []int
	sonsUsed  int
	cladogram bool

	topo       []uint32
	tipHeights []float64
	heights    []float64
	attrs      []Attributes
}

// Root returns the root node index (always the last node).
func (x *Expanded) Root() int {
	return len(x.nodes) - 1
}

// Len returns the number of nodes.
func (x *Expanded) Len() int {
	return len(x.nodes)
}

// Node returns the node at index id. The pointer stays valid for the lifetime
// of the expansion.
func (x *Expanded) Node(id int) *ExpandedNode {
	return &x.nodes[id]
}

// expandRep reconstructs the node array of rep.
//
// The heights vector drives a divide and conquer: the maxima of a range are
// exactly the boundaries between the root's children in that range, so each
// recursion level splits on the range maxima and recurses into the gaps.
// Equal maxima (within the encoder's write discipline, equal means identical)
// produce a multifurcation in original left-to-right order.
func expandRep(rep Rep) *Expanded {
	topo, permanent := rep.Topology()
	if !permanent {
		cp := make([]uint32, len(topo))
		copy(cp, topo)
		topo = cp
	}

	nTips := len(topo)
	hs, txhs := rep.heightsInto()
	if txhs == nil {
		txhs = make([]float64, nTips)
	}

	x := &Expanded{
		nodes:      make([]ExpandedNode, 0, 2*nTips-1),
		sonsBlock:  make([]int, 2*nTips),
		cladogram:  rep.Kind() == format.KindCladogram,
		topo:       topo,
		tipHeights: txhs,
		heights:    hs,
		attrs:      rep.Attributes(),
	}

	scratch := make([]int, 2*nTips)
	x.build(0, len(hs), scratch)

	if x.cladogram {
		// cladogram heights are ordinal; neither branch lengths nor metric
		// heights survive the expansion
		for i := range x.nodes {
			x.nodes[i].Branch = nil
			x.nodes[i].Height = math.NaN()
		}
	}

	return x
}

// build expands the tip range [low, hi] (inclusive of tip hi) and returns the
// index of the constructed subtree root. scratch provides disjoint storage
// for this call's split positions; child calls receive the tail beyond them.
func (x *Expanded) build(low, hi int, scratch []int) int {
	if low == hi {
		var attrs Attributes
		if x.attrs != nil {
			attrs = x.attrs[low]
		}
		x.nodes = append(x.nodes, ExpandedNode{
			Taxon:      int(x.topo[low]),
			Height:     x.tipHeights[low],
			Parent:     -1,
			Attributes: attrs,
		})

		return len(x.nodes) - 1
	}

	// Collect the positions holding the range maximum. A strictly larger
	// value discards what was collected; an equal value appends. The
	// positions plus hi bound the child subranges.
	curh := math.Inf(-1)
	n := 0
	for k := low; k < hi; k++ {
		h := x.heights[k]
		if h >= curh {
			if h > curh {
				curh = h
				scratch[0] = k
				n = 1
			} else {
				scratch[n] = k
				n++
			}
		}
	}
	firstSplit := scratch[0]
	scratch[n] = hi
	n++

	nSons := n
	base := x.sonsUsed
	x.sonsUsed += nSons

	lo := low
	for i := 0; i < nSons; i++ {
		k := x.build(lo, scratch[i], scratch[n:])
		br := curh - x.nodes[k].Height
		x.nodes[k].Branch = &br
		x.sonsBlock[base+i] = k
		lo = scratch[i] + 1
	}

	sons := x.sonsBlock[base : base+nSons]
	idx := len(x.nodes)
	for _, s := range sons {
		x.nodes[s].Parent = idx
	}

	var attrs Attributes
	if x.attrs != nil {
		attrs = x.attrs[firstSplit+len(x.topo)]
	}
	x.nodes = append(x.nodes, ExpandedNode{
		Taxon:      -1,
		Sons:       sons,
		Height:     curh,
		Parent:     -1,
		Attributes: attrs,
	})

	return len(x.nodes) - 1
}

// expandParsed reconstructs a navigable tree directly from a retained parse,
// bypassing the compact representation (store mode).
//
// The parsed list is already post-order, so node ids coincide with parsed
// indices. Heights are recovered in two passes: a bottom-up max over child
// stems fixes the root height, then a top-down walk pins every node at
// parent height minus its branch.
func expandParsed(nodes []parsedNodeView, cladogram bool) *Expanded {
	total := len(nodes)
	x := &Expanded{
		nodes:     make([]ExpandedNode, total),
		cladogram: cladogram,
	}

	sonsTotal := 0
	for i := range nodes {
		sonsTotal += len(nodes[i].sons)
	}
	x.sonsBlock = make([]int, sonsTotal)

	// bottom-up: stem tops and child wiring
	stemTop := make([]float64, total)
	for i := range nodes {
		pn := &nodes[i]
		en := &x.nodes[i]
		en.Parent = -1
		en.Taxon = pn.taxon
		en.Attributes = pn.attrs

		if len(pn.sons) == 0 {
			b := defaultBranch
			if pn.branch != nil {
				b = *pn.branch
				br := b
				en.Branch = &br
			} else if !cladogram {
				br := b
				en.Branch = &br
			}
			stemTop[i] = b

			continue
		}

		sons := x.sonsBlock[x.sonsUsed : x.sonsUsed+len(pn.sons)]
		x.sonsUsed += len(pn.sons)
		copy(sons, pn.sons)
		en.Sons = sons

		h := math.Inf(-1)
		for _, son := range pn.sons {
			x.nodes[son].Parent = i
			if stemTop[son] > h {
				h = stemTop[son]
			}
		}
		en.Height = h
		if pn.branch != nil {
			br := *pn.branch
			en.Branch = &br
			stemTop[i] = h + br
		} else if i+1 != total {
			if !cladogram {
				br := defaultBranch
				en.Branch = &br
			}
			stemTop[i] = h + defaultBranch
		}
	}

	if cladogram {
		for i := range x.nodes {
			x.nodes[i].Branch = nil
			x.nodes[i].Height = math.NaN()
		}

		return x
	}

	// top-down: heights below the root follow parent height minus branch
	for i := total - 2; i >= 0; i-- {
		en := &x.nodes[i]
		b := defaultBranch
		if en.Branch != nil {
			b = *en.Branch
		}
		en.Height = x.nodes[en.Parent].Height - b
	}

	return x
}

// parsedNodeView is the slim view of a parsed node that expandParsed needs.
type parsedNodeView struct {
	taxon  int
	branch *float64
	sons   []int
	attrs  Attributes
}
