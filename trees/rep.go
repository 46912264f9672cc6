// Package trees stores collections of phylogenetic trees in a compact,
// queryable in-memory representation.
//
// A Set ingests NEWICK text and keeps each tree as a Rep: the left-to-right
// tip sequence (topology) plus, for every adjacent tip pair, the height of
// their lowest common ancestor. That pair of vectors fully determines the
// rooted tree shape; a few thousand trees over a shared taxon universe fit in
// a fraction of the memory a node graph per tree would need. Expansion back
// into a navigable node array happens lazily, per tree, on first access.
package trees

import (
	"math"

	"github.com/arloliu/treebank/endian"
	"github.com/arloliu/treebank/format"
	"github.com/arloliu/treebank/internal/hash"
	"github.com/arloliu/treebank/internal/pool"
	"github.com/arloliu/treebank/newick"
	"github.com/arloliu/treebank/pack"
)

// Attributes is the annotation list of one node, in input order.
type Attributes = []newick.Attr

// Rep is the immutable compact form of a single tree.
//
// A tree of N tips stores a topology vector of length N (taxon ids along the
// left-to-right tip walk) and a heights vector of length N-1 (LCA height of
// each adjacent tip pair). Cladograms hold integer heights, phylograms real
// heights at the set's precision, optionally with per-tip offsets when tips
// are not contemporaneous.
//
// The concrete variants are cladogramRep, phylogramRep32 and phylogramRep64;
// dispatch happens only at expansion time.
type Rep interface {
	// Kind reports whether the tree is a cladogram or phylogram.
	Kind() format.Kind

	// NumTips returns N, the number of tips.
	NumTips() int

	// Topology returns the taxon ids along the tip walk, plus the packer
	// permanence flag (§ pack.Packer.Unpacked).
	Topology() ([]TaxonID, bool)

	// Attributes returns the per-node annotation slots, or nil when no node
	// carries annotations. The slice has length 2N-1: slot k holds the k-th
	// tip along the topology, slot N+j the internal node whose height is
	// stored at heights[j] (its first such slot for a multifurcation).
	Attributes() []Attributes

	// Fingerprint returns a 64-bit content hash over kind, topology and
	// heights. Two structurally identical reps always hash equal; it backs
	// cheap duplicate detection across a large set.
	Fingerprint() uint64

	// heightsInto yields the heights and tip heights as float64 vectors.
	// The returned slices are freshly allocated and owned by the caller;
	// txhs is nil when all tips sit at the base level.
	heightsInto() (hs []float64, txhs []float64)
}

// repBase carries the state shared by all Rep variants.
type repBase struct {
	topo  pack.Packer[uint32]
	attrs []Attributes
}

func (r *repBase) NumTips() int {
	return r.topo.Size()
}

func (r *repBase) Topology() ([]TaxonID, bool) {
	return r.topo.Unpacked()
}

func (r *repBase) Attributes() []Attributes {
	return r.attrs
}

var (
	_ Rep = (*cladogramRep)(nil)
	_ Rep = (*phylogramRep32)(nil)
	_ Rep = (*phylogramRep64)(nil)
)

type cladogramRep struct {
	repBase
	heights pack.Packer[uint32]
}

func (r *cladogramRep) Kind() format.Kind {
	return format.KindCladogram
}

func (r *cladogramRep) heightsInto() ([]float64, []float64) {
	raw, _ := r.heights.Unpacked()
	hs := make([]float64, len(raw))
	for i, v := range raw {
		hs[i] = float64(v)
	}

	return hs, nil
}

func (r *cladogramRep) Fingerprint() uint64 {
	d := hash.Digest()
	engine := endian.GetLittleEndianEngine()

	bb := pool.GetPackBuffer()
	defer pool.PutPackBuffer(bb)

	bb.B = append(bb.B, byte(format.KindCladogram))
	topo, _ := r.topo.Unpacked()
	for _, v := range topo {
		bb.B = engine.AppendUint32(bb.B, v)
	}
	hs, _ := r.heights.Unpacked()
	for _, v := range hs {
		bb.B = engine.AppendUint32(bb.B, v)
	}
	_, _ = d.Write(bb.B)

	return d.Sum64()
}

type phylogramRep32 struct {
	repBase
	heights    *pack.SimplePacker[float32]
	tipHeights *pack.SimplePacker[float32] // nil means all tips at the base level
}

func (r *phylogramRep32) Kind() format.Kind {
	return format.KindPhylogram
}

func (r *phylogramRep32) heightsInto() ([]float64, []float64) {
	raw, _ := r.heights.Unpacked()
	hs := make([]float64, len(raw))
	for i, v := range raw {
		hs[i] = float64(v)
	}

	var txhs []float64
	if r.tipHeights != nil {
		rawTips, _ := r.tipHeights.Unpacked()
		txhs = make([]float64, len(rawTips))
		for i, v := range rawTips {
			txhs[i] = float64(v)
		}
	}

	return hs, txhs
}

func (r *phylogramRep32) Fingerprint() uint64 {
	hs, _ := r.heights.Unpacked()
	var txhs []float32
	if r.tipHeights != nil {
		txhs, _ = r.tipHeights.Unpacked()
	}

	d := hash.Digest()
	engine := endian.GetLittleEndianEngine()

	bb := pool.GetPackBuffer()
	defer pool.PutPackBuffer(bb)

	bb.B = append(bb.B, byte(format.KindPhylogram), 32)
	topo, _ := r.topo.Unpacked()
	for _, v := range topo {
		bb.B = engine.AppendUint32(bb.B, v)
	}
	for _, v := range hs {
		bb.B = engine.AppendUint32(bb.B, math.Float32bits(v))
	}
	for _, v := range txhs {
		bb.B = engine.AppendUint32(bb.B, math.Float32bits(v))
	}
	_, _ = d.Write(bb.B)

	return d.Sum64()
}

type phylogramRep64 struct {
	repBase
	heights    *pack.SimplePacker[float64]
	tipHeights *pack.SimplePacker[float64] // nil means all tips at the base level
}

func (r *phylogramRep64) Kind() format.Kind {
	return format.KindPhylogram
}

func (r *phylogramRep64) heightsInto() ([]float64, []float64) {
	raw, _ := r.heights.Unpacked()
	hs := make([]float64, len(raw))
	copy(hs, raw)

	var txhs []float64
	if r.tipHeights != nil {
		rawTips, _ := r.tipHeights.Unpacked()
		txhs = make([]float64, len(rawTips))
		copy(txhs, rawTips)
	}

	return hs, txhs
}

func (r *phylogramRep64) Fingerprint() uint64 {
	hs, _ := r.heights.Unpacked()
	var txhs []float64
	if r.tipHeights != nil {
		txhs, _ = r.tipHeights.Unpacked()
	}

	d := hash.Digest()
	engine := endian.GetLittleEndianEngine()

	bb := pool.GetPackBuffer()
	defer pool.PutPackBuffer(bb)

	bb.B = append(bb.B, byte(format.KindPhylogram), 64)
	topo, _ := r.topo.Unpacked()
	for _, v := range topo {
		bb.B = engine.AppendUint32(bb.B, v)
	}
	for _, v := range hs {
		bb.B = engine.AppendUint64(bb.B, math.Float64bits(v))
	}
	for _, v := range txhs {
		bb.B = engine.AppendUint64(bb.B, math.Float64bits(v))
	}
	_, _ = d.Write(bb.B)

	return d.Sum64()
}
