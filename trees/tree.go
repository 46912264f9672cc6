package trees

import (
	"fmt"
	"math"

	"github.com/arloliu/treebank/errs"
	"github.com/arloliu/treebank/internal/pool"
	"github.com/arloliu/treebank/newick"
)

// Tree is a handle on one tree of a Set.
//
// The handle lazily expands the compact representation on first access and
// caches the expansion for its own lifetime; two handles on the same tree
// hold independent caches, so readers never collide. After SetBranch edits
// heights, the cached expansion is the canonical state of the tree; the
// packed representation is deliberately left untouched.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	set   *Set
	index int

	expanded *Expanded
	attrs    map[string]string
}

// Node is the caller-facing view of one expanded node.
type Node struct {
	// Parent is the parent node id, or -1 for the root.
	Parent int

	// Sons are child node ids in left-to-right topology order.
	Sons []int

	// Taxon is the tip label, empty for internal nodes.
	Taxon string

	// Branch is the edge length above the node; nil for the root and on
	// cladograms.
	Branch *float64

	// Height is the node height above the base level; NaN on cladograms.
	Height float64

	// Attributes are the node's parsed annotations, nil when absent.
	Attributes Attributes
}

// Index returns the position of the tree within its Set.
func (t *Tree) Index() int {
	return t.index
}

// Attributes returns the per-tree attribute bag given to Add, or nil.
func (t *Tree) Attributes() map[string]string {
	return t.attrs
}

// expand builds the node array on first use.
func (t *Tree) expand() *Expanded {
	if t.expanded == nil {
		t.expanded = t.set.expandTree(t.index)
	}

	return t.expanded
}

// IsCladogram reports whether the tree carries no branch lengths.
func (t *Tree) IsCladogram() bool {
	return t.expand().cladogram
}

// NumNodes returns the number of nodes in the expansion (2N-1 for a binary
// tree of N tips, fewer with multifurcations).
func (t *Tree) NumNodes() int {
	return t.expand().Len()
}

// RootID returns the node id of the root.
func (t *Tree) RootID() int {
	return t.expand().Root()
}

// Taxa returns the taxon labels along the topology vector, in tip order.
func (t *Tree) Taxa() []string {
	topo, _ := t.set.topologyOf(t.index)
	labels := make([]string, len(topo))
	for i, id := range topo {
		labels[i] = t.set.taxa.Name(id)
	}

	return labels
}

// Terminals returns the node ids of the tips, in node order.
func (t *Tree) Terminals() []int {
	x := t.expand()
	ids := make([]int, 0, (x.Len()+1)/2)
	for i := range x.nodes {
		if x.nodes[i].Taxon >= 0 {
			ids = append(ids, i)
		}
	}

	return ids
}

// AllIDs returns every node id, 0..NumNodes-1.
func (t *Tree) AllIDs() []int {
	ids := make([]int, t.NumNodes())
	for i := range ids {
		ids[i] = i
	}

	return ids
}

// NodeAt returns the node with the given id.
func (t *Tree) NodeAt(id int) (Node, error) {
	x := t.expand()
	if id < 0 || id >= x.Len() {
		return Node{}, fmt.Errorf("%w: node %d of %d", errs.ErrRange, id, x.Len())
	}

	en := x.Node(id)
	taxon := ""
	if en.Taxon >= 0 {
		taxon = t.set.taxa.Name(TaxonID(en.Taxon))
	}

	return Node{
		Parent:     en.Parent,
		Sons:       en.Sons,
		Taxon:      taxon,
		Branch:     en.Branch,
		Height:     en.Height,
		Attributes: en.Attributes,
	}, nil
}

// Postorder returns the node ids of the subtree rooted at root in post-order.
// Pass root = -1 for the whole tree. Tips are skipped when includeTips is
// false; internal nodes are always included.
func (t *Tree) Postorder(root int, includeTips bool) ([]int, error) {
	return t.inOrder(root, includeTips, false)
}

// Preorder returns the node ids of the subtree rooted at root in pre-order.
// Pass root = -1 for the whole tree. Tips are skipped when includeTips is
// false; internal nodes are always included.
func (t *Tree) Preorder(root int, includeTips bool) ([]int, error) {
	return t.inOrder(root, includeTips, true)
}

func (t *Tree) inOrder(root int, includeTips, pre bool) ([]int, error) {
	x := t.expand()
	if root == -1 {
		root = x.Root()
	}
	if root < 0 || root >= x.Len() {
		return nil, fmt.Errorf("%w: node %d of %d", errs.ErrRange, root, x.Len())
	}

	var ids []int
	var walk func(id int)
	walk = func(id int) {
		n := x.Node(id)
		if len(n.Sons) > 0 && pre {
			ids = append(ids, id)
		}
		for _, son := range n.Sons {
			walk(son)
		}
		if (len(n.Sons) > 0 && !pre) || (len(n.Sons) == 0 && includeTips) {
			ids = append(ids, id)
		}
	}
	walk(root)

	return ids, nil
}

// SetBranch changes the length of the edge above node id to length, keeping
// the metric above the node intact: every node of the subtree (the node
// itself included) shifts by the length delta. If the shift would push a
// height below zero, the whole tree's baseline moves up so the minimum height
// is exactly zero; no other branch length changes.
func (t *Tree) SetBranch(id int, length float64) error {
	if length < 0 {
		return fmt.Errorf("%w: negative branch length %v", errs.ErrInvalidArgument, length)
	}

	x := t.expand()
	if id < 0 || id >= x.Len() {
		return fmt.Errorf("%w: node %d of %d", errs.ErrRange, id, x.Len())
	}
	if x.cladogram {
		return fmt.Errorf("%w: cladogram nodes carry no branch lengths", errs.ErrInvalidArgument)
	}

	en := x.Node(id)
	old := 0.0
	if en.Branch != nil {
		old = *en.Branch
	}
	delta := length - old
	if delta == 0 {
		return nil
	}

	br := length
	en.Branch = &br

	sub, err := t.Postorder(id, true)
	if err != nil {
		return err
	}
	minHeight := math.Inf(1)
	for _, k := range sub {
		n := x.Node(k)
		n.Height -= delta
		if n.Height < minHeight {
			minHeight = n.Height
		}
	}

	if minHeight < 0 {
		for i := range x.nodes {
			x.nodes[i].Height -= minHeight
		}
	}

	return nil
}

// Newick renders the tree (or the subtree rooted at root; pass -1 for the
// whole tree) in canonical NEWICK form.
//
// Children are ordered by their rendered text, so sibling order normalises:
// trees equal up to sibling rotation render identically. With topologyOnly
// branch lengths are omitted; includeStem additionally renders the branch
// above root itself.
func (t *Tree) Newick(root int, topologyOnly, includeStem bool) (string, error) {
	x := t.expand()
	if root == -1 {
		root = x.Root()
	}
	if root < 0 || root >= x.Len() {
		return "", fmt.Errorf("%w: node %d of %d", errs.ErrRange, root, x.Len())
	}

	return t.render(x, root, topologyOnly, includeStem), nil
}

// String renders the whole tree with branch lengths.
func (t *Tree) String() string {
	s, _ := t.Newick(-1, false, false)
	return s
}

func (t *Tree) render(x *Expanded, id int, topologyOnly, includeStem bool) string {
	n := x.Node(id)

	var s string
	if len(n.Sons) == 0 {
		if n.Taxon >= 0 {
			s = t.set.taxa.Name(TaxonID(n.Taxon))
		}
	} else {
		parts, done := pool.GetStringSlice(len(n.Sons))
		for _, son := range n.Sons {
			parts = append(parts, t.render(x, son, topologyOnly, true))
		}
		s = newick.JoinSubtrees(parts)
		done()
	}

	if !topologyOnly && includeStem && n.Branch != nil {
		s += ":" + newick.FormatBranch(*n.Branch)
	}

	return s
}
