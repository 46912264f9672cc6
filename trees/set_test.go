package trees

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/treebank/errs"
	"github.com/arloliu/treebank/format"
)

func mustAdd(t *testing.T, s *Set, text string) *Tree {
	t.Helper()

	idx, err := s.Add(text, nil)
	require.NoError(t, err)

	tree, err := s.Get(idx)
	require.NoError(t, err)

	return tree
}

func newickOf(t *testing.T, tree *Tree) string {
	t.Helper()

	s, err := tree.Newick(-1, false, false)
	require.NoError(t, err)

	return s
}

func TestSet_AddSimplePair(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	idx, err := s.Add("(A,B);", nil)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, 1, s.Len())

	tree, err := s.Get(idx)
	require.NoError(t, err)
	require.True(t, tree.IsCladogram())
	require.Equal(t, 3, tree.NumNodes()) // 2 tips + 1 internal
	require.Equal(t, []string{"A", "B"}, tree.Taxa())

	info, err := s.RepInfo(idx)
	require.NoError(t, err)
	require.Equal(t, format.KindCladogram, info.Kind)
	require.Equal(t, []string{"A", "B"}, info.Taxa)
	require.Equal(t, []float64{1}, info.Heights)
	require.Nil(t, info.TipHeights)

	require.Equal(t, "(A,B)", newickOf(t, tree))
}

func TestSet_PhylogramHeights(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	tree := mustAdd(t, s, "((A:1,B:1):2,C:3);")
	require.False(t, tree.IsCladogram())

	root, err := tree.NodeAt(tree.RootID())
	require.NoError(t, err)
	require.Equal(t, 3.0, root.Height)
	require.Equal(t, -1, root.Parent)

	for _, id := range tree.Terminals() {
		n, err := tree.NodeAt(id)
		require.NoError(t, err)
		require.Equal(t, 0.0, n.Height, "tip %s", n.Taxon)
	}
}

func TestSet_SetBranchShiftsSubtree(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	tree := mustAdd(t, s, "((A:1,B:1):2,C:3);")

	// expansion emits post-order: A=0, B=1, (A,B)=2, C=3, root=4
	require.NoError(t, tree.SetBranch(0, 0.5))
	require.Equal(t, "((A:0.5,B:1.0):2.0,C:3.0)", newickOf(t, tree))

	// A's tip rose by the shortening; everything else is untouched
	a, err := tree.NodeAt(0)
	require.NoError(t, err)
	require.Equal(t, 0.5, a.Height)
}

func TestSet_SetBranchBaselineShift(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	tree := mustAdd(t, s, "(A:1,B:1);")

	// lengthening A's branch would push A below zero, so the whole tree
	// baseline moves up instead
	require.NoError(t, tree.SetBranch(0, 3))
	require.Equal(t, "(A:3.0,B:1.0)", newickOf(t, tree))

	a, err := tree.NodeAt(0)
	require.NoError(t, err)
	require.Equal(t, 0.0, a.Height)
	b, err := tree.NodeAt(1)
	require.NoError(t, err)
	require.Equal(t, 2.0, b.Height)
	root, err := tree.NodeAt(2)
	require.NoError(t, err)
	require.Equal(t, 3.0, root.Height)
}

func TestSet_SetBranchNoOp(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	tree := mustAdd(t, s, "(A:1,B:2);")
	before := newickOf(t, tree)
	require.NoError(t, tree.SetBranch(0, 1))
	require.Equal(t, before, newickOf(t, tree))
}

func TestSet_NonContemporaneousTips(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	idx, err := s.Add("(A:1,B:2);", nil)
	require.NoError(t, err)

	info, err := s.RepInfo(idx)
	require.NoError(t, err)
	require.Equal(t, format.KindPhylogram, info.Kind)
	require.Equal(t, []float64{2}, info.Heights)
	require.Equal(t, []float64{1, 0}, info.TipHeights)

	// the invariant is relative: LCA sits 1 above A and 2 above B
	tree, err := s.Get(idx)
	require.NoError(t, err)
	root, err := tree.NodeAt(tree.RootID())
	require.NoError(t, err)
	a, err := tree.NodeAt(0)
	require.NoError(t, err)
	b, err := tree.NodeAt(1)
	require.NoError(t, err)
	require.Equal(t, 1.0, root.Height-a.Height)
	require.Equal(t, 2.0, root.Height-b.Height)
}

func TestSet_SharedTaxonTable(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Add("((A,B),(C,D));", nil)
	require.NoError(t, err)
	_, err = s.Add("((A,B),(C,D));", nil)
	require.NoError(t, err)

	require.Equal(t, 2, s.Len())
	require.Equal(t, 4, s.NumTaxa())

	r0, err := s.RepAt(0)
	require.NoError(t, err)
	r1, err := s.RepAt(1)
	require.NoError(t, err)
	require.Equal(t, r0.Fingerprint(), r1.Fingerprint())

	// same label, same id, across trees
	name, err := s.TaxonName(0)
	require.NoError(t, err)
	require.Equal(t, "A", name)
}

func TestSet_FingerprintDistinguishesTopologies(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Add("((A,B),(C,D));", nil)
	require.NoError(t, err)
	_, err = s.Add("(((A,B),C),D);", nil)
	require.NoError(t, err)

	r0, err := s.RepAt(0)
	require.NoError(t, err)
	r1, err := s.RepAt(1)
	require.NoError(t, err)
	require.NotEqual(t, r0.Fingerprint(), r1.Fingerprint())
}

func TestSet_LeafAttributes(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	tree := mustAdd(t, s, "(A[&rate=0.5]:1,B:1);")

	a, err := tree.NodeAt(0)
	require.NoError(t, err)
	require.Equal(t, "A", a.Taxon)
	require.Len(t, a.Attributes, 1)
	require.Equal(t, "rate", a.Attributes[0].Key)
	require.Equal(t, "0.5", a.Attributes[0].Value)

	b, err := tree.NodeAt(1)
	require.NoError(t, err)
	require.Nil(t, b.Attributes)
}

func TestSet_InternalAttributes(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	tree := mustAdd(t, s, "((A:1,B:1)[&posterior=0.9]:2,C:3);")

	ab, err := tree.NodeAt(2)
	require.NoError(t, err)
	require.Empty(t, ab.Taxon)
	require.Len(t, ab.Attributes, 1)
	require.Equal(t, "posterior", ab.Attributes[0].Key)
}

func TestSet_TrifurcationPreserved(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	idx, err := s.Add("((A,B,C):1,D:1);", nil)
	require.NoError(t, err)

	info, err := s.RepInfo(idx)
	require.NoError(t, err)
	// two adjacent equal maxima encode the trifurcation
	require.Equal(t, []float64{1, 1, 2}, info.Heights)

	tree, err := s.Get(idx)
	require.NoError(t, err)

	// post-order: A=0, B=1, C=2, (A,B,C)=3, D=4, root=5
	abc, err := tree.NodeAt(3)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, abc.Sons)

	names := make([]string, 0, 3)
	for _, son := range abc.Sons {
		n, err := tree.NodeAt(son)
		require.NoError(t, err)
		names = append(names, n.Taxon)
	}
	require.Equal(t, []string{"A", "B", "C"}, names)
}

func TestSet_SingleTipTree(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	idx, err := s.Add("A;", nil)
	require.NoError(t, err)

	info, err := s.RepInfo(idx)
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, info.Taxa)
	require.Empty(t, info.Heights)

	tree, err := s.Get(idx)
	require.NoError(t, err)
	require.Equal(t, 1, tree.NumNodes())
	require.Equal(t, 0, tree.RootID())
	require.Equal(t, "A", newickOf(t, tree))
}

func TestSet_ParseErrorLeavesSetUntouched(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Add("(A,B);", nil)
	require.NoError(t, err)

	_, err = s.Add("(C,'D;", nil)
	require.ErrorIs(t, err, errs.ErrUnterminatedQuote)

	require.Equal(t, 1, s.Len())
	require.Equal(t, 2, s.NumTaxa()) // C was never interned
}

func TestSet_GetOutOfRange(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Get(0)
	require.ErrorIs(t, err, errs.ErrRange)

	_, err = s.Add("(A,B);", nil)
	require.NoError(t, err)

	_, err = s.Get(1)
	require.ErrorIs(t, err, errs.ErrRange)
	_, err = s.Get(-1)
	require.ErrorIs(t, err, errs.ErrRange)
}

func TestSet_InvalidPrecision(t *testing.T) {
	_, err := New(WithPrecision(format.Precision(16)))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestSet_PerTreeAttributes(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	idx, err := s.Add("(A,B);", map[string]string{"posterior": "0.87"})
	require.NoError(t, err)

	tree, err := s.Get(idx)
	require.NoError(t, err)
	require.Equal(t, "0.87", tree.Attributes()["posterior"])
}

func TestSet_UncompressedMatchesCompressed(t *testing.T) {
	inputs := []string{
		"((A,B),(C,D));",
		"((A:1,B:1):2,C:3);",
		"((A,B,C):1,D:1);",
	}

	cs, err := New(WithCompression(true))
	require.NoError(t, err)
	us, err := New(WithCompression(false))
	require.NoError(t, err)

	for _, in := range inputs {
		ct := mustAdd(t, cs, in)
		ut := mustAdd(t, us, in)
		require.Equal(t, newickOf(t, ct), newickOf(t, ut), "input %q", in)
		require.Equal(t, ct.Taxa(), ut.Taxa(), "input %q", in)
	}
}

func TestSet_CanonicalFormIdempotent(t *testing.T) {
	inputs := []string{
		"((A:1,B:1):2,C:3);",
		"(C:3,(B:1,A:1):2);", // sibling rotations normalise
		"((A,B),(C,D));",
		"((D,C),(B,A));",
		"((A,B,C):1,D:1);",
	}

	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	for _, in := range inputs {
		tree := mustAdd(t, s, in)
		once := newickOf(t, tree)

		again := mustAdd(t, s, once+";")
		require.Equal(t, once, newickOf(t, again), "input %q", in)
	}
}

func TestSet_SiblingOrderNormalises(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	t1 := mustAdd(t, s, "((A:1,B:1):2,C:3);")
	t2 := mustAdd(t, s, "(C:3,(B:1,A:1):2);")
	require.Equal(t, newickOf(t, t1), newickOf(t, t2))
}

func TestSet_TopologyOnlyStableUnderEncodeExpand(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	tree := mustAdd(t, s, "((A,B),(C,D));")
	topo, err := tree.Newick(-1, true, false)
	require.NoError(t, err)
	require.Equal(t, "((A,B),(C,D))", topo)

	again := mustAdd(t, s, topo+";")
	topo2, err := again.Newick(-1, true, false)
	require.NoError(t, err)
	require.Equal(t, topo, topo2)
}

func TestSet_NodeCountIdentity(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	for _, in := range []string{
		"(A,B);",
		"((A:1,B:1):2,C:3);",
		"(((A,B),(C,D)),(E,F));",
		"A;",
	} {
		idx, err := s.Add(in, nil)
		require.NoError(t, err)

		info, err := s.RepInfo(idx)
		require.NoError(t, err)
		tree, err := s.Get(idx)
		require.NoError(t, err)

		n := len(info.Taxa)
		require.Equal(t, n-1, len(info.Heights), "input %q", in)
		require.Equal(t, 2*n-1, tree.NumNodes(), "input %q", in)

		// tip taxa line up with the topology vector, in walk order
		labels := make([]string, 0, n)
		for _, id := range tree.Terminals() {
			node, err := tree.NodeAt(id)
			require.NoError(t, err)
			labels = append(labels, node.Taxon)
		}
		require.Equal(t, info.Taxa, labels, "input %q", in)
	}
}

func TestSet_HeightMaxRuleInvariant(t *testing.T) {
	s, err := New(WithPrecision(format.Precision64))
	require.NoError(t, err)

	for _, in := range []string{
		"((A:1,B:1):2,C:3);",
		"(A:1,B:2);",
		"((A:0.5,B:1.5):1,(C:2,D:0.25):0.5);",
		"((A,B,C):1,D:1);",
	} {
		tree := mustAdd(t, s, in)

		ids, err := tree.Postorder(-1, false)
		require.NoError(t, err)
		for _, id := range ids {
			v, err := tree.NodeAt(id)
			require.NoError(t, err)

			max := 0.0
			for i, son := range v.Sons {
				c, err := tree.NodeAt(son)
				require.NoError(t, err)
				require.NotNil(t, c.Branch)
				top := c.Height + *c.Branch
				if i == 0 || top > max {
					max = top
				}
			}
			require.InDelta(t, max, v.Height, 1e-9, "input %q node %d", in, id)
		}
	}
}

func TestSet_UniqueRoot(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	tree := mustAdd(t, s, "(((A,B),(C,D)),(E,F));")

	roots := 0
	for _, id := range tree.AllIDs() {
		n, err := tree.NodeAt(id)
		require.NoError(t, err)
		if n.Parent == -1 {
			roots++
			require.Equal(t, tree.RootID(), id)
		} else {
			// parent/child wiring is consistent
			p, err := tree.NodeAt(n.Parent)
			require.NoError(t, err)
			require.Contains(t, p.Sons, id)
		}
	}
	require.Equal(t, 1, roots)
}

func TestSet_Precision32RoundsHeights(t *testing.T) {
	s, err := New(WithPrecision(format.Precision32))
	require.NoError(t, err)

	idx, err := s.Add("(A:0.1,B:0.2);", nil)
	require.NoError(t, err)

	info, err := s.RepInfo(idx)
	require.NoError(t, err)
	require.Len(t, info.Heights, 1)
	require.InDelta(t, 0.2, info.Heights[0], 1e-6)
	require.Len(t, info.TipHeights, 2)
	require.InDelta(t, 0.1, info.TipHeights[0], 1e-6)
	require.InDelta(t, 0.0, info.TipHeights[1], 1e-6)
}
