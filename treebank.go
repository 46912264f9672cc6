// Package treebank stores large collections of phylogenetic trees in a
// compact, queryable in-memory representation.
//
// Treebank is optimized for scenarios with many thousands of trees over a
// shared taxon universe (e.g. posterior samples from a Bayesian run), where a
// naive object graph per tree would dominate memory. Each tree collapses to
// its left-to-right tip sequence plus the heights of adjacent-tip ancestors,
// bit-packed when profitable, and expands back into a fully navigable node
// array on demand.
//
// # Core Features
//
//   - NEWICK parsing with BEAST-style [&key=value] annotations and comments
//   - Canonical topology-plus-heights encoding, cladogram or phylogram
//   - Per-tree-optimal fixed-width bit packing of integer vectors
//   - Lazy per-handle expansion with parent/child navigation
//   - Canonical NEWICK output (sibling order normalised)
//   - Branch editing with cascading height adjustment
//   - Diagnostic store mode retaining parses and compressed source text
//
// # Basic Usage
//
// Creating a set and adding trees:
//
//	import "github.com/arloliu/treebank"
//
//	set, _ := treebank.New()
//	idx, err := set.Add("((A:1,B:1):2,C:3);", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tree, _ := set.Get(idx)
//	fmt.Println(tree.Taxa())      // [A B C]
//	out, _ := tree.Newick(-1, false, false)
//	fmt.Println(out)              // ((A:1.0,B:1.0):2.0,C:3.0)
//
// Walking a tree:
//
//	ids, _ := tree.Postorder(-1, true)
//	for _, id := range ids {
//	    node, _ := tree.NodeAt(id)
//	    fmt.Println(node.Taxon, node.Height)
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the trees
// package, simplifying the most common use cases. For fine-grained control
// (precision, compression, store mode) use the trees package options
// directly.
package treebank

import (
	"github.com/arloliu/treebank/internal/hash"
	"github.com/arloliu/treebank/newick"
	"github.com/arloliu/treebank/trees"
)

// New creates a tree set with the given options.
//
// Defaults: bit-packed storage enabled, 32-bit phylogram heights, store mode
// off. See trees.WithCompression, trees.WithPrecision, trees.WithStore and
// trees.WithSourceCompression for the available options.
//
// Example:
//
//	set, err := treebank.New(
//	    trees.WithPrecision(format.Precision64),
//	    trees.WithCompression(false),
//	)
func New(opts ...trees.Option) (*trees.Set, error) {
	return trees.New(opts...)
}

// NewCompact creates a tree set with bit-packed storage explicitly enabled,
// regardless of what other options request.
//
// Functionally this pins trees.WithCompression(true) after the caller's
// options, so it stays compact even when combined with option sets that
// disable packing elsewhere. Use it for large posterior samples where memory
// is the constraint and per-access decode cost is acceptable.
func NewCompact(opts ...trees.Option) (*trees.Set, error) {
	allOpts := append(opts, trees.WithCompression(true))
	return trees.New(allOpts...)
}

// NewDiagnostic creates a tree set in store mode: the original parsed node
// lists and compressed source text are retained, and expansion bypasses the
// encoder. Use it to inspect how inputs parse, or to compare encoder output
// against the raw parse.
func NewDiagnostic(opts ...trees.Option) (*trees.Set, error) {
	allOpts := append(opts, trees.WithStore(true))
	return trees.New(allOpts...)
}

// ParseTree parses a single NEWICK tree and returns the raw node list in
// post-order (children before parents, root last).
//
// This is the debugging surface of the parser; most callers should use
// Set.Add instead. Errors are *errs.ParseError values carrying the byte
// offset of the failure.
func ParseTree(text string) ([]newick.Node, error) {
	return newick.Parse(text)
}

// LabelID converts a taxon label to its 64-bit xxHash64 identifier.
//
// Unlike the dense per-set TaxonID, this hash is stable across sets and
// processes, which makes it useful as a key when correlating taxa between
// independently built sets.
func LabelID(label string) uint64 {
	return hash.ID(label)
}
