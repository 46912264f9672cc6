package trees

import (
	"fmt"

	"github.com/arloliu/treebank/compress"
	"github.com/arloliu/treebank/errs"
	"github.com/arloliu/treebank/format"
	"github.com/arloliu/treebank/internal/options"
	"github.com/arloliu/treebank/newick"
)

// config holds the construction-time settings of a Set.
type config struct {
	compressed        bool
	precision         format.Precision
	store             bool
	sourceCompression format.Compression
}

// Option configures a Set at construction time.
type Option = options.Option[*config]

// WithCompression toggles bit-packed storage for topology vectors and
// cladogram heights. Enabled by default; disable to trade memory for faster
// reads.
func WithCompression(enabled bool) Option {
	return options.NoError(func(c *config) {
		c.compressed = enabled
	})
}

// WithPrecision selects the storage width of phylogram heights:
// format.Precision32 (default) or format.Precision64.
func WithPrecision(p format.Precision) Option {
	return options.New(func(c *config) error {
		if p != format.Precision32 && p != format.Precision64 {
			return fmt.Errorf("%w: precision %d (want 32 or 64)", errs.ErrInvalidArgument, p)
		}
		c.precision = p

		return nil
	})
}

// WithStore switches the set to diagnostic store mode: the original parsed
// node lists (and compressed source text) are retained, and Get expands
// directly from them, bypassing the encoder.
func WithStore(enabled bool) Option {
	return options.NoError(func(c *config) {
		c.store = enabled
	})
}

// WithSourceCompression selects the codec for retained source text in store
// mode. The default is Zstd.
func WithSourceCompression(c format.Compression) Option {
	return options.New(func(cfg *config) error {
		if _, err := compress.GetCodec(c); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
		}
		cfg.sourceCompression = c

		return nil
	})
}

// Set holds a collection of trees over a shared taxon universe.
//
// Add is the only mutating method; everything appended is write-once. A Set
// is single-threaded: no method suspends, and no locking is performed.
type Set struct {
	cfg   config
	taxa  *TaxonTable
	codec compress.Codec

	reps      []Rep
	parsed    [][]newick.Node // store mode only
	sources   [][]byte        // store mode only, compressed
	treeAttrs []map[string]string
}

// New creates an empty Set.
//
// Defaults: compression on, 32-bit phylogram heights, store mode off, Zstd
// for retained sources.
func New(opts ...Option) (*Set, error) {
	cfg := config{
		compressed:        true,
		precision:         format.Precision32,
		store:             false,
		sourceCompression: format.CompressionZstd,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(cfg.sourceCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}

	return &Set{
		cfg:   cfg,
		taxa:  NewTaxonTable(),
		codec: codec,
	}, nil
}

// Add parses one NEWICK tree and appends it to the set, returning its index.
//
// attrs is an optional per-tree attribute bag retained verbatim. A parse
// error leaves the set unchanged, including the taxon table.
func (s *Set) Add(text string, attrs map[string]string) (int, error) {
	nodes, err := newick.Parse(text)
	if err != nil {
		return -1, err
	}

	if s.cfg.store {
		src, err := s.codec.Compress([]byte(text))
		if err != nil {
			return -1, fmt.Errorf("%w: compressing retained source: %v", errs.ErrInternal, err)
		}

		for i := range nodes {
			if len(nodes[i].Sons) == 0 {
				s.taxa.Intern(nodes[i].Taxon)
			}
		}

		s.parsed = append(s.parsed, nodes)
		s.sources = append(s.sources, src)
		s.treeAttrs = append(s.treeAttrs, attrs)

		return len(s.parsed) - 1, nil
	}

	rep, err := s.buildRep(nodes)
	if err != nil {
		return -1, err
	}

	s.reps = append(s.reps, rep)
	s.treeAttrs = append(s.treeAttrs, attrs)

	return len(s.reps) - 1, nil
}

// Len returns the number of trees in the set.
func (s *Set) Len() int {
	if s.cfg.store {
		return len(s.parsed)
	}

	return len(s.reps)
}

// Get returns a handle on tree i. The handle owns its lazy expansion cache,
// so handles on the same tree never interfere.
func (s *Set) Get(i int) (*Tree, error) {
	if i < 0 || i >= s.Len() {
		return nil, fmt.Errorf("%w: tree %d of %d", errs.ErrRange, i, s.Len())
	}

	return &Tree{set: s, index: i, attrs: s.treeAttrs[i]}, nil
}

// NumTaxa returns the number of distinct taxon labels seen across all trees.
func (s *Set) NumTaxa() int {
	return s.taxa.Len()
}

// TaxonName returns the label of a taxon id.
func (s *Set) TaxonName(id TaxonID) (string, error) {
	if int(id) >= s.taxa.Len() {
		return "", fmt.Errorf("%w: taxon %d of %d", errs.ErrRange, id, s.taxa.Len())
	}

	return s.taxa.Name(id), nil
}

// RepAt returns the compact representation of tree i. Not available in store
// mode, which bypasses the encoder.
func (s *Set) RepAt(i int) (Rep, error) {
	if s.cfg.store {
		return nil, fmt.Errorf("%w: store mode retains parses, not reps", errs.ErrInvalidArgument)
	}
	if i < 0 || i >= len(s.reps) {
		return nil, fmt.Errorf("%w: tree %d of %d", errs.ErrRange, i, len(s.reps))
	}

	return s.reps[i], nil
}

// RepInfo is the diagnostic view of one compact tree.
type RepInfo struct {
	Kind       format.Kind
	Taxa       []string     // labels along the topology vector
	Heights    []float64    // LCA heights of adjacent tip pairs
	TipHeights []float64    // nil when all tips sit at the base level
	Attributes []Attributes // nil when no node carries annotations
}

// RepInfo returns the unpacked internals of tree i for inspection. Not
// available in store mode; use ParsedAt there.
func (s *Set) RepInfo(i int) (*RepInfo, error) {
	rep, err := s.RepAt(i)
	if err != nil {
		return nil, err
	}

	topo, _ := rep.Topology()
	labels := make([]string, len(topo))
	for k, id := range topo {
		labels[k] = s.taxa.Name(id)
	}

	hs, txhs := rep.heightsInto()

	return &RepInfo{
		Kind:       rep.Kind(),
		Taxa:       labels,
		Heights:    hs,
		TipHeights: txhs,
		Attributes: rep.Attributes(),
	}, nil
}

// ParsedAt returns the retained parse of tree i. Only available in store
// mode.
func (s *Set) ParsedAt(i int) ([]newick.Node, error) {
	if !s.cfg.store {
		return nil, fmt.Errorf("%w: parses are only retained in store mode", errs.ErrInvalidArgument)
	}
	if i < 0 || i >= len(s.parsed) {
		return nil, fmt.Errorf("%w: tree %d of %d", errs.ErrRange, i, len(s.parsed))
	}

	return s.parsed[i], nil
}

// SourceAt returns the original NEWICK text of tree i. Only available in
// store mode, where sources are retained compressed.
func (s *Set) SourceAt(i int) (string, error) {
	if !s.cfg.store {
		return "", fmt.Errorf("%w: sources are only retained in store mode", errs.ErrInvalidArgument)
	}
	if i < 0 || i >= len(s.sources) {
		return "", fmt.Errorf("%w: tree %d of %d", errs.ErrRange, i, len(s.sources))
	}

	src, err := s.codec.Decompress(s.sources[i])
	if err != nil {
		return "", fmt.Errorf("%w: decompressing retained source: %v", errs.ErrInternal, err)
	}

	return string(src), nil
}

// topologyOf returns the taxon ids along the tip walk of tree i.
func (s *Set) topologyOf(i int) ([]TaxonID, bool) {
	if s.cfg.store {
		nodes := s.parsed[i]
		var topo []TaxonID
		for k := range nodes {
			if len(nodes[k].Sons) == 0 {
				id, _ := s.taxa.Lookup(nodes[k].Taxon)
				topo = append(topo, id)
			}
		}

		return topo, true
	}

	return s.reps[i].Topology()
}

// expandTree builds the navigable node array of tree i.
func (s *Set) expandTree(i int) *Expanded {
	if !s.cfg.store {
		return expandRep(s.reps[i])
	}

	nodes := s.parsed[i]
	cladogram := true
	for k := range nodes {
		if nodes[k].Branch != nil {
			cladogram = false
			break
		}
	}

	views := make([]parsedNodeView, len(nodes))
	for k := range nodes {
		n := &nodes[k]
		taxon := -1
		if len(n.Sons) == 0 {
			id, _ := s.taxa.Lookup(n.Taxon)
			taxon = int(id)
		}
		views[k] = parsedNodeView{
			taxon:  taxon,
			branch: n.Branch,
			sons:   n.Sons,
			attrs:  n.Attributes,
		}
	}

	return expandParsed(views, cladogram)
}
