package compress

import "github.com/klauspost/compress/s2"

// S2Compressor compresses retained tree sources with S2.
//
// S2 trades some ratio for speed against Zstd, which suits sets that add
// trees in bulk and rarely read sources back: compression sits on the Add
// path in store mode, so a cheap codec keeps ingest fast while still
// collapsing the long repeated label and digit runs of NEWICK text.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 compressor.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress compresses the input data using S2 compression.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress decompresses the input data using S2 decompression.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
