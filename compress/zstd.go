package compress

// ZstdCompressor provides Zstandard compression for retained tree sources.
//
// Zstd is the store-mode default: NEWICK text compresses 5:1 to 20:1 under it,
// and decompression cost is paid only on the diagnostic SourceAt path.
//
// The default implementation is pure Go (klauspost/compress/zstd). Building
// with the cgo_zstd tag swaps in valyala/gozstd for the faster C library.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
