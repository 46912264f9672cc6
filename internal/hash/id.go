package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Digest creates a streaming xxHash64 digest for fingerprinting multi-part
// payloads without concatenating them first.
func Digest() *xxhash.Digest {
	return xxhash.New()
}
