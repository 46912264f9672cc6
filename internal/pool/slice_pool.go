package pool

import "sync"

// Slice pools for efficient reuse of typed slices.
// These back the transient height scratch of the trees encoder and the string
// stacks used when a tree renders NEWICK.
var (
	uint32SlicePool = sync.Pool{
		New: func() any { return &[]uint32{} },
	}
	float64SlicePool = sync.Pool{
		New: func() any { return &[]float64{} },
	}
	stringSlicePool = sync.Pool{
		New: func() any { return &[]string{} },
	}
)

// GetUint32Slice retrieves and resizes a uint32 slice from the pool.
//
// The returned slice has the exact length specified by size. The caller must
// call the returned cleanup function (typically with defer) to return the
// slice to the pool.
func GetUint32Slice(size int) ([]uint32, func()) {
	ptr, _ := uint32SlicePool.Get().(*[]uint32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]uint32, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { uint32SlicePool.Put(ptr) }
}

// GetFloat64Slice retrieves and resizes a float64 slice from the pool.
//
// The returned slice has the exact length specified by size. The caller must
// call the returned cleanup function (typically with defer) to return the
// slice to the pool.
func GetFloat64Slice(size int) ([]float64, func()) {
	ptr, _ := float64SlicePool.Get().(*[]float64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]float64, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { float64SlicePool.Put(ptr) }
}

// GetStringSlice retrieves a zero-length string slice with at least the given
// capacity from the pool.
//
// Unlike the numeric pools the slice comes back empty; callers append to it.
// The caller must call the returned cleanup function to return the slice to
// the pool.
func GetStringSlice(capacity int) ([]string, func()) {
	ptr, _ := stringSlicePool.Get().(*[]string)
	slice := (*ptr)[:0]

	if cap(slice) < capacity {
		slice = make([]string, 0, capacity)
		*ptr = slice
	}

	return slice, func() { stringSlicePool.Put(ptr) }
}
