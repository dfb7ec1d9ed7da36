// Package pool provides bucketed sync.Pool buffers for per-frame pixel
// planes, keeping steady-state video processing allocation-free. Buffers
// are organized by size class to minimize waste.
package pool

import "sync"

// Size classes chosen around common video plane sizes (QVGA chroma up
// to 4K luma).
const (
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1 << 20
	Size4M   = 1 << 22
	Size16M  = 1 << 24
)

var sizes = [6]int{Size16K, Size64K, Size256K, Size1M, Size4M, Size16M}

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	for i, s := range sizes {
		if size <= s {
			return i
		}
	}
	return len(sizes) - 1
}

var pools [6]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

// Get returns a byte slice of exactly the requested length from the
// pool, with possibly larger capacity. The caller must call Put when
// done with it.
func Get(size int) []byte {
	bp := pools[bucketIndex(size)].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// Put returns a slice obtained from Get to its pool. Slices below the
// smallest size class are dropped.
func Put(b []byte) {
	c := cap(b)
	if c < Size16K {
		return
	}
	b = b[:c]
	pools[bucketIndex(c)].Put(&b)
}
