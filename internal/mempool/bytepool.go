// Package mempool keeps pixel buffers for reuse across requests. Streams of
// same-sized frames then stop allocating a fresh body buffer per request.
package mempool

import (
	"sync"
)

// step is the size class granularity.
const step = 4096

// pools maps a size class to its *sync.Pool.
var pools sync.Map

// sizeClass rounds n up to the next multiple of step.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]byte, cls)
		return &buf
	}})
	return pAny.(*sync.Pool)
}

// GetBytes returns a buffer of length n. Its contents are undefined.
// The caller hands it back with PutBytes once nothing references it.
func GetBytes(n int) []byte {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	bp, ok := poolFor(cls).Get().(*[]byte)
	if !ok || cap(*bp) < cls {
		buf := make([]byte, cls)
		return buf[:n]
	}
	return (*bp)[:n]
}

// PutBytes returns buf to its pool. Nil and foreign-sized slices are dropped.
func PutBytes(buf []byte) {
	if buf == nil || cap(buf)%step != 0 {
		return
	}
	buf = buf[:cap(buf)]
	poolFor(cap(buf)).Put(&buf)
}
