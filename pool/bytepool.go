// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool recycles receive buffers of one fixed length. Buffers are kept
// as *[]byte so Put does not allocate.
type BytePool struct {
	bufs sync.Pool
	size int
}

// NewBytePool returns a pool of size-byte buffers. size must be positive.
func NewBytePool(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.bufs.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return bp
}

// Size is the length of every buffer handed out.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of exactly Size bytes. Contents are undefined.
func (b *BytePool) GetBuffer() []byte {
	return (*b.bufs.Get().(*[]byte))[:b.size]
}

// PutBuffer returns a buffer to the pool. Buffers of another capacity, and
// nil, are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	buf = buf[:b.size]
	b.bufs.Put(&buf)
}
