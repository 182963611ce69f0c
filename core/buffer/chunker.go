// Package buffer splits in-memory payloads into bounded pieces for transmission.
//
// A Chunker walks its source lazily: every Chunk aliases the source buffer and
// nothing beyond the current descriptor is materialized, so per-chunk memory
// stays bounded during a send even though the whole payload is held in memory.
// Designed for single-goroutine use; no locks.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"fmt"
	"iter"

	"github.com/momentics/hioload-xfer/api"
)

// ErrEmptyInput is returned when a zero-length buffer is handed to NewChunker.
var ErrEmptyInput = api.ErrEmptyInput

// ErrInvalidChunkSize is returned for a non-positive chunk size.
var ErrInvalidChunkSize = fmt.Errorf("chunk size must be positive: %w", api.ErrInvalidArgument)

// Chunk describes one piece of the source buffer.
type Chunk struct {
	Data      []byte // slice of the source buffer
	Size      int    // len(Data)
	Remaining int    // chunks still to come after this one
}

// Chunker produces the Chunks of a buffer in order, exactly once.
type Chunker struct {
	src       []byte
	size      int
	off       int
	total     int
	remaining int
}

// NewChunker prepares buf for transmission in pieces of at most size bytes.
// Callers must not pass an empty buffer.
func NewChunker(buf []byte, size int) (*Chunker, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if len(buf) == 0 {
		return nil, ErrEmptyInput
	}
	total := (len(buf) + size - 1) / size
	return &Chunker{
		src:       buf,
		size:      size,
		total:     total,
		remaining: total,
	}, nil
}

// Len returns the total number of chunks, ceil(len(buf)/size).
func (c *Chunker) Len() int {
	return c.total
}

// Remaining returns how many chunks have not been produced yet.
func (c *Chunker) Remaining() int {
	return c.remaining
}

// Next returns the next chunk, or false once the buffer is exhausted.
func (c *Chunker) Next() (Chunk, bool) {
	if c.remaining == 0 {
		return Chunk{}, false
	}
	end := min(c.off+c.size, len(c.src))
	data := c.src[c.off:end:end]
	c.off = end
	c.remaining--
	return Chunk{Data: data, Size: len(data), Remaining: c.remaining}, true
}

// All drains the chunker as a sequence. Ranging over it a second time
// yields nothing.
func (c *Chunker) All() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for {
			ch, ok := c.Next()
			if !ok || !yield(ch) {
				return
			}
		}
	}
}
