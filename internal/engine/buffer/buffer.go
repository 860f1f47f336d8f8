// Package buffer accumulates a session's audio chunks into a contiguous,
// offset-addressed byte sequence with bounded retention.
package buffer

import (
	"errors"
	"fmt"
	"sync"
)

// Errors for chunk validation and range reads.
var (
	ErrOutOfOrderChunk  = errors.New("chunk sequence number out of order")
	ErrRangeUnavailable = errors.New("requested range not buffered")
)

// Buffer holds one session's audio in arrival order. Offsets are absolute
// byte positions from the start of the stream and remain valid across
// eviction.
//
// Retention rule: once a completed window has consumed bytes up to some
// offset, everything older than that offset minus the retention span becomes
// eligible for eviction. This bounds memory to a small multiple of the
// window size regardless of session duration.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	base     int64 // absolute offset of data[0]
	end      int64 // absolute offset one past the last buffered byte
	nextSeq  uint64
	consumed int64 // highest offset consumed by a completed window
	retain   int64 // bytes kept behind the consumed mark
}

// New creates a buffer that retains at least retain bytes behind the
// highest consumed offset.
func New(retain int64) *Buffer {
	if retain < 0 {
		retain = 0
	}
	return &Buffer{retain: retain}
}

// Append validates the chunk's sequence number against the expected next
// value, then appends the bytes. Returns the new end offset. Out-of-order
// and duplicate sequence numbers are rejected, never silently applied.
func (b *Buffer) Append(seq uint64, chunk []byte) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.nextSeq {
		return b.end, fmt.Errorf("%w: got %d, want %d", ErrOutOfOrderChunk, seq, b.nextSeq)
	}
	b.nextSeq++
	b.data = append(b.data, chunk...)
	b.end += int64(len(chunk))
	return b.end, nil
}

// Read returns a copy of the bytes in [start, end). It fails with
// ErrRangeUnavailable if any part of the range was evicted or not yet
// written.
func (b *Buffer) Read(start, end int64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: invalid range [%d, %d)", ErrRangeUnavailable, start, end)
	}
	if start < b.base || end > b.end {
		return nil, fmt.Errorf("%w: [%d, %d) outside buffered [%d, %d)",
			ErrRangeUnavailable, start, end, b.base, b.end)
	}

	out := make([]byte, end-start)
	copy(out, b.data[start-b.base:end-b.base])
	return out, nil
}

// MarkConsumed records that a completed window covered bytes up to the
// given offset and evicts everything no longer retained.
func (b *Buffer) MarkConsumed(upTo int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if upTo > b.consumed {
		b.consumed = upTo
	}

	evictBefore := b.consumed - b.retain
	if evictBefore <= b.base {
		return
	}
	if evictBefore > b.end {
		evictBefore = b.end
	}
	b.data = b.data[evictBefore-b.base:]
	b.base = evictBefore
}

// End returns the offset one past the last buffered byte.
func (b *Buffer) End() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.end
}

// NextSeq returns the sequence number the next Append must carry.
func (b *Buffer) NextSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextSeq
}

// Buffered returns the number of bytes currently held in memory.
func (b *Buffer) Buffered() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data))
}
