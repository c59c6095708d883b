package segment

import (
	"sort"
	"time"
)

// Buffer is the bounded, continuously evicting store of live segments.
// Segments are held in sequence order. Buffer is not safe for concurrent
// use; the owning session serializes all access on its run loop.
type Buffer struct {
	segments []Segment
	nextSeq  uint64
}

// NewBuffer returns an empty buffer with the sequence counter at zero.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append ingests one chunk, assigning the next sequence number. Zero-size
// chunks are discarded and the second return value is false. The payload is
// copied so the caller may reuse its slice.
func (b *Buffer) Append(data []byte, now time.Time) (uint64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	seq := b.nextSeq
	b.nextSeq++
	payload := make([]byte, len(data))
	copy(payload, data)
	b.segments = append(b.segments, Segment{
		Data:      payload,
		Timestamp: now,
		Sequence:  seq,
	})
	return seq, true
}

// Evict removes every segment that is no longer live at now for the given
// window, preserving the order of survivors. It returns the number of
// segments removed. Calling it twice with the same now removes nothing the
// second time.
func (b *Buffer) Evict(now time.Time, window time.Duration) int {
	kept := b.segments[:0]
	for _, seg := range b.segments {
		if IsLive(seg, now, window) {
			kept = append(kept, seg)
		}
	}
	removed := len(b.segments) - len(kept)
	// Release evicted payloads for reclamation.
	for i := len(kept); i < len(b.segments); i++ {
		b.segments[i] = Segment{}
	}
	b.segments = kept
	return removed
}

// Extract returns all segments satisfying keep, ordered by sequence
// ascending. A nil keep selects everything. The returned slice is a copy of
// the headers; payloads are shared read-only with the buffer.
func (b *Buffer) Extract(keep func(Segment) bool) []Segment {
	out := make([]Segment, 0, len(b.segments))
	for _, seg := range b.segments {
		if keep == nil || keep(seg) {
			out = append(out, seg)
		}
	}
	// The store is already sequence-ordered, but the assembly contract
	// depends on it, so sort rather than trust the storage layout.
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Clear drops all segments and resets the sequence counter to zero.
func (b *Buffer) Clear() {
	b.segments = nil
	b.nextSeq = 0
}

// Size returns the current live segment count. Observability only; never
// used for correctness decisions.
func (b *Buffer) Size() int {
	return len(b.segments)
}

// TotalBytes returns the summed payload size of all live segments.
func (b *Buffer) TotalBytes() int64 {
	var n int64
	for _, seg := range b.segments {
		n += int64(len(seg.Data))
	}
	return n
}

// Oldest returns the lowest-sequence live segment, or false when empty.
func (b *Buffer) Oldest() (Segment, bool) {
	if len(b.segments) == 0 {
		return Segment{}, false
	}
	return b.segments[0], true
}
