package segment

import "time"

// Segment is one timestamped, sequenced binary chunk emitted by a capture
// source. Segments are immutable after ingestion; Sequence is the definitive
// ordering key (timestamps may tie at sub-millisecond granularity).
type Segment struct {
	Data      []byte
	Timestamp time.Time
	Sequence  uint64
}

// IsLive reports whether a segment is still inside the retention window at
// the given instant. A segment exactly at the window boundary is live.
func IsLive(seg Segment, now time.Time, window time.Duration) bool {
	return now.Sub(seg.Timestamp) <= window
}
