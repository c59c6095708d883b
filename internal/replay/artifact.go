// Package replay assembles contiguous artifacts from live buffer segments
// and decides which replay windows the buffer can currently serve.
package replay

import (
	"crypto/rand"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/calebmoore/rewind/internal/capture"
	"github.com/calebmoore/rewind/internal/segment"
)

// Artifact is the final assembled binary output offered for playback or
// download. At most one extracted artifact is retained by a session at a
// time; replacing it releases the previous payload.
type Artifact struct {
	ID           string        `json:"id"`
	Data         []byte        `json:"-"`
	MIMEType     string        `json:"mime_type"`
	ByteSize     int64         `json:"byte_size"`
	SegmentCount int           `json:"segment_count"`
	Span         time.Duration `json:"span"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Filename returns the default download name,
// screen-recording-<ISO8601 timestamp>.<ext>. Colons are avoided so the
// name is valid on every filesystem.
func (a *Artifact) Filename() string {
	stamp := a.CreatedAt.UTC().Format("2006-01-02T15-04-05Z")
	return fmt.Sprintf("screen-recording-%s.%s", stamp, capture.ExtensionForMIME(a.MIMEType))
}

// Assemble concatenates segment payloads in sequence order into a single
// artifact. The input is re-sorted by sequence even though the buffer
// already returns it ordered; assembly order is the one contract that must
// never depend on the caller behaving.
func Assemble(segs []segment.Segment, mime string, now time.Time) *Artifact {
	ordered := make([]segment.Segment, len(segs))
	copy(ordered, segs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	var total int64
	for _, seg := range ordered {
		total += int64(len(seg.Data))
	}

	data := make([]byte, 0, total)
	for _, seg := range ordered {
		data = append(data, seg.Data...)
	}

	var span time.Duration
	if len(ordered) > 0 {
		span = ordered[len(ordered)-1].Timestamp.Sub(ordered[0].Timestamp)
	}

	return &Artifact{
		ID:           ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Data:         data,
		MIMEType:     mime,
		ByteSize:     total,
		SegmentCount: len(ordered),
		Span:         span,
		CreatedAt:    now,
	}
}
