package replay

import (
	"time"

	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/segment"
)

// tierSlack is the fraction of a tier's duration the buffer must actually
// span before that tier is offered. Requiring 90% keeps a tier from being
// offered and immediately declining with INSUFFICIENT_WINDOW.
const tierSlack = 0.9

// Request selects how much of the buffer to extract.
type Request struct {
	All      bool
	Duration time.Duration
}

// All requests every live segment.
func All() Request {
	return Request{All: true}
}

// Last requests the segments captured within the trailing duration.
func Last(d time.Duration) Request {
	return Request{Duration: d}
}

func (r Request) String() string {
	if r.All {
		return "all"
	}
	return r.Duration.String()
}

// CaptureWindow extracts the requested window from the buffer into one
// artifact. It forces an eviction pass first so extraction always reflects
// current retention, never the state of the last sweep. Declines are
// ordinary error values: EMPTY_BUFFER when nothing is live,
// INSUFFICIENT_WINDOW when data exists but none recent enough.
func CaptureWindow(buf *segment.Buffer, req Request, retention time.Duration, mime string, now time.Time) (*Artifact, error) {
	buf.Evict(now, retention)

	if buf.Size() == 0 {
		return nil, errors.NewEmptyBuffer()
	}

	var eligible []segment.Segment
	if req.All {
		eligible = buf.Extract(nil)
	} else {
		cutoff := now.Add(-req.Duration)
		eligible = buf.Extract(func(s segment.Segment) bool {
			return !s.Timestamp.Before(cutoff)
		})
		if len(eligible) == 0 {
			return nil, errors.NewInsufficientWindow(req.String())
		}
	}

	return Assemble(eligible, mime, now), nil
}

// AvailableWindows returns the configured duration tiers, in minutes, that
// the buffer currently spans (with slack). Observability only; CaptureWindow
// still re-checks at extraction time.
func AvailableWindows(buf *segment.Buffer, now time.Time) []int {
	oldest, ok := buf.Oldest()
	if !ok {
		return nil
	}

	span := now.Sub(oldest.Timestamp)
	tiers := make([]int, 0, len(config.WindowTiers))
	for _, tier := range config.WindowTiers {
		need := time.Duration(float64(tier) * tierSlack * float64(time.Minute))
		if span >= need {
			tiers = append(tiers, tier)
		}
	}
	if len(tiers) == 0 {
		return nil
	}
	return tiers
}
