package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/segment"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func fillBuffer(tb testing.TB, count int, step time.Duration) *segment.Buffer {
	tb.Helper()
	b := segment.NewBuffer()
	for i := 0; i < count; i++ {
		if _, ok := b.Append([]byte{byte('a' + i)}, t0.Add(time.Duration(i)*step)); !ok {
			tb.Fatalf("Append %d failed", i)
		}
	}
	return b
}

func TestAssemble_ConcatenatesInSequenceOrder(t *testing.T) {
	// Deliberately out of order: assembly must re-sort by sequence.
	segs := []segment.Segment{
		{Data: []byte("c"), Sequence: 2, Timestamp: t0.Add(2 * time.Second)},
		{Data: []byte("a"), Sequence: 0, Timestamp: t0},
		{Data: []byte("b"), Sequence: 1, Timestamp: t0.Add(time.Second)},
	}

	art := Assemble(segs, "video/webm", t0.Add(3*time.Second))

	if string(art.Data) != "abc" {
		t.Errorf("Data = %q, want %q", art.Data, "abc")
	}
	if art.ByteSize != 3 || art.SegmentCount != 3 {
		t.Errorf("ByteSize/SegmentCount = %d/%d, want 3/3", art.ByteSize, art.SegmentCount)
	}
	if art.Span != 2*time.Second {
		t.Errorf("Span = %v, want 2s", art.Span)
	}
	if art.ID == "" {
		t.Error("ID should be assigned")
	}
}

func TestAssemble_Empty(t *testing.T) {
	art := Assemble(nil, "video/webm", t0)
	if art.ByteSize != 0 || art.SegmentCount != 0 || art.Span != 0 {
		t.Errorf("empty assembly = %d bytes, %d segments, span %v", art.ByteSize, art.SegmentCount, art.Span)
	}
}

func TestArtifact_Filename(t *testing.T) {
	art := &Artifact{MIMEType: "video/webm", CreatedAt: t0}

	name := art.Filename()
	if !strings.HasPrefix(name, "screen-recording-2026-08-01T12-00-00Z") {
		t.Errorf("Filename = %q, want screen-recording-<timestamp> prefix", name)
	}
	if !strings.HasSuffix(name, ".webm") {
		t.Errorf("Filename = %q, want .webm suffix", name)
	}
	if strings.ContainsRune(name, ':') {
		t.Errorf("Filename %q contains a colon", name)
	}
}

func TestCaptureWindow_All(t *testing.T) {
	b := fillBuffer(t, 3, time.Second)

	art, err := CaptureWindow(b, All(), time.Minute, "video/webm", t0.Add(3*time.Second))
	if err != nil {
		t.Fatalf("CaptureWindow failed: %v", err)
	}
	if string(art.Data) != "abc" {
		t.Errorf("Data = %q, want all three segments in order", art.Data)
	}
}

func TestCaptureWindow_EmptyBuffer(t *testing.T) {
	b := segment.NewBuffer()

	_, err := CaptureWindow(b, All(), time.Minute, "video/webm", t0)
	if !errors.Is(err, errors.ErrEmptyBuffer) {
		t.Errorf("err = %v, want EMPTY_BUFFER", err)
	}
}

func TestCaptureWindow_InsufficientWindowIsDistinct(t *testing.T) {
	b := segment.NewBuffer()
	b.Append([]byte("old"), t0)

	// Buffer is non-empty but holds nothing in the last second.
	now := t0.Add(30 * time.Second)
	_, err := CaptureWindow(b, Last(time.Second), time.Minute, "video/webm", now)
	if !errors.Is(err, errors.ErrInsufficientWindow) {
		t.Errorf("err = %v, want INSUFFICIENT_WINDOW", err)
	}
	if errors.Is(err, errors.ErrEmptyBuffer) {
		t.Error("INSUFFICIENT_WINDOW must not be reported as EMPTY_BUFFER")
	}
}

func TestCaptureWindow_ForcesEviction(t *testing.T) {
	// seq 0..4 at t=0..4s, retention 2s, now 4.5s: eviction leaves seq 3,4.
	b := fillBuffer(t, 5, time.Second)
	now := t0.Add(4500 * time.Millisecond)

	art, err := CaptureWindow(b, All(), 2*time.Second, "video/webm", now)
	if err != nil {
		t.Fatalf("CaptureWindow failed: %v", err)
	}
	if art.SegmentCount != 2 {
		t.Fatalf("SegmentCount = %d, want 2 (stale segments must be evicted at call time)", art.SegmentCount)
	}
	if string(art.Data) != "de" {
		t.Errorf("Data = %q, want %q (seq 3,4 in order)", art.Data, "de")
	}
	if b.Size() != 2 {
		t.Errorf("buffer size = %d after forced eviction, want 2", b.Size())
	}
}

func TestCaptureWindow_DurationCutoff(t *testing.T) {
	b := fillBuffer(t, 10, time.Second)
	now := t0.Add(9 * time.Second)

	art, err := CaptureWindow(b, Last(3*time.Second), time.Minute, "video/webm", now)
	if err != nil {
		t.Fatalf("CaptureWindow failed: %v", err)
	}
	// Cutoff at t=6s inclusive: segments at 6,7,8,9s.
	if art.SegmentCount != 4 {
		t.Errorf("SegmentCount = %d, want 4", art.SegmentCount)
	}
	if string(art.Data) != "ghij" {
		t.Errorf("Data = %q, want %q", art.Data, "ghij")
	}
}

func TestAvailableWindows(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		b := segment.NewBuffer()
		if got := AvailableWindows(b, t0); got != nil {
			t.Errorf("AvailableWindows = %v, want nil", got)
		}
	})

	t.Run("shallow buffer offers nothing", func(t *testing.T) {
		b := segment.NewBuffer()
		b.Append([]byte("a"), t0)
		if got := AvailableWindows(b, t0.Add(30*time.Second)); got != nil {
			t.Errorf("AvailableWindows = %v, want nil for 30s of data", got)
		}
	})

	t.Run("slack admits a near-full tier", func(t *testing.T) {
		b := segment.NewBuffer()
		b.Append([]byte("a"), t0)
		// 55s of data: >= 90% of the 1 minute tier.
		got := AvailableWindows(b, t0.Add(55*time.Second))
		if len(got) != 1 || got[0] != 1 {
			t.Errorf("AvailableWindows = %v, want [1]", got)
		}
	})

	t.Run("deep buffer offers all tiers", func(t *testing.T) {
		b := segment.NewBuffer()
		b.Append([]byte("a"), t0)
		got := AvailableWindows(b, t0.Add(5*time.Minute))
		want := []int{1, 3, 5}
		if len(got) != len(want) {
			t.Fatalf("AvailableWindows = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("AvailableWindows[%d] = %d, want %d", i, got[i], want[i])
			}
		}
	})
}
