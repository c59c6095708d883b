package session

import (
	"context"
	"testing"

	"github.com/calebmoore/rewind/internal/capture"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/replay"
)

func newCoordinatorForTest(t *testing.T) (*Coordinator, *FakeClock) {
	t.Helper()
	clock := NewFakeClock(t0)
	opener := func(ctx context.Context, opts *capture.Options) (capture.Source, error) {
		return capture.NewScriptedSource(), nil
	}
	return NewCoordinator(config.DefaultConfig(), opener, clock), clock
}

func TestCoordinator_RolesRunConcurrently(t *testing.T) {
	c, _ := newCoordinatorForTest(t)

	if err := c.StartBackground(context.Background()); err != nil {
		t.Fatalf("StartBackground failed: %v", err)
	}
	defer c.StopBackground()

	// Each role owns its own source; a manual recording alongside the
	// rolling buffer is allowed.
	if err := c.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}

	snap := c.Status()
	if snap.Background.State != StateActive {
		t.Errorf("background state = %q, want active", snap.Background.State)
	}
	if snap.Manual.State != StateRecording {
		t.Errorf("manual state = %q, want recording", snap.Manual.State)
	}

	if _, err := c.StopRecording(); !errors.Is(err, errors.ErrEmptyBuffer) {
		t.Errorf("StopRecording err = %v, want EMPTY_BUFFER for silent source", err)
	}
}

func TestCoordinator_SameRoleRejected(t *testing.T) {
	c, _ := newCoordinatorForTest(t)

	if err := c.StartBackground(context.Background()); err != nil {
		t.Fatalf("StartBackground failed: %v", err)
	}
	defer c.StopBackground()

	if err := c.StartBackground(context.Background()); !errors.Is(err, errors.ErrSessionActive) {
		t.Errorf("second StartBackground err = %v, want SESSION_ACTIVE", err)
	}
}

func TestCoordinator_SetWindowMinutes(t *testing.T) {
	c, _ := newCoordinatorForTest(t)

	for _, minutes := range config.WindowTiers {
		if err := c.SetWindowMinutes(minutes); err != nil {
			t.Errorf("SetWindowMinutes(%d) failed: %v", minutes, err)
		}
	}
	for _, minutes := range []int{0, -1, 2, 10} {
		if err := c.SetWindowMinutes(minutes); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("SetWindowMinutes(%d) err = %v, want INVALID_REQUEST", minutes, err)
		}
	}
}

func TestCoordinator_CaptureWindowIdle(t *testing.T) {
	c, _ := newCoordinatorForTest(t)

	if _, err := c.CaptureWindow(replay.All()); !errors.Is(err, errors.ErrEmptyBuffer) {
		t.Errorf("CaptureWindow err = %v, want EMPTY_BUFFER", err)
	}
}
