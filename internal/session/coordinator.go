package session

import (
	"context"
	"sync"
	"time"

	"github.com/calebmoore/rewind/internal/capture"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/replay"
)

// Coordinator owns exactly one background session and one manual recorder.
// The host application holds the coordinator; there are no module-level
// session singletons. The two roles each own their own capture source and
// may run concurrently, but a second session of the same role is rejected.
type Coordinator struct {
	mu         sync.Mutex
	cfg        *config.Config
	background *Background
	manual     *Manual
}

// NewCoordinator wires both session roles with the same opener and clock.
func NewCoordinator(cfg *config.Config, opener capture.Opener, clock Clock) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		background: NewBackground(cfg, opener, clock),
		manual:     NewManual(cfg, opener, clock),
	}
}

// Background returns the rolling-buffer session.
func (c *Coordinator) Background() *Background { return c.background }

// Manual returns the manual recorder.
func (c *Coordinator) Manual() *Manual { return c.manual }

// StartBackground begins rolling capture.
func (c *Coordinator) StartBackground(ctx context.Context) error {
	return c.background.Start(ctx)
}

// StopBackground ends rolling capture and clears the buffer.
func (c *Coordinator) StopBackground() error {
	return c.background.Stop()
}

// CaptureWindow extracts the requested replay window from the background
// buffer.
func (c *Coordinator) CaptureWindow(req replay.Request) (*replay.Artifact, error) {
	return c.background.CaptureWindow(req)
}

// ClearBuffer drops the rolling buffer contents.
func (c *Coordinator) ClearBuffer() error {
	return c.background.ClearBuffer()
}

// SetWindowMinutes changes the retention window. This is the one
// configuration field that may change while a session is active; shrinking
// takes effect immediately.
func (c *Coordinator) SetWindowMinutes(minutes int) error {
	valid := false
	for _, tier := range config.WindowTiers {
		if minutes == tier {
			valid = true
			break
		}
	}
	if !valid {
		return errors.NewInvalidRequest("window_minutes must be one of 1, 3, 5")
	}

	c.mu.Lock()
	c.cfg.WindowMinutes = minutes
	c.mu.Unlock()

	return c.background.SetWindow(time.Duration(minutes) * time.Minute)
}

// StartRecording begins a manual recording. Permitted while the background
// session is active; each role owns its own source.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	return c.manual.Start(ctx)
}

// StopRecording finalizes the manual recording into one artifact.
func (c *Coordinator) StopRecording() (*replay.Artifact, error) {
	return c.manual.Stop()
}

// PauseRecording suspends the manual recorder's source.
func (c *Coordinator) PauseRecording() error {
	return c.manual.Pause()
}

// ResumeRecording continues a paused manual recording.
func (c *Coordinator) ResumeRecording() error {
	return c.manual.Resume()
}

// CombinedSnapshot is the observable state of both roles.
type CombinedSnapshot struct {
	Background Snapshot `json:"background"`
	Manual     Snapshot `json:"manual"`
}

// Status returns both roles' observable state.
func (c *Coordinator) Status() CombinedSnapshot {
	return CombinedSnapshot{
		Background: c.background.Status(),
		Manual:     c.manual.Status(),
	}
}
