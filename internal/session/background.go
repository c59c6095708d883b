package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/calebmoore/rewind/internal/capture"
	"github.com/calebmoore/rewind/internal/config"
	"github.com/calebmoore/rewind/internal/errors"
	"github.com/calebmoore/rewind/internal/replay"
	"github.com/calebmoore/rewind/internal/segment"
)

type bgCmdKind int

const (
	bgExtract bgCmdKind = iota
	bgSetWindow
	bgClear
	bgStop
)

type bgCommand struct {
	kind   bgCmdKind
	req    replay.Request
	window time.Duration
	reply  chan bgResult
}

type bgResult struct {
	artifact *replay.Artifact
	err      error
}

// Background is the rolling-buffer capture session. While active, a run
// loop goroutine owns the buffer: it appends incoming chunks, sweeps
// retention every second, and serves extraction requests, one mutation at a
// time.
type Background struct {
	opener capture.Opener
	clock  Clock
	opts   *capture.Options

	mu           sync.Mutex
	state        State
	lastErr      *errors.RewindError
	startedAt    time.Time
	window       time.Duration
	mime         string
	segCount     int
	segBytes     int64
	tiers        []int
	lastArtifact *replay.Artifact
	cmds         chan bgCommand
	loopDone     chan struct{}
}

// NewBackground creates an idle background session. The opener and clock
// are injected so tests can script the source and simulate ticks.
func NewBackground(cfg *config.Config, opener capture.Opener, clock Clock) *Background {
	return &Background{
		opener: opener,
		clock:  clock,
		opts:   capture.OptionsFromConfig(cfg),
		state:  StateIdle,
		window: cfg.Window(),
	}
}

// Start acquires the capture source and begins buffering. Starting while
// already active is rejected and leaves the running session untouched. An
// acquisition failure moves the session to errored; the user may retry.
func (s *Background) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateErrored:
	default:
		s.mu.Unlock()
		return errors.NewSessionActive(RoleBackground)
	}
	s.state = StateStarting
	opts := s.opts
	s.mu.Unlock()

	norm, warn := capture.Normalize(opts)
	if warn != nil {
		log.Printf("rewind: %s", warn.Message)
	}

	src, err := s.opener(ctx, norm)
	if err != nil {
		s.mu.Lock()
		s.state = StateErrored
		s.lastErr = toRewindError(err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateActive
	s.startedAt = s.clock.Now()
	s.mime = norm.MIMEType
	s.lastErr = nil
	s.segCount, s.segBytes, s.tiers = 0, 0, nil
	s.cmds = make(chan bgCommand)
	s.loopDone = make(chan struct{})
	cmds, done := s.cmds, s.loopDone
	s.mu.Unlock()

	go s.run(src, cmds, done)
	return nil
}

// Stop ends the session. The buffer is cleared; a fresh Start begins from
// sequence zero.
func (s *Background) Stop() error {
	_, err := s.send(bgCommand{kind: bgStop})
	return err
}

// CaptureWindow extracts the requested replay window from the live buffer.
// With no active session there is nothing buffered, so the empty-buffer
// outcome is returned directly.
func (s *Background) CaptureWindow(req replay.Request) (*replay.Artifact, error) {
	res, err := s.send(bgCommand{kind: bgExtract, req: req})
	if err != nil {
		return nil, err
	}
	return res.artifact, res.err
}

// SetWindow changes the retention span. Shrinking re-applies retention
// immediately instead of waiting for the next sweep; growing never
// resurrects already-evicted segments.
func (s *Background) SetWindow(d time.Duration) error {
	if d <= 0 {
		return errors.NewInvalidRequest("window duration must be positive")
	}

	s.mu.Lock()
	if s.state != StateActive {
		s.window = d
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err := s.send(bgCommand{kind: bgSetWindow, window: d})
	return err
}

// ClearBuffer drops all buffered segments and the retained artifact.
func (s *Background) ClearBuffer() error {
	s.mu.Lock()
	if s.state != StateActive {
		s.lastArtifact = nil
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err := s.send(bgCommand{kind: bgClear})
	return err
}

// LastArtifact returns the most recently extracted artifact, or nil. Only
// one is retained; each extraction replaces it.
func (s *Background) LastArtifact() *replay.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastArtifact
}

// Status returns the observable session state.
func (s *Background) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Role:           RoleBackground,
		State:          s.state,
		SegmentCount:   s.segCount,
		BufferBytes:    s.segBytes,
		WindowMinutes:  int(s.window / time.Minute),
		AvailableTiers: s.tiers,
	}
	if s.state == StateActive {
		snap.Elapsed = s.clock.Now().Sub(s.startedAt)
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// send delivers a command to the run loop, failing with SESSION_IDLE when
// no loop is running. Commands and chunk appends interleave one at a time
// on the loop goroutine.
func (s *Background) send(cmd bgCommand) (bgResult, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		if cmd.kind == bgExtract {
			// No session, no buffer: an expected empty outcome, not an error.
			return bgResult{err: errors.NewEmptyBuffer()}, nil
		}
		return bgResult{}, errors.NewSessionIdle(RoleBackground)
	}
	cmds, done := s.cmds, s.loopDone
	s.mu.Unlock()

	cmd.reply = make(chan bgResult, 1)
	select {
	case cmds <- cmd:
		return <-cmd.reply, nil
	case <-done:
		if cmd.kind == bgExtract {
			return bgResult{err: errors.NewEmptyBuffer()}, nil
		}
		return bgResult{}, errors.NewSessionIdle(RoleBackground)
	}
}

func (s *Background) run(src capture.Source, cmds chan bgCommand, done chan struct{}) {
	defer close(done)

	buf := segment.NewBuffer()
	ticker := s.clock.NewTicker(evictInterval)
	defer ticker.Stop()

	s.mu.Lock()
	window := s.window
	mime := s.mime
	s.mu.Unlock()

	chunks := src.Chunks()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				// Terminal status arrives on Done.
				chunks = nil
				continue
			}
			buf.Append(chunk.Data, chunk.Timestamp)
			s.publish(buf)

		case <-ticker.C():
			buf.Evict(s.clock.Now(), window)
			s.publish(buf)

		case err := <-src.Done():
			drainChunks(chunks, buf)
			buf.Clear()
			_ = src.Close()
			s.mu.Lock()
			if err != nil {
				s.state = StateErrored
				s.lastErr = errors.NewInternal(err)
			} else {
				s.state = StateIdle
				s.lastErr = errors.NewSourceTerminated()
			}
			s.lastArtifact = nil
			s.mu.Unlock()
			s.publish(buf)
			return

		case cmd := <-cmds:
			// Every append already dispatched by the source lands before
			// the command runs.
			drainChunks(chunks, buf)

			switch cmd.kind {
			case bgExtract:
				art, err := replay.CaptureWindow(buf, cmd.req, window, mime, s.clock.Now())
				s.mu.Lock()
				if err == nil {
					s.lastArtifact = art
				}
				s.mu.Unlock()
				s.publish(buf)
				cmd.reply <- bgResult{artifact: art, err: err}

			case bgSetWindow:
				if cmd.window < window {
					buf.Evict(s.clock.Now(), cmd.window)
				}
				window = cmd.window
				s.mu.Lock()
				s.window = cmd.window
				s.mu.Unlock()
				s.publish(buf)
				cmd.reply <- bgResult{}

			case bgClear:
				buf.Clear()
				s.mu.Lock()
				s.lastArtifact = nil
				s.mu.Unlock()
				s.publish(buf)
				cmd.reply <- bgResult{}

			case bgStop:
				s.setState(StateStopping)
				buf.Clear()
				_ = src.Close()
				s.mu.Lock()
				s.state = StateIdle
				s.lastErr = nil
				s.mu.Unlock()
				s.publish(buf)
				cmd.reply <- bgResult{}
				return
			}
		}
	}
}

func (s *Background) publish(buf *segment.Buffer) {
	now := s.clock.Now()
	tiers := replay.AvailableWindows(buf, now)
	s.mu.Lock()
	s.segCount = buf.Size()
	s.segBytes = buf.TotalBytes()
	s.tiers = tiers
	s.mu.Unlock()
}

func (s *Background) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// drainChunks consumes every chunk already sitting in the channel without
// blocking.
func drainChunks(chunks <-chan capture.Chunk, buf *segment.Buffer) {
	if chunks == nil {
		return
	}
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			buf.Append(chunk.Data, chunk.Timestamp)
		default:
			return
		}
	}
}

func toRewindError(err error) *errors.RewindError {
	if rErr, ok := err.(*errors.RewindError); ok {
		return rErr
	}
	return errors.NewAcquisitionFailed(errors.ReasonOther, err)
}
