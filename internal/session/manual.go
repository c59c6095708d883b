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

type manCmdKind int

const (
	manPause manCmdKind = iota
	manResume
	manStop
)

type manCommand struct {
	kind  manCmdKind
	reply chan manResult
}

type manResult struct {
	artifact *replay.Artifact
	err      error
}

// Manual is the deliberate fixed-length recorder. Unlike the background
// session it never evicts: every chunk is retained until Stop finalizes
// them into one artifact. Pause suspends emission at the source, so no
// chunks arrive while paused and none are lost.
type Manual struct {
	opener capture.Opener
	clock  Clock
	opts   *capture.Options

	mu           sync.Mutex
	state        State
	lastErr      *errors.RewindError
	startedAt    time.Time
	pauseStart   time.Time
	pausedAccum  time.Duration
	mime         string
	segCount     int
	segBytes     int64
	lastArtifact *replay.Artifact
	cmds         chan manCommand
	loopDone     chan struct{}
}

// NewManual creates an idle manual recorder.
func NewManual(cfg *config.Config, opener capture.Opener, clock Clock) *Manual {
	return &Manual{
		opener: opener,
		clock:  clock,
		opts:   capture.OptionsFromConfig(cfg),
		state:  StateIdle,
	}
}

// Start acquires a capture source and begins recording. A second Start
// while recording or paused is rejected; the manual role is independent of
// the background session and may run alongside it.
func (m *Manual) Start(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateIdle, StateErrored:
	default:
		m.mu.Unlock()
		return errors.NewSessionActive(RoleManual)
	}
	m.state = StateStarting
	opts := m.opts
	m.mu.Unlock()

	norm, warn := capture.Normalize(opts)
	if warn != nil {
		log.Printf("rewind: %s", warn.Message)
	}

	src, err := m.opener(ctx, norm)
	if err != nil {
		m.mu.Lock()
		m.state = StateErrored
		m.lastErr = toRewindError(err)
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.state = StateRecording
	m.startedAt = m.clock.Now()
	m.pausedAccum = 0
	m.mime = norm.MIMEType
	m.lastErr = nil
	m.segCount, m.segBytes = 0, 0
	m.cmds = make(chan manCommand)
	m.loopDone = make(chan struct{})
	cmds, done := m.cmds, m.loopDone
	m.mu.Unlock()

	go m.run(src, cmds, done)
	return nil
}

// Pause suspends the source. Only valid while recording.
func (m *Manual) Pause() error {
	_, err := m.send(manCommand{kind: manPause})
	return err
}

// Resume continues a paused recording.
func (m *Manual) Resume() error {
	_, err := m.send(manCommand{kind: manResume})
	return err
}

// Stop finalizes the recording, concatenating every retained chunk in
// arrival order into a single artifact.
func (m *Manual) Stop() (*replay.Artifact, error) {
	res, err := m.send(manCommand{kind: manStop})
	if err != nil {
		return nil, err
	}
	return res.artifact, res.err
}

// LastArtifact returns the most recently finalized recording, or nil.
func (m *Manual) LastArtifact() *replay.Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArtifact
}

// Status returns the observable recorder state. Elapsed excludes time
// spent paused.
func (m *Manual) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Role:         RoleManual,
		State:        m.state,
		SegmentCount: m.segCount,
		BufferBytes:  m.segBytes,
	}
	switch m.state {
	case StateRecording:
		snap.Elapsed = m.clock.Now().Sub(m.startedAt) - m.pausedAccum
	case StatePaused:
		snap.Elapsed = m.pauseStart.Sub(m.startedAt) - m.pausedAccum
	}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	return snap
}

func (m *Manual) send(cmd manCommand) (manResult, error) {
	m.mu.Lock()
	if m.state != StateRecording && m.state != StatePaused {
		m.mu.Unlock()
		return manResult{}, errors.NewSessionIdle(RoleManual)
	}
	cmds, done := m.cmds, m.loopDone
	m.mu.Unlock()

	cmd.reply = make(chan manResult, 1)
	select {
	case cmds <- cmd:
		return <-cmd.reply, nil
	case <-done:
		return manResult{}, errors.NewSessionIdle(RoleManual)
	}
}

func (m *Manual) run(src capture.Source, cmds chan manCommand, done chan struct{}) {
	defer close(done)

	buf := segment.NewBuffer()

	m.mu.Lock()
	mime := m.mime
	m.mu.Unlock()

	chunks := src.Chunks()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			buf.Append(chunk.Data, chunk.Timestamp)
			m.publish(buf)

		case err := <-src.Done():
			// The source went away under us. What was already recorded is
			// worth keeping, so finalize it before surfacing the signal.
			drainChunks(chunks, buf)
			var art *replay.Artifact
			if buf.Size() > 0 {
				art = replay.Assemble(buf.Extract(nil), mime, m.clock.Now())
			}
			_ = src.Close()
			m.mu.Lock()
			m.lastArtifact = art
			if err != nil {
				m.state = StateErrored
				m.lastErr = errors.NewInternal(err)
			} else {
				m.state = StateIdle
				m.lastErr = errors.NewSourceTerminated()
			}
			m.mu.Unlock()
			m.publish(buf)
			return

		case cmd := <-cmds:
			drainChunks(chunks, buf)

			switch cmd.kind {
			case manPause:
				m.mu.Lock()
				if m.state != StateRecording {
					m.mu.Unlock()
					cmd.reply <- manResult{err: errors.NewInvalidRequest("recorder is not recording")}
					continue
				}
				m.mu.Unlock()
				if err := src.Pause(); err != nil {
					cmd.reply <- manResult{err: errors.NewInternal(err)}
					continue
				}
				m.mu.Lock()
				m.state = StatePaused
				m.pauseStart = m.clock.Now()
				m.mu.Unlock()
				cmd.reply <- manResult{}

			case manResume:
				m.mu.Lock()
				if m.state != StatePaused {
					m.mu.Unlock()
					cmd.reply <- manResult{err: errors.NewInvalidRequest("recorder is not paused")}
					continue
				}
				m.mu.Unlock()
				if err := src.Resume(); err != nil {
					cmd.reply <- manResult{err: errors.NewInternal(err)}
					continue
				}
				m.mu.Lock()
				m.pausedAccum += m.clock.Now().Sub(m.pauseStart)
				m.state = StateRecording
				m.mu.Unlock()
				cmd.reply <- manResult{}

			case manStop:
				m.setStateMan(StateStopping)
				var res manResult
				if buf.Size() > 0 {
					res.artifact = replay.Assemble(buf.Extract(nil), mime, m.clock.Now())
				} else {
					res.err = errors.NewEmptyBuffer()
				}
				buf.Clear()
				_ = src.Close()
				m.mu.Lock()
				m.lastArtifact = res.artifact
				m.state = StateIdle
				m.lastErr = nil
				m.mu.Unlock()
				m.publish(buf)
				cmd.reply <- res
				return
			}
		}
	}
}

func (m *Manual) publish(buf *segment.Buffer) {
	m.mu.Lock()
	m.segCount = buf.Size()
	m.segBytes = buf.TotalBytes()
	m.mu.Unlock()
}

func (m *Manual) setStateMan(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
