package capture

import (
	"context"
	"sync"
	"time"
)

// ScriptedSource is a deterministic in-memory Source for tests and
// development. Chunks are emitted on demand via Emit; Pause drops emissions
// at the source, matching a real source's suspend semantics.
type ScriptedSource struct {
	chunks chan Chunk
	done   chan error

	mu       sync.Mutex
	paused   bool
	closed   bool
	finished bool
}

// NewScriptedSource returns a scripted source with a buffered chunk channel.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{
		chunks: make(chan Chunk, 64),
		done:   make(chan error, 1),
	}
}

// ScriptedOpener returns an Opener handing out the given source.
func ScriptedOpener(src *ScriptedSource) Opener {
	return func(ctx context.Context, opts *Options) (Source, error) {
		return src, nil
	}
}

func (s *ScriptedSource) Chunks() <-chan Chunk { return s.chunks }
func (s *ScriptedSource) Done() <-chan error   { return s.done }

// Emit delivers one chunk to the consumer. While paused or after close the
// chunk is dropped, never queued. It reports whether the chunk was emitted.
func (s *ScriptedSource) Emit(data []byte, ts time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.closed || s.finished {
		return false
	}
	s.chunks <- Chunk{Data: data, Timestamp: ts}
	return true
}

// EndExternally simulates the source being terminated outside the app.
func (s *ScriptedSource) EndExternally() {
	s.terminate(nil)
}

// Fail simulates an unrecoverable source error.
func (s *ScriptedSource) Fail(err error) {
	s.terminate(err)
}

func (s *ScriptedSource) terminate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished {
		return
	}
	s.finished = true
	close(s.chunks)
	s.done <- err
}

func (s *ScriptedSource) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	return nil
}

func (s *ScriptedSource) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	return nil
}

func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.finished {
		close(s.chunks)
	}
	return nil
}

// Paused reports whether the source is currently suspended.
func (s *ScriptedSource) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
