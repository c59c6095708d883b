// Package capture defines the capture-source contract consumed by recording
// sessions, an ffmpeg-backed implementation, and a scripted source for tests.
package capture

import (
	"context"
	"time"
)

// Chunk is one timestamped slice of encoded media emitted by a source.
type Chunk struct {
	Data      []byte
	Timestamp time.Time
}

// Source is an active capture stream. Chunks delivers encoded media until
// the source stops; Done then delivers the terminal status exactly once:
// nil when the source ended outside the app (sharing revoked, display gone)
// and an error for an unrecoverable failure. Close never triggers a Done
// delivery.
type Source interface {
	Chunks() <-chan Chunk
	Done() <-chan error
	Pause() error
	Resume() error
	Close() error
}

// Opener acquires a capture source. Acquiring may wait indefinitely on a
// user permission grant; a declined grant surfaces as an error, not a
// timeout. Sessions take an Opener at construction so tests can substitute
// a scripted source.
type Opener func(ctx context.Context, opts *Options) (Source, error)
