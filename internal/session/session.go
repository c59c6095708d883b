// Package session owns the lifecycle of capture sessions: the background
// rolling-buffer session, the manual recorder, and the coordinator that
// holds exactly one of each.
//
// All buffer mutations happen on a session's run loop goroutine. Appends,
// eviction ticks, and extraction requests are serialized there, and pending
// appends are drained before any command executes, so an extraction always
// observes every chunk the source has already delivered.
package session

import "time"

// State is a session lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateStopping State = "stopping"
	StateErrored  State = "errored"

	// Manual recorder states. Recording corresponds to Active; Paused is
	// only reachable for the manual role.
	StateRecording State = "recording"
	StatePaused    State = "paused"
)

// Session roles. Each role owns at most one capture source at a time; the
// two roles are independent and may run concurrently.
const (
	RoleBackground = "background"
	RoleManual     = "manual"
)

// evictInterval is the cadence of the background session's retention sweep.
const evictInterval = time.Second

// Snapshot is the observable state of one session, safe to read while the
// session runs.
type Snapshot struct {
	Role           string        `json:"role"`
	State          State         `json:"state"`
	Elapsed        time.Duration `json:"elapsed"`
	SegmentCount   int           `json:"segment_count"`
	BufferBytes    int64         `json:"buffer_bytes"`
	WindowMinutes  int           `json:"window_minutes,omitempty"`
	AvailableTiers []int         `json:"available_tiers,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
}
