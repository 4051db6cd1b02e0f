// Package session implements the session core: the single source of
// truth for one recording/streaming session. It owns the VT model and
// the broadcast bus and exposes the public mutation operations (output,
// input, resize, mark, exit, snapshot_request, subscribe).
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/vt"
)

// busCapacity is the broadcast bus capacity.
const busCapacity = 1024

// PTYSubmitter is the narrow, non-owning handle the session holds on the
// PTY driver: enough to forward input and resize requests, nothing more.
// internal/ptydriver.Driver satisfies this interface.
type PTYSubmitter interface {
	Write(data []byte) (int, error)
	Resize(cols, rows uint16) error
}

// Session is the single source of truth for an ongoing recording/stream.
// All exported methods are safe for concurrent use; mutations are
// serialized internally under mu.
type Session struct {
	mu sync.Mutex

	vt  vt.Model
	pty PTYSubmitter

	childPID     int
	captureInput bool

	start            time.Time
	lastEventInstant *time.Duration
	lastBroadcastID  uint64
	exited           bool

	bus *eventbus.Bus[Event]
}

// New constructs a Session around an already-sized VT model and a PTY
// submission handle. childPID is included in Init snapshots.
func New(vtModel vt.Model, pty PTYSubmitter, childPID int, captureInput bool) *Session {
	return &Session{
		vt:           vtModel,
		pty:          pty,
		childPID:     childPID,
		captureInput: captureInput,
		start:        time.Now(),
		bus:          eventbus.New[Event](busCapacity),
	}
}

// elapsed returns seconds since session start. Must be called with mu held
// so that events emitted in lock-acquisition order have non-decreasing
// time values.
func (s *Session) elapsed() float64 {
	d := time.Since(s.start)
	s.lastEventInstant = &d
	return d.Seconds()
}

func (s *Session) publish(ev Event) {
	s.lastBroadcastID++
	s.bus.Publish(ev)
}

// Output advances the VT with data read from the PTY and publishes an
// Output event. No-op once the session has exited.
func (s *Session) Output(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return
	}
	s.vt.Feed(data)
	t := s.elapsed()
	s.publish(OutputEvent{TimeSec: t, Data: string(data)})
}

// Input forwards data to the PTY and, if input capture is enabled,
// publishes an Input event. No-op once the session has exited.
func (s *Session) Input(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return nil
	}
	if s.captureInput {
		t := s.elapsed()
		s.publish(InputEvent{TimeSec: t, Data: string(data)})
	}
	_, err := s.pty.Write(data)
	return err
}

// Resize changes the VT and PTY window size and publishes a Resize event,
// even if cols/rows match the current size. No-op once the session has
// exited.
func (s *Session) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return nil
	}
	if cols < 1 || cols > 65535 || rows < 1 || rows > 65535 {
		return fmt.Errorf("session: resize out of range: %dx%d", cols, rows)
	}
	s.vt.Resize(cols, rows)
	if err := s.pty.Resize(uint16(cols), uint16(rows)); err != nil {
		return fmt.Errorf("session: resize pty: %w", err)
	}
	t := s.elapsed()
	s.publish(ResizeEvent{TimeSec: t, Cols: cols, Rows: rows})
	return nil
}

// Mark publishes a Marker event carrying label, which may be empty.
func (s *Session) Mark(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return
	}
	t := s.elapsed()
	s.publish(MarkerEvent{TimeSec: t, Label: label})
}

// Exit publishes an Exit event and marks the session exited; every
// subsequent operation on the session becomes a no-op.
func (s *Session) Exit(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return
	}
	t := s.elapsed()
	s.publish(ExitEvent{TimeSec: t, Status: status})
	s.exited = true
	s.bus.Close()
}

// SnapshotRequest synthesizes a Snapshot event from current VT state. It
// is a control-plane reply: it is never placed on the broadcast bus and
// never persisted to a recording.
func (s *Session) SnapshotRequest() SnapshotEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SnapshotEvent{
		Cols: s.vt.Cols(),
		Rows: s.vt.Rows(),
		Seq:  s.vt.Dump(),
		Text: s.vt.TextView(),
	}
}

// Subscribe atomically snapshots current VT state into an Init event and
// returns it paired with a Subscriber positioned to receive every event
// published after this call returns. The snapshot and the subscriber
// creation happen under the same lock so no broadcast event can be
// inserted between the two.
func (s *Session) Subscribe() (InitEvent, *eventbus.Subscriber[Event]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	init := InitEvent{
		TimeSec:  time.Since(s.start).Seconds(),
		Cols:     s.vt.Cols(),
		Rows:     s.vt.Rows(),
		ChildPID: s.childPID,
		Seq:      s.vt.Dump(),
		Text:     s.vt.TextView(),
	}
	return init, s.bus.Subscribe()
}

// Exited reports whether Exit has already been published.
func (s *Session) Exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited
}
