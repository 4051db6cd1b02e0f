// Package control implements the stdin command protocol and stdout
// event-subscription printer: a line-oriented JSON command dispatch
// (sendKeys/input/resize/mark/takeSnapshot) read from stdin, paired with
// a line-oriented JSON event printer for stdout.
package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/user/htcast/internal/session"
)

type envelope struct {
	Type string `json:"type"`
}

type sendKeysPayload struct {
	Keys []string `json:"keys"`
}

type inputPayload struct {
	Payload string `json:"payload"`
}

type resizePayload struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

type markPayload struct {
	Label string `json:"label"`
}

// ErrUnknownCommand is returned for a line whose type field does not name
// a recognized command.
var ErrUnknownCommand = errors.New("control: unknown command type")

// SnapshotFunc is invoked for a takeSnapshot command; the caller supplies
// how to write the reply (normally the stdout event printer's
// (*Printer).WriteSnapshot).
type SnapshotFunc func(session.SnapshotEvent) error

// Reader drives the stdin control protocol: one JSON object per line,
// dispatched by its "type" field onto Session mutations. sendKeys and
// input never themselves emit a reply; resize, mark and takeSnapshot do
// (resize/mark via the session's broadcast, takeSnapshot via onSnapshot).
type Reader struct {
	sess       *session.Session
	onSnapshot SnapshotFunc
}

// NewReader constructs a Reader bound to sess. onSnapshot receives the
// synthesized SnapshotEvent for every takeSnapshot command.
func NewReader(sess *session.Session, onSnapshot SnapshotFunc) *Reader {
	return &Reader{sess: sess, onSnapshot: onSnapshot}
}

// Run reads newline-delimited JSON commands from r until EOF or a read
// error. A line that fails to parse or names an unrecognized type is
// logged and skipped rather than terminating the reader, since one
// malformed command should not take down the whole control plane.
func (rd *Reader) Run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := rd.dispatch(line); err != nil {
			slog.Warn("control: command failed", "err", err)
		}
	}
	return sc.Err()
}

func (rd *Reader) dispatch(line []byte) error {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return fmt.Errorf("control: decode command: %w", err)
	}

	switch env.Type {
	case "sendKeys":
		var p sendKeysPayload
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("control: decode sendKeys: %w", err)
		}
		return rd.sess.Input(ResolveKeys(p.Keys))

	case "input":
		var p inputPayload
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("control: decode input: %w", err)
		}
		return rd.sess.Input([]byte(p.Payload))

	case "resize":
		var p resizePayload
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("control: decode resize: %w", err)
		}
		return rd.sess.Resize(p.Cols, p.Rows)

	case "mark":
		var p markPayload
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("control: decode mark: %w", err)
		}
		rd.sess.Mark(p.Label)
		return nil

	case "takeSnapshot":
		snap := rd.sess.SnapshotRequest()
		if rd.onSnapshot != nil {
			return rd.onSnapshot(snap)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
}
