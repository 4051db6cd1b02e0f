package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/session"
)

// outputLine is the stdout wire shape: one JSON object per event,
// {"type":..., "data":...}.
type outputLine struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type initData struct {
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
	Seq  string `json:"seq"`
	Text string `json:"text"`
	PID  int    `json:"pid,omitempty"`
}

type outputData struct {
	Seq string `json:"seq"`
}

type resizeData struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

type markerData struct {
	Label string `json:"label"`
}

type inputData struct {
	Data string `json:"data"`
}

type exitData struct {
	Status int `json:"status"`
}

// Printer writes one JSON line per subscribed event to an underlying
// writer — the stdout half of the control protocol. It is safe to share
// a single Printer's WriteSnapshot between the control
// Reader (for takeSnapshot replies) and the Printer's own Run loop
// (for broadcast events), since both serialize through the same mutex.
type Printer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	filter map[string]struct{}
}

// NewPrinter wraps w for buffered line-at-a-time JSON writes. subscribe,
// if non-empty, restricts Run's output to those event type names (the
// top-level --subscribe LIST flag); an empty subscribe list prints every
// event type, including init.
func NewPrinter(w io.Writer, subscribe ...string) *Printer {
	p := &Printer{w: bufio.NewWriter(w)}
	if len(subscribe) > 0 {
		p.filter = make(map[string]struct{}, len(subscribe))
		for _, typ := range subscribe {
			p.filter[typ] = struct{}{}
		}
	}
	return p
}

func (p *Printer) wants(typ string) bool {
	if p.filter == nil {
		return true
	}
	_, ok := p.filter[typ]
	return ok
}

func (p *Printer) writeLine(typ string, data any) error {
	b, err := json.Marshal(outputLine{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("control: encode %s event: %w", typ, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(b); err != nil {
		return err
	}
	if err := p.w.WriteByte('\n'); err != nil {
		return err
	}
	return p.w.Flush()
}

// WriteSnapshot prints a takeSnapshot reply; suitable as a control.SnapshotFunc.
func (p *Printer) WriteSnapshot(snap session.SnapshotEvent) error {
	return p.writeLine("snapshot", initData{Cols: snap.Cols, Rows: snap.Rows, Seq: snap.Seq, Text: snap.Text})
}

// Run subscribes to sess, prints its Init snapshot as the first line,
// then prints every subsequent broadcast event until the bus closes, ctx
// is done, or a write fails. A lagging subscriber logs a skip count and
// continues.
//
// ready, if given, is closed the moment Subscribe returns — a caller
// holding back PTY output until every from-start consumer has subscribed
// waits on it.
func (p *Printer) Run(ctx context.Context, sess *session.Session, ready ...chan struct{}) error {
	init, sub := sess.Subscribe()
	for _, r := range ready {
		close(r)
	}
	if p.wants("init") {
		if err := p.writeLine("init", initData{
			Cols: init.Cols, Rows: init.Rows, Seq: init.Seq, Text: init.Text, PID: init.ChildPID,
		}); err != nil {
			return err
		}
	}

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lag *eventbus.LagError
			switch {
			case errors.Is(err, eventbus.ErrClosed):
				return nil
			case errors.As(err, &lag):
				slog.Warn("control: printer lagged", "skipped", lag.Skipped)
				continue
			default:
				return err
			}
		}

		typ, data := DescribeEvent(ev)
		if typ == "" || !p.wants(typ) {
			continue
		}
		if err := p.writeLine(typ, data); err != nil {
			return fmt.Errorf("control: write event: %w", err)
		}
	}
}

// DescribeEvent maps a broadcast session.Event to the (type, data) pair
// used by every JSON-per-line consumer of the bus — this stdout printer
// and internal/httpapi's /ws/events handler alike.
func DescribeEvent(ev session.Event) (string, any) {
	switch e := ev.(type) {
	case session.OutputEvent:
		return "output", outputData{Seq: e.Data}
	case session.InputEvent:
		return "input", inputData{Data: e.Data}
	case session.ResizeEvent:
		return "resize", resizeData{Cols: e.Cols, Rows: e.Rows}
	case session.MarkerEvent:
		return "marker", markerData{Label: e.Label}
	case session.ExitEvent:
		return "exit", exitData{Status: e.Status}
	default:
		return "", nil
	}
}
