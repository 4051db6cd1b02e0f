package streamer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/session"
)

// Theme is the streamers' theme shape for the asciicast v3 header's
// term.theme object (internal/recorder declares its own equivalent type).
type Theme struct {
	Fg      string
	Bg      string
	Palette []string
}

// AsciicastOptions configures one asciicast-v3-over-websocket stream.
type AsciicastOptions struct {
	Title        string
	TermType     string
	Theme        *Theme
	CaptureInput bool
}

type asciicastTheme struct {
	Fg      string `json:"fg"`
	Bg      string `json:"bg,omitempty"`
	Palette string `json:"palette,omitempty"`
}

type asciicastTerm struct {
	Cols  int             `json:"cols"`
	Rows  int             `json:"rows"`
	Type  string          `json:"type,omitempty"`
	Theme *asciicastTheme `json:"theme,omitempty"`
}

type asciicastHeader struct {
	Version   int           `json:"version"`
	Term      asciicastTerm `json:"term"`
	Timestamp int64         `json:"timestamp"`
	Title     string        `json:"title,omitempty"`
}

// RunAsciicastV3 drives one asciicast-v3-over-websocket text stream: on
// subscribe it sends a header line followed by an immediate synthetic
// output event carrying the current screen (so a fresh viewer renders
// something before the next real event arrives), then forwards every
// broadcast event as a JSON text line. This differs deliberately from
// internal/recorder, which never synthesizes an initial output line — a
// file reader sees the whole tape from the start, a live joiner does not.
//
// ready, if given, is closed once sess.Subscribe has been called — a
// caller holding back PTY output until every from-start consumer has
// subscribed waits on it.
func RunAsciicastV3(ctx context.Context, conn Conn, sess *session.Session, opts AsciicastOptions, timestamp int64, ready ...chan struct{}) error {
	init, sub := sess.Subscribe()
	closeReady(ready)

	header := asciicastHeader{
		Version: 3,
		Term: asciicastTerm{
			Cols: init.Cols,
			Rows: init.Rows,
			Type: opts.TermType,
		},
		Timestamp: timestamp,
		Title:     opts.Title,
	}
	if opts.Theme != nil {
		header.Term.Theme = &asciicastTheme{
			Fg:      opts.Theme.Fg,
			Bg:      opts.Theme.Bg,
			Palette: strings.Join(opts.Theme.Palette, ":"),
		}
	}

	if err := writeJSONLine(ctx, conn, header); err != nil {
		return fmt.Errorf("streamer: write header: %w", err)
	}
	if err := writeJSONLine(ctx, conn, []any{0.0, "o", init.Seq}); err != nil {
		return fmt.Errorf("streamer: write initial screen: %w", err)
	}

	clock := &relClock{}
	clock.start()

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lag *eventbus.LagError
			switch {
			case errors.Is(err, eventbus.ErrClosed):
				return nil
			case errors.As(err, &lag):
				continue
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				return err
			}
		}

		var code string
		var data any
		switch e := ev.(type) {
		case session.OutputEvent:
			code, data = "o", e.Data
		case session.InputEvent:
			if !opts.CaptureInput {
				continue
			}
			code, data = "i", e.Data
		case session.ResizeEvent:
			code, data = "r", fmt.Sprintf("%dx%d", e.Cols, e.Rows)
		case session.MarkerEvent:
			code, data = "m", e.Label
		case session.ExitEvent:
			// The live-stream wire protocol stringifies the exit status,
			// unlike the recorded asciicast v3 file format which keeps
			// it as a JSON number.
			code, data = "x", strconv.Itoa(e.Status)
		default:
			continue
		}

		interval := clock.next().Seconds()
		if err := writeJSONLine(ctx, conn, []any{interval, code, data}); err != nil {
			return fmt.Errorf("streamer: write event: %w", err)
		}

		if _, ok := ev.(session.ExitEvent); ok {
			return conn.Close(websocket.StatusNormalClosure, "session ended")
		}
	}
}

func writeJSONLine(ctx context.Context, conn Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
