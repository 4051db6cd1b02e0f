package streamer

import (
	"context"
	"errors"
	"fmt"

	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/alis"
	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/session"
)

// ALiSOptions configures one ALiS v1 stream.
type ALiSOptions struct {
	Theme *alis.Theme
	// CaptureInput forwards Input events; otherwise they are dropped
	// without consuming an id.
	CaptureInput bool
	// KeepOpenAfterExit sends EOT after Exit and returns without closing
	// conn, leaving the transport open for a subsequent Init. Otherwise
	// the connection is closed once Exit has been sent.
	KeepOpenAfterExit bool
}

// RunALiS drives one ALiS v1 stream end to end: sends the magic preamble,
// subscribes to sess and sends its snapshot as Init, then forwards every
// broadcast event as a binary message until the bus closes, ctx is done,
// or a write fails. A lagging subscriber is skipped silently — the
// consumer can reconnect for a fresh Init if it cares.
//
// ready, if given, is closed the moment this call either subscribes to
// sess or fails before reaching that point — a caller holding back PTY
// output until every from-start consumer has subscribed waits on it.
func RunALiS(ctx context.Context, conn Conn, sess *session.Session, opts ALiSOptions, ready ...chan struct{}) error {
	if err := conn.Write(ctx, websocket.MessageBinary, alis.Magic); err != nil {
		closeReady(ready)
		return fmt.Errorf("streamer: write magic: %w", err)
	}

	init, sub := sess.Subscribe()
	closeReady(ready)

	initBytes, err := alis.EncodeInit(0, 0, uint16(init.Cols), uint16(init.Rows), opts.Theme, init.Seq)
	if err != nil {
		return fmt.Errorf("streamer: encode init: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, initBytes); err != nil {
		return fmt.Errorf("streamer: write init: %w", err)
	}

	clock := &relClock{}
	clock.start()

	var id uint64
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

		var payload []byte
		switch e := ev.(type) {
		case session.OutputEvent:
			id++
			payload = alis.EncodeOutput(id, uint64(clock.next().Microseconds()), e.Data)
		case session.InputEvent:
			if !opts.CaptureInput {
				continue
			}
			id++
			payload = alis.EncodeInput(id, uint64(clock.next().Microseconds()), e.Data)
		case session.ResizeEvent:
			id++
			payload = alis.EncodeResize(id, uint64(clock.next().Microseconds()), uint16(e.Cols), uint16(e.Rows))
		case session.MarkerEvent:
			id++
			payload = alis.EncodeMarker(id, uint64(clock.next().Microseconds()), e.Label)
		case session.ExitEvent:
			id++
			payload = alis.EncodeExit(id, uint64(clock.next().Microseconds()), int32(e.Status))
		default:
			continue
		}

		if err := conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
			return fmt.Errorf("streamer: write event: %w", err)
		}

		if _, ok := ev.(session.ExitEvent); ok {
			if opts.KeepOpenAfterExit {
				id++
				eot := alis.EncodeEOT(id, uint64(clock.next().Microseconds()))
				if err := conn.Write(ctx, websocket.MessageBinary, eot); err != nil {
					return fmt.Errorf("streamer: write eot: %w", err)
				}
				return nil
			}
			return conn.Close(websocket.StatusNormalClosure, "session ended")
		}
	}
}
