package httpapi

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/alis"
	"github.com/user/htcast/internal/session"
	"github.com/user/htcast/internal/streamer"
)

// handleAlisText serves /ws/alis: asciicast-v3-over-websocket text JSON,
// the same wire shape internal/streamer.RunAsciicastV3 produces for the
// remote uploader, reused here for a local consumer.
func handleAlisText(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, opts Options) {
	conn, err := acceptWebSocket(w, r, []string{"v3.asciicast"})
	if err != nil {
		return
	}
	id := connID()
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	err = streamer.RunAsciicastV3(ctx, conn, sess, streamer.AsciicastOptions{
		Title:        opts.Title,
		TermType:     opts.TermType,
		Theme:        opts.Theme,
		CaptureInput: opts.CaptureInput,
	}, time.Now().Unix())
	logConnClosed(id, "/ws/alis", err)
}

// handleAlisBinary serves /ws/alis-v1: the binary ALiS v1 codec over a
// websocket announcing the v1.alis subprotocol.
func handleAlisBinary(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session, opts Options) {
	conn, err := acceptWebSocket(w, r, []string{"v1.alis"})
	if err != nil {
		return
	}
	id := connID()
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	var theme *alis.Theme
	if opts.Theme != nil {
		theme = &alis.Theme{Fg: opts.Theme.Fg, Bg: opts.Theme.Bg, Palette: opts.Theme.Palette}
	}

	err = streamer.RunALiS(ctx, conn, sess, streamer.ALiSOptions{
		Theme:        theme,
		CaptureInput: opts.CaptureInput,
	})
	logConnClosed(id, "/ws/alis-v1", err)
}
