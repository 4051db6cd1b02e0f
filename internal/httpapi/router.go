// Package httpapi exposes the session's broadcast bus over HTTP:
// /ws/events, /ws/alis, /ws/alis-v1, and a thin live preview page. Each
// connection is accepted and spawned as its own forwarding task over
// nhooyr.io/websocket, routed through a plain http.ServeMux.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/NYTimes/gziphandler"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/session"
	"github.com/user/htcast/internal/streamer"
)

// Options configures the router's streaming endpoints; it mirrors the
// fields streamer.AsciicastOptions/ALiSOptions need, since /ws/alis and
// /ws/alis-v1 run the same per-connection loops as the local streamer.
type Options struct {
	Title        string
	TermType     string
	Theme        *streamer.Theme
	CaptureInput bool
}

// NewRouter builds the HTTP handler serving sess's broadcast bus. ctx
// bounds the lifetime of every connection's forwarding loop: canceling it
// (e.g. on child exit) unblocks every open websocket.
func NewRouter(ctx context.Context, sess *session.Session, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		handleEvents(ctx, w, r, sess)
	})
	mux.HandleFunc("/ws/alis", func(w http.ResponseWriter, r *http.Request) {
		handleAlisText(ctx, w, r, sess, opts)
	})
	mux.HandleFunc("/ws/alis-v1", func(w http.ResponseWriter, r *http.Request) {
		handleAlisBinary(ctx, w, r, sess, opts)
	})
	mux.Handle("/", gziphandler.GzipHandler(http.HandlerFunc(handleIndex)))

	return mux
}

// connID generates a short id for log correlation.
func connID() string {
	id, err := gonanoid.New(10)
	if err != nil {
		return "conn"
	}
	return id
}

func acceptWebSocket(w http.ResponseWriter, r *http.Request, subprotocols []string) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   subprotocols,
		OriginPatterns: []string{"*"},
	})
}

func logConnClosed(id, endpoint string, err error) {
	if err == nil {
		slog.Debug("httpapi: connection closed", "conn", id, "endpoint", endpoint)
		return
	}
	slog.Warn("httpapi: connection ended with error", "conn", id, "endpoint", endpoint, "err", err)
}
