package streamer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/alis"
	"github.com/user/htcast/internal/session"
)

// Protocol selects the wire format the remote streamer speaks, matching
// --protocol alis|v3 on the stream subcommand.
type Protocol int

const (
	ProtocolALiS Protocol = iota
	ProtocolAsciicastV3
)

func (p Protocol) subprotocol() string {
	if p == ProtocolAsciicastV3 {
		return "v3.asciicast"
	}
	return "v1.alis"
}

// RemoteConfig configures a connection to an asciinema-compatible server.
type RemoteConfig struct {
	ServerURL    string
	InstallID    string
	Title        string
	Visibility   string
	Protocol     Protocol
	CaptureInput bool
	Theme        *Theme
	TermType     string
}

type createStreamRequest struct {
	Live       bool   `json:"live"`
	Title      string `json:"title,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

type createStreamResponse struct {
	WSProducerURL string `json:"ws_producer_url"`
}

// CreateStream performs the pre-issued install identifier handshake:
// POST /api/v1/streams with HTTP Basic auth (empty username, install-id
// as password), returning the websocket URL to dial for the actual
// event stream.
func CreateStream(ctx context.Context, cfg RemoteConfig) (string, error) {
	body, err := json.Marshal(createStreamRequest{
		Live:       true,
		Title:      cfg.Title,
		Visibility: cfg.Visibility,
	})
	if err != nil {
		return "", fmt.Errorf("streamer: encode create-stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ServerURL+"/api/v1/streams", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("streamer: build create-stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("", cfg.InstallID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("streamer: create stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("streamer: create stream failed (%d): %s", resp.StatusCode, string(b))
	}

	var out createStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("streamer: decode create-stream response: %w", err)
	}
	if out.WSProducerURL == "" {
		return "", fmt.Errorf("streamer: create-stream response missing ws_producer_url")
	}
	return out.WSProducerURL, nil
}

// Dial opens the producer websocket with the protocol's subprotocol
// announced.
func Dial(ctx context.Context, wsURL string, protocol Protocol) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{protocol.subprotocol()},
	})
	if err != nil {
		return nil, fmt.Errorf("streamer: dial %s: %w", wsURL, err)
	}
	return conn, nil
}

// Run performs the full remote-streaming handshake (create stream, dial,
// then run the chosen wire-format loop) and returns once the transport
// closes or fails. On failure the caller is responsible for restarting;
// this function never reconnects on its own.
//
// ready, if given, is closed once the chosen wire-format loop has
// subscribed to sess, or as soon as the handshake fails before getting
// that far — a caller holding back PTY output until every from-start
// consumer has subscribed waits on it.
func Run(ctx context.Context, sess *session.Session, cfg RemoteConfig, timestamp int64, ready ...chan struct{}) error {
	wsURL, err := CreateStream(ctx, cfg)
	if err != nil {
		closeReady(ready)
		return err
	}

	conn, err := Dial(ctx, wsURL, cfg.Protocol)
	if err != nil {
		closeReady(ready)
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	switch cfg.Protocol {
	case ProtocolAsciicastV3:
		return RunAsciicastV3(ctx, conn, sess, AsciicastOptions{
			Title:        cfg.Title,
			TermType:     cfg.TermType,
			Theme:        cfg.Theme,
			CaptureInput: cfg.CaptureInput,
		}, timestamp, ready...)
	default:
		var theme *alis.Theme
		if cfg.Theme != nil {
			theme = &alis.Theme{Fg: cfg.Theme.Fg, Bg: cfg.Theme.Bg, Palette: cfg.Theme.Palette}
		}
		return RunALiS(ctx, conn, sess, ALiSOptions{
			Theme:        theme,
			CaptureInput: cfg.CaptureInput,
		}, ready...)
	}
}
