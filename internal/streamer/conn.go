// Package streamer implements the live streaming drivers: a local ALiS v1
// binary websocket streamer, an asciicast v3 text websocket streamer, and
// a remote uploader that speaks either protocol to an
// asciinema-compatible server. Each driver is a per-connection task
// pushing one websocket forward.
package streamer

import (
	"context"

	"nhooyr.io/websocket"
)

// Conn is the narrow slice of *websocket.Conn every streamer needs. The
// real server/client code passes a *websocket.Conn directly; tests pass a
// fake that records writes.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// closeReady closes every channel in ready, signaling a caller waiting on
// them that this streamer has reached a fixed point (subscribed, or failed
// before getting that far) and it is now safe to let session events start
// flowing.
func closeReady(ready []chan struct{}) {
	for _, r := range ready {
		close(r)
	}
}
