package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/control"
	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/session"
)

type eventLine struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleEvents serves /ws/events?sub=a,b,c: one text JSON object per
// event, filtered to the comma-separated subscribe list in the query
// string. An empty or absent sub parameter means every event type.
func handleEvents(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *session.Session) {
	filter := parseSubList(r.URL.Query().Get("sub"))

	conn, err := acceptWebSocket(w, r, nil)
	if err != nil {
		return
	}
	id := connID()
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	init, sub := sess.Subscribe()
	if wantsType(filter, "init") {
		if err := writeEventLine(ctx, conn, "init", initData(init)); err != nil {
			logConnClosed(id, "/ws/events", err)
			return
		}
	}

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lag *eventbus.LagError
			switch {
			case errors.Is(err, eventbus.ErrClosed):
				return
			case errors.As(err, &lag):
				continue
			default:
				logConnClosed(id, "/ws/events", err)
				return
			}
		}

		typ, data := control.DescribeEvent(ev)
		if typ == "" || !wantsType(filter, typ) {
			continue
		}
		if err := writeEventLine(ctx, conn, typ, data); err != nil {
			logConnClosed(id, "/ws/events", err)
			return
		}
	}
}

func writeEventLine(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	b, err := json.Marshal(eventLine{Type: typ, Data: data})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

func parseSubList(raw string) map[string]struct{} {
	if raw == "" {
		return nil
	}
	set := make(map[string]struct{})
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// wantsType reports whether typ passes the subscribe filter; a nil filter
// (no sub param given) accepts everything.
func wantsType(filter map[string]struct{}, typ string) bool {
	if filter == nil {
		return true
	}
	_, ok := filter[typ]
	return ok
}

type initDataShape struct {
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
	Seq  string `json:"seq"`
	Text string `json:"text"`
	PID  int    `json:"pid,omitempty"`
}

func initData(init session.InitEvent) initDataShape {
	return initDataShape{Cols: init.Cols, Rows: init.Rows, Seq: init.Seq, Text: init.Text, PID: init.ChildPID}
}
