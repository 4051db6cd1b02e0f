package streamer

import (
	"context"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/user/htcast/internal/alis"
	"github.com/user/htcast/internal/session"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	types    []websocket.MessageType
	closed   bool
	closeErr error
}

func (f *fakeConn) Write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.messages = append(f.messages, cp)
	f.types = append(f.types, typ)
	return nil
}

func (f *fakeConn) Close(code websocket.StatusCode, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

type fakeVT struct {
	cols, rows int
}

func (f *fakeVT) Feed([]byte)           {}
func (f *fakeVT) Resize(cols, rows int) { f.cols, f.rows = cols, rows }
func (f *fakeVT) Cols() int             { return f.cols }
func (f *fakeVT) Rows() int             { return f.rows }
func (f *fakeVT) Dump() string          { return "\x1b[2J\x1b[H" }
func (f *fakeVT) TextView() string      { return "" }

type fakePTY struct{}

func (fakePTY) Write(data []byte) (int, error) { return len(data), nil }
func (fakePTY) Resize(cols, rows uint16) error { return nil }

func TestRunALiSSendsMagicThenInit(t *testing.T) {
	sess := session.New(&fakeVT{cols: 80, rows: 24}, fakePTY{}, 123, false)
	conn := &fakeConn{}

	sess.Exit(0)

	if err := RunALiS(context.Background(), conn, sess, ALiSOptions{}); err != nil {
		t.Fatalf("RunALiS: %v", err)
	}

	if len(conn.messages) < 2 {
		t.Fatalf("expected at least magic + init, got %d messages", len(conn.messages))
	}
	if string(conn.messages[0]) != string(alis.Magic) {
		t.Fatalf("expected magic first, got % X", conn.messages[0])
	}
	if conn.messages[1][0] != alis.TypeInit {
		t.Fatalf("expected init type byte, got %X", conn.messages[1][0])
	}
}

func TestRunALiSClosesOnExitByDefault(t *testing.T) {
	sess := session.New(&fakeVT{cols: 80, rows: 24}, fakePTY{}, 1, false)
	conn := &fakeConn{}

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- RunALiS(context.Background(), conn, sess, ALiSOptions{}, ready) }()
	<-ready

	sess.Exit(0)

	if err := <-done; err != nil {
		t.Fatalf("RunALiS: %v", err)
	}
	if !conn.closed {
		t.Fatal("expected conn to be closed after exit without KeepOpenAfterExit")
	}
}

func TestRunALiSKeepOpenSendsEOT(t *testing.T) {
	sess := session.New(&fakeVT{cols: 80, rows: 24}, fakePTY{}, 1, false)
	conn := &fakeConn{}

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunALiS(context.Background(), conn, sess, ALiSOptions{KeepOpenAfterExit: true}, ready)
	}()
	<-ready

	sess.Exit(0)

	if err := <-done; err != nil {
		t.Fatalf("RunALiS: %v", err)
	}
	if conn.closed {
		t.Fatal("expected conn left open when KeepOpenAfterExit is set")
	}
	last := conn.messages[len(conn.messages)-1]
	if last[0] != alis.TypeEOT {
		t.Fatalf("expected last message to be EOT, got type %X", last[0])
	}
}

func TestRunALiSSkipsInputWhenNotCapturing(t *testing.T) {
	sess := session.New(&fakeVT{cols: 80, rows: 24}, fakePTY{}, 1, true)
	conn := &fakeConn{}

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunALiS(context.Background(), conn, sess, ALiSOptions{CaptureInput: false}, ready)
	}()
	<-ready

	if err := sess.Input([]byte("ls\n")); err != nil {
		t.Fatalf("Input: %v", err)
	}
	sess.Exit(0)

	if err := <-done; err != nil {
		t.Fatalf("RunALiS: %v", err)
	}

	for _, m := range conn.messages[2:] {
		if m[0] == alis.TypeInput {
			t.Fatal("expected input event to be skipped when CaptureInput is false")
		}
	}
}

func TestRunALiSLagSkipsSilently(t *testing.T) {
	sess := session.New(&fakeVT{cols: 80, rows: 24}, fakePTY{}, 1, false)
	conn := &fakeConn{}

	done := make(chan error, 1)
	go func() {
		done <- RunALiS(context.Background(), conn, sess, ALiSOptions{})
	}()

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 2000; i++ {
		sess.Mark("m")
	}
	sess.Exit(0)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunALiS: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunALiS did not return after a lagging subscriber should have skipped ahead")
	}

	last := conn.messages[len(conn.messages)-1]
	if last[0] != alis.TypeExit {
		t.Fatalf("expected to still observe the exit event after lagging, got type %X", last[0])
	}
}
