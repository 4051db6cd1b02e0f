package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/session"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestNewWritesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cast")

	idle := 2.0
	r, err := New(Config{
		OutputPath:    path,
		IdleTimeLimit: &idle,
		Title:         "demo",
		TermType:      "xterm-256color",
	}, session.InitEvent{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Close()

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected 1 header line, got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != 3 {
		t.Errorf("expected version 3, got %d", h.Version)
	}
	if h.Term.Cols != 80 || h.Term.Rows != 24 {
		t.Errorf("expected 80x24, got %dx%d", h.Term.Cols, h.Term.Rows)
	}
	if h.Term.Type != "xterm-256color" {
		t.Errorf("unexpected term type %q", h.Term.Type)
	}
	if h.IdleTimeLimit == nil || *h.IdleTimeLimit != 2.0 {
		t.Errorf("expected idle_time_limit 2.0, got %v", h.IdleTimeLimit)
	}
}

func TestAppendSkipsHeaderWhenFileHasV3Header(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cast")
	if err := os.WriteFile(path, []byte(`{"version":3,"term":{"cols":80,"rows":24}}`+"\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	r, err := New(Config{OutputPath: path, Append: true}, session.InitEvent{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	bus := eventbus.New[session.Event](8)
	sub := bus.Subscribe()
	bus.Publish(session.OutputEvent{Data: "hi"})
	bus.Close()
	if err := r.Run(ctx, sub); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cancel()
	r.Close()

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 event line, got %d: %v", len(lines), lines)
	}
}

func TestRunWritesOutputAndExitEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cast")
	r, err := New(Config{OutputPath: path}, session.InitEvent{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bus := eventbus.New[session.Event](8)
	sub := bus.Subscribe()
	bus.Publish(session.OutputEvent{Data: "hello"})
	bus.Publish(session.ExitEvent{Status: 0})
	bus.Close()

	ctx := context.Background()
	if err := r.Run(ctx, sub); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r.Close()

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected header + output + exit, got %d: %v", len(lines), lines)
	}

	var outEvent []any
	if err := json.Unmarshal([]byte(lines[1]), &outEvent); err != nil {
		t.Fatalf("unmarshal output event: %v", err)
	}
	if outEvent[1] != "o" || outEvent[2] != "hello" {
		t.Fatalf("unexpected output event: %v", outEvent)
	}

	var exitEvent []any
	if err := json.Unmarshal([]byte(lines[2]), &exitEvent); err != nil {
		t.Fatalf("unmarshal exit event: %v", err)
	}
	if exitEvent[1] != "x" {
		t.Fatalf("unexpected exit event: %v", exitEvent)
	}
}

func TestRunIgnoresInputWhenCaptureDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cast")
	r, err := New(Config{OutputPath: path, CaptureInput: false}, session.InitEvent{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bus := eventbus.New[session.Event](8)
	sub := bus.Subscribe()
	bus.Publish(session.InputEvent{Data: "ls\n"})
	bus.Close()

	if err := r.Run(context.Background(), sub); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r.Close()

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected only the header line, got %d: %v", len(lines), lines)
	}
}

func TestIntervalNeverExceedsIdleLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.cast")
	idle := 0.05
	r, err := New(Config{OutputPath: path, IdleTimeLimit: &idle}, session.InitEvent{Cols: 80, Rows: 24})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	past := time.Now().Add(-10 * time.Second)
	r.lastAt = &past

	got := r.interval()
	if got > idle {
		t.Fatalf("expected interval capped at %v, got %v", idle, got)
	}
	r.Close()
}
