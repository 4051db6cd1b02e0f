package control

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/user/htcast/internal/session"
)

func TestPrinterWritesInitFirst(t *testing.T) {
	pty := &fakePTY{}
	sess := session.New(&fakeVT{cols: 80, rows: 24}, pty, 42, false)
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), sess, ready) }()
	<-ready

	sess.Exit(0)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := splitLines(t, &buf)
	if len(lines) < 2 {
		t.Fatalf("expected init + exit lines, got %d", len(lines))
	}
	var first outputLine
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.Type != "init" {
		t.Fatalf("expected first line type init, got %q", first.Type)
	}
}

func TestPrinterWritesOutputAndExit(t *testing.T) {
	pty := &fakePTY{}
	sess := session.New(&fakeVT{cols: 80, rows: 24}, pty, 1, false)
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), sess, ready) }()
	<-ready

	sess.Output([]byte("hi"))
	sess.Exit(3)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := splitLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected init+output+exit, got %d: %s", len(lines), buf.String())
	}

	var outLine outputLine
	if err := json.Unmarshal(lines[1], &outLine); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if outLine.Type != "output" {
		t.Fatalf("expected output type, got %q", outLine.Type)
	}

	var exitLine outputLine
	if err := json.Unmarshal(lines[2], &exitLine); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if exitLine.Type != "exit" {
		t.Fatalf("expected exit type, got %q", exitLine.Type)
	}
}

func TestWriteSnapshotProducesSnapshotLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	if err := p.WriteSnapshot(session.SnapshotEvent{Cols: 80, Rows: 24, Seq: "DUMP", Text: "TEXT"}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	var line outputLine
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line.Type != "snapshot" {
		t.Fatalf("expected snapshot type, got %q", line.Type)
	}
}

func TestPrinterFilterRestrictsEventTypes(t *testing.T) {
	pty := &fakePTY{}
	sess := session.New(&fakeVT{cols: 80, rows: 24}, pty, 1, false)
	var buf bytes.Buffer
	p := NewPrinter(&buf, "marker")

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), sess, ready) }()
	<-ready

	sess.Output([]byte("hi"))
	sess.Mark("chapter 1")
	sess.Exit(0)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := splitLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected only the marker line, got %d: %s", len(lines), buf.String())
	}
	var line outputLine
	if err := json.Unmarshal(lines[0], &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line.Type != "marker" {
		t.Fatalf("expected marker, got %q", line.Type)
	}
}

func splitLines(t *testing.T, buf *bytes.Buffer) [][]byte {
	t.Helper()
	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	return lines
}
