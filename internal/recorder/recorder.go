// Package recorder implements the asciicast v3 NDJSON recorder: a
// buffered writer that flushes after every event line so a crash leaves
// a usable prefix on disk.
package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/user/htcast/internal/eventbus"
	"github.com/user/htcast/internal/session"
)

// Theme mirrors alis.Theme for the recorder's own header encoding so the
// recorder package has no dependency on the ALiS codec.
type Theme struct {
	Fg      string
	Bg      string
	Palette []string
}

// Config configures one recording run.
type Config struct {
	OutputPath    string
	Append        bool
	IdleTimeLimit *float64
	Title         string
	Command       string
	CaptureEnv    []string
	Theme         *Theme
	TermType      string
	CaptureInput  bool
}

type headerTheme struct {
	Fg      string `json:"fg"`
	Bg      string `json:"bg"`
	Palette string `json:"palette,omitempty"`
}

type headerTerm struct {
	Cols  int          `json:"cols"`
	Rows  int          `json:"rows"`
	Type  string       `json:"type,omitempty"`
	Theme *headerTheme `json:"theme,omitempty"`
}

type header struct {
	Version       int               `json:"version"`
	Term          headerTerm        `json:"term"`
	Timestamp     int64             `json:"timestamp,omitempty"`
	IdleTimeLimit *float64          `json:"idle_time_limit,omitempty"`
	Command       string            `json:"command,omitempty"`
	Title         string            `json:"title,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
}

// Recorder writes one NDJSON asciicast v3 recording to a file.
type Recorder struct {
	cfg    Config
	file   *os.File
	w      *bufio.Writer
	lastAt *time.Time

	bytesWritten uint64
}

// New opens the target file (truncating unless Append is set) and, unless
// appending to a file that already carries a header, writes the asciicast
// v3 header from init's dimensions. No synthetic Output event carrying
// the initial VT snapshot is ever written — recording starts from the
// first genuine event the returned Recorder processes via Run.
func New(cfg Config, init session.InitEvent) (*Recorder, error) {
	flags := os.O_WRONLY | os.O_CREATE
	var existingHeader bool
	if cfg.Append {
		flags |= os.O_APPEND
		existingHeader = hasV3Header(cfg.OutputPath)
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(cfg.OutputPath, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", cfg.OutputPath, err)
	}

	r := &Recorder{
		cfg:  cfg,
		file: f,
		w:    bufio.NewWriter(f),
	}

	if !existingHeader {
		if err := r.writeHeader(init.Cols, init.Rows); err != nil {
			f.Close()
			return nil, err
		}
	}

	now := time.Now()
	r.lastAt = &now

	return r, nil
}

// hasV3Header reports whether path already exists and its first line
// parses as an asciicast v3 header object (version == 3). Any other
// outcome — the file is missing, empty, unreadable, or its first line is
// an event array or some other format entirely — means the file has no
// header yet and one must be written before appending to it.
func hasV3Header(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return false
	}

	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		return false
	}
	return h.Version == 3
}

func (r *Recorder) writeHeader(cols, rows int) error {
	h := header{
		Version: 3,
		Term: headerTerm{
			Cols: cols,
			Rows: rows,
			Type: r.cfg.TermType,
		},
		Timestamp:     time.Now().Unix(),
		IdleTimeLimit: r.cfg.IdleTimeLimit,
		Command:       r.cfg.Command,
		Title:         r.cfg.Title,
	}

	if r.cfg.Theme != nil {
		h.Term.Theme = &headerTheme{
			Fg:      r.cfg.Theme.Fg,
			Bg:      r.cfg.Theme.Bg,
			Palette: strings.Join(r.cfg.Theme.Palette, ":"),
		}
	}

	if len(r.cfg.CaptureEnv) > 0 {
		env := make(map[string]string, len(r.cfg.CaptureEnv))
		for _, name := range r.cfg.CaptureEnv {
			if v, ok := os.LookupEnv(name); ok {
				env[name] = v
			}
		}
		if len(env) > 0 {
			h.Env = env
		}
	}

	return r.writeLine(h)
}

func (r *Recorder) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("recorder: encode: %w", err)
	}
	b = append(b, '\n')
	if _, err := r.w.Write(b); err != nil {
		return fmt.Errorf("recorder: write: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("recorder: flush: %w", err)
	}
	r.bytesWritten += uint64(len(b))
	return nil
}

// interval returns the seconds elapsed since the previous processed
// event, capped at the configured idle time limit. lastAt is seeded in
// New, so the first processed event's interval is the time between
// construction and that event, not 0.0.
func (r *Recorder) interval() float64 {
	now := time.Now()
	var d float64
	if r.lastAt != nil {
		d = now.Sub(*r.lastAt).Seconds()
	}
	r.lastAt = &now
	if r.cfg.IdleTimeLimit != nil && d > *r.cfg.IdleTimeLimit {
		d = *r.cfg.IdleTimeLimit
	}
	return d
}

func (r *Recorder) writeEvent(code, data string) error {
	return r.writeLine([]any{r.interval(), code, data})
}

func (r *Recorder) writeExit(status int) error {
	return r.writeLine([]any{r.interval(), "x", status})
}

// handleEvent applies one broadcast event to the recording. Init and
// Snapshot are never delivered here (they are never placed on the bus);
// if one arrives regardless it is ignored defensively.
func (r *Recorder) handleEvent(ev session.Event) error {
	switch e := ev.(type) {
	case session.OutputEvent:
		return r.writeEvent("o", e.Data)
	case session.InputEvent:
		if !r.cfg.CaptureInput {
			return nil
		}
		return r.writeEvent("i", e.Data)
	case session.ResizeEvent:
		return r.writeEvent("r", fmt.Sprintf("%dx%d", e.Cols, e.Rows))
	case session.MarkerEvent:
		return r.writeEvent("m", e.Label)
	case session.ExitEvent:
		return r.writeExit(e.Status)
	default:
		return nil
	}
}

// Run consumes events from sub until the bus closes, ctx is done, or a
// write fails. A lagged subscriber logs the skip count and continues; it
// is a recoverable, per-consumer condition. On write failure the
// recorder logs and returns: the session itself is unaffected.
func (r *Recorder) Run(ctx context.Context, sub *eventbus.Subscriber[session.Event]) error {
	defer r.w.Flush()
	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lag *eventbus.LagError
			switch {
			case errors.Is(err, eventbus.ErrClosed):
				return nil
			case errors.As(err, &lag):
				slog.Warn("recorder lagged", "skipped", lag.Skipped)
				continue
			default:
				return nil
			}
		}
		if err := r.handleEvent(ev); err != nil {
			slog.Error("recorder write failed, stopping recording", "err", err, "written", humanize.Bytes(r.bytesWritten))
			return err
		}
	}
}

// Close flushes and closes the underlying file.
func (r *Recorder) Close() error {
	if err := r.w.Flush(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
