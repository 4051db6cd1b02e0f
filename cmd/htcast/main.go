// Command htcast spawns a child process attached to a pseudo-terminal and
// makes its input, output, and terminal state observable through a
// stdin/stdout control protocol, an HTTP router, an on-disk recording, or
// a remote stream — the wiring point for every package under internal/:
// load config, build the collaborators, and start whichever consumer
// tasks the invocation asked for.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/user/htcast/internal/appconfig"
	"github.com/user/htcast/internal/control"
	"github.com/user/htcast/internal/httpapi"
	"github.com/user/htcast/internal/installid"
	"github.com/user/htcast/internal/ptydriver"
	"github.com/user/htcast/internal/recorder"
	"github.com/user/htcast/internal/session"
	"github.com/user/htcast/internal/streamer"
	"github.com/user/htcast/internal/vt"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := appconfig.Parse(os.Args[1:])
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("htcast: fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := ptydriver.Spawn(cfg.Command, "", nil, uint16(cfg.Size.Cols), uint16(cfg.Size.Rows))
	if err != nil {
		return fmt.Errorf("htcast: spawn %v: %w", cfg.Command, err)
	}
	defer driver.Close()

	vtModel := vt.New(cfg.Size.Cols, cfg.Size.Rows)
	sess := session.New(vtModel, driver, driver.PID(), captureInputFor(cfg))

	printBanner(cfg, driver.PID())

	var wg sync.WaitGroup
	var ready []<-chan struct{}

	if cfg.ListenEnabled {
		if err := startHTTPServer(ctx, &wg, cfg, sess); err != nil {
			return err
		}
	}

	if len(cfg.Subscribe) > 0 {
		ready = append(ready, startControlSurfaces(ctx, &wg, cfg, sess))
	}

	switch cfg.Mode {
	case appconfig.ModeRecord:
		if err := startRecorder(ctx, &wg, cfg, sess); err != nil {
			return err
		}
	case appconfig.ModeStream:
		r, err := startStreamer(ctx, &wg, cfg, sess)
		if err != nil {
			return err
		}
		ready = append(ready, r)
	}

	// Every from-start consumer started above either subscribes
	// synchronously before its start* function returns (the recorder) or
	// signals readiness on a channel once it has subscribed (the control
	// printer, the remote streamer). Only once all of them have done so
	// is it safe to let PTY output start flowing into the session, so the
	// opening bytes of the child's output are never dropped.
	waitReady(ctx, ready)
	pumpPTYIntoSession(ctx, &wg, driver, sess)

	wg.Wait()
	return nil
}

// waitReady blocks until every channel in ready has closed or ctx is
// done, whichever comes first.
func waitReady(ctx context.Context, ready []<-chan struct{}) {
	for _, r := range ready {
		select {
		case <-r:
		case <-ctx.Done():
			return
		}
	}
}

func captureInputFor(cfg *appconfig.Config) bool {
	switch cfg.Mode {
	case appconfig.ModeRecord:
		return cfg.Record.CaptureInput
	case appconfig.ModeStream:
		return cfg.Stream.CaptureInput
	default:
		return false
	}
}

// pumpPTYIntoSession forwards the PTY driver's output chunks and exit
// status into the session core; it is split out as its own task since
// the session core owns the VT model while ptydriver only owns the
// child process.
func pumpPTYIntoSession(ctx context.Context, wg *sync.WaitGroup, driver *ptydriver.Driver, sess *session.Session) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		output := driver.Output()
		exit := driver.Exit()
		for output != nil || exit != nil {
			select {
			case chunk, ok := <-output:
				if !ok {
					output = nil
					continue
				}
				sess.Output(chunk)
			case status, ok := <-exit:
				if !ok {
					exit = nil
					continue
				}
				sess.Exit(status)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// startControlSurfaces starts the stdout event printer and the stdin
// command reader, returning a channel closed once the printer has
// subscribed to sess.
func startControlSurfaces(ctx context.Context, wg *sync.WaitGroup, cfg *appconfig.Config, sess *session.Session) <-chan struct{} {
	printer := control.NewPrinter(os.Stdout, cfg.Subscribe...)
	reader := control.NewReader(sess, printer.WriteSnapshot)

	ready := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := printer.Run(ctx, sess, ready); err != nil {
			slog.Warn("control: printer stopped", "err", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reader.Run(os.Stdin); err != nil {
			slog.Warn("control: reader stopped", "err", err)
		}
	}()

	return ready
}

func startHTTPServer(ctx context.Context, wg *sync.WaitGroup, cfg *appconfig.Config, sess *session.Session) error {
	addr := cfg.Listen
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("htcast: listen %s: %w", addr, err)
	}

	opts := httpapi.Options{
		Theme:        themeFromHex(themeFgBg(cfg)),
		CaptureInput: captureInputFor(cfg),
	}
	if cfg.Mode == appconfig.ModeRecord {
		opts.Title = cfg.Record.Title
		opts.TermType = cfg.Record.TermType
	} else if cfg.Mode == appconfig.ModeStream {
		opts.Title = cfg.Stream.Title
		opts.TermType = cfg.Stream.TermType
	}

	router := httpapi.NewRouter(ctx, sess, opts)
	srv := &http.Server{Handler: router}

	fmt.Printf("htcast listening at http://%s\n", ln.Addr())

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("httpapi: server error", "err", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return nil
}

func themeFgBg(cfg *appconfig.Config) (fg, bg string) {
	if cfg.Mode == appconfig.ModeRecord {
		return cfg.Record.ThemeFg, cfg.Record.ThemeBg
	}
	if cfg.Mode == appconfig.ModeStream {
		return cfg.Stream.ThemeFg, cfg.Stream.ThemeBg
	}
	return "", ""
}

func themeFromHex(fg, bg string) *streamer.Theme {
	if fg == "" && bg == "" {
		return nil
	}
	return &streamer.Theme{Fg: fg, Bg: bg}
}

func startRecorder(ctx context.Context, wg *sync.WaitGroup, cfg *appconfig.Config, sess *session.Session) error {
	if cfg.Record.Out == "" {
		return fmt.Errorf("htcast: record mode requires --out")
	}

	env := make(map[string]string, len(cfg.Record.CaptureEnv))
	for _, name := range cfg.Record.CaptureEnv {
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}

	init, sub := sess.Subscribe()
	rec, err := recorder.New(recorder.Config{
		OutputPath:    cfg.Record.Out,
		Append:        cfg.Record.Append,
		IdleTimeLimit: cfg.Record.IdleTimeLimit,
		Title:         cfg.Record.Title,
		Command:       strings.Join(cfg.Command, " "),
		CaptureEnv:    envNames(env),
		Theme:         recorderTheme(cfg.Record.ThemeFg, cfg.Record.ThemeBg),
		TermType:      cfg.Record.TermType,
		CaptureInput:  cfg.Record.CaptureInput,
	}, init)
	if err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer rec.Close()
		if err := rec.Run(ctx, sub); err != nil {
			slog.Error("recorder stopped", "err", err)
		}
	}()
	return nil
}

func envNames(env map[string]string) []string {
	names := make([]string, 0, len(env))
	for k := range env {
		names = append(names, k)
	}
	return names
}

func recorderTheme(fg, bg string) *recorder.Theme {
	if fg == "" && bg == "" {
		return nil
	}
	return &recorder.Theme{Fg: fg, Bg: bg}
}

// startStreamer starts the remote streaming task, returning a channel
// closed once it has subscribed to sess (or failed before getting that
// far).
func startStreamer(ctx context.Context, wg *sync.WaitGroup, cfg *appconfig.Config, sess *session.Session) (<-chan struct{}, error) {
	if cfg.Stream.Server == "" {
		return nil, fmt.Errorf("htcast: stream mode requires --server")
	}

	id, err := installid.Resolve(cfg.Stream.InstallIDPath, cfg.Stream.InstallIDValue)
	if err != nil {
		return nil, err
	}

	protocol := streamer.ProtocolALiS
	if cfg.Stream.Protocol == "v3" {
		protocol = streamer.ProtocolAsciicastV3
	}

	remoteCfg := streamer.RemoteConfig{
		ServerURL:    cfg.Stream.Server,
		InstallID:    id,
		Title:        cfg.Stream.Title,
		Visibility:   cfg.Stream.Visibility,
		Protocol:     protocol,
		CaptureInput: cfg.Stream.CaptureInput,
		Theme:        themeFromHex(cfg.Stream.ThemeFg, cfg.Stream.ThemeBg),
		TermType:     cfg.Stream.TermType,
	}

	ready := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := streamer.Run(ctx, sess, remoteCfg, time.Now().Unix(), ready); err != nil {
			slog.Error("streamer stopped", "err", err)
		}
	}()
	return ready, nil
}

// printBanner writes the startup line naming the child command and PID.
// The HTTP listen address is printed separately by startHTTPServer.
// Colorized only when stdout is a real terminal, per go-isatty's role in
// the domain stack.
func printBanner(cfg *appconfig.Config, pid int) {
	line := fmt.Sprintf("htcast: running %s (pid %d)", strings.Join(cfg.Command, " "), pid)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		line = termenv.String(line).Bold().String()
	}
	fmt.Println(line)
}
