// Package appconfig is the CLI surface: a root command plus record/stream
// subcommands, built on spf13/cobra + spf13/pflag, seeded from an
// optional TOML defaults file.
package appconfig

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Mode discriminates which of the three CLI surfaces was invoked.
type Mode int

const (
	ModeRun Mode = iota
	ModeRecord
	ModeStream
)

// RecordOptions holds the record subcommand's flags.
type RecordOptions struct {
	Out           string
	Append        bool
	IdleTimeLimit *float64
	Title         string
	CaptureInput  bool
	TermType      string
	ThemeFg       string
	ThemeBg       string
	CaptureEnv    []string
}

// StreamOptions holds the stream subcommand's flags.
type StreamOptions struct {
	Server         string
	InstallIDPath  string
	InstallIDValue string
	Title          string
	Visibility     string
	Protocol       string
	CaptureInput   bool
	TermType       string
	ThemeFg        string
	ThemeBg        string
}

// Config is the fully parsed CLI invocation, ready for cmd/htcast to act
// on: the global flags (shared by every mode) plus whichever subcommand's
// options were selected.
type Config struct {
	Mode Mode

	Size          Size
	Listen        string
	ListenEnabled bool
	Subscribe     []string
	Command       []string

	Record RecordOptions
	Stream StreamOptions
}

const listenAutoAddr = "127.0.0.1:0"

// Parse builds the cobra command tree, seeds its defaults from the
// optional TOML file, parses args (typically os.Args[1:]), and returns
// the resulting Config. It never calls os.Exit: cobra's usage/help
// output is written to cmd.OutOrStdout, and parse errors are returned to
// the caller to handle, so configuration errors map to a non-zero exit
// code before the child process ever starts.
func Parse(args []string) (*Config, error) {
	defaults, err := loadFileDefaults()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Size: DefaultSize}

	root := &cobra.Command{
		Use:           "htcast [flags] [CMD...]",
		Short:         "Record and stream a headless terminal session",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, extraArgs []string) error {
			cfg.Mode = ModeRun
			cfg.Command = commandOrDefault(extraArgs)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.Var(&sizeValue{target: &cfg.Size}, "size", "terminal size")
	if defaults.Size != "" {
		if parsed, err := ParseSize(defaults.Size); err == nil {
			cfg.Size = parsed
		}
	}

	flags.StringVar(&cfg.Listen, "listen", defaults.Listen, "enable HTTP server, optionally on ADDR:PORT")
	flags.Lookup("listen").NoOptDefVal = listenAutoAddr

	var subscribe string
	flags.StringVar(&subscribe, "subscribe", joinOrEmpty(defaults.Subscribe), "comma-separated event types to print on stdout")

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record a terminal session to an asciicast v3 file",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, extraArgs []string) error {
			cfg.Mode = ModeRecord
			cfg.Command = commandOrDefault(extraArgs)
			if cfg.Record.Out == "" {
				return fmt.Errorf("appconfig: record requires --out")
			}
			return nil
		},
	}
	rf := recordCmd.Flags()
	rf.StringVarP(&cfg.Record.Out, "out", "o", defaults.Record.Out, "output file path")
	rf.BoolVar(&cfg.Record.Append, "append", false, "append to existing recording")
	var idleTimeLimit float64
	if defaults.Record.IdleTimeLimit != nil {
		idleTimeLimit = *defaults.Record.IdleTimeLimit
	}
	rf.Float64Var(&idleTimeLimit, "idle-time-limit", idleTimeLimit, "limit recorded idle time to max seconds")
	rf.StringVar(&cfg.Record.Title, "title", defaults.Record.Title, "recording title")
	rf.BoolVar(&cfg.Record.CaptureInput, "capture-input", defaults.Record.CaptureInput, "capture input (off by default for privacy)")
	rf.StringVar(&cfg.Record.TermType, "term-type", defaults.Record.TermType, "terminal type (e.g. xterm-256color)")
	rf.StringVar(&cfg.Record.ThemeFg, "theme-fg", defaults.Record.ThemeFg, "theme: fg color (#RRGGBB)")
	rf.StringVar(&cfg.Record.ThemeBg, "theme-bg", defaults.Record.ThemeBg, "theme: bg color (#RRGGBB)")
	var captureEnv string
	rf.StringVar(&captureEnv, "capture-env", joinOrEmpty(defaults.Record.CaptureEnv), "comma-separated environment variables to capture")

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream a terminal session to an asciinema-compatible server",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, extraArgs []string) error {
			cfg.Mode = ModeStream
			cfg.Command = commandOrDefault(extraArgs)
			if cfg.Stream.Server == "" {
				return fmt.Errorf("appconfig: stream requires --server")
			}
			return nil
		},
	}
	sf := streamCmd.Flags()
	sf.StringVarP(&cfg.Stream.Server, "server", "s", defaults.Stream.Server, "server base URL (e.g. https://asciinema.org)")
	sf.StringVar(&cfg.Stream.InstallIDPath, "install-id-path", defaults.Stream.InstallIDPath, "path to install-id file")
	sf.StringVar(&cfg.Stream.InstallIDValue, "install-id-value", "", "install id value (alternative to --install-id-path)")
	sf.StringVar(&cfg.Stream.Title, "title", defaults.Stream.Title, "stream title")
	sf.StringVar(&cfg.Stream.Visibility, "visibility", defaults.Stream.Visibility, "stream visibility (public, unlisted, private)")
	sf.StringVar(&cfg.Stream.Protocol, "protocol", strOr(defaults.Stream.Protocol, "alis"), "protocol to use (alis or v3)")
	sf.BoolVar(&cfg.Stream.CaptureInput, "capture-input", defaults.Stream.CaptureInput, "capture input (off by default for privacy)")
	sf.StringVar(&cfg.Stream.TermType, "term-type", defaults.Stream.TermType, "terminal type (e.g. xterm-256color)")
	sf.StringVar(&cfg.Stream.ThemeFg, "theme-fg", defaults.Stream.ThemeFg, "theme: fg color (#RRGGBB)")
	sf.StringVar(&cfg.Stream.ThemeBg, "theme-bg", defaults.Stream.ThemeBg, "theme: bg color (#RRGGBB)")

	root.AddCommand(recordCmd, streamCmd)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return nil, err
	}

	cfg.ListenEnabled = root.PersistentFlags().Changed("listen")
	cfg.Subscribe = splitOrNil(subscribe)
	cfg.Record.CaptureEnv = splitOrNil(captureEnv)
	if rf.Changed("idle-time-limit") || defaults.Record.IdleTimeLimit != nil {
		cfg.Record.IdleTimeLimit = &idleTimeLimit
	}

	return cfg, nil
}

func commandOrDefault(args []string) []string {
	if len(args) == 0 {
		return []string{"bash"}
	}
	return args
}
