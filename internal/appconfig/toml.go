package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileDefaults is a small TOML struct decoded once at startup to seed
// flag defaults, not a general-purpose config store. Fields are
// optional; anything absent falls back to the hardcoded flag default.
type fileDefaults struct {
	Size      string   `toml:"size"`
	Listen    string   `toml:"listen"`
	Subscribe []string `toml:"subscribe"`

	Record struct {
		Out           string   `toml:"out"`
		Title         string   `toml:"title"`
		IdleTimeLimit *float64 `toml:"idle_time_limit"`
		CaptureInput  bool     `toml:"capture_input"`
		CaptureEnv    []string `toml:"capture_env"`
		ThemeFg       string   `toml:"theme_fg"`
		ThemeBg       string   `toml:"theme_bg"`
		TermType      string   `toml:"term_type"`
	} `toml:"record"`

	Stream struct {
		Server       string `toml:"server"`
		InstallIDPath string `toml:"install_id_path"`
		Title        string `toml:"title"`
		Visibility   string `toml:"visibility"`
		Protocol     string `toml:"protocol"`
		CaptureInput bool   `toml:"capture_input"`
		ThemeFg      string `toml:"theme_fg"`
		ThemeBg      string `toml:"theme_bg"`
		TermType     string `toml:"term_type"`
	} `toml:"stream"`
}

// defaultsPath returns ~/.config/htcast/config.toml.
func defaultsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("appconfig: home directory: %w", err)
	}
	return filepath.Join(home, ".config", "htcast", "config.toml"), nil
}

// loadFileDefaults reads the TOML defaults file if present. A missing
// file is not an error: every field simply stays at its zero value and
// the hardcoded flag defaults apply.
func loadFileDefaults() (fileDefaults, error) {
	var cfg fileDefaults
	path, err := defaultsPath()
	if err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return fileDefaults{}, nil
		}
		return cfg, fmt.Errorf("appconfig: decode %s: %w", path, err)
	}
	return cfg, nil
}

func strOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
