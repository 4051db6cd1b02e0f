// Package installid resolves the long-lived identifier a streaming client
// presents to an asciinema-compatible server as its pre-issued install
// identifier.
package installid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// defaultPath returns ~/.config/asciinema/install-id, the default
// fallback path.
func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("installid: home directory: %w", err)
	}
	return filepath.Join(home, ".config", "asciinema", "install-id"), nil
}

// Resolve returns the install identifier to use, in precedence order:
//  1. value, if non-empty (an explicit --install-id-value override)
//  2. the contents of path, if path is non-empty
//  3. the contents of ~/.config/asciinema/install-id
//
// Unlike the upstream reader, a missing file at the resolved path is not
// an error: a fresh UUID is generated and persisted there, so a first run
// does not require the operator to pre-provision the file by hand.
func Resolve(path, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("installid: read %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := persist(path, id); err != nil {
		return "", err
	}
	return id, nil
}

func persist(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("installid: create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("installid: write %s: %w", path, err)
	}
	return nil
}
