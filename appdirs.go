/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDirectory returns the per-user application data directory of
// modelName: Application Support on macOS, %AppData% on Windows and
// $XDG_DATA_HOME (default ~/.local/share) elsewhere.
func DefaultDirectory(modelName string) (string, error) {
	base, err := dataHome()
	if err != nil {
		return "", fmt.Errorf("failed to resolve application data directory: %w", err)
	}
	return filepath.Join(base, modelName), nil
}

func dataHome() (string, error) {
	switch runtime.GOOS {
	case "darwin", "ios", "windows", "plan9":
		return os.UserConfigDir()
	}

	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
