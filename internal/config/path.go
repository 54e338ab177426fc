package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataDir returns where hhdiag keeps its run history and local
// documents. hhdiag runs as the operator, so only per-user locations are
// considered.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "hhdiag")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./.hhdiag"
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "hhdiag")
	case "windows":
		return filepath.Join(homeDir, "AppData", "Local", "hhdiag")
	}

	// ~/.local/state/hhdiag when the XDG layout exists, else ~/.hhdiag
	if isDir(filepath.Join(homeDir, ".local")) {
		return filepath.Join(homeDir, ".local", "state", "hhdiag")
	}
	return filepath.Join(homeDir, ".hhdiag")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
