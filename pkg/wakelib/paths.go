package wakelib

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDataDir returns the per-user application data directory for the
// current platform. The directory is not created by this function.
//
//	Windows: %APPDATA%\ChronoWake
//	macOS:   ~/Library/Application Support/ChronoWake
//	Linux:   $XDG_DATA_HOME/chronowake or ~/.local/share/chronowake
func AppDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "ChronoWake")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "ChronoWake")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "ChronoWake")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "chronowake")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "chronowake")
	}
}

// SequenceDir returns the directory holding saved sequence documents.
func SequenceDir() string {
	return filepath.Join(AppDataDir(), "sequences")
}

// LogDir returns the directory used for file logging of fired alarms.
func LogDir() string {
	return filepath.Join(AppDataDir(), "logs")
}

// SettingsPath returns the location of the settings document.
func SettingsPath() string {
	return filepath.Join(AppDataDir(), "settings.json")
}

// HistoryPath returns the location of the fire-history database.
func HistoryPath() string {
	return filepath.Join(AppDataDir(), "history.db")
}

// LaunchAgentsDir returns the user LaunchAgents directory on macOS.
// The path is computed on every platform so it can be exercised in tests.
func LaunchAgentsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents")
}
