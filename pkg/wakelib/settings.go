package wakelib

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/afero"
)

// Settings is the persisted application configuration. All fields have
// usable zero values so a missing settings file behaves like defaults.
type Settings struct {
	// FileLoggingEnabled mirrors fired-process logs into LogDir so alarms
	// launched by cron or launchd are diagnosable after the fact.
	FileLoggingEnabled bool `json:"file_logging_enabled"`

	// SequenceDir overrides the default sequence store directory.
	SequenceDir string `json:"sequence_dir,omitempty"`

	// MacOSUseCron selects the cron adapter instead of launchd on macOS.
	MacOSUseCron bool `json:"macos_use_cron,omitempty"`

	// LaunchdLabelPrefix overrides the reverse-DNS label prefix used for
	// launchd jobs. Changing it orphans previously created jobs.
	LaunchdLabelPrefix string `json:"launchd_label_prefix,omitempty"`
}

// EffectiveSequenceDir resolves the sequence directory, falling back to
// the platform default.
func (s Settings) EffectiveSequenceDir() string {
	if s.SequenceDir != "" {
		return s.SequenceDir
	}
	return SequenceDir()
}

// EffectiveLabelPrefix resolves the launchd label prefix.
func (s Settings) EffectiveLabelPrefix() string {
	if s.LaunchdLabelPrefix != "" {
		return s.LaunchdLabelPrefix
	}
	return LaunchdLabelPrefix
}

// LoadSettings reads the settings document at path. A missing or
// unreadable file yields defaults, never an error: settings are advisory
// and must not stop the scheduler from working.
func LoadSettings(fs afero.Fs, path string) Settings {
	var s Settings
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}
	}
	return s
}

// SaveSettings writes the settings document atomically.
func SaveSettings(fs afero.Fs, path string, s Settings) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}
