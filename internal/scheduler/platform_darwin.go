//go:build darwin

package scheduler

import (
	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// newPlatformAdapter selects launchd on macOS. macOS still ships cron,
// so the settings key "macos_use_cron" switches to the cron adapter for
// users who prefer a single facility across their machines.
func newPlatformAdapter(opts Options, log logger.Logger) Adapter {
	if opts.Settings.MacOSUseCron {
		return NewCronAdapter(opts.Runner, log, opts.Exe)
	}
	return NewLaunchdAdapter(opts.Fs, opts.Runner, log, opts.Exe,
		wakelib.LaunchAgentsDir(), opts.Settings.EffectiveLabelPrefix())
}
