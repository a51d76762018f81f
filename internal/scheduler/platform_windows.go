//go:build windows

package scheduler

import "github.com/chronowake/chronowake/pkg/logger"

// newPlatformAdapter selects the Task Scheduler adapter on Windows.
func newPlatformAdapter(opts Options, log logger.Logger) Adapter {
	return NewTaskSchedulerAdapter(opts.Fs, opts.Runner, log, opts.Exe)
}
