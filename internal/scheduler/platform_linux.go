//go:build linux

package scheduler

import "github.com/chronowake/chronowake/pkg/logger"

// newPlatformAdapter selects the cron adapter on Linux.
func newPlatformAdapter(opts Options, log logger.Logger) Adapter {
	return NewCronAdapter(opts.Runner, log, opts.Exe)
}
