//go:build !linux && !darwin && !windows

package scheduler

import "github.com/chronowake/chronowake/pkg/logger"

// newPlatformAdapter returns nil on unsupported platforms; the facade
// degrades to its safe defaults.
func newPlatformAdapter(opts Options, log logger.Logger) Adapter {
	return nil
}
