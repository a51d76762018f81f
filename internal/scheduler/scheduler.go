package scheduler

import (
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// MsgNoScheduler is returned by every facade method when no platform
// adapter could be constructed.
const MsgNoScheduler = "no platform scheduler available"

// Adapter is the contract every platform scheduler implementation
// satisfies. Methods never panic and never return Go errors across this
// boundary: failures come back as (false, message) or empty values so
// the UI layer only ever has to present a string.
type Adapter interface {
	// AddAlarm registers an alarm with the native facility. For one-time
	// alarms the trigger is the calendar date of at; for recurring alarms
	// only the clock time of at matters and days restricts the weekdays
	// (empty means daily).
	AddAlarm(at time.Time, sequence string, days []string, oneTime bool) (bool, string)

	// ListAlarms returns all alarms owned by this application, skipping
	// records that fail to parse. Foreign records in the same native
	// namespace are never returned.
	ListAlarms() []wakelib.AlarmInfo

	// RemoveAlarm removes the first owned record matching sequence and
	// clock time (and days label, when given). At most one record is
	// removed per call.
	RemoveAlarm(sequence, clock, daysLabel string) (bool, string)

	// RemoveFired removes the registration of a fired one-time alarm,
	// trying job-id, scheduled-time and finally an unsafe soft match.
	// Invoked from the short-lived process the native scheduler spawned,
	// which shares nothing with the UI process but the native job store.
	RemoveFired(sequence, jobID, scheduledTime string) (bool, string)

	// DebugInfo dumps raw native state for troubleshooting. Never fails;
	// problems are reported inside the returned text.
	DebugInfo() string
}

// Options carries the dependencies an adapter needs. Zero fields are
// filled with production defaults by New.
type Options struct {
	// Exe is the executable path embedded into native job command lines.
	Exe string

	// Settings is the loaded application configuration.
	Settings wakelib.Settings

	// Fs is the filesystem used by file-backed facilities (launchd
	// plists, Task Scheduler XML staging).
	Fs afero.Fs

	// Runner executes native tools (crontab, launchctl, schtasks).
	Runner wakelib.CommandRunner
}

func (o *Options) withDefaults() {
	if o.Exe == "" {
		exe, err := os.Executable()
		if err == nil {
			o.Exe = exe
		}
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Runner == nil {
		o.Runner = wakelib.ExecRunner{}
	}
}

// AlarmScheduler is the unified facade over the platform adapters. It is
// the only scheduling entry point the rest of the application may use.
type AlarmScheduler struct {
	platform Adapter
	log      logger.Logger
}

// New constructs the facade, selecting the adapter for the running OS.
// On unsupported platforms, or when the native facility is unreachable,
// the facade still constructs and every method returns its safe default.
func New(opts Options, log logger.Logger) *AlarmScheduler {
	opts.withDefaults()
	adapter := newPlatformAdapter(opts, log)
	if adapter == nil {
		log.Error("no scheduler adapter for this platform")
	}
	return &AlarmScheduler{platform: adapter, log: log}
}

// NewWithAdapter wraps a specific adapter. Used by tests and by the
// fired-process deletion path when the adapter is already known.
func NewWithAdapter(adapter Adapter, log logger.Logger) *AlarmScheduler {
	return &AlarmScheduler{platform: adapter, log: log}
}

// Available reports whether a platform adapter was constructed.
func (s *AlarmScheduler) Available() bool {
	return s.platform != nil
}

// AddAlarm forwards to the platform adapter.
func (s *AlarmScheduler) AddAlarm(at time.Time, sequence string, days []string, oneTime bool) (bool, string) {
	if s.platform == nil {
		return false, MsgNoScheduler
	}
	return s.platform.AddAlarm(at, sequence, days, oneTime)
}

// ListAlarms forwards to the platform adapter.
func (s *AlarmScheduler) ListAlarms() []wakelib.AlarmInfo {
	if s.platform == nil {
		return nil
	}
	return s.platform.ListAlarms()
}

// RemoveAlarm forwards to the platform adapter.
func (s *AlarmScheduler) RemoveAlarm(sequence, clock, daysLabel string) (bool, string) {
	if s.platform == nil {
		return false, MsgNoScheduler
	}
	return s.platform.RemoveAlarm(sequence, clock, daysLabel)
}

// RemoveFired forwards to the platform adapter.
func (s *AlarmScheduler) RemoveFired(sequence, jobID, scheduledTime string) (bool, string) {
	if s.platform == nil {
		return false, MsgNoScheduler
	}
	return s.platform.RemoveFired(sequence, jobID, scheduledTime)
}

// DebugInfo forwards to the platform adapter.
func (s *AlarmScheduler) DebugInfo() string {
	if s.platform == nil {
		return "debug info not available for this platform"
	}
	return s.platform.DebugInfo()
}
