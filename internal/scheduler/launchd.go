package scheduler

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"howett.net/plist"

	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// Environment variable keys used to duplicate job metadata into each
// plist. launchd's structured format means listing and deletion never
// have to re-parse command lines; the env dict is authoritative.
const (
	envSequence = "CW_SEQUENCE"
	envTime     = "CW_TIME"
	envJobID    = "CW_JOB_ID"
	envOneTime  = "CW_ONE_TIME"
	envDays     = "CW_DAYS"

	envDaysDaily = "DAILY"
)

// LaunchdAdapter stores alarms as one property-list file per job in the
// user LaunchAgents directory and registers them with the live launchd
// via launchctl. Ownership is proven by the job label prefix.
//
// Registration is attempted only after the plist is durably on disk, and
// a registration failure does not roll the file back: the alarm stays
// visible and removable, flagged as possibly not firing. Losing user
// data over a transient launchctl error would be worse than a stale
// listing entry.
type LaunchdAdapter struct {
	fs        afero.Fs
	runner    wakelib.CommandRunner
	log       logger.Logger
	exe       string
	dir       string
	prefix    string
	available bool

	newJobID func() string
}

// launchdPlist is the on-disk job record.
type launchdPlist struct {
	Label                 string            `plist:"Label"`
	ProgramArguments      []string          `plist:"ProgramArguments"`
	StartCalendarInterval interface{}       `plist:"StartCalendarInterval"`
	EnvironmentVariables  map[string]string `plist:"EnvironmentVariables"`
}

// calendarInterval is one StartCalendarInterval dict. A one-time job
// carries Month+Day; a daily job carries neither; a weekday-restricted
// job is encoded as an array of these, one per weekday.
type calendarInterval struct {
	Month   int  `plist:"Month,omitempty"`
	Day     int  `plist:"Day,omitempty"`
	Weekday *int `plist:"Weekday,omitempty"`
	Hour    int  `plist:"Hour"`
	Minute  int  `plist:"Minute"`
}

// NewLaunchdAdapter creates the adapter rooted at the LaunchAgents
// directory. Construction never fails; an uncreatable directory leaves
// the adapter disabled.
func NewLaunchdAdapter(fs afero.Fs, runner wakelib.CommandRunner, log logger.Logger, exe, dir, prefix string) *LaunchdAdapter {
	a := &LaunchdAdapter{
		fs:       fs,
		runner:   runner,
		log:      log,
		exe:      exe,
		dir:      dir,
		prefix:   prefix,
		newJobID: uuid.NewString,
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		log.Error("LaunchAgents directory not accessible: %v", err)
		return a
	}
	a.available = true
	return a
}

func (a *LaunchdAdapter) label(jobID string) string {
	return a.prefix + "." + jobID
}

func (a *LaunchdAdapter) plistPath(jobID string) string {
	return filepath.Join(a.dir, a.label(jobID)+".plist")
}

// AddAlarm implements Adapter.
func (a *LaunchdAdapter) AddAlarm(at time.Time, sequence string, days []string, oneTime bool) (bool, string) {
	if !a.available {
		return false, "launchd not available, check logs for details"
	}

	// Every launchd job needs a unique label, so a job id is minted even
	// for recurring alarms; only one-time jobs embed it into the command
	// line for later self-deletion.
	jobID := a.newJobID()
	clock := wakelib.FormatClockPadded(at.Hour(), at.Minute())
	args := wakelib.InvocationArgs(sequence, oneTime, jobID, clock)

	env := map[string]string{
		envSequence: sequence,
		envTime:     clock,
		envJobID:    jobID,
	}
	if oneTime {
		env[envOneTime] = "1"
	}
	var interval interface{}
	switch {
	case oneTime:
		interval = calendarInterval{
			Month:  int(at.Month()),
			Day:    at.Day(),
			Hour:   at.Hour(),
			Minute: at.Minute(),
		}
	case len(days) == 0 || len(days) == 7:
		env[envDays] = envDaysDaily
		interval = calendarInterval{Hour: at.Hour(), Minute: at.Minute()}
	default:
		env[envDays] = strings.Join(days, ",")
		var dicts []calendarInterval
		for _, n := range wakelib.CronDayNumbers(days) {
			// launchd weekday numbering matches cron: 0 = Sunday.
			wd := n
			dicts = append(dicts, calendarInterval{
				Weekday: &wd,
				Hour:    at.Hour(),
				Minute:  at.Minute(),
			})
		}
		interval = dicts
	}

	job := launchdPlist{
		Label:                 a.label(jobID),
		ProgramArguments:      append([]string{a.exe}, args...),
		StartCalendarInterval: interval,
		EnvironmentVariables:  env,
	}
	data, err := plist.MarshalIndent(job, plist.XMLFormat, "\t")
	if err != nil {
		a.log.Error("plist marshal failed: %v", err)
		return false, fmt.Sprintf("launchd error: %v", err)
	}
	path := a.plistPath(jobID)
	if err := afero.WriteFile(a.fs, path, data, 0o644); err != nil {
		a.log.Error("plist write failed: %v", err)
		return false, fmt.Sprintf("launchd error: %v", err)
	}

	// The plist is durable; registering with the live launchd comes
	// second and is deliberately not rolled back on failure.
	if _, err := a.runner.Run("launchctl", "load", path); err != nil {
		a.log.Warning("launchctl load failed for %s: %v", path, err)
		return true, fmt.Sprintf("Alarm saved for %s, but launchd registration failed; it may not fire until next login", clock)
	}

	msg := fmt.Sprintf("Alarm set for %s via launchd", clock)
	a.log.Info("%s | label: %s", msg, job.Label)
	return true, msg
}

// readJob loads and parses one plist file.
func (a *LaunchdAdapter) readJob(path string) (launchdPlist, bool) {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return launchdPlist{}, false
	}
	var job launchdPlist
	if _, err := plist.Unmarshal(data, &job); err != nil {
		return launchdPlist{}, false
	}
	return job, true
}

// ownedPlists returns the paths of all job files carrying our label
// prefix, sorted for deterministic scan order.
func (a *LaunchdAdapter) ownedPlists() []string {
	infos, err := afero.ReadDir(a.fs, a.dir)
	if err != nil {
		a.log.Error("LaunchAgents read failed: %v", err)
		return nil
	}
	var paths []string
	for _, fi := range infos {
		name := fi.Name()
		if fi.IsDir() || !strings.HasPrefix(name, a.prefix+".") || !strings.HasSuffix(name, ".plist") {
			continue
		}
		paths = append(paths, filepath.Join(a.dir, name))
	}
	sort.Strings(paths)
	return paths
}

// loadedLabels queries the live launchd for registered labels. On any
// failure the result is nil and callers treat every job as not loaded.
func (a *LaunchdAdapter) loadedLabels() map[string]bool {
	out, err := a.runner.Run("launchctl", "list")
	if err != nil {
		a.log.Warning("launchctl list failed: %v", err)
		return nil
	}
	labels := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			labels[fields[len(fields)-1]] = true
		}
	}
	return labels
}

// ListAlarms implements Adapter. Metadata comes from the env dict; a
// plist that fails to parse is skipped, never fatal.
func (a *LaunchdAdapter) ListAlarms() []wakelib.AlarmInfo {
	if !a.available {
		return nil
	}
	loaded := a.loadedLabels()
	var alarms []wakelib.AlarmInfo
	for _, path := range a.ownedPlists() {
		job, ok := a.readJob(path)
		if !ok {
			a.log.Info("skipping unparseable plist: %s", path)
			continue
		}
		info, ok := launchdJobInfo(job)
		if !ok {
			a.log.Info("skipping plist without metadata: %s", path)
			continue
		}
		info.Enabled = loaded[job.Label]
		alarms = append(alarms, info)
	}
	return alarms
}

func launchdJobInfo(job launchdPlist) (wakelib.AlarmInfo, bool) {
	env := job.EnvironmentVariables
	sequence := env[envSequence]
	hour, minute, err := wakelib.ParseClock(env[envTime])
	if sequence == "" || err != nil {
		return wakelib.AlarmInfo{}, false
	}
	var days []string
	switch {
	case env[envOneTime] == "1":
		days = []string{wakelib.DayOnce}
	case env[envDays] == envDaysDaily || env[envDays] == "":
		days = []string{wakelib.DayDaily}
	default:
		days = strings.Split(env[envDays], ",")
	}
	return wakelib.AlarmInfo{
		Time:     wakelib.FormatClock(hour, minute),
		Sequence: sequence,
		Days:     days,
	}, true
}

// unloadAndRemove unregisters a job from the live launchd (best effort)
// and deletes its plist.
func (a *LaunchdAdapter) unloadAndRemove(path string) error {
	if _, err := a.runner.Run("launchctl", "unload", path); err != nil {
		a.log.Warning("launchctl unload failed for %s: %v", path, err)
	}
	return a.fs.Remove(path)
}

// RemoveAlarm implements Adapter.
func (a *LaunchdAdapter) RemoveAlarm(sequence, clock, daysLabel string) (bool, string) {
	if !a.available {
		return false, "launchd not available"
	}
	hour, minute, err := wakelib.ParseClock(clock)
	if err != nil {
		return false, err.Error()
	}
	want := wakelib.FormatClock(hour, minute)

	for _, path := range a.ownedPlists() {
		job, ok := a.readJob(path)
		if !ok {
			continue
		}
		info, ok := launchdJobInfo(job)
		if !ok || info.Sequence != sequence || info.Time != want {
			continue
		}
		if daysLabel != "" && strings.Join(info.Days, ", ") != daysLabel {
			continue
		}
		if err := a.unloadAndRemove(path); err != nil {
			a.log.Error("plist removal failed: %v", err)
			return false, fmt.Sprintf("launchd error: %v", err)
		}
		return true, fmt.Sprintf("Removed alarm: %s", sequence)
	}
	return false, fmt.Sprintf("alarm %q at %s not found in launchd", sequence, clock)
}

// RemoveFired implements Adapter, running the three matching tiers
// against the LaunchAgents directory.
func (a *LaunchdAdapter) RemoveFired(sequence, jobID, scheduledTime string) (bool, string) {
	if !a.available {
		return false, "launchd not available"
	}

	// Tier 1: the job id names the plist file directly.
	if jobID != "" {
		path := a.plistPath(jobID)
		if _, err := a.fs.Stat(path); err == nil {
			if err := a.unloadAndRemove(path); err != nil {
				a.log.Error("plist removal failed: %v", err)
				return false, fmt.Sprintf("launchd error: %v", err)
			}
			a.log.Info("deleted launchd job by id %s", jobID)
			return true, fmt.Sprintf("Removed one-time alarm %s by job id", sequence)
		}
	}

	// Tier 2: scheduled-time match on the env metadata.
	if scheduledTime != "" {
		for _, path := range a.ownedPlists() {
			job, ok := a.readJob(path)
			if !ok {
				continue
			}
			env := job.EnvironmentVariables
			if env[envSequence] == sequence && env[envOneTime] == "1" && env[envTime] == scheduledTime {
				if err := a.unloadAndRemove(path); err != nil {
					a.log.Error("plist removal failed: %v", err)
					return false, fmt.Sprintf("launchd error: %v", err)
				}
				a.log.Info("deleted launchd job for %s by time match", sequence)
				return true, fmt.Sprintf("Removed one-time alarm %s by time match", sequence)
			}
		}
	}

	// Tier 3: unsafe soft match.
	if jobID == "" && scheduledTime == "" {
		for _, path := range a.ownedPlists() {
			job, ok := a.readJob(path)
			if !ok {
				continue
			}
			env := job.EnvironmentVariables
			if env[envSequence] == sequence && env[envOneTime] == "1" {
				if err := a.unloadAndRemove(path); err != nil {
					a.log.Error("plist removal failed: %v", err)
					return false, fmt.Sprintf("launchd error: %v", err)
				}
				a.log.Warning("soft-match deletion removed launchd job %s for %q; "+
					"with several pending one-time alarms this may have been the wrong one", job.Label, sequence)
				return true, fmt.Sprintf("Removed one-time alarm %s by soft match", sequence)
			}
		}
	}

	return false, fmt.Sprintf("no matching launchd job found for %q", sequence)
}

// DebugInfo implements Adapter.
func (a *LaunchdAdapter) DebugInfo() string {
	info := []string{"=== Launchd Debug Info ==="}
	info = append(info, fmt.Sprintf("LaunchAgents dir: %s", a.dir))
	info = append(info, fmt.Sprintf("Label prefix: %s", a.prefix))
	info = append(info, fmt.Sprintf("Launchd available: %v", a.available))
	if !a.available {
		return strings.Join(info, "\n")
	}

	infos, err := afero.ReadDir(a.fs, a.dir)
	if err != nil {
		info = append(info, fmt.Sprintf("LaunchAgents read failed: %v", err))
	} else {
		info = append(info, "", "All LaunchAgents entries:")
		for _, fi := range infos {
			tag := ""
			if strings.HasPrefix(fi.Name(), a.prefix+".") {
				tag = " [OURS]"
			}
			info = append(info, "  "+fi.Name()+tag)
		}
	}
	for _, path := range a.ownedPlists() {
		if job, ok := a.readJob(path); ok {
			info = append(info, fmt.Sprintf("  %s env=%v args=%v",
				job.Label, job.EnvironmentVariables, job.ProgramArguments))
		}
	}
	if out, err := a.runner.Run("launchctl", "list"); err == nil {
		info = append(info, "", "launchctl list:", out)
	}
	return strings.Join(info, "\n")
}

var _ Adapter = (*LaunchdAdapter)(nil)
