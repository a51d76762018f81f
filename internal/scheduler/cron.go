package scheduler

import (
	"fmt"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// CronAdapter stores alarms as entries in the user crontab, driven
// through the crontab(1) read-all/write-all protocol. Ownership is
// proven by a trailing line comment: the bare marker for recurring
// alarms, "marker:job-id" for one-time ones.
//
// The crontab is a single shared mutable resource also touched by the
// fired-alarm process and by unrelated software; an advisory file lock
// serializes this process's own read-modify-write cycles, but a race
// with a foreign writer can still lose an update. That is an accepted
// limitation of the facility, not something this adapter can fix.
type CronAdapter struct {
	runner    wakelib.CommandRunner
	log       logger.Logger
	exe       string
	available bool
	lock      cronLocker

	// envPrefix is prepended to the stored command line so GUI actions
	// work from cron's bare environment. Linux only; empty elsewhere.
	envPrefix string

	// newJobID is swapped in tests for deterministic ids.
	newJobID func() string
}

// NewCronAdapter connects to the user crontab. Construction never fails:
// if crontab(1) is missing or denied, the adapter is created disabled
// and every method returns its documented failure value.
func NewCronAdapter(runner wakelib.CommandRunner, log logger.Logger, exe string) *CronAdapter {
	a := &CronAdapter{
		runner:   runner,
		log:      log,
		exe:      exe,
		lock:     newCronLocker(),
		newJobID: uuid.NewString,
	}
	if runtime.GOOS == "linux" {
		a.envPrefix = cronEnvPrefix()
	}
	if _, err := a.readTab(); err != nil {
		log.Error("crontab not accessible: %v", err)
		return a
	}
	a.available = true
	return a
}

// cronEnvPrefix builds the environment injection for cron command lines.
// Cron provides no DISPLAY or XDG_RUNTIME_DIR, so GUI actions (media
// players, notifications) would fail without these defaults.
func cronEnvPrefix() string {
	uid := "1000"
	if u, err := user.Current(); err == nil {
		uid = u.Uid
	}
	return fmt.Sprintf("DISPLAY=:0 XDG_RUNTIME_DIR=/run/user/%s ", uid)
}

// cronEntry is one parsed crontab line.
type cronEntry struct {
	minute, hour, dom, month, dow string
	command                       string
	comment                       string
	enabled                       bool
	raw                           string
}

// line renders the entry back into crontab text.
func (e cronEntry) line() string {
	s := fmt.Sprintf("%s %s %s %s %s %s", e.minute, e.hour, e.dom, e.month, e.dow, e.command)
	if e.comment != "" {
		s += " # " + e.comment
	}
	if !e.enabled {
		s = "# " + s
	}
	return s
}

func (e cronEntry) owned() bool {
	return wakelib.IsOwned(e.comment)
}

func (e cronEntry) clock() (hour, minute int, ok bool) {
	hour, err := strconv.Atoi(e.hour)
	if err != nil {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(e.minute)
	if err != nil {
		return 0, 0, false
	}
	return hour, minute, true
}

// parseCronLine parses a single crontab line into an entry. A line of
// the form "# M H ..." carrying our marker is a disabled entry (the
// convention used by crontab managers for toggled-off jobs); any other
// comment or unparseable line returns ok=false.
func parseCronLine(line string) (cronEntry, bool) {
	raw := line
	trimmed := strings.TrimSpace(line)
	enabled := true
	if strings.HasPrefix(trimmed, "#") {
		enabled = false
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 6 {
		return cronEntry{}, false
	}
	for _, f := range fields[:5] {
		if !isCronField(f) {
			return cronEntry{}, false
		}
	}
	rest := strings.Join(fields[5:], " ")
	command, comment := rest, ""
	if i := strings.LastIndex(rest, " # "); i >= 0 {
		command = rest[:i]
		comment = strings.TrimSpace(rest[i+3:])
	}
	return cronEntry{
		minute:  fields[0],
		hour:    fields[1],
		dom:     fields[2],
		month:   fields[3],
		dow:     fields[4],
		command: command,
		comment: comment,
		enabled: enabled,
		raw:     raw,
	}, true
}

func isCronField(f string) bool {
	for _, r := range f {
		switch {
		case r >= '0' && r <= '9':
		case r == '*' || r == ',' || r == '-' || r == '/':
		default:
			return false
		}
	}
	return f != ""
}

// readTab returns the current crontab lines. A user with no crontab yet
// reads as empty, not as an error.
func (a *CronAdapter) readTab() ([]string, error) {
	out, err := a.runner.Run("crontab", "-l")
	if err != nil {
		if strings.Contains(err.Error(), "no crontab") {
			return nil, nil
		}
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (a *CronAdapter) writeTab(lines []string) error {
	text := strings.Join(lines, "\n")
	if text != "" {
		text += "\n"
	}
	_, err := a.runner.RunInput(text, "crontab", "-")
	return err
}

// AddAlarm implements Adapter.
func (a *CronAdapter) AddAlarm(at time.Time, sequence string, days []string, oneTime bool) (bool, string) {
	if !a.available {
		return false, "crontab not available, check logs for details"
	}

	var jobID string
	if oneTime {
		jobID = a.newJobID()
	}
	clock := wakelib.FormatClockPadded(at.Hour(), at.Minute())
	args := wakelib.InvocationArgs(sequence, oneTime, jobID, clock)
	command := a.envPrefix + wakelib.QuoteCommand(a.exe, args)

	entry := cronEntry{
		minute:  strconv.Itoa(at.Minute()),
		hour:    strconv.Itoa(at.Hour()),
		dom:     "*",
		month:   "*",
		dow:     "*",
		command: command,
		comment: wakelib.BuildMarker(jobID),
		enabled: true,
	}
	if oneTime {
		entry.dom = strconv.Itoa(at.Day())
		entry.month = strconv.Itoa(int(at.Month()))
	} else if len(days) > 0 && len(days) < 7 {
		nums := wakelib.CronDayNumbers(days)
		strs := make([]string, len(nums))
		for i, n := range nums {
			strs[i] = strconv.Itoa(n)
		}
		entry.dow = strings.Join(strs, ",")
	}

	unlock, err := a.lock.Lock()
	if err != nil {
		a.log.Warning("cron lock unavailable, proceeding unlocked: %v", err)
	} else {
		defer unlock()
	}

	lines, err := a.readTab()
	if err != nil {
		a.log.Error("crontab read failed: %v", err)
		return false, fmt.Sprintf("crontab error: %v", err)
	}
	lines = append(lines, entry.line())
	if err := a.writeTab(lines); err != nil {
		a.log.Error("crontab write failed: %v", err)
		return false, fmt.Sprintf("crontab error: %v", err)
	}

	// Confirm the write landed before reporting success.
	confirmed, err := a.readTab()
	if err != nil || !containsLine(confirmed, entry.line()) {
		a.log.Error("crontab write could not be confirmed")
		return false, "crontab write could not be confirmed"
	}

	msg := fmt.Sprintf("Alarm set for %s via cron", clock)
	a.log.Info("%s | cmd: %s", msg, command)
	return true, msg
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == strings.TrimSpace(want) {
			return true
		}
	}
	return false
}

// ListAlarms implements Adapter. Foreign and unparseable lines are
// skipped; one bad record never aborts the rest of the listing.
func (a *CronAdapter) ListAlarms() []wakelib.AlarmInfo {
	if !a.available {
		return nil
	}
	lines, err := a.readTab()
	if err != nil {
		a.log.Error("crontab read failed: %v", err)
		return nil
	}
	var alarms []wakelib.AlarmInfo
	for _, line := range lines {
		entry, ok := parseCronLine(line)
		if !ok || !entry.owned() {
			continue
		}
		info, ok := a.entryInfo(entry)
		if !ok {
			a.log.Info("skipping unparseable cron entry: %s", line)
			continue
		}
		alarms = append(alarms, info)
	}
	return alarms
}

func (a *CronAdapter) entryInfo(entry cronEntry) (wakelib.AlarmInfo, bool) {
	sequence, ok := wakelib.SequenceFromCommand(entry.command)
	if !ok {
		return wakelib.AlarmInfo{}, false
	}
	hour, minute, ok := entry.clock()
	if !ok {
		return wakelib.AlarmInfo{}, false
	}
	days, ok := cronDaysLabel(entry)
	if !ok {
		return wakelib.AlarmInfo{}, false
	}
	return wakelib.AlarmInfo{
		Time:     wakelib.FormatClock(hour, minute),
		Sequence: sequence,
		Days:     days,
		Enabled:  entry.enabled,
	}, true
}

func cronDaysLabel(entry cronEntry) ([]string, bool) {
	if wakelib.CommandIsOneTime(entry.command) {
		return []string{wakelib.DayOnce}, true
	}
	if entry.dow == "*" {
		return []string{wakelib.DayDaily}, true
	}
	var codes []string
	for _, part := range strings.Split(entry.dow, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, false
		}
		name, ok := wakelib.CronDayName(n)
		if !ok {
			return nil, false
		}
		codes = append(codes, name)
	}
	canonical, err := wakelib.CanonicalDays(codes)
	if err != nil {
		return nil, false
	}
	return wakelib.DaysLabel(canonical, false), true
}

// RemoveAlarm implements Adapter. It removes the first owned entry
// matching sequence and clock time (and days label, when given); at most
// one entry is removed even if several match.
func (a *CronAdapter) RemoveAlarm(sequence, clock, daysLabel string) (bool, string) {
	if !a.available {
		return false, "crontab not available"
	}
	hour, minute, err := wakelib.ParseClock(clock)
	if err != nil {
		return false, err.Error()
	}

	match := func(entry cronEntry) bool {
		if !entry.owned() {
			return false
		}
		h, m, ok := entry.clock()
		if !ok || h != hour || m != minute {
			return false
		}
		if !wakelib.CommandHasSequence(entry.command, sequence) {
			return false
		}
		if daysLabel != "" {
			days, ok := cronDaysLabel(entry)
			if !ok || strings.Join(days, ", ") != daysLabel {
				return false
			}
		}
		return true
	}

	removed, msg := a.removeFirst(match)
	if !removed {
		if msg == "" {
			msg = fmt.Sprintf("alarm %q at %s not found in crontab", sequence, clock)
		}
		return false, msg
	}
	return true, fmt.Sprintf("Removed alarm: %s", sequence)
}

// RemoveFired implements Adapter, running the three matching tiers of
// the self-deletion protocol against the crontab.
func (a *CronAdapter) RemoveFired(sequence, jobID, scheduledTime string) (bool, string) {
	if !a.available {
		return false, "crontab not available"
	}

	// Tier 1: exact job-id match.
	if jobID != "" {
		target := wakelib.BuildMarker(jobID)
		removed, _ := a.removeFirst(func(e cronEntry) bool {
			return e.comment == target && wakelib.CommandHasSequence(e.command, sequence)
		})
		if removed {
			a.log.Info("deleted cron job by id %s", jobID)
			return true, fmt.Sprintf("Removed one-time alarm %s by job id", sequence)
		}
	}

	// Tier 2: scheduled-time match.
	if scheduledTime != "" {
		hour, minute, err := wakelib.ParseClock(scheduledTime)
		if err == nil {
			removed, _ := a.removeFirst(func(e cronEntry) bool {
				h, m, ok := e.clock()
				return e.owned() && ok && h == hour && m == minute &&
					wakelib.CommandHasSequence(e.command, sequence) &&
					wakelib.CommandIsOneTime(e.command)
			})
			if removed {
				a.log.Info("deleted cron job for %s by time match", sequence)
				return true, fmt.Sprintf("Removed one-time alarm %s by time match", sequence)
			}
		}
	}

	// Tier 3: unsafe soft match. Only reached when neither identifier
	// was supplied; with several one-time alarms for the same sequence
	// this may remove the wrong one.
	if jobID == "" && scheduledTime == "" {
		removed, _ := a.removeFirst(func(e cronEntry) bool {
			return e.owned() && wakelib.CommandHasSequence(e.command, sequence) &&
				wakelib.CommandIsOneTime(e.command)
		})
		if removed {
			a.log.Warning("soft-match deletion removed a one-time cron job for %q; "+
				"with several pending one-time alarms this may have been the wrong one", sequence)
			return true, fmt.Sprintf("Removed one-time alarm %s by soft match", sequence)
		}
	}

	return false, fmt.Sprintf("no matching cron job found for %q", sequence)
}

// removeFirst deletes the first entry accepted by match and rewrites the
// crontab. Returns whether an entry was removed.
func (a *CronAdapter) removeFirst(match func(cronEntry) bool) (bool, string) {
	unlock, err := a.lock.Lock()
	if err != nil {
		a.log.Warning("cron lock unavailable, proceeding unlocked: %v", err)
	} else {
		defer unlock()
	}

	lines, err := a.readTab()
	if err != nil {
		a.log.Error("crontab read failed: %v", err)
		return false, fmt.Sprintf("crontab error: %v", err)
	}
	removed := false
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if !removed {
			if entry, ok := parseCronLine(line); ok && match(entry) {
				removed = true
				a.log.Info("removing cron entry: %s", truncate(line, 100))
				continue
			}
		}
		kept = append(kept, line)
	}
	if !removed {
		return false, ""
	}
	if err := a.writeTab(kept); err != nil {
		a.log.Error("crontab write failed: %v", err)
		return false, fmt.Sprintf("crontab error: %v", err)
	}
	return true, ""
}

// DebugInfo implements Adapter.
func (a *CronAdapter) DebugInfo() string {
	info := []string{"=== Cron Debug Info ==="}
	if u, err := user.Current(); err == nil {
		info = append(info, fmt.Sprintf("User: %s (uid %s)", u.Username, u.Uid))
	}
	info = append(info, fmt.Sprintf("Executable: %s", a.exe))
	info = append(info, fmt.Sprintf("Crontab available: %v", a.available))
	if a.available {
		lines, err := a.readTab()
		if err != nil {
			info = append(info, fmt.Sprintf("crontab read failed: %v", err))
		} else {
			info = append(info, "", "All crontab entries:")
			for _, line := range lines {
				tag := ""
				if entry, ok := parseCronLine(line); ok && entry.owned() {
					tag = " [OURS]"
				}
				info = append(info, "  "+line+tag)
			}
		}
	}
	return strings.Join(info, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Adapter = (*CronAdapter)(nil)
