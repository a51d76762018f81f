package scheduler

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// taskFolder is the Task Scheduler folder holding this application's
// tasks. Legacy tasks created before the folder existed live at the
// library root and are matched by their Author field.
const taskFolder = `\ChronoWake`

// TaskSchedulerAdapter stores alarms as tasks in the Windows Task
// Scheduler, driven through schtasks.exe with XML task definitions.
// Ownership is proven by RegistrationInfo.Author; the Description field
// carries the job metadata in its key=value encoding, with the task name
// ("<sequence>_<HH>_<MM>") kept as a legacy fallback for matching.
type TaskSchedulerAdapter struct {
	fs        afero.Fs
	runner    wakelib.CommandRunner
	log       logger.Logger
	exe       string
	available bool

	newJobID func() string
}

// NewTaskSchedulerAdapter probes schtasks once at construction. A failed
// probe (no service, denied) leaves the adapter disabled; every method
// then returns its documented failure value instead of erroring.
func NewTaskSchedulerAdapter(fs afero.Fs, runner wakelib.CommandRunner, log logger.Logger, exe string) *TaskSchedulerAdapter {
	a := &TaskSchedulerAdapter{
		fs:       fs,
		runner:   runner,
		log:      log,
		exe:      exe,
		newJobID: uuid.NewString,
	}
	if _, err := runner.Run("schtasks", "/Query", "/FO", "CSV", "/NH"); err != nil {
		log.Error("task scheduler not accessible: %v", err)
		return a
	}
	a.available = true
	return a
}

// taskName builds the task name for an alarm. One-time tasks append a
// short job-id suffix so two one-time alarms for the same sequence and
// time cannot collide in the task namespace.
func taskName(sequence string, hour, minute int, jobID string) string {
	name := fmt.Sprintf("%s_%02d_%02d", strings.ReplaceAll(sequence, " ", "_"), hour, minute)
	if jobID != "" && len(jobID) >= 8 {
		name += "_" + jobID[:8]
	}
	return name
}

// AddAlarm implements Adapter.
func (a *TaskSchedulerAdapter) AddAlarm(at time.Time, sequence string, days []string, oneTime bool) (bool, string) {
	if !a.available {
		return false, "task scheduler not available, check logs for details"
	}

	var jobID string
	if oneTime {
		jobID = a.newJobID()
	}
	clock := wakelib.FormatClockPadded(at.Hour(), at.Minute())
	meta := wakelib.JobMetadata{
		Marker:   wakelib.Marker,
		JobID:    jobID,
		Sequence: sequence,
		Time:     clock,
		OneTime:  oneTime,
	}
	args := wakelib.InvocationArgs(sequence, oneTime, jobID, clock)
	arguments := wakelib.QuoteCommand(args[0], args[1:])
	doc := newTaskDocument(at, meta, a.exe, arguments, filepath.Dir(a.exe), days, oneTime)

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		a.log.Error("task xml marshal failed: %v", err)
		return false, fmt.Sprintf("task scheduler error: %v", err)
	}
	data = append([]byte(xml.Header), data...)

	// schtasks reads the definition from a file path, so the XML is
	// staged in a temp file for the duration of the call.
	tmp, err := afero.TempFile(a.fs, "", "chronowake-task-*.xml")
	if err != nil {
		a.log.Error("task xml staging failed: %v", err)
		return false, fmt.Sprintf("task scheduler error: %v", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = a.fs.Remove(tmpPath) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		a.log.Error("task xml staging failed: %v", err)
		return false, fmt.Sprintf("task scheduler error: %v", err)
	}
	if err := tmp.Close(); err != nil {
		a.log.Error("task xml staging failed: %v", err)
		return false, fmt.Sprintf("task scheduler error: %v", err)
	}

	name := taskFolder + `\` + taskName(sequence, at.Hour(), at.Minute(), jobID)
	if _, err := a.runner.Run("schtasks", "/Create", "/TN", name, "/XML", tmpPath, "/F"); err != nil {
		a.log.Error("schtasks create failed: %v", err)
		return false, fmt.Sprintf("failed to create task: %v", err)
	}

	msg := fmt.Sprintf("Alarm set for %s via Task Scheduler", clock)
	a.log.Info("%s | task: %s", msg, name)
	return true, msg
}

// candidateNames returns the full names of tasks that might belong to
// this application: everything under our folder, plus root-level tasks
// whose name fits the legacy "<sequence>_<HH>_<MM>" pattern. Ownership
// is still verified per task via the Author field.
func (a *TaskSchedulerAdapter) candidateNames() []string {
	out, err := a.runner.Run("schtasks", "/Query", "/FO", "CSV", "/NH")
	if err != nil {
		a.log.Error("schtasks query failed: %v", err)
		return nil
	}
	reader := csv.NewReader(strings.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		a.log.Error("schtasks output parse failed: %v", err)
		return nil
	}
	var names []string
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		name := rec[0]
		if !strings.HasPrefix(name, `\`) {
			continue
		}
		switch {
		case strings.HasPrefix(name, taskFolder+`\`):
			names = append(names, name)
		case strings.Count(name, `\`) == 1:
			if _, _, _, ok := parseLegacyTaskName(name[1:]); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// parseLegacyTaskName splits "<sequence>_<HH>_<MM>" task names written
// by releases before the Description metadata existed.
func parseLegacyTaskName(name string) (sequence string, hour, minute int, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return "", 0, 0, false
	}
	hh, mm := parts[len(parts)-2], parts[len(parts)-1]
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return "", 0, 0, false
	}
	minute, err = strconv.Atoi(mm)
	if err != nil {
		return "", 0, 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", 0, 0, false
	}
	sequence = strings.Join(parts[:len(parts)-2], "_")
	return sequence, hour, minute, true
}

// queryTask fetches and parses one task's XML definition.
func (a *TaskSchedulerAdapter) queryTask(name string) (taskDocument, bool) {
	out, err := a.runner.Run("schtasks", "/Query", "/TN", name, "/XML", "ONE")
	if err != nil {
		return taskDocument{}, false
	}
	var doc taskDocument
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		return taskDocument{}, false
	}
	return doc, true
}

// taskInfo reconstructs a listing record from a task definition.
// Metadata in the Description is preferred; the legacy name encoding is
// the fallback.
func taskInfo(name string, doc taskDocument) (wakelib.AlarmInfo, bool) {
	if meta, ok := wakelib.DecodeJobMetadata(doc.RegistrationInfo.Description); ok {
		hour, minute, err := wakelib.ParseClock(meta.Time)
		if err != nil {
			return wakelib.AlarmInfo{}, false
		}
		return wakelib.AlarmInfo{
			Time:     wakelib.FormatClock(hour, minute),
			Sequence: meta.Sequence,
			Days:     doc.daysLabel(),
			Enabled:  doc.Settings.Enabled,
		}, true
	}
	base := name[strings.LastIndex(name, `\`)+1:]
	sequence, hour, minute, ok := parseLegacyTaskName(base)
	if !ok {
		return wakelib.AlarmInfo{}, false
	}
	return wakelib.AlarmInfo{
		Time:     wakelib.FormatClock(hour, minute),
		Sequence: sequence,
		Days:     doc.daysLabel(),
		Enabled:  doc.Settings.Enabled,
	}, true
}

// ListAlarms implements Adapter.
func (a *TaskSchedulerAdapter) ListAlarms() []wakelib.AlarmInfo {
	if !a.available {
		return nil
	}
	var alarms []wakelib.AlarmInfo
	for _, name := range a.candidateNames() {
		doc, ok := a.queryTask(name)
		if !ok {
			a.log.Info("skipping unreadable task: %s", name)
			continue
		}
		if doc.RegistrationInfo.Author != wakelib.Marker {
			continue
		}
		info, ok := taskInfo(name, doc)
		if !ok {
			a.log.Info("skipping unparseable task: %s", name)
			continue
		}
		alarms = append(alarms, info)
	}
	return alarms
}

func (a *TaskSchedulerAdapter) deleteTask(name string) error {
	_, err := a.runner.Run("schtasks", "/Delete", "/TN", name, "/F")
	return err
}

// RemoveAlarm implements Adapter.
func (a *TaskSchedulerAdapter) RemoveAlarm(sequence, clock, daysLabel string) (bool, string) {
	if !a.available {
		return false, "task scheduler not available"
	}
	hour, minute, err := wakelib.ParseClock(clock)
	if err != nil {
		return false, err.Error()
	}
	want := wakelib.FormatClockPadded(hour, minute)

	for _, name := range a.candidateNames() {
		doc, ok := a.queryTask(name)
		if !ok || doc.RegistrationInfo.Author != wakelib.Marker {
			continue
		}

		// Primary: metadata match on the Description field.
		if meta, ok := wakelib.DecodeJobMetadata(doc.RegistrationInfo.Description); ok {
			if meta.Sequence == sequence && meta.Time == want && a.daysMatch(doc, daysLabel) {
				if err := a.deleteTask(name); err != nil {
					a.log.Error("schtasks delete failed: %v", err)
					return false, fmt.Sprintf("task scheduler error: %v", err)
				}
				a.log.Info("deleted task %s (metadata match)", name)
				return true, fmt.Sprintf("Removed alarm: %s", sequence)
			}
			continue
		}

		// Fallback: legacy name encoding.
		base := name[strings.LastIndex(name, `\`)+1:]
		seq, h, m, ok := parseLegacyTaskName(base)
		if !ok || h != hour || m != minute {
			continue
		}
		if seq != sequence && seq != strings.ReplaceAll(sequence, " ", "_") {
			continue
		}
		if err := a.deleteTask(name); err != nil {
			a.log.Error("schtasks delete failed: %v", err)
			return false, fmt.Sprintf("task scheduler error: %v", err)
		}
		a.log.Info("deleted task %s (name match)", name)
		return true, fmt.Sprintf("Removed alarm: %s", sequence)
	}
	return false, fmt.Sprintf("alarm %q at %s not found in task scheduler", sequence, clock)
}

func (a *TaskSchedulerAdapter) daysMatch(doc taskDocument, daysLabel string) bool {
	if daysLabel == "" {
		return true
	}
	return strings.Join(doc.daysLabel(), ", ") == daysLabel
}

// RemoveFired implements Adapter, running the three matching tiers over
// the task metadata.
func (a *TaskSchedulerAdapter) RemoveFired(sequence, jobID, scheduledTime string) (bool, string) {
	if !a.available {
		return false, "task scheduler not available"
	}

	type ownedTask struct {
		name string
		meta wakelib.JobMetadata
	}
	var owned []ownedTask
	for _, name := range a.candidateNames() {
		doc, ok := a.queryTask(name)
		if !ok || doc.RegistrationInfo.Author != wakelib.Marker {
			continue
		}
		meta, ok := wakelib.DecodeJobMetadata(doc.RegistrationInfo.Description)
		if !ok {
			continue
		}
		owned = append(owned, ownedTask{name: name, meta: meta})
	}

	remove := func(name, how string) (bool, string) {
		if err := a.deleteTask(name); err != nil {
			a.log.Error("schtasks delete failed: %v", err)
			return false, fmt.Sprintf("task scheduler error: %v", err)
		}
		return true, fmt.Sprintf("Removed one-time alarm %s by %s", sequence, how)
	}

	// Tier 1: exact job-id match.
	if jobID != "" {
		for _, t := range owned {
			if t.meta.JobID == jobID && t.meta.Sequence == sequence {
				a.log.Info("deleted task %s by id %s", t.name, jobID)
				return remove(t.name, "job id")
			}
		}
	}

	// Tier 2: scheduled-time match.
	if scheduledTime != "" {
		for _, t := range owned {
			if t.meta.Sequence == sequence && t.meta.OneTime && t.meta.Time == scheduledTime {
				a.log.Info("deleted task %s by time match", t.name)
				return remove(t.name, "time match")
			}
		}
	}

	// Tier 3: unsafe soft match.
	if jobID == "" && scheduledTime == "" {
		for _, t := range owned {
			if t.meta.Sequence == sequence && t.meta.OneTime {
				a.log.Warning("soft-match deletion removed task %s for %q; "+
					"with several pending one-time alarms this may have been the wrong one", t.name, sequence)
				return remove(t.name, "soft match")
			}
		}
	}

	return false, fmt.Sprintf("no matching task found for %q", sequence)
}

// DebugInfo implements Adapter.
func (a *TaskSchedulerAdapter) DebugInfo() string {
	info := []string{"=== Task Scheduler Debug Info ==="}
	info = append(info, fmt.Sprintf("Executable: %s", a.exe))
	info = append(info, fmt.Sprintf("Task scheduler available: %v", a.available))
	if !a.available {
		return strings.Join(info, "\n")
	}
	out, err := a.runner.Run("schtasks", "/Query", "/FO", "CSV", "/NH")
	if err != nil {
		info = append(info, fmt.Sprintf("schtasks query failed: %v", err))
		return strings.Join(info, "\n")
	}
	info = append(info, "", "All tasks:")
	reader := csv.NewReader(strings.NewReader(out))
	reader.FieldsPerRecord = -1
	records, _ := reader.ReadAll()
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		name := rec[0]
		tag := ""
		if doc, ok := a.queryTask(name); ok && doc.RegistrationInfo.Author == wakelib.Marker {
			tag = fmt.Sprintf(" [OURS] desc=%q enabled=%v",
				doc.RegistrationInfo.Description, doc.Settings.Enabled)
		}
		info = append(info, "  "+name+tag)
	}
	return strings.Join(info, "\n")
}

var _ Adapter = (*TaskSchedulerAdapter)(nil)
