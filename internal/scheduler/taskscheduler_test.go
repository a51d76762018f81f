package scheduler

import (
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// schtasksRunner emulates schtasks.exe over an in-memory task registry.
// /Create reads the staged XML file through the shared afero filesystem,
// exactly like the real tool reads the path it is handed.
type schtasksRunner struct {
	fs       afero.Fs
	tasks    map[string]string
	probeErr error
	calls    []string
}

func newSchtasksRunner(fs afero.Fs) *schtasksRunner {
	return &schtasksRunner{fs: fs, tasks: make(map[string]string)}
}

func (r *schtasksRunner) Run(name string, args ...string) (string, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	if name != "schtasks" || len(args) == 0 {
		return "", fmt.Errorf("unexpected command: %s %v", name, args)
	}
	switch args[0] {
	case "/Query":
		if len(args) >= 4 && args[1] == "/FO" {
			if r.probeErr != nil {
				return "", r.probeErr
			}
			names := make([]string, 0, len(r.tasks))
			for n := range r.tasks {
				names = append(names, n)
			}
			sort.Strings(names)
			var b strings.Builder
			for _, n := range names {
				fmt.Fprintf(&b, "\"%s\",\"N/A\",\"Ready\"\n", n)
			}
			return b.String(), nil
		}
		if len(args) >= 5 && args[1] == "/TN" && args[3] == "/XML" {
			doc, ok := r.tasks[args[2]]
			if !ok {
				return "", fmt.Errorf("ERROR: The system cannot find the file specified")
			}
			return doc, nil
		}
	case "/Create":
		// schtasks /Create /TN <name> /XML <path> /F
		data, err := afero.ReadFile(r.fs, args[4])
		if err != nil {
			return "", fmt.Errorf("cannot read task xml: %v", err)
		}
		r.tasks[args[2]] = string(data)
		return "SUCCESS", nil
	case "/Delete":
		if _, ok := r.tasks[args[2]]; !ok {
			return "", fmt.Errorf("ERROR: The specified task name %q does not exist", args[2])
		}
		delete(r.tasks, args[2])
		return "SUCCESS", nil
	}
	return "", fmt.Errorf("unexpected schtasks invocation: %v", args)
}

func (r *schtasksRunner) RunInput(input, name string, args ...string) (string, error) {
	return "", errors.New("unexpected RunInput")
}

func (r *schtasksRunner) Start(name string, args ...string) error {
	return errors.New("unexpected Start")
}

func newTestTaskAdapter(t *testing.T) (*TaskSchedulerAdapter, *schtasksRunner, *logger.MockLogger) {
	t.Helper()
	fs := afero.NewMemMapFs()
	runner := newSchtasksRunner(fs)
	log := logger.NewMockLogger()
	a := NewTaskSchedulerAdapter(fs, runner, log, `C:\Program Files\ChronoWake\chronowake.exe`)
	if !a.available {
		t.Fatal("adapter unexpectedly disabled")
	}
	a.newJobID = func() string { return "11111111-2222-3333-4444-555555555555" }
	return a, runner, log
}

func TestTaskAddOneTime(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	ok, msg := a.AddAlarm(at(7, 30), "Morning Routine", nil, true)
	if !ok {
		t.Fatalf("AddAlarm failed: %s", msg)
	}

	name := `\ChronoWake\Morning_Routine_07_30_11111111`
	raw, ok := runner.tasks[name]
	if !ok {
		t.Fatalf("task not created, have %v", taskNames(runner))
	}
	var doc taskDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("task xml unmarshal: %v", err)
	}
	if doc.RegistrationInfo.Author != wakelib.Marker {
		t.Errorf("author = %q", doc.RegistrationInfo.Author)
	}
	meta, ok := wakelib.DecodeJobMetadata(doc.RegistrationInfo.Description)
	if !ok {
		t.Fatalf("description not decodable: %q", doc.RegistrationInfo.Description)
	}
	if meta.Sequence != "Morning Routine" || meta.Time != "07:30" || !meta.OneTime ||
		meta.JobID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("meta = %+v", meta)
	}
	if doc.Triggers.TimeTrigger == nil || doc.Triggers.CalendarTrigger != nil {
		t.Errorf("triggers = %+v", doc.Triggers)
	}
	if doc.Triggers.TimeTrigger.StartBoundary != "2026-09-01T07:30:00" {
		t.Errorf("start boundary = %q", doc.Triggers.TimeTrigger.StartBoundary)
	}
	if !strings.Contains(doc.Actions.Exec.Arguments, "--delete-after") {
		t.Errorf("arguments = %q", doc.Actions.Exec.Arguments)
	}
}

func TestTaskAddRecurringWeekdays(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	ok, msg := a.AddAlarm(at(6, 0), "Workout", []string{"MON", "WED", "FRI"}, false)
	if !ok {
		t.Fatalf("AddAlarm failed: %s", msg)
	}
	raw := runner.tasks[`\ChronoWake\Workout_06_00`]
	var doc taskDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("task xml unmarshal: %v", err)
	}
	ct := doc.Triggers.CalendarTrigger
	if ct == nil || ct.ScheduleByWeek == nil {
		t.Fatalf("triggers = %+v", doc.Triggers)
	}
	// Monday = 2, Wednesday = 8, Friday = 32.
	if mask := ct.ScheduleByWeek.DaysOfWeek.mask(); mask != 2|8|32 {
		t.Errorf("days mask = %d", mask)
	}

	alarms := a.ListAlarms()
	if len(alarms) != 1 {
		t.Fatalf("alarms = %+v", alarms)
	}
	if alarms[0].Time != "6:00" || strings.Join(alarms[0].Days, ",") != "MON,WED,FRI" {
		t.Errorf("alarm = %+v", alarms[0])
	}
}

func TestTaskListFiltersForeignTasks(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	if ok, _ := a.AddAlarm(at(7, 30), "Wake", nil, false); !ok {
		t.Fatal("AddAlarm failed")
	}
	// Root-level task that fits the legacy name pattern but belongs to
	// someone else: the Author check must reject it.
	runner.tasks[`\Backup_03_00`] = `<?xml version="1.0"?>
<Task version="1.2" xmlns="http://schemas.microsoft.com/windows/2004/02/mit/task">
  <RegistrationInfo><Author>AcmeBackup</Author><Description>nightly</Description></RegistrationInfo>
  <Triggers><TimeTrigger><StartBoundary>2026-01-01T03:00:00</StartBoundary><Enabled>true</Enabled></TimeTrigger></Triggers>
  <Settings><Enabled>true</Enabled></Settings>
  <Actions Context="Author"><Exec><Command>backup.exe</Command></Exec></Actions>
</Task>`
	// Root-level task that does not even fit the pattern.
	runner.tasks[`\OneDrive Standalone Update Task`] = `<Task></Task>`

	alarms := a.ListAlarms()
	if len(alarms) != 1 || alarms[0].Sequence != "Wake" {
		t.Errorf("alarms = %+v", alarms)
	}
}

func TestTaskListLegacyNameFallback(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	// A task from a release that predates Description metadata: matched
	// by Author, decoded from its name.
	runner.tasks[`\Morning_Routine_07_30`] = `<?xml version="1.0"?>
<Task version="1.2" xmlns="http://schemas.microsoft.com/windows/2004/02/mit/task">
  <RegistrationInfo><Author>ChronoWake</Author></RegistrationInfo>
  <Triggers><CalendarTrigger><StartBoundary>2026-01-01T07:30:00</StartBoundary><Enabled>true</Enabled><ScheduleByWeek><DaysOfWeek><Sunday></Sunday><Monday></Monday><Tuesday></Tuesday><Wednesday></Wednesday><Thursday></Thursday><Friday></Friday><Saturday></Saturday></DaysOfWeek><WeeksInterval>1</WeeksInterval></ScheduleByWeek></CalendarTrigger></Triggers>
  <Settings><Enabled>true</Enabled></Settings>
  <Actions Context="Author"><Exec><Command>chronowake.exe</Command></Exec></Actions>
</Task>`

	alarms := a.ListAlarms()
	if len(alarms) != 1 {
		t.Fatalf("alarms = %+v", alarms)
	}
	got := alarms[0]
	if got.Sequence != "Morning_Routine" || got.Time != "7:30" {
		t.Errorf("alarm = %+v", got)
	}
	if len(got.Days) != 1 || got.Days[0] != wakelib.DayDaily {
		t.Errorf("days = %v", got.Days)
	}
}

func TestTaskRemoveAlarm(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	if ok, _ := a.AddAlarm(at(7, 30), "Wake", nil, false); !ok {
		t.Fatal("AddAlarm failed")
	}
	ok, msg := a.RemoveAlarm("Wake", "7:30", "")
	if !ok {
		t.Fatalf("RemoveAlarm failed: %s", msg)
	}
	if len(runner.tasks) != 0 {
		t.Errorf("tasks = %v", taskNames(runner))
	}

	ok, msg = a.RemoveAlarm("Wake", "7:30", "")
	if ok || !strings.Contains(msg, "not found") {
		t.Errorf("second remove = %v, %q", ok, msg)
	}
}

func TestTaskRemoveAlarmLegacyName(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	runner.tasks[`\Morning_Routine_07_30`] = `<?xml version="1.0"?>
<Task version="1.2" xmlns="http://schemas.microsoft.com/windows/2004/02/mit/task">
  <RegistrationInfo><Author>ChronoWake</Author></RegistrationInfo>
  <Triggers><TimeTrigger><StartBoundary>2026-01-01T07:30:00</StartBoundary><Enabled>true</Enabled></TimeTrigger></Triggers>
  <Settings><Enabled>true</Enabled></Settings>
  <Actions Context="Author"><Exec><Command>chronowake.exe</Command></Exec></Actions>
</Task>`

	// The stored name spells spaces as underscores; removal accepts the
	// display spelling.
	ok, msg := a.RemoveAlarm("Morning Routine", "7:30", "")
	if !ok {
		t.Fatalf("RemoveAlarm failed: %s", msg)
	}
	if len(runner.tasks) != 0 {
		t.Errorf("tasks = %v", taskNames(runner))
	}
}

func TestTaskRemoveFiredByJobID(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	a.newJobID = func() string { return "aaaa1111-0000-0000-0000-000000000000" }
	if ok, _ := a.AddAlarm(at(7, 30), "Wake", nil, true); !ok {
		t.Fatal("AddAlarm failed")
	}
	a.newJobID = func() string { return "bbbb2222-0000-0000-0000-000000000000" }
	if ok, _ := a.AddAlarm(at(8, 0), "Wake", nil, true); !ok {
		t.Fatal("AddAlarm failed")
	}

	ok, msg := a.RemoveFired("Wake", "aaaa1111-0000-0000-0000-000000000000", "07:30")
	if !ok {
		t.Fatalf("RemoveFired failed: %s", msg)
	}
	names := taskNames(runner)
	if len(names) != 1 || !strings.Contains(names[0], "bbbb2222") {
		t.Errorf("remaining tasks = %v", names)
	}
}

func TestTaskRemoveFiredByTime(t *testing.T) {
	a, runner, _ := newTestTaskAdapter(t)

	if ok, _ := a.AddAlarm(at(7, 30), "Wake", nil, true); !ok {
		t.Fatal("AddAlarm failed")
	}
	ok, msg := a.RemoveFired("Wake", "ffffffff-0000-0000-0000-000000000000", "07:30")
	if !ok || !strings.Contains(msg, "time match") {
		t.Fatalf("RemoveFired = %v, %q", ok, msg)
	}
	if len(runner.tasks) != 0 {
		t.Errorf("tasks = %v", taskNames(runner))
	}
}

func TestTaskRemoveFiredSoftMatchWarns(t *testing.T) {
	a, _, log := newTestTaskAdapter(t)

	if ok, _ := a.AddAlarm(at(7, 30), "Wake", nil, true); !ok {
		t.Fatal("AddAlarm failed")
	}
	ok, _ := a.RemoveFired("Wake", "", "")
	if !ok {
		t.Fatal("RemoveFired failed")
	}
	if len(log.WarningCalls) == 0 {
		t.Error("soft match did not warn")
	}
}

func TestTaskDisabledAdapter(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := newSchtasksRunner(fs)
	runner.probeErr = errors.New("ERROR: The service is not available")
	log := logger.NewMockLogger()
	a := NewTaskSchedulerAdapter(fs, runner, log, `C:\chronowake.exe`)
	if a.available {
		t.Fatal("adapter unexpectedly available")
	}
	if ok, _ := a.AddAlarm(at(7, 0), "Wake", nil, false); ok {
		t.Error("AddAlarm on disabled adapter succeeded")
	}
	if alarms := a.ListAlarms(); alarms != nil {
		t.Errorf("ListAlarms on disabled adapter = %v", alarms)
	}
}

func TestParseLegacyTaskName(t *testing.T) {
	cases := []struct {
		name     string
		sequence string
		hour     int
		minute   int
		ok       bool
	}{
		{"Wake_07_30", "Wake", 7, 30, true},
		{"Morning_Routine_06_15", "Morning_Routine", 6, 15, true},
		{"Wake_25_00", "", 0, 0, false},
		{"Wake_07_61", "", 0, 0, false},
		{"Wake", "", 0, 0, false},
		{"Backup_daily_x", "", 0, 0, false},
	}
	for _, c := range cases {
		seq, h, m, ok := parseLegacyTaskName(c.name)
		if ok != c.ok {
			t.Errorf("parseLegacyTaskName(%q) ok = %v, want %v", c.name, ok, c.ok)
			continue
		}
		if ok && (seq != c.sequence || h != c.hour || m != c.minute) {
			t.Errorf("parseLegacyTaskName(%q) = %q, %d, %d", c.name, seq, h, m)
		}
	}
}

func taskNames(r *schtasksRunner) []string {
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
