package scheduler

import (
	"encoding/xml"
	"time"

	"github.com/chronowake/chronowake/pkg/wakelib"
)

// taskDocument is the Task Scheduler 2.0 XML task definition consumed
// and produced by schtasks /XML. Only the subset this application writes
// is modeled; unknown elements are dropped on re-marshal, which is fine
// because we never rewrite foreign tasks.
type taskDocument struct {
	XMLName          xml.Name             `xml:"Task"`
	Version          string               `xml:"version,attr"`
	Xmlns            string               `xml:"xmlns,attr"`
	RegistrationInfo taskRegistrationInfo `xml:"RegistrationInfo"`
	Triggers         taskTriggers         `xml:"Triggers"`
	Settings         taskSettings         `xml:"Settings"`
	Actions          taskActions          `xml:"Actions"`
}

type taskRegistrationInfo struct {
	Author      string `xml:"Author"`
	Description string `xml:"Description"`
}

type taskTriggers struct {
	TimeTrigger     *timeTrigger     `xml:"TimeTrigger,omitempty"`
	CalendarTrigger *calendarTrigger `xml:"CalendarTrigger,omitempty"`
}

type timeTrigger struct {
	StartBoundary string `xml:"StartBoundary"`
	Enabled       bool   `xml:"Enabled"`
}

type calendarTrigger struct {
	StartBoundary  string          `xml:"StartBoundary"`
	Enabled        bool            `xml:"Enabled"`
	ScheduleByWeek *scheduleByWeek `xml:"ScheduleByWeek,omitempty"`
}

type scheduleByWeek struct {
	DaysOfWeek    daysOfWeek `xml:"DaysOfWeek"`
	WeeksInterval int        `xml:"WeeksInterval"`
}

// daysOfWeek uses presence elements: an empty <Monday/> child means the
// task runs on Mondays.
type daysOfWeek struct {
	Sunday    *struct{} `xml:"Sunday,omitempty"`
	Monday    *struct{} `xml:"Monday,omitempty"`
	Tuesday   *struct{} `xml:"Tuesday,omitempty"`
	Wednesday *struct{} `xml:"Wednesday,omitempty"`
	Thursday  *struct{} `xml:"Thursday,omitempty"`
	Friday    *struct{} `xml:"Friday,omitempty"`
	Saturday  *struct{} `xml:"Saturday,omitempty"`
}

type taskSettings struct {
	Enabled                    bool `xml:"Enabled"`
	StartWhenAvailable         bool `xml:"StartWhenAvailable"`
	WakeToRun                  bool `xml:"WakeToRun"`
	DisallowStartIfOnBatteries bool `xml:"DisallowStartIfOnBatteries"`
	StopIfGoingOnBatteries     bool `xml:"StopIfGoingOnBatteries"`
	Hidden                     bool `xml:"Hidden"`
}

type taskActions struct {
	Context string   `xml:"Context,attr"`
	Exec    taskExec `xml:"Exec"`
}

type taskExec struct {
	Command          string `xml:"Command"`
	Arguments        string `xml:"Arguments,omitempty"`
	WorkingDirectory string `xml:"WorkingDirectory,omitempty"`
}

const taskTimeLayout = "2006-01-02T15:04:05"

// setMask populates the presence elements from a DaysOfWeek bitmask
// (Sunday = 1, matching wakelib.TaskDaysMask).
func (d *daysOfWeek) setMask(mask int) {
	present := &struct{}{}
	if mask&1 != 0 {
		d.Sunday = present
	}
	if mask&2 != 0 {
		d.Monday = present
	}
	if mask&4 != 0 {
		d.Tuesday = present
	}
	if mask&8 != 0 {
		d.Wednesday = present
	}
	if mask&16 != 0 {
		d.Thursday = present
	}
	if mask&32 != 0 {
		d.Friday = present
	}
	if mask&64 != 0 {
		d.Saturday = present
	}
}

// mask is the inverse of setMask.
func (d *daysOfWeek) mask() int {
	mask := 0
	if d.Sunday != nil {
		mask |= 1
	}
	if d.Monday != nil {
		mask |= 2
	}
	if d.Tuesday != nil {
		mask |= 4
	}
	if d.Wednesday != nil {
		mask |= 8
	}
	if d.Thursday != nil {
		mask |= 16
	}
	if d.Friday != nil {
		mask |= 32
	}
	if d.Saturday != nil {
		mask |= 64
	}
	return mask
}

// newTaskDocument builds the task definition for an alarm. One-time
// alarms get a TimeTrigger pinned to the calendar date; recurring alarms
// get a weekly CalendarTrigger with the day bitmask (127 = daily).
func newTaskDocument(at time.Time, meta wakelib.JobMetadata, exe, arguments, workDir string, days []string, oneTime bool) taskDocument {
	doc := taskDocument{
		Version: "1.2",
		Xmlns:   "http://schemas.microsoft.com/windows/2004/02/mit/task",
		RegistrationInfo: taskRegistrationInfo{
			Author:      wakelib.Marker,
			Description: meta.Encode(),
		},
		Settings: taskSettings{
			Enabled:                    true,
			StartWhenAvailable:         true,
			WakeToRun:                  true,
			DisallowStartIfOnBatteries: false,
			StopIfGoingOnBatteries:     false,
			Hidden:                     false,
		},
		Actions: taskActions{
			Context: "Author",
			Exec: taskExec{
				Command:          exe,
				Arguments:        arguments,
				WorkingDirectory: workDir,
			},
		},
	}
	boundary := at.Format(taskTimeLayout)
	if oneTime {
		doc.Triggers.TimeTrigger = &timeTrigger{
			StartBoundary: boundary,
			Enabled:       true,
		}
	} else {
		week := &scheduleByWeek{WeeksInterval: 1}
		week.DaysOfWeek.setMask(wakelib.TaskDaysMask(days))
		doc.Triggers.CalendarTrigger = &calendarTrigger{
			StartBoundary:  boundary,
			Enabled:        true,
			ScheduleByWeek: week,
		}
	}
	return doc
}

// daysLabel derives the listing day representation from the triggers.
func (d *taskDocument) daysLabel() []string {
	if d.Triggers.TimeTrigger != nil {
		return []string{wakelib.DayOnce}
	}
	if ct := d.Triggers.CalendarTrigger; ct != nil && ct.ScheduleByWeek != nil {
		mask := ct.ScheduleByWeek.DaysOfWeek.mask()
		if mask == 127 || mask == 0 {
			return []string{wakelib.DayDaily}
		}
		return wakelib.TaskMaskDays(mask)
	}
	return []string{wakelib.DayDaily}
}
