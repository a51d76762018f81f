// Package wakelib provides the core structures and conventions shared by
// the ChronoWake command surface and the platform scheduler adapters:
// the alarm model, the job identity and marker protocol, the sequence
// store, and the action executor invoked when an alarm fires.
package wakelib

import (
	"fmt"
	"strconv"
	"strings"
)

// Weekday codes in canonical order. All day lists produced by this
// package are ordered MON..SUN regardless of input order.
var WeekdayOrder = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// Listing day pseudo-values. A one-time alarm lists as ["Once"], a
// recurring alarm with no day restriction (or all seven days) as ["Daily"].
const (
	DayOnce  = "Once"
	DayDaily = "Daily"
)

// AlarmInfo is the listing record produced by every scheduler adapter.
// Time is formatted "H:MM" (no leading zero on the hour), Days is
// ["Once"], ["Daily"] or an explicit weekday list.
type AlarmInfo struct {
	Time     string   `json:"time"`
	Sequence string   `json:"sequence"`
	Days     []string `json:"days"`
	Enabled  bool     `json:"enabled"`
}

// cronWeekday maps weekday codes to cron day-of-week numbers (0 = Sunday).
var cronWeekday = map[string]int{
	"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6,
}

// cronWeekdayName is the reverse of cronWeekday.
var cronWeekdayName = map[int]string{
	0: "SUN", 1: "MON", 2: "TUE", 3: "WED", 4: "THU", 5: "FRI", 6: "SAT",
}

// taskWeekdayBit maps weekday codes to the Windows Task Scheduler
// DaysOfWeek bitmask (Sunday = 1).
var taskWeekdayBit = map[string]int{
	"SUN": 1, "MON": 2, "TUE": 4, "WED": 8, "THU": 16, "FRI": 32, "SAT": 64,
}

// CanonicalDays validates a list of weekday codes and returns it in
// MON..SUN order with duplicates removed. Codes are case-insensitive.
func CanonicalDays(days []string) ([]string, error) {
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		code := strings.ToUpper(strings.TrimSpace(d))
		if code == "" {
			continue
		}
		if _, ok := cronWeekday[code]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeekday, d)
		}
		seen[code] = true
	}
	out := make([]string, 0, len(seen))
	for _, code := range WeekdayOrder {
		if seen[code] {
			out = append(out, code)
		}
	}
	return out, nil
}

// DaysLabel converts a canonical day list into the listing representation.
// An empty list or all seven days collapse to ["Daily"].
func DaysLabel(days []string, oneTime bool) []string {
	if oneTime {
		return []string{DayOnce}
	}
	if len(days) == 0 || len(days) == 7 {
		return []string{DayDaily}
	}
	return days
}

// CronDayNumbers converts a canonical day list into sorted cron
// day-of-week numbers.
func CronDayNumbers(days []string) []int {
	nums := make([]int, 0, len(days))
	// WeekdayOrder starts at MON but cron sorts SUN first; emit in
	// ascending cron order so generated fields are stable.
	for n := 0; n <= 6; n++ {
		for _, d := range days {
			if cronWeekday[d] == n {
				nums = append(nums, n)
			}
		}
	}
	return nums
}

// CronDayName returns the weekday code for a cron day-of-week number.
// Cron accepts 7 as an alias for Sunday.
func CronDayName(n int) (string, bool) {
	if n == 7 {
		n = 0
	}
	name, ok := cronWeekdayName[n]
	return name, ok
}

// TaskDaysMask converts a canonical day list into the Windows Task
// Scheduler DaysOfWeek bitmask. An empty list yields 127 (every day).
func TaskDaysMask(days []string) int {
	if len(days) == 0 {
		return 127
	}
	mask := 0
	for _, d := range days {
		mask |= taskWeekdayBit[d]
	}
	return mask
}

// TaskMaskDays is the inverse of TaskDaysMask, returning days in
// canonical MON..SUN order.
func TaskMaskDays(mask int) []string {
	var days []string
	for _, code := range WeekdayOrder {
		if mask&taskWeekdayBit[code] != 0 {
			days = append(days, code)
		}
	}
	return days
}

// FormatClock renders an hour/minute pair in the listing format "H:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%d:%02d", hour, minute)
}

// FormatClockPadded renders an hour/minute pair as "HH:MM", the format
// used on command lines and in native job metadata.
func FormatClockPadded(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// ParseClock parses "HH:MM" (or "H:MM") into an hour/minute pair.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, ErrInvalidClock
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, ErrInvalidClock
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrInvalidClock
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidClock
	}
	return hour, minute, nil
}
