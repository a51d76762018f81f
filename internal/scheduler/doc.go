// Package scheduler registers alarms with the host operating system's
// native scheduling facility. There is no timer loop in this process:
// cron, launchd or the Windows Task Scheduler is the durable timer, and
// this package only writes, lists and removes job records there.
//
// One adapter exists per facility (CronAdapter, LaunchdAdapter,
// TaskSchedulerAdapter), all behind the Adapter interface. AlarmScheduler
// is the facade the rest of the application talks to; it picks the
// adapter for the running OS once at construction time and degrades to
// safe failure values when no facility is reachable.
package scheduler
