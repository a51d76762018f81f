package cmd

const DESCRIPTION = `
ChronoWake is a cross-platform alarm clock that schedules its
alarms with the operating system itself (cron, launchd or the
Windows Task Scheduler), so they fire reliably even when the
application is not running. When an alarm fires it executes a
named action sequence: open a page, play media, run a command,
adjust volume or brightness, show a notification.
`

const (
	AddDescription = `The add command registers a new alarm with the native
scheduler of the operating system. Recurring alarms fire
daily or on the given weekdays; one-time alarms fire at
the next occurrence of the given time and remove their
own registration afterwards.

Example:
        chronowake add -t 7:30 "Morning Routine"
        chronowake add -t 7:30 -d MON,WED,FRI "Morning Routine"
        chronowake add -t 7:30 --once "Morning Routine"

`
	ListDescription = `The list command displays every alarm this application
has registered with the native scheduler. Entries created
by other software are never shown.

Example:
        chronowake list

`
	RemoveDescription = `The remove command deletes an alarm from the native
scheduler. The alarm is matched by sequence name and
time, and optionally by its days label when several
alarms share the same time.

Example:
        chronowake remove -t 7:30 "Morning Routine"
        chronowake remove -t 7:30 -d MON,WED,FRI "Morning Routine"

`
	RunDescription = `The run command executes an action sequence immediately,
without touching the native scheduler. Useful for testing
a sequence before scheduling it.

Example:
        chronowake run "Morning Routine"

`
	SequenceDescription = `The sequence command manages the stored action sequences
that alarms execute when they fire.

Example:
        chronowake sequence list
        chronowake sequence show "Morning Routine"
        chronowake sequence import morning.json

`
	HistoryDescription = `The history command displays recent alarm firings with
their outcome, including firings that happened while no
user was watching.

Example:
        chronowake history
        chronowake history -n 50

`
	CheckDescription = `The check command reports whether a native scheduler is
available on this machine. It exits with status 0 when
alarms can be scheduled and 1 otherwise.

Example:
        chronowake check

`
	DebugDescription = `The debug command dumps the raw state of the native
scheduler for troubleshooting, tagging the entries owned
by this application.

Example:
        chronowake debug

`
)
