package wakelib

import (
	"fmt"
	"strings"
)

// Marker is the fixed string identifying native scheduler records created
// by this application. Native schedulers are shared, uncontrolled
// namespaces (a user's real crontab, the LaunchAgents directory, the root
// Task Scheduler library); the marker convention is the only thing
// preventing this app from touching unrelated entries.
const Marker = "ChronoWake"

// LaunchdLabelPrefix is the default reverse-DNS prefix for launchd job
// labels. A job's full label is "<prefix>.<job-id>".
const LaunchdLabelPrefix = "com.chronowake.alarm"

// Command-line flags of the fire-time invocation contract. The adapters
// embed these into native job records and the fired process parses them
// back out; both sides must agree on the exact spelling.
const (
	FlagExecuteSequence = "--execute-sequence"
	FlagDeleteAfter     = "--delete-after"
	FlagJobID           = "--job-id"
	FlagScheduledTime   = "--scheduled-time"
)

// BuildMarker returns the ownership marker for a native record. Recurring
// alarms carry the bare marker; one-time alarms carry "marker:job-id" so
// the fired process can later find its own registration.
func BuildMarker(jobID string) string {
	if jobID == "" {
		return Marker
	}
	return Marker + ":" + jobID
}

// IsOwned reports whether a record marker belongs to this application:
// either the bare marker or any "marker:<job-id>" form.
func IsOwned(marker string) bool {
	return marker == Marker || strings.HasPrefix(marker, Marker+":")
}

// MarkerJobID extracts the job id from a "marker:<job-id>" form, or ""
// for the bare marker or a foreign string.
func MarkerJobID(marker string) string {
	if !strings.HasPrefix(marker, Marker+":") {
		return ""
	}
	return strings.TrimPrefix(marker, Marker+":")
}

// JobMetadata is the identity payload embedded in every native job
// record. Each adapter serializes it into whatever field the native
// facility allows: launchd gets a structured EnvironmentVariables dict,
// the Task Scheduler Description gets the key=value encoding below, and
// cron keeps it in the line comment plus the command line itself.
type JobMetadata struct {
	Marker   string
	JobID    string
	Sequence string
	Time     string // "HH:MM"
	OneTime  bool
}

// Encode serializes metadata as "key=value;" pairs. The encoding is
// order-stable so records can be compared textually.
func (m JobMetadata) Encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "app=%s;seq=%s;time=%s", m.Marker, m.Sequence, m.Time)
	if m.JobID != "" {
		fmt.Fprintf(&b, ";job=%s", m.JobID)
	}
	if m.OneTime {
		b.WriteString(";once=1")
	}
	return b.String()
}

// DecodeJobMetadata parses the "key=value;" encoding produced by Encode.
// It also accepts the legacy pipe-delimited "ChronoWake|sequence|time"
// form written by earlier releases. Returns false for foreign strings.
func DecodeJobMetadata(s string) (JobMetadata, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "app=") {
		var m JobMetadata
		for _, pair := range strings.Split(s, ";") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			switch k {
			case "app":
				m.Marker = v
			case "seq":
				m.Sequence = v
			case "time":
				m.Time = v
			case "job":
				m.JobID = v
			case "once":
				m.OneTime = v == "1"
			}
		}
		if m.Marker != Marker {
			return JobMetadata{}, false
		}
		return m, true
	}
	// Legacy: "ChronoWake|sequence|time"
	if strings.HasPrefix(s, Marker+"|") {
		parts := strings.Split(s, "|")
		if len(parts) >= 3 {
			return JobMetadata{
				Marker:   Marker,
				Sequence: parts[1],
				Time:     parts[2],
			}, true
		}
	}
	return JobMetadata{}, false
}

// InvocationArgs builds the argument vector appended to the executable
// path in every native job record:
//
//	--execute-sequence <name> [--delete-after --job-id <uuid> --scheduled-time <HH:MM>]
func InvocationArgs(sequence string, oneTime bool, jobID, scheduledTime string) []string {
	args := []string{FlagExecuteSequence, sequence}
	if oneTime {
		args = append(args, FlagDeleteAfter, FlagJobID, jobID, FlagScheduledTime, scheduledTime)
	}
	return args
}

// QuoteCommand renders an executable plus arguments as a single shell
// command line for facilities that store commands as flat text (cron).
// The sequence name is the only argument that may contain spaces; it is
// double-quoted, matching the substring the matching tiers look for.
func QuoteCommand(exe string, args []string) string {
	parts := []string{quoteArg(exe)}
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// CommandHasSequence reports whether a stored command line invokes the
// given sequence, by looking for the exact `--execute-sequence <name>`
// substring in both quoted and unquoted spellings.
func CommandHasSequence(command, sequence string) bool {
	quoted := FlagExecuteSequence + ` "` + sequence + `"`
	bare := FlagExecuteSequence + ` ` + sequence
	if strings.Contains(command, quoted) {
		return true
	}
	if i := strings.Index(command, bare); i >= 0 {
		// Reject prefix matches such as "Wake" inside "Wakeup".
		rest := command[i+len(bare):]
		return rest == "" || rest[0] == ' '
	}
	return false
}

// CommandIsOneTime reports whether a stored command line carries the
// one-time self-deletion flag.
func CommandIsOneTime(command string) bool {
	return strings.Contains(command, FlagDeleteAfter)
}

// SequenceFromCommand extracts the sequence name from a stored command
// line, undoing the quoting applied by QuoteCommand.
func SequenceFromCommand(command string) (string, bool) {
	i := strings.Index(command, FlagExecuteSequence)
	if i < 0 {
		return "", false
	}
	rest := strings.TrimLeft(command[i+len(FlagExecuteSequence):], " ")
	if rest == "" {
		return "", false
	}
	if rest[0] == '"' {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return "", false
		}
		return rest[1 : 1+end], true
	}
	if j := strings.IndexByte(rest, ' '); j >= 0 {
		return rest[:j], true
	}
	return rest, true
}
