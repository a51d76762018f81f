package wakelib

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chronowake/chronowake/pkg/logger"
)

// recordRunner captures invocations and can fail selected commands.
type recordRunner struct {
	calls []string
	fail  map[string]error
}

func (r *recordRunner) record(name string, args []string) error {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	if err, ok := r.fail[name]; ok {
		return err
	}
	return nil
}

func (r *recordRunner) Run(name string, args ...string) (string, error) {
	return "", r.record(name, args)
}

func (r *recordRunner) RunInput(input, name string, args ...string) (string, error) {
	return "", r.record(name, args)
}

func (r *recordRunner) Start(name string, args ...string) error {
	return r.record(name, args)
}

func newTestExecutor(goos string, runner *recordRunner) (*ActionExecutor, *logger.MockLogger) {
	log := logger.NewMockLogger()
	e := NewActionExecutor(runner, log)
	e.goos = goos
	e.sleep = func(time.Duration) {}
	return e, log
}

func TestExecuteSequenceAllOK(t *testing.T) {
	runner := &recordRunner{}
	e, _ := newTestExecutor("linux", runner)
	seq := &Sequence{
		Name: "Wake",
		Actions: []Action{
			{Type: "open_url", Config: map[string]interface{}{"url": "https://example.com"}},
			{Type: "set_volume", Config: map[string]interface{}{"level": 80.0}},
			{Type: "notify", Config: map[string]interface{}{"title": "Up", "message": "rise"}},
		},
	}
	if got := e.ExecuteSequence(seq); got != 3 {
		t.Errorf("completed = %d, want 3", got)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("calls = %v", runner.calls)
	}
	if runner.calls[0] != "xdg-open https://example.com" {
		t.Errorf("open_url call = %q", runner.calls[0])
	}
	if runner.calls[1] != "amixer -q sset Master 80%" {
		t.Errorf("set_volume call = %q", runner.calls[1])
	}
}

func TestExecuteSequenceContinuesPastFailure(t *testing.T) {
	runner := &recordRunner{fail: map[string]error{"amixer": errors.New("no mixer")}}
	e, log := newTestExecutor("linux", runner)
	seq := &Sequence{
		Name: "Wake",
		Actions: []Action{
			{Type: "set_volume", Config: map[string]interface{}{"level": 50}},
			{Type: "notify", Config: map[string]interface{}{"message": "hello"}},
		},
	}
	if got := e.ExecuteSequence(seq); got != 1 {
		t.Errorf("completed = %d, want 1", got)
	}
	// The failing action is reported, the next one still runs.
	if len(runner.calls) != 2 {
		t.Errorf("calls = %v", runner.calls)
	}
	if len(log.ErrorCalls) == 0 {
		t.Error("failing action not logged")
	}
}

func TestExecuteUnknownActionSkipped(t *testing.T) {
	runner := &recordRunner{}
	e, log := newTestExecutor("linux", runner)
	if err := e.Execute(Action{Type: "levitate"}); err != nil {
		t.Errorf("unknown action err = %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("unknown action ran something: %v", runner.calls)
	}
	if len(log.WarningCalls) == 0 {
		t.Error("unknown action not logged as warning")
	}
}

func TestExecuteWait(t *testing.T) {
	runner := &recordRunner{}
	e, _ := newTestExecutor("linux", runner)
	var slept time.Duration
	e.sleep = func(d time.Duration) { slept = d }
	if err := e.Execute(Action{Type: "wait", Config: map[string]interface{}{"seconds": 3.0}}); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if slept != 3*time.Second {
		t.Errorf("slept = %v", slept)
	}
}

func TestExecuteMissingConfig(t *testing.T) {
	runner := &recordRunner{}
	e, _ := newTestExecutor("linux", runner)
	if err := e.Execute(Action{Type: "open_url"}); err == nil {
		t.Error("open_url without url accepted")
	}
	if err := e.Execute(Action{Type: "run_command"}); err == nil {
		t.Error("run_command without command accepted")
	}
}

func TestRunCommandWaitFlag(t *testing.T) {
	for _, wait := range []bool{true, false} {
		runner := &recordRunner{}
		e, _ := newTestExecutor("linux", runner)
		err := e.Execute(Action{Type: "run_command", Config: map[string]interface{}{
			"command": "mpv",
			"args":    []interface{}{"alarm.mp3"},
			"wait":    wait,
		}})
		if err != nil {
			t.Fatalf("run_command(wait=%v): %v", wait, err)
		}
		if len(runner.calls) != 1 || runner.calls[0] != "mpv alarm.mp3" {
			t.Errorf("run_command(wait=%v) calls = %v", wait, runner.calls)
		}
	}
}

func TestSetVolumeClamped(t *testing.T) {
	runner := &recordRunner{}
	e, _ := newTestExecutor("linux", runner)
	if err := e.Execute(Action{Type: "set_volume", Config: map[string]interface{}{"level": 250.0}}); err != nil {
		t.Fatalf("set_volume: %v", err)
	}
	if want := "amixer -q sset Master 100%"; runner.calls[0] != want {
		t.Errorf("clamped call = %q, want %q", runner.calls[0], want)
	}
}

func TestPlatformDispatch(t *testing.T) {
	cases := []struct {
		goos string
		tool string
	}{
		{"linux", "xdg-open"},
		{"darwin", "open"},
		{"windows", "rundll32"},
	}
	for _, c := range cases {
		runner := &recordRunner{}
		e, _ := newTestExecutor(c.goos, runner)
		if err := e.Execute(Action{Type: "open_url", Config: map[string]interface{}{"url": "https://x"}}); err != nil {
			t.Fatalf("%s open_url: %v", c.goos, err)
		}
		if len(runner.calls) != 1 || !strings.HasPrefix(runner.calls[0], c.tool) {
			t.Errorf("%s open_url = %v, want prefix %q", c.goos, runner.calls, c.tool)
		}
	}
}

func TestNotifyDefaultTitle(t *testing.T) {
	runner := &recordRunner{}
	e, _ := newTestExecutor("linux", runner)
	if err := e.Execute(Action{Type: "notify", Config: map[string]interface{}{"message": "up"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	want := fmt.Sprintf("notify-send %s up", Marker)
	if runner.calls[0] != want {
		t.Errorf("notify call = %q, want %q", runner.calls[0], want)
	}
}
