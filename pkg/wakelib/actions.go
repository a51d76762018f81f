package wakelib

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/chronowake/chronowake/pkg/logger"
)

// ActionExecutor runs the actions of a sequence in order. Every action is
// a leaf wrapper over a platform command line reached through the
// CommandRunner seam. Execution is best-effort: a failing or unknown
// action is logged and skipped, it never aborts the rest of the sequence
// (the user asked to be woken up, not to debug their mixer settings).
type ActionExecutor struct {
	runner CommandRunner
	log    logger.Logger
	goos   string

	// sleep is replaced in tests to avoid real delays.
	sleep func(time.Duration)
}

// NewActionExecutor creates an executor for the current platform.
func NewActionExecutor(runner CommandRunner, log logger.Logger) *ActionExecutor {
	return &ActionExecutor{
		runner: runner,
		log:    log,
		goos:   runtime.GOOS,
		sleep:  time.Sleep,
	}
}

// ExecuteSequence runs all actions of a sequence in order and returns the
// number of actions that completed without error.
func (e *ActionExecutor) ExecuteSequence(seq *Sequence) int {
	completed := 0
	for i, action := range seq.Actions {
		e.log.Info("executing action %d/%d: %s", i+1, len(seq.Actions), action.Type)
		if err := e.Execute(action); err != nil {
			e.log.Error("action %s failed: %v", action.Type, err)
			continue
		}
		completed++
	}
	return completed
}

// Execute runs a single action.
func (e *ActionExecutor) Execute(action Action) error {
	switch action.Type {
	case "open_url":
		return e.openURL(configString(action.Config, "url"))
	case "run_command":
		return e.runCommand(action.Config)
	case "wait":
		e.sleep(time.Duration(configFloat(action.Config, "seconds")) * time.Second)
		return nil
	case "play_media":
		return e.playMedia(configString(action.Config, "path"))
	case "set_volume":
		return e.setVolume(int(configFloat(action.Config, "level")))
	case "set_brightness":
		return e.setBrightness(int(configFloat(action.Config, "level")))
	case "notify":
		return e.notify(configString(action.Config, "title"), configString(action.Config, "message"))
	default:
		e.log.Warning("skipping unknown action type %q", action.Type)
		return nil
	}
}

func (e *ActionExecutor) openURL(url string) error {
	if url == "" {
		return fmt.Errorf("open_url: missing url")
	}
	switch e.goos {
	case "windows":
		return e.runner.Start("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return e.runner.Start("open", url)
	default:
		return e.runner.Start("xdg-open", url)
	}
}

func (e *ActionExecutor) runCommand(config map[string]interface{}) error {
	command := configString(config, "command")
	if command == "" {
		return fmt.Errorf("run_command: missing command")
	}
	args := configStrings(config, "args")
	if configBool(config, "wait") {
		_, err := e.runner.Run(command, args...)
		return err
	}
	return e.runner.Start(command, args...)
}

func (e *ActionExecutor) playMedia(path string) error {
	if path == "" {
		return fmt.Errorf("play_media: missing path")
	}
	switch e.goos {
	case "windows":
		return e.runner.Start("cmd", "/C", "start", "", path)
	case "darwin":
		return e.runner.Start("open", path)
	default:
		// xdg-open hands the file to whatever player the desktop has bound.
		return e.runner.Start("xdg-open", path)
	}
}

func (e *ActionExecutor) setVolume(level int) error {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	switch e.goos {
	case "windows":
		// nircmd scales 0..65535
		_, err := e.runner.Run("nircmd", "setsysvolume", strconv.Itoa(level*65535/100))
		return err
	case "darwin":
		_, err := e.runner.Run("osascript", "-e", fmt.Sprintf("set volume output volume %d", level))
		return err
	default:
		_, err := e.runner.Run("amixer", "-q", "sset", "Master", fmt.Sprintf("%d%%", level))
		return err
	}
}

func (e *ActionExecutor) setBrightness(level int) error {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	switch e.goos {
	case "windows":
		_, err := e.runner.Run("powershell", "-Command",
			fmt.Sprintf("(Get-WmiObject -Namespace root/WMI -Class WmiMonitorBrightnessMethods).WmiSetBrightness(1,%d)", level))
		return err
	case "darwin":
		_, err := e.runner.Run("brightness", fmt.Sprintf("%.2f", float64(level)/100))
		return err
	default:
		_, err := e.runner.Run("brightnessctl", "set", fmt.Sprintf("%d%%", level))
		return err
	}
}

func (e *ActionExecutor) notify(title, message string) error {
	if title == "" {
		title = "ChronoWake"
	}
	switch e.goos {
	case "windows":
		_, err := e.runner.Run("msg", "*", fmt.Sprintf("%s: %s", title, message))
		return err
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		_, err := e.runner.Run("osascript", "-e", script)
		return err
	default:
		_, err := e.runner.Run("notify-send", title, message)
		return err
	}
}

func configString(config map[string]interface{}, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func configFloat(config map[string]interface{}, key string) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func configBool(config map[string]interface{}, key string) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return false
}

func configStrings(config map[string]interface{}, key string) []string {
	raw, ok := config[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
