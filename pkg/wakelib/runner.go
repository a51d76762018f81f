package wakelib

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner abstracts subprocess execution so scheduler adapters and
// the action executor can be tested against fakes. All native facilities
// this application talks to (crontab, launchctl, schtasks, media players)
// are reached through this seam.
type CommandRunner interface {
	// Run executes a command and returns its combined stdout. A non-zero
	// exit status is returned as an error carrying stderr text.
	Run(name string, args ...string) (string, error)

	// RunInput executes a command with the given stdin payload.
	RunInput(input string, name string, args ...string) (string, error)

	// Start launches a command without waiting for it to finish. Used for
	// long-running fire-time actions such as media playback.
	Start(name string, args ...string) error
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(name string, args ...string) (string, error) {
	return runCmd("", name, args...)
}

// RunInput implements CommandRunner.
func (ExecRunner) RunInput(input string, name string, args ...string) (string, error) {
	return runCmd(input, name, args...)
}

// Start implements CommandRunner.
func (ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Detach so the fired process can exit while the action keeps running.
	return cmd.Process.Release()
}

func runCmd(input, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s: %s", name, msg)
	}
	return stdout.String(), nil
}

var _ CommandRunner = ExecRunner{}
