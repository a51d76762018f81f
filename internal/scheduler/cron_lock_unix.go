//go:build !windows

package scheduler

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/chronowake/chronowake/pkg/wakelib"
)

// flockLocker holds an advisory flock on a lock file in the app data
// directory while the crontab is rewritten. Both the UI process and the
// fired-alarm process go through this, so their mutations serialize.
type flockLocker struct {
	path string
}

func newCronLocker() cronLocker {
	return &flockLocker{path: filepath.Join(wakelib.AppDataDir(), "cron.lock")}
}

func (l *flockLocker) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
