package cmd

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/chronowake/chronowake/internal/scheduler"
	"github.com/chronowake/chronowake/pkg/logger"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// appEnv bundles the runtime dependencies shared by every command:
// loaded settings, the logger, the scheduler facade and the sequence
// store. Commands construct it lazily so that help and version never
// touch the filesystem.
type appEnv struct {
	fs       afero.Fs
	settings wakelib.Settings
	log      logger.Logger
	sched    *scheduler.AlarmScheduler
	store    *wakelib.SequenceStore
}

func newAppEnv() *appEnv {
	fs := afero.NewOsFs()
	settings := wakelib.LoadSettings(fs, wakelib.SettingsPath())

	stderr := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	var lg logger.Logger = stderr
	if settings.FileLoggingEnabled {
		fl, err := logger.NewFileLogger(filepath.Join(wakelib.LogDir(), "chronowake.log"))
		if err != nil {
			stderr.Warning("file logging disabled: %s", err.Error())
		} else {
			lg = logger.NewMultiLogger(stderr, fl)
		}
	}

	return &appEnv{
		fs:       fs,
		settings: settings,
		log:      lg,
		sched: scheduler.New(scheduler.Options{
			Settings: settings,
			Fs:       fs,
		}, lg),
		store: wakelib.NewSequenceStore(fs, settings.EffectiveSequenceDir()),
	}
}

func (e *appEnv) Close() {
	_ = e.log.Close()
}
