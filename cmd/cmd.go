package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// Fire-time flags. The native scheduler records invoke the executable
// with these app-level flags and no command; spelling must stay in sync
// with the wakelib flag constants embedded into job records.
var (
	fireSequence  string
	fireDelete    bool
	fireJobID     string
	fireScheduled string
	checkOnly     bool

	appFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "execute-sequence",
			Usage:       "execute the named action sequence (used by scheduled jobs)",
			Destination: &fireSequence,
			Hidden:      true,
		},
		cli.BoolFlag{
			Name:        "delete-after",
			Usage:       "remove the native registration after executing (one-time alarms)",
			Destination: &fireDelete,
			Hidden:      true,
		},
		cli.StringFlag{
			Name:        "job-id",
			Usage:       "job identity of the registration to remove",
			Destination: &fireJobID,
			Hidden:      true,
		},
		cli.StringFlag{
			Name:        "scheduled-time",
			Usage:       "scheduled clock time of the registration to remove",
			Destination: &fireScheduled,
			Hidden:      true,
		},
		cli.BoolFlag{
			Name:        "check",
			Usage:       "exit 0 if a native scheduler is available, 1 otherwise",
			Destination: &checkOnly,
			Hidden:      true,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "chronowake",
		HelpName:              "chronowake",
		Usage:                 "An alarm clock that schedules with the operating system.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "chronowake <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:                   "add",
				Aliases:                []string{"a"},
				Usage:                  "schedule a new alarm",
				Action:                 add,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            AddDescription,
				UseShortOptionHandling: true,
				Flags:                  addFlags,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "display scheduled alarms",
				Action:             list,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ListDescription,
			},
			{
				Name:                   "remove",
				Aliases:                []string{"rm"},
				Usage:                  "delete a scheduled alarm",
				Action:                 remove,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            RemoveDescription,
				UseShortOptionHandling: true,
				Flags:                  rmFlags,
			},
			{
				Name:               "run",
				Aliases:            []string{"r"},
				Usage:              "execute an action sequence now",
				Action:             run,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        RunDescription,
			},
			{
				Name:               "sequence",
				Aliases:            []string{"s"},
				Usage:              "manage stored action sequences",
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        SequenceDescription,
				Subcommands: []cli.Command{
					{
						Name:   "list",
						Usage:  "list stored sequences",
						Action: sequenceList,
					},
					{
						Name:   "show",
						Usage:  "print a stored sequence",
						Action: sequenceShow,
					},
					{
						Name:   "import",
						Usage:  "store a sequence from a JSON file",
						Action: sequenceImport,
					},
					{
						Name:   "remove",
						Usage:  "delete a stored sequence",
						Action: sequenceRemove,
					},
				},
			},
			{
				Name:                   "history",
				Usage:                  "display recent alarm firings",
				Action:                 showHistory,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            HistoryDescription,
				UseShortOptionHandling: true,
				Flags:                  histFlags,
			},
			{
				Name:               "check",
				Usage:              "report native scheduler availability",
				Action:             check,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        CheckDescription,
			},
			{
				Name:               "debug",
				Usage:              "dump raw native scheduler state",
				Action:             debug,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DebugDescription,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of chronowake",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      root,
		Flags:       appFlags,
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}

// root handles bare invocations. Scheduled jobs call the executable with
// --execute-sequence and friends instead of a command name; everything
// else gets the help screen.
func root(ctx *cli.Context) error {
	switch {
	case checkOnly:
		return check(ctx)
	case fireSequence != "":
		return fire(ctx, fireRequest{
			Sequence:      fireSequence,
			DeleteAfter:   fireDelete,
			JobID:         fireJobID,
			ScheduledTime: fireScheduled,
		})
	default:
		return common.Help(ctx)
	}
}
