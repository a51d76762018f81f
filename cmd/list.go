package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
)

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	env := newAppEnv()
	defer env.Close()

	if !env.sched.Available() {
		fmt.Println("chronowake: no native scheduler available on this machine")
		return nil
	}
	alarms := env.sched.ListAlarms()
	if len(alarms) == 0 {
		fmt.Println("chronowake: no alarms scheduled")
		return nil
	}
	txt := "Here are your alarms:"
	txt += "\n\n---------------------------------------------------------------"
	txt += "\n| Time  |        Sequence        |       Days      | Enabled |"
	txt += "\n|-------|------------------------|-----------------|---------|"
	for _, a := range alarms {
		name := a.Sequence
		if len(name) > 22 {
			name = name[:19] + "..."
		}
		days := strings.Join(a.Days, ", ")
		if len(days) > 15 {
			days = days[:12] + "..."
		}
		enabled := "yes"
		if !a.Enabled {
			enabled = "no"
		}
		txt += fmt.Sprintf("\n|%s|%s|%s|%s|",
			common.Beaut(a.Time, 7),
			common.Beaut(name, 24),
			common.Beaut(days, 17),
			common.Beaut(enabled, 9),
		)
	}
	txt += "\n---------------------------------------------------------------"
	fmt.Println(txt)
	return nil
}
