package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

var (
	rmTime string
	rmDays string

	rmFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "time, t",
			Usage:       "time of the alarm to remove, H:MM (required)",
			Destination: &rmTime,
		},
		cli.StringFlag{
			Name:        "days, d",
			Usage:       "days label of the alarm, e.g. Daily or MON,WED,FRI (optional)",
			Destination: &rmDays,
		},
	}
)

func remove(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sequence := ctx.Args().First()
	if sequence == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no sequence name provided"))
	}
	if rmTime == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no alarm time provided"))
	}
	hour, minute, err := wakelib.ParseClock(rmTime)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	daysLabel, err := parseDaysLabelFlag(rmDays)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	env := newAppEnv()
	defer env.Close()

	ok, msg := env.sched.RemoveAlarm(sequence, wakelib.FormatClock(hour, minute), daysLabel)
	if !ok {
		common.PrintRuntimeErr(ctx, "remove", "unschedule", errors.New(msg))
		return nil
	}
	fmt.Println(msg)
	return nil
}

// parseDaysLabelFlag turns the -d value into the comparable days label
// the adapters produce: "Daily", "Once" or a ", "-joined weekday list in
// MON..SUN order. Empty means match any days.
func parseDaysLabelFlag(v string) (string, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return "", nil
	case strings.EqualFold(v, wakelib.DayDaily):
		return wakelib.DayDaily, nil
	case strings.EqualFold(v, wakelib.DayOnce):
		return wakelib.DayOnce, nil
	}
	days, err := parseDaysFlag(v)
	if err != nil {
		return "", err
	}
	return strings.Join(wakelib.DaysLabel(days, false), ", "), nil
}
