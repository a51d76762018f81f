package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

var (
	addTime string
	addDays string
	addDate string
	addOnce bool

	addFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "time, t",
			Usage:       "alarm time as H:MM, 24-hour clock (required)",
			Destination: &addTime,
		},
		cli.StringFlag{
			Name:        "days, d",
			Usage:       "comma separated weekdays, e.g. MON,WED,FRI (default: daily)",
			Destination: &addDays,
		},
		cli.StringFlag{
			Name:        "date",
			Usage:       "fire once on this date, YYYY-MM-DD (implies --once)",
			Destination: &addDate,
		},
		cli.BoolFlag{
			Name:        "once, o",
			Usage:       "fire once at the next occurrence of --time, then self-remove",
			Destination: &addOnce,
		},
	}
)

func add(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sequence := ctx.Args().First()
	if sequence == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no sequence name provided"))
	}
	if addTime == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no alarm time provided"))
	}
	hour, minute, err := wakelib.ParseClock(addTime)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	oneTime := addOnce || addDate != ""
	days, err := parseDaysFlag(addDays)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	if oneTime && len(days) > 0 {
		return common.PrintErrWithCmdHelp(ctx,
			errors.New("a one-time alarm cannot carry weekdays"))
	}

	at, err := alarmTime(time.Now(), hour, minute, addDate, oneTime)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}

	env := newAppEnv()
	defer env.Close()

	if _, err := env.store.Load(sequence); err != nil {
		fmt.Printf("%s: note: sequence %q is not stored yet, the alarm will fail to fire until it is\n",
			ctx.App.HelpName, sequence)
	}

	ok, msg := env.sched.AddAlarm(at, sequence, days, oneTime)
	if !ok {
		common.PrintRuntimeErr(ctx, "add", "schedule", errors.New(msg))
		return nil
	}
	fmt.Println(msg)
	return nil
}

// parseDaysFlag splits and canonicalizes the -d value. An empty value
// means daily.
func parseDaysFlag(v string) ([]string, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	var days []string
	for _, d := range strings.Split(v, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			days = append(days, d)
		}
	}
	return wakelib.CanonicalDays(days)
}

// alarmTime resolves the moment passed to the adapters. Recurring alarms
// only use the clock part; one-time alarms need a concrete date, either
// the given one or the next occurrence of the clock time.
func alarmTime(now time.Time, hour, minute int, date string, oneTime bool) (time.Time, error) {
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
		}
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.Local), nil
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if oneTime && !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
