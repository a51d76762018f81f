package cmd

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
	"github.com/chronowake/chronowake/internal/history"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

var (
	histLimit int

	histFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "maximum number of firings to show",
			Value:       20,
			Destination: &histLimit,
		},
	}
)

func showHistory(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	st, err := history.Open(wakelib.HistoryPath())
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "open", err)
		return nil
	}
	defer st.Close()

	records, err := st.Recent(histLimit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "query", err)
		return nil
	}
	if len(records) == 0 {
		fmt.Println("chronowake: no alarms have fired yet")
		return nil
	}
	fmt.Println("Recent firings:")
	for _, r := range records {
		kind := "recurring"
		if r.OneTime {
			kind = "one-time"
		}
		if r.ScheduledTime == "" {
			kind = "manual"
		}
		fmt.Printf("  %s  %-20q  %s  %d/%d actions  %s\n",
			r.FiredAt.Format("2006-01-02 15:04"),
			r.Sequence, kind, r.ActionsOK, r.ActionsTotal, r.Outcome)
	}
	return nil
}
