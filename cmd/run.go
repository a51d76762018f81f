package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
	"github.com/chronowake/chronowake/internal/history"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

// fireRequest is the parsed fire-time invocation a native scheduler job
// makes when an alarm goes off.
type fireRequest struct {
	Sequence      string
	DeleteAfter   bool
	JobID         string
	ScheduledTime string
}

// run executes a sequence on user request, without a native job behind
// it.
func run(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sequence := ctx.Args().First()
	if sequence == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no sequence name provided"))
	}

	env := newAppEnv()
	defer env.Close()

	seq, err := env.store.Load(sequence)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "load_sequence", err)
		return nil
	}
	completed := wakelib.NewActionExecutor(wakelib.ExecRunner{}, env.log).ExecuteSequence(seq)
	recordFiring(env, history.Record{
		Sequence:     sequence,
		FiredAt:      time.Now(),
		ActionsTotal: len(seq.Actions),
		ActionsOK:    completed,
		Outcome:      firingOutcome(len(seq.Actions), completed),
	})
	fmt.Printf("%s: executed %d/%d actions of %q\n",
		ctx.App.HelpName, completed, len(seq.Actions), sequence)
	return nil
}

// fire handles the invocation coming from a native scheduler job. The
// one-time registration is removed even when the sequence has since been
// deleted, otherwise the dead job would linger in the native store.
func fire(ctx *cli.Context, req fireRequest) error {
	env := newAppEnv()
	defer env.Close()

	seq, err := env.store.Load(req.Sequence)
	if err != nil {
		env.log.Error("alarm fired but sequence %q could not be loaded: %s",
			req.Sequence, err.Error())
		recordFiring(env, history.Record{
			Sequence:      req.Sequence,
			ScheduledTime: req.ScheduledTime,
			FiredAt:       time.Now(),
			OneTime:       req.DeleteAfter,
			Outcome:       "sequence-not-found",
		})
		deleteFired(env, req)
		return cli.NewExitError(
			fmt.Sprintf("chronowake: sequence %q not found", req.Sequence), 1)
	}

	env.log.Info("alarm fired: sequence=%q scheduled=%s one-time=%t",
		req.Sequence, req.ScheduledTime, req.DeleteAfter)
	completed := wakelib.NewActionExecutor(wakelib.ExecRunner{}, env.log).ExecuteSequence(seq)
	recordFiring(env, history.Record{
		Sequence:      req.Sequence,
		ScheduledTime: req.ScheduledTime,
		FiredAt:       time.Now(),
		OneTime:       req.DeleteAfter,
		ActionsTotal:  len(seq.Actions),
		ActionsOK:     completed,
		Outcome:       firingOutcome(len(seq.Actions), completed),
	})
	deleteFired(env, req)
	return nil
}

// deleteFired removes the native registration of a fired one-time alarm.
// Failures are logged, never surfaced: the alarm itself already ran.
func deleteFired(env *appEnv, req fireRequest) {
	if !req.DeleteAfter {
		return
	}
	ok, msg := env.sched.RemoveFired(req.Sequence, req.JobID, req.ScheduledTime)
	if !ok {
		env.log.Error("could not remove fired one-time alarm %q: %s", req.Sequence, msg)
		return
	}
	env.log.Info("removed fired one-time alarm %q: %s", req.Sequence, msg)
}

// recordFiring appends to the fire history, best-effort.
func recordFiring(env *appEnv, r history.Record) {
	st, err := history.Open(wakelib.HistoryPath())
	if err != nil {
		env.log.Warning("fire history unavailable: %s", err.Error())
		return
	}
	defer st.Close()
	if err := st.Append(r); err != nil {
		env.log.Warning("could not record firing: %s", err.Error())
	}
}

func firingOutcome(total, completed int) string {
	if completed < total {
		return "partial"
	}
	return "ok"
}
