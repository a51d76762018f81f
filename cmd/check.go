package cmd

import (
	"fmt"

	"github.com/urfave/cli"
)

// check reports scheduler availability through the exit code so
// installers and scripts can probe the machine.
func check(ctx *cli.Context) error {
	env := newAppEnv()
	defer env.Close()

	if !env.sched.Available() {
		return cli.NewExitError("chronowake: no native scheduler available", 1)
	}
	fmt.Println("chronowake: native scheduler available")
	return nil
}

func debug(ctx *cli.Context) error {
	env := newAppEnv()
	defer env.Close()

	fmt.Println(env.sched.DebugInfo())
	return nil
}
