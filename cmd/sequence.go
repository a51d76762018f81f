package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/chronowake/chronowake/cmd/common"
	"github.com/chronowake/chronowake/pkg/wakelib"
)

func sequenceList(ctx *cli.Context) error {
	env := newAppEnv()
	defer env.Close()

	names, err := env.store.List()
	if err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "list", err)
		return nil
	}
	if len(names) == 0 {
		fmt.Println("chronowake: no sequences stored")
		return nil
	}
	fmt.Println("Stored sequences:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func sequenceShow(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no sequence name provided"))
	}
	env := newAppEnv()
	defer env.Close()

	seq, err := env.store.Load(name)
	if err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "show", err)
		return nil
	}
	out, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "show", err)
		return nil
	}
	fmt.Println(string(out))
	return nil
}

// sequenceImport reads a sequence document from a JSON file and stores
// it under the name it declares.
func sequenceImport(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no file provided"))
	}
	env := newAppEnv()
	defer env.Close()

	data, err := afero.ReadFile(env.fs, path)
	if err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "import", err)
		return nil
	}
	var seq wakelib.Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "import", err)
		return nil
	}
	if err := env.store.Save(&seq); err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "import", err)
		return nil
	}
	fmt.Printf("Imported sequence: %s (%d actions)\n", seq.Name, len(seq.Actions))
	return nil
}

func sequenceRemove(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no sequence name provided"))
	}
	env := newAppEnv()
	defer env.Close()

	if err := env.store.Remove(name); err != nil {
		common.PrintRuntimeErr(ctx, "sequence", "remove", err)
		return nil
	}
	fmt.Printf("Removed sequence: %s\n", name)
	return nil
}
