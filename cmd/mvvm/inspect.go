package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/delaneyj/mvvm/reactive"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:   "inspect",
		Usage:  "Compile a template and list every reactive property with its subscribers",
		Flags:  mountFlags(),
		Action: inspect,
	}
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	_, vm, err := mount(cmd)
	if err != nil {
		return err
	}
	if vm.Inert() {
		return fmt.Errorf("root %q not found", cmd.String(rootKey))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"path", "id", "subscribers"})

	deps, subs := 0, 0
	vm.Data().Walk(func(d *reactive.Dep) {
		deps++
		subs += d.Len()
		table.Append([]string{
			d.Path(),
			fmt.Sprintf("%016x", d.ID()),
			humanize.Comma(int64(d.Len())),
		})
	})
	table.SetFooter([]string{
		humanize.Comma(int64(deps)) + " properties",
		humanize.Comma(int64(vm.System().Len())) + " watchers",
		humanize.Comma(int64(subs)),
	})
	table.Render()

	log.Printf("%d bindings under %q", vm.Compiler().Bindings(), cmd.String(rootKey))
	return nil
}
