package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/mvvm"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	setKey      = "set"
	inputKey    = "input"
	dumpKey     = "dump"
	documentKey = "document"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Compile a template, apply writes and input events, print the result",
		Flags: append(mountFlags(),
			&cli.StringSliceFlag{
				Name:  setKey,
				Usage: "Write path=value into the data after mounting (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  inputKey,
				Usage: "Type selector=value into a control and fire its input event (repeatable)",
			},
			&cli.BoolFlag{
				Name:  dumpKey,
				Usage: "Print the final data as YAML after the markup",
			},
			&cli.BoolFlag{
				Name:  documentKey,
				Usage: "Print the whole document instead of the root node",
			},
		),
		Action: render,
	}
}

func render(ctx context.Context, cmd *cli.Command) error {
	doc, vm, err := mount(cmd)
	if err != nil {
		return err
	}
	if vm.Inert() {
		log.Printf("root %q not found, printing the template untouched", cmd.String(rootKey))
	}

	if err := applyWrites(vm, cmd.StringSlice(setKey)); err != nil {
		return err
	}
	if err := applyInputs(doc, cmd.StringSlice(inputKey)); err != nil {
		return err
	}

	out := os.Stdout
	if cmd.Bool(documentKey) || vm.Inert() {
		if err := doc.Render(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	} else if err := printRoot(out, vm); err != nil {
		return err
	}

	if cmd.Bool(dumpKey) && !vm.Inert() {
		b, err := yaml.Marshal(vm.Data().Raw())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "---")
		out.Write(b)
	}
	return nil
}

// applyWrites stores raw strings, the same as a bound control would.
func applyWrites(vm *mvvm.VM, assignments []string) error {
	for _, a := range assignments {
		path, value, err := parseAssignment(a)
		if err != nil {
			return err
		}
		if err := vm.Set(path, value); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

func applyInputs(doc dom.Document, inputs []string) error {
	for _, in := range inputs {
		sel, value, err := parseAssignment(in)
		if err != nil {
			return err
		}
		node := doc.QuerySelector(sel)
		if node == nil {
			return fmt.Errorf("input %q: no node matches", sel)
		}
		node.SetValue(value)
		if err := node.Dispatch(&dom.Event{Type: "input"}); err != nil {
			return fmt.Errorf("input %q: %w", sel, err)
		}
	}
	return nil
}
