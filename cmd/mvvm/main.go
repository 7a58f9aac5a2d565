package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "mvvm",
		Usage: "Bind HTML templates to YAML data and watch them react",
		Commands: []*cli.Command{
			renderCommand(),
			inspectCommand(),
			benchCommand(),
			watchCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
