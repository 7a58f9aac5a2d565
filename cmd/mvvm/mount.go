package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/delaneyj/mvvm/compiler"
	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/mvvm"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	templateKey = "template"
	dataKey     = "data"
	rootKey     = "root"
	prefixKey   = "prefix"
	lenientKey  = "lenient"
	verboseKey  = "verbose"
)

var errAssignment = errors.New("expected name=value")

func mountFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     templateKey,
			Aliases:  []string{"t"},
			Usage:    "HTML template file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    dataKey,
			Aliases: []string{"d"},
			Usage:   "YAML file with the initial data",
		},
		&cli.StringFlag{
			Name:  rootKey,
			Usage: "Selector of the node to compile",
			Value: "#app",
		},
		&cli.StringFlag{
			Name:  prefixKey,
			Usage: "Directive attribute prefix",
			Value: compiler.DefaultPrefix,
		},
		&cli.BoolFlag{
			Name:  lenientKey,
			Usage: "Render unresolvable interpolations as empty strings",
		},
		&cli.BoolFlag{
			Name:  verboseKey,
			Usage: "Log every bound directive",
		},
	}
}

func loadData(path string) (map[string]any, error) {
	data := map[string]any{}
	if path == "" {
		return data, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return data, nil
}

func mount(cmd *cli.Command) (*dom.HTMLDocument, *mvvm.VM, error) {
	f, err := os.Open(cmd.String(templateKey))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, nil, err
	}
	data, err := loadData(cmd.String(dataKey))
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelWarn
	if cmd.Bool(verboseKey) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	vm, err := mvvm.New(mvvm.Options{
		Root:     cmd.String(rootKey),
		Document: doc,
		Data:     data,
		Prefix:   cmd.String(prefixKey),
		Lenient:  cmd.Bool(lenientKey),
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, vm, nil
}

func parseAssignment(s string) (name, value string, err error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("%q: %w", s, errAssignment)
	}
	return name, value, nil
}
