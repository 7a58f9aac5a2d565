package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/mvvm"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const itersKey = "iters"

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 5, 10}
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Measure how long a write takes to reach every bound text node",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Writes per configuration",
				Value: 100,
			},
		},
		Action: bench,
	}
}

// benchTemplate builds w paragraphs that each interpolate n h times.
func benchTemplate(w, h int) string {
	var sb strings.Builder
	sb.WriteString(`<div id="app">`)
	for i := 0; i < w; i++ {
		sb.WriteString("<p>")
		for j := 0; j < h; j++ {
			sb.WriteString("{{n}} ")
		}
		sb.WriteString("</p>")
	}
	sb.WriteString("</div>")
	return sb.String()
}

func bench(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Uint(itersKey))
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tbl := table.NewWriter()
	tbl.SetTitle("mvvm propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "watchers", "avg", "min", "p75", "p99", "max"})

	log.Printf("running %d writes per configuration", iters)
	for _, w := range ww {
		for _, h := range hh {
			doc, err := dom.ParseString(benchTemplate(w, h))
			if err != nil {
				return err
			}
			vm, err := mvvm.New(mvvm.Options{
				Root:     "#app",
				Document: doc,
				Data:     map[string]any{"n": 0},
				Logger:   quiet,
			})
			if err != nil {
				return err
			}

			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			for i := 1; i <= iters; i++ {
				start := time.Now()
				if err := vm.Set("n", i); err != nil {
					return err
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					humanize.Comma(int64(vm.System().Len())),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}
	tbl.Render()
	return nil
}
