package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/mvvm"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

const debounceKey = "debounce"

var errNoDataFile = errors.New("watch needs --data")

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Mount a template and re-render it every time the data file changes",
		Flags: append(mountFlags(),
			&cli.DurationFlag{
				Name:  debounceKey,
				Usage: "Quiet period before a burst of file events is applied",
				Value: 100 * time.Millisecond,
			},
		),
		Action: watch,
	}
}

func watch(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String(dataKey)
	if path == "" {
		return errNoDataFile
	}
	_, vm, err := mount(cmd)
	if err != nil {
		return err
	}
	if vm.Inert() {
		return fmt.Errorf("root %q not found", cmd.String(rootKey))
	}
	if err := printRoot(os.Stdout, vm); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Editors replace files by rename, so the directory is watched.
	path = filepath.Clean(path)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	delay := cmd.Duration(debounceKey)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-fw.Errors:
			log.Printf("file watcher error: %v", err)
		case ev := <-fw.Events:
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			pending = time.After(delay)
		case <-pending:
			pending = nil
			data, err := loadData(path)
			if err != nil {
				log.Printf("reload %s: %v", path, err)
				continue
			}
			changed, err := reload(vm, data)
			if err != nil {
				log.Printf("reload %s: %v", path, err)
			}
			log.Printf("reloaded %s: %d properties written", path, len(changed))
			if err := printRoot(os.Stdout, vm); err != nil {
				return err
			}
		}
	}
}

// reload writes every top-level key of data into the view model. Keys the
// store does not know are skipped; it never grows new properties.
func reload(vm *mvvm.VM, data map[string]any) (written []string, err error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if !vm.Data().Has(k) || vm.Data().IsComputed(k) {
			errs = append(errs, fmt.Errorf("skip %q: not a data property", k))
			continue
		}
		if err := vm.Set(k, data[k]); err != nil {
			errs = append(errs, fmt.Errorf("set %q: %w", k, err))
			continue
		}
		written = append(written, k)
	}
	return written, errors.Join(errs...)
}

func printRoot(w io.Writer, vm *mvvm.VM) error {
	markup, err := dom.OuterHTML(vm.Root())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, markup)
	return err
}
