package main

import (
	"context"
	"fmt"

	. "github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/importpipe"
	"github.com/lorehq/lore/internal/watch"
)

// ImportCmd runs one pass of every enabled, available watcher and writes
// newly discovered sessions to the store.
type ImportCmd struct {
	Force  bool `help:"Re-import sources that already have a session on record."`
	DryRun bool `help:"Walk the pipeline without writing anything." name:"dry-run"`
	Quiet  bool `help:"Suppress per-watcher output; used by git hooks and the daemon."`
}

func (c *ImportCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	cfg, err := ctx.Cfg()
	if err != nil {
		return err
	}
	machine, err := ctx.Machine()
	if err != nil {
		return err
	}

	reg := enabledRegistry(cfg)

	report, err := importpipe.Run(context.Background(), reg, st, importpipe.Options{
		Force:     c.Force,
		DryRun:    c.DryRun,
		MachineID: machine,
	})
	if err != nil {
		return loreerr.New(loreerr.KindStore, "import", err)
	}

	imported, skipped, errored := report.Totals()
	if c.Quiet {
		if errored > 0 {
			L_warn("import completed with errors", "imported", imported, "skipped", skipped, "errors", errored)
		}
		return nil
	}

	for _, ws := range report.ByWatcher {
		if ws.Imported == 0 && ws.Skipped == 0 && ws.Errors == 0 {
			continue
		}
		fmt.Printf("%-14s imported=%-4d skipped=%-4d errors=%d\n", ws.Watcher, ws.Imported, ws.Skipped, ws.Errors)
	}
	fmt.Printf("Total: %d imported, %d skipped, %d errors\n", imported, skipped, errored)
	for _, e := range report.Errors {
		fmt.Println(" -", e)
	}
	return nil
}

// enabledRegistry returns the default watcher registry filtered down to
// watchers cfg hasn't disabled.
func enabledRegistry(cfg interface{ WatcherEnabled(string) bool }) *watch.Registry {
	reg := watch.NewRegistry()
	for _, w := range watch.DefaultRegistry().All() {
		if cfg.WatcherEnabled(w.Info().Name) {
			reg.Register(w)
		}
	}
	return reg
}
