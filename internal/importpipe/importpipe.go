// Package importpipe drives the watcher registry against the store:
// discover sources, parse new ones, write sessions and messages.
package importpipe

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
	"github.com/lorehq/lore/internal/watch"
)

var uuidZero uuid.UUID

// Options configures one pipeline run.
type Options struct {
	// Force re-imports sources whose source_path already has a session,
	// instead of skipping them.
	Force bool
	// DryRun walks the pipeline without writing anything to the store.
	DryRun bool
	// MachineID is stamped onto every imported session.
	MachineID model.Machine
}

// WatcherStats tallies one watcher's contribution to a run.
type WatcherStats struct {
	Watcher  string
	Imported int
	Skipped  int
	Errors   int
}

// Report summarizes a full pipeline run.
type Report struct {
	ByWatcher []WatcherStats
	Errors    []error
}

// Totals sums Imported/Skipped/Errors across every watcher.
func (r Report) Totals() (imported, skipped, errored int) {
	for _, s := range r.ByWatcher {
		imported += s.Imported
		skipped += s.Skipped
		errored += s.Errors
	}
	return
}

// Run walks every available watcher in the registry, importing sessions
// into st. Parser errors for a single source are tallied, not fatal; the
// run only stops early if the context is canceled.
func Run(ctx context.Context, reg *watch.Registry, st *store.Store, opts Options) (Report, error) {
	var report Report

	for _, w := range reg.Available() {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		stats := WatcherStats{Watcher: w.Info().Name}

		sources, err := w.FindSources()
		if err != nil {
			report.Errors = append(report.Errors, loreerr.New(loreerr.KindFileSystem, "find sources: "+w.Info().Name, err))
			stats.Errors++
			report.ByWatcher = append(report.ByWatcher, stats)
			continue
		}

		for _, src := range sources {
			if !opts.Force {
				exists, err := st.SessionExistsBySource(ctx, src)
				if err != nil {
					report.Errors = append(report.Errors, loreerr.New(loreerr.KindStore, "check existing session", err))
					stats.Errors++
					continue
				}
				if exists {
					stats.Skipped++
					continue
				}
			}

			parsed, err := w.ParseSource(src)
			if err != nil {
				report.Errors = append(report.Errors, loreerr.New(loreerr.KindParse, fmt.Sprintf("parse %s", src), err))
				stats.Errors++
				continue
			}

			for _, ps := range parsed {
				if len(ps.Messages) == 0 {
					continue
				}
				if opts.DryRun {
					stats.Imported++
					continue
				}

				sess := ps.Session
				if opts.MachineID.ID != uuidZero {
					sess.MachineID = opts.MachineID.ID
				}

				if err := st.ImportSessionWithMessages(ctx, sess, ps.Messages, nil); err != nil {
					report.Errors = append(report.Errors, loreerr.New(loreerr.KindStore, fmt.Sprintf("import %s", src), err))
					stats.Errors++
					continue
				}
				stats.Imported++
			}
		}

		report.ByWatcher = append(report.ByWatcher, stats)
	}

	return report, nil
}
