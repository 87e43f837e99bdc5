// Package daemon implements the background watch/import/RPC process:
// watch every available watcher's WatchPaths(), debounce filesystem
// events, import incrementally, and serve a local RPC surface over a
// Unix-domain socket.
package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	. "github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/importpipe"
	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
	"github.com/lorehq/lore/internal/watch"
)

// debounceWindow coalesces bursts of filesystem events (e.g. a tool
// rewriting a transcript file several times in a row) into a single
// import pass, the same debounce idiom the teacher's SessionWatcher used
// for OpenClaw session files.
const debounceWindow = 750 * time.Millisecond

// rescanSchedule is the periodic full-registry safety net run via cron,
// covering changes fsnotify misses (e.g. watched directories created
// after the daemon started, or platforms where recursive watch is
// unreliable).
const rescanSchedule = "@every 5m"

// Daemon owns the watch loop, the debounced incremental importer, and the
// RPC server. Its Store API usage is the only interface it needs from the
// rest of the core.
type Daemon struct {
	store     *store.Store
	registry  *watch.Registry
	machine   model.Machine
	socketPath string

	fsWatcher *fsnotify.Watcher
	cron      *cron.Cron
	rpc       *rpcServer

	mu      sync.Mutex
	timer   *time.Timer
	lastRun time.Time
}

// New builds a Daemon bound to st and reg, stamping imported sessions with
// machine's identity, and serving RPC on socketPath.
func New(st *store.Store, reg *watch.Registry, machine model.Machine, socketPath string) (*Daemon, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Daemon{
		store:      st,
		registry:   reg,
		machine:    machine,
		socketPath: socketPath,
		fsWatcher:  fsw,
		cron:       cron.New(),
	}, nil
}

// Run watches every available watcher's WatchPaths(), starts the periodic
// rescan and the RPC listener, and blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	dirs := map[string]bool{}
	for _, p := range d.registry.AllWatchPaths() {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := d.fsWatcher.Add(dir); err != nil {
			L_warn("daemon: failed to watch directory", "dir", dir, "error", err)
			continue
		}
		L_debug("daemon: watching directory", "dir", dir)
	}

	if _, err := d.cron.AddFunc(rescanSchedule, func() { d.runImport(ctx) }); err != nil {
		return err
	}
	d.cron.Start()
	defer d.cron.Stop()

	rpc, err := newRPCServer(d.socketPath, d.store)
	if err != nil {
		return err
	}
	d.rpc = rpc
	go rpc.Serve()
	defer rpc.Close()

	L_info("daemon: started", "socket", d.socketPath, "watchedDirs", len(dirs))

	// One pass on startup so the store is current before the first
	// filesystem event or cron tick arrives.
	d.runImport(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-d.fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				d.scheduleImport(ctx)
			}
		case err, ok := <-d.fsWatcher.Errors:
			if !ok {
				return nil
			}
			L_warn("daemon: fsnotify error", "error", err)
		}
	}
}

// LastRun returns the time of the most recently completed import pass, or
// the zero time if none has run yet.
func (d *Daemon) LastRun() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRun
}

// scheduleImport debounces rapid successive filesystem events into one
// import pass, fired debounceWindow after the last event.
func (d *Daemon) scheduleImport(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(debounceWindow, func() { d.runImport(ctx) })
}

func (d *Daemon) runImport(ctx context.Context) {
	report, err := importpipe.Run(ctx, d.registry, d.store, importpipe.Options{MachineID: d.machine})
	if err != nil {
		L_warn("daemon: import pass failed", "error", err)
		return
	}
	imported, skipped, errored := report.Totals()
	d.lastRun = time.Now()
	if imported > 0 || errored > 0 {
		L_info("daemon: import pass complete", "imported", imported, "skipped", skipped, "errors", errored)
	} else {
		L_debug("daemon: import pass complete", "imported", imported, "skipped", skipped, "errors", errored)
	}
	if imported > 0 && d.rpc != nil {
		d.rpc.notifyImportPass(imported)
	}
}
