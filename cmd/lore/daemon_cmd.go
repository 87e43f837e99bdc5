package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	godaemon "github.com/sevlyar/go-daemon"

	. "github.com/lorehq/lore/internal/logging"
	loredaemon "github.com/lorehq/lore/internal/daemon"
	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/paths"
)

// DaemonCmd groups the background-process lifecycle commands.
type DaemonCmd struct {
	Start  DaemonStartCmd  `cmd:"" help:"Start the background watcher/importer."`
	Stop   DaemonStopCmd   `cmd:"" help:"Stop the running daemon."`
	Status DaemonStatusCmd `cmd:"" help:"Report whether the daemon is running."`
	Logs   DaemonLogsCmd   `cmd:"" help:"Print the path to the daemon's log file."`
}

type DaemonStartCmd struct {
	Foreground bool `help:"Run in the foreground instead of daemonizing." short:"f"`
}

func (c *DaemonStartCmd) Run(ctx *Context) error {
	pidPath, err := paths.DaemonPIDPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "daemon start", err)
	}
	if pid, running := pidFromFile(pidPath); running {
		return loreerr.New(loreerr.KindInput, "daemon start", fmt.Errorf("already running (pid %d)", pid))
	}

	if !c.Foreground {
		logsDir, err := paths.LogsDir()
		if err != nil {
			return loreerr.New(loreerr.KindFileSystem, "daemon start", err)
		}
		if err := paths.EnsureDir(logsDir); err != nil {
			return loreerr.New(loreerr.KindFileSystem, "daemon start", err)
		}

		cntxt := &godaemon.Context{
			PidFileName: pidPath,
			PidFilePerm: 0o644,
			LogFileName: filepath.Join(logsDir, "daemon.log"),
			LogFilePerm: 0o640,
			WorkDir:     "./",
			Umask:       0o027,
		}

		d, err := cntxt.Reborn()
		if err != nil {
			return loreerr.New(loreerr.KindFileSystem, "daemon start", err)
		}
		if d != nil {
			fmt.Printf("Daemon started (pid %d)\n", d.Pid)
			return nil
		}
		defer cntxt.Release()
	}

	return runDaemon(ctx)
}

// runDaemon builds and runs the watch/import/RPC loop until interrupted;
// shared by foreground runs and the daemonized child process.
func runDaemon(ctx *Context) error {
	cfg, err := ctx.Cfg()
	if err != nil {
		return err
	}
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	machine, err := ctx.Machine()
	if err != nil {
		return err
	}
	socketPath, err := paths.DaemonSocketPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "daemon", err)
	}

	d, err := loredaemon.New(st, enabledRegistry(cfg), machine, socketPath)
	if err != nil {
		return loreerr.New(loreerr.KindUnknown, "daemon", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		L_info("daemon: received shutdown signal")
		cancel()
	}()
	defer signal.Stop(sigCh)

	return d.Run(runCtx)
}

type DaemonStopCmd struct{}

func (c *DaemonStopCmd) Run(ctx *Context) error {
	pidPath, err := paths.DaemonPIDPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "daemon stop", err)
	}
	pid, running := pidFromFile(pidPath)
	if !running {
		fmt.Println("Daemon not running")
		return nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return loreerr.New(loreerr.KindUnknown, "daemon stop", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return loreerr.New(loreerr.KindUnknown, "daemon stop", fmt.Errorf("signal pid %d: %w", pid, err))
	}
	os.Remove(pidPath)
	fmt.Printf("Stopped daemon (pid %d)\n", pid)
	return nil
}

type DaemonStatusCmd struct{}

func (c *DaemonStatusCmd) Run(ctx *Context) error {
	pidPath, err := paths.DaemonPIDPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "daemon status", err)
	}
	pid, running := pidFromFile(pidPath)
	if !running {
		fmt.Println("Daemon: not running")
		return nil
	}
	fmt.Printf("Daemon: running (pid %d)\n", pid)
	return nil
}

type DaemonLogsCmd struct{}

func (c *DaemonLogsCmd) Run(ctx *Context) error {
	logsDir, err := paths.LogsDir()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "daemon logs", err)
	}
	fmt.Println(filepath.Join(logsDir, "daemon.log"))
	return nil
}

// pidFromFile reads a pidfile and confirms the process is still alive,
// cleaning up a stale pidfile left by a crashed daemon.
func pidFromFile(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(path)
		return pid, false
	}
	return pid, true
}
