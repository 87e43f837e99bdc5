package main

import (
	"context"
	"fmt"

	"github.com/lorehq/lore/internal/credentials"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/watch"
)

// DoctorCmd runs a battery of local environment checks and prints a
// pass/fail report, the same shape as a health-check subcommand but aimed
// at a human debugging their own machine rather than an uptime monitor.
type DoctorCmd struct{}

type doctorCheck struct {
	name string
	ok   bool
	info string
}

func (c *DoctorCmd) Run(ctx *Context) error {
	var checks []doctorCheck

	base, err := paths.BaseDir()
	checks = append(checks, doctorCheck{"base directory", err == nil, orErrString(base, err)})

	cfg, cfgErr := ctx.Cfg()
	checks = append(checks, doctorCheck{"config", cfgErr == nil, orErrString("loaded", cfgErr)})

	st, stErr := ctx.Store()
	storeInfo := "reachable"
	if stErr == nil {
		if _, statErr := st.Stats(context.Background()); statErr != nil {
			stErr = statErr
			storeInfo = "query failed"
		}
	}
	checks = append(checks, doctorCheck{"database", stErr == nil, orErrString(storeInfo, stErr)})

	_, machErr := ctx.Machine()
	checks = append(checks, doctorCheck{"machine identity", machErr == nil, orErrString("present", machErr)})

	credPath, credErr := paths.CredentialsPath()
	backend := "file"
	if credentials.KeychainAvailable() {
		backend = "OS keychain"
	}
	checks = append(checks, doctorCheck{"credential backend", credErr == nil, fmt.Sprintf("%s (%s)", backend, credPath)})

	for _, w := range watch.DefaultRegistry().All() {
		info := w.Info()
		enabled := true
		if cfg != nil {
			enabled = cfg.WatcherEnabled(info.Name)
		}
		status := "available"
		if !w.IsAvailable() {
			status = "not found on this machine"
		}
		if !enabled {
			status += ", disabled in config"
		}
		checks = append(checks, doctorCheck{"watcher:" + info.Name, w.IsAvailable() && enabled, status})
	}

	failures := 0
	for _, chk := range checks {
		mark := "ok  "
		if !chk.ok {
			mark = "FAIL"
			failures++
		}
		fmt.Printf("[%s] %-28s %s\n", mark, chk.name, chk.info)
	}

	if failures > 0 {
		return fmt.Errorf("doctor: %d check(s) failed", failures)
	}
	return nil
}

func orErrString(val string, err error) string {
	if err != nil {
		return err.Error()
	}
	return val
}
