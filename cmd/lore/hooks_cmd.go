package main

import (
	"fmt"
	"os"

	"github.com/lorehq/lore/internal/hooks"
	"github.com/lorehq/lore/internal/loreerr"
)

// HooksCmd installs, removes, or reports on lore's managed git hooks.
type HooksCmd struct {
	Install   HooksInstallCmd   `cmd:"" help:"Install or update lore's git hooks."`
	Uninstall HooksUninstallCmd `cmd:"" help:"Remove lore's git hooks."`
	Status    HooksStatusCmd    `cmd:"" help:"Show which hooks are installed."`
}

type HooksInstallCmd struct {
	Force bool `help:"Back up and replace a pre-existing non-lore hook."`
}

func (c *HooksInstallCmd) Run(ctx *Context) error {
	dir, err := os.Getwd()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "hooks install", err)
	}
	binary, err := os.Executable()
	if err != nil {
		binary = "lore"
	}

	n, err := hooks.Install(dir, binary, c.Force)
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "hooks install", err)
	}
	fmt.Printf("Installed/updated %d hook(s)\n", n)
	return nil
}

type HooksUninstallCmd struct{}

func (c *HooksUninstallCmd) Run(ctx *Context) error {
	dir, err := os.Getwd()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "hooks uninstall", err)
	}
	n, err := hooks.Uninstall(dir)
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "hooks uninstall", err)
	}
	fmt.Printf("Removed %d hook(s)\n", n)
	return nil
}

type HooksStatusCmd struct{}

func (c *HooksStatusCmd) Run(ctx *Context) error {
	dir, err := os.Getwd()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "hooks status", err)
	}
	statuses, err := hooks.ListStatus(dir)
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "hooks status", err)
	}
	for _, s := range statuses {
		state := "not installed"
		switch {
		case s.Installed:
			state = "installed"
		case s.Foreign:
			state = "foreign hook present"
		}
		fmt.Printf("%-16s %s\n", s.Name, state)
	}
	return nil
}
