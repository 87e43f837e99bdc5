package main

import (
	"fmt"

	"github.com/lorehq/lore/internal/identity"
	. "github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/paths"
)

// InitCmd creates ~/.lore, the database, and a machine identity, and is
// idempotent: re-running it on an already-initialized install is a no-op.
type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	base, err := paths.BaseDir()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "init", err)
	}
	if err := paths.EnsureDir(base); err != nil {
		return loreerr.New(loreerr.KindFileSystem, "init", err)
	}

	if _, err := ctx.Store(); err != nil {
		return err
	}

	m, err := identity.Load()
	if err != nil {
		return err
	}

	if _, err := ctx.Cfg(); err != nil {
		return err
	}

	L_info("lore initialized", "home", base, "machine", m.DisplayName(), "machineID", m.ID)
	fmt.Printf("Initialized lore at %s\nMachine: %s (%s)\n", base, m.DisplayName(), m.ID)
	return nil
}
