package main

import (
	"fmt"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/paths"
)

// ConfigCmd reads and writes ~/.lore/config.yaml by dotted key path.
type ConfigCmd struct {
	Get     ConfigGetCmd     `cmd:"" help:"Print a config value."`
	Set     ConfigSetCmd     `cmd:"" help:"Set a config value."`
	History ConfigHistoryCmd `cmd:"" help:"List config.yaml backups kept by past 'config set' runs."`
	Restore ConfigRestoreCmd `cmd:"" help:"Roll config.yaml back to a backed-up version."`
}

type ConfigGetCmd struct {
	Key string `arg:"" help:"Dotted path, e.g. linker.auto_link_window_minutes."`
}

func (c *ConfigGetCmd) Run(ctx *Context) error {
	cfg, err := ctx.Cfg()
	if err != nil {
		return err
	}
	v, ok, err := config.Get(cfg, c.Key)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "config get", err)
	}
	if !ok {
		return loreerr.New(loreerr.KindInput, "config get", fmt.Errorf("no value at %q", c.Key))
	}
	fmt.Println(v)
	return nil
}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Dotted path, e.g. summary.provider."`
	Value string `arg:"" help:"New value; parsed as JSON when possible, else taken as a literal string."`
}

func (c *ConfigSetCmd) Run(ctx *Context) error {
	cfg, err := ctx.Cfg()
	if err != nil {
		return err
	}
	if err := config.Set(cfg, c.Key, c.Value); err != nil {
		return loreerr.New(loreerr.KindInput, "config set", err)
	}

	path, err := paths.DefaultConfigPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "config set", err)
	}
	if err := config.Save(path, cfg); err != nil {
		return loreerr.New(loreerr.KindFileSystem, "config set", err)
	}
	fmt.Printf("%s = %s\n", c.Key, c.Value)
	return nil
}

type ConfigHistoryCmd struct{}

func (c *ConfigHistoryCmd) Run(ctx *Context) error {
	path, err := paths.DefaultConfigPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "config history", err)
	}
	backups := config.ListBackups(path)
	if len(backups) == 0 {
		fmt.Println("no config backups")
		return nil
	}
	for _, b := range backups {
		fmt.Printf("%d\t%s\t%d bytes\n", b.Index, b.ModTime.Format("2006-01-02 15:04:05"), b.Size)
	}
	return nil
}

type ConfigRestoreCmd struct {
	Index int `arg:"" default:"0" help:"Backup index from 'config history' (0 = most recent)."`
}

func (c *ConfigRestoreCmd) Run(ctx *Context) error {
	path, err := paths.DefaultConfigPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "config restore", err)
	}
	if err := config.RestoreBackup(path, c.Index); err != nil {
		return loreerr.New(loreerr.KindFileSystem, "config restore", err)
	}
	fmt.Printf("restored config.yaml from backup %d\n", c.Index)
	return nil
}
