package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lorehq/lore/internal/loreerr"
)

// DBCmd groups local database maintenance operations.
type DBCmd struct {
	Vacuum DBVacuumCmd `cmd:"" help:"Reclaim space and rebuild the search index."`
	Prune  DBPruneCmd  `cmd:"" help:"Delete sessions older than a cutoff."`
	Stats  DBStatsCmd  `cmd:"" help:"Show aggregate counts."`
}

type DBVacuumCmd struct{}

func (c *DBVacuumCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	if err := st.Vacuum(context.Background()); err != nil {
		return loreerr.New(loreerr.KindStore, "vacuum", err)
	}
	n, err := st.RebuildSearchIndex(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindStore, "vacuum", err)
	}
	fmt.Printf("Vacuumed database, reindexed %d messages\n", n)
	return nil
}

type DBPruneCmd struct {
	OlderThan string `arg:"" help:"Prune sessions started before this duration ago, e.g. 90d, 720h."`
	Yes       bool   `help:"Skip the confirmation prompt."`
}

func (c *DBPruneCmd) Run(ctx *Context) error {
	d, err := parseDaysOrDuration(c.OlderThan)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "prune", err)
	}
	cutoff := time.Now().UTC().Add(-d)

	if !c.Yes {
		fmt.Printf("Delete every session started before %s? [y/N] ", cutoff.Format("2006-01-02"))
		var resp string
		fmt.Scanln(&resp)
		if resp != "y" && resp != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	st, err := ctx.Store()
	if err != nil {
		return err
	}
	n, err := st.DeleteSessionsOlderThan(context.Background(), cutoff)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "prune", err)
	}
	fmt.Printf("Pruned %d session(s)\n", n)
	return nil
}

// parseDaysOrDuration accepts "90d" in addition to anything
// time.ParseDuration understands, since operators think in days.
func parseDaysOrDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

type DBStatsCmd struct {
	Query string `help:"Optional gojq filter applied to the stats JSON, e.g. '.byTool.claudecode'." name:"query"`
}

func (c *DBStatsCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	stats, err := st.Stats(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindStore, "stats", err)
	}

	if c.Query != "" {
		out, err := jqFilter(statsToJQInput(stats), c.Query)
		if err != nil {
			return loreerr.New(loreerr.KindInput, "stats", err)
		}
		fmt.Println(out)
		return nil
	}

	fmt.Printf("Sessions: %d\nMessages: %d\nLinks:    %d\n", stats.SessionCount, stats.MessageCount, stats.LinkCount)
	if stats.EarliestAt != nil && stats.LatestAt != nil {
		fmt.Printf("Range:    %s to %s\n", stats.EarliestAt.Format("2006-01-02"), stats.LatestAt.Format("2006-01-02"))
	}
	for tool, n := range stats.ByTool {
		fmt.Printf("  %-14s %d\n", tool, n)
	}
	return nil
}
