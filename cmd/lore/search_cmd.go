package main

import (
	"context"
	"fmt"

	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/search"
)

// SearchCmd runs a full-text search over message content.
type SearchCmd struct {
	Query string `arg:"" help:"FTS5 query text."`
	Dir   string `help:"Restrict to sessions whose working directory starts with this prefix."`
	Role  string `help:"Restrict to one message role (user, assistant, system)."`
	Limit int    `help:"Maximum results." default:"20"`
}

func (c *SearchCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}

	opts := search.DefaultOptions()
	opts.Limit = c.Limit
	opts.WorkingDirPrefix = c.Dir
	if c.Role != "" {
		opts.Role = model.MessageRole(c.Role)
	}

	results, err := search.NewSearcher(st).Search(context.Background(), c.Query, opts)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "search", err)
	}
	if len(results) == 0 {
		fmt.Println("No matches for", c.Query)
		return nil
	}

	for _, r := range results {
		fmt.Printf("%s  %-9s %s\n    %s\n", r.SessionID.String()[:8], r.Role, r.Timestamp.Format("2006-01-02 15:04"), r.Snippet)
	}
	return nil
}
