package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lorehq/lore/internal/linker"
	"github.com/lorehq/lore/internal/loreerr"
)

// LinkCmd manually associates a session with a commit.
type LinkCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
	Commit    string `arg:"" help:"Commit SHA."`
	Branch    string `help:"Branch name to record alongside the commit."`
	Remote    string `help:"Remote name to record alongside the commit."`
}

func (c *LinkCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	dir, err := os.Getwd()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "link", err)
	}
	l, err := linker.Open(st, dir)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "link", err)
	}

	if err := l.Link(context.Background(), c.SessionID, c.Commit, c.Branch, c.Remote, nil); err != nil {
		return loreerr.New(loreerr.KindStore, "link", err)
	}
	fmt.Printf("Linked %s to %s\n", c.SessionID, c.Commit)
	return nil
}

// UnlinkCmd removes a session<->commit link, or every link for a session
// if no commit is given.
type UnlinkCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
	Commit    string `arg:"" optional:"" help:"Commit SHA or prefix; omit to remove every link for this session."`
}

func (c *UnlinkCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	dir, err := os.Getwd()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "unlink", err)
	}
	l, err := linker.Open(st, dir)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "unlink", err)
	}

	if err := l.Unlink(context.Background(), c.SessionID, c.Commit); err != nil {
		return loreerr.New(loreerr.KindStore, "unlink", err)
	}
	fmt.Println("Unlinked", c.SessionID)
	return nil
}

// BlameCmd resolves file:line to its last-touching commit and prints
// sessions linked to that commit.
type BlameCmd struct {
	Location string `arg:"" help:"file:line, e.g. internal/store/store.go:42"`
}

func (c *BlameCmd) Run(ctx *Context) error {
	file, line, err := splitFileLine(c.Location)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "blame", err)
	}

	st, err := ctx.Store()
	if err != nil {
		return err
	}
	dir, err := os.Getwd()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "blame", err)
	}
	l, err := linker.Open(st, dir)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "blame", err)
	}

	result, err := l.Blame(context.Background(), file, line)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "blame", err)
	}

	linker.SortByConfidenceDesc(result.Links)
	fmt.Printf("%s  %s  %s\n%s\n\n", result.CommitSHA[:8], result.Author, result.When.Format("2006-01-02 15:04"), result.Summary)
	if len(result.Links) == 0 {
		fmt.Println("No sessions linked to this commit.")
		return nil
	}
	for _, link := range result.Links {
		conf := "?"
		if link.Confidence != nil {
			conf = fmt.Sprintf("%.2f", *link.Confidence)
		}
		fmt.Printf("  %s  confidence=%s  created_by=%s\n", link.SessionID.String()[:8], conf, link.CreatedBy)
	}
	return nil
}

func splitFileLine(loc string) (string, int, error) {
	idx := -1
	for i := len(loc) - 1; i >= 0; i-- {
		if loc[i] == ':' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", 0, fmt.Errorf("expected file:line, got %q", loc)
	}
	file := loc[:idx]
	var line int
	if _, err := fmt.Sscanf(loc[idx+1:], "%d", &line); err != nil {
		return "", 0, fmt.Errorf("invalid line number in %q: %w", loc, err)
	}
	return file, line, nil
}
