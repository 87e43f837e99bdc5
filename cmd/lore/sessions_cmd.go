package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/render"
	"github.com/lorehq/lore/internal/tokens"
)

// SessionsCmd lists recent sessions, optionally scoped to a working
// directory prefix or a tag.
type SessionsCmd struct {
	Dir   string `help:"Restrict to sessions whose working directory starts with this prefix."`
	Tag   string `help:"Restrict to sessions carrying this tag."`
	Limit int    `help:"Maximum sessions to list." default:"20"`
}

func (c *SessionsCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}

	var sessions []model.Session
	if c.Tag != "" {
		sessions, err = st.ListSessionsWithTag(context.Background(), c.Tag, c.Limit)
	} else {
		sessions, err = st.ListSessions(context.Background(), c.Limit, c.Dir)
	}
	if err != nil {
		return loreerr.New(loreerr.KindStore, "list sessions", err)
	}

	for _, s := range sessions {
		status := "open"
		if s.EndedAt != nil {
			status = s.EndedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-12s %-30s %4d msgs  %s\n", s.ID.String()[:8], s.Tool, truncate(s.WorkingDirectory, 30), s.MessageCount, status)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// ShowCmd prints a session's full transcript.
type ShowCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
}

func (c *ShowCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "show", err)
	}
	messages, err := st.GetMessages(context.Background(), sess.ID)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "show", err)
	}

	fmt.Printf("Session %s (%s)\n%s\n%d messages, started %s\n\n",
		sess.ID, sess.Tool, sess.WorkingDirectory, sess.MessageCount, sess.StartedAt.Format(time.RFC3339))

	for _, m := range messages {
		text := m.Content.ExtractText()
		if ctx.Format == "text" {
			text = render.ToPlainText(text)
		}
		fmt.Printf("--- %s (%s) ---\n%s\n\n", m.Role, m.Timestamp.Format("15:04:05"), text)
	}
	return nil
}

// CurrentCmd shows the most recent session whose working directory
// matches the current directory (or --dir).
type CurrentCmd struct {
	Dir string `help:"Working directory to match; defaults to the current directory."`
}

func (c *CurrentCmd) Run(ctx *Context) error {
	dir := c.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return loreerr.New(loreerr.KindFileSystem, "current", err)
		}
		dir = wd
	}

	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sessions, err := st.ListSessions(context.Background(), 1, dir)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "current", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found for", dir)
		return nil
	}
	s := sessions[0]
	fmt.Printf("%s  %s  %s  %d messages\n", s.ID, s.Tool, s.WorkingDirectory, s.MessageCount)
	return nil
}

// ContextCmd prints a token-budgeted transcript suitable for pasting into
// another assistant's context window.
type ContextCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
	MaxTokens int    `help:"Token budget for the returned transcript." default:"8000" name:"max-tokens"`
}

func (c *ContextCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "context", err)
	}
	messages, err := st.GetMessages(context.Background(), sess.ID)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "context", err)
	}

	budget := c.MaxTokens
	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		text := messages[i].Content.ExtractText()
		if text == "" {
			continue
		}
		cost := tokens.Estimate(text) + 4
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}

	for _, m := range messages[start:] {
		text := m.Content.ExtractText()
		if text == "" {
			continue
		}
		fmt.Printf("%s: %s\n\n", m.Role, text)
	}
	return nil
}

// DeleteCmd removes a session and every row cascading from it (messages,
// links, tags, summary, annotations).
type DeleteCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
	Yes       bool   `help:"Skip the confirmation prompt."`
}

func (c *DeleteCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "delete", err)
	}

	if !c.Yes {
		fmt.Printf("Delete session %s (%s, %d messages)? [y/N] ", sess.ID, sess.Tool, sess.MessageCount)
		var resp string
		fmt.Scanln(&resp)
		if resp != "y" && resp != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.DeleteSession(context.Background(), sess.ID); err != nil {
		return loreerr.New(loreerr.KindStore, "delete", err)
	}
	fmt.Println("Deleted", sess.ID)
	return nil
}

// TagCmd attaches or removes a tag on a session.
type TagCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
	Label     string `arg:"" help:"Tag label."`
	Remove    bool   `help:"Remove the tag instead of adding it."`
}

func (c *TagCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "tag", err)
	}

	if c.Remove {
		if err := st.RemoveTag(context.Background(), sess.ID, c.Label); err != nil {
			return loreerr.New(loreerr.KindStore, "untag", err)
		}
		fmt.Printf("Removed tag %q from %s\n", c.Label, sess.ID)
		return nil
	}
	if err := st.AddTag(context.Background(), sess.ID, c.Label, time.Now().UTC()); err != nil {
		return loreerr.New(loreerr.KindStore, "tag", err)
	}
	fmt.Printf("Tagged %s with %q\n", sess.ID, c.Label)
	return nil
}
