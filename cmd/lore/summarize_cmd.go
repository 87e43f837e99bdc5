package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/summarize"
)

// SummarizeCmd generates a prose summary of a session via the configured
// LLM provider and stores it.
type SummarizeCmd struct {
	SessionID string `arg:"" help:"Session ID or unambiguous prefix."`
}

func (c *SummarizeCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	cfg, err := ctx.Cfg()
	if err != nil {
		return err
	}

	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "summarize", err)
	}
	messages, err := st.GetMessages(context.Background(), sess.ID)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "summarize", err)
	}

	provider, err := summarize.NewFromConfig(cfg.Summary)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "summarize", err)
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := summarize.SummarizeSession(reqCtx, provider, *sess, messages)
	if err != nil {
		return loreerr.New(loreerr.KindNetwork, "summarize", err)
	}

	if err := st.SetSummary(context.Background(), result); err != nil {
		return loreerr.New(loreerr.KindStore, "summarize", err)
	}

	fmt.Println(result.Text)
	return nil
}
