package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/redact"
)

// ExportCmd writes a session's transcript to markdown or JSON, optionally
// redacting credentials, emails, IPs, and high-entropy keys.
type ExportCmd struct {
	SessionID   string `arg:"" help:"Session ID or unambiguous prefix."`
	Out         string `help:"Output file path; defaults to stdout." short:"o"`
	Format      string `help:"Export format." enum:"markdown,json" default:"markdown"`
	Redact      bool   `help:"Redact credentials and high-entropy secrets."`
	RedactEmail bool   `help:"Redact email addresses." name:"redact-emails"`
	RedactIPs   bool   `help:"Redact IPv4 addresses." name:"redact-ips"`
}

func (c *ExportCmd) Run(ctx *Context) error {
	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "export", err)
	}
	messages, err := st.GetMessages(context.Background(), sess.ID)
	if err != nil {
		return loreerr.New(loreerr.KindStore, "export", err)
	}

	opts := redact.Options{
		Credentials: c.Redact,
		Keys:        c.Redact,
		Emails:      c.RedactEmail,
		IPs:         c.RedactIPs,
	}

	var out []byte
	switch c.Format {
	case "json":
		type exportMessage struct {
			Role      string `json:"role"`
			Timestamp string `json:"timestamp"`
			Text      string `json:"text"`
		}
		payload := struct {
			Session  any             `json:"session"`
			Messages []exportMessage `json:"messages"`
		}{Session: sess}
		for _, m := range messages {
			payload.Messages = append(payload.Messages, exportMessage{
				Role:      string(m.Role),
				Timestamp: m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				Text:      m.Content.ExtractText(),
			})
		}
		out, err = redact.MarshalJSONRedacted(payload, opts)
		if err != nil {
			return loreerr.New(loreerr.KindParse, "export", err)
		}
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "# Session %s\n\n", sess.ID)
		fmt.Fprintf(&b, "- Tool: %s\n- Directory: %s\n- Started: %s\n\n", sess.Tool, sess.WorkingDirectory, sess.StartedAt.Format("2006-01-02 15:04"))
		for _, m := range messages {
			text := m.Content.ExtractText()
			if text == "" {
				continue
			}
			fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n", m.Role, m.Timestamp.Format("15:04:05"), redact.String(text, opts))
		}
		out = []byte(b.String())
	}

	if c.Out == "" {
		os.Stdout.Write(out)
		return nil
	}
	if err := os.WriteFile(c.Out, out, 0o644); err != nil {
		return loreerr.New(loreerr.KindFileSystem, "export", err)
	}
	fmt.Println("Wrote", c.Out)
	return nil
}
