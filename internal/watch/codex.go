package watch

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// CodexWatcher ingests OpenAI Codex CLI sessions, stored as line-delimited
// JSONL under ~/.codex/sessions/YYYY/MM/DD/rollout-*.jsonl.
type CodexWatcher struct{}

func (CodexWatcher) Info() Info {
	return Info{
		Name:         "codex",
		Description:  "OpenAI Codex CLI",
		DefaultPaths: []string{codexSessionsDir()},
	}
}

func (CodexWatcher) IsAvailable() bool {
	info, err := os.Stat(codexSessionsDir())
	return err == nil && info.IsDir()
}

func (CodexWatcher) FindSources() ([]string, error) {
	return findCodexSessionFiles()
}

func (CodexWatcher) ParseSource(path string) ([]ParsedSource, error) {
	parsed, err := parseCodexSessionFile(path)
	if err != nil {
		return nil, err
	}
	if len(parsed.messages) == 0 {
		return nil, nil
	}
	sess, msgs := parsed.toStorageModels()
	return []ParsedSource{{Session: sess, Messages: msgs}}, nil
}

func (CodexWatcher) WatchPaths() []string {
	return []string{codexSessionsDir()}
}

func codexSessionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".codex", "sessions")
}

// findCodexSessionFiles walks sessions/YYYY/MM/DD/rollout-*.jsonl.
func findCodexSessionFiles() ([]string, error) {
	dir := codexSessionsDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []string
	years, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, y := range years {
		if !y.IsDir() {
			continue
		}
		yearPath := filepath.Join(dir, y.Name())
		months, err := os.ReadDir(yearPath)
		if err != nil {
			continue
		}
		for _, m := range months {
			if !m.IsDir() {
				continue
			}
			monthPath := filepath.Join(yearPath, m.Name())
			days, err := os.ReadDir(monthPath)
			if err != nil {
				continue
			}
			for _, d := range days {
				if !d.IsDir() {
					continue
				}
				dayPath := filepath.Join(monthPath, d.Name())
				entries, err := os.ReadDir(dayPath)
				if err != nil {
					continue
				}
				for _, e := range entries {
					name := e.Name()
					if strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl") {
						files = append(files, filepath.Join(dayPath, name))
					}
				}
			}
		}
	}
	return files, nil
}

type codexRawGitInfo struct {
	Branch string `json:"branch"`
}

type codexRawSessionMeta struct {
	ID            string           `json:"id"`
	CWD           string           `json:"cwd"`
	CLIVersion    string           `json:"cli_version"`
	ModelProvider string           `json:"model_provider"`
	Git           *codexRawGitInfo `json:"git"`
}

type codexRawEntry struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

type codexRawContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type codexRawResponseItem struct {
	Type    string                `json:"type"`
	Role    string                `json:"role"`
	Content []codexRawContentItem `json:"content"`
}

type codexParsedMessage struct {
	timestamp time.Time
	role      model.MessageRole
	content   string
}

type codexParsedSession struct {
	sessionID     string
	cliVersion    string
	cwd           string
	gitBranch     string
	modelProvider string
	messages      []codexParsedMessage
	sourcePath    string
}

// parseCodexSessionFile reads each JSONL line, collecting session_meta
// fields (first value wins) and response_item message entries, silently
// skipping malformed lines so one bad entry never fails the whole import.
func parseCodexSessionFile(path string) (*codexParsedSession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed := &codexParsedSession{cwd: ".", sourcePath: path}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry codexRawEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}

		switch entry.Type {
		case "session_meta":
			var meta codexRawSessionMeta
			if err := json.Unmarshal(entry.Payload, &meta); err != nil {
				continue
			}
			if parsed.sessionID == "" {
				parsed.sessionID = meta.ID
			}
			if parsed.cliVersion == "" {
				parsed.cliVersion = meta.CLIVersion
			}
			if meta.CWD != "" {
				parsed.cwd = meta.CWD
			}
			if parsed.modelProvider == "" {
				parsed.modelProvider = meta.ModelProvider
			}
			if parsed.gitBranch == "" && meta.Git != nil {
				parsed.gitBranch = meta.Git.Branch
			}

		case "response_item":
			var item codexRawResponseItem
			if err := json.Unmarshal(entry.Payload, &item); err != nil {
				continue
			}
			if item.Type != "message" {
				continue
			}
			role, ok := ParseRole(item.Role)
			if !ok {
				continue
			}

			var parts []string
			for _, c := range item.Content {
				if c.Type == "input_text" || c.Type == "text" {
					if c.Text != "" {
						parts = append(parts, c.Text)
					}
				}
			}
			text := strings.Join(parts, "\n")
			if strings.TrimSpace(text) == "" {
				continue
			}

			ts, err := time.Parse(time.RFC3339, entry.Timestamp)
			if err != nil {
				ts = time.Now().UTC()
			} else {
				ts = ts.UTC()
			}

			parsed.messages = append(parsed.messages, codexParsedMessage{
				timestamp: ts,
				role:      role,
				content:   text,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if parsed.sessionID == "" {
		parsed.sessionID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	return parsed, nil
}

func (p *codexParsedSession) toStorageModels() (model.Session, []model.Message) {
	sessionID := ParseUUIDOrDerive("codex", p.sessionID)

	startedAt := time.Now().UTC()
	var endedAt *time.Time
	if len(p.messages) > 0 {
		startedAt = p.messages[0].timestamp
		last := p.messages[len(p.messages)-1].timestamp
		endedAt = &last
	}

	sess := model.Session{
		ID:               sessionID,
		Tool:             "codex",
		ToolVersion:      p.cliVersion,
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		Model:            p.modelProvider,
		WorkingDirectory: p.cwd,
		GitBranch:        p.gitBranch,
		SourcePath:       p.sourcePath,
		MessageCount:     len(p.messages),
	}

	messages := make([]model.Message, 0, len(p.messages))
	for idx, m := range p.messages {
		messages = append(messages, model.Message{
			ID:        uuid.New(),
			SessionID: sessionID,
			Index:     idx,
			Timestamp: m.timestamp,
			Role:      m.role,
			Content:   model.NewTextContent(m.content),
			Model:     p.modelProvider,
			GitBranch: p.gitBranch,
			CWD:       p.cwd,
		})
	}
	return sess, messages
}
