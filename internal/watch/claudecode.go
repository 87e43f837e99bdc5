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

// ClaudeCodeWatcher ingests Claude Code CLI transcripts: one JSONL file per
// session under ~/.claude/projects/<project-slug>/<session-uuid>.jsonl, with
// one JSON object per line carrying a message plus session-level metadata
// repeated on every line.
type ClaudeCodeWatcher struct{}

func (ClaudeCodeWatcher) Info() Info {
	return Info{
		Name:         "claudecode",
		Description:  "Claude Code CLI sessions",
		DefaultPaths: []string{claudeProjectsDir()},
	}
}

func (ClaudeCodeWatcher) IsAvailable() bool {
	info, err := os.Stat(claudeProjectsDir())
	return err == nil && info.IsDir()
}

func (ClaudeCodeWatcher) FindSources() ([]string, error) {
	return findClaudeCodeSessionFiles()
}

func (ClaudeCodeWatcher) ParseSource(path string) ([]ParsedSource, error) {
	parsed, err := parseClaudeCodeSessionFile(path)
	if err != nil {
		return nil, err
	}
	if len(parsed.messages) == 0 {
		return nil, nil
	}
	sess, msgs := parsed.toStorageModels()
	return []ParsedSource{{Session: sess, Messages: msgs}}, nil
}

func (ClaudeCodeWatcher) WatchPaths() []string {
	return []string{claudeProjectsDir()}
}

func claudeProjectsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".claude", "projects")
}

// findClaudeCodeSessionFiles walks every project directory for *.jsonl
// transcripts, one level deep (projects/<project-slug>/*.jsonl).
func findClaudeCodeSessionFiles() ([]string, error) {
	dir := claudeProjectsDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []string
	projects, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		projectDir := filepath.Join(dir, p.Name())
		entries, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
				files = append(files, filepath.Join(projectDir, e.Name()))
			}
		}
	}
	return files, nil
}

type claudeCodeRawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type claudeCodeRawLine struct {
	Type        string                `json:"type"`
	SessionID   string                `json:"sessionId"`
	CWD         string                `json:"cwd"`
	GitBranch   string                `json:"gitBranch"`
	Version     string                `json:"version"`
	Timestamp   string                `json:"timestamp"`
	Message     *claudeCodeRawMessage `json:"message"`
	IsMeta      bool                  `json:"isMeta"`
	IsSidechain bool                  `json:"isSidechain"`
}

type claudeCodeParsedMessage struct {
	timestamp time.Time
	role      model.MessageRole
	content   model.MessageContent
	model     string
}

type claudeCodeParsedSession struct {
	sessionID  string
	cwd        string
	gitBranch  string
	version    string
	messages   []claudeCodeParsedMessage
	sourcePath string
}

// parseClaudeCodeSessionFile reads the transcript's JSONL lines. Every line
// of type "user" or "assistant" carries a message; other types (summary,
// meta events) are skipped. Sidechain entries (sub-agent transcripts spliced
// into the parent file) are excluded since they don't belong to the main
// conversation thread.
func parseClaudeCodeSessionFile(path string) (*claudeCodeParsedSession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed := &claudeCodeParsedSession{cwd: ".", sourcePath: path}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw claudeCodeRawLine
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		if raw.IsSidechain || raw.IsMeta {
			continue
		}
		if raw.SessionID != "" && parsed.sessionID == "" {
			parsed.sessionID = raw.SessionID
		}
		if raw.CWD != "" {
			parsed.cwd = raw.CWD
		}
		if raw.GitBranch != "" {
			parsed.gitBranch = raw.GitBranch
		}
		if raw.Version != "" {
			parsed.version = raw.Version
		}

		if raw.Type != "user" && raw.Type != "assistant" {
			continue
		}
		if raw.Message == nil {
			continue
		}
		role, ok := ParseRole(raw.Message.Role)
		if !ok {
			continue
		}

		content, ok := parseClaudeCodeContent(raw.Message.Content)
		if !ok {
			continue
		}

		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			ts = time.Now().UTC()
		} else {
			ts = ts.UTC()
		}

		parsed.messages = append(parsed.messages, claudeCodeParsedMessage{
			timestamp: ts,
			role:      role,
			content:   content,
			model:     raw.Message.Model,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if parsed.sessionID == "" {
		parsed.sessionID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	return parsed, nil
}

// parseClaudeCodeContent handles both the plain-string and content-block-array
// forms the Claude Code transcript uses for a message's "content" field,
// reusing the canonical model's own tagged-union decoding.
func parseClaudeCodeContent(raw json.RawMessage) (model.MessageContent, bool) {
	if len(raw) == 0 {
		return model.MessageContent{}, false
	}
	var content model.MessageContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return model.MessageContent{}, false
	}
	if strings.TrimSpace(content.ExtractText()) == "" && !content.IsBlocks() {
		return model.MessageContent{}, false
	}
	return content, true
}

func (p *claudeCodeParsedSession) toStorageModels() (model.Session, []model.Message) {
	sessionID := ParseUUIDOrDerive("claude-code", p.sessionID)

	startedAt := time.Now().UTC()
	var endedAt *time.Time
	if len(p.messages) > 0 {
		startedAt = p.messages[0].timestamp
		last := p.messages[len(p.messages)-1].timestamp
		endedAt = &last
	}

	var lastModel string
	for _, m := range p.messages {
		if m.model != "" {
			lastModel = m.model
		}
	}

	sess := model.Session{
		ID:               sessionID,
		Tool:             "claude-code",
		ToolVersion:      p.version,
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		Model:            lastModel,
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
			Content:   m.content,
			Model:     m.model,
			GitBranch: p.gitBranch,
			CWD:       p.cwd,
		})
	}
	return sess, messages
}
