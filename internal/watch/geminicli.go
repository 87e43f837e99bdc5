package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// GeminiCLIWatcher ingests Google Gemini CLI sessions, one JSON file per
// session under ~/.gemini/tmp/<project-hash>/chats/session-*.json.
type GeminiCLIWatcher struct{}

func (GeminiCLIWatcher) Info() Info {
	return Info{
		Name:         "gemini",
		Description:  "Google Gemini CLI",
		DefaultPaths: []string{geminiBaseDir()},
	}
}

func (GeminiCLIWatcher) IsAvailable() bool {
	info, err := os.Stat(geminiBaseDir())
	return err == nil && info.IsDir()
}

func (GeminiCLIWatcher) FindSources() ([]string, error) {
	return findGeminiSessionFiles()
}

func (GeminiCLIWatcher) ParseSource(path string) ([]ParsedSource, error) {
	parsed, err := parseGeminiSessionFile(path)
	if err != nil {
		return nil, err
	}
	if len(parsed.messages) == 0 {
		return nil, nil
	}
	sess, msgs := parsed.toStorageModels()
	return []ParsedSource{{Session: sess, Messages: msgs}}, nil
}

func (GeminiCLIWatcher) WatchPaths() []string {
	return []string{geminiBaseDir()}
}

func geminiBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".gemini", "tmp")
}

// findGeminiSessionFiles walks tmp/<project-hash>/chats/session-*.json.
func findGeminiSessionFiles() ([]string, error) {
	dir := geminiBaseDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	projects, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range projects {
		if !p.IsDir() {
			continue
		}
		chatsDir := filepath.Join(dir, p.Name(), "chats")
		entries, err := os.ReadDir(chatsDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() && strings.HasPrefix(name, "session-") && strings.HasSuffix(name, ".json") {
				files = append(files, filepath.Join(chatsDir, name))
			}
		}
	}
	return files, nil
}

type geminiRawMessage struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Content   string `json:"content"`
}

type geminiRawSession struct {
	SessionID   string             `json:"sessionId"`
	ProjectHash string             `json:"projectHash"`
	StartTime   string             `json:"startTime"`
	LastUpdated string             `json:"lastUpdated"`
	Messages    []geminiRawMessage `json:"messages"`
}

type geminiParsedMessage struct {
	id        string
	timestamp time.Time
	role      model.MessageRole
	content   string
}

type geminiParsedSession struct {
	sessionID   string
	projectHash string
	startTime   *time.Time
	lastUpdated *time.Time
	messages    []geminiParsedMessage
	sourcePath  string
}

func parseGeminiSessionFile(path string) (*geminiParsedSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw geminiRawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var startTime *time.Time
	if t, err := time.Parse(time.RFC3339, raw.StartTime); err == nil {
		t = t.UTC()
		startTime = &t
	}
	var lastUpdated *time.Time
	if t, err := time.Parse(time.RFC3339, raw.LastUpdated); err == nil {
		t = t.UTC()
		lastUpdated = &t
	}

	parsed := &geminiParsedSession{
		sessionID:   raw.SessionID,
		projectHash: raw.ProjectHash,
		startTime:   startTime,
		lastUpdated: lastUpdated,
		sourcePath:  path,
	}

	for _, m := range raw.Messages {
		var role model.MessageRole
		switch m.Type {
		case "user":
			role = model.RoleUser
		case "gemini":
			role = model.RoleAssistant
		case "system":
			role = model.RoleSystem
		default:
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		timestamp := time.Now().UTC()
		if t, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			timestamp = t.UTC()
		} else if startTime != nil {
			timestamp = *startTime
		}
		parsed.messages = append(parsed.messages, geminiParsedMessage{
			id:        m.ID,
			timestamp: timestamp,
			role:      role,
			content:   m.Content,
		})
	}

	return parsed, nil
}

func (p *geminiParsedSession) toStorageModels() (model.Session, []model.Message) {
	sessionID := ParseUUIDOrDerive("gemini", p.sessionID)

	startedAt := time.Now().UTC()
	switch {
	case p.startTime != nil:
		startedAt = *p.startTime
	case len(p.messages) > 0:
		startedAt = p.messages[0].timestamp
	}

	var endedAt *time.Time
	switch {
	case p.lastUpdated != nil:
		endedAt = p.lastUpdated
	case len(p.messages) > 0:
		last := p.messages[len(p.messages)-1].timestamp
		endedAt = &last
	}

	workingDirectory := "."
	if p.projectHash != "" {
		workingDirectory = "<project:" + p.projectHash + ">"
	}

	sess := model.Session{
		ID:               sessionID,
		Tool:             "gemini",
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		WorkingDirectory: workingDirectory,
		SourcePath:       p.sourcePath,
		MessageCount:     len(p.messages),
	}

	messages := make([]model.Message, 0, len(p.messages))
	for idx, m := range p.messages {
		msgID := uuid.New()
		if m.id != "" {
			if parsed, err := uuid.Parse(m.id); err == nil {
				msgID = parsed
			}
		}
		messages = append(messages, model.Message{
			ID:        msgID,
			SessionID: sessionID,
			Index:     idx,
			Timestamp: m.timestamp,
			Role:      m.role,
			Content:   model.NewTextContent(m.content),
		})
	}
	return sess, messages
}
