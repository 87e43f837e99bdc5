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

// ContinueDevWatcher ingests Continue.dev sessions: one JSON file per
// session under ~/.continue/sessions/.
type ContinueDevWatcher struct{}

func (ContinueDevWatcher) Info() Info {
	return Info{
		Name:         "continue",
		Description:  "Continue.dev VS Code extension sessions",
		DefaultPaths: []string{continueSessionsDir()},
	}
}

func (ContinueDevWatcher) IsAvailable() bool {
	info, err := os.Stat(continueSessionsDir())
	return err == nil && info.IsDir()
}

func (ContinueDevWatcher) FindSources() ([]string, error) {
	return findContinueSessions()
}

func (ContinueDevWatcher) ParseSource(path string) ([]ParsedSource, error) {
	sess, msgs, ok, err := parseContinueSession(path)
	if err != nil || !ok || len(msgs) == 0 {
		return nil, err
	}
	return []ParsedSource{{Session: sess, Messages: msgs}}, nil
}

func (ContinueDevWatcher) WatchPaths() []string {
	return []string{continueSessionsDir()}
}

func continueSessionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".continue", "sessions")
}

func findContinueSessions() ([]string, error) {
	dir := continueSessionsDir()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

type continueChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type continueHistoryItem struct {
	Message continueChatMessage `json:"message"`
}

type continueRawSession struct {
	SessionID          string                `json:"sessionId"`
	WorkspaceDirectory string                `json:"workspaceDirectory"`
	History            []continueHistoryItem `json:"history"`
	ChatModelTitle     string                `json:"chatModelTitle"`
}

type continueMessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// continueContentToText decodes the plain-string or parts-array form of a
// Continue.dev message's "content" field, keeping only text parts.
func continueContentToText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []continueMessagePart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var out []string
	for _, p := range parts {
		if p.Type == "text" && p.Text != "" {
			out = append(out, p.Text)
		}
	}
	return strings.Join(out, "\n")
}

func parseContinueSession(path string) (model.Session, []model.Message, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Session{}, nil, false, err
	}

	var raw continueRawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.Session{}, nil, false, err
	}
	if len(raw.History) == 0 {
		return model.Session{}, nil, false, nil
	}

	sessionID := ParseUUIDOrDerive("continue", raw.SessionID)

	endedAt := time.Now().UTC()
	if info, err := os.Stat(path); err == nil {
		endedAt = info.ModTime().UTC()
	}
	messageCount := len(raw.History)
	startedAt := endedAt.Add(-time.Duration(messageCount*2) * time.Minute)

	workingDirectory := raw.WorkspaceDirectory
	if workingDirectory == "" {
		workingDirectory = "."
	}

	const timePerMessage = 30 * time.Second
	current := startedAt

	messages := make([]model.Message, 0, messageCount)
	for idx, item := range raw.History {
		role, ok := ParseRole(item.Message.Role)
		if !ok {
			continue
		}
		text := continueContentToText(item.Message.Content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		messages = append(messages, model.Message{
			ID:        uuid.New(),
			SessionID: sessionID,
			Index:     idx,
			Timestamp: current,
			Role:      role,
			Content:   model.NewTextContent(text),
			CWD:       workingDirectory,
		})
		current = current.Add(timePerMessage)
	}

	if len(messages) == 0 {
		return model.Session{}, nil, false, nil
	}

	sess := model.Session{
		ID:               sessionID,
		Tool:             "continue",
		StartedAt:        startedAt,
		EndedAt:          &endedAt,
		Model:            raw.ChatModelTitle,
		WorkingDirectory: workingDirectory,
		SourcePath:       path,
		MessageCount:     len(messages),
	}

	return sess, messages, true, nil
}
