package watch

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lorehq/lore/internal/model"
)

// CursorWatcher ingests Cursor IDE's AI chat conversations, stored as JSON
// blobs inside a per-workspace SQLite key/value store
// (workspaceStorage/<id>/state.vscdb, table ItemTable, keys matching
// workbench.panel.aichat%).
type CursorWatcher struct{}

func (CursorWatcher) Info() Info {
	return Info{
		Name:         "cursor",
		Description:  "Cursor IDE AI conversations",
		DefaultPaths: []string{cursorStoragePath()},
	}
}

func (CursorWatcher) IsAvailable() bool {
	info, err := os.Stat(cursorStoragePath())
	return err == nil && info.IsDir()
}

func (CursorWatcher) FindSources() ([]string, error) {
	return findCursorDatabases()
}

func (CursorWatcher) ParseSource(path string) ([]ParsedSource, error) {
	return parseCursorDatabase(path)
}

func (CursorWatcher) WatchPaths() []string {
	return []string{cursorStoragePath()}
}

func cursorStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cursor", "User", "workspaceStorage")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Cursor", "User", "workspaceStorage")
	default:
		cfg := os.Getenv("XDG_CONFIG_HOME")
		if cfg == "" {
			cfg = filepath.Join(home, ".config")
		}
		return filepath.Join(cfg, "Cursor", "User", "workspaceStorage")
	}
}

func findCursorDatabases() ([]string, error) {
	dir := cursorStoragePath()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dbs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		db := filepath.Join(dir, e.Name(), "state.vscdb")
		if _, err := os.Stat(db); err == nil {
			dbs = append(dbs, db)
		}
	}
	return dbs, nil
}

type cursorMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp *int64 `json:"timestamp"`
	CreatedAt *int64 `json:"createdAt"`
}

type cursorConversation struct {
	ID            string          `json:"id"`
	Messages      []cursorMessage `json:"messages"`
	CreatedAt     *int64          `json:"createdAt"`
	UpdatedAt     *int64          `json:"updatedAt"`
	WorkspacePath string          `json:"workspacePath"`
}

// parseCursorDatabase opens the workspace's state.vscdb read-only and scans
// ItemTable for AI chat entries, parsing each value as a conversation (or an
// array of them, taking the first) and skipping anything that doesn't
// decode or carries no messages.
func parseCursorDatabase(path string) ([]ParsedSource, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT key, value FROM ItemTable WHERE key LIKE 'workbench.panel.aichat%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []ParsedSource
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		sess, msgs, ok := parseCursorConversation(value, path)
		if !ok || len(msgs) == 0 {
			continue
		}
		sources = append(sources, ParsedSource{Session: sess, Messages: msgs})
	}
	return sources, rows.Err()
}

func parseCursorConversation(raw []byte, sourcePath string) (model.Session, []model.Message, bool) {
	var conv cursorConversation
	if err := json.Unmarshal(raw, &conv); err != nil || len(conv.Messages) == 0 {
		var list []cursorConversation
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return model.Session{}, nil, false
		}
		conv = list[0]
	}
	if len(conv.Messages) == 0 {
		return model.Session{}, nil, false
	}

	sessionID := ParseUUIDOrDerive("cursor", conv.ID)

	startedAt := time.Now().UTC()
	if conv.CreatedAt != nil {
		startedAt = time.UnixMilli(*conv.CreatedAt).UTC()
	} else if first := conv.Messages[0]; first.Timestamp != nil {
		startedAt = time.UnixMilli(*first.Timestamp).UTC()
	} else if first := conv.Messages[0]; first.CreatedAt != nil {
		startedAt = time.UnixMilli(*first.CreatedAt).UTC()
	}

	var endedAt *time.Time
	if conv.UpdatedAt != nil {
		t := time.UnixMilli(*conv.UpdatedAt).UTC()
		endedAt = &t
	} else if last := conv.Messages[len(conv.Messages)-1]; last.Timestamp != nil {
		t := time.UnixMilli(*last.Timestamp).UTC()
		endedAt = &t
	} else if last := conv.Messages[len(conv.Messages)-1]; last.CreatedAt != nil {
		t := time.UnixMilli(*last.CreatedAt).UTC()
		endedAt = &t
	}

	workingDirectory := conv.WorkspacePath
	if workingDirectory == "" {
		workingDirectory = "."
	}

	messages := make([]model.Message, 0, len(conv.Messages))
	for idx, m := range conv.Messages {
		role, ok := ParseRole(m.Role)
		if !ok {
			continue
		}
		if m.Content == "" {
			continue
		}
		messageID := uuid.New()
		if m.ID != "" {
			if parsed, err := uuid.Parse(m.ID); err == nil {
				messageID = parsed
			}
		}
		timestamp := startedAt
		if m.Timestamp != nil {
			timestamp = time.UnixMilli(*m.Timestamp).UTC()
		} else if m.CreatedAt != nil {
			timestamp = time.UnixMilli(*m.CreatedAt).UTC()
		}
		messages = append(messages, model.Message{
			ID:        messageID,
			SessionID: sessionID,
			Index:     idx,
			Timestamp: timestamp,
			Role:      role,
			Content:   model.NewTextContent(m.Content),
		})
	}
	if len(messages) == 0 {
		return model.Session{}, nil, false
	}

	sess := model.Session{
		ID:               sessionID,
		Tool:             "cursor",
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		WorkingDirectory: workingDirectory,
		SourcePath:       sourcePath,
		MessageCount:     len(messages),
	}
	return sess, messages, true
}
