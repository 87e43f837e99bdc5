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

// VSCodeExtensionConfig names one VS Code extension that stores chat
// history in the Cline-style task-directory format: one directory per task
// under globalStorage/<extensionID>/tasks/, holding an
// api_conversation_history.json and optional task_metadata.json.
type VSCodeExtensionConfig struct {
	Name        string
	Description string
	ExtensionID string
}

var (
	ClineConfig = VSCodeExtensionConfig{
		Name:        "cline",
		Description: "Cline (Claude Dev) VS Code extension sessions",
		ExtensionID: "saoudrizwan.claude-dev",
	}
	RooCodeConfig = VSCodeExtensionConfig{
		Name:        "roo-code",
		Description: "Roo Code VS Code extension sessions",
		ExtensionID: "rooveterinaryinc.roo-cline",
	}
	KiloCodeConfig = VSCodeExtensionConfig{
		Name:        "kilo-code",
		Description: "Kilo Code VS Code extension sessions",
		ExtensionID: "kilocode.Kilo-Code",
	}
)

// VSCodeExtensionWatcher parses any extension using the Cline-style task
// format; which extension is determined entirely by its config.
type VSCodeExtensionWatcher struct {
	config VSCodeExtensionConfig
}

func NewVSCodeExtensionWatcher(config VSCodeExtensionConfig) VSCodeExtensionWatcher {
	return VSCodeExtensionWatcher{config: config}
}

func (w VSCodeExtensionWatcher) tasksPath() string {
	return filepath.Join(VSCodeGlobalStorage(), w.config.ExtensionID, "tasks")
}

func (w VSCodeExtensionWatcher) Info() Info {
	return Info{
		Name:         w.config.Name,
		Description:  w.config.Description,
		DefaultPaths: []string{w.tasksPath()},
	}
}

func (w VSCodeExtensionWatcher) IsAvailable() bool {
	info, err := os.Stat(w.tasksPath())
	return err == nil && info.IsDir()
}

func (w VSCodeExtensionWatcher) FindSources() ([]string, error) {
	return findVSCodeTasks(w.tasksPath())
}

func (w VSCodeExtensionWatcher) ParseSource(path string) ([]ParsedSource, error) {
	sess, msgs, ok, err := parseVSCodeTask(path, w.config.Name)
	if err != nil || !ok || len(msgs) == 0 {
		return nil, err
	}
	return []ParsedSource{{Session: sess, Messages: msgs}}, nil
}

func (w VSCodeExtensionWatcher) WatchPaths() []string {
	return []string{w.tasksPath()}
}

// findVSCodeTasks lists every task subdirectory that has a conversation
// history file.
func findVSCodeTasks(tasksPath string) ([]string, error) {
	if info, err := os.Stat(tasksPath); err != nil || !info.IsDir() {
		return nil, nil
	}
	entries, err := os.ReadDir(tasksPath)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		history := filepath.Join(tasksPath, e.Name(), "api_conversation_history.json")
		if _, err := os.Stat(history); err == nil {
			files = append(files, history)
		}
	}
	return files, nil
}

type vscodeAPIMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	TS      *int64          `json:"ts"`
}

type vscodeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// vscodeContentToText decodes either the plain-string or content-block-array
// form of a message's "content" field and extracts its text, discarding
// image/tool_use/tool_result blocks (mirrors the Rust VsCodeContent enum's
// to_text()).
func vscodeContentToText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []vscodeContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type vscodeTaskMetadata struct {
	TS  json.RawMessage `json:"ts"`
	Dir string          `json:"dir"`
}

func parseVSCodeTask(historyPath, toolName string) (model.Session, []model.Message, bool, error) {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return model.Session{}, nil, false, err
	}

	var rawMessages []vscodeAPIMessage
	if err := json.Unmarshal(data, &rawMessages); err != nil {
		return model.Session{}, nil, false, err
	}
	if len(rawMessages) == 0 {
		return model.Session{}, nil, false, nil
	}

	taskDir := filepath.Dir(historyPath)
	taskID := filepath.Base(taskDir)

	var metadata vscodeTaskMetadata
	if raw, err := os.ReadFile(filepath.Join(taskDir, "task_metadata.json")); err == nil {
		_ = json.Unmarshal(raw, &metadata)
	}

	sessionID := ParseUUIDOrDerive(toolName, taskID)

	startedAt := time.Now().UTC()
	if rawMessages[0].TS != nil {
		startedAt = time.UnixMilli(*rawMessages[0].TS).UTC()
	} else if len(metadata.TS) > 0 {
		var ms int64
		if err := json.Unmarshal(metadata.TS, &ms); err == nil {
			startedAt = time.UnixMilli(ms).UTC()
		} else {
			var s string
			if err := json.Unmarshal(metadata.TS, &s); err == nil {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					startedAt = t.UTC()
				}
			}
		}
	}

	var endedAt *time.Time
	if last := rawMessages[len(rawMessages)-1]; last.TS != nil {
		t := time.UnixMilli(*last.TS).UTC()
		endedAt = &t
	}

	workingDirectory := metadata.Dir
	if workingDirectory == "" {
		// tasks/<taskID>/api_conversation_history.json -> globalStorage/<ext>/tasks
		// three levels up from the task directory lands at globalStorage, which
		// isn't a project directory either, so this is a best-effort fallback.
		workingDirectory = "."
	}

	const timePerMessage = 30 * time.Second
	current := startedAt

	messages := make([]model.Message, 0, len(rawMessages))
	for idx, m := range rawMessages {
		role, ok := ParseRole(m.Role)
		if !ok {
			continue
		}
		text := vscodeContentToText(m.Content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		timestamp := current
		if m.TS != nil {
			timestamp = time.UnixMilli(*m.TS).UTC()
		}
		messages = append(messages, model.Message{
			ID:        uuid.New(),
			SessionID: sessionID,
			Index:     idx,
			Timestamp: timestamp,
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
		Tool:             toolName,
		StartedAt:        startedAt,
		EndedAt:          endedAt,
		WorkingDirectory: workingDirectory,
		SourcePath:       historyPath,
		MessageCount:     len(messages),
	}

	return sess, messages, true, nil
}
