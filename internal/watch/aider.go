package watch

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

// aiderHistoryFile is the name Aider uses for its markdown chat log in a
// project's working directory, unless AIDER_CHAT_HISTORY_FILE overrides it.
const aiderHistoryFile = ".aider.chat.history.md"

// AiderWatcher ingests Aider's markdown chat history files. Aider writes one
// growing file per project directory rather than a central log, so unlike
// the JSONL watchers it has no real-time watch path: sessions are only
// captured via an explicit import scan.
type AiderWatcher struct{}

func (AiderWatcher) Info() Info {
	return Info{
		Name:         "aider",
		Description:  "Aider terminal AI chat sessions",
		DefaultPaths: nil,
	}
}

func (AiderWatcher) IsAvailable() bool {
	if _, err := exec.LookPath("aider"); err == nil {
		return true
	}
	files, err := findAiderHistoryFiles()
	return err == nil && len(files) > 0
}

func (AiderWatcher) FindSources() ([]string, error) {
	return findAiderHistoryFiles()
}

func (AiderWatcher) ParseSource(path string) ([]ParsedSource, error) {
	return parseAiderHistory(path)
}

// WatchPaths returns nil: Aider history files are scattered across arbitrary
// project directories, so watching them in real time would mean watching the
// whole home directory, which blows past inotify limits for no real benefit.
func (AiderWatcher) WatchPaths() []string {
	return nil
}

func findAiderHistoryFiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}

	var files []string
	homeHistory := filepath.Join(home, aiderHistoryFile)
	if _, err := os.Stat(homeHistory); err == nil {
		files = append(files, homeHistory)
	}

	for _, sub := range []string{"projects", "code", "src", "dev", "workspace", "repos"} {
		dir := filepath.Join(home, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			candidate := filepath.Join(dir, e.Name(), aiderHistoryFile)
			if _, err := os.Stat(candidate); err == nil {
				files = append(files, candidate)
			}
		}
	}
	return files, nil
}

// ScanDirectoriesForAiderFiles recursively walks the given directories
// looking for Aider history files, skipping noisy or hidden directories per
// ShouldDescend. progress, if non-nil, is called after each directory visit
// with the directory and the running count of files found.
func ScanDirectoriesForAiderFiles(directories []string, progress func(dir string, found int)) []string {
	var found []string
	for _, dir := range directories {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		scanDirectoryForAider(dir, &found, progress)
	}
	return found
}

func scanDirectoryForAider(dir string, found *[]string, progress func(string, int)) {
	if progress != nil {
		progress(dir, len(*found))
	}

	history := filepath.Join(dir, aiderHistoryFile)
	if _, err := os.Stat(history); err == nil {
		*found = append(*found, history)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !ShouldDescend(e.Name()) {
			continue
		}
		scanDirectoryForAider(filepath.Join(dir, e.Name()), found, progress)
	}
}

// aiderParsedMessage is one role+content pair extracted from a history file,
// before timestamps are assigned.
type aiderParsedMessage struct {
	role    model.MessageRole
	content string
}

// parseAiderHistory runs the markdown state machine described in the Aider
// watcher spec over a single history file: level-4 headings (`#### `) open a
// user message, `>`-prefixed lines are tool output folded into the following
// assistant message, and blank lines close out whichever message is
// currently accumulating.
func parseAiderHistory(path string) ([]ParsedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	workingDirectory := filepath.Dir(path)

	var messages []aiderParsedMessage
	var currentRole model.MessageRole
	var hasRole bool
	var content strings.Builder
	inToolOutput := false

	flushCurrent := func() {
		if hasRole && strings.TrimSpace(content.String()) != "" {
			messages = append(messages, aiderParsedMessage{
				role:    currentRole,
				content: strings.TrimSpace(content.String()),
			})
		}
		content.Reset()
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "#### "):
			flushCurrent()
			currentRole = model.RoleUser
			hasRole = true
			content.WriteString(strings.TrimPrefix(line, "#### "))
			inToolOutput = false

		case strings.HasPrefix(line, "> ") || line == ">":
			if hasRole && currentRole == model.RoleUser && strings.TrimSpace(content.String()) != "" {
				messages = append(messages, aiderParsedMessage{role: model.RoleUser, content: strings.TrimSpace(content.String())})
				content.Reset()
				currentRole = model.RoleAssistant
			} else if !hasRole {
				currentRole = model.RoleAssistant
				hasRole = true
			}
			inToolOutput = true
			toolLine := strings.TrimPrefix(strings.TrimPrefix(line, "> "), ">")
			if content.Len() > 0 {
				content.WriteByte('\n')
			}
			content.WriteString(toolLine)

		case strings.TrimSpace(line) == "":
			switch {
			case inToolOutput:
				inToolOutput = false
				if content.Len() > 0 {
					content.WriteByte('\n')
				}
			case hasRole && currentRole == model.RoleUser && strings.TrimSpace(content.String()) != "":
				messages = append(messages, aiderParsedMessage{role: model.RoleUser, content: strings.TrimSpace(content.String())})
				content.Reset()
				currentRole = model.RoleAssistant
			case hasRole && currentRole == model.RoleAssistant:
				if content.Len() > 0 {
					content.WriteByte('\n')
				}
			}

		default:
			if !hasRole {
				currentRole = model.RoleAssistant
				hasRole = true
			} else if currentRole == model.RoleUser {
				if strings.TrimSpace(content.String()) != "" {
					messages = append(messages, aiderParsedMessage{role: model.RoleUser, content: strings.TrimSpace(content.String())})
					content.Reset()
					currentRole = model.RoleAssistant
				}
			}
			if content.Len() > 0 {
				content.WriteByte('\n')
			}
			content.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flushCurrent()

	if len(messages) == 0 {
		return nil, nil
	}

	sess := createAiderSession(path, workingDirectory, len(messages))
	msgs := createAiderMessages(sess, messages)
	return []ParsedSource{{Session: sess, Messages: msgs}}, nil
}

func createAiderSession(path, workingDirectory string, messageCount int) model.Session {
	endedAt := time.Now().UTC()
	if info, err := os.Stat(path); err == nil {
		endedAt = info.ModTime().UTC()
	}
	startedAt := endedAt.Add(-time.Duration(messageCount*2) * time.Minute)

	return model.Session{
		ID:               uuid.New(),
		Tool:             "aider",
		StartedAt:        startedAt,
		EndedAt:          &endedAt,
		WorkingDirectory: workingDirectory,
		SourcePath:       path,
		MessageCount:     messageCount,
	}
}

func createAiderMessages(sess model.Session, parsed []aiderParsedMessage) []model.Message {
	const timePerMessage = 30 * time.Second
	current := sess.StartedAt

	messages := make([]model.Message, 0, len(parsed))
	for idx, p := range parsed {
		messages = append(messages, model.Message{
			ID:        uuid.New(),
			SessionID: sess.ID,
			Index:     idx,
			Timestamp: current,
			Role:      p.role,
			Content:   model.NewTextContent(p.content),
			CWD:       sess.WorkingDirectory,
		})
		current = current.Add(timePerMessage)
	}
	return messages
}
