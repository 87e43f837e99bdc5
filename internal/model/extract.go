package model

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// ExtractSessionFiles scans assistant tool-use blocks across messages and
// returns the set of workspace-relative file paths referenced by recognized
// tools (Read/Write/Edit/Glob/Grep/Bash/NotebookEdit). Absolute paths beneath
// workingDirectory are made relative; paths outside it are returned as-is.
func ExtractSessionFiles(messages []Message, workingDirectory string) []string {
	files := make(map[string]struct{})

	for _, msg := range messages {
		if !msg.Content.IsBlocks() {
			continue
		}
		for _, b := range msg.Content.Blocks {
			if b.Type != ContentBlockToolUse {
				continue
			}
			extractFilesFromToolUse(b.Name, b.Input, workingDirectory, files)
		}
	}

	out := make([]string, 0, len(files))
	for f := range files {
		out = append(out, f)
	}
	return out
}

func extractFilesFromToolUse(toolName string, input json.RawMessage, workingDirectory string, files map[string]struct{}) {
	var args map[string]any
	if len(input) > 0 {
		_ = json.Unmarshal(input, &args)
	}

	strArg := func(key string) (string, bool) {
		v, ok := args[key]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}

	switch toolName {
	case "Read", "Write", "Edit":
		if path, ok := strArg("file_path"); ok {
			if rel, ok := makeRelative(path, workingDirectory); ok {
				files[rel] = struct{}{}
			}
		}
	case "Glob", "Grep":
		if path, ok := strArg("path"); ok {
			if rel, ok := makeRelative(path, workingDirectory); ok {
				files[rel] = struct{}{}
			}
		}
	case "Bash":
		if cmd, ok := strArg("command"); ok {
			extractFilesFromBashCommand(cmd, workingDirectory, files)
		}
	case "NotebookEdit":
		if path, ok := strArg("notebook_path"); ok {
			if rel, ok := makeRelative(path, workingDirectory); ok {
				files[rel] = struct{}{}
			}
		}
	}
}

// fileCommands are shell commands whose trailing non-flag arguments are
// plausibly file paths, used by the best-effort bash-command scanner.
var fileCommands = []string{
	"cat", "less", "more", "head", "tail", "vim", "nano", "code",
	"cp", "mv", "rm", "touch", "mkdir", "chmod", "chown",
}

func extractFilesFromBashCommand(cmd, workingDirectory string, files map[string]struct{}) {
	isSeparator := func(r rune) bool {
		return r == '|' || r == ';' || r == '&' || r == '\n' || r == ' '
	}
	for _, part := range strings.FieldsFunc(cmd, isSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if (strings.HasPrefix(part, "/") || strings.HasPrefix(part, "./") || strings.HasPrefix(part, "../")) && !strings.HasPrefix(part, "-") {
			if rel, ok := makeRelative(part, workingDirectory); ok && rel != "" && !strings.Contains(rel, "$") {
				files[rel] = struct{}{}
			}
		}

		for _, fileCmd := range fileCommands {
			if !strings.HasPrefix(part, fileCmd) {
				continue
			}
			rest := strings.TrimSpace(strings.TrimPrefix(part, fileCmd))
			for _, arg := range strings.Fields(rest) {
				if strings.HasPrefix(arg, "-") {
					continue
				}
				if rel, ok := makeRelative(arg, workingDirectory); ok && rel != "" && !strings.Contains(rel, "$") {
					files[rel] = struct{}{}
				}
			}
		}
	}
}

// makeRelative converts an absolute path to one relative to workingDirectory.
// Relative input is returned cleaned of a leading "./". Absolute paths
// outside workingDirectory are returned unchanged rather than dropped,
// since git may record absolute paths in some cases.
func makeRelative(path, workingDirectory string) (string, bool) {
	if !strings.HasPrefix(path, "/") {
		cleaned := strings.TrimPrefix(path, "./")
		if cleaned == "" {
			return "", false
		}
		return cleaned, true
	}

	wd := strings.TrimSuffix(workingDirectory, "/")
	if rel, ok := strings.CutPrefix(path, wd); ok {
		rel = strings.TrimPrefix(rel, "/")
		if rel != "" {
			return filepath.ToSlash(rel), true
		}
	}

	return path, true
}
