// Package hooks installs, updates, and removes the git hooks lore uses to
// pick up new sessions and link them to commits: each hook is a shell
// script marked with a fixed sentinel comment so install is idempotent,
// and a pre-existing non-sentinel hook is preserved with a ".backup"
// suffix when --force is used.
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// sentinel identifies a hook file as lore's own, the same marker-comment
// idiom used to make hook installation idempotent and safely removable.
const sentinel = "lore session hooks"

// hookNames are the git hooks lore manages. post-commit feeds the commit
// linker a chance to match recent sessions against the new commit;
// post-checkout and post-merge catch branch switches that change which
// working directory a session watcher should associate work with.
var hookNames = []string{"post-commit", "post-checkout", "post-merge"}

// Status describes one hook's installation state.
type Status struct {
	Name      string
	Path      string
	Installed bool // true if the file exists and carries the sentinel
	Foreign   bool // true if the file exists, lacks the sentinel, and would be backed up on --force install
}

// GitDir returns the repository's git directory by delegating to git
// itself, so worktrees and relocated .git directories resolve correctly.
func GitDir(dir string) (string, error) {
	cmd := exec.CommandContext(context.Background(), "git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("hooks: %s is not inside a git repository", dir)
	}
	gitDir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	return filepath.Clean(gitDir), nil
}

func hookScript(name, binary string) string {
	switch name {
	case "post-commit":
		return fmt.Sprintf("#!/bin/sh\n# %s\n%s link --commit HEAD --quiet 2>/dev/null || true\n", sentinel, binary)
	case "post-checkout":
		return fmt.Sprintf("#!/bin/sh\n# %s\n# $1=previous HEAD $2=new HEAD $3=1 if branch checkout\n%s import --quiet 2>/dev/null || true\n", sentinel, binary)
	case "post-merge":
		return fmt.Sprintf("#!/bin/sh\n# %s\n%s import --quiet 2>/dev/null || true\n", sentinel, binary)
	default:
		return fmt.Sprintf("#!/bin/sh\n# %s\nexit 0\n", sentinel)
	}
}

// ListStatus reports the current install state of every managed hook in
// dir's repository.
func ListStatus(dir string) ([]Status, error) {
	gitDir, err := GitDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(hookNames))
	for _, name := range hookNames {
		path := filepath.Join(gitDir, "hooks", name)
		data, err := os.ReadFile(path)
		s := Status{Name: name, Path: path}
		if err == nil {
			if strings.Contains(string(data), sentinel) {
				s.Installed = true
			} else {
				s.Foreign = true
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Install writes lore's managed hooks into dir's repository. Re-running
// Install is a no-op for hooks already up to date. A hook file that exists
// and lacks the sentinel is left untouched unless force is true, in which
// case it is renamed to "<name>.backup" before the new hook is written.
// Returns the number of hooks actually (re)written.
func Install(dir, binary string, force bool) (int, error) {
	gitDir, err := GitDir(dir)
	if err != nil {
		return 0, err
	}
	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return 0, fmt.Errorf("hooks: create hooks directory: %w", err)
	}

	written := 0
	for _, name := range hookNames {
		path := filepath.Join(hooksDir, name)
		content := hookScript(name, binary)

		existing, err := os.ReadFile(path)
		if err == nil {
			if string(existing) == content {
				continue // already up to date
			}
			if !strings.Contains(string(existing), sentinel) {
				if !force {
					return written, fmt.Errorf("hooks: %s already exists and is not a lore hook; rerun with --force to back it up and replace it", path)
				}
				if err := os.Rename(path, path+".backup"); err != nil {
					return written, fmt.Errorf("hooks: backup existing %s: %w", name, err)
				}
			}
		}

		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			return written, fmt.Errorf("hooks: write %s: %w", name, err)
		}
		written++
	}
	return written, nil
}

// Uninstall removes every managed hook that still carries the sentinel,
// leaving foreign hooks (and any ".backup" files Install created) alone.
// Returns the number of hooks removed.
func Uninstall(dir string) (int, error) {
	gitDir, err := GitDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []string
	for _, name := range hookNames {
		path := filepath.Join(gitDir, "hooks", name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(data), sentinel) {
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("hooks: failed to remove: %s", strings.Join(errs, "; "))
	}
	return removed, nil
}
