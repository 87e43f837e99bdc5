// Package linker associates sessions with git commits: explicit user links,
// automatic time+directory-overlap linking, and blame-driven lookup.
package linker

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
)

// AutoLinkWindowMinutes is the default symmetric time window, in either
// direction of a commit's timestamp, within which a session is a link
// candidate.
const AutoLinkWindowMinutes = 30

// Linker associates sessions in st with commits in a git repository rooted
// at or above the working directory it was opened from.
type Linker struct {
	store    *store.Store
	repo     *git.Repository
	repoRoot string
}

// Open opens the git repository containing dir (searching upward for
// .git, matching the teacher's DetectDotGit convention) and binds it to st.
func Open(st *store.Store, dir string) (*Linker, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", dir, err)
	}

	repoRoot := dir
	if wt, err := repo.Worktree(); err == nil {
		repoRoot = wt.Filesystem.Root()
	}

	return &Linker{store: st, repo: repo, repoRoot: repoRoot}, nil
}

// Link inserts an explicit user-created SessionLink for sessionID against
// commitSHA.
func (l *Linker) Link(ctx context.Context, sessionID string, commitSHA string, branch, remote string, confidence *float64) error {
	sess, err := l.store.FindSessionByIDPrefix(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("resolve session %s: %w", sessionID, err)
	}

	exists, err := l.store.LinkExists(ctx, sess.ID, commitSHA)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	link := model.SessionLink{
		ID:         uuid.New(),
		SessionID:  sess.ID,
		LinkType:   model.LinkCommit,
		CommitSHA:  commitSHA,
		Branch:     branch,
		Remote:     remote,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  model.LinkCreatedUser,
		Confidence: confidence,
	}
	return l.store.InsertLink(ctx, link)
}

// Unlink removes links for sessionID, optionally scoped to one commit
// prefix.
func (l *Linker) Unlink(ctx context.Context, sessionID string, commitPrefix string) error {
	sess, err := l.store.FindSessionByIDPrefix(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("resolve session %s: %w", sessionID, err)
	}
	if commitPrefix == "" {
		_, err := l.store.DeleteLinksBySession(ctx, sess.ID)
		return err
	}
	_, err = l.store.DeleteLinkBySessionAndCommit(ctx, sess.ID, commitPrefix)
	return err
}

// AutoLinkCommit finds candidate sessions for one commit (time overlap
// within AutoLinkWindowMinutes plus a working-directory prefix match
// against the repository root) and inserts auto-created links for every
// candidate not already linked.
func (l *Linker) AutoLinkCommit(ctx context.Context, commitSHA string) (int, error) {
	hash := plumbing.NewHash(commitSHA)
	commit, err := l.repo.CommitObject(hash)
	if err != nil {
		return 0, fmt.Errorf("resolve commit %s: %w", commitSHA, err)
	}

	commitTime := commit.Author.When.UTC()
	changedFiles, err := commitChangedFiles(commit)
	if err != nil {
		changedFiles = nil
	}

	candidates, err := l.store.FindSessionsNearCommitTime(ctx, commitTime, AutoLinkWindowMinutes, l.repoRoot)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, sess := range candidates {
		exists, err := l.store.LinkExists(ctx, sess.ID, commitSHA)
		if err != nil {
			return linked, err
		}
		if exists {
			continue
		}

		confidence := l.confidenceFor(ctx, sess, commitTime, changedFiles)

		link := model.SessionLink{
			ID:         uuid.New(),
			SessionID:  sess.ID,
			LinkType:   model.LinkCommit,
			CommitSHA:  commitSHA,
			CreatedAt:  time.Now().UTC(),
			CreatedBy:  model.LinkCreatedAuto,
			Confidence: &confidence,
		}
		if err := l.store.InsertLink(ctx, link); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

// confidenceFor scores a candidate session in [0,1]: decreasing in time
// distance from the commit, with a bonus when the session's extracted
// files overlap the commit's changed files.
func (l *Linker) confidenceFor(ctx context.Context, sess model.Session, commitTime time.Time, changedFiles map[string]bool) float64 {
	refTime := sess.StartedAt
	if sess.EndedAt != nil {
		refTime = *sess.EndedAt
	}
	dist := commitTime.Sub(refTime)
	if dist < 0 {
		dist = -dist
	}

	timeScore := 1.0 - math.Min(1.0, dist.Seconds()/(AutoLinkWindowMinutes*60))
	score := 0.6 * timeScore

	if len(changedFiles) > 0 {
		if overlap := l.fileOverlapFraction(ctx, sess, changedFiles); overlap > 0 {
			score += 0.4 * overlap
		}
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// fileOverlapFraction returns the fraction of the commit's changed files
// that also appear among the files the session's messages touched.
func (l *Linker) fileOverlapFraction(ctx context.Context, sess model.Session, changedFiles map[string]bool) float64 {
	messages, err := l.store.GetMessages(ctx, sess.ID)
	if err != nil || len(messages) == 0 {
		return 0
	}

	sessionFiles := model.ExtractSessionFiles(messages, sess.WorkingDirectory)
	if len(sessionFiles) == 0 {
		return 0
	}

	matches := 0
	for _, f := range sessionFiles {
		if changedFiles[f] || changedFiles[filepath.ToSlash(f)] {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	return float64(matches) / float64(len(changedFiles))
}

func commitChangedFiles(commit *object.Commit) (map[string]bool, error) {
	files := map[string]bool{}
	stats, err := commit.Stats()
	if err != nil {
		return nil, err
	}
	for _, s := range stats {
		files[s.Name] = true
	}
	return files, nil
}

// BlameResult is one commit identified by blame, with every SessionLink
// that points at it.
type BlameResult struct {
	CommitSHA string
	Author    string
	When      time.Time
	Summary   string
	Links     []model.SessionLink
}

// Blame resolves file:line to the commit that last touched that line (via
// git blame), then returns every SessionLink recorded against that commit.
func (l *Linker) Blame(ctx context.Context, file string, line int) (*BlameResult, error) {
	head, err := l.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := l.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD commit: %w", err)
	}

	result, err := git.Blame(commit, file)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", file, err)
	}
	if line < 1 || line > len(result.Lines) {
		return nil, fmt.Errorf("line %d out of range for %s (%d lines)", line, file, len(result.Lines))
	}

	blameLine := result.Lines[line-1]
	links, err := l.store.GetLinksByCommit(ctx, blameLine.Hash.String())
	if err != nil {
		return nil, err
	}

	return &BlameResult{
		CommitSHA: blameLine.Hash.String(),
		Author:    blameLine.Author,
		When:      blameLine.Date,
		Summary:   strings.TrimSpace(blameLine.Text),
		Links:     links,
	}, nil
}

// SortByConfidenceDesc orders links highest-confidence-first, for display.
func SortByConfidenceDesc(links []model.SessionLink) {
	sort.SliceStable(links, func(i, j int) bool {
		ci, cj := 0.0, 0.0
		if links[i].Confidence != nil {
			ci = *links[i].Confidence
		}
		if links[j].Confidence != nil {
			cj = *links[j].Confidence
		}
		return ci > cj
	})
}
