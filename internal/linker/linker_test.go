package linker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
)

// testRepo creates a throwaway git repository with one commit and returns
// its root directory and the commit SHA.
func testRepo(t *testing.T) (dir string, commitSHA string, commitTime time.Time) {
	t.Helper()
	dir = t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init")
	run("config", "commit.gpgsign", "false")

	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	run("add", "main.go")
	run("commit", "-m", "initial commit")

	out, err := exec.Command("git", "-C", dir, "rev-parse", "HEAD").Output()
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	commitSHA = string(out[:len(out)-1])

	out, err = exec.Command("git", "-C", dir, "show", "-s", "--format=%aI", commitSHA).Output()
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	commitTime, err = time.Parse(time.RFC3339, string(out[:len(out)-1]))
	if err != nil {
		t.Fatalf("parse commit time: %v", err)
	}

	return dir, commitSHA, commitTime
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp("", "lore_linker_*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	s, err := store.Open(store.DefaultConfig(path))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	})
	return s
}

func mustInsertSession(t *testing.T, st *store.Store, workingDir string, startedAt time.Time) model.Session {
	t.Helper()
	sess := model.Session{
		ID:               uuid.New(),
		Tool:             "test-tool",
		StartedAt:        startedAt,
		WorkingDirectory: workingDir,
		SourcePath:       workingDir + "/session.jsonl",
	}
	if err := st.UpsertSession(context.Background(), sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	return sess
}

func TestLinkAndUnlink(t *testing.T) {
	st := setupTestStore(t)
	dir, commitSHA, _ := testRepo(t)
	ctx := context.Background()

	sess := mustInsertSession(t, st, dir, time.Now().UTC())

	l, err := Open(st, dir)
	if err != nil {
		t.Fatalf("open linker: %v", err)
	}

	if err := l.Link(ctx, sess.ID.String(), commitSHA, "main", "origin", nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	links, err := st.GetLinksBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get links: %v", err)
	}
	if len(links) != 1 || links[0].CommitSHA != commitSHA {
		t.Fatalf("expected one link to %s, got %+v", commitSHA, links)
	}

	// Linking the same commit again is a no-op, not a duplicate.
	if err := l.Link(ctx, sess.ID.String(), commitSHA, "main", "origin", nil); err != nil {
		t.Fatalf("relink: %v", err)
	}
	links, _ = st.GetLinksBySession(ctx, sess.ID)
	if len(links) != 1 {
		t.Fatalf("expected relink to stay a no-op, got %d links", len(links))
	}

	if err := l.Unlink(ctx, sess.ID.String(), ""); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	links, _ = st.GetLinksBySession(ctx, sess.ID)
	if len(links) != 0 {
		t.Fatalf("expected unlink to remove the link, got %d", len(links))
	}
}

func TestAutoLinkCommitMatchesByTimeAndDirectory(t *testing.T) {
	st := setupTestStore(t)
	dir, commitSHA, commitTime := testRepo(t)
	ctx := context.Background()

	inWindow := mustInsertSession(t, st, dir, commitTime.Add(-5*time.Minute))
	outOfWindow := mustInsertSession(t, st, dir, commitTime.Add(-2*time.Hour))
	otherDir := mustInsertSession(t, st, "/somewhere/else", commitTime)

	l, err := Open(st, dir)
	if err != nil {
		t.Fatalf("open linker: %v", err)
	}

	linked, err := l.AutoLinkCommit(ctx, commitSHA)
	if err != nil {
		t.Fatalf("auto link: %v", err)
	}
	if linked != 1 {
		t.Fatalf("expected exactly 1 auto-link, got %d", linked)
	}

	links, err := st.GetLinksBySession(ctx, inWindow.ID)
	if err != nil || len(links) != 1 {
		t.Fatalf("expected in-window session to be linked, err=%v links=%v", err, links)
	}
	if links[0].CreatedBy != model.LinkCreatedAuto {
		t.Fatalf("expected auto-created link, got %q", links[0].CreatedBy)
	}
	if links[0].Confidence == nil {
		t.Fatal("expected a confidence score on the auto-created link")
	}

	if links, _ := st.GetLinksBySession(ctx, outOfWindow.ID); len(links) != 0 {
		t.Fatalf("session outside the time window should not be linked, got %v", links)
	}
	if links, _ := st.GetLinksBySession(ctx, otherDir.ID); len(links) != 0 {
		t.Fatalf("session outside the working directory should not be linked, got %v", links)
	}

	// Running it again must not duplicate the link.
	linked, err = l.AutoLinkCommit(ctx, commitSHA)
	if err != nil {
		t.Fatalf("second auto link: %v", err)
	}
	if linked != 0 {
		t.Fatalf("expected second run to link nothing new, got %d", linked)
	}
}

func TestBlameOutOfRangeLine(t *testing.T) {
	st := setupTestStore(t)
	dir, _, _ := testRepo(t)
	ctx := context.Background()

	l, err := Open(st, dir)
	if err != nil {
		t.Fatalf("open linker: %v", err)
	}

	if _, err := l.Blame(ctx, "main.go", 9999); err == nil {
		t.Fatal("expected an out-of-range line to error")
	}
}

func TestBlameResolvesCommitAndLinks(t *testing.T) {
	st := setupTestStore(t)
	dir, commitSHA, _ := testRepo(t)
	ctx := context.Background()

	sess := mustInsertSession(t, st, dir, time.Now().UTC())

	l, err := Open(st, dir)
	if err != nil {
		t.Fatalf("open linker: %v", err)
	}
	if err := l.Link(ctx, sess.ID.String(), commitSHA, "", "", nil); err != nil {
		t.Fatalf("link: %v", err)
	}

	result, err := l.Blame(ctx, "main.go", 1)
	if err != nil {
		t.Fatalf("blame: %v", err)
	}
	if result.CommitSHA != commitSHA {
		t.Fatalf("expected blame to resolve %s, got %s", commitSHA, result.CommitSHA)
	}
	if len(result.Links) != 1 || result.Links[0].SessionID != sess.ID {
		t.Fatalf("expected blame to surface the session link, got %+v", result.Links)
	}
}

func TestOpenWithoutGitRepoFails(t *testing.T) {
	st := setupTestStore(t)
	dir := t.TempDir()

	if _, err := Open(st, dir); err == nil {
		t.Fatal("expected opening a non-repository directory to fail")
	}
}

func TestSortByConfidenceDesc(t *testing.T) {
	hi, lo := 0.9, 0.1
	links := []model.SessionLink{
		{SessionID: uuid.New(), Confidence: &lo},
		{SessionID: uuid.New(), Confidence: nil},
		{SessionID: uuid.New(), Confidence: &hi},
	}
	SortByConfidenceDesc(links)
	if *links[0].Confidence != hi {
		t.Fatalf("expected highest confidence first, got %+v", links)
	}
}
