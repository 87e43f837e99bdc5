package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "lore_test_*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)

	s, err := Open(DefaultConfig(path))
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

func testSession(t *testing.T, wd string) model.Session {
	t.Helper()
	return model.Session{
		ID:               uuid.New(),
		Tool:             "claude-code",
		StartedAt:        time.Now().UTC().Truncate(time.Millisecond),
		WorkingDirectory: wd,
		MessageCount:     0,
	}
}

func TestUpsertAndGetSession(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/home/user/project")

	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.Tool != sess.Tool || got.WorkingDirectory != sess.WorkingDirectory {
		t.Fatalf("got %+v, want %+v", got, sess)
	}
}

func TestUpsertSessionOnConflictUpdatesEndedAndCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")

	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	ended := sess.StartedAt.Add(time.Hour)
	sess.EndedAt = &ended
	sess.MessageCount = 5
	sess.Tool = "changed-tool" // should NOT be applied by the conflict update

	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("conflict upsert: %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MessageCount != 5 {
		t.Errorf("message count not updated: got %d", got.MessageCount)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("ended_at not updated: got %v", got.EndedAt)
	}
	if got.Tool != "claude-code" {
		t.Errorf("tool should be immutable on conflict, got %q", got.Tool)
	}
}

func TestInsertMessageIndexesFTSOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	msg := model.Message{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Index:     0,
		Timestamp: time.Now(),
		Role:      model.RoleUser,
		Content:   model.NewTextContent("please refactor the parser"),
	}
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	// Idempotent re-insert must not duplicate the FTS row.
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("re-insert message: %v", err)
	}

	results, err := s.SearchMessages(ctx, "refactor", 10, "", nil, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(results))
	}
}

func TestGetMessagesOrderedByIndex(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	for i := 2; i >= 0; i-- {
		msg := model.Message{
			ID:        uuid.New(),
			SessionID: sess.ID,
			Index:     i,
			Timestamp: time.Now(),
			Role:      model.RoleUser,
			Content:   model.NewTextContent("turn"),
		}
		if err := s.InsertMessage(ctx, msg); err != nil {
			t.Fatalf("insert message %d: %v", i, err)
		}
	}

	msgs, err := s.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Index != i {
			t.Errorf("messages out of order: position %d has index %d", i, m.Index)
		}
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	msg := model.Message{ID: uuid.New(), SessionID: sess.ID, Timestamp: time.Now(), Role: model.RoleUser, Content: model.NewTextContent("hi")}
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if err := s.AddTag(ctx, sess.ID, "bugfix", time.Now()); err != nil {
		t.Fatalf("add tag: %v", err)
	}

	if err := s.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatal("expected session to be gone")
	}
	msgs, err := s.GetMessages(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get messages after delete: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected messages to cascade delete, got %d", len(msgs))
	}
	tags, err := s.GetTags(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get tags after delete: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected tags to cascade delete, got %d", len(tags))
	}
}

func TestFindSessionByIDPrefixAmbiguous(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Force a shared prefix by crafting two UUIDs that start the same way.
	base := "aaaaaaaa-0000-4000-8000-000000000000"
	id1 := uuid.MustParse(base)
	id2 := uuid.MustParse("aaaaaaaa-1111-4000-8000-000000000000")

	for _, id := range []uuid.UUID{id1, id2} {
		sess := testSession(t, "/project")
		sess.ID = id
		if err := s.UpsertSession(ctx, sess); err != nil {
			t.Fatalf("upsert session %s: %v", id, err)
		}
	}

	if _, err := s.FindSessionByIDPrefix(ctx, "aaaaaaaa"); err != ErrAmbiguousPrefix {
		t.Fatalf("expected ErrAmbiguousPrefix, got %v", err)
	}
}

func TestSessionExistsBySource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	sess.SourcePath = "/home/user/.claude/sessions/abc.jsonl"
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	exists, err := s.SessionExistsBySource(ctx, sess.SourcePath)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected source path to be found")
	}

	exists, err = s.SessionExistsBySource(ctx, "/not/imported.jsonl")
	if err != nil {
		t.Fatalf("exists (negative): %v", err)
	}
	if exists {
		t.Fatal("expected source path to be absent")
	}
}

func TestSearchIndexNeedsRebuildAfterManualFTSWipe(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	msg := model.Message{ID: uuid.New(), SessionID: sess.ID, Timestamp: time.Now(), Role: model.RoleUser, Content: model.NewTextContent("hello")}
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("insert message: %v", err)
	}

	needsRebuild, err := s.SearchIndexNeedsRebuild(ctx)
	if err != nil {
		t.Fatalf("needs rebuild: %v", err)
	}
	if needsRebuild {
		t.Fatal("fresh index should not need rebuild")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages_fts`); err != nil {
		t.Fatalf("manual wipe: %v", err)
	}
	needsRebuild, err = s.SearchIndexNeedsRebuild(ctx)
	if err != nil {
		t.Fatalf("needs rebuild after wipe: %v", err)
	}
	if !needsRebuild {
		t.Fatal("expected rebuild to be needed after wiping fts table")
	}

	count, err := s.RebuildSearchIndex(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 message reindexed, got %d", count)
	}
}

func TestImportSessionWithMessagesRecordsSyncStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	msg := model.Message{ID: uuid.New(), SessionID: sess.ID, Timestamp: time.Now(), Role: model.RoleAssistant, Content: model.NewTextContent("pulled")}
	serverTime := time.Now().UTC()

	if err := s.ImportSessionWithMessages(ctx, sess, []model.Message{msg}, &serverTime); err != nil {
		t.Fatalf("import: %v", err)
	}

	synced, err := s.IsSyncedAsOf(ctx, sess.ID, serverTime)
	if err != nil {
		t.Fatalf("is synced as of: %v", err)
	}
	if !synced {
		t.Fatal("expected session to be synced as of server time")
	}
}

func TestGetUnsyncedSessions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	synced := testSession(t, "/project")
	unsynced := testSession(t, "/project")
	for _, sess := range []model.Session{synced, unsynced} {
		if err := s.UpsertSession(ctx, sess); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := s.MarkSessionsSynced(ctx, []uuid.UUID{synced.ID}, time.Now()); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	unsyncedSessions, err := s.GetUnsyncedSessions(ctx)
	if err != nil {
		t.Fatalf("get unsynced: %v", err)
	}
	if len(unsyncedSessions) != 1 || unsyncedSessions[0].ID != unsynced.ID {
		t.Fatalf("expected only %s unsynced, got %+v", unsynced.ID, unsyncedSessions)
	}
}

func TestLinksSurviveSessionLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	sess := testSession(t, "/project")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	link := model.SessionLink{
		ID:        uuid.New(),
		SessionID: sess.ID,
		LinkType:  model.LinkCommit,
		CommitSHA: "abcdef1234567890",
		CreatedAt: time.Now(),
		CreatedBy: model.LinkCreatedUser,
	}
	if err := s.InsertLink(ctx, link); err != nil {
		t.Fatalf("insert link: %v", err)
	}

	found, err := s.GetLinksByCommit(ctx, "abcdef")
	if err != nil {
		t.Fatalf("get links by commit prefix: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 link by prefix, got %d", len(found))
	}

	ok, err := s.DeleteLinkBySessionAndCommit(ctx, sess.ID, "abcdef")
	if err != nil {
		t.Fatalf("delete link: %v", err)
	}
	if !ok {
		t.Fatal("expected link to be deleted")
	}

	remaining, err := s.GetLinksBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get links by session: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no links remaining, got %d", len(remaining))
	}
}

func TestFindSessionsNearCommitTimeExcludesOpenEndedSessionStartedBeforeWindow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	commitTime := time.Now().UTC()

	// Open-ended (no ended_at) session that started well before the
	// window: its interval collapses to a point at started_at, which
	// falls outside the window and must not match.
	farInPast := testSession(t, "/project")
	farInPast.StartedAt = commitTime.Add(-2 * time.Hour)
	if err := s.UpsertSession(ctx, farInPast); err != nil {
		t.Fatalf("upsert far-in-past session: %v", err)
	}

	// Open-ended session that started inside the window: must match.
	inWindow := testSession(t, "/project")
	inWindow.StartedAt = commitTime.Add(-5 * time.Minute)
	if err := s.UpsertSession(ctx, inWindow); err != nil {
		t.Fatalf("upsert in-window session: %v", err)
	}

	got, err := s.FindSessionsNearCommitTime(ctx, commitTime, 30, "")
	if err != nil {
		t.Fatalf("FindSessionsNearCommitTime: %v", err)
	}
	if len(got) != 1 || got[0].ID != inWindow.ID {
		t.Fatalf("expected only the in-window session to match, got %+v", got)
	}
}

func TestFindSessionsNearCommitTimeMatchesClosedSessionOverlappingWindow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	commitTime := time.Now().UTC()

	sess := testSession(t, "/project")
	sess.StartedAt = commitTime.Add(-2 * time.Hour)
	endedAt := commitTime.Add(-10 * time.Minute)
	sess.EndedAt = &endedAt
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert session: %v", err)
	}

	got, err := s.FindSessionsNearCommitTime(ctx, commitTime, 30, "")
	if err != nil {
		t.Fatalf("FindSessionsNearCommitTime: %v", err)
	}
	if len(got) != 1 || got[0].ID != sess.ID {
		t.Fatalf("expected the long-running closed session to match since its end overlaps the window, got %+v", got)
	}
}

func TestStatsByTool(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sessA := testSession(t, "/a")
	sessA.Tool = "claude-code"
	sessB := testSession(t, "/b")
	sessB.Tool = "cursor"
	for _, sess := range []model.Session{sessA, sessB} {
		if err := s.UpsertSession(ctx, sess); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.SessionCount != 2 {
		t.Errorf("expected 2 sessions, got %d", stats.SessionCount)
	}
	if stats.ByTool["claude-code"] != 1 || stats.ByTool["cursor"] != 1 {
		t.Errorf("unexpected by-tool breakdown: %+v", stats.ByTool)
	}
}
