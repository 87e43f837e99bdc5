// Package sync implements the end-to-end-encrypted bidirectional
// replication engine: passphrase-derived key management, per-session AEAD
// encryption, and a pipelined push/pull protocol against the cloud
// service's JSON-over-HTTPS API.
package sync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/store"
)

// PushBatchSize is the default number of sessions uploaded per request.
const PushBatchSize = 3

// Engine drives push/pull cycles between a local Store and a cloud
// Client, under one machine identity and one derived key.
type Engine struct {
	store     *store.Store
	client    *Client
	machineID uuid.UUID
	key       string // hex-encoded, derived via DeriveKey
}

// NewEngine binds an Engine to st and client, under the given machine
// identity and derived symmetric key.
func NewEngine(st *store.Store, client *Client, machineID uuid.UUID, key string) *Engine {
	return &Engine{store: st, client: client, machineID: machineID, key: key}
}

// PushResult tallies one push run.
type PushResult struct {
	Synced        int
	TooLarge      []uuid.UUID
	QuotaExceeded *QuotaError
	Errors        []error
}

// encryptedSession pairs a session with its encrypted wire payload (or
// the error encrypting it produced), flowing from the encryption stage to
// the batching/upload stage of Push's pipeline.
type encryptedSession struct {
	session model.Session
	payload PushSession
	err     error
}

// Push collects unsynced sessions, encrypts and uploads them in batches,
// pipelining encryption and upload through a bounded channel so encryption
// never runs far ahead of what the network can absorb.
func (e *Engine) Push(ctx context.Context) (PushResult, error) {
	var result PushResult

	sessions, err := e.store.GetUnsyncedSessions(ctx)
	if err != nil {
		return result, fmt.Errorf("sync: list unsynced sessions: %w", err)
	}
	if len(sessions) == 0 {
		return result, nil
	}

	jobs := make(chan model.Session, PushBatchSize)
	encryptedCh := make(chan encryptedSession, PushBatchSize)

	go func() {
		defer close(jobs)
		for _, sess := range sessions {
			select {
			case <-ctx.Done():
				return
			case jobs <- sess:
			}
		}
	}()

	go func() {
		defer close(encryptedCh)
		for sess := range jobs {
			payload, err := e.encryptSession(ctx, sess)
			select {
			case <-ctx.Done():
				return
			case encryptedCh <- encryptedSession{session: sess, payload: payload, err: err}:
			}
		}
	}()

	var batch []encryptedSession
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		defer func() { batch = nil }()

		payloads := make([]PushSession, len(batch))
		for i, b := range batch {
			payloads[i] = b.payload
		}

		resp, err := e.client.Push(ctx, payloads)
		if err != nil {
			if qe, ok := IsQuotaExceeded(err); ok {
				result.QuotaExceeded = qe
				return err
			}
			if IsPayloadTooLarge(err) {
				e.retryIndividually(ctx, batch, &result)
				return nil
			}
			result.Errors = append(result.Errors, err)
			return nil
		}

		ids := make([]uuid.UUID, len(batch))
		for i, b := range batch {
			ids[i] = b.session.ID
		}
		if err := e.store.MarkSessionsSynced(ctx, ids, resp.ServerTime); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sync: mark synced: %w", err))
			return nil
		}
		result.Synced += len(ids)
		return nil
	}

	for enc := range encryptedCh {
		if enc.err != nil {
			result.Errors = append(result.Errors, enc.err)
			continue
		}
		batch = append(batch, enc)
		if len(batch) >= PushBatchSize {
			if err := flush(); err != nil {
				return result, nil // quota exceeded: stop immediately, non-fatal
			}
		}
	}
	if err := flush(); err != nil {
		return result, nil
	}

	return result, nil
}

func (e *Engine) encryptSession(ctx context.Context, sess model.Session) (PushSession, error) {
	messages, err := e.store.GetMessages(ctx, sess.ID)
	if err != nil {
		return PushSession{}, fmt.Errorf("sync: load messages for %s: %w", sess.ID, err)
	}

	plaintext, err := json.Marshal(messages)
	if err != nil {
		return PushSession{}, fmt.Errorf("sync: marshal messages for %s: %w", sess.ID, err)
	}

	blob, err := Encrypt(e.key, plaintext)
	if err != nil {
		return PushSession{}, fmt.Errorf("sync: encrypt session %s: %w", sess.ID, err)
	}

	return PushSession{
		ID:            sess.ID.String(),
		MachineID:     e.machineID.String(),
		EncryptedData: base64Encode(blob),
		Metadata: SessionMetadata{
			ToolName:     sess.Tool,
			ProjectPath:  sess.WorkingDirectory,
			StartedAt:    sess.StartedAt,
			EndedAt:      sess.EndedAt,
			MessageCount: sess.MessageCount,
		},
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// retryIndividually re-pushes each session in a batch one at a time after
// the batch as a whole came back 413; sessions still too large are
// recorded as skipped rather than aborting the run.
func (e *Engine) retryIndividually(ctx context.Context, batch []encryptedSession, result *PushResult) {
	for _, b := range batch {
		resp, err := e.client.Push(ctx, []PushSession{b.payload})
		if err != nil {
			if IsPayloadTooLarge(err) {
				result.TooLarge = append(result.TooLarge, b.session.ID)
				continue
			}
			result.Errors = append(result.Errors, err)
			continue
		}
		if err := e.store.MarkSessionsSynced(ctx, []uuid.UUID{b.session.ID}, resp.ServerTime); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sync: mark synced: %w", err))
			continue
		}
		result.Synced++
	}
}

// PullResult tallies one pull run.
type PullResult struct {
	Imported        int
	SkippedOwn      int
	SkippedNotNewer int
	DecryptErrors   int
	Errors          []error
}

// Pull fetches sessions updated since the store's last-sync cursor,
// decrypting and upserting those that are newer than what's local.
func (e *Engine) Pull(ctx context.Context) (PullResult, error) {
	var result PullResult

	since, err := e.store.LastSyncTime(ctx)
	if err != nil {
		return result, fmt.Errorf("sync: last sync time: %w", err)
	}

	resp, err := e.client.Pull(ctx, since)
	if err != nil {
		return result, fmt.Errorf("sync: pull: %w", err)
	}

	for _, remote := range resp.Sessions {
		if remote.MachineID == e.machineID.String() {
			result.SkippedOwn++
			continue
		}

		remoteID, err := uuid.Parse(remote.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sync: parse session id %q: %w", remote.ID, err))
			continue
		}
		remoteMachineID, err := uuid.Parse(remote.MachineID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sync: parse machine id %q: %w", remote.MachineID, err))
			continue
		}

		local, _ := e.store.GetSession(ctx, remoteID)
		if local != nil && !isNewer(remote.Metadata, *local) {
			result.SkippedNotNewer++
			continue
		}

		blob, err := base64Decode(remote.EncryptedData)
		if err != nil {
			result.DecryptErrors++
			continue
		}
		plaintext, err := Decrypt(e.key, blob)
		if err != nil {
			result.DecryptErrors++
			continue
		}

		var messages []model.Message
		if err := json.Unmarshal(plaintext, &messages); err != nil {
			result.DecryptErrors++
			continue
		}

		sess := model.Session{
			ID:               remoteID,
			Tool:             remote.Metadata.ToolName,
			StartedAt:        remote.Metadata.StartedAt,
			EndedAt:          remote.Metadata.EndedAt,
			WorkingDirectory: remote.Metadata.ProjectPath,
			MessageCount:     remote.Metadata.MessageCount,
			MachineID:        remoteMachineID,
		}

		if err := e.store.ImportSessionWithMessages(ctx, sess, messages, &resp.ServerTime); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sync: import session %s: %w", remoteID, err))
			continue
		}
		result.Imported++
	}

	return result, nil
}

// isNewer reports whether remote metadata describes a session strictly
// newer than local, by message count or ended_at.
func isNewer(remote SessionMetadata, local model.Session) bool {
	if remote.MessageCount > local.MessageCount {
		return true
	}
	if remote.EndedAt != nil && (local.EndedAt == nil || remote.EndedAt.After(*local.EndedAt)) {
		return true
	}
	return false
}

// SyncResult is the combined outcome of Pull then Push.
type SyncResult struct {
	Pull    PullResult
	PullErr error
	Push    PushResult
}

// Sync pulls then pushes; a pull failure is logged and does not prevent
// the push half from running.
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	pullResult, err := e.Pull(ctx)
	result.Pull = pullResult
	result.PullErr = err

	pushResult, err := e.Push(ctx)
	result.Push = pushResult
	if err != nil {
		return result, err
	}
	return result, nil
}

// Reset clears sync bookkeeping, forcing the given sessions (or all
// sessions, if ids is empty) to be re-pushed on the next sync.
func (e *Engine) Reset(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return e.store.ClearSyncStatus(ctx)
	}
	return e.store.ClearSyncStatusForSessions(ctx, ids)
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
