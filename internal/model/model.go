// Package model defines the tool-neutral records every watcher produces
// and every store operation consumes: sessions, messages, links, tags,
// summaries, annotations and machines.
package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies who sent a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Session is one human<->AI collaboration, the primary unit of reasoning history.
type Session struct {
	ID               uuid.UUID
	Tool             string
	ToolVersion      string
	StartedAt        time.Time
	EndedAt          *time.Time
	Model            string
	WorkingDirectory string
	GitBranch        string
	SourcePath       string
	MessageCount     int
	MachineID        uuid.UUID
}

// Message is a single turn within a session.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	ParentID  *uuid.UUID
	Index     int
	Timestamp time.Time
	Role      MessageRole
	Content   MessageContent
	Model     string
	GitBranch string
	CWD       string
}

// LinkType is the kind of association a SessionLink records.
type LinkType string

const (
	LinkCommit LinkType = "commit"
	LinkBranch LinkType = "branch"
	LinkPR     LinkType = "pr"
	LinkManual LinkType = "manual"
)

// LinkCreator records how a SessionLink came to exist.
type LinkCreator string

const (
	LinkCreatedAuto LinkCreator = "auto"
	LinkCreatedUser LinkCreator = "user"
)

// SessionLink associates a session with a git commit, branch or PR.
type SessionLink struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	LinkType   LinkType
	CommitSHA  string
	Branch     string
	Remote     string
	CreatedAt  time.Time
	CreatedBy  LinkCreator
	Confidence *float64
}

// Tag is a lightweight label attached to a session.
type Tag struct {
	SessionID uuid.UUID
	Label     string
	CreatedAt time.Time
}

// Summary is a singleton attachment per session holding generated prose.
type Summary struct {
	SessionID uuid.UUID
	Text      string
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Annotation is one entry in an ordered list of user notes on a session.
type Annotation struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Text      string
	CreatedAt time.Time
}

// Machine identifies one installation that can own sessions.
type Machine struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// DisplayName returns Name, falling back to a truncated id when Name is empty.
func (m Machine) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	s := m.ID.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Repository is a git repository discovered via a session's working directory.
type Repository struct {
	ID            uuid.UUID
	Path          string
	Name          string
	RemoteURL     string
	CreatedAt     time.Time
	LastSessionAt *time.Time
}

// SearchResult is one hit from a full-text search over message content.
type SearchResult struct {
	SessionID        uuid.UUID
	MessageID        uuid.UUID
	Role             MessageRole
	Snippet          string
	Timestamp        time.Time
	WorkingDirectory string
}

// DeterministicID derives a stable, version-4-shaped UUID from a tool-native
// identifier that is not itself a UUID. The derivation is a straight SHA-1
// name-based UUID (v5) keyed by namespace+id so the same (tool, nativeID)
// pair always yields the same session id, across machines and runs.
func DeterministicID(namespace uuid.UUID, nativeID string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(nativeID))
}

// NamespaceLore is the fixed namespace used to derive session ids from
// tool-native identifiers that aren't themselves UUIDs.
var NamespaceLore = uuid.MustParse("b9f6c9d4-6e1b-4b8a-9b0e-2f6d0f6e6f6e")
