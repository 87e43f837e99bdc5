package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ConnectTimeout and RequestTimeout bound every network call so a stalled
// connection never hangs a push/pull indefinitely.
const (
	ConnectTimeout = 30 * time.Second
	RequestTimeout = 120 * time.Second
)

// Client talks to the cloud sync service's JSON-over-HTTPS wire protocol.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a Client against baseURL, authenticating every call
// with apiKey as a bearer token.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			},
		},
	}
}

// StatusResponse is the GET /status payload.
type StatusResponse struct {
	SessionCount     int        `json:"session_count"`
	StorageUsedBytes int64      `json:"storage_used_bytes"`
	LastSyncAt       *time.Time `json:"last_sync_at,omitempty"`
}

// SessionMetadata is the cleartext metadata half of a pushed/pulled
// session — only message content is encrypted.
type SessionMetadata struct {
	ToolName     string     `json:"tool_name"`
	ProjectPath  string     `json:"project_path"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	MessageCount int        `json:"message_count"`
}

// PushSession is one entry of a POST /push request body.
type PushSession struct {
	ID            string          `json:"id"`
	MachineID     string          `json:"machine_id"`
	EncryptedData string          `json:"encrypted_data"`
	Metadata      SessionMetadata `json:"metadata"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PushResponse is the POST /push success payload.
type PushResponse struct {
	SyncedCount int       `json:"synced_count"`
	ServerTime  time.Time `json:"server_time"`
}

// QuotaError is the JSON body of a 403 quota-exceeded push failure.
type QuotaError struct {
	Error   string `json:"error"`
	Details struct {
		Current   int    `json:"current"`
		Limit     int    `json:"limit"`
		Requested int    `json:"requested"`
		Available int    `json:"available"`
		Plan      string `json:"plan"`
	} `json:"details"`
}

// PullSession is one entry of a GET /pull response body.
type PullSession struct {
	ID            string          `json:"id"`
	MachineID     string          `json:"machine_id"`
	EncryptedData string          `json:"encrypted_data"`
	Metadata      SessionMetadata `json:"metadata"`
}

// PullResponse is the POST /pull success payload.
type PullResponse struct {
	Sessions   []PullSession `json:"sessions"`
	ServerTime time.Time     `json:"server_time"`
}

// Status calls GET /status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// GetSalt calls GET /salt.
func (c *Client) GetSalt(ctx context.Context) (string, bool, error) {
	var out struct {
		Salt *string `json:"salt"`
	}
	if err := c.do(ctx, http.MethodGet, "/salt", nil, &out); err != nil {
		return "", false, err
	}
	if out.Salt == nil {
		return "", false, nil
	}
	return *out.Salt, true, nil
}

// SetSalt calls POST /salt, uploading the locally generated salt so other
// machines can retrieve it on first pull.
func (c *Client) SetSalt(ctx context.Context, salt string) error {
	body := struct {
		Salt string `json:"salt"`
	}{Salt: salt}
	return c.do(ctx, http.MethodPost, "/salt", body, nil)
}

// PushError distinguishes the quota-exceeded and payload-too-large cases
// the push protocol must react to differently from a generic failure.
type PushError struct {
	StatusCode int
	Quota      *QuotaError // set when StatusCode == 403
	Body       string
}

func (e *PushError) Error() string {
	if e.Quota != nil {
		return fmt.Sprintf("push: %s", e.Quota.Error)
	}
	return fmt.Sprintf("push: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsQuotaExceeded reports whether err is a 403 quota failure.
func IsQuotaExceeded(err error) (*QuotaError, bool) {
	if pe, ok := asPushError(err); ok && pe.Quota != nil {
		return pe.Quota, true
	}
	return nil, false
}

// IsPayloadTooLarge reports whether err is an HTTP 413 push failure.
func IsPayloadTooLarge(err error) bool {
	pe, ok := asPushError(err)
	return ok && pe.StatusCode == http.StatusRequestEntityTooLarge
}

func asPushError(err error) (*PushError, bool) {
	pe, ok := err.(*PushError)
	return pe, ok
}

// Push uploads one batch of sessions.
func (c *Client) Push(ctx context.Context, sessions []PushSession) (PushResponse, error) {
	body := struct {
		Sessions []PushSession `json:"sessions"`
	}{Sessions: sessions}

	req, err := c.newRequest(ctx, http.MethodPost, "/push", body)
	if err != nil {
		return PushResponse{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PushResponse{}, fmt.Errorf("sync: push request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusForbidden {
		var qe QuotaError
		_ = json.Unmarshal(data, &qe)
		return PushResponse{}, &PushError{StatusCode: resp.StatusCode, Quota: &qe, Body: string(data)}
	}
	if resp.StatusCode != http.StatusOK {
		return PushResponse{}, &PushError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var out PushResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return PushResponse{}, fmt.Errorf("sync: decode push response: %w", err)
	}
	return out, nil
}

// Pull fetches sessions updated since the given cursor (zero value for a
// full pull).
func (c *Client) Pull(ctx context.Context, since *time.Time) (PullResponse, error) {
	body := struct {
		Since *time.Time `json:"since,omitempty"`
	}{Since: since}

	var out PullResponse
	err := c.do(ctx, http.MethodPost, "/pull", body, &out)
	return out, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("sync: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("sync: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sync: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sync: %s %s: HTTP %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sync: decode %s %s response: %w", method, path, err)
	}
	return nil
}
