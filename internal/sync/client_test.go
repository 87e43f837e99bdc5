package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(StatusResponse{SessionCount: 4, StorageUsedBytes: 1024})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.SessionCount != 4 || status.StorageUsedBytes != 1024 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestClientPushReturnsQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(QuotaError{Error: "quota exceeded"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.Push(context.Background(), []PushSession{{ID: "abc"}})
	if err == nil {
		t.Fatal("expected an error")
	}
	qe, ok := IsQuotaExceeded(err)
	if !ok {
		t.Fatalf("expected a quota error, got %v", err)
	}
	if qe.Error != "quota exceeded" {
		t.Fatalf("unexpected quota error body: %+v", qe)
	}
}

func TestClientPushReturnsPayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.Push(context.Background(), []PushSession{{ID: "abc"}})
	if !IsPayloadTooLarge(err) {
		t.Fatalf("expected a payload-too-large error, got %v", err)
	}
}

func TestClientGetSaltMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"salt": nil})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	salt, ok, err := c.GetSalt(context.Background())
	if err != nil {
		t.Fatalf("GetSalt: %v", err)
	}
	if ok || salt != "" {
		t.Fatalf("expected no salt present, got %q ok=%v", salt, ok)
	}
}

func TestClientSetAndGetSalt(t *testing.T) {
	var stored string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Salt string `json:"salt"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			stored = body.Salt
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"salt": stored})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	if err := c.SetSalt(context.Background(), "deadbeef"); err != nil {
		t.Fatalf("SetSalt: %v", err)
	}
	salt, ok, err := c.GetSalt(context.Background())
	if err != nil {
		t.Fatalf("GetSalt: %v", err)
	}
	if !ok || salt != "deadbeef" {
		t.Fatalf("expected round-tripped salt, got %q ok=%v", salt, ok)
	}
}
