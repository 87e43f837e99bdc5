package model

import (
	"encoding/json"
	"testing"
)

func TestMessageContentTextRoundTrip(t *testing.T) {
	c := NewTextContent("hello world")
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"hello world"` {
		t.Fatalf("expected bare JSON string, got %s", b)
	}

	var out MessageContent
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IsBlocks() || out.Text != "hello world" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestMessageContentBlocksRoundTrip(t *testing.T) {
	c := NewBlockContent([]ContentBlock{
		{Type: ContentBlockText, Text: "hi"},
		{Type: ContentBlockToolUse, ToolUseID: "t1", Name: "Read", Input: json.RawMessage(`{"file_path":"a.go"}`)},
		{Type: ContentBlockToolResult, ToolUseResultID: "t1", Content: "ok", IsError: false},
		{Type: ContentBlockThinking, Thinking: "pondering"},
	})

	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out MessageContent
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.IsBlocks() || len(out.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %+v", out)
	}
	if out.Blocks[1].Name != "Read" {
		t.Fatalf("tool_use name lost in round trip: %+v", out.Blocks[1])
	}
}

func TestMessageContentTextExcludesThinkingAndTools(t *testing.T) {
	c := NewBlockContent([]ContentBlock{
		{Type: ContentBlockText, Text: "line one"},
		{Type: ContentBlockThinking, Thinking: "secret reasoning"},
		{Type: ContentBlockToolUse, Name: "Bash"},
		{Type: ContentBlockText, Text: "line two"},
	})
	if got, want := c.ExtractText(), "line one\nline two"; got != want {
		t.Fatalf("text() = %q, want %q", got, want)
	}
}

func TestMessageContentSummaryTruncates(t *testing.T) {
	c := NewTextContent("abcdefghij")
	if got, want := c.Summary(5), "ab..."; got != want {
		t.Fatalf("Summary(5) = %q, want %q", got, want)
	}
	if got, want := c.Summary(100), "abcdefghij"; got != want {
		t.Fatalf("Summary(100) = %q, want %q", got, want)
	}
}

func TestMessageContentSummaryIncludesToolMarkers(t *testing.T) {
	c := NewBlockContent([]ContentBlock{
		{Type: ContentBlockToolUse, Name: "Read"},
		{Type: ContentBlockToolResult, Content: "file contents here"},
		{Type: ContentBlockThinking, Thinking: "skipped"},
	})
	summary := c.Summary(200)
	if want := "[tool: Read]"; !contains(summary, want) {
		t.Fatalf("summary %q missing %q", summary, want)
	}
	if contains(summary, "skipped") {
		t.Fatalf("summary %q should not include thinking content", summary)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}

func TestMessageContentUnmarshalRejectsGarbage(t *testing.T) {
	var out MessageContent
	if err := json.Unmarshal([]byte(`42`), &out); err == nil {
		t.Fatal("expected error for non-string/array content")
	}
}

func TestContentBlockUnrecognizedTypeRoundTrips(t *testing.T) {
	var b ContentBlock
	raw := []byte(`{"type":"image","source":{"type":"base64","data":"xyz"}}`)
	if err := json.Unmarshal(raw, &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Type != ContentBlockUnknown {
		t.Fatalf("expected ContentBlockUnknown, got %q", b.Type)
	}
	if b.RawType != "image" {
		t.Fatalf("expected RawType %q, got %q", "image", b.RawType)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("expected lossless round trip, got %s, want %s", out, raw)
	}
}

func TestMessageContentBlocksSurviveUnrecognizedSibling(t *testing.T) {
	raw := []byte(`[{"type":"text","text":"hi"},{"type":"image","source":{}},{"type":"text","text":"bye"}]`)
	var out MessageContent
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.IsBlocks() || len(out.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %+v", out)
	}
	if out.Blocks[1].Type != ContentBlockUnknown {
		t.Fatalf("expected the unrecognized block to be preserved as unknown, got %+v", out.Blocks[1])
	}
	if got, want := out.ExtractText(), "hi\nbye"; got != want {
		t.Fatalf("ExtractText() = %q, want %q", got, want)
	}
}
