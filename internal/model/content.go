package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageContent is either plain text or an ordered list of content blocks.
// On the wire it is untagged: a JSON string for Text, a JSON array for Blocks.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
}

// IsBlocks reports whether this content is the block-list form.
func (c MessageContent) IsBlocks() bool {
	return c.Blocks != nil
}

// NewTextContent builds plain-text content.
func NewTextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

// NewBlockContent builds block-list content.
func NewBlockContent(blocks []ContentBlock) MessageContent {
	return MessageContent{Blocks: blocks}
}

// Text returns the full text content, excluding tool-use, tool-result and
// thinking blocks. Used by FTS indexing and summaries.
func (c MessageContent) text() string {
	if !c.IsBlocks() {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == ContentBlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ExtractText is the exported form of text(), used outside the package.
func (c MessageContent) ExtractText() string {
	return c.text()
}

// Summary returns a display-oriented rendering up to maxLen runes, including
// tool-use and tool-result markers but excluding thinking blocks.
func (c MessageContent) Summary(maxLen int) string {
	var text string
	if !c.IsBlocks() {
		text = c.Text
	} else {
		var parts []string
		for _, b := range c.Blocks {
			switch b.Type {
			case ContentBlockText:
				parts = append(parts, b.Text)
			case ContentBlockToolUse:
				parts = append(parts, fmt.Sprintf("[tool: %s]", b.Name))
			case ContentBlockToolResult:
				snippet := b.Content
				r := []rune(snippet)
				if len(r) > 50 {
					snippet = string(r[:50])
				}
				parts = append(parts, fmt.Sprintf("[result: %s...]", snippet))
			case ContentBlockThinking:
				// thinking is excluded from summaries
			}
		}
		text = strings.Join(parts, " ")
	}

	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	if maxLen < 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// MarshalJSON renders Text content as a bare JSON string and Blocks content
// as a JSON array, matching the untagged wire representation.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsBlocks() {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either a JSON string (-> Text) or a JSON array of
// content blocks (-> Blocks), mirroring the source format's untagged enum.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		return fmt.Errorf("model: empty message content")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("model: unmarshal text content: %w", err)
		}
		*c = MessageContent{Text: s}
		return nil
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(data, &blocks); err != nil {
			return fmt.Errorf("model: unmarshal block content: %w", err)
		}
		*c = MessageContent{Blocks: blocks}
		return nil
	default:
		n := len(trimmed)
		if n > 20 {
			n = 20
		}
		return fmt.Errorf("model: message content must be a string or array, got %q", trimmed[:n])
	}
}

// ContentBlockType discriminates the tagged union of ContentBlock.
type ContentBlockType string

const (
	ContentBlockText       ContentBlockType = "text"
	ContentBlockThinking   ContentBlockType = "thinking"
	ContentBlockToolUse    ContentBlockType = "tool_use"
	ContentBlockToolResult ContentBlockType = "tool_result"

	// ContentBlockUnknown marks a block whose "type" this code doesn't
	// recognize. It preserves the original wire form so a transcript
	// written by a newer tool version round-trips instead of failing to
	// parse entirely.
	ContentBlockUnknown ContentBlockType = "unknown"
)

// ContentBlock is one block within block-form message content. Only the
// fields relevant to Type are populated; the rest are zero values.
type ContentBlock struct {
	Type ContentBlockType

	// Text / Thinking
	Text     string
	Thinking string

	// ToolUse
	ToolUseID string
	Name      string
	Input     json.RawMessage

	// ToolResult
	ToolUseResultID string
	Content         string
	IsError         bool

	// Unknown: RawType carries the original "type" value and Raw the
	// full original JSON object, so MarshalJSON can emit it unchanged.
	RawType string
	Raw     json.RawMessage
}

type contentBlockWire struct {
	Type      ContentBlockType `json:"type"`
	Text      string           `json:"text,omitempty"`
	Thinking  string           `json:"thinking,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     json.RawMessage  `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   string           `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
}

// MarshalJSON renders the block as `{"type": ..., <type-specific fields>}`.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	w := contentBlockWire{Type: b.Type}
	switch b.Type {
	case ContentBlockText:
		w.Text = b.Text
	case ContentBlockThinking:
		w.Thinking = b.Thinking
	case ContentBlockToolUse:
		w.ID = b.ToolUseID
		w.Name = b.Name
		w.Input = b.Input
	case ContentBlockToolResult:
		w.ToolUseID = b.ToolUseResultID
		w.Content = b.Content
		w.IsError = b.IsError
	default:
		// Unknown block types round-trip via their preserved raw JSON
		// rather than being reconstructed field-by-field.
		if b.Raw != nil {
			return b.Raw, nil
		}
		w.Type = ContentBlockType(b.RawType)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a tagged content block from its `type` field.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var w contentBlockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("model: unmarshal content block: %w", err)
	}

	switch w.Type {
	case ContentBlockText:
		*b = ContentBlock{Type: ContentBlockText, Text: w.Text}
	case ContentBlockThinking:
		*b = ContentBlock{Type: ContentBlockThinking, Thinking: w.Thinking}
	case ContentBlockToolUse:
		*b = ContentBlock{Type: ContentBlockToolUse, ToolUseID: w.ID, Name: w.Name, Input: w.Input}
	case ContentBlockToolResult:
		*b = ContentBlock{Type: ContentBlockToolResult, ToolUseResultID: w.ToolUseID, Content: w.Content, IsError: w.IsError}
	default:
		// Forward compatibility: a block type this code doesn't recognize
		// yet is kept as-is, with its raw JSON preserved, rather than
		// failing to parse the whole message.
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*b = ContentBlock{Type: ContentBlockUnknown, RawType: string(w.Type), Raw: raw}
	}
	return nil
}
