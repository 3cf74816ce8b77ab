package persona

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// conversation is the provider-neutral shape every parser produces.
type conversation struct {
	ID       string
	Title    string
	Created  exportTime
	Messages []message
}

type message struct {
	Role string // roleUser or roleAssistant
	Text string
	Time exportTime
}

const (
	roleUser      = "user"
	roleAssistant = "assistant"
)

// normalizeRole maps provider role names onto user/assistant. System, tool and unknown
// roles map to "" and are dropped.
func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "human":
		return roleUser
	case "assistant", "model", "bot", "ai", "chatgpt", "claude", "gemini", "bard":
		return roleAssistant
	default:
		return ""
	}
}

// addMessage appends a message if its role is kept and its body is not blank.
func (c *conversation) addMessage(role, text string, ts exportTime) {
	role = normalizeRole(role)
	text = strings.TrimSpace(normalizeNewlines(text))
	if role == "" || text == "" {
		return
	}
	c.Messages = append(c.Messages, message{Role: role, Text: text, Time: ts})
}

// writeTranscript renders conversations in chronological order under "=== title ===" headers.
func writeTranscript(b *strings.Builder, convs []conversation) int {
	sortByTime(convs, func(c conversation) exportTime { return c.Created })

	written := 0
	for i := range convs {
		c := &convs[i]
		if len(c.Messages) == 0 {
			continue
		}
		sortByTime(c.Messages, func(m message) exportTime { return m.Time })

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(b, "=== %s ===\n", conversationLabel(*c, written+1))
		if ts := iso8601(float64(c.Created)); ts != "" {
			fmt.Fprintf(b, "Date: %s\n", ts)
		}
		for _, m := range c.Messages {
			b.WriteString("\n")
			if m.Role == roleUser {
				b.WriteString("User: ")
			} else {
				b.WriteString("Assistant: ")
			}
			b.WriteString(m.Text)
			b.WriteString("\n")
		}
		written++
	}
	return written
}

func conversationLabel(c conversation, n int) string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return fmt.Sprintf("Conversation %d", n)
}

// sortByTime stable-sorts the timestamped elements of s among the slots they occupy.
// Elements without a timestamp keep their archive position.
func sortByTime[T any](s []T, at func(T) exportTime) {
	var (
		slots []int
		timed []T
	)
	for i, v := range s {
		if at(v).Known() {
			slots = append(slots, i)
			timed = append(timed, v)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return at(timed[i]) < at(timed[j]) })
	for k, i := range slots {
		s[i] = timed[k]
	}
}

// flattenContent extracts text from the common body shapes: a string, a list of strings, a
// list of typed blocks, or an object with parts/text.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return flattenList(list)
	}

	var block struct {
		Type  string            `json:"type"`
		Text  *string           `json:"text"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return ""
	}
	switch strings.ToLower(block.Type) {
	case "", "text", "output_text", "input_text", "code", "multimodal_text":
	default:
		// tool_use, image, thinking and similar blocks carry no conversational text.
		return ""
	}
	if len(block.Parts) > 0 {
		return flattenList(block.Parts)
	}
	if block.Text != nil {
		return *block.Text
	}
	return ""
}

func flattenList(list []json.RawMessage) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if t := strings.TrimSpace(flattenContent(item)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
