package persona

import (
	"encoding/json"
)

type claudeConversation struct {
	UUID         string          `json:"uuid"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	CreatedAt    exportTime      `json:"created_at"`
	UpdatedAt    exportTime      `json:"updated_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
	Messages     []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Sender    string          `json:"sender"`
	Role      string          `json:"role"`
	Text      string          `json:"text"`
	Content   json.RawMessage `json:"content"`
	CreatedAt exportTime      `json:"created_at"`
	Timestamp exportTime      `json:"timestamp"`
}

// parseClaudeConversation handles the account export (chat_messages with sender) and the
// API-style variant (messages with role and content).
func parseClaudeConversation(raw json.RawMessage) (conversation, bool, error) {
	var rc claudeConversation
	if err := json.Unmarshal(raw, &rc); err != nil {
		return conversation{}, false, err
	}
	msgs := rc.ChatMessages
	if len(msgs) == 0 {
		msgs = rc.Messages
	}
	if len(msgs) == 0 {
		return conversation{}, false, nil
	}

	c := conversation{ID: firstNonEmpty(rc.UUID, rc.ID), Title: firstNonEmpty(rc.Name, rc.Title), Created: rc.CreatedAt}
	if !c.Created.Known() {
		c.Created = rc.UpdatedAt
	}
	for _, m := range msgs {
		role := m.Sender
		if role == "" {
			role = m.Role
		}
		// The account export repeats text in content blocks; blocks win when present.
		text := flattenContent(m.Content)
		if text == "" {
			text = m.Text
		}
		ts := m.CreatedAt
		if !ts.Known() {
			ts = m.Timestamp
		}
		c.addMessage(role, text, ts)
	}
	return c, true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
