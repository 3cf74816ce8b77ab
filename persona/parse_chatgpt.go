package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type chatgptConversation struct {
	ConversationID string                 `json:"conversation_id"`
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	CreateTime     exportTime             `json:"create_time"`
	UpdateTime     exportTime             `json:"update_time"`
	CurrentNode    string                 `json:"current_node"`
	Mapping        map[string]chatgptNode `json:"mapping"`
	Messages       []chatgptMessage       `json:"messages"`
}

type chatgptNode struct {
	ID       string          `json:"id"`
	Message  *chatgptMessage `json:"message"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
}

type chatgptMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Role       string          `json:"role"`
	CreateTime exportTime      `json:"create_time"`
	Content    json.RawMessage `json:"content"`
	Metadata   map[string]any  `json:"metadata"`
}

// parseChatGPTConversation handles both the mapping tree of current exports and the flat
// messages list of older ones.
func parseChatGPTConversation(raw json.RawMessage) (conversation, bool, error) {
	var rc chatgptConversation
	if err := json.Unmarshal(raw, &rc); err != nil {
		return conversation{}, false, err
	}
	if len(rc.Mapping) == 0 && len(rc.Messages) == 0 {
		return conversation{}, false, nil
	}

	c := conversation{ID: rc.ConversationID, Title: rc.Title, Created: rc.CreateTime}
	if c.ID == "" {
		c.ID = rc.ID
	}
	if !c.Created.Known() {
		c.Created = rc.UpdateTime
	}

	msgs := rc.Messages
	if len(rc.Mapping) > 0 {
		linear, err := linearizeMapping(rc.Mapping, rc.CurrentNode)
		if err != nil {
			return conversation{}, true, fmt.Errorf("linearize messages (id=%q): %w", c.ID, err)
		}
		msgs = linear
	}
	for _, m := range msgs {
		if isHiddenFromConversation(m.Metadata) {
			continue
		}
		role := m.Author.Role
		if role == "" {
			role = m.Role
		}
		c.addMessage(role, flattenContent(m.Content), m.CreateTime)
	}
	return c, true, nil
}

// linearizeMapping walks from the current node (or the newest leaf) back to the root and
// returns the active branch in chronological order. A parent missing from the mapping ends
// the walk there, so a trimmed export keeps the messages it still has.
func linearizeMapping(mapping map[string]chatgptNode, currentNode string) ([]chatgptMessage, error) {
	start := currentNode
	if _, ok := mapping[start]; !ok {
		start = pickNewestLeaf(mapping)
	}
	if start == "" {
		return nil, errors.New("no current_node and no leaf node found")
	}

	visited := make(map[string]struct{}, len(mapping))
	var reversed []chatgptMessage
	for {
		n, ok := mapping[start]
		if !ok {
			break
		}
		if _, ok := visited[start]; ok {
			return nil, fmt.Errorf("cycle detected at node %q", start)
		}
		visited[start] = struct{}{}

		if n.Message != nil {
			reversed = append(reversed, *n.Message)
		}
		if n.Parent == nil || strings.TrimSpace(*n.Parent) == "" {
			break
		}
		start = *n.Parent
	}

	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return reversed, nil
}

func pickNewestLeaf(mapping map[string]chatgptNode) string {
	var (
		bestID   string
		bestTime exportTime
		hasBest  bool
	)
	for id, n := range mapping {
		if len(n.Children) != 0 || n.Message == nil {
			continue
		}
		ct := n.Message.CreateTime
		// Ties broken by id so the choice does not depend on map order.
		if !hasBest || ct > bestTime || (ct == bestTime && id < bestID) {
			bestID, bestTime, hasBest = id, ct, true
		}
	}
	return bestID
}

func isHiddenFromConversation(metadata map[string]any) bool {
	v, ok := metadata["is_visually_hidden_from_conversation"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}
