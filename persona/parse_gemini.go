package persona

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// geminiActivity is one entry of a Takeout "My Activity" export.
type geminiActivity struct {
	Header       string     `json:"header"`
	Title        string     `json:"title"`
	Time         exportTime `json:"time"`
	SafeHTMLItem []struct {
		HTML string `json:"html"`
	} `json:"safeHtmlItem"`
}

type geminiConversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt exportTime      `json:"created_at"`
	Create    exportTime      `json:"create_time"`
	Messages  []geminiMessage `json:"messages"`
	Turns     []geminiMessage `json:"turns"`
}

type geminiMessage struct {
	Role      string          `json:"role"`
	Author    string          `json:"author"`
	Parts     json.RawMessage `json:"parts"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	Timestamp exportTime      `json:"timestamp"`
	Created   exportTime      `json:"create_time"`
}

const promptedPrefix = "Prompted "

// parseGemini folds Takeout activity entries into a single conversation and parses
// conversation-shaped elements individually.
func parseGemini(ctx context.Context, elems []json.RawMessage, logger *slog.Logger) ([]conversation, error) {
	activity := conversation{Title: "Gemini Apps activity"}
	var convs []conversation
	for i, raw := range elems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var probe struct {
			Title    *string         `json:"title"`
			Messages json.RawMessage `json:"messages"`
			Turns    json.RawMessage `json:"turns"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			logger.Warn("skipping malformed gemini element", "index", i, "error", err)
			continue
		}

		if len(probe.Messages) > 0 || len(probe.Turns) > 0 {
			c, ok, err := parseGeminiConversation(raw)
			if err != nil {
				logger.Warn("skipping malformed gemini conversation", "index", i, "error", err)
				continue
			}
			if ok {
				convs = append(convs, c)
			}
			continue
		}
		if probe.Title == nil {
			continue
		}

		var a geminiActivity
		if err := json.Unmarshal(raw, &a); err != nil {
			logger.Warn("skipping malformed gemini activity", "index", i, "error", err)
			continue
		}
		addActivity(&activity, a)
	}

	if len(activity.Messages) > 0 {
		for _, m := range activity.Messages {
			if m.Time.Known() && (!activity.Created.Known() || m.Time < activity.Created) {
				activity.Created = m.Time
			}
		}
		convs = append(convs, activity)
	}
	return convs, nil
}

func addActivity(c *conversation, a geminiActivity) {
	title := strings.TrimSpace(a.Title)
	if !strings.HasPrefix(title, promptedPrefix) {
		// "Used …", "Gave feedback …" and similar entries carry no prompt.
		return
	}
	before := len(c.Messages)
	c.addMessage(roleUser, strings.TrimPrefix(title, promptedPrefix), a.Time)
	if len(c.Messages) == before {
		return
	}
	var replies []string
	for _, item := range a.SafeHTMLItem {
		if t := htmlToText(item.HTML); t != "" {
			replies = append(replies, t)
		}
	}
	c.addMessage(roleAssistant, strings.Join(replies, "\n\n"), a.Time)
}

func parseGeminiConversation(raw json.RawMessage) (conversation, bool, error) {
	var rc geminiConversation
	if err := json.Unmarshal(raw, &rc); err != nil {
		return conversation{}, false, err
	}
	msgs := rc.Messages
	if len(msgs) == 0 {
		msgs = rc.Turns
	}
	if len(msgs) == 0 {
		return conversation{}, false, nil
	}

	c := conversation{ID: rc.ID, Title: rc.Title, Created: rc.CreatedAt}
	if !c.Created.Known() {
		c.Created = rc.Create
	}
	for _, m := range msgs {
		role := firstNonEmpty(m.Role, m.Author)
		text := flattenContent(m.Parts)
		if text == "" {
			text = flattenContent(m.Content)
		}
		if text == "" {
			text = m.Text
		}
		ts := m.Timestamp
		if !ts.Known() {
			ts = m.Created
		}
		c.addMessage(role, text, ts)
	}
	return c, true, nil
}

// blockElements end a line when converting HTML to text.
var blockElements = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "ul": true, "ol": true, "table": true,
}

// htmlToText strips markup from a Takeout HTML fragment, keeping block boundaries as newlines.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseBlankLines(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
				continue
			}
			if blockElements[tag] {
				b.WriteString("\n")
			}
			if tag == "li" {
				b.WriteString("- ")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if blockElements[tag] {
				b.WriteString("\n")
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
