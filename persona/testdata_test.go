package persona

import (
	"archive/zip"
	"bytes"
	"testing"
)

const chatgptExport = `[
  {
    "id": "conv-2",
    "title": "Launch planning",
    "create_time": 1700000500.5,
    "current_node": "n3",
    "mapping": {
      "root": {"id": "root", "message": null, "parent": null, "children": ["n0"]},
      "n0": {"id": "n0", "parent": "root", "children": ["n1"], "message": {
        "author": {"role": "system"}, "content": {"content_type": "text", "parts": [""]},
        "metadata": {"is_visually_hidden_from_conversation": true}}},
      "n1": {"id": "n1", "parent": "n0", "children": ["n2", "n2b"], "message": {
        "author": {"role": "user"}, "create_time": 1700000501,
        "content": {"content_type": "text", "parts": ["I run a small startup in Lisbon."]}}},
      "n2b": {"id": "n2b", "parent": "n1", "children": [], "message": {
        "author": {"role": "assistant"}, "create_time": 1700000502,
        "content": {"content_type": "text", "parts": ["abandoned branch"]}}},
      "n2": {"id": "n2", "parent": "n1", "children": ["n3"], "message": {
        "author": {"role": "tool"}, "create_time": 1700000503,
        "content": {"content_type": "text", "parts": ["tool noise"]}}},
      "n3": {"id": "n3", "parent": "n2", "children": [], "message": {
        "author": {"role": "assistant"}, "create_time": 1700000504,
        "content": {"content_type": "text", "parts": ["Sounds exciting.", "Tell me more."]}}}
    }
  },
  {
    "id": "conv-1",
    "title": "",
    "create_time": 1700000000,
    "messages": [
      {"author": {"role": "user"}, "content": {"parts": ["Call me Alex."]}},
      {"role": "assistant", "content": "Hello Alex!"}
    ]
  }
]`

const claudeExport = `[
  {
    "uuid": "c-1",
    "name": "Trip ideas",
    "created_at": "2024-04-02T09:00:00Z",
    "chat_messages": [
      {"sender": "human", "text": "I love hiking.", "content": [{"type": "text", "text": "I love hiking."}], "created_at": "2024-04-02T09:00:01Z"},
      {"sender": "assistant", "text": "", "content": [{"type": "tool_use", "name": "search"}, {"type": "text", "text": "Try the Alps."}], "created_at": "2024-04-02T09:00:02Z"}
    ]
  },
  {
    "id": "c-0",
    "title": "API style",
    "created_at": "2024-01-01T00:00:00Z",
    "messages": [
      {"role": "user", "content": "I prefer short answers."},
      {"role": "system", "content": "ignored"},
      {"role": "assistant", "content": [{"type": "text", "text": "Noted."}]}
    ]
  }
]`

const geminiTakeout = `[
  {
    "header": "Gemini Apps",
    "title": "Prompted how do I learn Rust",
    "time": "2024-05-02T10:00:00.000Z",
    "products": ["Gemini Apps"],
    "safeHtmlItem": [{"html": "<p>Start with <b>the book</b>.</p><ul><li>Read</li><li>Practice &amp; repeat</li></ul>"}]
  },
  {
    "header": "Gemini Apps",
    "title": "Used an Assistant feature",
    "time": "2024-05-01T11:00:00.000Z"
  },
  {
    "header": "Gemini Apps",
    "title": "Prompted I am a nurse in Leeds",
    "time": "2024-05-01T10:00:00.000Z",
    "safeHtmlItem": [{"html": "<div>Thanks for sharing!</div>"}]
  }
]`

const geminiConversations = `{"conversations": [
  {"id": "g-1", "title": "Garden", "create_time": "2024-02-01T00:00:00Z", "messages": [
    {"role": "user", "parts": [{"text": "I grow tomatoes."}]},
    {"author": "model", "content": "Nice!"}
  ]}
]}`

func zipFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
