package persona

import "testing"

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		files func(t *testing.T) []File
		want  Format
	}{
		{
			name:  "no files",
			files: func(*testing.T) []File { return nil },
			want:  FormatUnknown,
		},
		{
			name: "binary only",
			files: func(*testing.T) []File {
				return []File{{Name: "photo.bin", Data: []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0xfe}}}
			},
			want: FormatUnknown,
		},
		{
			name: "chatgpt zip",
			files: func(t *testing.T) []File {
				return []File{{Name: "export.zip", Data: zipFiles(t, map[string]string{
					"conversations.json": chatgptExport,
					"user.json":          `{"id":"u"}`,
				})}}
			},
			want: FormatChatGPT,
		},
		{
			name: "claude zip with conversations.json name",
			files: func(t *testing.T) []File {
				return []File{{Name: "data.zip", Data: zipFiles(t, map[string]string{
					"conversations.json": claudeExport,
					"users.json":         `[{"uuid":"u"}]`,
				})}}
			},
			want: FormatClaude,
		},
		{
			name: "gemini takeout zip",
			files: func(t *testing.T) []File {
				return []File{{Name: "takeout.zip", Data: zipFiles(t, map[string]string{
					"Takeout/My Activity/Gemini Apps/MyActivity.json": geminiTakeout,
				})}}
			},
			want: FormatGemini,
		},
		{
			name: "archive content beats loose file name",
			files: func(t *testing.T) []File {
				return []File{
					{Name: "conversations.json", Data: []byte(`[{"title":"x"}]`)},
					{Name: "claude.zip", Data: zipFiles(t, map[string]string{"conversations.json": claudeExport})},
				}
			},
			want: FormatClaude,
		},
		{
			name: "claude sibling files without content markers",
			files: func(t *testing.T) []File {
				return []File{{Name: "claude.zip", Data: zipFiles(t, map[string]string{
					"projects.json": `[]`,
					"notes.txt":     "hello",
				})}}
			},
			want: FormatClaude,
		},
		{
			name: "loose gemini conversation json",
			files: func(*testing.T) []File {
				return []File{{Name: "gemini.json", Data: []byte(geminiConversations)}}
			},
			want: FormatGemini,
		},
		{
			name: "file name heuristic",
			files: func(*testing.T) []File {
				return []File{{Name: "MyActivity.json", Data: []byte(`[]`)}}
			},
			want: FormatGemini,
		},
		{
			name: "plain text",
			files: func(*testing.T) []File {
				return []File{{Name: "notes", Data: []byte("I am a librarian in Ohio.")}}
			},
			want: FormatPlaintext,
		},
		{
			name: "binary named json",
			files: func(*testing.T) []File {
				return []File{{Name: "blob.json", Data: []byte{0x00, 0x01, 0xff, 0xfe, 0x89, 'P', 'N', 'G'}}}
			},
			want: FormatUnknown,
		},
		{
			name: "control bytes without extension",
			files: func(*testing.T) []File {
				return []File{{Name: "dump", Data: []byte("\x01\x02\x03\x04ab")}}
			},
			want: FormatUnknown,
		},
		{
			name: "broken zip falls back to nothing",
			files: func(*testing.T) []File {
				return []File{{Name: "broken.zip", Data: []byte("PK\x03\x04garbage")}}
			},
			want: FormatUnknown,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectFormat(tc.files(t)); got != tc.want {
				t.Fatalf("DetectFormat=%q, want %q", got, tc.want)
			}
		})
	}
}
