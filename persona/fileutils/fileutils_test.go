package fileutils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteJSONFileAtomic_RoundTripsThroughReadJSONFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "record.json")

	type record struct {
		ID    string   `json:"id"`
		Likes []string `json:"likes"`
	}
	if err := WriteJSONFileAtomic(path, record{ID: "a", Likes: []string{"AI"}}, true); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(b), "}\n") {
		t.Fatalf("file should end with a newline, got %q", string(b))
	}
	if !strings.Contains(string(b), "\n  \"id\"") {
		t.Fatalf("pretty output not indented: %q", string(b))
	}

	got, err := ReadJSONFile[record](path)
	if err != nil {
		t.Fatalf("ReadJSONFile: %v", err)
	}
	if got.ID != "a" || len(got.Likes) != 1 || got.Likes[0] != "AI" {
		t.Fatalf("got=%+v", got)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(entries))
	}
}

func TestWriteFileAtomicSameDir_DoesNotDoubleNewline(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.md")
	if err := WriteFileAtomicSameDir(path, []byte("# Profile\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "# Profile\n" {
		t.Fatalf("content=%q", string(b))
	}
}

func TestListJSONFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.JSON", "notes.txt", ".tmp_persona_1"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListJSONFiles(dir)
	if err != nil {
		t.Fatalf("ListJSONFiles: %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "a.JSON" || filepath.Base(got[1]) != "b.json" {
		t.Fatalf("got=%v", got)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	type out struct {
		Name string `json:"name"`
	}

	var v out
	if err := DecodeModelJSON("```json\n{\"name\":\"Alex\"}\n```", &v); err != nil {
		t.Fatalf("fenced: %v", err)
	}
	if v.Name != "Alex" {
		t.Fatalf("name=%q, want Alex", v.Name)
	}

	if err := DecodeModelJSON("   ", &v); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("blank err=%v, want io.ErrUnexpectedEOF", err)
	}
	if err := DecodeModelJSON("no json here", &v); err == nil {
		t.Fatalf("expected error for text without JSON")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  héllo  ", 10); got != "héllo" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("工作项目", 2); got != "工作…" {
		t.Fatalf("got=%q", got)
	}
}
