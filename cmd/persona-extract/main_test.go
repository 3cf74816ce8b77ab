package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/persona-pack/persona"
	"github.com/theimaginaryfoundation/persona-pack/persona/fileutils"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("persona-extract", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Model == "" || cfg.OutDir == "" {
		t.Fatalf("expected default model and out dir: %+v", cfg)
	}
	if cfg.MaxChunkChars != persona.DefaultMaxChunkChars || cfg.MaxChunks != persona.DefaultMaxChunks {
		t.Fatalf("chunk limits=%d/%d", cfg.MaxChunkChars, cfg.MaxChunks)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "-in") {
		t.Fatalf("Validate err=%v, want missing -in", err)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("persona-extract", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "a.zip, b.json",
		"-out", "out/",
		"-format", "Claude",
		"-max-chunks", "0",
		"-call-timeout", "30s",
		"-log-level", "DEBUG",
		"c.txt",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if got := strings.Join(cfg.Inputs, ","); got != "a.zip,b.json,c.txt" {
		t.Fatalf("Inputs=%q", got)
	}
	if cfg.OutDir != "out" || cfg.Format != "claude" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.MaxChunks != 0 || cfg.CallTimeout != 30*time.Second {
		t.Fatalf("max-chunks=%d call-timeout=%s", cfg.MaxChunks, cfg.CallTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseFlags_ConfigFileUnderExplicitFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")
	yml := "in: [export.zip]\nmodel: gpt-5\nconcurrency: 8\ncall_timeout: 2m\nout: from-file\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fs := flag.NewFlagSet("persona-extract", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{"-config", path, "-out", "from-flag"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Model != "gpt-5" || cfg.Concurrency != 8 || cfg.CallTimeout != 2*time.Minute {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.OutDir != "from-flag" {
		t.Fatalf("OutDir=%q, want the flag to win", cfg.OutDir)
	}
	if len(cfg.Inputs) != 1 || cfg.Inputs[0] != "export.zip" {
		t.Fatalf("Inputs=%v", cfg.Inputs)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("ConfigPath=%q", cfg.ConfigPath)
	}
}

func TestParseFlags_ConfigFileUnknownKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("modle: typo\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fs := flag.NewFlagSet("persona-extract", flag.ContinueOnError)
	if _, err := parseFlags(fs, []string{"-config=" + path}); err == nil {
		t.Fatalf("expected error for unknown config key")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	base.Inputs = []string{"x.zip"}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "bard" }},
		{"zero chunk chars", func(c *Config) { c.MaxChunkChars = 0 }},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }},
		{"zero timeout", func(c *Config) { c.CallTimeout = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"no model", func(c *Config) { c.Model = "" }},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base Validate: %v", err)
	}
	for _, tc := range cases {
		c := base
		tc.mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestReadInputs_WalksDirectoriesWithRelativeNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "My Activity", "Gemini Apps")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "MyActivity.json"), []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	single := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(single, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := readInputs([]string{dir, single})
	if err != nil {
		t.Fatalf("readInputs: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%d, want 2", len(files))
	}
	if files[0].Name != "My Activity/Gemini Apps/MyActivity.json" || files[1].Name != "notes.txt" {
		t.Fatalf("names=%q,%q", files[0].Name, files[1].Name)
	}
	if persona.DetectFormat(files[:1]) != persona.FormatGemini {
		t.Fatalf("relative path should keep the gemini layout detectable")
	}

	if _, err := readInputs([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestWriteOutputs(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.OutDir = t.TempDir()

	res := persona.Result{Format: persona.FormatChatGPT, Profile: persona.Empty()}
	res.Profile.Skills = []string{"Go"}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := writeOutputs(cfg, res, "export.zip", now)
	if err != nil {
		t.Fatalf("writeOutputs: %v", err)
	}

	got, err := fileutils.ReadJSONFile[persona.Result](filepath.Join(cfg.OutDir, "profile.json"))
	if err != nil {
		t.Fatalf("read profile.json: %v", err)
	}
	if got.Format != persona.FormatChatGPT || len(got.Profile.Skills) != 1 {
		t.Fatalf("profile.json=%+v", got)
	}

	md, err := os.ReadFile(filepath.Join(cfg.OutDir, "profile.md"))
	if err != nil {
		t.Fatalf("read profile.md: %v", err)
	}
	if !strings.Contains(string(md), "## Skills") {
		t.Fatalf("profile.md=%q", md)
	}

	saved, err := fileutils.ReadJSONFile[persona.SessionRecord](filepath.Join(cfg.OutDir, "sessions", rec.ID+".json"))
	if err != nil {
		t.Fatalf("read session record: %v", err)
	}
	if saved.Filename != "export.zip" || !saved.CapturedAt.Equal(now) || saved.Provider != persona.FormatChatGPT {
		t.Fatalf("record=%+v", saved)
	}
}

func TestUploadName(t *testing.T) {
	t.Parallel()

	if got := uploadName([]string{"dir/export.zip"}); got != "export.zip" {
		t.Fatalf("got %q", got)
	}
	if got := uploadName([]string{"a.json", "b.json", "c.json"}); got != "a.json (+2 more)" {
		t.Fatalf("got %q", got)
	}
}
