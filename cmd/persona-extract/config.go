package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/persona-pack/persona"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Inputs      []string `yaml:"in"`
	OutDir      string   `yaml:"out"`
	SessionsDir string   `yaml:"sessions_dir"`
	Overwrite   bool     `yaml:"overwrite"`
	Pretty      bool     `yaml:"pretty"`

	Model           string        `yaml:"model"`
	ServiceTier     string        `yaml:"service_tier"`
	APIKey          string        `yaml:"api_key"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`

	Format        string `yaml:"format"`
	MaxChunkChars int    `yaml:"max_chunk_chars"`
	MaxChunks     int    `yaml:"max_chunks"`
	Concurrency   int    `yaml:"concurrency"`

	LogLevel   string `yaml:"log_level"`
	ConfigPath string `yaml:"-"`
}

var forcedFormats = map[string]bool{
	string(persona.FormatChatGPT):   true,
	string(persona.FormatClaude):    true,
	string(persona.FormatGemini):    true,
	string(persona.FormatPlaintext): true,
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.Format != "" && !forcedFormats[c.Format] {
		return fmt.Errorf("unknown -format %q (want chatgpt|claude|gemini|plaintext)", c.Format)
	}
	if c.MaxChunkChars <= 0 {
		return errors.New("max-chunk-chars must be > 0")
	}
	if c.MaxChunks < 0 || c.Concurrency < 0 {
		return errors.New("max-chunks/concurrency must be >= 0")
	}
	if c.CallTimeout <= 0 {
		return errors.New("call-timeout must be > 0")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("max-output-tokens must be > 0")
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("unknown -log-level %q", c.LogLevel)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir:          "persona-out",
		Model:           "gpt-5-mini",
		CallTimeout:     persona.DefaultCallTimeout,
		MaxOutputTokens: persona.DefaultMaxOutputTokens,
		MaxChunkChars:   persona.DefaultMaxChunkChars,
		MaxChunks:       persona.DefaultMaxChunks,
		Concurrency:     4,
		LogLevel:        "info",
	}
}

// sessionsDir returns the directory session records are written to (default: <out>/sessions).
func (c Config) sessionsDir() string {
	if c.SessionsDir != "" {
		return c.SessionsDir
	}
	return filepath.Join(c.OutDir, "sessions")
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys absent from the file keep
// their current values.
func loadConfigFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read -config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse -config %s: %w", path, err)
	}
	return nil
}

// configPathFromArgs finds -config in args before flag parsing so the file can supply
// defaults that explicit flags then override.
func configPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return ""
		}
		if !strings.HasPrefix(a, "-") {
			continue
		}
		name := strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// listFlag collects comma separated values. The first use on the command line replaces any
// values loaded from the config file.
type listFlag struct {
	values *[]string
	set    bool
}

func (l *listFlag) String() string {
	if l == nil || l.values == nil {
		return ""
	}
	return strings.Join(*l.values, ",")
}

func (l *listFlag) Set(v string) error {
	if !l.set {
		*l.values = nil
		l.set = true
	}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l.values = append(*l.values, p)
		}
	}
	return nil
}
