package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/theimaginaryfoundation/persona-pack/persona"
	"github.com/theimaginaryfoundation/persona-pack/persona/fileutils"
	"github.com/theimaginaryfoundation/persona-pack/persona/provider"
)

func main() {
	// A missing .env is fine; the environment may already carry the key.
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	logger := newLogger(os.Stderr, cfg.LogLevel)

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	profilePath := filepath.Join(cfg.OutDir, "profile.json")
	if !cfg.Overwrite && fileutils.FileExists(profilePath) {
		fmt.Fprintf(os.Stderr, "%s already exists (pass -overwrite to replace it)\n", profilePath)
		os.Exit(2)
	}

	files, err := readInputs(cfg.Inputs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := openai.NewClient(option.WithAPIKey(apiKey))
	completer := provider.NewOpenAICompleter(&client, cfg.Model, provider.WithServiceTier(cfg.ServiceTier))
	pipeline := &persona.Pipeline{
		Extractor: persona.NewExtractor(completer, logger,
			persona.WithCallTimeout(cfg.CallTimeout),
			persona.WithMaxOutputTokens(cfg.MaxOutputTokens),
		),
		Limits: persona.Limits{
			MaxChunkChars: cfg.MaxChunkChars,
			MaxChunks:     cfg.MaxChunks,
			Concurrency:   cfg.Concurrency,
		},
		Logger: logger,
		Format: persona.Format(cfg.Format),
	}

	start := time.Now()
	fmt.Fprintf(os.Stderr, "progress files=%d model=%s\n", len(files), cfg.Model)

	res, err := pipeline.Run(ctx, files)
	if errors.Is(err, persona.ErrNoContent) {
		fmt.Fprintf(os.Stderr, "no chat content found in the upload (format=%s)\n", res.Format)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	rec, err := writeOutputs(cfg, res, uploadName(cfg.Inputs), time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr,
		"progress done format=%s chunks=%d/%d passes=%d/%d completeness=%.2f elapsed=%s\n",
		res.Format, res.Stats.ChunksUsed, res.Stats.ChunksTotal,
		res.Stats.PassesSucceeded, res.Stats.PassesAttempted,
		persona.Completeness(res.Profile), time.Since(start).Round(time.Millisecond),
	)
	if res.Coverage.Truncated {
		fmt.Fprintf(os.Stderr, "warning: only %d of %d transcript chars were analysed (raise -max-chunks to cover more)\n",
			res.Coverage.CoveredChars, res.Coverage.TotalChars)
	}
	fmt.Fprintln(os.Stdout, rec.ID)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	if path := configPathFromArgs(args); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML config file; explicit flags override its values")
	fs.Var(&listFlag{values: &cfg.Inputs}, "in", "Export files or directories, comma separated (zip archives are expanded); trailing arguments are added too")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for profile.json and profile.md")
	fs.StringVar(&cfg.SessionsDir, "sessions", cfg.SessionsDir, "Directory for session records (default: <out>/sessions)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Overwrite an existing profile in -out")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Pretty-print JSON outputs")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use (e.g. gpt-5-mini)")
	fs.StringVar(&cfg.ServiceTier, "service-tier", cfg.ServiceTier, "Optional Responses API service tier (e.g. flex)")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "Timeout for each extraction call")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "Max output tokens per extraction call")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Force the export format: chatgpt|claude|gemini|plaintext (default: detect)")
	fs.IntVar(&cfg.MaxChunkChars, "max-chunk-chars", cfg.MaxChunkChars, "Max characters per transcript chunk")
	fs.IntVar(&cfg.MaxChunks, "max-chunks", cfg.MaxChunks, "Max chunks sent for extraction (0 = all)")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Chunks extracted in parallel")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Inputs = append(cfg.Inputs, fs.Args()...)
	for i, in := range cfg.Inputs {
		cfg.Inputs[i] = filepath.Clean(in)
	}
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	if cfg.SessionsDir != "" {
		cfg.SessionsDir = filepath.Clean(cfg.SessionsDir)
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// readInputs loads every input path. Directories are walked and their files named relative
// to the directory, so archive-style layouts (e.g. "My Activity/Gemini Apps/...") survive.
func readInputs(paths []string) ([]persona.File, error) {
	var files []persona.File
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat -in: %w", err)
		}
		if !fi.IsDir() {
			b, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read -in: %w", err)
			}
			files = append(files, persona.File{Name: filepath.Base(p), Data: b})
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if strings.HasPrefix(d.Name(), ".") && path != p {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(p, path)
			if err != nil {
				return err
			}
			files = append(files, persona.File{Name: filepath.ToSlash(rel), Data: b})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk -in %s: %w", p, err)
		}
	}
	return files, nil
}

// uploadName is the filename recorded on the session: the input's base name, or a summary
// when several inputs were given.
func uploadName(paths []string) string {
	switch len(paths) {
	case 0:
		return ""
	case 1:
		return filepath.Base(paths[0])
	default:
		return fmt.Sprintf("%s (+%d more)", filepath.Base(paths[0]), len(paths)-1)
	}
}

// writeOutputs stores the run result as profile.json and profile.md in -out and appends a
// session record for later history merges.
func writeOutputs(cfg Config, res persona.Result, filename string, now time.Time) (persona.SessionRecord, error) {
	rec := persona.NewSessionRecord(res, filename, now)

	if err := fileutils.WriteJSONFileAtomic(filepath.Join(cfg.OutDir, "profile.json"), res, cfg.Pretty); err != nil {
		return rec, fmt.Errorf("write profile.json: %w", err)
	}
	md := []byte(persona.RenderText(res.Profile))
	if err := fileutils.WriteFileAtomicSameDir(filepath.Join(cfg.OutDir, "profile.md"), md, 0o644); err != nil {
		return rec, fmt.Errorf("write profile.md: %w", err)
	}
	recPath := filepath.Join(cfg.sessionsDir(), rec.ID+".json")
	if err := fileutils.WriteJSONFileAtomic(recPath, rec, cfg.Pretty); err != nil {
		return rec, fmt.Errorf("write session record: %w", err)
	}
	return rec, nil
}
