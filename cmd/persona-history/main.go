package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/persona-pack/persona"
	"github.com/theimaginaryfoundation/persona-pack/persona/fileutils"
)

// historyOutput is the JSON document written by a merge.
type historyOutput struct {
	Summary persona.HistorySummary `json:"summary"`
	Profile persona.Profile        `json:"profile"`
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sessions, err := loadSessions(cfg.InDir, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if cfg.List {
		listSessions(os.Stdout, sessions)
		return
	}

	for _, id := range missingIDs(sessions, cfg.IDs) {
		logger.Warn("selected session not found", "id", id)
	}
	profile, summary := persona.MergeSessions(sessions, cfg.IDs...)
	if summary.Count == 0 {
		fmt.Fprintln(os.Stderr, "no sessions to merge")
		os.Exit(1)
	}

	out, err := render(cfg, profile, summary)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if cfg.OutPath == "" {
		if !strings.HasSuffix(string(out), "\n") {
			out = append(out, '\n')
		}
		_, _ = os.Stdout.Write(out)
		return
	}
	if err := fileutils.WriteFileAtomicSameDir(cfg.OutPath, out, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("write -out: %w", err).Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "progress merged sessions=%d providers=%v -> %s\n", summary.Count, summary.Providers, cfg.OutPath)
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var ids string
	fs.StringVar(&cfg.InDir, "in", cfg.InDir, "Directory of session records written by persona-extract")
	fs.StringVar(&ids, "ids", "", "Comma separated session IDs to merge (default: all)")
	fs.StringVar(&cfg.OutPath, "out", "", "Output file (default: stdout)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print JSON output")
	fs.BoolVar(&cfg.Text, "text", false, "Write the merged profile as markdown instead of JSON")
	fs.BoolVar(&cfg.List, "list", false, "List the recorded sessions and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.IDs = append(cfg.IDs, id)
		}
	}
	cfg.InDir = filepath.Clean(cfg.InDir)
	if cfg.OutPath != "" {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	return cfg, nil
}

// loadSessions reads every session record in dir. Unreadable or ID-less files are logged
// and skipped.
func loadSessions(dir string, logger *slog.Logger) ([]persona.SessionRecord, error) {
	paths, err := fileutils.ListJSONFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list -in: %w", err)
	}
	sessions := make([]persona.SessionRecord, 0, len(paths))
	for _, p := range paths {
		rec, err := fileutils.ReadJSONFile[persona.SessionRecord](p)
		if err != nil {
			logger.Warn("skipping session record", "path", p, "error", err)
			continue
		}
		if rec.ID == "" {
			logger.Warn("skipping session record without id", "path", p)
			continue
		}
		sessions = append(sessions, rec)
	}
	return sessions, nil
}

func missingIDs(sessions []persona.SessionRecord, ids []string) []string {
	have := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		have[s.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

const listFilenameMaxChars = 40

func listSessions(w io.Writer, sessions []persona.SessionRecord) {
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			s.ID, s.CapturedAt.Format(time.RFC3339), s.Provider,
			persona.Completeness(s.Profile), fileutils.Truncate(s.Filename, listFilenameMaxChars))
	}
}

func render(cfg Config, profile persona.Profile, summary persona.HistorySummary) ([]byte, error) {
	if cfg.Text {
		return []byte(persona.RenderText(profile)), nil
	}
	doc := historyOutput{Summary: summary, Profile: profile}
	if cfg.Pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
