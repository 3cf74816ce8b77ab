package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NoContentSentinel is the transcript Parse returns when no file yielded usable text.
const NoContentSentinel = "[no chat content found in upload]"

// providerParser turns the conversation elements of one export file into conversations.
type providerParser func(ctx context.Context, elems []json.RawMessage, logger *slog.Logger) ([]conversation, error)

// elementParser parses one conversation element. ok is false when the element is valid JSON
// but not a conversation of the provider's shape.
type elementParser func(raw json.RawMessage) (c conversation, ok bool, err error)

var parsers = map[Format]providerParser{
	FormatChatGPT: perElement(parseChatGPTConversation),
	FormatClaude:  perElement(parseClaudeConversation),
	FormatGemini:  parseGemini,
}

func perElement(parse elementParser) providerParser {
	return func(ctx context.Context, elems []json.RawMessage, logger *slog.Logger) ([]conversation, error) {
		convs := make([]conversation, 0, len(elems))
		for i, raw := range elems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c, ok, err := parse(raw)
			if err != nil {
				logger.Warn("skipping malformed conversation", "index", i, "error", err)
				continue
			}
			if ok {
				convs = append(convs, c)
			}
		}
		return convs, nil
	}
}

// Parse reconstructs a plain-text transcript from the uploaded files.
//
// Zip archives are expanded first. The provider parser for format reads every JSON file it
// recognizes; malformed files are logged and skipped. When the provider parser finds no
// conversations at all, or the format has no dedicated parser, every text-like file is
// dumped under a "--- name ---" header instead.
//
// The result is never empty: NoContentSentinel is returned when nothing usable was found.
// The only error is the context's.
func Parse(ctx context.Context, format Format, files []File, logger *slog.Logger) (string, error) {
	logger = orDiscard(logger)
	archived, loose := splitArchives(files, logger)
	all := append(archived, loose...)

	var b strings.Builder
	if parse, ok := parsers[format]; ok {
		n, err := parseProvider(ctx, parse, all, &b, logger)
		if err != nil {
			return "", err
		}
		if n > 0 {
			return b.String(), nil
		}
		logger.Info("no conversations matched provider shape, falling back to generic text", "format", format)
	}

	if err := writeGeneric(ctx, all, &b); err != nil {
		return "", err
	}
	if strings.TrimSpace(b.String()) == "" {
		return NoContentSentinel, nil
	}
	return b.String(), nil
}

func parseProvider(ctx context.Context, parse providerParser, files []File, b *strings.Builder, logger *slog.Logger) (int, error) {
	var convs []conversation
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !looksLikeJSON(f) {
			continue
		}
		flog := logger.With("file", f.Name)
		elems, err := conversationElements(ctx, f.Data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			if errors.Is(err, errNoContainer) {
				flog.Debug("no conversation array in file")
			} else {
				flog.Warn("skipping malformed export file", "error", err)
			}
			continue
		}
		got, err := parse(ctx, elems, flog)
		if err != nil {
			return 0, err
		}
		flog.Debug("parsed export file", "conversations", len(got))
		convs = append(convs, got...)
	}
	return writeTranscript(b, convs), nil
}

func writeGeneric(ctx context.Context, files []File, b *strings.Builder) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !isTextLike(f) {
			continue
		}
		body := genericBody(f)
		if body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(b, "--- %s ---\n%s\n", f.Name, body)
	}
	return nil
}

// genericBody returns a file's text, pretty-printing valid JSON.
func genericBody(f File) string {
	if looksLikeJSON(f) {
		var out bytes.Buffer
		if err := json.Indent(&out, bytes.TrimSpace(f.Data), "", "  "); err == nil {
			return out.String()
		}
	}
	return strings.TrimSpace(normalizeNewlines(string(f.Data)))
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
