package persona

import (
	"bytes"
	"regexp"
	"strings"
)

// sniffBytes is how much of each file is inspected for structural markers.
const sniffBytes = 64 << 10

type contentMarker struct {
	format Format
	re     *regexp.Regexp
}

// contentMarkers are checked in order; the first match wins.
var contentMarkers = []contentMarker{
	{FormatChatGPT, regexp.MustCompile(`"mapping"\s*:\s*\{`)},
	{FormatChatGPT, regexp.MustCompile(`"current_node"\s*:`)},
	{FormatClaude, regexp.MustCompile(`"chat_messages"\s*:\s*\[`)},
	{FormatClaude, regexp.MustCompile(`"sender"\s*:\s*"(human|assistant)"`)},
	{FormatGemini, regexp.MustCompile(`"header"\s*:\s*"(Gemini Apps|Bard)"`)},
	{FormatGemini, regexp.MustCompile(`"safeHtmlItem"\s*:`)},
	{FormatGemini, regexp.MustCompile(`"(role|author)"\s*:\s*"model"`)},
	{FormatChatGPT, regexp.MustCompile(`"author"\s*:\s*\{\s*"role"`)},
}

// siblingMarkers are export files whose presence alone identifies the provider.
var siblingMarkers = map[string]Format{
	"message_feedback.json":     FormatChatGPT,
	"model_comparisons.json":    FormatChatGPT,
	"shared_conversations.json": FormatChatGPT,
	"chat.html":                 FormatChatGPT,
	"users.json":                FormatClaude,
	"projects.json":             FormatClaude,
}

// DetectFormat guesses the provider family of an upload.
//
// Zip archive contents are examined before loose files, and structural markers in file
// content before file names. Uploads with no recognizable export fall back to
// FormatPlaintext when any text-like file exists and FormatUnknown otherwise. It never fails.
func DetectFormat(files []File) Format {
	archived, loose := splitArchives(files, orDiscard(nil))
	if f := detectByContent(archived); f != "" {
		return f
	}
	if f := detectBySiblings(archived); f != "" {
		return f
	}
	if f := detectByContent(loose); f != "" {
		return f
	}

	all := append(archived, loose...)
	if f := detectByName(all); f != "" {
		return f
	}
	for _, f := range all {
		if isTextLike(f) {
			return FormatPlaintext
		}
	}
	return FormatUnknown
}

func detectByContent(files []File) Format {
	for _, m := range contentMarkers {
		for _, f := range files {
			if !looksLikeJSON(f) {
				continue
			}
			peek := f.Data
			if len(peek) > sniffBytes {
				peek = peek[:sniffBytes]
			}
			if m.re.Match(peek) {
				return m.format
			}
		}
	}
	return ""
}

func detectBySiblings(files []File) Format {
	for _, f := range files {
		if format, ok := siblingMarkers[strings.ToLower(baseName(f.Name))]; ok {
			return format
		}
	}
	return ""
}

func detectByName(files []File) Format {
	for _, f := range files {
		name := strings.ToLower(baseName(f.Name))
		full := strings.ToLower(f.Name)
		switch {
		case name == "myactivity.json" || strings.Contains(full, "gemini apps") || strings.Contains(full, "bard"):
			return FormatGemini
		case name == "conversations.json" && !bytes.Contains(f.Data, []byte(`"chat_messages"`)):
			return FormatChatGPT
		}
	}
	return ""
}
