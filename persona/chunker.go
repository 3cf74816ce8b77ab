package persona

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkChars is the per-chunk character budget used when a caller passes a non-positive one.
const DefaultMaxChunkChars = 8000

// paragraphBackoff is the share of a window a paragraph break must lie beyond to be used as the cut point.
const paragraphBackoff = 0.3

// Coverage reports how much of a transcript ChunkText actually emitted.
type Coverage struct {
	Chunks       int  `json:"chunks"`
	TotalChars   int  `json:"total_chars"`
	CoveredChars int  `json:"covered_chars"`
	Truncated    bool `json:"truncated"`
}

// ChunkText splits a transcript into chunks of at most maxChars characters (runes).
//
// Line endings are normalized and the text is trimmed first. Each window is cut at the last
// blank line inside it when that break lies past 30% of the window, otherwise at the hard
// limit. Chunks that trim to nothing are skipped.
//
// At most maxChunks chunks are returned; the remainder of a longer transcript is dropped
// without error. This is a cost bound, not full coverage: use ChunkCoverage to find out
// whether text was left behind. maxChunks <= 0 disables the cap.
func ChunkText(text string, maxChars, maxChunks int) []string {
	chunks, _ := chunkText(text, maxChars, maxChunks)
	return chunks
}

// ChunkCoverage runs the same split as ChunkText and reports the truncation boundary.
func ChunkCoverage(text string, maxChars, maxChunks int) Coverage {
	_, cov := chunkText(text, maxChars, maxChunks)
	return cov
}

func chunkText(text string, maxChars, maxChunks int) ([]string, Coverage) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	text = strings.TrimSpace(normalizeNewlines(text))
	if text == "" {
		return []string{}, Coverage{}
	}

	runes := []rune(text)
	cov := Coverage{TotalChars: len(runes)}
	if len(runes) <= maxChars {
		cov.Chunks, cov.CoveredChars = 1, len(runes)
		return []string{text}, cov
	}

	minCut := int(float64(maxChars) * paragraphBackoff)
	chunks := make([]string, 0, len(runes)/maxChars+1)
	pos := 0
	for pos < len(runes) {
		if maxChunks > 0 && len(chunks) >= maxChunks {
			break
		}
		end := pos + maxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			window := string(runes[pos:end])
			if i := strings.LastIndex(window, "\n\n"); i >= 0 {
				if cut := utf8.RuneCountInString(window[:i]); cut > minCut {
					end = pos + cut
				}
			}
		}
		if piece := strings.TrimSpace(string(runes[pos:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		pos = end
	}

	cov.Chunks = len(chunks)
	cov.CoveredChars = pos
	cov.Truncated = strings.TrimSpace(string(runes[pos:])) != ""
	return chunks, cov
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
