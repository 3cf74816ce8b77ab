package persona

import (
	"errors"
	"time"
)

// Format identifies the provider family an upload came from.
type Format string

const (
	FormatChatGPT   Format = "chatgpt"
	FormatClaude    Format = "claude"
	FormatGemini    Format = "gemini"
	FormatPlaintext Format = "plaintext"
	FormatUnknown   Format = "unknown"
)

var (
	// ErrNoFiles is returned when an upload contains no files at all.
	ErrNoFiles = errors.New("no files uploaded")

	// ErrNoContent is returned when none of the uploaded files yielded extractable text.
	// A profile that is merely sparse is not an error; see Completeness.
	ErrNoContent = errors.New("no extractable content found in upload")
)

// File is one uploaded file. Zip archives are expanded into their entries before parsing.
type File struct {
	Name string
	Data []byte
}

// Profile is the identity record shared by extraction fragments and canonical profiles.
//
// A nil scalar means "no signal". Collections in a canonical profile are never nil and never
// contain blank or case-insensitively duplicated entries.
type Profile struct {
	Basic              Basic       `json:"basic"`
	Preferences        Preferences `json:"preferences"`
	Work               Work        `json:"work"`
	Goals              Goals       `json:"goals"`
	Constraints        []string    `json:"constraints"`
	Skills             []string    `json:"skills"`
	CommunicationStyle []string    `json:"communication_style"`
}

type Basic struct {
	Name     *string `json:"name" jsonschema_extras:"nullable=true"`
	AgeRange *string `json:"age_range" jsonschema_extras:"nullable=true"`
	Location *string `json:"location" jsonschema_extras:"nullable=true"`
}

type Preferences struct {
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`
	Tone     *string  `json:"tone" jsonschema_extras:"nullable=true"`
}

type Work struct {
	Roles        []string `json:"roles"`
	Industries   []string `json:"industries"`
	CurrentFocus []string `json:"current_focus"`
}

type Goals struct {
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// Empty returns a canonical profile with every field at its empty value.
func Empty() Profile {
	return Profile{
		Preferences:        Preferences{Likes: []string{}, Dislikes: []string{}},
		Work:               Work{Roles: []string{}, Industries: []string{}, CurrentFocus: []string{}},
		Goals:              Goals{ShortTerm: []string{}, LongTerm: []string{}},
		Constraints:        []string{},
		Skills:             []string{},
		CommunicationStyle: []string{},
	}
}

// ExtractionStats reports how much of an upload produced usable fragments.
type ExtractionStats struct {
	ChunksTotal     int `json:"chunks_total"`
	ChunksUsed      int `json:"chunks_used"`
	PassesAttempted int `json:"passes_attempted"`
	PassesSucceeded int `json:"passes_succeeded"`
	SecondaryPasses int `json:"secondary_passes"`
}

// SessionRecord is one upload's canonical profile plus provenance.
type SessionRecord struct {
	ID         string          `json:"id"`
	Provider   Format          `json:"provider"`
	CapturedAt time.Time       `json:"captured_at"`
	Filename   string          `json:"filename,omitempty"`
	Profile    Profile         `json:"profile"`
	Stats      ExtractionStats `json:"stats"`
}

// HistorySummary describes the set of sessions combined by MergeSessions.
type HistorySummary struct {
	Count     int       `json:"count"`
	Providers []Format  `json:"providers"`
	Earliest  time.Time `json:"earliest"`
	Latest    time.Time `json:"latest"`
}

func strPtr(s string) *string {
	return &s
}
