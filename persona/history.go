package persona

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// NewSessionRecord wraps a pipeline result as an export session record captured at now.
func NewSessionRecord(res Result, filename string, now time.Time) SessionRecord {
	return SessionRecord{
		ID:         uuid.NewString(),
		Provider:   res.Format,
		CapturedAt: now.UTC(),
		Filename:   filename,
		Profile:    res.Profile,
		Stats:      res.Stats,
	}
}

// MergeSessions combines export sessions recorded over time into one profile.
//
// When selectedIDs is non-empty only those sessions take part, which is identical to passing
// just that subset. Sessions are applied oldest first and scalar fields are overwritten by
// every non-blank value, so the newest session wins. This is deliberately the opposite of
// Merge, where the first chunk wins. Collections are unioned exactly as in Merge.
func MergeSessions(sessions []SessionRecord, selectedIDs ...string) (Profile, HistorySummary) {
	selected := filterSessions(sessions, selectedIDs)
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].CapturedAt.Before(selected[j].CapturedAt)
	})

	out := Empty()
	sets := newProfileSets()
	summary := HistorySummary{Providers: []Format{}}
	providers := make(map[Format]struct{})

	for i, s := range selected {
		p := s.Profile
		overwrite(&out.Basic.Name, p.Basic.Name)
		overwrite(&out.Basic.AgeRange, p.Basic.AgeRange)
		overwrite(&out.Basic.Location, p.Basic.Location)
		overwrite(&out.Preferences.Tone, p.Preferences.Tone)
		sets.add(&out, p)

		if s.Provider != "" {
			if _, ok := providers[s.Provider]; !ok {
				providers[s.Provider] = struct{}{}
				summary.Providers = append(summary.Providers, s.Provider)
			}
		}
		if i == 0 {
			summary.Earliest = s.CapturedAt
		}
		summary.Latest = s.CapturedAt
	}

	summary.Count = len(selected)
	sort.Slice(summary.Providers, func(i, j int) bool {
		return summary.Providers[i] < summary.Providers[j]
	})
	return out, summary
}

func filterSessions(sessions []SessionRecord, ids []string) []SessionRecord {
	if len(ids) == 0 {
		return append([]SessionRecord(nil), sessions...)
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]SessionRecord, 0, len(ids))
	for _, s := range sessions {
		if _, ok := want[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}
