package persona

import "strings"

// Merge folds extraction fragments into one canonical profile.
//
// Fragments must be supplied in chunk order. Scalars keep the first non-blank value seen;
// later values for the same field are ignored. Collections are unioned, trimmed and deduped
// case-insensitively, keeping the first-seen wording. An empty input yields Empty().
func Merge(fragments []Profile) Profile {
	out := Empty()
	sets := newProfileSets()
	for _, f := range fragments {
		keepFirst(&out.Basic.Name, f.Basic.Name)
		keepFirst(&out.Basic.AgeRange, f.Basic.AgeRange)
		keepFirst(&out.Basic.Location, f.Basic.Location)
		keepFirst(&out.Preferences.Tone, f.Preferences.Tone)
		sets.add(&out, f)
	}
	return out
}

// Normalize trims, drops blanks and dedupes a single profile. It is Merge of one fragment.
func Normalize(p Profile) Profile {
	return Merge([]Profile{p})
}

// profileSets tracks the normalized keys already present in each collection field.
type profileSets struct {
	likes        map[string]struct{}
	dislikes     map[string]struct{}
	roles        map[string]struct{}
	industries   map[string]struct{}
	currentFocus map[string]struct{}
	shortTerm    map[string]struct{}
	longTerm     map[string]struct{}
	constraints  map[string]struct{}
	skills       map[string]struct{}
	commStyle    map[string]struct{}
}

func newProfileSets() *profileSets {
	return &profileSets{
		likes:        map[string]struct{}{},
		dislikes:     map[string]struct{}{},
		roles:        map[string]struct{}{},
		industries:   map[string]struct{}{},
		currentFocus: map[string]struct{}{},
		shortTerm:    map[string]struct{}{},
		longTerm:     map[string]struct{}{},
		constraints:  map[string]struct{}{},
		skills:       map[string]struct{}{},
		commStyle:    map[string]struct{}{},
	}
}

func (s *profileSets) add(dst *Profile, src Profile) {
	dst.Preferences.Likes = unionInto(dst.Preferences.Likes, s.likes, src.Preferences.Likes)
	dst.Preferences.Dislikes = unionInto(dst.Preferences.Dislikes, s.dislikes, src.Preferences.Dislikes)
	dst.Work.Roles = unionInto(dst.Work.Roles, s.roles, src.Work.Roles)
	dst.Work.Industries = unionInto(dst.Work.Industries, s.industries, src.Work.Industries)
	dst.Work.CurrentFocus = unionInto(dst.Work.CurrentFocus, s.currentFocus, src.Work.CurrentFocus)
	dst.Goals.ShortTerm = unionInto(dst.Goals.ShortTerm, s.shortTerm, src.Goals.ShortTerm)
	dst.Goals.LongTerm = unionInto(dst.Goals.LongTerm, s.longTerm, src.Goals.LongTerm)
	dst.Constraints = unionInto(dst.Constraints, s.constraints, src.Constraints)
	dst.Skills = unionInto(dst.Skills, s.skills, src.Skills)
	dst.CommunicationStyle = unionInto(dst.CommunicationStyle, s.commStyle, src.CommunicationStyle)
}

// unionInto appends the entries of in that are not yet in seen.
func unionInto(dst []string, seen map[string]struct{}, in []string) []string {
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := normalizeKey(v)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

func keepFirst(dst **string, v *string) {
	if *dst != nil {
		return
	}
	if s, ok := nonBlank(v); ok {
		*dst = strPtr(s)
	}
}

func overwrite(dst **string, v *string) {
	if s, ok := nonBlank(v); ok {
		*dst = strPtr(s)
	}
}

func nonBlank(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.TrimSpace(*v)
	return s, s != ""
}

func normalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToLower(s)
}
