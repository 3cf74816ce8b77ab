package persona

import (
	"fmt"
	"strings"
)

// profileLeafFields is the number of leaf fields Completeness counts.
const profileLeafFields = 14

// Completeness returns the share of the profile's 14 leaf fields that hold a value, in [0, 1].
// It lets callers tell a sparse profile apart from an upload with no content.
func Completeness(p Profile) float64 {
	filled := 0
	for _, s := range []*string{p.Basic.Name, p.Basic.AgeRange, p.Basic.Location, p.Preferences.Tone} {
		if _, ok := nonBlank(s); ok {
			filled++
		}
	}
	for _, list := range profileLists(p) {
		if hasEntry(list.values) {
			filled++
		}
	}
	return float64(filled) / profileLeafFields
}

type namedList struct {
	label  string
	values []string
}

type section struct {
	title   string
	scalars []namedScalar
	lists   []namedList
}

type namedScalar struct {
	label string
	value *string
}

func profileLists(p Profile) []namedList {
	var out []namedList
	for _, s := range profileSections(p) {
		out = append(out, s.lists...)
	}
	return out
}

func profileSections(p Profile) []section {
	return []section{
		{title: "Basic", scalars: []namedScalar{
			{"Name", p.Basic.Name},
			{"Age range", p.Basic.AgeRange},
			{"Location", p.Basic.Location},
		}},
		{title: "Preferences",
			scalars: []namedScalar{{"Preferred tone", p.Preferences.Tone}},
			lists: []namedList{
				{"Likes", p.Preferences.Likes},
				{"Dislikes", p.Preferences.Dislikes},
			}},
		{title: "Work", lists: []namedList{
			{"Roles", p.Work.Roles},
			{"Industries", p.Work.Industries},
			{"Current focus", p.Work.CurrentFocus},
		}},
		{title: "Goals", lists: []namedList{
			{"Short term", p.Goals.ShortTerm},
			{"Long term", p.Goals.LongTerm},
		}},
		{title: "Constraints", lists: []namedList{{"", p.Constraints}}},
		{title: "Skills", lists: []namedList{{"", p.Skills}}},
		{title: "Communication style", lists: []namedList{{"", p.CommunicationStyle}}},
	}
}

// RenderText renders a profile as markdown for human review and for storage next to the JSON.
// Empty fields and sections are omitted.
func RenderText(p Profile) string {
	var b strings.Builder
	b.WriteString("# Profile\n")

	wrote := false
	for _, s := range profileSections(p) {
		body := renderSection(s)
		if body == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s", s.title, body)
		wrote = true
	}
	if !wrote {
		b.WriteString("\n_No profile information was extracted._\n")
	}
	return b.String()
}

func renderSection(s section) string {
	var b strings.Builder
	for _, sc := range s.scalars {
		if v, ok := nonBlank(sc.value); ok {
			fmt.Fprintf(&b, "- %s: %s\n", sc.label, v)
		}
	}
	for _, l := range s.lists {
		if !hasEntry(l.values) {
			continue
		}
		if l.label == "" {
			for _, v := range l.values {
				if v = strings.TrimSpace(v); v != "" {
					fmt.Fprintf(&b, "- %s\n", v)
				}
			}
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", l.label, strings.Join(trimmedEntries(l.values), "; "))
	}
	return b.String()
}

func hasEntry(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func trimmedEntries(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
