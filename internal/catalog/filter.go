// Provides the filter half of the listing pipeline.

package catalog

import (
	"slices"
	"strings"
)

// Availability keys.
const (
	AvailableToday        = "today"
	AvailableThisWeek     = "this_week"
	AvailableWeekendsOnly = "weekends_only"
)

// Time slots.
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
	SlotNight     = "night"
)

// Session types.
const (
	SessionOneOnOne = "1-on-1"
	SessionGroup    = "group"
)

var difficulties = []string{"beginner", "intermediate", "advanced"}

// Filter is the set of narrowing criteria. The zero value matches everything.
// Empty fields and unrecognized enum values impose no constraint.
type Filter struct {
	// PriceRange is an inclusive [min, max] bound on price_per_session. It is
	// ignored unless it has exactly two values with min <= max.
	PriceRange []float64 `json:"price_range,omitempty" yaml:"price_range,omitempty"`
	// Languages matches courses teaching any of them.
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	// Subjects matches the subject or the sub-category.
	Subjects []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	// Availability is one of today, this_week or weekends_only.
	Availability string `json:"availability,omitempty" yaml:"availability,omitempty"`
	// TimeSlot is one of morning, afternoon, evening or night.
	TimeSlot string `json:"time_slot,omitempty" yaml:"time_slot,omitempty"`
	// SessionType is 1-on-1 or group.
	SessionType string `json:"session_type,omitempty" yaml:"session_type,omitempty"`
	// GroupSize only applies when SessionType is group.
	GroupSize string `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	// Difficulty is Beginner, Intermediate or Advanced.
	Difficulty string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	// Features matches courses having all of them.
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
	// InstructorTypes only honours its first value.
	InstructorTypes []string `json:"instructor_types,omitempty" yaml:"instructor_types,omitempty"`
	// Search is a case-insensitive substring of the title, short description,
	// subject, a tag or the mentor name.
	Search string `json:"search,omitempty" yaml:"search,omitempty"`
}

// IsZero reports whether f imposes no constraint at all.
func (f *Filter) IsZero() bool {
	return len(f.predicates()) == 0
}

// Match reports whether l passes every active criterion of f.
func (f *Filter) Match(l *Listing) bool {
	for _, p := range f.predicates() {
		if !p(l) {
			return false
		}
	}
	return true
}

// FilterListings returns the listings matching f, in input order.
func FilterListings(listings []Listing, f Filter) []Listing {
	preds := f.predicates()
	out := make([]Listing, 0, len(listings))
next:
	for i := range listings {
		for _, p := range preds {
			if !p(&listings[i]) {
				continue next
			}
		}
		out = append(out, listings[i])
	}
	return out
}

type predicate func(l *Listing) bool

// predicates returns one predicate per active criterion.
func (f *Filter) predicates() []predicate {
	var preds []predicate
	if len(f.PriceRange) == 2 && f.PriceRange[0] <= f.PriceRange[1] {
		lo, hi := f.PriceRange[0], f.PriceRange[1]
		preds = append(preds, func(l *Listing) bool {
			return l.PricePerSession >= lo && l.PricePerSession <= hi
		})
	}
	if langs := lowerSet(f.Languages); len(langs) > 0 {
		preds = append(preds, func(l *Listing) bool {
			return slices.ContainsFunc(l.LanguagesTaught, func(s string) bool { return langs[strings.ToLower(s)] })
		})
	}
	if subjects := lowerSet(f.Subjects); len(subjects) > 0 {
		preds = append(preds, func(l *Listing) bool {
			return subjects[strings.ToLower(l.Subject)] || subjects[strings.ToLower(l.SubCategory)]
		})
	}
	switch strings.ToLower(f.Availability) {
	case AvailableToday:
		preds = append(preds, func(l *Listing) bool { return l.Availability != nil && l.Availability.Today })
	case AvailableThisWeek:
		preds = append(preds, func(l *Listing) bool { return l.Availability != nil && l.Availability.ThisWeek })
	case AvailableWeekendsOnly:
		preds = append(preds, func(l *Listing) bool { return l.Availability != nil && l.Availability.WeekendsOnly })
	}
	switch slot := strings.ToLower(f.TimeSlot); slot {
	case SlotMorning, SlotAfternoon, SlotEvening, SlotNight:
		preds = append(preds, func(l *Listing) bool { return hasSlot(l, slot) })
	}
	switch st := strings.ToLower(f.SessionType); st {
	case SessionOneOnOne:
		preds = append(preds, func(l *Listing) bool { return strings.EqualFold(l.SessionType, st) })
	case SessionGroup:
		preds = append(preds, func(l *Listing) bool { return strings.EqualFold(l.SessionType, st) })
		if size := f.GroupSize; size != "" {
			preds = append(preds, func(l *Listing) bool { return strings.EqualFold(l.GroupSize, size) })
		}
	}
	if d := strings.ToLower(f.Difficulty); slices.Contains(difficulties, d) {
		preds = append(preds, func(l *Listing) bool { return strings.EqualFold(l.DifficultyLevel, d) })
	}
	if features := nonEmpty(f.Features); len(features) > 0 {
		preds = append(preds, func(l *Listing) bool {
			for _, want := range features {
				if !slices.ContainsFunc(l.Features, func(s string) bool { return strings.EqualFold(s, want) }) {
					return false
				}
			}
			return true
		})
	}
	if types := nonEmpty(f.InstructorTypes); len(types) > 0 {
		first := types[0]
		preds = append(preds, func(l *Listing) bool { return strings.EqualFold(l.InstructorType, first) })
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		preds = append(preds, func(l *Listing) bool { return matchesSearch(l, term) })
	}
	return preds
}

func hasSlot(l *Listing, slot string) bool {
	if l.Availability == nil {
		return false
	}
	return slices.ContainsFunc(l.Availability.TimeSlots, func(s string) bool { return strings.EqualFold(s, slot) })
}

// matchesSearch reports whether the lowercase term occurs in any searchable
// field of l.
func matchesSearch(l *Listing, term string) bool {
	for _, s := range []string{l.Title, l.ShortDescription, l.Subject, l.MentorName} {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return slices.ContainsFunc(l.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), term)
	})
}

// lowerSet returns the non-empty values lowercased.
func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = true
		}
	}
	return set
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
