package catalog

import (
	"slices"
	"strings"
	"time"

	"github.com/maruel/tutordb/internal/store"
)

// SubjectCounts counts listings per lowercase subject and sub-category. A
// sub-category is only counted for listings that also have a subject.
func SubjectCounts(listings []Listing) map[string]int {
	counts := map[string]int{}
	for i := range listings {
		subject := strings.ToLower(listings[i].Subject)
		if subject == "" {
			continue
		}
		counts[subject]++
		if sub := strings.ToLower(listings[i].SubCategory); sub != "" {
			counts[sub]++
		}
	}
	return counts
}

// SlotAt returns the time slot containing t: morning is 6 to 12, afternoon 12
// to 17, evening 17 to 22 and night 22 to 6, in t's location.
func SlotAt(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return SlotMorning
	case h >= 12 && h < 17:
		return SlotAfternoon
	case h >= 17 && h < 22:
		return SlotEvening
	default:
		return SlotNight
	}
}

// AvailableNow reports whether the course is bookable today in the time slot
// containing now.
func AvailableNow(c *store.Course, now time.Time) bool {
	if c == nil || c.Availability == nil || !c.Availability.Today {
		return false
	}
	slot := SlotAt(now)
	return slices.ContainsFunc(c.Availability.TimeSlots, func(s string) bool { return strings.EqualFold(s, slot) })
}

// Suggest returns up to limit distinct course titles and mentor names
// containing term, case-insensitively, in listing order. Terms shorter than two
// characters return nothing. A non-positive limit means no limit.
func Suggest(listings []Listing, term string, limit int) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if len([]rune(term)) < 2 {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	add := func(s string) bool {
		if s == "" || seen[s] || !strings.Contains(strings.ToLower(s), term) {
			return false
		}
		seen[s] = true
		out = append(out, s)
		return limit > 0 && len(out) >= limit
	}
	for i := range listings {
		if add(listings[i].Title) || add(listings[i].MentorName) {
			break
		}
	}
	return out
}
