// Package catalog turns a snapshot of courses into filtered, sorted and
// paginated listings.
//
// Everything here is pure and synchronous: the same snapshot, filter and sort
// key always produce the same result, and malformed or missing fields degrade
// to permissive matching instead of failing.
package catalog

import (
	"github.com/maruel/tutordb/internal/store"
)

// UnknownMentor is the mentor name of a course whose mentor is not a known
// user.
const UnknownMentor = "Unknown Mentor"

// Listing is a course joined with the display fields of its mentor.
type Listing struct {
	store.Course
	MentorName      string `json:"mentor_name"`
	MentorAvatarURL string `json:"mentor_avatar_url,omitempty"`
	MentorHeadline  string `json:"mentor_headline,omitempty"`
}

// Join attaches mentor fields to each course, preserving course order. A
// course without instructor_type inherits its mentor's. nil courses are
// skipped.
func Join(courses []*store.Course, users []*store.User) []Listing {
	byID := make(map[string]*store.User, len(users))
	for _, u := range users {
		if u != nil {
			byID[u.ID] = u
		}
	}
	out := make([]Listing, 0, len(courses))
	for _, c := range courses {
		if c == nil {
			continue
		}
		l := Listing{Course: *c.Clone(), MentorName: UnknownMentor}
		if m, ok := byID[c.MentorID]; ok {
			l.MentorName = mentorName(m)
			l.MentorAvatarURL = m.AvatarURL
			l.MentorHeadline = m.Headline
			if l.InstructorType == "" {
				l.InstructorType = m.InstructorType
			}
		}
		out = append(out, l)
	}
	return out
}

func mentorName(u *store.User) string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return UnknownMentor
	}
}
