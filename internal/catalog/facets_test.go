package catalog

import (
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/maruel/tutordb/internal/store"
)

func TestJoin(t *testing.T) {
	users := []*store.User{
		{ID: "m1", FullName: "Vikram Singh", AvatarURL: "v.png", Headline: "Engineer", InstructorType: "professional"},
		{ID: "m2", Username: "lena", InstructorType: "student"},
		nil,
	}
	courses := []*store.Course{
		{ID: "c1", MentorID: "m1"},
		{ID: "c2", MentorID: "m2", InstructorType: "certified"},
		nil,
		{ID: "c3", MentorID: "ghost"},
	}
	got := Join(courses, users)
	if want := []string{"c1", "c2", "c3"}; !slices.Equal(listingIDs(got), want) {
		t.Fatalf("Join() = %v, want %v", listingIDs(got), want)
	}
	tests := []struct {
		i              int
		name, avatar   string
		instructorType string
	}{
		{0, "Vikram Singh", "v.png", "professional"},
		{1, "lena", "", "certified"},
		{2, UnknownMentor, "", ""},
	}
	for _, tt := range tests {
		l := got[tt.i]
		if l.MentorName != tt.name || l.MentorAvatarURL != tt.avatar || l.InstructorType != tt.instructorType {
			t.Errorf("Join()[%d] = %q %q %q, want %q %q %q", tt.i,
				l.MentorName, l.MentorAvatarURL, l.InstructorType, tt.name, tt.avatar, tt.instructorType)
		}
	}
	if got[0].MentorHeadline != "Engineer" {
		t.Errorf("MentorHeadline = %q", got[0].MentorHeadline)
	}
	if courses[0].InstructorType != "" {
		t.Error("Join() modified its input")
	}
}

func TestSubjectCounts(t *testing.T) {
	ls := []Listing{
		listing(store.Course{ID: "1", Subject: "Programming", SubCategory: "Go"}),
		listing(store.Course{ID: "2", Subject: "programming", SubCategory: "rust"}),
		listing(store.Course{ID: "3", Subject: "Languages"}),
		listing(store.Course{ID: "4", SubCategory: "orphan"}),
	}
	want := map[string]int{"programming": 2, "go": 1, "rust": 1, "languages": 1}
	if got := SubjectCounts(ls); !maps.Equal(got, want) {
		t.Errorf("SubjectCounts() = %v, want %v", got, want)
	}
}

func TestAvailableNow(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 6, 1, h, 30, 0, 0, time.UTC) }
	course := &store.Course{ID: "c", Availability: &store.Availability{Today: true, TimeSlots: []string{"morning", "night"}}}
	tests := []struct {
		name   string
		course *store.Course
		now    time.Time
		want   bool
	}{
		{"morning", course, at(9), true},
		{"afternoon", course, at(13), false},
		{"late night", course, at(23), true},
		{"early night", course, at(2), true},
		{"not today", &store.Course{Availability: &store.Availability{TimeSlots: []string{"morning"}}}, at(9), false},
		{"no availability", &store.Course{}, at(9), false},
		{"nil course", nil, at(9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvailableNow(tt.course, tt.now); got != tt.want {
				t.Errorf("AvailableNow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlotAt(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, SlotNight}, {5, SlotNight}, {6, SlotMorning}, {11, SlotMorning},
		{12, SlotAfternoon}, {16, SlotAfternoon}, {17, SlotEvening}, {21, SlotEvening}, {22, SlotNight},
	}
	for _, tt := range tests {
		if got := SlotAt(time.Date(2024, 1, 1, tt.hour, 0, 0, 0, time.UTC)); got != tt.want {
			t.Errorf("SlotAt(%d:00) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	ls := []Listing{
		{Course: store.Course{ID: "1", Title: "Go Services"}, MentorName: "Gopal"},
		{Course: store.Course{ID: "2", Title: "Go Services"}, MentorName: "Ana"},
		{Course: store.Course{ID: "3", Title: "Algorithms"}, MentorName: "Gordon"},
	}
	tests := []struct {
		term  string
		limit int
		want  []string
	}{
		{"go", 0, []string{"Go Services", "Gopal", "Algorithms", "Gordon"}},
		{"GO", 2, []string{"Go Services", "Gopal"}},
		{"g", 0, nil},
		{"zz", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := Suggest(ls, tt.term, tt.limit); !slices.Equal(got, tt.want) {
				t.Errorf("Suggest(%q, %d) = %v, want %v", tt.term, tt.limit, got, tt.want)
			}
		})
	}
}
