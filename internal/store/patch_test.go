package store

import (
	"errors"
	"slices"
	"testing"

	"github.com/maruel/tutordb/internal/jsonldb"
)

func courseFields(t *testing.T) map[string]struct{} {
	t.Helper()
	table, err := jsonldb.NewTable[*Course](t.TempDir() + "/c.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	fields := map[string]struct{}{}
	for _, c := range table.Columns() {
		fields[c.Name] = struct{}{}
	}
	return fields
}

func TestApplyPatch(t *testing.T) {
	fields := courseFields(t)
	base := &Course{
		ID:              "c1",
		Title:           "Go",
		PricePerSession: 500,
		Tags:            []string{"a", "b"},
		Availability:    &Availability{Today: true, TimeSlots: []string{"morning"}},
	}

	t.Run("valid", func(t *testing.T) {
		tests := []struct {
			name  string
			patch Patch
			check func(t *testing.T, got *Course)
		}{
			{"absent fields retained", Patch{"title": "Go 2"}, func(t *testing.T, got *Course) {
				if got.Title != "Go 2" || got.PricePerSession != 500 || !slices.Equal(got.Tags, []string{"a", "b"}) {
					t.Errorf("got %+v", got)
				}
			}},
			{"nil resets to zero", Patch{"tags": nil, "price_per_session": nil}, func(t *testing.T, got *Course) {
				if got.Tags != nil || got.PricePerSession != 0 || got.Title != "Go" {
					t.Errorf("got %+v", got)
				}
			}},
			{"shallow replace", Patch{"availability": map[string]any{"this_week": true}}, func(t *testing.T, got *Course) {
				if got.Availability == nil || got.Availability.Today || !got.Availability.ThisWeek || got.Availability.TimeSlots != nil {
					t.Errorf("availability = %+v, want replaced wholesale", got.Availability)
				}
			}},
			{"same id allowed", Patch{"id": "c1"}, func(t *testing.T, got *Course) {
				if got.ID != "c1" {
					t.Errorf("id = %q", got.ID)
				}
			}},
			{"empty patch", Patch{}, func(t *testing.T, got *Course) {
				if got.Title != "Go" {
					t.Errorf("got %+v", got)
				}
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := applyPatch(base, tt.patch, fields)
				if err != nil {
					t.Fatal(err)
				}
				tt.check(t, got)
			})
		}
		if base.Title != "Go" || len(base.Tags) != 2 {
			t.Errorf("applyPatch mutated its input: %+v", base)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name  string
			patch Patch
		}{
			{"unknown field", Patch{"colour": "red"}},
			{"id change", Patch{"id": "c2"}},
			{"id wrong type", Patch{"id": 7}},
			{"wrong type", Patch{"tags": "solo"}},
			{"unencodable", Patch{"title": func() {}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := applyPatch(base, tt.patch, fields); !errors.Is(err, ErrInvalidPatch) {
					t.Errorf("applyPatch() error = %v, want ErrInvalidPatch", err)
				}
			})
		}
	})
}
