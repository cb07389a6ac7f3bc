package app

import (
	"testing"
)

func TestLookupAny_NestedAndSlices(t *testing.T) {
	rec := map[string]any{
		"user":   map[string]any{"fullName": "Ann", "_id": "u1"},
		"genres": []any{"Drama", "Crime"},
	}
	if got := lookupStr(rec, "user.fullName"); got != "Ann" {
		t.Fatalf("user.fullName = %q", got)
	}
	if got := lookupStr(rec, "genres.1"); got != "Crime" {
		t.Fatalf("genres.1 = %q", got)
	}
	if lookupAny(rec, "genres.9") != nil || lookupAny(rec, "user.missing.deep") != nil {
		t.Fatalf("expected nil for missing paths")
	}
}

func TestFlexibleNumbers(t *testing.T) {
	rec := map[string]any{"a": "8,5", "b": float64(7), "c": " 2012 ", "d": ""}
	if f := getFloatFlexible(rec, "d", "a"); f == nil || *f != 8.5 {
		t.Fatalf("getFloatFlexible = %v", f)
	}
	if n := firstIntFlexible(rec, "missing", "c"); n == nil || *n != 2012 {
		t.Fatalf("firstIntFlexible = %v", n)
	}
	if n := firstIntFlexible(rec, "b"); n == nil || *n != 7 {
		t.Fatalf("firstIntFlexible float = %v", n)
	}
	if intOr(nil, 3) != 3 {
		t.Fatalf("intOr default")
	}
}

func TestMapSeedMovies_DerivesAggregate(t *testing.T) {
	raw := []map[string]any{{
		"title":             "Se7en",
		"overview":          "Two detectives.",
		"genres":            []any{"Crime"},
		"original_language": "en",
		"release_year":      "1995",
		"runtime":           float64(127),
		"rate":              float64(9),
		"numberOfReviews":   float64(10),
		"reviews": []any{
			map[string]any{"user": map[string]any{"_id": "u1", "fullName": "Ann"}, "rating": float64(4), "comment": "tense", "createdAt": "2023-02-01T10:00:00Z"},
			map[string]any{"userId": "u2", "rating": "2", "comment": "dark"},
			"garbage",
		},
	}}
	out, err := MapSeedMovies(raw)
	if err != nil {
		t.Fatalf("MapSeedMovies: %v", err)
	}
	m := out[0]
	if m.Name != "Se7en" || m.Desc != "Two detectives." || m.Category != "Crime" || m.Language != "en" {
		t.Fatalf("unexpected fields: %+v", m)
	}
	if m.Year != 1995 || m.Time != 127 {
		t.Fatalf("year=%d time=%d", m.Year, m.Time)
	}
	if len(m.Reviews) != 2 || m.Reviews[0].UserName != "Ann" || m.Reviews[0].CreatedAt.IsZero() {
		t.Fatalf("reviews = %+v", m.Reviews)
	}
	if m.Rate != 3 || m.NumberOfReviews != 2 {
		t.Fatalf("rate=%v count=%d, want derived 3/2", m.Rate, m.NumberOfReviews)
	}
}

func TestMapSeedMovies_MissingName(t *testing.T) {
	if _, err := MapSeedMovies([]map[string]any{{"year": 2001}}); err == nil {
		t.Fatalf("expected error for nameless record")
	}
}
