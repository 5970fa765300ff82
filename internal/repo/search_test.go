package repo

import (
	"strings"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return &d
}

func TestBuildSearchQueryNoFilters(t *testing.T) {
	query, args := BuildSearchQuery(SearchFilters{})

	if len(args) != 0 {
		t.Fatalf("args=%v want none", args)
	}
	if strings.Contains(query, "WHERE") {
		t.Fatalf("unfiltered query must have no WHERE clause:\n%s", query)
	}
	if strings.Contains(query, "event_categories") {
		t.Fatalf("unfiltered query must not join event_categories:\n%s", query)
	}
	if !strings.Contains(query, "ORDER BY e.start_date ASC") {
		t.Fatalf("query must order by start date ascending:\n%s", query)
	}
	if !strings.Contains(query, "LEFT JOIN charities") {
		t.Fatalf("query must outer-join charities:\n%s", query)
	}
}

func TestBuildSearchQueryCity(t *testing.T) {
	query, args := BuildSearchQuery(SearchFilters{City: "Sydney"})

	if len(args) != 1 {
		t.Fatalf("args=%v want 1", args)
	}
	if args[0] != "%Sydney%" {
		t.Fatalf("city arg=%v want %%Sydney%%", args[0])
	}
	if !strings.Contains(query, "e.city ILIKE $1") {
		t.Fatalf("city filter must be a case-insensitive substring match:\n%s", query)
	}
}

func TestBuildSearchQueryDates(t *testing.T) {
	query, args := BuildSearchQuery(SearchFilters{
		StartDate: mustDate(t, "2025-01-01"),
		EndDate:   mustDate(t, "2025-12-31"),
	})

	if len(args) != 2 {
		t.Fatalf("args=%v want 2", args)
	}
	if !strings.Contains(query, "e.start_date >= $1") {
		t.Fatalf("missing start date condition:\n%s", query)
	}
	if !strings.Contains(query, "e.end_date <= $2") {
		t.Fatalf("missing end date condition:\n%s", query)
	}
	if !strings.Contains(query, " AND ") {
		t.Fatalf("conditions must combine with AND:\n%s", query)
	}
}

func TestBuildSearchQueryCategory(t *testing.T) {
	query, args := BuildSearchQuery(SearchFilters{CategoryID: 3})

	if len(args) != 1 || args[0] != 3 {
		t.Fatalf("args=%v want [3]", args)
	}
	if !strings.Contains(query, "JOIN event_categories ec ON e.event_id = ec.event_id") {
		t.Fatalf("category filter must join the link table:\n%s", query)
	}
	if !strings.Contains(query, "ec.category_id = $1") {
		t.Fatalf("missing category condition:\n%s", query)
	}
}

func TestBuildSearchQueryAllFilters(t *testing.T) {
	query, args := BuildSearchQuery(SearchFilters{
		StartDate:  mustDate(t, "2025-01-01"),
		EndDate:    mustDate(t, "2025-12-31"),
		City:       "melb",
		CategoryID: 2,
	})

	if len(args) != 4 {
		t.Fatalf("args=%v want 4", args)
	}
	for _, cond := range []string{
		"e.start_date >= $1",
		"e.end_date <= $2",
		"e.city ILIKE $3",
		"ec.category_id = $4",
	} {
		if !strings.Contains(query, cond) {
			t.Fatalf("missing condition %q:\n%s", cond, query)
		}
	}
	if strings.Count(query, " AND ") != 3 {
		t.Fatalf("want 3 AND separators:\n%s", query)
	}
}
