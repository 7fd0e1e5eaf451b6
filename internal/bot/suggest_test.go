package bot

import (
	"testing"

	"dab-tg-bot/internal/dab"
)

func TestSuggestClosestID(t *testing.T) {
	tracks := []dab.Track{
		{ID: "4221", Title: "Imagine", Artist: "John Lennon"},
		{ID: "9015", Title: "Yesterday", Artist: "The Beatles"},
	}

	got, ok := suggest("4211", tracks)
	if !ok || got.ID != "4221" {
		t.Errorf("suggest = (%v, %v), want id 4221", got.ID, ok)
	}
}

func TestSuggestByTitle(t *testing.T) {
	tracks := []dab.Track{
		{ID: "4221", Title: "Imagine", Artist: "John Lennon"},
		{ID: "9015", Title: "Yesterday", Artist: "The Beatles"},
	}

	got, ok := suggest("lennon imagine", tracks)
	if !ok || got.ID != "4221" {
		t.Errorf("suggest = (%v, %v), want id 4221", got.ID, ok)
	}
}

func TestSuggestNothingBelowThreshold(t *testing.T) {
	tracks := []dab.Track{{ID: "4221", Title: "Imagine", Artist: "John Lennon"}}

	if got, ok := suggest("zzzzzzzz", tracks); ok {
		t.Errorf("expected no suggestion, got %v", got.ID)
	}
}

func TestSuggestEmptySet(t *testing.T) {
	if _, ok := suggest("42", nil); ok {
		t.Error("expected no suggestion from an empty set")
	}
}
