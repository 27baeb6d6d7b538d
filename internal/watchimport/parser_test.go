package watchimport

import (
	"errors"
	"testing"
)

func TestParseValidFile(t *testing.T) {
	raw := []byte(`{
		"items": [
			{"title": "The Matrix", "year": 1999, "mediaType": "movie", "watchedDates": ["2020-05-01"], "rating": "loved", "friends": ["Ana", "Marco"]},
			{"title": "Breaking Bad", "year": 2008, "mediaType": "series", "notes": "rewatch"}
		]
	}`)

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Parse() returned %d items, want 2", len(result.Items))
	}
	if len(result.SkippedItems) != 0 {
		t.Errorf("SkippedItems = %v, want none", result.SkippedItems)
	}

	first := result.Items[0]
	if first.Title != "The Matrix" || first.Year != 1999 {
		t.Errorf("Items[0] = %+v", first)
	}
	if len(first.FriendNames) != 2 {
		t.Errorf("Items[0].FriendNames = %v, want 2 names", first.FriendNames)
	}
	if result.Items[1].Notes != "rewatch" {
		t.Errorf("Items[1].Notes = %q, want %q", result.Items[1].Notes, "rewatch")
	}
}

func TestParseMalformedStructure(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `not json at all`},
		{"missing items", `{"collections": []}`},
		{"items wrong type", `{"items": "nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, ErrMalformedFile) {
				t.Errorf("Parse() error = %v, want ErrMalformedFile", err)
			}
		})
	}
}

func TestParseSkipsInvalidItemsWithReport(t *testing.T) {
	raw := []byte(`{
		"items": [
			{"title": "Good Movie", "mediaType": "movie"},
			{"title": "", "mediaType": "movie"},
			{"title": "Bad Type", "mediaType": "podcast"},
			{"title": "Bad Date", "mediaType": "movie", "watchedDates": ["01/05/2020"]},
			{"title": "Bad Rating", "mediaType": "movie", "rating": "amazing"},
			{"title": "Good Series", "mediaType": "series"}
		]
	}`)

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("Parse() kept %d items, want 2", len(result.Items))
	}
	if len(result.SkippedItems) != 4 {
		t.Fatalf("SkippedItems = %d, want 4", len(result.SkippedItems))
	}
	// Indices refer to the original file positions
	wantIndexes := []int{1, 2, 3, 4}
	for i, skipped := range result.SkippedItems {
		if skipped.Index != wantIndexes[i] {
			t.Errorf("SkippedItems[%d].Index = %d, want %d", i, skipped.Index, wantIndexes[i])
		}
		if skipped.Reason == "" {
			t.Errorf("SkippedItems[%d] has empty reason", i)
		}
	}
}

func TestParseDeduplicatesFriendNames(t *testing.T) {
	raw := []byte(`{"items": [
		{"title": "Heat", "mediaType": "movie", "friends": ["Ana", "ana", " Ana ", "Marco"]}
	]}`)

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := result.Items[0].FriendNames; len(got) != 2 {
		t.Errorf("FriendNames = %v, want 2 distinct names", got)
	}
}

func TestParseCollections(t *testing.T) {
	raw := []byte(`{
		"items": [
			{"title": "The Matrix", "year": 1999, "mediaType": "movie"},
			{"title": "", "mediaType": "movie"},
			{"title": "The Matrix Reloaded", "year": 2003, "mediaType": "movie"}
		],
		"collections": [
			{"name": "The Matrix Saga", "items": [
				{"title": "The Matrix", "year": 1999},
				{"title": "The Matrix Reloaded", "year": 2003},
				{"title": "Ghost Entry", "year": 2050}
			]},
			{"name": "Empty", "items": [{"title": "Nothing", "year": 1}]}
		]
	}`)

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(result.Collections) != 1 {
		t.Fatalf("Collections = %v, want one surviving collection", result.Collections)
	}
	c := result.Collections[0]
	if c.Name != "The Matrix Saga" {
		t.Errorf("Name = %q", c.Name)
	}
	// Indexes point into the kept item list, not the raw file
	if len(c.ItemIndexes) != 2 || c.ItemIndexes[0] != 0 || c.ItemIndexes[1] != 1 {
		t.Errorf("ItemIndexes = %v, want [0 1]", c.ItemIndexes)
	}
}

func TestParseIsPure(t *testing.T) {
	raw := []byte(`{"items": [{"title": "Heat", "mediaType": "movie"}]}`)

	first, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() second call error = %v", err)
	}
	if len(first.Items) != len(second.Items) || first.Items[0].Title != second.Items[0].Title {
		t.Errorf("Parse() not deterministic: %v vs %v", first.Items, second.Items)
	}
}
