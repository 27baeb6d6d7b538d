package watchimport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cinemarco/cinemarco/internal/library"
)

// ErrMalformedFile is returned when the uploaded file's top-level shape is
// wrong. It aborts the whole parse; per-item validation errors do not.
var ErrMalformedFile = errors.New("malformed import file")

// ItemError records a single item that failed validation and was skipped.
type ItemError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// SourceCollection is a named grouping from the source file, resolved to
// item indices during parsing.
type SourceCollection struct {
	Name        string `json:"name"`
	ItemIndexes []int  `json:"itemIndexes"`
}

// ParseResult is the outcome of parsing an uploaded history file. Items
// holds only the valid rows; SkippedItems reports everything dropped so
// the user is never silently losing data.
type ParseResult struct {
	Items        []ImportItem       `json:"items"`
	Collections  []SourceCollection `json:"collections,omitempty"`
	SkippedItems []ItemError        `json:"skippedItems,omitempty"`
}

type importFile struct {
	Items       []importFileItem       `json:"items"`
	Collections []importFileCollection `json:"collections,omitempty"`
}

type importFileItem struct {
	Title        string   `json:"title"`
	Year         int      `json:"year,omitempty"`
	MediaType    string   `json:"mediaType"`
	WatchedDates []string `json:"watchedDates,omitempty"`
	Rating       string   `json:"rating,omitempty"`
	Friends      []string `json:"friends,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type importFileCollection struct {
	Name  string `json:"name"`
	Items []struct {
		Title string `json:"title"`
		Year  int    `json:"year,omitempty"`
	} `json:"items"`
}

// Parse converts an uploaded file's raw bytes into a normalized item list.
// A structural error aborts the parse; an invalid individual item is
// dropped and reported in SkippedItems. Pure: no side effects.
func Parse(raw []byte) (*ParseResult, error) {
	var file importFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if file.Items == nil {
		return nil, fmt.Errorf("%w: missing items array", ErrMalformedFile)
	}

	result := &ParseResult{Items: make([]ImportItem, 0, len(file.Items))}

	// Position of each kept item keyed by title/year, for collection refs
	keptIndex := make(map[string]int)

	for i, row := range file.Items {
		item, err := validateItem(row)
		if err != nil {
			result.SkippedItems = append(result.SkippedItems, ItemError{Index: i, Reason: err.Error()})
			continue
		}
		keptIndex[itemKey(item.Title, item.Year)] = len(result.Items)
		result.Items = append(result.Items, item)
	}

	for _, c := range file.Collections {
		if c.Name == "" || len(c.Items) == 0 {
			continue
		}
		sc := SourceCollection{Name: c.Name}
		for _, ref := range c.Items {
			if idx, ok := keptIndex[itemKey(ref.Title, ref.Year)]; ok {
				sc.ItemIndexes = append(sc.ItemIndexes, idx)
			}
		}
		if len(sc.ItemIndexes) > 0 {
			result.Collections = append(result.Collections, sc)
		}
	}

	return result, nil
}

func validateItem(raw importFileItem) (ImportItem, error) {
	if strings.TrimSpace(raw.Title) == "" {
		return ImportItem{}, errors.New("missing title")
	}

	mediaType := library.MediaType(raw.MediaType)
	if !mediaType.Valid() {
		return ImportItem{}, fmt.Errorf("invalid media type %q", raw.MediaType)
	}

	rating := library.Rating(raw.Rating)
	if raw.Rating != "" && !rating.Valid() {
		return ImportItem{}, fmt.Errorf("invalid rating %q", raw.Rating)
	}

	for _, date := range raw.WatchedDates {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return ImportItem{}, fmt.Errorf("unparseable watch date %q", date)
		}
	}

	friendNames := make([]string, 0, len(raw.Friends))
	seen := make(map[string]bool, len(raw.Friends))
	for _, name := range raw.Friends {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		friendNames = append(friendNames, name)
	}

	item := ImportItem{
		Title:        strings.TrimSpace(raw.Title),
		Year:         raw.Year,
		MediaType:    mediaType,
		WatchedDates: raw.WatchedDates,
		Rating:       rating,
		Notes:        raw.Notes,
	}
	if len(friendNames) > 0 {
		item.FriendNames = friendNames
	}
	return item, nil
}

func itemKey(title string, year int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(title)), year)
}
