package library

import (
	"strings"
	"time"
)

// MediaType distinguishes movies from series.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeSeries
}

// Rating is the personal 5-tier rating scale.
type Rating string

const (
	RatingDisliked Rating = "disliked"
	RatingMeh      Rating = "meh"
	RatingLiked    Rating = "liked"
	RatingLoved    Rating = "loved"
	RatingFavorite Rating = "favorite"
)

// Valid reports whether the rating is one of the known tiers.
func (r Rating) Valid() bool {
	switch r {
	case RatingDisliked, RatingMeh, RatingLiked, RatingLoved, RatingFavorite:
		return true
	}
	return false
}

// Entry represents a movie or series in the library.
type Entry struct {
	ID         int64     `json:"id"`
	MediaType  MediaType `json:"mediaType"`
	Title      string    `json:"title"`
	SortTitle  string    `json:"sortTitle"`
	Year       int       `json:"year,omitempty"`
	TmdbID     int       `json:"tmdbId,omitempty"`
	PosterURL  string    `json:"posterUrl,omitempty"`
	Overview   string    `json:"overview,omitempty"`
	Rating     Rating    `json:"rating,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	WatchCount int       `json:"watchCount,omitempty"`
	Watches    []Watch   `json:"watches,omitempty"`
}

// Watch records one viewing of an entry, optionally with co-watchers.
type Watch struct {
	ID          int64     `json:"id"`
	EntryID     int64     `json:"entryId"`
	WatchedOn   string    `json:"watchedOn"` // YYYY-MM-DD
	FriendIDs   []int64   `json:"friendIds,omitempty"`
	FriendNames []string  `json:"friendNames,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateEntryInput contains fields for creating an entry.
type CreateEntryInput struct {
	MediaType MediaType `json:"mediaType"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	TmdbID    int       `json:"tmdbId,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`
	Overview  string    `json:"overview,omitempty"`
	Rating    Rating    `json:"rating,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// UpdateEntryInput contains fields for updating an entry.
type UpdateEntryInput struct {
	Title     *string `json:"title,omitempty"`
	Year      *int    `json:"year,omitempty"`
	PosterURL *string `json:"posterUrl,omitempty"`
	Overview  *string `json:"overview,omitempty"`
	Rating    *Rating `json:"rating,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// AddWatchInput contains fields for recording a watch.
type AddWatchInput struct {
	WatchedOn string  `json:"watchedOn"` // YYYY-MM-DD
	FriendIDs []int64 `json:"friendIds,omitempty"`
}

// ListEntriesOptions contains options for listing entries.
type ListEntriesOptions struct {
	Search    string    `json:"search,omitempty"`
	MediaType MediaType `json:"mediaType,omitempty"`
	Page      int       `json:"page,omitempty"`
	PageSize  int       `json:"pageSize,omitempty"`
}

// generateSortTitle creates a sort-friendly title by lowercasing and
// removing leading articles.
func generateSortTitle(title string) string {
	lowered := strings.ToLower(title)
	for _, prefix := range []string{"the ", "a ", "an "} {
		if len(lowered) > len(prefix) && strings.HasPrefix(lowered, prefix) {
			return lowered[len(prefix):]
		}
	}
	return lowered
}
