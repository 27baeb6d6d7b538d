// Package stats computes viewing statistics over the library.
package stats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Summary is the headline statistics block.
type Summary struct {
	TotalEntries int64 `json:"totalEntries"`
	Movies       int64 `json:"movies"`
	Series       int64 `json:"series"`
	TotalWatches int64 `json:"totalWatches"`
	TotalFriends int64 `json:"totalFriends"`
}

// YearCount is the number of watches recorded in one calendar year.
type YearCount struct {
	Year    string `json:"year"`
	Watches int64  `json:"watches"`
}

// RatingCount is the number of entries holding one rating tier.
type RatingCount struct {
	Rating string `json:"rating"`
	Count  int64  `json:"count"`
}

// FriendCount is the number of shared watches with one friend.
type FriendCount struct {
	Name    string `json:"name"`
	Watches int64  `json:"watches"`
}

// EntryCount is the watch count of one entry, for most-watched listings.
type EntryCount struct {
	EntryID int64  `json:"entryId"`
	Title   string `json:"title"`
	Watches int64  `json:"watches"`
}

// Service computes statistics with read-only queries.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new stats service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Summary returns the headline counts.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entries),
			(SELECT COUNT(*) FROM entries WHERE media_type = 'movie'),
			(SELECT COUNT(*) FROM entries WHERE media_type = 'series'),
			(SELECT COUNT(*) FROM watches),
			(SELECT COUNT(*) FROM friends)
	`).Scan(&sum.TotalEntries, &sum.Movies, &sum.Series, &sum.TotalWatches, &sum.TotalFriends)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	return &sum, nil
}

// WatchesByYear returns watch counts grouped by calendar year, newest first.
func (s *Service) WatchesByYear(ctx context.Context) ([]YearCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(watched_on, 1, 4) AS year, COUNT(*)
		FROM watches GROUP BY year ORDER BY year DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute watches by year: %w", err)
	}
	defer rows.Close()

	var counts []YearCount
	for rows.Next() {
		var c YearCount
		if err := rows.Scan(&c.Year, &c.Watches); err != nil {
			return nil, fmt.Errorf("failed to scan year count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// RatingDistribution returns entry counts per rating tier.
func (s *Service) RatingDistribution(ctx context.Context) ([]RatingCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rating, COUNT(*) FROM entries
		WHERE rating IS NOT NULL GROUP BY rating ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating distribution: %w", err)
	}
	defer rows.Close()

	var counts []RatingCount
	for rows.Next() {
		var c RatingCount
		if err := rows.Scan(&c.Rating, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan rating count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TopFriends returns the friends with the most shared watches.
func (s *Service) TopFriends(ctx context.Context, limit int) ([]FriendCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.name, COUNT(wf.watch_id) AS watches
		FROM friends f JOIN watch_friends wf ON wf.friend_id = f.id
		GROUP BY f.id ORDER BY watches DESC, f.name LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top friends: %w", err)
	}
	defer rows.Close()

	var counts []FriendCount
	for rows.Next() {
		var c FriendCount
		if err := rows.Scan(&c.Name, &c.Watches); err != nil {
			return nil, fmt.Errorf("failed to scan friend count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// MostWatched returns the entries with the most recorded watches.
func (s *Service) MostWatched(ctx context.Context, limit int) ([]EntryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.title, COUNT(w.id) AS watches
		FROM entries e JOIN watches w ON w.entry_id = e.id
		GROUP BY e.id ORDER BY watches DESC, e.sort_title LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute most watched: %w", err)
	}
	defer rows.Close()

	var counts []EntryCount
	for rows.Next() {
		var c EntryCount
		if err := rows.Scan(&c.EntryID, &c.Title, &c.Watches); err != nil {
			return nil, fmt.Errorf("failed to scan entry count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
