// Package tags manages free-form labels attached to library entries.
package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrTagNotFound   = errors.New("tag not found")
	ErrInvalidName   = errors.New("tag name cannot be empty")
	ErrDuplicateName = errors.New("tag with this name already exists")
)

// Tag is a user-defined label.
type Tag struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	EntryCount int       `json:"entryCount"`
}

// Service provides tag operations.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new tags service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "tags").Logger(),
	}
}

// List returns all tags ordered by name, with entry counts.
func (s *Service) List(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.created_at, COUNT(et.entry_id)
		 FROM tags t
		 LEFT JOIN entry_tags et ON et.tag_id = t.id
		 GROUP BY t.id ORDER BY t.name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Get retrieves a tag by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &t, nil
}

// Create creates a new tag.
func (s *Service) Create(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var existing int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = ? COLLATE NOCASE`, name).Scan(&existing)
	if err == nil {
		return nil, ErrDuplicateName
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check tag: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.logger.Info().Int64("id", id).Str("name", name).Msg("Created tag")

	return s.Get(ctx, id)
}

// Delete removes a tag and its entry links.
func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrTagNotFound
	}
	return nil
}

// ListForEntry returns the tags attached to an entry.
func (s *Service) ListForEntry(ctx context.Context, entryID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.created_at
		 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
		 WHERE et.entry_id = ? ORDER BY t.name COLLATE NOCASE`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entry tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TaggedEntry is a library entry carrying a given tag.
type TaggedEntry struct {
	EntryID   int64  `json:"entryId"`
	Title     string `json:"title"`
	MediaType string `json:"mediaType"`
	Year      int    `json:"year,omitempty"`
	PosterURL string `json:"posterUrl,omitempty"`
}

// EntriesForTag returns the entries carrying a tag, ordered by sort title.
func (s *Service) EntriesForTag(ctx context.Context, tagID int64) ([]TaggedEntry, error) {
	if _, err := s.Get(ctx, tagID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.title, e.media_type, e.year, e.poster_url
		 FROM entry_tags et JOIN entries e ON e.id = et.entry_id
		 WHERE et.tag_id = ? ORDER BY e.sort_title`, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tagged entries: %w", err)
	}
	defer rows.Close()

	entries := []TaggedEntry{}
	for rows.Next() {
		var e TaggedEntry
		var year sql.NullInt64
		var poster sql.NullString
		if err := rows.Scan(&e.EntryID, &e.Title, &e.MediaType, &year, &poster); err != nil {
			return nil, fmt.Errorf("failed to scan tagged entry: %w", err)
		}
		e.Year = int(year.Int64)
		e.PosterURL = poster.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetEntryTags replaces an entry's tags with the given set, creating any
// tags that do not exist yet.
func (s *Service) SetEntryTags(ctx context.Context, entryID int64, names []string) ([]Tag, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, entryID); err != nil {
		return nil, fmt.Errorf("failed to clear entry tags: %w", err)
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		tag, err := s.ensureByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO entry_tags (entry_id, tag_id) VALUES (?, ?)`,
			entryID, tag.ID); err != nil {
			return nil, fmt.Errorf("failed to tag entry: %w", err)
		}
	}

	return s.ListForEntry(ctx, entryID)
}

func (s *Service) ensureByName(ctx context.Context, name string) (*Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return s.Create(ctx, name)
}
