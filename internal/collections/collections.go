// Package collections manages ordered groupings of library entries.
package collections

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
	ErrCollectionNotFound = errors.New("collection not found")
	ErrInvalidName        = errors.New("collection name cannot be empty")
	ErrEntryNotInList     = errors.New("entry not in collection")
)

// Collection is a named, ordered grouping of entries.
type Collection struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	EntryCount  int               `json:"entryCount"`
	Entries     []CollectionEntry `json:"entries,omitempty"`
}

// CollectionEntry is an entry's membership in a collection.
type CollectionEntry struct {
	EntryID   int64  `json:"entryId"`
	Position  int    `json:"position"`
	Title     string `json:"title"`
	MediaType string `json:"mediaType"`
	Year      int    `json:"year,omitempty"`
	PosterURL string `json:"posterUrl,omitempty"`
}

// Service provides collection operations.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new collections service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "collections").Logger(),
	}
}

// List returns all collections ordered by name, with entry counts.
func (s *Service) List(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.description, c.created_at, c.updated_at, COUNT(ce.entry_id)
		 FROM collections c
		 LEFT JOIN collection_entries ce ON ce.collection_id = c.id
		 GROUP BY c.id ORDER BY c.name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var c Collection
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt, &c.EntryCount); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		c.Description = desc.String
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// Get retrieves a collection with its entries in position order.
func (s *Service) Get(ctx context.Context, id int64) (*Collection, error) {
	var c Collection
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM collections WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	c.Description = desc.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT ce.entry_id, ce.position, e.title, e.media_type, e.year, e.poster_url
		 FROM collection_entries ce JOIN entries e ON e.id = ce.entry_id
		 WHERE ce.collection_id = ? ORDER BY ce.position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e CollectionEntry
		var year sql.NullInt64
		var poster sql.NullString
		if err := rows.Scan(&e.EntryID, &e.Position, &e.Title, &e.MediaType, &year, &poster); err != nil {
			return nil, fmt.Errorf("failed to scan collection entry: %w", err)
		}
		e.Year = int(year.Int64)
		e.PosterURL = poster.String
		c.Entries = append(c.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	c.EntryCount = len(c.Entries)

	return &c, nil
}

// Create creates a new collection.
func (s *Service) Create(ctx context.Context, name, description string) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, description) VALUES (?, ?)`,
		name, nullString(description))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	s.logger.Info().Int64("id", id).Str("name", name).Msg("Created collection")

	return s.Get(ctx, id)
}

// CreateWithEntries creates a collection pre-populated with entries, in the
// given order. Used when accepting a collection suggestion from an import.
func (s *Service) CreateWithEntries(ctx context.Context, name, description string, entryIDs []int64) (*Collection, error) {
	collection, err := s.Create(ctx, name, description)
	if err != nil {
		return nil, err
	}

	for i, entryID := range entryIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO collection_entries (collection_id, entry_id, position) VALUES (?, ?, ?)`,
			collection.ID, entryID, i); err != nil {
			return nil, fmt.Errorf("failed to add entry to collection: %w", err)
		}
	}

	return s.Get(ctx, collection.ID)
}

// Update changes a collection's name or description.
func (s *Service) Update(ctx context.Context, id int64, name, description string) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE collections SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		name, nullString(description), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrCollectionNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a collection. Entries themselves are untouched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrCollectionNotFound
	}
	s.logger.Info().Int64("id", id).Msg("Deleted collection")
	return nil
}

// AddEntry appends an entry at the end of a collection.
func (s *Service) AddEntry(ctx context.Context, collectionID, entryID int64) error {
	if _, err := s.Get(ctx, collectionID); err != nil {
		return err
	}

	var next int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM collection_entries WHERE collection_id = ?`,
		collectionID).Scan(&next); err != nil {
		return fmt.Errorf("failed to determine position: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collection_entries (collection_id, entry_id, position) VALUES (?, ?, ?)`,
		collectionID, entryID, next); err != nil {
		return fmt.Errorf("failed to add entry to collection: %w", err)
	}
	return nil
}

// RemoveEntry removes an entry from a collection and compacts positions.
func (s *Service) RemoveEntry(ctx context.Context, collectionID, entryID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_entries WHERE collection_id = ? AND entry_id = ?`,
		collectionID, entryID)
	if err != nil {
		return fmt.Errorf("failed to remove entry from collection: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrEntryNotInList
	}
	return s.compactPositions(ctx, collectionID)
}

// Reorder replaces the ordering of a collection with the given entry ID
// sequence. Every current member must appear exactly once.
func (s *Service) Reorder(ctx context.Context, collectionID int64, entryIDs []int64) (*Collection, error) {
	current, err := s.Get(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	members := make(map[int64]bool, len(current.Entries))
	for _, e := range current.Entries {
		members[e.EntryID] = true
	}
	if len(entryIDs) != len(members) {
		return nil, fmt.Errorf("%w: reorder must cover all %d entries", ErrEntryNotInList, len(members))
	}
	seen := make(map[int64]bool, len(entryIDs))
	for _, id := range entryIDs {
		if !members[id] || seen[id] {
			return nil, ErrEntryNotInList
		}
		seen[id] = true
	}

	for i, entryID := range entryIDs {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE collection_entries SET position = ? WHERE collection_id = ? AND entry_id = ?`,
			i, collectionID, entryID); err != nil {
			return nil, fmt.Errorf("failed to reorder collection: %w", err)
		}
	}

	return s.Get(ctx, collectionID)
}

func (s *Service) compactPositions(ctx context.Context, collectionID int64) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id FROM collection_entries WHERE collection_id = ? ORDER BY position`,
		collectionID)
	if err != nil {
		return fmt.Errorf("failed to compact positions: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE collection_entries SET position = ? WHERE collection_id = ? AND entry_id = ?`,
			i, collectionID, id); err != nil {
			return fmt.Errorf("failed to compact positions: %w", err)
		}
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
