package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/websocket"
)

var (
	ErrEntryNotFound   = errors.New("entry not found")
	ErrWatchNotFound   = errors.New("watch not found")
	ErrInvalidEntry    = errors.New("invalid entry data")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrInvalidDate     = errors.New("invalid watch date")
	ErrDuplicateTmdbID = errors.New("entry with this TMDB ID already exists")
)

// Service provides library operations over movies and series entries.
type Service struct {
	db     *sql.DB
	hub    *websocket.Hub
	logger zerolog.Logger
}

// NewService creates a new library service.
func NewService(db *sql.DB, hub *websocket.Hub, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		hub:    hub,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

const entryColumns = `id, media_type, title, sort_title, year, tmdb_id, poster_url, overview, rating, notes, added_at, updated_at`

// Get retrieves an entry by ID, including its watches.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	watches, err := s.ListWatches(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("entryId", id).Msg("Failed to get watches")
	} else {
		entry.Watches = watches
		entry.WatchCount = len(watches)
	}

	return entry, nil
}

// GetByTmdbID retrieves an entry by media type and TMDB ID.
func (s *Service) GetByTmdbID(ctx context.Context, mediaType MediaType, tmdbID int) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE media_type = ? AND tmdb_id = ?`,
		string(mediaType), tmdbID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// List returns entries with optional filtering.
func (s *Service) List(ctx context.Context, opts ListEntriesOptions) ([]*Entry, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	offset := (opts.Page - 1) * opts.PageSize

	var conds []string
	var args []interface{}

	if opts.MediaType != "" {
		if !opts.MediaType.Valid() {
			return nil, ErrInvalidEntry
		}
		conds = append(conds, "media_type = ?")
		args = append(args, string(opts.MediaType))
	}
	if opts.Search != "" {
		conds = append(conds, "(title LIKE ? OR sort_title LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}

	query := `SELECT ` + entryColumns + ` FROM entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sort_title LIMIT ? OFFSET ?"
	args = append(args, opts.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	for _, entry := range entries {
		var count int
		_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watches WHERE entry_id = ?`, entry.ID).Scan(&count)
		entry.WatchCount = count
	}

	return entries, nil
}

// Create creates a new library entry.
func (s *Service) Create(ctx context.Context, input *CreateEntryInput) (*Entry, error) {
	if input.Title == "" || !input.MediaType.Valid() {
		return nil, ErrInvalidEntry
	}
	if input.Rating != "" && !input.Rating.Valid() {
		return nil, ErrInvalidRating
	}

	// Check for duplicate TMDB ID within the same media type
	if input.TmdbID > 0 {
		_, err := s.GetByTmdbID(ctx, input.MediaType, input.TmdbID)
		if err == nil {
			return nil, ErrDuplicateTmdbID
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return nil, err
		}
	}

	sortTitle := generateSortTitle(input.Title)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (media_type, title, sort_title, year, tmdb_id, poster_url, overview, rating, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(input.MediaType),
		input.Title,
		sortTitle,
		nullInt(input.Year),
		nullInt(input.TmdbID),
		nullString(input.PosterURL),
		nullString(input.Overview),
		nullString(string(input.Rating)),
		nullString(input.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("id", entry.ID).Str("title", entry.Title).Str("mediaType", string(entry.MediaType)).Msg("Created entry")

	if s.hub != nil {
		s.hub.Broadcast("entry:added", entry)
	}

	return entry, nil
}

// Update updates an existing entry.
func (s *Service) Update(ctx context.Context, id int64, input *UpdateEntryInput) (*Entry, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	title := current.Title
	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrInvalidEntry
		}
		title = *input.Title
	}
	sortTitle := generateSortTitle(title)

	year := current.Year
	if input.Year != nil {
		year = *input.Year
	}

	posterURL := current.PosterURL
	if input.PosterURL != nil {
		posterURL = *input.PosterURL
	}

	overview := current.Overview
	if input.Overview != nil {
		overview = *input.Overview
	}

	rating := current.Rating
	if input.Rating != nil {
		if *input.Rating != "" && !input.Rating.Valid() {
			return nil, ErrInvalidRating
		}
		rating = *input.Rating
	}

	notes := current.Notes
	if input.Notes != nil {
		notes = *input.Notes
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE entries SET title = ?, sort_title = ?, year = ?, poster_url = ?, overview = ?, rating = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		title, sortTitle, nullInt(year), nullString(posterURL), nullString(overview),
		nullString(string(rating)), nullString(notes), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("id", id).Str("title", entry.Title).Msg("Updated entry")

	if s.hub != nil {
		s.hub.Broadcast("entry:updated", entry)
	}

	return entry, nil
}

// UpdateMetadata refreshes catalog-derived fields without touching user data.
func (s *Service) UpdateMetadata(ctx context.Context, id int64, posterURL, overview string, year int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE entries SET poster_url = ?, overview = ?, year = ?, updated_at = ? WHERE id = ?`,
		nullString(posterURL), nullString(overview), nullInt(year), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry metadata: %w", err)
	}
	return nil
}

// Delete deletes an entry and its watches.
func (s *Service) Delete(ctx context.Context, id int64) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	s.logger.Info().Int64("id", id).Str("title", entry.Title).Msg("Deleted entry")

	if s.hub != nil {
		s.hub.Broadcast("entry:deleted", map[string]int64{"id": id})
	}

	return nil
}

// AddWatch records a watch for an entry, with optional co-watchers.
func (s *Service) AddWatch(ctx context.Context, entryID int64, input *AddWatchInput) (*Watch, error) {
	if _, err := time.Parse("2006-01-02", input.WatchedOn); err != nil {
		return nil, ErrInvalidDate
	}

	if _, err := s.Get(ctx, entryID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watches (entry_id, watched_on) VALUES (?, ?)`,
		entryID, input.WatchedOn,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add watch: %w", err)
	}

	watchID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to add watch: %w", err)
	}

	for _, friendID := range input.FriendIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO watch_friends (watch_id, friend_id) VALUES (?, ?)`,
			watchID, friendID,
		); err != nil {
			s.logger.Warn().Err(err).Int64("watchId", watchID).Int64("friendId", friendID).Msg("Failed to attach friend to watch")
		}
	}

	watch, err := s.getWatch(ctx, watchID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("entryId", entryID).Str("watchedOn", input.WatchedOn).Msg("Added watch")

	return watch, nil
}

// ListWatches returns all watches for an entry, newest first.
func (s *Service) ListWatches(ctx context.Context, entryID int64) ([]Watch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entry_id, watched_on, created_at FROM watches WHERE entry_id = ? ORDER BY watched_on DESC, id DESC`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var watches []Watch
	for rows.Next() {
		var w Watch
		if err := rows.Scan(&w.ID, &w.EntryID, &w.WatchedOn, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}

	for i := range watches {
		if err := s.loadWatchFriends(ctx, &watches[i]); err != nil {
			s.logger.Warn().Err(err).Int64("watchId", watches[i].ID).Msg("Failed to load watch friends")
		}
	}

	return watches, nil
}

// DeleteWatch removes a single watch record.
func (s *Service) DeleteWatch(ctx context.Context, watchID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watches WHERE id = ?`, watchID)
	if err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrWatchNotFound
	}
	return nil
}

// Count returns the total number of entries.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// ListWithTmdbID returns all entries that have a TMDB ID, for metadata refresh.
func (s *Service) ListWithTmdbID(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE tmdb_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Service) getWatch(ctx context.Context, watchID int64) (*Watch, error) {
	var w Watch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, entry_id, watched_on, created_at FROM watches WHERE id = ?`, watchID,
	).Scan(&w.ID, &w.EntryID, &w.WatchedOn, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWatchNotFound
		}
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if err := s.loadWatchFriends(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) loadWatchFriends(ctx context.Context, w *Watch) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name FROM watch_friends wf JOIN friends f ON f.id = wf.friend_id
		 WHERE wf.watch_id = ? ORDER BY f.name`, w.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	w.FriendIDs = nil
	w.FriendNames = nil
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		w.FriendIDs = append(w.FriendIDs, id)
		w.FriendNames = append(w.FriendNames, name)
	}
	return rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for entry scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var mediaType string
	var year, tmdbID sql.NullInt64
	var posterURL, overview, rating, notes sql.NullString

	err := row.Scan(&e.ID, &mediaType, &e.Title, &e.SortTitle, &year, &tmdbID,
		&posterURL, &overview, &rating, &notes, &e.AddedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.MediaType = MediaType(mediaType)
	if year.Valid {
		e.Year = int(year.Int64)
	}
	if tmdbID.Valid {
		e.TmdbID = int(tmdbID.Int64)
	}
	if posterURL.Valid {
		e.PosterURL = posterURL.String
	}
	if overview.Valid {
		e.Overview = overview.String
	}
	if rating.Valid {
		e.Rating = Rating(rating.String)
	}
	if notes.Valid {
		e.Notes = notes.String
	}

	return &e, nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v > 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
