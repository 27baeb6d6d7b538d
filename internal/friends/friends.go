// Package friends manages the people entries can be watched with.
package friends

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
	ErrFriendNotFound = errors.New("friend not found")
	ErrInvalidName    = errors.New("friend name cannot be empty")
	ErrDuplicateName  = errors.New("friend with this name already exists")
)

// Friend is a person watches can be shared with.
type Friend struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	WatchCount int       `json:"watchCount"`
}

// Service provides friend operations.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new friends service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "friends").Logger(),
	}
}

// List returns all friends ordered by name, with watch counts.
func (s *Service) List(ctx context.Context) ([]Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.created_at, COUNT(wf.watch_id)
		 FROM friends f
		 LEFT JOIN watch_friends wf ON wf.friend_id = f.id
		 GROUP BY f.id ORDER BY f.name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []Friend
	for rows.Next() {
		var f Friend
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.WatchCount); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// Get retrieves a friend by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Friend, error) {
	var f Friend
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM friends WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendNotFound
		}
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}
	return &f, nil
}

// GetByName retrieves a friend by name, case-insensitively.
func (s *Service) GetByName(ctx context.Context, name string) (*Friend, error) {
	var f Friend
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM friends WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendNotFound
		}
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}
	return &f, nil
}

// Create creates a new friend.
func (s *Service) Create(ctx context.Context, name string) (*Friend, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if _, err := s.GetByName(ctx, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, ErrFriendNotFound) {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO friends (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create friend: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create friend: %w", err)
	}

	s.logger.Info().Int64("id", id).Str("name", name).Msg("Created friend")

	return s.Get(ctx, id)
}

// EnsureByName returns the friend with the given name, creating it if absent.
// Matching is case-insensitive and the stored spelling is preserved.
func (s *Service) EnsureByName(ctx context.Context, name string) (*Friend, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	friend, err := s.GetByName(ctx, name)
	if err == nil {
		return friend, nil
	}
	if !errors.Is(err, ErrFriendNotFound) {
		return nil, err
	}
	return s.Create(ctx, name)
}

// Rename changes a friend's name.
func (s *Service) Rename(ctx context.Context, id int64, name string) (*Friend, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if existing, err := s.GetByName(ctx, name); err == nil && existing.ID != id {
		return nil, ErrDuplicateName
	} else if err != nil && !errors.Is(err, ErrFriendNotFound) {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE friends SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to rename friend: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrFriendNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a friend. Watch links are removed by cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM friends WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete friend: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrFriendNotFound
	}
	s.logger.Info().Int64("id", id).Msg("Deleted friend")
	return nil
}
