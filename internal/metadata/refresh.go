// Package metadata refreshes library entries from the remote catalog.
package metadata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/library"
	"github.com/cinemarco/cinemarco/internal/metadata/tmdb"
	"github.com/cinemarco/cinemarco/internal/progress"
)

const refreshActivityID = "metadata-refresh"

// EntrySource lists entries eligible for refresh and applies updates.
type EntrySource interface {
	ListWithTmdbID(ctx context.Context) ([]*library.Entry, error)
	UpdateMetadata(ctx context.Context, id int64, posterURL, overview string, year int) error
}

// Refresher re-fetches poster, overview, and year for entries linked to
// the catalog. Entries without a catalog ID are left untouched.
type Refresher struct {
	entries         EntrySource
	client          *tmdb.Client
	progressManager *progress.Manager
	logger          zerolog.Logger
}

// NewRefresher creates a metadata refresher.
func NewRefresher(entries EntrySource, client *tmdb.Client, progressManager *progress.Manager, logger zerolog.Logger) *Refresher {
	return &Refresher{
		entries:         entries,
		client:          client,
		progressManager: progressManager,
		logger:          logger.With().Str("component", "metadata-refresh").Logger(),
	}
}

// Run refreshes all catalog-linked entries. Individual fetch failures
// are logged and skipped; the run only fails outright when the catalog
// is unconfigured or the entry list cannot be loaded.
func (r *Refresher) Run(ctx context.Context) error {
	if !r.client.IsConfigured() {
		r.logger.Debug().Msg("Catalog not configured, skipping refresh")
		return nil
	}

	entries, err := r.entries.ListWithTmdbID(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entries for refresh: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	if r.progressManager != nil {
		r.progressManager.StartActivity(refreshActivityID, progress.ActivityTypeMetadataRefresh, "Refreshing metadata")
	}

	var updated, failed int
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			break
		}
		if r.progressManager != nil {
			pct := (i * 100) / len(entries)
			r.progressManager.UpdateActivity(refreshActivityID, entry.Title, pct)
		}

		if err := r.refreshEntry(ctx, entry); err != nil {
			failed++
			r.logger.Warn().Err(err).
				Int64("entryId", entry.ID).
				Str("title", entry.Title).
				Msg("Failed to refresh entry")
			continue
		}
		updated++
	}

	if r.progressManager != nil {
		r.progressManager.CompleteActivity(refreshActivityID, fmt.Sprintf("%d updated, %d failed", updated, failed))
	}
	r.logger.Info().
		Int("updated", updated).
		Int("failed", failed).
		Msg("Metadata refresh finished")
	return nil
}

func (r *Refresher) refreshEntry(ctx context.Context, entry *library.Entry) error {
	var (
		result *tmdb.Result
		err    error
	)
	if entry.MediaType == library.MediaTypeSeries {
		result, err = r.client.GetSeries(ctx, entry.TmdbID)
	} else {
		result, err = r.client.GetMovie(ctx, entry.TmdbID)
	}
	if err != nil {
		return err
	}
	return r.entries.UpdateMetadata(ctx, entry.ID, result.PosterURL, result.Overview, result.Year)
}
