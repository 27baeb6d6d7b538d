package watchimport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/friends"
	"github.com/cinemarco/cinemarco/internal/library"
	"github.com/cinemarco/cinemarco/internal/progress"
)

const importActivityID = "watch-import"

// ErrImportRunning is returned when a batch is started while one is
// already in flight.
var ErrImportRunning = errors.New("an import is already running")

// LibraryWriter is the persistence collaborator the importer writes to.
type LibraryWriter interface {
	Create(ctx context.Context, input *library.CreateEntryInput) (*library.Entry, error)
	AddWatch(ctx context.Context, entryID int64, input *library.AddWatchInput) (*library.Watch, error)
}

// FriendEnsurer resolves friend names to records, creating unknown ones.
type FriendEnsurer interface {
	EnsureByName(ctx context.Context, name string) (*friends.Friend, error)
}

// Importer executes a determinate item list against the library, one item
// at a time, maintaining a progress record the caller polls. Single
// writer: only the run loop mutates the record; Snapshot copies it out
// under the lock so pollers never see a torn intermediate state.
type Importer struct {
	library         LibraryWriter
	friends         FriendEnsurer
	progressManager *progress.Manager
	logger          zerolog.Logger

	mu        sync.Mutex
	prog      ProgressSnapshot
	cancelled bool
}

// NewImporter creates a new batch importer.
func NewImporter(lib LibraryWriter, fr FriendEnsurer, pm *progress.Manager, logger zerolog.Logger) *Importer {
	return &Importer{
		library:         lib,
		friends:         fr,
		progressManager: pm,
		logger:          logger.With().Str("component", "import-batch").Logger(),
	}
}

// Start begins the batch asynchronously and returns immediately. Progress
// is retrieved via Snapshot until InProgress is false.
func (im *Importer) Start(ctx context.Context, items []ImportItemWithMatch) error {
	im.mu.Lock()
	if im.prog.InProgress {
		im.mu.Unlock()
		return ErrImportRunning
	}
	im.prog = ProgressSnapshot{
		InProgress: true,
		TotalItems: len(items),
		Errors:     []string{},
	}
	im.cancelled = false
	im.mu.Unlock()

	if im.progressManager != nil {
		im.progressManager.StartActivity(importActivityID, progress.ActivityTypeImport, "Watch History Import")
	}

	go im.run(ctx, items)
	return nil
}

// Cancel requests a cooperative stop. The in-flight item is allowed to
// finish; nothing already imported is rolled back.
func (im *Importer) Cancel() {
	im.mu.Lock()
	im.cancelled = true
	im.mu.Unlock()
}

// Snapshot returns an immutable copy of the current progress.
func (im *Importer) Snapshot() ProgressSnapshot {
	im.mu.Lock()
	defer im.mu.Unlock()
	return copyProgress(im.prog)
}

// Reset clears the finished run's record so a fresh session does not show
// stale counts. No-op while a batch is in flight.
func (im *Importer) Reset() {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.prog.InProgress {
		return
	}
	im.prog = ProgressSnapshot{}
}

func (im *Importer) run(ctx context.Context, items []ImportItemWithMatch) {
	for i := range items {
		im.mu.Lock()
		if im.cancelled {
			im.prog.Cancelled = true
			im.mu.Unlock()
			break
		}
		im.prog.CurrentIndex = i
		im.prog.CurrentItem = items[i].Item.Title
		im.mu.Unlock()

		if im.progressManager != nil {
			pct := (i * 100) / len(items)
			im.progressManager.UpdateActivity(importActivityID, fmt.Sprintf("Importing: %s", items[i].Item.Title), pct)
		}

		im.importItem(ctx, &items[i])
	}

	im.mu.Lock()
	im.prog.InProgress = false
	im.prog.CurrentItem = ""
	final := copyProgress(im.prog)
	im.mu.Unlock()

	if im.progressManager != nil {
		switch {
		case final.Cancelled:
			im.progressManager.CancelActivity(importActivityID)
		case len(final.Errors) > 0:
			im.progressManager.FailActivity(importActivityID, fmt.Sprintf("Completed with %d errors", len(final.Errors)))
		default:
			im.progressManager.CompleteActivity(importActivityID, fmt.Sprintf("Imported %d items", final.CompletedSuccessfully))
		}
	}

	im.logger.Info().
		Int("total", final.TotalItems).
		Int("imported", final.CompletedSuccessfully).
		Int("skipped", final.Skipped).
		Int("errors", len(final.Errors)).
		Bool("cancelled", final.Cancelled).
		Msg("Batch import finished")
}

func (im *Importer) importItem(ctx context.Context, item *ImportItemWithMatch) {
	// Re-filter defensively: anything non-importable is a skip, never a failure
	candidate, ok := ResolvedCandidate(item.Status)
	if !ok {
		im.recordSkip(item, candidate)
		return
	}

	entry, err := im.library.Create(ctx, &library.CreateEntryInput{
		MediaType: item.Item.MediaType,
		Title:     candidate.Title,
		Year:      candidate.Year,
		TmdbID:    candidate.TmdbID,
		PosterURL: candidate.PosterURL,
		Rating:    item.Item.Rating,
		Notes:     item.Item.Notes,
	})
	if err != nil {
		im.recordError(item, err)
		return
	}

	// The entry exists at this point, but a lost friend or watch still means
	// the item did not import as described. One bucket per item: the first
	// attach failure moves it to the error bucket instead of success.
	var attachErr error

	friendIDs := make([]int64, 0, len(item.Item.FriendNames))
	for _, name := range item.Item.FriendNames {
		friend, err := im.friends.EnsureByName(ctx, name)
		if err != nil {
			im.logger.Warn().Err(err).Str("name", name).Msg("Failed to ensure friend")
			if attachErr == nil {
				attachErr = fmt.Errorf("ensure friend %q: %w", name, err)
			}
			continue
		}
		friendIDs = append(friendIDs, friend.ID)
	}

	for _, date := range item.Item.WatchedDates {
		if _, err := im.library.AddWatch(ctx, entry.ID, &library.AddWatchInput{
			WatchedOn: date,
			FriendIDs: friendIDs,
		}); err != nil {
			im.logger.Warn().Err(err).Str("title", candidate.Title).Str("date", date).Msg("Failed to record watch")
			if attachErr == nil {
				attachErr = fmt.Errorf("record watch on %s: %w", date, err)
			}
		}
	}

	if attachErr != nil {
		im.recordError(item, attachErr)
		return
	}
	im.recordSuccess(item, candidate)
}

func (im *Importer) recordSuccess(item *ImportItemWithMatch, candidate Candidate) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.prog.CompletedSuccessfully++
	im.prog.ImportedItems = append(im.prog.ImportedItems, displayRecord(item, candidate))
}

func (im *Importer) recordSkip(item *ImportItemWithMatch, candidate Candidate) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.prog.Skipped++
	im.prog.SkippedItems = append(im.prog.SkippedItems, displayRecord(item, candidate))
}

func (im *Importer) recordError(item *ImportItemWithMatch, err error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.prog.Errors = append(im.prog.Errors, fmt.Sprintf("%s: %v", item.Item.Title, err))
}

func displayRecord(item *ImportItemWithMatch, candidate Candidate) ImportedRecord {
	rec := ImportedRecord{
		Title:       item.Item.Title,
		Year:        item.Item.Year,
		MediaType:   item.Item.MediaType,
		Rating:      item.Item.Rating,
		FriendNames: item.Item.FriendNames,
	}
	if candidate.TmdbID != 0 {
		rec.Title = candidate.Title
		rec.Year = candidate.Year
		rec.PosterURL = candidate.PosterURL
	}
	if len(item.Item.WatchedDates) > 0 {
		rec.WatchedOn = item.Item.WatchedDates[len(item.Item.WatchedDates)-1]
	}
	return rec
}

func copyProgress(p ProgressSnapshot) ProgressSnapshot {
	out := p
	out.Errors = append([]string(nil), p.Errors...)
	out.ImportedItems = append([]ImportedRecord(nil), p.ImportedItems...)
	out.SkippedItems = append([]ImportedRecord(nil), p.SkippedItems...)
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return out
}
