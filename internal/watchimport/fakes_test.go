package watchimport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cinemarco/cinemarco/internal/friends"
	"github.com/cinemarco/cinemarco/internal/library"
)

// fakeCatalog serves canned candidate lists keyed by lowercased title.
type fakeCatalog struct {
	results   map[string][]Candidate
	err       error
	callCount int
}

func (f *fakeCatalog) Search(ctx context.Context, title string, year int, mediaType library.MediaType) ([]Candidate, error) {
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[strings.ToLower(title)], nil
}

func (f *fakeCatalog) SearchFreeText(ctx context.Context, query string, mediaType library.MediaType) ([]Candidate, error) {
	return f.Search(ctx, query, 0, mediaType)
}

// fakeLibraryIdx reports the given TMDB IDs as already in the library.
type fakeLibraryIdx struct {
	known map[int]bool
}

func (f *fakeLibraryIdx) GetByTmdbID(ctx context.Context, mediaType library.MediaType, tmdbID int) (*library.Entry, error) {
	if f.known[tmdbID] {
		return &library.Entry{ID: int64(tmdbID), TmdbID: tmdbID}, nil
	}
	return nil, library.ErrEntryNotFound
}

// fakeFriendIdx knows a fixed set of friend names.
type fakeFriendIdx struct {
	known map[string]bool
}

func (f *fakeFriendIdx) GetByName(ctx context.Context, name string) (*friends.Friend, error) {
	if f.known[strings.ToLower(name)] {
		return &friends.Friend{ID: 1, Name: name}, nil
	}
	return nil, friends.ErrFriendNotFound
}

// fakeLibraryWriter records created entries and fails titles on demand.
type fakeLibraryWriter struct {
	mu        sync.Mutex
	created   []string
	watches   int
	failWith  map[string]error
	failWatch error         // when set, every AddWatch fails with it
	entered   chan struct{} // when set, signaled as each Create begins
	gate      chan struct{} // when set, Create blocks until a receive
	nextID    int64
}

func (f *fakeLibraryWriter) Create(ctx context.Context, input *library.CreateEntryInput) (*library.Entry, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failWith[input.Title]; ok {
		return nil, err
	}
	f.nextID++
	f.created = append(f.created, input.Title)
	return &library.Entry{ID: f.nextID, Title: input.Title, TmdbID: input.TmdbID}, nil
}

func (f *fakeLibraryWriter) AddWatch(ctx context.Context, entryID int64, input *library.AddWatchInput) (*library.Watch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWatch != nil {
		return nil, f.failWatch
	}
	f.watches++
	return &library.Watch{ID: int64(f.watches), EntryID: entryID, WatchedOn: input.WatchedOn}, nil
}

func (f *fakeLibraryWriter) createdTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

// fakeFriendEnsurer hands out sequential IDs per distinct name.
type fakeFriendEnsurer struct {
	mu    sync.Mutex
	names map[string]int64
}

func (f *fakeFriendEnsurer) EnsureByName(ctx context.Context, name string) (*friends.Friend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.names == nil {
		f.names = make(map[string]int64)
	}
	key := strings.ToLower(name)
	if id, ok := f.names[key]; ok {
		return &friends.Friend{ID: id, Name: name}, nil
	}
	id := int64(len(f.names) + 1)
	f.names[key] = id
	return &friends.Friend{ID: id, Name: name}, nil
}

var errDuplicate = errors.New("duplicate entry")

func eligibleItem(title string, year int, tmdbID int) ImportItemWithMatch {
	item := ImportItemWithMatch{
		Item: ImportItem{Title: title, Year: year, MediaType: library.MediaTypeMovie},
	}
	item.SetStatus(ExactMatch{Candidate: Candidate{
		TmdbID: tmdbID, Title: title, Year: year, MediaType: library.MediaTypeMovie,
	}})
	return item
}
