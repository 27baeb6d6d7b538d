package watchimport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/friends"
	"github.com/cinemarco/cinemarco/internal/library"
)

// Similarity threshold for exact-match classification. Jaro-Winkler
// favors shared prefixes, which suits media titles.
const exactMatchThreshold = 0.85

// ErrCatalogUnavailable is returned when every catalog lookup in a preview
// pass fails, which indicates an outage rather than per-item misses.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Catalog resolves a title/year/media-type tuple to candidate records.
type Catalog interface {
	Search(ctx context.Context, title string, year int, mediaType library.MediaType) ([]Candidate, error)
	SearchFreeText(ctx context.Context, query string, mediaType library.MediaType) ([]Candidate, error)
}

// LibraryIndex checks whether a catalog identifier already has a local entry.
type LibraryIndex interface {
	GetByTmdbID(ctx context.Context, mediaType library.MediaType, tmdbID int) (*library.Entry, error)
}

// FriendIndex checks whether a friend name is already known locally.
type FriendIndex interface {
	GetByName(ctx context.Context, name string) (*friends.Friend, error)
}

// Matcher classifies parsed items against the catalog. Read-only: its only
// side effects are catalog lookups.
type Matcher struct {
	catalog    Catalog
	libraryIdx LibraryIndex
	friendIdx  FriendIndex
	logger     zerolog.Logger
}

// NewMatcher creates a new matcher.
func NewMatcher(catalog Catalog, libraryIdx LibraryIndex, friendIdx FriendIndex, logger zerolog.Logger) *Matcher {
	return &Matcher{
		catalog:    catalog,
		libraryIdx: libraryIdx,
		friendIdx:  friendIdx,
		logger:     logger.With().Str("component", "import-matcher").Logger(),
	}
}

// Preview queries the catalog for every parsed item and aggregates the
// classification. Lookups run sequentially in item order so repeated runs
// against a stable catalog classify identically.
func (m *Matcher) Preview(ctx context.Context, parsed *ParseResult) (*MatcherPreview, error) {
	preview := &MatcherPreview{
		TotalItems: len(parsed.Items),
		Items:      make([]ImportItemWithMatch, len(parsed.Items)),
	}

	lookupFailures := 0
	for i, item := range parsed.Items {
		matched := ImportItemWithMatch{Item: item}

		candidates, err := m.catalog.Search(ctx, item.Title, item.Year, item.MediaType)
		if err != nil {
			// A single failed lookup degrades the item, not the preview
			m.logger.Warn().Err(err).Str("title", item.Title).Msg("Catalog lookup failed")
			lookupFailures++
			matched.SetStatus(NoMatchFound{})
			preview.Items[i] = matched
			continue
		}

		matched.SetStatus(classify(item, candidates))
		matched.ExistsInLibrary = m.existsInLibrary(ctx, item.MediaType, matched.Status)
		preview.Items[i] = matched
	}

	if len(parsed.Items) > 0 && lookupFailures == len(parsed.Items) {
		return nil, ErrCatalogUnavailable
	}

	for i := range preview.Items {
		switch preview.Items[i].Status.(type) {
		case ExactMatch:
			preview.ExactMatches++
		case MultipleMatches:
			preview.MultipleMatches++
		case NoMatchFound:
			preview.NoMatches++
		}
		if preview.Items[i].ExistsInLibrary {
			preview.InLibrary++
		}
	}

	preview.NewFriendNames = m.detectNewFriends(ctx, parsed.Items)
	preview.Collections = suggestCollections(parsed.Collections, preview.Items)

	m.logger.Info().
		Int("total", preview.TotalItems).
		Int("exact", preview.ExactMatches).
		Int("ambiguous", preview.MultipleMatches).
		Int("unmatched", preview.NoMatches).
		Int("inLibrary", preview.InLibrary).
		Msg("Matching preview built")

	return preview, nil
}

// ManualSearch issues an ad-hoc catalog query independent of any item's
// original title. It never mutates item state.
func (m *Matcher) ManualSearch(ctx context.Context, query string, mediaType library.MediaType) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	return m.catalog.SearchFreeText(ctx, query, mediaType)
}

// classify applies the classification rule: zero candidates is a miss, a
// single title/year-compatible candidate is exact, anything else is
// ambiguous. Multiple candidates are always ambiguous, no matter how
// confident the first looks; the user disambiguates. Candidate order from
// the catalog is preserved.
func classify(item ImportItem, candidates []Candidate) MatchStatus {
	switch {
	case len(candidates) == 0:
		return NoMatchFound{}
	case len(candidates) == 1:
		c := candidates[0]
		if titleSimilarity(item.Title, c.Title) >= exactMatchThreshold && yearCompatible(item.Year, c.Year) {
			return ExactMatch{Candidate: c}
		}
		return MultipleMatches{Candidates: candidates}
	default:
		return MultipleMatches{Candidates: candidates}
	}
}

func (m *Matcher) existsInLibrary(ctx context.Context, mediaType library.MediaType, status MatchStatus) bool {
	check := func(c Candidate) bool {
		_, err := m.libraryIdx.GetByTmdbID(ctx, mediaType, c.TmdbID)
		return err == nil
	}

	switch s := status.(type) {
	case ExactMatch:
		return check(s.Candidate)
	case MatchConfirmed:
		return check(s.Candidate)
	case MultipleMatches:
		// Checked per candidate so the UI can warn before resolution
		for _, c := range s.Candidates {
			if check(c) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) detectNewFriends(ctx context.Context, items []ImportItem) []string {
	seen := make(map[string]bool)
	var newNames []string
	for _, item := range items {
		for _, name := range item.FriendNames {
			lower := strings.ToLower(name)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			if _, err := m.friendIdx.GetByName(ctx, name); errors.Is(err, friends.ErrFriendNotFound) {
				newNames = append(newNames, name)
			}
		}
	}
	sort.Strings(newNames)
	return newNames
}

// suggestCollections builds advisory collection suggestions. Members with
// a determinate match count as resolved; the rest stay unresolved without
// invalidating the suggestion.
func suggestCollections(sources []SourceCollection, items []ImportItemWithMatch) []CollectionSuggestion {
	var suggestions []CollectionSuggestion
	for _, src := range sources {
		s := CollectionSuggestion{
			Name:        src.Name,
			ItemIndexes: src.ItemIndexes,
			Selected:    true,
		}
		for _, idx := range src.ItemIndexes {
			if idx < 0 || idx >= len(items) {
				continue
			}
			if Importable(items[idx].Status) {
				s.ResolvedCount++
			} else {
				s.UnresolvedCount++
			}
		}
		suggestions = append(suggestions, s)
	}
	return suggestions
}

func titleSimilarity(a, b string) float64 {
	return float64(edlib.JaroWinklerSimilarity(normalizeTitle(a), normalizeTitle(b)))
}

func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func yearCompatible(itemYear, candidateYear int) bool {
	if itemYear == 0 || candidateYear == 0 {
		return true
	}
	diff := itemYear - candidateYear
	return diff >= -1 && diff <= 1
}
