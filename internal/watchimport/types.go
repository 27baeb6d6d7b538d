// Package watchimport implements the watch-history import wizard: parsing
// an uploaded history file, matching items against the TMDB catalog,
// resolving ambiguous matches, and executing the batch import.
package watchimport

import (
	"github.com/cinemarco/cinemarco/internal/library"
)

// ImportItem is one row parsed from an uploaded history file. Immutable
// once parsed.
type ImportItem struct {
	Title        string            `json:"title"`
	Year         int               `json:"year,omitempty"`
	MediaType    library.MediaType `json:"mediaType"`
	WatchedDates []string          `json:"watchedDates,omitempty"` // YYYY-MM-DD, ordered
	Rating       library.Rating    `json:"rating,omitempty"`
	FriendNames  []string          `json:"friendNames,omitempty"`
	Notes        string            `json:"notes,omitempty"`
}

// Candidate is a catalog record returned for a search query.
type Candidate struct {
	TmdbID    int               `json:"tmdbId"`
	Title     string            `json:"title"`
	Year      int               `json:"year,omitempty"`
	PosterURL string            `json:"posterUrl,omitempty"`
	MediaType library.MediaType `json:"mediaType"`
}

// MatchStatus is the resolution state of an import item. It is a closed
// set of variants; consumers switch on the concrete type.
type MatchStatus interface {
	Kind() MatchKind
}

// MatchKind names a MatchStatus variant for serialization.
type MatchKind string

const (
	KindNotMatched      MatchKind = "notMatched"
	KindExactMatch      MatchKind = "exactMatch"
	KindMultipleMatches MatchKind = "multipleMatches"
	KindMatchConfirmed  MatchKind = "matchConfirmed"
	KindNoMatchFound    MatchKind = "noMatchFound"
)

// NotMatched is the initial status before the matcher has run.
type NotMatched struct{}

// ExactMatch means exactly one catalog candidate matched.
type ExactMatch struct {
	Candidate Candidate `json:"candidate"`
}

// MultipleMatches means the catalog returned an ambiguous candidate set,
// ordered by the catalog's relevance ranking.
type MultipleMatches struct {
	Candidates []Candidate `json:"candidates"`
}

// MatchConfirmed means the user manually resolved an ambiguous item.
type MatchConfirmed struct {
	Candidate Candidate `json:"candidate"`
}

// NoMatchFound means no candidate was found, or the user skipped the item.
type NoMatchFound struct{}

func (NotMatched) Kind() MatchKind      { return KindNotMatched }
func (ExactMatch) Kind() MatchKind      { return KindExactMatch }
func (MultipleMatches) Kind() MatchKind { return KindMultipleMatches }
func (MatchConfirmed) Kind() MatchKind  { return KindMatchConfirmed }
func (NoMatchFound) Kind() MatchKind    { return KindNoMatchFound }

// Importable reports whether a status is eligible for the batch importer.
func Importable(status MatchStatus) bool {
	switch status.(type) {
	case ExactMatch, MatchConfirmed:
		return true
	default:
		return false
	}
}

// ResolvedCandidate returns the candidate carried by a determinate status.
func ResolvedCandidate(status MatchStatus) (Candidate, bool) {
	switch s := status.(type) {
	case ExactMatch:
		return s.Candidate, true
	case MatchConfirmed:
		return s.Candidate, true
	default:
		return Candidate{}, false
	}
}

// ImportItemWithMatch pairs an item with its current match status. Created
// by the matcher, mutated only by the resolution session, and frozen once
// the import starts.
type ImportItemWithMatch struct {
	Item            ImportItem  `json:"item"`
	Status          MatchStatus `json:"-"`
	StatusKind      MatchKind   `json:"status"`
	Candidate       *Candidate  `json:"candidate,omitempty"`
	Candidates      []Candidate `json:"candidates,omitempty"`
	ExistsInLibrary bool        `json:"existsInLibrary"`
}

// SetStatus updates the status and its serialized projection together.
func (m *ImportItemWithMatch) SetStatus(status MatchStatus) {
	m.Status = status
	m.StatusKind = status.Kind()
	m.Candidate = nil
	m.Candidates = nil
	switch s := status.(type) {
	case ExactMatch:
		c := s.Candidate
		m.Candidate = &c
	case MatchConfirmed:
		c := s.Candidate
		m.Candidate = &c
	case MultipleMatches:
		m.Candidates = s.Candidates
	}
}

// CollectionSuggestion is a named grouping detected in the source file.
// Advisory only: it never blocks import of individual items.
type CollectionSuggestion struct {
	Name            string `json:"name"`
	ItemIndexes     []int  `json:"itemIndexes"`
	ResolvedCount   int    `json:"resolvedCount"`
	UnresolvedCount int    `json:"unresolvedCount"`
	Selected        bool   `json:"selected"`
}

// MatcherPreview aggregates the matcher's classification of a parsed file.
type MatcherPreview struct {
	TotalItems      int                    `json:"totalItems"`
	InLibrary       int                    `json:"inLibrary"`
	ExactMatches    int                    `json:"exactMatches"`
	MultipleMatches int                    `json:"multipleMatches"`
	NoMatches       int                    `json:"noMatches"`
	Items           []ImportItemWithMatch  `json:"items"`
	NewFriendNames  []string               `json:"newFriendNames,omitempty"`
	Collections     []CollectionSuggestion `json:"collections,omitempty"`
}

// ImportedRecord is a lightweight display record for the result summary.
type ImportedRecord struct {
	Title       string            `json:"title"`
	Year        int               `json:"year,omitempty"`
	PosterURL   string            `json:"posterUrl,omitempty"`
	MediaType   library.MediaType `json:"mediaType"`
	Rating      library.Rating    `json:"rating,omitempty"`
	WatchedOn   string            `json:"watchedOn,omitempty"`
	FriendNames []string          `json:"friendNames,omitempty"`
}

// ProgressSnapshot is an immutable copy of the batch importer's state,
// safe to read while the run loop keeps mutating the live record.
type ProgressSnapshot struct {
	InProgress            bool             `json:"inProgress"`
	Cancelled             bool             `json:"cancelled"`
	CurrentItem           string           `json:"currentItem,omitempty"`
	CurrentIndex          int              `json:"currentIndex"`
	TotalItems            int              `json:"totalItems"`
	CompletedSuccessfully int              `json:"completedSuccessfully"`
	Skipped               int              `json:"skipped"`
	Errors                []string         `json:"errors"`
	ImportedItems         []ImportedRecord `json:"importedItems"`
	SkippedItems          []ImportedRecord `json:"skippedItems"`
}

// WizardStep is one of the five ordered wizard states.
type WizardStep string

const (
	StepSelectFile       WizardStep = "selectFile"
	StepMatchingPreview  WizardStep = "matchingPreview"
	StepResolveAmbiguous WizardStep = "resolveAmbiguous"
	StepImporting        WizardStep = "importing"
	StepComplete         WizardStep = "complete"
)

// Valid reports whether the step is a known wizard step.
func (s WizardStep) Valid() bool {
	switch s {
	case StepSelectFile, StepMatchingPreview, StepResolveAmbiguous, StepImporting, StepComplete:
		return true
	}
	return false
}
