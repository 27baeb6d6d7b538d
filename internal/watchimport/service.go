package watchimport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/collections"
	"github.com/cinemarco/cinemarco/internal/library"
)

var (
	ErrNoActiveFile      = errors.New("no file has been parsed")
	ErrNoPreview         = errors.New("no matching preview available")
	ErrNotResolving      = errors.New("no resolution session is active")
	ErrWrongStep         = errors.New("operation not valid in current step")
	ErrNoEligibleItems   = errors.New("no items are eligible for import")
	ErrUnknownCollection = errors.New("unknown collection suggestion")
)

// CollectionCreator creates a collection from an accepted suggestion.
type CollectionCreator interface {
	CreateWithEntries(ctx context.Context, name, description string, entryIDs []int64) (*collections.Collection, error)
}

// WizardState is the wizard's externally visible state. One is built per
// request from the live session.
type WizardState struct {
	SessionID      string           `json:"sessionId"`
	Step           WizardStep       `json:"step"`
	FileName       string           `json:"fileName,omitempty"`
	ParsedState    RemoteState      `json:"parsedState"`
	ParseError     string           `json:"parseError,omitempty"`
	SkippedOnParse []ItemError      `json:"skippedOnParse,omitempty"`
	PreviewState   RemoteState      `json:"previewState"`
	PreviewError   string           `json:"previewError,omitempty"`
	Preview        *MatcherPreview  `json:"preview,omitempty"`
	ResolvingIndex *int             `json:"resolvingIndex,omitempty"`
	Progress       ProgressSnapshot `json:"progress"`
}

// Service owns a single wizard session. All mutations are serialized
// through one mutex, so no two state transitions ever race; the batch
// importer is the only component that runs outside this lock.
type Service struct {
	matcher     *Matcher
	importer    *Importer
	libraryIdx  LibraryIndex
	collections CollectionCreator
	logger      zerolog.Logger

	mu      sync.Mutex
	session session
}

type session struct {
	id             string
	step           WizardStep
	fileName       string
	parsed         RemoteData[*ParseResult]
	preview        RemoteData[*MatcherPreview]
	resolvingIndex int
}

// NewService creates a new import wizard service.
func NewService(matcher *Matcher, importer *Importer, libraryIdx LibraryIndex, collectionSvc CollectionCreator, logger zerolog.Logger) *Service {
	return &Service{
		matcher:     matcher,
		importer:    importer,
		libraryIdx:  libraryIdx,
		collections: collectionSvc,
		logger:      logger.With().Str("component", "import-wizard").Logger(),
		session:     freshSession(),
	}
}

func freshSession() session {
	return session{
		id:             uuid.NewString(),
		step:           StepSelectFile,
		parsed:         NotAsked[*ParseResult](),
		preview:        NotAsked[*MatcherPreview](),
		resolvingIndex: noResolving,
	}
}

// State returns the current wizard state.
func (s *Service) State() WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Service) stateLocked() WizardState {
	state := WizardState{
		SessionID:    s.session.id,
		Step:         s.session.step,
		FileName:     s.session.fileName,
		ParsedState:  s.session.parsed.State(),
		PreviewState: s.session.preview.State(),
		Progress:     s.importer.Snapshot(),
	}
	if msg, failed := s.session.parsed.Err(); failed {
		state.ParseError = msg
	}
	if parsed, ok := s.session.parsed.Value(); ok {
		state.SkippedOnParse = parsed.SkippedItems
	}
	if msg, failed := s.session.preview.Err(); failed {
		state.PreviewError = msg
	}
	if preview, ok := s.session.preview.Value(); ok {
		state.Preview = preview
	}
	if s.session.resolvingIndex != noResolving {
		idx := s.session.resolvingIndex
		state.ResolvingIndex = &idx
	}
	return state
}

// ParseFile parses an uploaded history file and, when it yields items,
// builds the matching preview and advances to the preview step.
func (s *Service) ParseFile(ctx context.Context, fileName string, raw []byte) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.fileName = fileName
	s.session.parsed = Loading[*ParseResult]()
	s.session.preview = NotAsked[*MatcherPreview]()
	s.session.resolvingIndex = noResolving

	parsed, err := Parse(raw)
	if err != nil {
		s.session.parsed = Failure[*ParseResult](err.Error())
		return s.stateLocked(), err
	}
	if len(parsed.Items) == 0 {
		err := fmt.Errorf("%w: file contains no valid items", ErrMalformedFile)
		s.session.parsed = Failure[*ParseResult](err.Error())
		return s.stateLocked(), err
	}
	s.session.parsed = Success(parsed)

	s.logger.Info().
		Str("file", fileName).
		Int("items", len(parsed.Items)).
		Int("skipped", len(parsed.SkippedItems)).
		Msg("Parsed import file")

	s.buildPreviewLocked(ctx, parsed)

	if _, ok := s.session.preview.Value(); ok {
		s.session.step, _ = Transition(s.session.step, EventFileParsed)
	}
	return s.stateLocked(), nil
}

// RetryPreview re-runs the matching pass after a step-level failure, such
// as a catalog outage.
func (s *Service) RetryPreview(ctx context.Context) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parsed, ok := s.session.parsed.Value()
	if !ok {
		return s.stateLocked(), ErrNoActiveFile
	}

	s.buildPreviewLocked(ctx, parsed)
	if _, ok := s.session.preview.Value(); ok && s.session.step == StepSelectFile {
		s.session.step, _ = Transition(s.session.step, EventFileParsed)
	}
	return s.stateLocked(), nil
}

func (s *Service) buildPreviewLocked(ctx context.Context, parsed *ParseResult) {
	s.session.preview = Loading[*MatcherPreview]()
	preview, err := s.matcher.Preview(ctx, parsed)
	if err != nil {
		s.session.preview = Failure[*MatcherPreview](err.Error())
		return
	}
	s.session.preview = Success(preview)
}

// StartResolving opens a resolution session over the ambiguous items. If
// none exists, the session is immediately complete and the step is
// unchanged.
func (s *Service) StartResolving() (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preview, ok := s.session.preview.Value()
	if !ok {
		return s.stateLocked(), ErrNoPreview
	}

	cursor := startResolving(preview.Items)
	if cursor == noResolving {
		return s.stateLocked(), nil
	}

	s.session.resolvingIndex = cursor
	s.session.step, _ = Transition(s.session.step, EventResolveRequested)
	return s.stateLocked(), nil
}

// ConfirmMatch resolves the ambiguous item at index with the chosen
// candidate, then advances the cursor forward. When no ambiguous item
// remains the wizard returns to the preview step.
func (s *Service) ConfirmMatch(ctx context.Context, index int, chosen Candidate) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preview, err := s.resolvingPreviewLocked(index)
	if err != nil {
		return s.stateLocked(), err
	}

	cursor := confirmMatch(preview.Items, index, chosen)
	preview.Items[index].ExistsInLibrary = s.inLibraryLocked(ctx, preview.Items[index].Item.MediaType, chosen)
	s.finishResolutionStepLocked(preview, cursor)
	return s.stateLocked(), nil
}

// SkipItem marks the ambiguous item at index as not matched, excluding it
// from import, then advances the cursor.
func (s *Service) SkipItem(index int) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preview, err := s.resolvingPreviewLocked(index)
	if err != nil {
		return s.stateLocked(), err
	}

	cursor := skipItem(preview.Items, index)
	s.finishResolutionStepLocked(preview, cursor)
	return s.stateLocked(), nil
}

func (s *Service) resolvingPreviewLocked(index int) (*MatcherPreview, error) {
	if s.session.step != StepResolveAmbiguous {
		return nil, ErrWrongStep
	}
	preview, ok := s.session.preview.Value()
	if !ok {
		return nil, ErrNoPreview
	}
	if s.session.resolvingIndex == noResolving || index != s.session.resolvingIndex {
		return nil, ErrNotResolving
	}
	return preview, nil
}

func (s *Service) finishResolutionStepLocked(preview *MatcherPreview, cursor int) {
	s.session.resolvingIndex = cursor
	recountPreview(preview)
	if cursor == noResolving {
		s.session.step, _ = Transition(s.session.step, EventAmbiguousResolved)
	}
}

func (s *Service) inLibraryLocked(ctx context.Context, mediaType library.MediaType, candidate Candidate) bool {
	_, err := s.libraryIdx.GetByTmdbID(ctx, mediaType, candidate.TmdbID)
	return err == nil
}

// ManualSearch issues an ad-hoc catalog query for the resolution UI. It
// never mutates item state; picking a result goes through ConfirmMatch.
func (s *Service) ManualSearch(ctx context.Context, query string, mediaType library.MediaType) ([]Candidate, error) {
	return s.matcher.ManualSearch(ctx, query, mediaType)
}

// StartImport filters the preview down to eligible items and starts the
// batch asynchronously. Progress is retrieved via Poll.
func (s *Service) StartImport(ctx context.Context) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.step != StepMatchingPreview {
		return s.stateLocked(), ErrWrongStep
	}
	preview, ok := s.session.preview.Value()
	if !ok {
		return s.stateLocked(), ErrNoPreview
	}

	eligible := make([]ImportItemWithMatch, 0, len(preview.Items))
	for _, item := range preview.Items {
		if Importable(item.Status) {
			eligible = append(eligible, item)
		}
	}
	if len(eligible) == 0 {
		return s.stateLocked(), ErrNoEligibleItems
	}

	// Detached from the request context: the batch outlives the request
	if err := s.importer.Start(context.WithoutCancel(ctx), eligible); err != nil {
		return s.stateLocked(), err
	}

	s.session.step, _ = Transition(s.session.step, EventProceedToImport)
	return s.stateLocked(), nil
}

// Poll returns the current state and, when the batch has reached its
// terminal condition, advances the wizard to the complete step.
func (s *Service) Poll() WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.step == StepImporting && !s.importer.Snapshot().InProgress {
		s.session.step, _ = Transition(s.session.step, EventImportFinished)
	}
	return s.stateLocked()
}

// CancelImport requests a cooperative stop of the running batch.
func (s *Service) CancelImport() WizardState {
	s.importer.Cancel()
	return s.Poll()
}

// AcceptCollection creates a library collection from a detected
// suggestion, containing the suggestion's successfully imported members.
func (s *Service) AcceptCollection(ctx context.Context, name string) (*collections.Collection, error) {
	s.mu.Lock()
	preview, ok := s.session.preview.Value()
	if !ok {
		s.mu.Unlock()
		return nil, ErrNoPreview
	}

	var suggestion *CollectionSuggestion
	for i := range preview.Collections {
		if preview.Collections[i].Name == name {
			suggestion = &preview.Collections[i]
			break
		}
	}
	if suggestion == nil {
		s.mu.Unlock()
		return nil, ErrUnknownCollection
	}

	var members []ImportItemWithMatch
	for _, idx := range suggestion.ItemIndexes {
		if idx >= 0 && idx < len(preview.Items) {
			members = append(members, preview.Items[idx])
		}
	}
	s.mu.Unlock()

	var entryIDs []int64
	for _, member := range members {
		candidate, ok := ResolvedCandidate(member.Status)
		if !ok {
			continue
		}
		entry, err := s.libraryIdx.GetByTmdbID(ctx, member.Item.MediaType, candidate.TmdbID)
		if err != nil {
			continue
		}
		entryIDs = append(entryIDs, entry.ID)
	}
	if len(entryIDs) == 0 {
		return nil, fmt.Errorf("%w: no imported members", ErrUnknownCollection)
	}

	return s.collections.CreateWithEntries(ctx, name, "", entryIDs)
}

// Restart discards the session and returns the wizard to file selection.
// Only valid from the complete step; restarting mid-import would reset the
// wizard while the batch is still writing.
func (s *Service) Restart() (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := Transition(s.session.step, EventRestart)
	if !ok {
		return s.stateLocked(), ErrWrongStep
	}
	s.importer.Reset()
	s.session = freshSession()
	s.session.step = next
	return s.stateLocked(), nil
}

// GoToStep jumps to an arbitrary step. Escape hatch: always allowed and
// never resets subordinate data, so moving back does not lose work.
func (s *Service) GoToStep(step WizardStep) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !step.Valid() {
		return s.stateLocked(), fmt.Errorf("unknown step %q", step)
	}
	s.session.step = step
	return s.stateLocked(), nil
}
