package watchimport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/collections"
)

type fakeCollectionCreator struct {
	created []string
	lastIDs []int64
}

func (f *fakeCollectionCreator) CreateWithEntries(ctx context.Context, name, description string, entryIDs []int64) (*collections.Collection, error) {
	f.created = append(f.created, name)
	f.lastIDs = entryIDs
	return &collections.Collection{ID: int64(len(f.created)), Name: name, EntryCount: len(entryIDs)}, nil
}

func newWizard(catalog *fakeCatalog, libIdx *fakeLibraryIdx, writer *fakeLibraryWriter) (*Service, *fakeCollectionCreator) {
	if libIdx == nil {
		libIdx = &fakeLibraryIdx{}
	}
	if writer == nil {
		writer = &fakeLibraryWriter{}
	}
	matcher := NewMatcher(catalog, libIdx, &fakeFriendIdx{}, zerolog.Nop())
	importer := NewImporter(writer, &fakeFriendEnsurer{}, nil, zerolog.Nop())
	creator := &fakeCollectionCreator{}
	return NewService(matcher, importer, libIdx, creator, zerolog.Nop()), creator
}

func pollUntilComplete(t *testing.T, svc *Service) WizardState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state := svc.Poll()
		if state.Step == StepComplete {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("wizard did not reach complete step")
	return WizardState{}
}

func TestWizardHappyPath(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{
		"the matrix":   {{TmdbID: 603, Title: "The Matrix", Year: 1999}},
		"breaking bad": {{TmdbID: 1396, Title: "Breaking Bad", Year: 2008}},
	}}
	writer := &fakeLibraryWriter{}
	svc, _ := newWizard(catalog, nil, writer)

	raw := []byte(`{"items": [
		{"title": "The Matrix", "year": 1999, "mediaType": "movie"},
		{"title": "Breaking Bad", "year": 2008, "mediaType": "series"},
		{"title": "Unknown Obscure Title", "year": 2099, "mediaType": "movie"}
	]}`)

	state, err := svc.ParseFile(context.Background(), "history.json", raw)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if state.Step != StepMatchingPreview {
		t.Fatalf("Step = %s, want matchingPreview", state.Step)
	}
	if state.Preview.TotalItems != 3 || state.Preview.ExactMatches != 2 || state.Preview.NoMatches != 1 {
		t.Errorf("Preview = %+v, want 3 total, 2 exact, 1 unmatched", state.Preview)
	}

	state, err = svc.StartImport(context.Background())
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	if state.Step != StepImporting {
		t.Fatalf("Step = %s, want importing", state.Step)
	}

	final := pollUntilComplete(t, svc)
	if final.Progress.CompletedSuccessfully != 2 {
		t.Errorf("CompletedSuccessfully = %d, want 2", final.Progress.CompletedSuccessfully)
	}
	if final.Progress.Skipped != 0 || len(final.Progress.Errors) != 0 {
		t.Errorf("Skipped/Errors = %d/%v, want 0/none", final.Progress.Skipped, final.Progress.Errors)
	}

	previousSession := final.SessionID
	state, err = svc.Restart()
	if err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if state.Step != StepSelectFile {
		t.Errorf("Step after restart = %s, want selectFile", state.Step)
	}
	if state.Preview != nil {
		t.Error("preview survived restart, want discarded session")
	}
	if state.SessionID == "" || state.SessionID == previousSession {
		t.Errorf("SessionID after restart = %q, want a new session", state.SessionID)
	}
	if state.Progress.TotalItems != 0 || state.Progress.CompletedSuccessfully != 0 {
		t.Errorf("Progress after restart = %+v, want the previous run's counts cleared", state.Progress)
	}
}

func TestWizardRestartRejectedWhileImporting(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{
		"heat": {{TmdbID: 949, Title: "Heat", Year: 1995}},
	}}
	writer := &fakeLibraryWriter{entered: make(chan struct{}), gate: make(chan struct{})}
	svc, _ := newWizard(catalog, nil, writer)

	if _, err := svc.ParseFile(context.Background(), "a.json",
		[]byte(`{"items": [{"title": "Heat", "year": 1995, "mediaType": "movie"}]}`)); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if _, err := svc.StartImport(context.Background()); err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	<-writer.entered

	// The batch is mid-write; restarting now must be refused, not silently
	// reset the wizard underneath it
	state, err := svc.Restart()
	if !errors.Is(err, ErrWrongStep) {
		t.Errorf("Restart() while importing error = %v, want ErrWrongStep", err)
	}
	if state.Step != StepImporting {
		t.Errorf("Step = %s, want importing left in place", state.Step)
	}

	writer.gate <- struct{}{}
	final := pollUntilComplete(t, svc)
	if final.Progress.CompletedSuccessfully != 1 {
		t.Errorf("CompletedSuccessfully = %d, want 1", final.Progress.CompletedSuccessfully)
	}

	if _, err := svc.Restart(); err != nil {
		t.Errorf("Restart() after completion error = %v, want accepted", err)
	}
}

func TestWizardAmbiguousResolution(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{
		"dune": {
			{TmdbID: 438631, Title: "Dune", Year: 2021},
			{TmdbID: 841, Title: "Dune", Year: 1984},
		},
	}}
	svc, _ := newWizard(catalog, nil, nil)

	state, err := svc.ParseFile(context.Background(), "dune.json",
		[]byte(`{"items": [{"title": "Dune", "mediaType": "movie"}]}`))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if state.Preview.MultipleMatches != 1 {
		t.Fatalf("MultipleMatches = %d, want 1", state.Preview.MultipleMatches)
	}

	state, err = svc.StartResolving()
	if err != nil {
		t.Fatalf("StartResolving() error = %v", err)
	}
	if state.Step != StepResolveAmbiguous {
		t.Fatalf("Step = %s, want resolveAmbiguous", state.Step)
	}
	if state.ResolvingIndex == nil || *state.ResolvingIndex != 0 {
		t.Fatalf("ResolvingIndex = %v, want 0", state.ResolvingIndex)
	}

	state, err = svc.ConfirmMatch(context.Background(), 0, Candidate{TmdbID: 438631, Title: "Dune", Year: 2021})
	if err != nil {
		t.Fatalf("ConfirmMatch() error = %v", err)
	}
	if state.Step != StepMatchingPreview {
		t.Errorf("Step = %s, want matchingPreview after last resolution", state.Step)
	}
	if state.ResolvingIndex != nil {
		t.Errorf("ResolvingIndex = %v, want none", state.ResolvingIndex)
	}
	if state.Preview.ExactMatches != 1 || state.Preview.MultipleMatches != 0 {
		t.Errorf("counts = %d exact / %d ambiguous, want 1/0",
			state.Preview.ExactMatches, state.Preview.MultipleMatches)
	}
}

func TestWizardRejectsOutOfTurnResolution(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{
		"dune": {
			{TmdbID: 438631, Title: "Dune", Year: 2021},
			{TmdbID: 841, Title: "Dune", Year: 1984},
		},
	}}
	svc, _ := newWizard(catalog, nil, nil)

	if _, err := svc.ConfirmMatch(context.Background(), 0, Candidate{TmdbID: 438631}); !errors.Is(err, ErrWrongStep) {
		t.Errorf("ConfirmMatch() before resolving error = %v, want ErrWrongStep", err)
	}

	if _, err := svc.ParseFile(context.Background(), "dune.json",
		[]byte(`{"items": [{"title": "Dune", "mediaType": "movie"}]}`)); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if _, err := svc.StartResolving(); err != nil {
		t.Fatalf("StartResolving() error = %v", err)
	}

	// Only the item under the cursor may be resolved
	if _, err := svc.SkipItem(5); !errors.Is(err, ErrNotResolving) {
		t.Errorf("SkipItem(5) error = %v, want ErrNotResolving", err)
	}
}

func TestWizardMalformedFile(t *testing.T) {
	svc, _ := newWizard(&fakeCatalog{}, nil, nil)

	state, err := svc.ParseFile(context.Background(), "bad.json", []byte(`still not json`))
	if !errors.Is(err, ErrMalformedFile) {
		t.Fatalf("ParseFile() error = %v, want ErrMalformedFile", err)
	}
	if state.Step != StepSelectFile {
		t.Errorf("Step = %s, want selectFile (parse failure keeps the user on file selection)", state.Step)
	}
	if state.ParsedState != RemoteFailure {
		t.Errorf("ParsedState = %s, want failure", state.ParsedState)
	}
	if state.ParseError == "" {
		t.Error("ParseError empty, want actionable message")
	}
}

func TestWizardCatalogOutageIsRetryable(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("connection refused")}
	svc, _ := newWizard(catalog, nil, nil)

	state, err := svc.ParseFile(context.Background(), "a.json",
		[]byte(`{"items": [{"title": "Heat", "mediaType": "movie"}]}`))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if state.Step != StepSelectFile {
		t.Errorf("Step = %s, want selectFile while preview failed", state.Step)
	}
	if state.PreviewState != RemoteFailure {
		t.Fatalf("PreviewState = %s, want failure", state.PreviewState)
	}

	// Catalog recovers; retry succeeds without re-uploading the file
	catalog.err = nil
	catalog.results = map[string][]Candidate{"heat": {{TmdbID: 949, Title: "Heat", Year: 1995}}}

	state, err = svc.RetryPreview(context.Background())
	if err != nil {
		t.Fatalf("RetryPreview() error = %v", err)
	}
	if state.Step != StepMatchingPreview || state.Preview == nil {
		t.Errorf("Step = %s, Preview = %v, want preview step with data", state.Step, state.Preview)
	}
}

func TestGoToStepPreservesData(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{
		"heat": {{TmdbID: 949, Title: "Heat", Year: 1995}},
	}}
	svc, _ := newWizard(catalog, nil, nil)

	if _, err := svc.ParseFile(context.Background(), "a.json",
		[]byte(`{"items": [{"title": "Heat", "year": 1995, "mediaType": "movie"}]}`)); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	state, err := svc.GoToStep(StepSelectFile)
	if err != nil {
		t.Fatalf("GoToStep() error = %v", err)
	}
	if state.Step != StepSelectFile {
		t.Errorf("Step = %s, want selectFile", state.Step)
	}
	// Moving back must not lose parsed or matched work
	if state.Preview == nil || state.Preview.TotalItems != 1 {
		t.Errorf("Preview = %v, want preserved preview", state.Preview)
	}

	if _, err := svc.GoToStep("nowhere"); err == nil {
		t.Error("GoToStep(invalid) expected error")
	}
}

func TestAcceptCollection(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{
		"the matrix":          {{TmdbID: 603, Title: "The Matrix", Year: 1999}},
		"the matrix reloaded": {{TmdbID: 604, Title: "The Matrix Reloaded", Year: 2003}},
	}}
	libIdx := &fakeLibraryIdx{known: map[int]bool{}}
	writer := &fakeLibraryWriter{}
	svc, creator := newWizard(catalog, libIdx, writer)

	raw := []byte(`{
		"items": [
			{"title": "The Matrix", "year": 1999, "mediaType": "movie"},
			{"title": "The Matrix Reloaded", "year": 2003, "mediaType": "movie"}
		],
		"collections": [{"name": "The Matrix Saga", "items": [
			{"title": "The Matrix", "year": 1999},
			{"title": "The Matrix Reloaded", "year": 2003}
		]}]
	}`)
	if _, err := svc.ParseFile(context.Background(), "saga.json", raw); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if _, err := svc.StartImport(context.Background()); err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	pollUntilComplete(t, svc)

	// Imported entries are now findable by catalog id
	libIdx.known[603] = true
	libIdx.known[604] = true

	collection, err := svc.AcceptCollection(context.Background(), "The Matrix Saga")
	if err != nil {
		t.Fatalf("AcceptCollection() error = %v", err)
	}
	if collection.EntryCount != 2 {
		t.Errorf("EntryCount = %d, want 2", collection.EntryCount)
	}
	if len(creator.created) != 1 || creator.created[0] != "The Matrix Saga" {
		t.Errorf("created collections = %v", creator.created)
	}

	if _, err := svc.AcceptCollection(context.Background(), "Nope"); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("AcceptCollection(unknown) error = %v, want ErrUnknownCollection", err)
	}
}

func TestStartImportRequiresEligibleItems(t *testing.T) {
	catalog := &fakeCatalog{results: map[string][]Candidate{}}
	svc, _ := newWizard(catalog, nil, nil)

	state, err := svc.ParseFile(context.Background(), "none.json",
		[]byte(`{"items": [{"title": "Nothing Matches", "mediaType": "movie"}]}`))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if state.Preview.NoMatches != 1 {
		t.Fatalf("NoMatches = %d, want 1", state.Preview.NoMatches)
	}

	if _, err := svc.StartImport(context.Background()); !errors.Is(err, ErrNoEligibleItems) {
		t.Errorf("StartImport() error = %v, want ErrNoEligibleItems", err)
	}
}
