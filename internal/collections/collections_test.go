package collections

import (
	"context"
	"errors"
	"testing"

	"github.com/cinemarco/cinemarco/internal/library"
	"github.com/cinemarco/cinemarco/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *library.Service, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	return NewService(tdb.Conn, tdb.Logger), library.NewService(tdb.Conn, nil, tdb.Logger), tdb
}

func seedEntries(t *testing.T, lib *library.Service, titles ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, len(titles))
	for _, title := range titles {
		entry, err := lib.Create(ctx, &library.CreateEntryInput{
			MediaType: library.MediaTypeMovie, Title: title,
		})
		if err != nil {
			t.Fatalf("Create entry %q error = %v", title, err)
		}
		ids = append(ids, entry.ID)
	}
	return ids
}

func TestCreateAndGet(t *testing.T) {
	svc, _, tdb := newTestService(t)
	defer tdb.Close()
	ctx := context.Background()

	c, err := svc.Create(ctx, "Kubrick", "In release order")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Description != "In release order" {
		t.Errorf("Description = %q, want %q", c.Description, "In release order")
	}

	if _, err := svc.Create(ctx, "  ", ""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Create(blank) error = %v, want ErrInvalidName", err)
	}
	if _, err := svc.Get(ctx, 9999); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrCollectionNotFound", err)
	}
}

func TestAddAndRemoveEntries(t *testing.T) {
	svc, lib, tdb := newTestService(t)
	defer tdb.Close()
	ctx := context.Background()

	ids := seedEntries(t, lib, "Alien", "Aliens", "Alien 3")
	c, err := svc.Create(ctx, "Alien Saga", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, id := range ids {
		if err := svc.AddEntry(ctx, c.ID, id); err != nil {
			t.Fatalf("AddEntry(%d) error = %v", id, err)
		}
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("Get() returned %d entries, want 3", len(got.Entries))
	}
	// Appended in insertion order with contiguous positions
	for i, e := range got.Entries {
		if e.EntryID != ids[i] {
			t.Errorf("Entries[%d].EntryID = %d, want %d", i, e.EntryID, ids[i])
		}
		if e.Position != i {
			t.Errorf("Entries[%d].Position = %d, want %d", i, e.Position, i)
		}
	}

	// Remove the middle entry; positions compact
	if err := svc.RemoveEntry(ctx, c.ID, ids[1]); err != nil {
		t.Fatalf("RemoveEntry() error = %v", err)
	}
	got, _ = svc.Get(ctx, c.ID)
	if len(got.Entries) != 2 {
		t.Fatalf("Get() after remove returned %d entries, want 2", len(got.Entries))
	}
	if got.Entries[0].EntryID != ids[0] || got.Entries[1].EntryID != ids[2] {
		t.Errorf("Entries after remove = %v, want [%d %d]", got.Entries, ids[0], ids[2])
	}
	if got.Entries[1].Position != 1 {
		t.Errorf("Entries[1].Position = %d, want 1 after compaction", got.Entries[1].Position)
	}

	if err := svc.RemoveEntry(ctx, c.ID, ids[1]); !errors.Is(err, ErrEntryNotInList) {
		t.Errorf("RemoveEntry(missing) error = %v, want ErrEntryNotInList", err)
	}
}

func TestReorder(t *testing.T) {
	svc, lib, tdb := newTestService(t)
	defer tdb.Close()
	ctx := context.Background()

	ids := seedEntries(t, lib, "First", "Second", "Third")
	c, err := svc.CreateWithEntries(ctx, "Trilogy", "", ids)
	if err != nil {
		t.Fatalf("CreateWithEntries() error = %v", err)
	}

	reordered, err := svc.Reorder(ctx, c.ID, []int64{ids[2], ids[0], ids[1]})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	want := []int64{ids[2], ids[0], ids[1]}
	for i, e := range reordered.Entries {
		if e.EntryID != want[i] {
			t.Errorf("Entries[%d].EntryID = %d, want %d", i, e.EntryID, want[i])
		}
	}

	// Partial or foreign orderings are rejected
	if _, err := svc.Reorder(ctx, c.ID, []int64{ids[0]}); !errors.Is(err, ErrEntryNotInList) {
		t.Errorf("Reorder(partial) error = %v, want ErrEntryNotInList", err)
	}
	if _, err := svc.Reorder(ctx, c.ID, []int64{ids[0], ids[1], 9999}); !errors.Is(err, ErrEntryNotInList) {
		t.Errorf("Reorder(foreign) error = %v, want ErrEntryNotInList", err)
	}
}

func TestDeleteLeavesEntries(t *testing.T) {
	svc, lib, tdb := newTestService(t)
	defer tdb.Close()
	ctx := context.Background()

	ids := seedEntries(t, lib, "Kept")
	c, err := svc.CreateWithEntries(ctx, "Doomed", "", ids)
	if err != nil {
		t.Fatalf("CreateWithEntries() error = %v", err)
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := lib.Get(ctx, ids[0]); err != nil {
		t.Errorf("entry should survive collection delete, got error = %v", err)
	}
}
