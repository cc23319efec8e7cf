package categories

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/impetus-notes/note-service/internal/blocks"
	"github.com/impetus-notes/note-service/internal/errs"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCounter atomic.Int64

func setupStores(t *testing.T) (*Store, *notes.Store) {
	t.Helper()
	store, err := testdb.NewStoreInMemory(fmt.Sprintf("categories-test-%d", testCounter.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notesStore := notes.NewStore(store, nil)
	return NewStore(store, notesStore, nil), notesStore
}

func noteUnder(t *testing.T, ns *notes.Store, owner, docID, category string) *notes.Note {
	t.Helper()
	note, err := ns.Create(context.Background(), notes.CreateParams{
		DocID:    docID,
		OwnerID:  owner,
		Title:    "In " + category,
		Content:  blocks.FromPlainText("Text.", "In "+category),
		Category: &category,
	})
	require.NoError(t, err)
	return note
}

func TestCreateAndList(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", "beta")
	require.NoError(t, err)
	_, err = s.Create(ctx, "u1", "Alpha")
	require.NoError(t, err)
	_, err = s.Create(ctx, "u2", "Other")
	require.NoError(t, err)

	cats, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	// Case-insensitive name ordering.
	assert.Equal(t, "Alpha", cats[0].Name)
	assert.Equal(t, "beta", cats[1].Name)
}

func TestCreateValidationAndConflicts(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", "   ")
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))

	_, err = s.Create(ctx, "u1", "Work")
	require.NoError(t, err)

	// Exact and case-variant duplicates conflict.
	_, err = s.Create(ctx, "u1", "Work")
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))
	_, err = s.Create(ctx, "u1", "WORK")
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))

	// Different owner is free to reuse the name.
	_, err = s.Create(ctx, "u2", "Work")
	require.NoError(t, err)
}

func TestEnsureExistsIdempotent(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	first, err := s.EnsureExists(ctx, "u1", "Generated")
	require.NoError(t, err)

	second, err := s.EnsureExists(ctx, "u1", "Generated")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A case variant converges on the existing row.
	third, err := s.EnsureExists(ctx, "u1", "GENERATED")
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, "Generated", third.Name)

	cats, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestEnsureExistsConcurrentCallersConverge(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()
	const callers = 16

	ids := make([]string, callers)
	errc := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Mixed case across goroutines still converges on one row.
			name := "Generated"
			if i%2 == 1 {
				name = "generated"
			}
			c, err := s.EnsureExists(ctx, "u1", name)
			if err != nil {
				errc <- err
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i], "caller %d got a different row", i)
	}

	cats, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cats, 1)
}

func TestRenameCascadesToNotes(t *testing.T) {
	s, ns := setupStores(t)
	ctx := context.Background()

	cat, err := s.Create(ctx, "u1", "Work")
	require.NoError(t, err)
	noteUnder(t, ns, "u1", "doc-1", "Work")
	noteUnder(t, ns, "u1", "doc-2", "Work")
	other := noteUnder(t, ns, "u2", "doc-3", "Work")
	_ = other // different owner, untouched by u1's rename

	result, err := s.Rename(ctx, "u1", cat.ID, "Projects")
	require.NoError(t, err)
	assert.Equal(t, "Projects", result.Category.Name)
	assert.Equal(t, int64(2), result.NotesUpdated)

	got, err := ns.GetByDocID(ctx, "u1", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Projects", *got.Category)

	unaffected, err := ns.GetByDocID(ctx, "u2", "doc-3")
	require.NoError(t, err)
	require.NotNil(t, unaffected.Category)
	assert.Equal(t, "Work", *unaffected.Category)
}

func TestRenameConflictsAndSelfCaseChange(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	work, err := s.Create(ctx, "u1", "Work")
	require.NoError(t, err)
	_, err = s.Create(ctx, "u1", "Play")
	require.NoError(t, err)

	_, err = s.Rename(ctx, "u1", work.ID, "play")
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))

	// Case-only rename of the same category is allowed.
	result, err := s.Rename(ctx, "u1", work.ID, "WORK")
	require.NoError(t, err)
	assert.Equal(t, "WORK", result.Category.Name)

	_, err = s.Rename(ctx, "u1", "no-such-id", "Anything")
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	_, err = s.Rename(ctx, "u1", work.ID, "  ")
	assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestDeleteCascadesToNotes(t *testing.T) {
	s, ns := setupStores(t)
	ctx := context.Background()

	cat, err := s.Create(ctx, "u1", "Scratch")
	require.NoError(t, err)
	noteUnder(t, ns, "u1", "doc-1", "Scratch")
	noteUnder(t, ns, "u1", "doc-2", "Scratch")
	keep, err := ns.Create(ctx, notes.CreateParams{
		DocID: "doc-keep", OwnerID: "u1", Title: "Keep", Content: []blocks.Block{},
	})
	require.NoError(t, err)

	result, err := s.Delete(ctx, "u1", cat.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.NotesDeleted)

	_, err = s.Get(ctx, "u1", cat.ID)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	_, err = ns.GetByDocID(ctx, "u1", "doc-1")
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))

	// Uncategorized notes survive.
	_, err = ns.GetByID(ctx, "u1", keep.ID)
	require.NoError(t, err)

	_, err = s.Delete(ctx, "u1", cat.ID)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestExistsIsExactMatch(t *testing.T) {
	s, _ := setupStores(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "u1", "Work")
	require.NoError(t, err)

	exists, err := s.Exists(ctx, "u1", "Work")
	require.NoError(t, err)
	assert.True(t, exists)

	// Assignment checks are exact; only create/rename are
	// case-insensitive.
	exists, err = s.Exists(ctx, "u1", "WORK")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.Exists(ctx, "u2", "Work")
	require.NoError(t, err)
	assert.False(t, exists)
}
