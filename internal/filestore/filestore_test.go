package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	store := TestStore(t, "note-sources")
	ctx := context.Background()

	key := SourceKey("user-1", "doc-abc")
	content := []byte("%PDF-1.4 test document")

	require.NoError(t, store.Put(ctx, key, content, "application/pdf"))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingObject(t *testing.T) {
	store := TestStore(t, "note-sources")

	_, err := store.Get(context.Background(), "pdf/nobody/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSourceKey(t *testing.T) {
	assert.Equal(t, "pdf/user-1/doc-abc.pdf", SourceKey("user-1", "doc-abc"))
}
