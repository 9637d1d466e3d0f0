package storage

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveStream(BucketProcessDocuments, "obj-1.md", strings.NewReader("# runbook")))

	file, err := store.Open(BucketProcessDocuments, "obj-1.md")
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "# runbook", string(content))
}

func TestLocalStorageNeverOverwrites(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveStream(BucketTemplates, "obj-1", strings.NewReader("first")))
	err = store.SaveStream(BucketTemplates, "obj-1", strings.NewReader("second"))
	require.Error(t, err)

	file, err := store.Open(BucketTemplates, "obj-1")
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "first", string(content))
}

func TestLocalStorageRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.Error(t, store.SaveStream(BucketExamples, "../escape", strings.NewReader("x")))
	require.Error(t, store.SaveStream("not-a-bucket", "obj", strings.NewReader("x")))
	_, err = store.Open(BucketExamples, "")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveStream(BucketProcessDocuments, "stale", strings.NewReader("orphan")))
	require.NoError(t, store.SaveStream(BucketProcessDocuments, "fresh", strings.NewReader("kept")))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(BucketProcessDocuments, "stale"), old, old))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	require.Contains(t, deleted[0], "stale")

	_, err = store.Open(BucketProcessDocuments, "stale")
	require.Error(t, err)
	fresh, err := store.Open(BucketProcessDocuments, "fresh")
	require.NoError(t, err)
	fresh.Close()
}
