package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestListMedia_NoSchema_ReturnsErrNotInitialized verifies that querying a
// fresh DB without CreateSchema returns ErrNotInitialized.
func TestListMedia_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	_, err = s.ListMedia(context.Background(), MediaQuery{})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListMedia() error = %v; want ErrNotInitialized", err)
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "toolbox.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	count, size, err := s.CountMedia(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, size)
}

func TestUpsertMediaKeepsIDStable(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	recs := []MediaRecord{
		{Path: "/s/DCIM/a.jpg", Name: "a.jpg", Size: 10, ModTime: now, MediaType: MediaImage, IndexedAt: now},
		{Path: "/s/Download/b.apk", Name: "b.apk", Size: 20, ModTime: now, MediaType: MediaOther, IsDownload: true, IndexedAt: now},
	}
	require.NoError(t, s.UpsertMedia(ctx, recs))

	all, err := s.ListMedia(ctx, MediaQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	firstID := all[0].ID

	recs[0].Size = 99
	require.NoError(t, s.UpsertMedia(ctx, recs[:1]))

	got, err := s.GetMedia(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Size)
	assert.Equal(t, "/s/DCIM/a.jpg", got.Path)
	assert.WithinDuration(t, now, got.ModTime, time.Microsecond)

	count, size, err := s.CountMedia(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(119), size)
}

func TestListMediaFilters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.UpsertMedia(ctx, []MediaRecord{
		{Path: "/s/a.jpg", Name: "a.jpg", MediaType: MediaImage, ModTime: now, IndexedAt: now},
		{Path: "/s/b.mp4", Name: "b.mp4", MediaType: MediaVideo, ModTime: now, IndexedAt: now},
		{Path: "/s/Download/c.mp3", Name: "c.mp3", MediaType: MediaAudio, IsDownload: true, ModTime: now, IndexedAt: now},
	}))

	images, err := s.ListMedia(ctx, MediaQuery{Type: MediaImage})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "a.jpg", images[0].Name)

	downloads, err := s.ListMedia(ctx, MediaQuery{DownloadsOnly: true})
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.True(t, downloads[0].IsDownload)
}

func TestDeleteAndPruneMedia(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)
	now := time.Now()

	require.NoError(t, s.UpsertMedia(ctx, []MediaRecord{
		{Path: "/s/stale.tmp", Name: "stale.tmp", MediaType: MediaOther, ModTime: old, IndexedAt: old},
		{Path: "/s/fresh.tmp", Name: "fresh.tmp", MediaType: MediaOther, ModTime: now, IndexedAt: now},
		{Path: "/s/gone.tmp", Name: "gone.tmp", MediaType: MediaOther, ModTime: now, IndexedAt: now},
	}))

	pruned, err := s.PruneMedia(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	all, err := s.ListMedia(ctx, MediaQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, s.DeleteMedia(ctx, all[0].ID))
	assert.ErrorIs(t, s.DeleteMedia(ctx, all[0].ID), ErrNotFound)

	_, err = s.GetMedia(ctx, all[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteMediaByPath(ctx, "/s/gone.tmp"))
	count, _, err := s.CountMedia(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPreferences(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	v, err := s.GetBool(ctx, PrefIncludeHidden, true)
	require.NoError(t, err)
	assert.True(t, v, "unset key returns the default")

	require.NoError(t, s.SetBool(ctx, PrefIncludeHidden, false))
	require.NoError(t, s.SetBool(ctx, PrefObb, true))
	require.NoError(t, s.SetBool(ctx, PrefObb, false))

	v, err = s.GetBool(ctx, PrefIncludeHidden, true)
	require.NoError(t, err)
	assert.False(t, v)

	prefs, err := s.ListPrefs(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, PrefIncludeHidden, prefs[0].Key)
	assert.Equal(t, PrefObb, prefs[1].Key)
	assert.False(t, prefs[1].Value)
}

func TestCleanHistory(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	id, err := s.RecordClean(ctx, &CleanRecord{
		StartedAt:  base,
		FinishedAt: base.Add(time.Second),
		Deleted:    3,
		Failed:     1,
		BytesFreed: 4096,
		Types:      []string{"temp", "log"},
	})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	_, err = s.RecordClean(ctx, &CleanRecord{
		ID:           "fixed-id",
		StartedAt:    base.Add(time.Minute),
		FinishedAt:   base.Add(time.Minute),
		Types:        []string{"cache"},
		DryRun:       true,
		ManifestPath: "/tmp/m.json",
	})
	require.NoError(t, err)

	history, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "fixed-id", history[0].ID, "newest first")
	assert.True(t, history[0].DryRun)
	assert.Equal(t, "/tmp/m.json", history[0].ManifestPath)
	assert.Equal(t, []string{"temp", "log"}, history[1].Types)
	assert.Equal(t, int64(4096), history[1].BytesFreed)

	limited, err := s.ListHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
