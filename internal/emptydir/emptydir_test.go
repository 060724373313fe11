package emptydir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/cleaner-toolbox/internal/testutil"
)

func paths(folders []EmptyFolder) []string {
	var out []string
	for _, f := range folders {
		out = append(out, f.Path)
	}
	return out
}

func TestFindLeafEmptyOnly(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	f.CreateSized("DCIM/photo.jpg", 1)
	f.CreateSized("Music/a.mp3", 1)
	f.CreateSized("Movies/m.mp4", 1)
	f.CreateSized("Android/data/com.a/x", 1)
	f.CreateSized("Android/obb/com.b/y", 1)
	f.CreateSized("Download/keep.pdf", 1)
	leaf := f.CreateDir("Download/outer/inner")

	finder := NewFinder(f.Root, 0, false)
	found, err := finder.Find(context.Background(), f.Root)
	require.NoError(t, err)

	assert.Equal(t, []string{leaf}, paths(found), "outer holds only an empty dir and is not reported")
	assert.Equal(t, filepath.Join(f.Root, "Download", "outer"), found[0].Parent)
}

func TestFindSecondPassAfterDelete(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	for _, d := range []string{"DCIM", "Music", "Movies", "Android/data", "Android/obb"} {
		f.CreateSized(d+"/keep", 1)
	}
	f.CreateSized("Download/keep", 1)
	f.CreateDir("Download/outer/inner")

	finder := NewFinder(f.Root, 0, false)
	ctx := context.Background()

	first, err := finder.Find(ctx, f.Root)
	require.NoError(t, err)
	res := Delete(first)
	require.Len(t, res.Deleted, 1)
	assert.Empty(t, res.Failed)

	second, err := finder.Find(ctx, f.Root)
	require.NoError(t, err)
	assert.Equal(t, []string{f.Path("Download/outer")}, paths(second))
}

func TestFindRootNeverReported(t *testing.T) {
	root := t.TempDir()
	found, err := NewFinder(root, 0, false).Find(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindDepthCap(t *testing.T) {
	root := t.TempDir()
	f := &Finder{MaxDepth: 2}

	shallow := filepath.Join(root, "a", "b")
	deep := filepath.Join(root, "x", "y", "z")
	for _, d := range []string{shallow, deep} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}

	found, err := f.Find(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{shallow}, paths(found), "z sits at depth 3")
}

func TestFindSkipsProtectedAndHidden(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	f.CreateDir("Android/data/com.empty")
	f.CreateDir(".hidden/empty")
	visible := f.CreateDir("Pictures")

	found, err := NewFinder(f.Root, 0, false).Find(context.Background(), f.Root)
	require.NoError(t, err)

	got := paths(found)
	assert.Contains(t, got, visible)
	assert.NotContains(t, got, f.Path("Android/data/com.empty"))
	assert.NotContains(t, got, f.Path(".hidden/empty"))
}

func TestFindCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFinder("/", 0, false).Find(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeleteRefusesRefilledFolder(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	dir := f.CreateDir("Download/was-empty")
	f.CreateSized("Download/was-empty/new.txt", 1)

	res := Delete([]EmptyFolder{{Path: dir}, {Path: f.Path("Download/already-gone")}})
	assert.Contains(t, res.Failed, dir)
	assert.Equal(t, []string{f.Path("Download/already-gone")}, res.Deleted)
	f.AssertFileExists(dir)
}
