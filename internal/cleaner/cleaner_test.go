package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/progress"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
	"github.com/fenilsonani/cleaner-toolbox/internal/testutil"
)

type fakeIndex struct {
	calls     []string
	forgotten []string
	err       error
	remove    bool // actually unlink the file behind the uri
	paths     map[string]string
}

func (f *fakeIndex) Forget(_ context.Context, path string) error {
	f.forgotten = append(f.forgotten, path)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, uri string) error {
	f.calls = append(f.calls, uri)
	if f.remove {
		os.Remove(f.paths[uri])
	}
	return f.err
}

type fakeHistory struct {
	records []*store.CleanRecord
}

func (f *fakeHistory) RecordClean(_ context.Context, rec *store.CleanRecord) (string, error) {
	f.records = append(f.records, rec)
	return rec.ID, nil
}

func testConfig(root string) *config.Config {
	cfg := config.GetDefault()
	cfg.StorageRoot = root
	cfg.ExcludePatterns = nil
	cfg.ManifestDir = filepath.Join(root, ".manifests")
	return cfg
}

// scanFiles runs a real scan over a static candidate list built from paths
func scanFiles(t *testing.T, cfg *config.Config, cands ...scanner.Candidate) *scanner.State {
	t.Helper()
	s := scanner.New(cfg, []scanner.Source{&scanner.StaticSource{Label: "files", Candidates: cands}}, nil)
	s.ScanDevice(context.Background())
	require.NoError(t, s.State().Err())
	return s.State()
}

func fileCand(path string) scanner.Candidate {
	info, err := os.Stat(path)
	size := int64(0)
	if err == nil {
		size = info.Size()
	}
	return scanner.Candidate{Path: path, Name: filepath.Base(path), Size: size}
}

// =============================================================================
// Delete Tests
// =============================================================================

func TestDeleteScenarioOnlySelectedType(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/a.tmp", 100)
	b := f.CreateSized("Download/b.apk", 200)
	c := f.CreateSized("Download/c.jpg", 300)

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, fileCand(a), fileCand(b), fileCand(c))
	require.Equal(t, int64(300), state.TotalSize())

	cl := New(cfg, nil)
	result := cl.Delete(context.Background(), state, []scanner.FileType{scanner.Temp})

	assert.Equal(t, []string{a}, result.DeletedFiles)
	assert.Equal(t, int64(100), result.DeletedSize)
	assert.Zero(t, result.Failed)
	f.AssertFileNotExists(a)
	f.AssertFileExists(b)
	f.AssertFileExists(c)

	remaining := state.Files()
	require.Len(t, remaining, 1)
	assert.Equal(t, b, remaining[0].Path)
	assert.NoError(t, state.Err())
	assert.Equal(t, 100, state.Progress())
}

func TestDeleteDryRun(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/a.log", 10)

	cfg := testConfig(f.Root)
	cfg.DryRun = true
	state := scanFiles(t, cfg, fileCand(a))

	hist := &fakeHistory{}
	cl := New(cfg, nil)
	cl.SetHistory(hist)
	result := cl.Delete(context.Background(), state, scanner.AllFileTypes())

	assert.True(t, result.DryRun)
	assert.Equal(t, []string{a}, result.DeletedFiles)
	f.AssertFileExists(a)
	assert.Len(t, state.Files(), 1, "dry run leaves the state alone")
	assert.Empty(t, result.ManifestPath)

	require.Len(t, hist.records, 1)
	assert.True(t, hist.records[0].DryRun)
}

func TestDeleteDryRunPredictsFailures(t *testing.T) {
	if testutil.IsRoot() {
		t.Skip("permissions are not enforced for root")
	}

	f := testutil.NewStorageFixture(t)
	ok := f.CreateSized("Download/a.tmp", 10)
	locked := f.CreateSized("Locked/b.tmp", 20)
	guarded := f.CreateSized("Keep/c.tmp", 30)
	missing := f.Path("Download/gone.tmp")

	cfg := testConfig(f.Root)
	cfg.DryRun = true
	cfg.ProtectedPaths = []string{filepath.Dir(guarded)}
	state := scanFiles(t, cfg, fileCand(ok), fileCand(locked), fileCand(guarded),
		scanner.Candidate{Path: missing, Name: "gone.tmp", Size: 40})

	dir := filepath.Dir(locked)
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	result := New(cfg, nil).Delete(context.Background(), state, scanner.AllFileTypes())

	assert.Equal(t, []string{ok}, result.DeletedFiles)
	assert.Equal(t, int64(10), result.DeletedSize)
	assert.Equal(t, 3, result.Failed)

	reasons := map[string]ErrorReason{}
	for _, e := range result.Errors {
		reasons[e.Path] = e.Reason
	}
	assert.Equal(t, map[string]ErrorReason{
		locked:  ErrorPermissionDenied,
		guarded: ErrorInvalidPath,
		missing: ErrorFileNotFound,
	}, reasons)

	require.NotNil(t, result.Access)
	assert.Equal(t, []string{locked}, result.Access.Blocked)
	assert.Equal(t, int64(20), result.Access.BlockedSize)

	f.AssertFileExists(locked)
	assert.Len(t, state.Files(), 4, "dry run leaves the state alone")
	assert.NoError(t, state.Err())
}

func TestDeleteThroughIndexForURIEntries(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/old.apk", 10)
	b := f.CreateSized("Download/x.tmp", 10)

	uri := "content://media/external/files/7"
	cand := fileCand(a)
	cand.URI = uri

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, cand, fileCand(b))

	ix := &fakeIndex{remove: true, paths: map[string]string{uri: a}}
	cl := New(cfg, nil)
	cl.SetIndex(ix)
	result := cl.Delete(context.Background(), state, scanner.AllFileTypes())

	assert.Equal(t, []string{uri}, ix.calls, "only the uri entry goes through the index")
	assert.Equal(t, []string{b}, ix.forgotten, "a direct removal drops its index row")
	assert.Len(t, result.DeletedFiles, 2)
	f.AssertFileNotExists(a)
	f.AssertFileNotExists(b)
	assert.Empty(t, state.Files())
}

func TestDeleteIndexReportsSuccessButFileRemains(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/stuck.apk", 10)

	cand := fileCand(a)
	cand.URI = "content://media/external/files/1"

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, cand)

	cl := New(cfg, nil)
	cl.SetIndex(&fakeIndex{})
	result := cl.Delete(context.Background(), state, []scanner.FileType{scanner.ObsoleteAPK})

	assert.Equal(t, []string{a}, result.KeptFiles)
	assert.Len(t, state.Files(), 1, "file still on disk stays listed")
}

func TestDeleteIndexFailsButFileGone(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/gone.apk", 10)

	uri := "content://media/external/files/2"
	cand := fileCand(a)
	cand.URI = uri

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, cand)

	cl := New(cfg, nil)
	cl.SetIndex(&fakeIndex{remove: true, err: errors.New("provider exploded"), paths: map[string]string{uri: a}})
	result := cl.Delete(context.Background(), state, []scanner.FileType{scanner.ObsoleteAPK})

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorUnknown, result.Errors[0].Reason)
	assert.Empty(t, state.Files(), "dropped because the path no longer exists")
	assert.Error(t, state.Err())
}

func TestDeleteFailureIsCountedAndKept(t *testing.T) {
	if testutil.IsRoot() {
		t.Skip("permissions are not enforced for root")
	}
	f := testutil.NewStorageFixture(t)
	locked := f.CreateSized("Locked/a.tmp", 10)
	free := f.CreateSized("Download/b.tmp", 10)
	dir := filepath.Dir(locked)
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, fileCand(locked), fileCand(free))

	cl := New(cfg, nil)
	result := cl.Delete(context.Background(), state, []scanner.FileType{scanner.Temp})

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{free}, result.DeletedFiles)
	assert.Equal(t, ErrorPermissionDenied, result.Errors[0].Reason)
	assert.Equal(t, []string{locked}, result.KeptFiles)
	assert.Len(t, state.Files(), 1)
	assert.Contains(t, state.Err().Error(), "1 of 2 deletions failed")
}

func TestDeleteRefusesProtectedPaths(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	keep := f.CreateSized("DCIM/Camera/thumbnail_cache.jpg", 10)

	cfg := testConfig(f.Root)
	cfg.ProtectedPaths = []string{f.DCIMDir}
	state := scanFiles(t, cfg, fileCand(keep))

	cl := New(cfg, nil)
	result := cl.Delete(context.Background(), state, []scanner.FileType{scanner.Cache})

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, ErrorInvalidPath, result.Errors[0].Reason)
	f.AssertFileExists(keep)
}

func TestDeleteProgressPerItem(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	var cands []scanner.Candidate
	for _, name := range []string{"a.tmp", "b.tmp", "c.tmp", "d.tmp"} {
		cands = append(cands, fileCand(f.CreateSized("Download/"+name, 1)))
	}

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, cands...)

	cl := New(cfg, nil)
	ch := cl.GetProgressReporter().Subscribe()
	cl.Delete(context.Background(), state, []scanner.FileType{scanner.Temp})

	var percents []int
	timeout := time.After(time.Second)
	for len(percents) < 6 {
		select {
		case msg := <-ch:
			percents = append(percents, msg.(*progress.CleanProgress).Percent)
		case <-timeout:
			t.Fatalf("only got %v", percents)
		}
	}
	assert.Equal(t, []int{0, 25, 50, 75, 100, 100}, percents)
}

func TestDeleteCancelledStops(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/a.tmp", 1)

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, fileCand(a))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(cfg, nil).Delete(ctx, state, []scanner.FileType{scanner.Temp})
	assert.Empty(t, result.DeletedFiles)
	f.AssertFileExists(a)
	assert.ErrorIs(t, state.Err(), context.Canceled)
}

func TestDeleteWritesManifestAndHistory(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	a := f.CreateSized("Download/a.tmp", 64)

	cfg := testConfig(f.Root)
	state := scanFiles(t, cfg, fileCand(a))

	hist := &fakeHistory{}
	cl := New(cfg, nil)
	cl.SetHistory(hist)
	result := cl.Delete(context.Background(), state, []scanner.FileType{scanner.Temp})

	require.NotEmpty(t, result.ManifestPath)
	data, err := os.ReadFile(result.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), a+" | 64 bytes | temp")

	require.Len(t, hist.records, 1)
	rec := hist.records[0]
	assert.Equal(t, result.ID, rec.ID)
	assert.Equal(t, 1, rec.Deleted)
	assert.Equal(t, int64(64), rec.BytesFreed)
	assert.Equal(t, []string{"temp"}, rec.Types)
	assert.Equal(t, result.ManifestPath, rec.ManifestPath)
}
