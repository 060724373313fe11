package cleaner

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/fenilsonani/cleaner-toolbox/internal/testutil"
)

func TestIsSafeToDelete(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	regular := f.CreateSized("Download/a.tmp", 1)

	if err := IsSafeToDelete(regular); err != nil {
		t.Errorf("regular file should be safe: %v", err)
	}
	if err := IsSafeToDelete(f.Path("Download/missing.tmp")); err != nil {
		t.Errorf("missing file should pass the safety check: %v", err)
	}

	fifo := f.Path("Download/pipe.tmp")
	if err := syscall.Mkfifo(fifo, 0644); err != nil {
		t.Skipf("mkfifo unavailable: %v", err)
	}
	if err := IsSafeToDelete(fifo); err == nil {
		t.Error("expected named pipe to be refused")
	}
}

func TestIsSpecialFileSymlinkIsNotSpecial(t *testing.T) {
	f := testutil.NewStorageFixture(t)
	target := f.CreateSized("Music/song.tmp", 1)
	link := f.CreateSymlink(target, "Download/link.tmp")

	special, err := IsSpecialFile(link)
	if err != nil || special {
		t.Errorf("symlink to a regular file should not be special: %v %v", special, err)
	}
}

func TestAnalyzeAccess(t *testing.T) {
	if testutil.IsRoot() {
		t.Skip("permissions are not enforced for root")
	}

	f := testutil.NewStorageFixture(t)
	ok := f.CreateSized("Download/a.tmp", 10)
	blocked := f.CreateSized("Locked/b.tmp", 20)
	missing := f.Path("Download/gone.tmp")

	dir := filepath.Dir(blocked)
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	report := AnalyzeAccess([]string{ok, blocked, missing}, nil)

	if len(report.Deletable) != 1 || report.Deletable[0] != ok {
		t.Errorf("Deletable = %v", report.Deletable)
	}
	if len(report.Blocked) != 1 || report.Blocked[0] != blocked {
		t.Errorf("Blocked = %v", report.Blocked)
	}
	if len(report.Missing) != 1 {
		t.Errorf("Missing = %v", report.Missing)
	}
	if report.DeletableSize != 10 || report.BlockedSize != 20 {
		t.Errorf("sizes = %d/%d, want 10/20", report.DeletableSize, report.BlockedSize)
	}
}
