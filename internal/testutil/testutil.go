// Package testutil provides test helpers and fixtures for toolbox tests.
// All file operations use t.TempDir() so tests never touch a real device.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// StorageFixture is a fake shared-storage volume laid out like /storage/emulated/0
type StorageFixture struct {
	T    *testing.T
	Root string // Storage root (auto-cleaned)

	DownloadDir string
	DCIMDir     string
	MusicDir    string
	MoviesDir   string
	AndroidData string
	AndroidObb  string
}

// NewStorageFixture creates the standard top-level directories of a storage volume
func NewStorageFixture(t *testing.T) *StorageFixture {
	t.Helper()

	root := t.TempDir()

	f := &StorageFixture{
		T:           t,
		Root:        root,
		DownloadDir: filepath.Join(root, "Download"),
		DCIMDir:     filepath.Join(root, "DCIM"),
		MusicDir:    filepath.Join(root, "Music"),
		MoviesDir:   filepath.Join(root, "Movies"),
		AndroidData: filepath.Join(root, "Android", "data"),
		AndroidObb:  filepath.Join(root, "Android", "obb"),
	}

	for _, dir := range []string{f.DownloadDir, f.DCIMDir, f.MusicDir, f.MoviesDir, f.AndroidData, f.AndroidObb} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *StorageFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", filepath.Dir(fullPath), err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSized creates a zero-filled file of the given size
func (f *StorageFixture) CreateSized(relPath string, size int) string {
	f.T.Helper()
	return f.CreateFile(relPath, make([]byte, size))
}

// CreateFileWithAge creates a file and sets its modification time to the past
func (f *StorageFixture) CreateFileWithAge(relPath string, size int, age time.Duration) string {
	f.T.Helper()

	fullPath := f.CreateSized(relPath, size)
	oldTime := time.Now().Add(-age)
	if err := os.Chtimes(fullPath, oldTime, oldTime); err != nil {
		f.T.Fatalf("failed to set file time for %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateAppCacheFile creates a file inside Android/data/<pkg>/cache
func (f *StorageFixture) CreateAppCacheFile(pkg, name string, size int) string {
	f.T.Helper()
	return f.CreateSized(filepath.Join("Android", "data", pkg, "cache", name), size)
}

// CreateObbFile creates a file inside Android/obb/<pkg>
func (f *StorageFixture) CreateObbFile(pkg, name string, size int) string {
	f.T.Helper()
	return f.CreateSized(filepath.Join("Android", "obb", pkg, name), size)
}

// CreateDir creates a directory and returns its path
func (f *StorageFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.Root, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateUnreadableDir creates a directory the walker cannot list
func (f *StorageFixture) CreateUnreadableDir(relPath string) string {
	f.T.Helper()

	dirPath := f.CreateDir(relPath)
	f.CreateFile(filepath.Join(relPath, "hidden.tmp"), []byte("x"))
	if err := os.Chmod(dirPath, 0000); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}

	// Restore permissions so TempDir cleanup works
	f.T.Cleanup(func() {
		os.Chmod(dirPath, 0755)
	})

	return dirPath
}

// CreateSymlink creates a symbolic link at linkPath pointing to target
func (f *StorageFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.Root, linkPath)
	if err := os.MkdirAll(filepath.Dir(fullLinkPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory: %v", err)
	}

	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Skipf("symlinks unavailable: %v", err)
	}

	return fullLinkPath
}

// =============================================================================
// Path & Assertion Helpers
// =============================================================================

// Path returns the full path for a relative path within the fixture
func (f *StorageFixture) Path(relPath string) string {
	return filepath.Join(f.Root, relPath)
}

// FileExists checks if a path exists without following symlinks
func (f *StorageFixture) FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if the file doesn't exist
func (f *StorageFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists
func (f *StorageFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// IsRoot reports whether the tests run as root, where permission tests are meaningless
func IsRoot() bool {
	return os.Geteuid() == 0
}
