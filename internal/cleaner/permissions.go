package cleaner

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// IsSpecialFile checks if a path is a special file (device, socket, pipe)
func IsSpecialFile(path string) (bool, error) {
	info, err := os.Lstat(path) // Use Lstat to not follow symlinks
	if err != nil {
		return false, err
	}

	mode := info.Mode()

	switch {
	case mode&os.ModeDevice != 0:
		return true, fmt.Errorf("is a device file")
	case mode&os.ModeCharDevice != 0:
		return true, fmt.Errorf("is a character device")
	case mode&os.ModeSocket != 0:
		return true, fmt.Errorf("is a socket")
	case mode&os.ModeNamedPipe != 0:
		return true, fmt.Errorf("is a named pipe (FIFO)")
	}

	return false, nil
}

// IsSafeToDelete refuses special files. Missing files pass, the caller
// finds out on removal.
func IsSafeToDelete(path string) error {
	if isSpecial, err := IsSpecialFile(path); isSpecial {
		return fmt.Errorf("refusing to delete special file: %w", err)
	}
	return nil
}

// AccessReport splits a file list by whether this process can unlink each entry
type AccessReport struct {
	Deletable     []string
	Blocked       []string // parent directory not writable, e.g. missing storage permission
	Missing       []string
	DeletableSize int64
	BlockedSize   int64
}

// CanDelete reports whether the parent directory of path is writable by us,
// which is what unlink needs
func CanDelete(path string) bool {
	return unix.Access(filepath.Dir(path), unix.W_OK) == nil
}

// AnalyzeAccess checks every path up front so a dry run or a confirmation
// prompt can warn about files that will fail. sizeOf overrides the size on
// disk when non-nil.
func AnalyzeAccess(files []string, sizeOf func(string) int64) *AccessReport {
	report := &AccessReport{}

	for _, path := range files {
		info, err := os.Lstat(path)
		if err != nil {
			report.Missing = append(report.Missing, path)
			continue
		}

		size := info.Size()
		if sizeOf != nil {
			size = sizeOf(path)
		}

		if CanDelete(path) {
			report.Deletable = append(report.Deletable, path)
			report.DeletableSize += size
		} else {
			report.Blocked = append(report.Blocked, path)
			report.BlockedSize += size
		}
	}

	return report
}
