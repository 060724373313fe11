package cleaner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/fenilsonani/cleaner-toolbox/internal/store"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		path   string
		reason ErrorReason
	}{
		{"EACCES - permission denied", syscall.EACCES, "/storage/emulated/0/a.tmp", ErrorPermissionDenied},
		{"EPERM - operation not permitted", syscall.EPERM, "/storage/emulated/0/b.tmp", ErrorPermissionDenied},
		{"EROFS - read-only storage", syscall.EROFS, "/mnt/sdcard/c.log", ErrorPermissionDenied},
		{"ENOENT - file not found", syscall.ENOENT, "/missing/file.txt", ErrorFileNotFound},
		{"EBUSY - resource busy", syscall.EBUSY, "/open/file.txt", ErrorFileInUse},
		{"EISDIR - is directory", syscall.EISDIR, "/some/dir", ErrorIsDirectory},
		{"ENOTEMPTY - non-empty directory", syscall.ENOTEMPTY, "/some/dir", ErrorIsDirectory},
		{"wrapped EACCES", fmt.Errorf("failed to remove: %w", syscall.EACCES), "/wrapped/file.txt", ErrorPermissionDenied},
		{"os.PathError with EACCES", &os.PathError{Op: "remove", Path: "/test/file.txt", Err: syscall.EACCES}, "/test/file.txt", ErrorPermissionDenied},
		{"os.ErrNotExist", os.ErrNotExist, "/not/exist.txt", ErrorFileNotFound},
		{"missing index row", fmt.Errorf("media 4: %w", store.ErrNotFound), "/s/x.apk", ErrorFileNotFound},
		{"protected path", errors.New("refusing to delete protected path: /"), "/", ErrorInvalidPath},
		{"generic error", errors.New("something weird"), "/weird/file.txt", ErrorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delErr := CategorizeError(tt.path, tt.err)
			if delErr == nil {
				t.Fatal("expected non-nil DeletionError")
			}
			if delErr.Reason != tt.reason {
				t.Errorf("Reason = %v, want %v", delErr.Reason, tt.reason)
			}
			if delErr.Path != tt.path {
				t.Errorf("Path = %q, want %q", delErr.Path, tt.path)
			}
			if !errors.Is(delErr, tt.err) {
				t.Errorf("DeletionError should unwrap to %v", tt.err)
			}
		})
	}
}

func TestCategorizeErrorNil(t *testing.T) {
	if CategorizeError("/x", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestErrorReasonString(t *testing.T) {
	tests := []struct {
		reason   ErrorReason
		expected string
	}{
		{ErrorPermissionDenied, "Permission denied"},
		{ErrorFileInUse, "File is in use"},
		{ErrorFileNotFound, "File not found"},
		{ErrorIsDirectory, "Is a directory"},
		{ErrorInvalidPath, "Invalid path"},
		{ErrorUnknown, "Unknown error"},
		{ErrorReason(99), "Unspecified error"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.expected {
			t.Errorf("%d.String() = %q, want %q", tt.reason, got, tt.expected)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		reason   ErrorReason
		contains string
	}{
		{ErrorPermissionDenied, "storage access"},
		{ErrorFileInUse, "being used"},
		{ErrorFileNotFound, "Already deleted"},
		{ErrorIsDirectory, "directory"},
		{ErrorInvalidPath, "protected path"},
		{ErrorUnknown, "Error deleting"},
	}

	for _, tt := range tests {
		e := &DeletionError{Path: "/s/a.tmp", Reason: tt.reason, Original: errors.New("boom")}
		msg := e.UserMessage()
		if !strings.Contains(msg, tt.contains) {
			t.Errorf("UserMessage for %v = %q, want it to contain %q", tt.reason, msg, tt.contains)
		}
		if !strings.Contains(msg, "/s/a.tmp") {
			t.Errorf("UserMessage should name the path: %q", msg)
		}
	}
}

func TestFormatErrorSummary(t *testing.T) {
	if FormatErrorSummary(nil) != "" {
		t.Error("expected empty summary for no errors")
	}

	errs := []*DeletionError{
		{Path: "/a", Reason: ErrorPermissionDenied},
		{Path: "/b", Reason: ErrorPermissionDenied},
		{Path: "/c", Reason: ErrorFileNotFound},
		{Path: "/d", Reason: ErrorInvalidPath},
		{Path: "/e", Reason: ErrorUnknown},
	}

	summary := FormatErrorSummary(errs)
	for _, want := range []string{
		"Permission denied: 2 files",
		"Already deleted: 1 files",
		"Protected paths: 1 items",
		"Other errors: 1 files",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "File in use") {
		t.Error("summary should not mention reasons with no errors")
	}
}

func TestGroupErrors(t *testing.T) {
	grouped := GroupErrors([]*DeletionError{
		{Path: "/a", Reason: ErrorFileInUse},
		{Path: "/b", Reason: ErrorFileInUse},
		{Path: "/c", Reason: ErrorIsDirectory},
	})

	if len(grouped[ErrorFileInUse]) != 2 {
		t.Errorf("expected 2 in-use errors, got %d", len(grouped[ErrorFileInUse]))
	}
	if len(grouped[ErrorIsDirectory]) != 1 {
		t.Errorf("expected 1 directory error, got %d", len(grouped[ErrorIsDirectory]))
	}
}
