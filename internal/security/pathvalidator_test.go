package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathForDeletion(t *testing.T) {
	root := t.TempDir()
	pv := NewStorageValidator(root)

	junk := filepath.Join(root, "Download", "setup (1).apk")
	if err := os.MkdirAll(filepath.Dir(junk), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(junk, []byte("apk"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		errorMsg string
	}{
		{"regular junk file", junk, ""},
		{"missing file is still checkable", filepath.Join(root, "gone.tmp"), ""},
		{"app cache file", filepath.Join(root, "Android", "data", "com.example", "cache", "x.tmp"), ""},
		{"relative path", "relative/path.txt", "path must be absolute"},
		{"empty path", "", "path must be absolute"},
		{"dot-dot path", root + "/Download/../Download/setup.apk", "suspicious elements"},
		{"filesystem root", "/", "protected path"},
		{"storage root", root, "protected path"},
		{"android data dir", filepath.Join(root, "Android", "data"), "protected path"},
		{"android obb dir", filepath.Join(root, "Android", "obb"), "protected path"},
		{"system partition", "/system/app/Foo.apk", "system path"},
		{"usr tree", "/usr/lib/libc.so", "system path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pv.ValidatePathForDeletion(tt.path)
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("expected no error for %q, got %v", tt.path, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q for %q", tt.errorMsg, tt.path)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestValidatePathForDeletionSymlinkIntoSystem(t *testing.T) {
	root := t.TempDir()
	pv := NewStorageValidator(root)

	link := filepath.Join(root, "evil.tmp")
	if err := os.Symlink("/usr/bin", link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := pv.ValidatePathForDeletion(link); err == nil {
		t.Error("expected symlink into /usr to be rejected")
	}
}

func TestIsProtectedPath(t *testing.T) {
	pv := NewStorageValidator("/storage/emulated/0")

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/storage/emulated/0", true},
		{"/storage/emulated/0/", true},
		{"/storage/emulated/0/Android/obb", true},
		{"/storage/emulated/0/Android/obb/com.game/main.obb", false},
		{"/storage/emulated/0/Download/a.tmp", false},
		{"/etc/passwd", true},
		{"/vendor", true},
	}

	for _, tt := range tests {
		if got := pv.IsProtectedPath(tt.path); got != tt.want {
			t.Errorf("IsProtectedPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAddProtectedPath(t *testing.T) {
	pv := NewPathValidator()
	pv.AddProtectedPath("/storage/emulated/0/DCIM/")

	if !pv.IsProtectedPath("/storage/emulated/0/DCIM/Camera/cache.jpg") {
		t.Error("expected custom protected path to cover its contents")
	}
	if pv.IsProtectedPath("/storage/emulated/0/DCIMX/a.tmp") {
		t.Error("prefix match must stop at path boundaries")
	}
}

func TestValidateGlobPattern(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
	}{
		{"*.keep", false},
		{"*/WhatsApp/*", false},
		{"[abc", true},
		{"../*", true},
	}

	for _, tt := range tests {
		err := ValidateGlobPattern(tt.pattern)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateGlobPattern(%q) error = %v, wantErr %v", tt.pattern, err, tt.wantErr)
		}
	}
}
