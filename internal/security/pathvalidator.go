package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator handles path validation before anything is deleted
type PathValidator struct {
	protectedPaths []string // the path itself and everything under it
	protectedRoots []string // only the path itself
}

// NewPathValidator creates a new PathValidator with default protected paths
func NewPathValidator() *PathValidator {
	return &PathValidator{
		protectedPaths: []string{
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/lib",
			"/lib64",
			"/proc",
			"/sbin",
			"/sys",
			"/usr",
			"/system",
			"/vendor",
			"/product",
			"/apex",
		},
		protectedRoots: []string{"/"},
	}
}

// NewStorageValidator returns a validator that also refuses to touch the
// storage root itself and its top-level Android directories.
func NewStorageValidator(storageRoot string) *PathValidator {
	pv := NewPathValidator()
	if storageRoot != "" {
		root := filepath.Clean(storageRoot)
		pv.protectedRoots = append(pv.protectedRoots,
			root,
			filepath.Join(root, "Android"),
			filepath.Join(root, "Android", "data"),
			filepath.Join(root, "Android", "obb"),
			filepath.Join(root, "Android", "media"),
		)
	}
	return pv
}

// ValidatePathForDeletion performs validation on a path before deletion
func (pv *PathValidator) ValidatePathForDeletion(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	// Reject ../ tricks before looking at the filesystem
	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}

	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		resolvedPath = path
	}

	for _, p := range []string{path, filepath.Clean(resolvedPath)} {
		if err := pv.checkProtectedPaths(p); err != nil {
			return err
		}
	}

	return nil
}

// checkProtectedPaths validates that a path is not a protected location
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, root := range pv.protectedRoots {
		if cleanPath == root {
			return fmt.Errorf("refusing to delete protected path: %s", cleanPath)
		}
	}

	for _, protected := range pv.protectedPaths {
		if cleanPath == protected || strings.HasPrefix(cleanPath, protected+"/") {
			return fmt.Errorf("refusing to delete system path: %s", cleanPath)
		}
	}

	return nil
}

// IsProtectedPath checks if a path is a protected path
func (pv *PathValidator) IsProtectedPath(path string) bool {
	return pv.checkProtectedPaths(filepath.Clean(path)) != nil
}

// AddProtectedPath adds a custom protected path (the path and its contents)
func (pv *PathValidator) AddProtectedPath(path string) {
	pv.protectedPaths = append(pv.protectedPaths, filepath.Clean(path))
}

// ValidateGlobPattern validates that a glob pattern is safe
func ValidateGlobPattern(pattern string) error {
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("glob pattern contains directory traversal: %s", pattern)
	}

	if _, err := filepath.Match(pattern, "test"); err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}

	return nil
}
