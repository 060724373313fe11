package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// SkipFunc reports whether an entry should be left out of a walk.
// Returning true for a directory prunes its whole subtree.
type SkipFunc func(path string, d fs.DirEntry) bool

// DirectoryScanner walks a directory tree depth-first in OS order
type DirectoryScanner struct {
	Root    string
	Skip    SkipFunc
	OnError func(path string, err error) // optional, unreadable entries are skipped either way
}

// Walk calls fn for every regular file under Root that Skip does not exclude.
// Unreadable directories are skipped. Only context cancellation or an error
// returned by fn stops the walk.
func (ds *DirectoryScanner) Walk(ctx context.Context, fn func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(ds.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if ds.OnError != nil {
				ds.OnError(path, err)
			}
			if d != nil && d.IsDir() && path != ds.Root {
				return filepath.SkipDir
			}
			return nil
		}

		// The root itself is never subject to the skip predicate
		if path == ds.Root {
			return nil
		}

		if ds.Skip != nil && ds.Skip(path, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		return fn(path, d)
	})
}

// AndroidDirs knows which directories under a storage root are off limits
// without elevated storage permission
type AndroidDirs struct {
	Root string
}

// IsProtected reports whether path is Android/data or Android/obb under Root, or inside them
func (a AndroidDirs) IsProtected(path string) bool {
	root := filepath.Clean(a.Root)
	for _, dir := range []string{
		filepath.Join(root, "Android", "data"),
		filepath.Join(root, "Android", "obb"),
	} {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// IsHidden reports whether a base name is a dotfile
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// DefaultSkip excludes the protected Android directories and, unless
// includeHidden is set, hidden files and directories
func DefaultSkip(root string, includeHidden bool) SkipFunc {
	dirs := AndroidDirs{Root: root}
	return func(path string, d fs.DirEntry) bool {
		if !includeHidden && IsHidden(d.Name()) {
			return true
		}
		return d.IsDir() && dirs.IsProtected(path)
	}
}
