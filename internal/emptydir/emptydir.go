// Package emptydir finds and removes empty directories on a storage volume.
package emptydir

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
)

// DefaultMaxDepth caps the descent below the root
const DefaultMaxDepth = 6

// EmptyFolder is a directory with no entries at all
type EmptyFolder struct {
	Path   string `json:"path" yaml:"path"`
	Parent string `json:"parent" yaml:"parent"`
}

// Finder collects leaf-empty directories
type Finder struct {
	MaxDepth int
	Skip     scanner.SkipFunc
	OnError  func(path string, err error)
}

// NewFinder returns a Finder with the storage defaults
func NewFinder(root string, maxDepth int, includeHidden bool) *Finder {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Finder{
		MaxDepth: maxDepth,
		Skip:     scanner.DefaultSkip(root, includeHidden),
	}
}

// Find walks root down to MaxDepth levels and reports directories with zero
// entries. A directory holding only empty directories is not reported; it
// becomes empty only after its children are deleted and a new pass runs.
// The root itself is never reported.
func (f *Finder) Find(ctx context.Context, root string) ([]EmptyFolder, error) {
	var out []EmptyFolder
	if err := f.descend(ctx, filepath.Clean(root), 0, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (f *Finder) descend(ctx context.Context, dir string, depth int, out *[]EmptyFolder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if f.OnError != nil {
			f.OnError(dir, err)
		}
		return nil
	}

	if len(entries) == 0 {
		if depth > 0 {
			*out = append(*out, EmptyFolder{Path: dir, Parent: filepath.Dir(dir)})
		}
		return nil
	}

	if depth >= f.MaxDepth {
		return nil
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(dir, e.Name())
		if f.Skip != nil && f.Skip(child, e) {
			continue
		}
		if err := f.descend(ctx, child, depth+1, out); err != nil {
			return err
		}
	}

	return nil
}

// DeleteResult counts the outcome of Delete
type DeleteResult struct {
	Deleted []string
	Failed  map[string]error
}

// Delete removes each folder best-effort. A folder that gained entries since
// the scan is left alone and counted as failed.
func Delete(folders []EmptyFolder) *DeleteResult {
	res := &DeleteResult{Failed: make(map[string]error)}
	for _, folder := range folders {
		err := os.Remove(folder.Path)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
			res.Deleted = append(res.Deleted, folder.Path)
		default:
			res.Failed[folder.Path] = err
		}
	}
	return res
}
