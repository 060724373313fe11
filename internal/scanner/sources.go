package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
)

// Source enumerates raw candidate files for a scan
type Source interface {
	Name() string
	List(ctx context.Context) ([]Candidate, error)
}

// DirSource lists every file under a set of local directories
type DirSource struct {
	Label   string
	Dirs    []string
	Skip    SkipFunc
	AsCache bool // mark candidates as coming from an app cache directory

	// OnError receives unreadable paths; defaults to ignoring them
	OnError func(path string, err error)
}

// NewAppCacheSource lists app cache directories such as Android/data/<pkg>/cache
func NewAppCacheSource(dirs []string, includeHidden bool) *DirSource {
	return &DirSource{
		Label:   "app cache",
		Dirs:    dirs,
		Skip:    hiddenSkip(includeHidden),
		AsCache: true,
	}
}

// NewObbSource lists OBB expansion directories
func NewObbSource(dirs []string, includeHidden bool) *DirSource {
	return &DirSource{
		Label: "obb",
		Dirs:  dirs,
		Skip:  hiddenSkip(includeHidden),
	}
}

func hiddenSkip(includeHidden bool) SkipFunc {
	if includeHidden {
		return nil
	}
	return func(_ string, d fs.DirEntry) bool {
		return IsHidden(d.Name())
	}
}

// Name returns the source label
func (s *DirSource) Name() string {
	return s.Label
}

// List walks every configured directory. Missing directories are not an error.
func (s *DirSource) List(ctx context.Context) ([]Candidate, error) {
	var out []Candidate

	for _, dir := range s.Dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}

		ds := &DirectoryScanner{Root: dir, Skip: s.Skip, OnError: s.OnError}
		err := ds.Walk(ctx, func(path string, d fs.DirEntry) error {
			info, err := d.Info()
			if err != nil {
				// Vanished between listing and stat
				return nil
			}
			out = append(out, Candidate{
				Path:       path,
				Name:       filepath.Base(path),
				Size:       info.Size(),
				ModTime:    info.ModTime(),
				InCacheDir: s.AsCache,
			})
			return nil
		})
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// StaticSource serves a fixed candidate list. Used for tests and replays.
type StaticSource struct {
	Label      string
	Candidates []Candidate
	Err        error
}

// Name returns the source label
func (s *StaticSource) Name() string {
	return s.Label
}

// List returns the fixed candidates and error
func (s *StaticSource) List(ctx context.Context) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Candidates, s.Err
}
