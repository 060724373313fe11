// Package mediastore keeps a sqlite index of the files on a storage volume and
// serves it as content://media URIs, the way the device's media provider does.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
)

// Collection is a queryable view over the index
type Collection string

const (
	Files     Collection = "files"
	Downloads Collection = "downloads"
	Images    Collection = "images"
	Video     Collection = "video"
	Audio     Collection = "audio"
)

// Collections returns every collection in scan order
func Collections() []Collection {
	return []Collection{Files, Downloads, Images, Video, Audio}
}

const uriPrefix = "content://media/external/"

// URI builds the content URI for a row in a collection
func URI(c Collection, id int64) string {
	return uriPrefix + string(c) + "/" + strconv.FormatInt(id, 10)
}

// ParseURI splits a content URI into its collection and row id
func ParseURI(uri string) (Collection, int64, error) {
	rest, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok {
		return "", 0, fmt.Errorf("not a media uri: %s", uri)
	}
	coll, idStr, ok := strings.Cut(rest, "/")
	if !ok {
		return "", 0, fmt.Errorf("media uri without id: %s", uri)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad media id in %s: %w", uri, err)
	}
	for _, c := range Collections() {
		if string(c) == coll {
			return c, id, nil
		}
	}
	return "", 0, fmt.Errorf("unknown media collection %q", coll)
}

var mediaExtensions = map[string]store.MediaType{
	".jpg": store.MediaImage, ".jpeg": store.MediaImage, ".png": store.MediaImage,
	".gif": store.MediaImage, ".webp": store.MediaImage, ".heic": store.MediaImage, ".bmp": store.MediaImage,
	".mp4": store.MediaVideo, ".mkv": store.MediaVideo, ".webm": store.MediaVideo,
	".3gp": store.MediaVideo, ".mov": store.MediaVideo, ".avi": store.MediaVideo,
	".mp3": store.MediaAudio, ".m4a": store.MediaAudio, ".ogg": store.MediaAudio,
	".wav": store.MediaAudio, ".flac": store.MediaAudio, ".aac": store.MediaAudio, ".opus": store.MediaAudio,
}

// MediaTypeOf classifies a file name by extension
func MediaTypeOf(name string) store.MediaType {
	if t, ok := mediaExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return store.MediaOther
}

// RefreshStats summarizes an index refresh
type RefreshStats struct {
	Indexed int
	Pruned  int64
	Errors  int
}

// Index is the media index over one storage root
type Index struct {
	store         *store.Store
	root          string
	includeHidden bool
	logger        *zap.Logger
}

// New creates an index over root backed by st
func New(st *store.Store, root string, includeHidden bool, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		store:         st,
		root:          filepath.Clean(root),
		includeHidden: includeHidden,
		logger:        logger,
	}
}

// Root returns the indexed storage root
func (ix *Index) Root() string {
	return ix.root
}

// Refresh walks the storage root into the index and drops rows for files
// that are no longer on disk. The protected Android directories are skipped.
func (ix *Index) Refresh(ctx context.Context) (*RefreshStats, error) {
	stats := &RefreshStats{}
	started := time.Now()
	downloadDir := filepath.Join(ix.root, "Download")

	var batch []store.MediaRecord
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.store.UpsertMedia(ctx, batch); err != nil {
			return err
		}
		stats.Indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	ds := &scanner.DirectoryScanner{
		Root: ix.root,
		Skip: scanner.DefaultSkip(ix.root, ix.includeHidden),
		OnError: func(path string, err error) {
			stats.Errors++
			ix.logger.Debug("index walk error", zap.String("path", path), zap.Error(err))
		},
	}

	err := ds.Walk(ctx, func(path string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			stats.Errors++
			return nil
		}
		batch = append(batch, store.MediaRecord{
			Path:       path,
			Name:       d.Name(),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
			MediaType:  MediaTypeOf(d.Name()),
			IsDownload: strings.HasPrefix(path, downloadDir+string(filepath.Separator)),
			IndexedAt:  started,
		})
		if len(batch) >= 500 {
			return flush()
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("index walk failed: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}

	// Rows not touched by this walk belong to files that are gone
	pruned, err := ix.store.PruneMedia(ctx, started)
	if err != nil {
		return stats, err
	}
	stats.Pruned = pruned

	ix.logger.Info("media index refreshed",
		zap.Int("indexed", stats.Indexed),
		zap.Int64("pruned", stats.Pruned),
		zap.Int("errors", stats.Errors),
		zap.Duration("took", time.Since(started)))

	return stats, nil
}

// Query lists a collection as scan candidates carrying content URIs
func (ix *Index) Query(ctx context.Context, c Collection) ([]scanner.Candidate, error) {
	q := store.MediaQuery{}
	switch c {
	case Files:
	case Downloads:
		q.DownloadsOnly = true
	case Images:
		q.Type = store.MediaImage
	case Video:
		q.Type = store.MediaVideo
	case Audio:
		q.Type = store.MediaAudio
	default:
		return nil, fmt.Errorf("unknown media collection %q", c)
	}

	records, err := ix.store.ListMedia(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]scanner.Candidate, 0, len(records))
	for _, r := range records {
		out = append(out, scanner.Candidate{
			Path:    r.Path,
			Name:    r.Name,
			Size:    r.Size,
			ModTime: r.ModTime,
			URI:     URI(c, r.ID),
		})
	}
	return out, nil
}

// Delete removes the file behind a content URI and its index row.
// A file already gone from disk still loses its row, but the not-exist
// error is returned so the caller does not count it as freed.
func (ix *Index) Delete(ctx context.Context, uri string) error {
	_, id, err := ParseURI(uri)
	if err != nil {
		return err
	}

	rec, err := ix.store.GetMedia(ctx, id)
	if err != nil {
		return err
	}

	removeErr := os.Remove(rec.Path)
	if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
		return removeErr
	}

	if err := ix.store.DeleteMedia(ctx, id); err != nil {
		return err
	}
	return removeErr
}

// Forget drops the row for a path removed outside the index
func (ix *Index) Forget(ctx context.Context, path string) error {
	return ix.store.DeleteMediaByPath(ctx, path)
}

// Source adapts one collection to a scan source
func (ix *Index) Source(c Collection) scanner.Source {
	return &collectionSource{index: ix, collection: c}
}

// Sources returns one scan source per collection, in scan order
func (ix *Index) Sources() []scanner.Source {
	var out []scanner.Source
	for _, c := range Collections() {
		out = append(out, ix.Source(c))
	}
	return out
}

type collectionSource struct {
	index      *Index
	collection Collection
}

func (s *collectionSource) Name() string {
	return string(s.collection)
}

func (s *collectionSource) List(ctx context.Context) ([]scanner.Candidate, error) {
	return s.index.Query(ctx, s.collection)
}
