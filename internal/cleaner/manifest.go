package cleaner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DeletionManifest keeps track of deleted files
type DeletionManifest struct {
	Files     []DeletedFileInfo
	Timestamp time.Time
	TotalSize int64
}

// DeletedFileInfo represents information about a deleted file
type DeletedFileInfo struct {
	Path      string
	Size      int64
	Type      string
	DeletedAt time.Time
}

// NewDeletionManifest creates a new DeletionManifest
func NewDeletionManifest() *DeletionManifest {
	return &DeletionManifest{
		Files:     []DeletedFileInfo{},
		Timestamp: time.Now(),
	}
}

// Add adds a file to the manifest
func (m *DeletionManifest) Add(path string, size int64, fileType string) {
	m.Files = append(m.Files, DeletedFileInfo{
		Path:      path,
		Size:      size,
		Type:      fileType,
		DeletedAt: time.Now(),
	})
	m.TotalSize += size
}

// Save saves the manifest to a file
func (m *DeletionManifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "Deletion Manifest\n")
	fmt.Fprintf(w, "Created: %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "Total Size: %d bytes\n", m.TotalSize)
	fmt.Fprintf(w, "Total Files: %d\n\n", len(m.Files))

	for _, f := range m.Files {
		fmt.Fprintf(w, "%s | %d bytes | %s | %s\n",
			f.Path, f.Size, f.Type, f.DeletedAt.Format(time.RFC3339))
	}

	return w.Flush()
}
