package scanner

import (
	"fmt"
	"strings"
	"time"
)

// FileType is the junk category a file is bucketed into at discovery
type FileType int

const (
	Junk FileType = iota
	ObsoleteAPK
	Temp
	Log
	Cache
)

var fileTypeNames = [...]string{
	Junk:        "junk",
	ObsoleteAPK: "obsolete_apk",
	Temp:        "temp",
	Log:         "log",
	Cache:       "cache",
}

// AllFileTypes returns every FileType in display order
func AllFileTypes() []FileType {
	return []FileType{Junk, ObsoleteAPK, Temp, Log, Cache}
}

func (t FileType) String() string {
	if t < 0 || int(t) >= len(fileTypeNames) {
		return fmt.Sprintf("FileType(%d)", int(t))
	}
	return fileTypeNames[t]
}

// Label returns a human-readable name for reports and the TUI
func (t FileType) Label() string {
	switch t {
	case Junk:
		return "Junk Files"
	case ObsoleteAPK:
		return "Obsolete APKs"
	case Temp:
		return "Temporary Files"
	case Log:
		return "Log Files"
	case Cache:
		return "Cache Files"
	default:
		return t.String()
	}
}

// ParseFileType parses a FileType name, case-insensitively.
// "apk" is accepted as shorthand for obsolete_apk.
func ParseFileType(s string) (FileType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "apk" {
		return ObsoleteAPK, nil
	}
	for i, name := range fileTypeNames {
		if name == s {
			return FileType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown file type %q", s)
}

// ParseFileTypes parses a list of FileType names
func ParseFileTypes(names []string) ([]FileType, error) {
	types := make([]FileType, 0, len(names))
	for _, n := range names {
		t, err := ParseFileType(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// MarshalText implements encoding.TextMarshaler so reports carry names, not ints
func (t FileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *FileType) UnmarshalText(b []byte) error {
	parsed, err := ParseFileType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnnecessaryFile is one discovered deletion candidate. Identity is Path.
type UnnecessaryFile struct {
	Path    string    `json:"path" yaml:"path"`
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	Type    FileType  `json:"type" yaml:"type"`
	URI     string    `json:"uri,omitempty" yaml:"uri,omitempty"` // media index handle, empty for plain files
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	Source  string    `json:"source" yaml:"source"`
}

// Candidate is a raw file listed by a Source before categorization
type Candidate struct {
	Path       string
	Name       string
	Size       int64
	ModTime    time.Time
	URI        string
	InCacheDir bool // listed from an app cache directory
}

// ScanResult represents the result of a scan operation
type ScanResult struct {
	Files      []UnnecessaryFile `json:"files" yaml:"files"`
	TotalSize  int64             `json:"total_size" yaml:"total_size"`
	TotalCount int               `json:"total_count" yaml:"total_count"`
	Errors     []error           `json:"-" yaml:"-"`
}

// NewScanResult builds a result and its totals from a file list
func NewScanResult(files []UnnecessaryFile) *ScanResult {
	r := &ScanResult{Files: files}
	for _, f := range files {
		r.TotalSize += f.Size
	}
	r.TotalCount = len(files)
	return r
}

// GroupByType groups results by their FileType
func (r *ScanResult) GroupByType() map[FileType]*ScanResult {
	grouped := make(map[FileType]*ScanResult)

	for _, file := range r.Files {
		g, ok := grouped[file.Type]
		if !ok {
			g = &ScanResult{Files: make([]UnnecessaryFile, 0)}
			grouped[file.Type] = g
		}
		g.Files = append(g.Files, file)
		g.TotalSize += file.Size
		g.TotalCount++
	}

	return grouped
}

// Filter returns a result holding only the files of the given types
func (r *ScanResult) Filter(types []FileType) *ScanResult {
	want := typeSet(types)
	var files []UnnecessaryFile
	for _, f := range r.Files {
		if want[f.Type] {
			files = append(files, f)
		}
	}
	return NewScanResult(files)
}

func typeSet(types []FileType) map[FileType]bool {
	set := make(map[FileType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
