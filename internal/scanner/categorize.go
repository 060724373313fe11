package scanner

import "strings"

// suffix rules are tried in order, before the keyword rules
var suffixRules = []struct {
	suffixes []string
	fileType FileType
}{
	{[]string{".apk"}, ObsoleteAPK},
	{[]string{".tmp", ".temp"}, Temp},
	{[]string{".bak", ".crdownload", ".part", ".download"}, Junk},
	{[]string{".log"}, Log},
}

// CategorizeFile classifies a file by its display name alone.
// It returns false for names that match no rule. Content is never inspected,
// so a user file named e.g. "notes.temp" is classified as Temp.
func CategorizeFile(name string) (FileType, bool) {
	lower := strings.ToLower(name)

	for _, rule := range suffixRules {
		for _, suffix := range rule.suffixes {
			if strings.HasSuffix(lower, suffix) {
				return rule.fileType, true
			}
		}
	}

	if strings.HasPrefix(lower, ".thumbdata") ||
		strings.Contains(lower, "cache") ||
		strings.Contains(lower, "thumbnail") {
		return Cache, true
	}

	return 0, false
}

// categorize applies CategorizeFile and falls back to Cache for files
// that were listed from an app cache directory
func categorize(c Candidate) (FileType, bool) {
	if t, ok := CategorizeFile(c.Name); ok {
		return t, true
	}
	if c.InCacheDir {
		return Cache, true
	}
	return 0, false
}
