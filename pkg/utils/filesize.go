package utils

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
	TB = 1024 * GB
)

// FormatBytes converts bytes to human-readable format
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseSize converts human-readable size to bytes.
// Bare units ("KB", "MB") are treated as binary multiples, the way storage
// settings on the device report them.
func ParseSize(size string) (int64, error) {
	s := strings.TrimSpace(size)
	if s == "" {
		return 0, fmt.Errorf("invalid size format: %q", size)
	}

	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "B") && !strings.HasSuffix(upper, "IB") && len(upper) > 1 {
		prefix := upper[len(upper)-2]
		if prefix >= 'A' && prefix <= 'Z' {
			s = s[:len(s)-1] + "iB"
		}
	} else if last := upper[len(upper)-1]; last == 'K' || last == 'M' || last == 'G' || last == 'T' {
		s += "iB"
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", size)
	}
	return int64(n), nil
}

// SumSizes adds up a slice of sizes
func SumSizes(sizes []int64) int64 {
	var total int64
	for _, size := range sizes {
		total += size
	}
	return total
}
